package echo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHandlerEchoesInOrderUntilEOF(t *testing.T) {
	t.Parallel()
	payload := strings.Repeat("the quick brown fox ", 50)
	for name, r := range map[string]io.Reader{
		"whole":    strings.NewReader(payload),
		"one-byte": iotest.OneByteReader(strings.NewReader(payload)),
		"half":     iotest.HalfReader(strings.NewReader(payload)),
		"data+eof": iotest.DataErrReader(strings.NewReader(payload)),
	} {
		r := r
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			conn := newFakeConn(r, &out)
			rec := &countingRecorder{}
			h := NewHandler(WithBufferSize(7), WithRecorder(rec))

			res := h.Run(context.Background(), conn)

			require.NoError(t, res.Err)
			require.Equal(t, payload, out.String())
			require.EqualValues(t, len(payload), res.Bytes)
			require.True(t, conn.closed.Load(), "connection must be closed when Run returns")
			require.EqualValues(t, 1, conn.halfClosed.Load())
			require.EqualValues(t, 1, rec.closed.Load())
			require.EqualValues(t, 0, rec.failed.Load())
		})
	}
}

func TestHandlerEmptyStream(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	conn := newFakeConn(strings.NewReader(""), &out)
	res := NewHandler().Run(context.Background(), conn)
	require.NoError(t, res.Err)
	require.Zero(t, res.Bytes)
	require.Zero(t, out.Len())
}

func TestHandlerReadErrorStopsRelay(t *testing.T) {
	t.Parallel()
	r := io.MultiReader(strings.NewReader("abc"), iotest.ErrReader(syscall.ECONNRESET))
	var out bytes.Buffer
	conn := newFakeConn(r, &out)
	logger, logs := observedLogger()
	rec := &countingRecorder{}

	res := NewHandler(WithLogger(logger), WithRecorder(rec)).Run(context.Background(), conn)

	require.ErrorIs(t, res.Err, syscall.ECONNRESET)
	require.EqualValues(t, 3, res.Bytes)
	require.Equal(t, "abc", out.String())
	require.True(t, conn.closed.Load())
	require.Zero(t, conn.halfClosed.Load(), "no half-close after a failed relay")
	require.EqualValues(t, 1, rec.failed.Load())

	entries := logs.FilterMessageSnippet("127.0.0.1:50123: IO error").All()
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Message, "connection reset")
	require.Zero(t, logs.FilterMessageSnippet("wrote a total").Len())
}

func TestHandlerWriteErrorAborts(t *testing.T) {
	t.Parallel()
	broken := errors.New("broken pipe")
	src := strings.NewReader("never echoed")
	conn := newFakeConn(src, failingWriter{err: broken})

	res := NewHandler(WithBufferSize(4)).Run(context.Background(), conn)

	require.ErrorIs(t, res.Err, broken)
	require.Zero(t, res.Bytes)
	require.Positive(t, src.Len(), "relay must stop reading after a write failure")
}

func TestHandlerShortWrite(t *testing.T) {
	t.Parallel()
	conn := newFakeConn(strings.NewReader("hello\n"), shortWriter{})
	res := NewHandler().Run(context.Background(), conn)
	require.ErrorIs(t, res.Err, io.ErrShortWrite)
	require.EqualValues(t, 5, res.Bytes)
}

func TestHandlerLogsTotalOnSuccess(t *testing.T) {
	t.Parallel()
	logger, logs := observedLogger()
	conn := newFakeConn(strings.NewReader("hello"), nil)
	id := uuid.New()

	res := NewHandler(WithLogger(logger)).Run(ContextWithConnID(context.Background(), id), conn)

	require.NoError(t, res.Err)
	require.Equal(t, id, res.ID)
	require.Equal(t, "127.0.0.1:50123", res.Peer)
	entries := logs.FilterMessage("127.0.0.1:50123: wrote a total of 5 bytes").All()
	require.Len(t, entries, 1)
	require.Equal(t, id.String(), entries[0].ContextMap()["conn_id"])
	require.EqualValues(t, 5, entries[0].ContextMap()["bytes"])
}

func TestHandlerCancelClosesConnection(t *testing.T) {
	t.Parallel()
	server, client := net.Pipe()
	defer client.Close()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan TransferResult, 1)
	go func() { done <- NewHandler().Run(ctx, server) }()

	_, err := client.Write([]byte("ping"))
	require.NoError(t, err)
	require.Equal(t, []byte("ping"), readExactly(t, client, 4))

	cancel()
	select {
	case res := <-done:
		require.ErrorIs(t, res.Err, context.Canceled)
		require.EqualValues(t, 4, res.Bytes)
	case <-time.After(2 * time.Second):
		t.Fatal("handler ignored cancellation")
	}
}

func TestSplitHalvesAreIndependent(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()
	client := dial(t, ln.Addr().String())
	server := <-accepted
	require.NotNil(t, server)
	defer server.Close()

	r, w := Split(server)
	require.NoError(t, w.Close())

	// The peer sees EOF for our write direction...
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = client.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)

	// ...while our read direction still works.
	_, err = client.Write([]byte("still open"))
	require.NoError(t, err)
	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 10)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	require.Equal(t, "still open", string(buf))
	require.NoError(t, r.Close())
}
