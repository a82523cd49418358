package echo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransferResult is the outcome of one connection. Err is nil when the peer
// half-closed cleanly; otherwise Bytes counts what was relayed before the
// failure.
type TransferResult struct {
	ID    uuid.UUID
	Peer  string
	Bytes int64
	Err   error
}

// Handler relays bytes for one connection at a time. A single Handler may
// serve many connections concurrently; it holds no per-connection state.
type Handler struct {
	log     *zap.Logger
	rec     Recorder
	bufSize int
}

func NewHandler(optFns ...Option) *Handler {
	o := buildOptions(optFns)
	return newHandler(o)
}

func newHandler(o options) *Handler {
	return &Handler{log: o.logger, rec: o.recorder, bufSize: o.bufferSize}
}

type connIDKey struct{}

// ContextWithConnID tags ctx with the id Run should use for its connection.
func ContextWithConnID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, connIDKey{}, id)
}

func connIDFrom(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(connIDKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.New()
}

// Run echoes everything read from conn back to it until the peer half-closes
// or an I/O error occurs, then closes conn. Cancelling ctx closes conn and
// ends the relay.
func (h *Handler) Run(ctx context.Context, conn net.Conn) TransferResult {
	res := TransferResult{ID: connIDFrom(ctx), Peer: peerOf(conn)}
	log := h.log.With(zap.String("peer", res.Peer), zap.Stringer("conn_id", res.ID))

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	r, w := Split(conn)
	res.Bytes, res.Err = h.relay(r, w)
	if res.Err != nil && ctx.Err() != nil {
		res.Err = fmt.Errorf("connection closed on shutdown: %w", context.Cause(ctx))
	}

	if res.Err == nil {
		if err := w.Close(); err != nil {
			log.Debug("half-close failed", zap.Error(err))
		}
		log.Info(fmt.Sprintf("%s: wrote a total of %d bytes", res.Peer, res.Bytes), zap.Int64("bytes", res.Bytes))
	} else {
		log.Error(fmt.Sprintf("%s: IO error %v", res.Peer, res.Err), zap.Int64("bytes", res.Bytes), zap.Error(res.Err))
	}
	h.rec.ConnectionClosed(res.Bytes, res.Err)
	return res
}

// relay copies r to w chunk by chunk, preserving order. Bytes returned
// alongside a read error are written before the error is considered.
func (h *Handler) relay(r io.Reader, w io.Writer) (int64, error) {
	buf := make([]byte, h.bufSize)
	var total int64
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, fmt.Errorf("write: %w", werr)
			}
			if wn != n {
				return total, fmt.Errorf("write: %w", io.ErrShortWrite)
			}
		}
		if errors.Is(rerr, io.EOF) {
			return total, nil
		}
		if rerr != nil {
			return total, fmt.Errorf("read: %w", rerr)
		}
	}
}
