package echo

import "net"

// ReadHalf is the receiving direction of a connection.
type ReadHalf struct {
	conn net.Conn
}

func (r ReadHalf) Read(p []byte) (int, error) { return r.conn.Read(p) }

// Close shuts down reading when the transport supports it. It never closes
// the write direction.
func (r ReadHalf) Close() error {
	if c, ok := r.conn.(interface{ CloseRead() error }); ok {
		return c.CloseRead()
	}
	return nil
}

// WriteHalf is the sending direction of a connection.
type WriteHalf struct {
	conn net.Conn
}

func (w WriteHalf) Write(p []byte) (int, error) { return w.conn.Write(p) }

// Close sends a FIN when the transport supports half-close. It never closes
// the read direction.
func (w WriteHalf) Close() error {
	if c, ok := w.conn.(interface{ CloseWrite() error }); ok {
		return c.CloseWrite()
	}
	return nil
}

// Split returns the two directions of conn. Both halves reference the same
// transport; neither holds a buffer of its own.
func Split(conn net.Conn) (ReadHalf, WriteHalf) {
	return ReadHalf{conn: conn}, WriteHalf{conn: conn}
}

func peerOf(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
