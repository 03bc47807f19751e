package netx

import (
	"context"
	"io"
)

type Addr string

type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() Addr
}

// Dialer opens a byte stream to a remote address. The context bounds
// the connection attempt only, not the lifetime of the returned Conn.
type Dialer interface {
	Dial(ctx context.Context, addr Addr) (Conn, error)
}
