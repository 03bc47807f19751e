package netx

import (
	"context"
	"net"
)

type tcpDialer struct {
	d net.Dialer
}

func NewTCPDialer() Dialer {
	return &tcpDialer{}
}

func (t *tcpDialer) Dial(ctx context.Context, addr Addr) (Conn, error) {
	c, err := t.d.DialContext(ctx, "tcp", string(addr))
	if err != nil {
		return nil, err
	}
	return &tcpConn{Conn: c}, nil
}

type tcpConn struct {
	net.Conn
}

func (c *tcpConn) RemoteAddr() Addr {
	return Addr(c.Conn.RemoteAddr().String())
}
