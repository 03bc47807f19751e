package netx

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/flynn/noise"
)

// noiseDialer wraps an inner Dialer and runs a Noise XX handshake over
// every new connection. The coordinator protocol itself is cleartext;
// this tunnel is for deployments that reach the coordinator through a
// decrypting relay.
type noiseDialer struct {
	inner Dialer
}

func NewNoiseDialer(inner Dialer) Dialer {
	return &noiseDialer{inner: inner}
}

func (d *noiseDialer) Dial(ctx context.Context, addr Addr) (Conn, error) {
	raw, err := d.inner.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	sc, err := SecureClient(raw)
	if err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("noise handshake with %s: %w", addr, err)
	}
	return sc, nil
}

// SecureConn wraps an underlying stream with Noise cipher states.
// Frames are length-prefixed; reads are buffered so callers may
// consume a frame across multiple Read calls.
type SecureConn struct {
	underlying Conn

	readCS  *noise.CipherState
	writeCS *noise.CipherState

	leftover []byte
}

func (c *SecureConn) Read(p []byte) (int, error) {
	if len(c.leftover) == 0 {
		var lenBuf [4]byte
		if _, err := io.ReadFull(c.underlying, lenBuf[:]); err != nil {
			return 0, err
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		if n == 0 {
			return 0, fmt.Errorf("invalid frame length")
		}

		ct := make([]byte, n)
		if _, err := io.ReadFull(c.underlying, ct); err != nil {
			return 0, err
		}

		pt, err := c.readCS.Decrypt(nil, nil, ct)
		if err != nil {
			return 0, err
		}
		c.leftover = pt
	}

	n := copy(p, c.leftover)
	c.leftover = c.leftover[n:]
	return n, nil
}

// Write encrypts p as a single frame and writes it with a length prefix.
func (c *SecureConn) Write(p []byte) (int, error) {
	ct, err := c.writeCS.Encrypt(nil, nil, p)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 4+len(ct))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(ct)))
	copy(buf[4:], ct)

	if _, err := c.underlying.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *SecureConn) Close() error {
	return c.underlying.Close()
}

func (c *SecureConn) RemoteAddr() Addr {
	return c.underlying.RemoteAddr()
}

func cipherSuite() noise.CipherSuite {
	return noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2s)
}

func ephemeralKeypair(cs noise.CipherSuite) (noise.DHKey, error) {
	return cs.GenerateKeypair(rand.Reader)
}

// SecureClient runs a Noise XX handshake as initiator and returns a SecureConn.
func SecureClient(underlying Conn) (*SecureConn, error) {
	cs := cipherSuite()
	kp, err := ephemeralKeypair(cs)
	if err != nil {
		return nil, err
	}

	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cs,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXX,
		Initiator:     true,
		StaticKeypair: kp,
	})
	if err != nil {
		return nil, err
	}

	// -> e
	msg, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, err
	}
	if _, err := underlying.Write(msg); err != nil {
		return nil, err
	}

	// <- e, ee, s, es
	buf := make([]byte, 65535)
	n, err := underlying.Read(buf)
	if err != nil {
		return nil, err
	}
	if _, _, _, err := hs.ReadMessage(nil, buf[:n]); err != nil {
		return nil, err
	}

	// -> s, se
	msg2, cs1, cs2, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, err
	}
	if _, err := underlying.Write(msg2); err != nil {
		return nil, err
	}

	// Initiator reads with cs2 and writes with cs1.
	return &SecureConn{underlying: underlying, readCS: cs2, writeCS: cs1}, nil
}

// SecureServer runs a Noise XX handshake as responder. Used by relay
// implementations and by tests that stand in for one.
func SecureServer(underlying Conn) (*SecureConn, error) {
	cs := cipherSuite()
	kp, err := ephemeralKeypair(cs)
	if err != nil {
		return nil, err
	}

	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cs,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXX,
		Initiator:     false,
		StaticKeypair: kp,
	})
	if err != nil {
		return nil, err
	}

	// <- e
	buf := make([]byte, 65535)
	n, err := underlying.Read(buf)
	if err != nil {
		return nil, err
	}
	if _, _, _, err := hs.ReadMessage(nil, buf[:n]); err != nil {
		return nil, err
	}

	// -> e, ee, s, es
	msg, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, err
	}
	if _, err := underlying.Write(msg); err != nil {
		return nil, err
	}

	// <- s, se
	n2, err := underlying.Read(buf)
	if err != nil {
		return nil, err
	}
	_, cs1, cs2, err := hs.ReadMessage(nil, buf[:n2])
	if err != nil {
		return nil, err
	}

	// Responder cipher state order is swapped relative to the initiator.
	return &SecureConn{underlying: underlying, readCS: cs1, writeCS: cs2}, nil
}
