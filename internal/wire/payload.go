package wire

import (
	"encoding/binary"
	"errors"
)

var errShortPayload = errors.New("payload truncated")

// payloadWriter appends fixed-order little-endian fields. Variable
// blobs carry a u32 length prefix; fixed-size fields are raw.
type payloadWriter struct {
	buf []byte
}

func (w *payloadWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *payloadWriter) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *payloadWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *payloadWriter) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *payloadWriter) raw(b []byte) { w.buf = append(w.buf, b...) }

func (w *payloadWriter) blob(b []byte) {
	w.u32(uint32(len(b)))
	w.raw(b)
}

func (w *payloadWriter) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *payloadWriter) option(present bool) { w.bool(present) }

// payloadReader mirrors payloadWriter. The first short read latches
// err and every later read returns zero values, so decoders read the
// whole field list and check err once.
type payloadReader struct {
	buf []byte
	off int
	err error
}

func (r *payloadReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = errShortPayload
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *payloadReader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *payloadReader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *payloadReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *payloadReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *payloadReader) rawN(n int) []byte { return r.take(n) }

func (r *payloadReader) blob() []byte {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	if int(n) > len(r.buf)-r.off {
		r.err = errShortPayload
		return nil
	}
	// Copy so the message does not alias the frame buffer.
	b := r.take(int(n))
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (r *payloadReader) bool() bool { return r.u8() != 0 }

func (r *payloadReader) option() bool { return r.bool() }
