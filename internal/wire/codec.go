package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/conjugatebond/aleo-prover-lite/internal/identity"
)

// Frame layout: u32 LE length | u16 LE kind | payload. The length
// covers the kind discriminant and payload.
const (
	frameHeaderSize = 4
	kindSize        = 2
	maxFrameSize    = 16 << 20
)

// DecodeError marks a frame whose payload could not be decoded. The
// stream itself stays aligned (the full frame was consumed), so the
// reader may keep going.
type DecodeError struct {
	FrameKind Kind
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s payload: %v", e.FrameKind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Codec frames and unframes messages over a byte stream. It is not
// safe for concurrent use; the router is the only reader and writer.
type Codec struct {
	w io.Writer
	r *bufio.Reader
}

func NewCodec(rw io.ReadWriter) *Codec {
	return &Codec{w: rw, r: bufio.NewReader(rw)}
}

// WriteMessage encodes m and writes it as a single frame.
func (c *Codec) WriteMessage(m Message) error {
	payload := encodePayload(m)
	if len(payload)+kindSize > maxFrameSize {
		return fmt.Errorf("message %s exceeds max frame size", Name(m))
	}

	buf := make([]byte, frameHeaderSize+kindSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(kindSize+len(payload)))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(m.Kind()))
	copy(buf[6:], payload)

	_, err := c.w.Write(buf)
	return err
}

// ReadMessage reads the next frame and decodes it. A *DecodeError is
// recoverable; any other error means the stream is unusable.
func (c *Codec) ReadMessage() (Message, error) {
	var head [frameHeaderSize]byte
	if _, err := io.ReadFull(c.r, head[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(head[:])
	if n < kindSize || n > maxFrameSize {
		return nil, fmt.Errorf("invalid frame length %d", n)
	}

	frame := make([]byte, n)
	if _, err := io.ReadFull(c.r, frame); err != nil {
		return nil, err
	}

	kind := Kind(binary.LittleEndian.Uint16(frame[:kindSize]))
	m, err := decodePayload(kind, frame[kindSize:])
	if err != nil {
		return nil, &DecodeError{FrameKind: kind, Err: err}
	}
	return m, nil
}

func encodePayload(m Message) []byte {
	var w payloadWriter
	switch m := m.(type) {
	case *ChallengeRequest:
		w.u32(m.Version)
		w.u16(m.ListenerPort)
		w.u8(uint8(m.NodeType))
		w.raw(m.Address[:])
		w.u64(m.Nonce)
	case *ChallengeResponse:
		w.raw(m.Genesis[:])
		w.blob(m.Signature.Bytes())
	case *Disconnect:
		w.u8(uint8(m.Reason))
	case *Ping:
		w.u32(m.Version)
		w.u8(uint8(m.NodeType))
		w.option(m.BlockLocators != nil)
		if m.BlockLocators != nil {
			w.blob(m.BlockLocators)
		}
	case *Pong:
		w.option(m.IsFork != nil)
		if m.IsFork != nil {
			w.bool(*m.IsFork)
		}
	case *PuzzleRequest:
	case *PuzzleResponse:
		w.u32(m.Challenge.Epoch)
		w.blob(m.Challenge.Data)
		w.blob(m.Header.Bytes())
	case *UnconfirmedSolution:
		w.u32(m.Epoch)
		w.raw(m.Address[:])
		w.u64(m.Nonce)
		w.blob(m.Proof)
	case *Raw:
		w.raw(m.Payload)
	}
	return w.buf
}

func decodePayload(kind Kind, b []byte) (Message, error) {
	r := payloadReader{buf: b}
	switch kind {
	case KindChallengeRequest:
		m := &ChallengeRequest{
			Version:      r.u32(),
			ListenerPort: r.u16(),
			NodeType:     NodeType(r.u8()),
		}
		copy(m.Address[:], r.rawN(len(m.Address)))
		m.Nonce = r.u64()
		return m, r.err
	case KindChallengeResponse:
		m := &ChallengeResponse{}
		copy(m.Genesis[:], r.rawN(len(m.Genesis)))
		m.Signature = DeferDecode(r.blob(), identity.ParseSignature)
		return m, r.err
	case KindDisconnect:
		return &Disconnect{Reason: DisconnectReason(r.u8())}, r.err
	case KindPing:
		m := &Ping{Version: r.u32(), NodeType: NodeType(r.u8())}
		if r.option() {
			m.BlockLocators = r.blob()
		}
		return m, r.err
	case KindPong:
		m := &Pong{}
		if r.option() {
			fork := r.bool()
			m.IsFork = &fork
		}
		return m, r.err
	case KindPuzzleRequest:
		return &PuzzleRequest{}, nil
	case KindPuzzleResponse:
		m := &PuzzleResponse{}
		m.Challenge.Epoch = r.u32()
		m.Challenge.Data = r.blob()
		m.Header = DeferDecode(r.blob(), DecodeBlockHeader)
		return m, r.err
	case KindUnconfirmedSolution:
		m := &UnconfirmedSolution{Epoch: r.u32()}
		copy(m.Address[:], r.rawN(len(m.Address)))
		m.Nonce = r.u64()
		m.Proof = r.blob()
		return m, r.err
	default:
		return &Raw{RawKind: kind, Payload: b}, nil
	}
}
