package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conjugatebond/aleo-prover-lite/internal/identity"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	var buf bytes.Buffer
	codec := NewCodec(&buf)
	require.NoError(t, codec.WriteMessage(m))
	out, err := codec.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, m.Kind(), out.Kind())
	return out
}

func TestChallengeRequestRoundTrip(t *testing.T) {
	in := &ChallengeRequest{
		Version:      ProtocolVersion,
		ListenerPort: 4140,
		NodeType:     NodeProver,
		Address:      identity.Address{1, 2, 3},
		Nonce:        0xdeadbeef,
	}
	out := roundTrip(t, in).(*ChallengeRequest)
	require.Equal(t, in, out)
}

func TestPuzzleResponseHeaderDecodesLazily(t *testing.T) {
	header := BlockHeader{Height: 7, Round: 9, Timestamp: 1700000000, CoinbaseTarget: 50, ProofTarget: 100}
	in := &PuzzleResponse{
		Challenge: EpochChallenge{Epoch: 7, Data: []byte("challenge")},
		Header:    DeferValue(header, EncodeBlockHeader(header)),
	}
	out := roundTrip(t, in).(*PuzzleResponse)
	require.Equal(t, in.Challenge, out.Challenge)

	decoded, err := out.Header.Decode()
	require.NoError(t, err)
	require.Equal(t, header, decoded)
}

func TestPingOptionalLocators(t *testing.T) {
	bare := roundTrip(t, &Ping{Version: ProtocolVersion, NodeType: NodeProver}).(*Ping)
	require.Nil(t, bare.BlockLocators)

	full := roundTrip(t, &Ping{Version: ProtocolVersion, NodeType: NodeBeacon, BlockLocators: []byte{9}}).(*Ping)
	require.Equal(t, []byte{9}, full.BlockLocators)
}

func TestPongOptionalFork(t *testing.T) {
	bare := roundTrip(t, &Pong{}).(*Pong)
	require.Nil(t, bare.IsFork)

	fork := true
	out := roundTrip(t, &Pong{IsFork: &fork}).(*Pong)
	require.NotNil(t, out.IsFork)
	require.True(t, *out.IsFork)
}

func TestSignatureDeferredDecode(t *testing.T) {
	sig := identity.Signature{1, 2, 3}
	out := roundTrip(t, &ChallengeResponse{
		Genesis:   GenesisDigest(),
		Signature: DeferValue(sig, sig.Bytes()),
	}).(*ChallengeResponse)

	decoded, err := out.Signature.Decode()
	require.NoError(t, err)
	require.Equal(t, sig, decoded)
}

func TestUnknownKindDecodesToRaw(t *testing.T) {
	out := roundTrip(t, &Raw{RawKind: Kind(0x7fff), Payload: []byte{1, 2, 3}}).(*Raw)
	require.Equal(t, Kind(0x7fff), out.RawKind)
	require.Equal(t, []byte{1, 2, 3}, out.Payload)
}

func TestTruncatedPayloadKeepsStreamAligned(t *testing.T) {
	var buf bytes.Buffer

	// A ChallengeRequest frame with a two-byte payload is malformed but
	// fully framed.
	frame := []byte{0, 0, 0, 0}
	frame = binary.LittleEndian.AppendUint16(frame, uint16(KindChallengeRequest))
	frame = append(frame, 0xaa, 0xbb)
	binary.LittleEndian.PutUint32(frame[:4], uint32(len(frame)-4))
	buf.Write(frame)

	codec := NewCodec(&buf)
	require.NoError(t, codec.WriteMessage(&PuzzleRequest{}))

	_, err := codec.ReadMessage()
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, KindChallengeRequest, de.FrameKind)

	// The malformed frame was consumed whole; the next message reads fine.
	m, err := codec.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, KindPuzzleRequest, m.Kind())
}

func TestInvalidFrameLengthIsFatal(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 0, 0, 0}) // length 1 cannot hold a kind

	_, err := NewCodec(&buf).ReadMessage()
	require.Error(t, err)
	var de *DecodeError
	require.False(t, errors.As(err, &de), "bad framing is not recoverable")
}
