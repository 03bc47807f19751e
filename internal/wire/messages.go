package wire

import (
	"github.com/conjugatebond/aleo-prover-lite/internal/identity"
)

// ProtocolVersion is the minimum version this client speaks. Peers
// advertising anything lower are rejected during the handshake.
const ProtocolVersion uint32 = 12

type Kind uint16

const (
	KindChallengeRequest Kind = iota
	KindChallengeResponse
	KindDisconnect
	KindPing
	KindPong
	KindPuzzleRequest
	KindPuzzleResponse
	KindUnconfirmedSolution
)

func (k Kind) String() string {
	switch k {
	case KindChallengeRequest:
		return "ChallengeRequest"
	case KindChallengeResponse:
		return "ChallengeResponse"
	case KindDisconnect:
		return "Disconnect"
	case KindPing:
		return "Ping"
	case KindPong:
		return "Pong"
	case KindPuzzleRequest:
		return "PuzzleRequest"
	case KindPuzzleResponse:
		return "PuzzleResponse"
	case KindUnconfirmedSolution:
		return "UnconfirmedSolution"
	}
	return "Unknown"
}

type NodeType uint8

const (
	NodeBeacon NodeType = iota
	NodeValidator
	NodeProver
	NodeClient
)

func (t NodeType) String() string {
	switch t {
	case NodeBeacon:
		return "beacon"
	case NodeValidator:
		return "validator"
	case NodeProver:
		return "prover"
	case NodeClient:
		return "client"
	}
	return "unknown"
}

type DisconnectReason uint8

const (
	ReasonNoReasonGiven DisconnectReason = iota
	ReasonProtocolViolation
	ReasonOutdatedClient
	ReasonTooManyPeers
	ReasonShuttingDown
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonProtocolViolation:
		return "protocol violation"
	case ReasonOutdatedClient:
		return "outdated client"
	case ReasonTooManyPeers:
		return "too many peers"
	case ReasonShuttingDown:
		return "shutting down"
	}
	return "no reason given"
}

// Message is the closed set of wire message kinds. Only types in this
// package implement it; the router switch carries an explicit
// catch-all for kinds it does not act on.
type Message interface {
	Kind() Kind
	message()
}

// ChallengeRequest opens the handshake in both directions.
type ChallengeRequest struct {
	Version      uint32
	ListenerPort uint16
	NodeType     NodeType
	Address      identity.Address
	Nonce        uint64
}

// ChallengeResponse answers a peer's ChallengeRequest. The signature
// covers the request nonce and travels as an opaque blob.
type ChallengeResponse struct {
	Genesis   Digest
	Signature Deferred[identity.Signature]
}

type Disconnect struct {
	Reason DisconnectReason
}

// Ping is the keep-alive probe. Provers carry no block locators.
type Ping struct {
	Version       uint32
	NodeType      NodeType
	BlockLocators []byte
}

type Pong struct {
	IsFork *bool
}

type PuzzleRequest struct{}

// PuzzleResponse delivers a work assignment. The block header is large
// and only needed for its targets, so it stays raw until decoded.
type PuzzleResponse struct {
	Challenge EpochChallenge
	Header    Deferred[BlockHeader]
}

// UnconfirmedSolution submits a solved puzzle back to the coordinator.
type UnconfirmedSolution struct {
	Epoch   uint32
	Address identity.Address
	Nonce   uint64
	Proof   []byte
}

// Raw carries any recognized-but-unhandled or unknown message kind so
// the router can log it instead of failing the session.
type Raw struct {
	RawKind Kind
	Payload []byte
}

func (*ChallengeRequest) Kind() Kind    { return KindChallengeRequest }
func (*ChallengeResponse) Kind() Kind   { return KindChallengeResponse }
func (*Disconnect) Kind() Kind          { return KindDisconnect }
func (*Ping) Kind() Kind                { return KindPing }
func (*Pong) Kind() Kind                { return KindPong }
func (*PuzzleRequest) Kind() Kind       { return KindPuzzleRequest }
func (*PuzzleResponse) Kind() Kind      { return KindPuzzleResponse }
func (*UnconfirmedSolution) Kind() Kind { return KindUnconfirmedSolution }
func (m *Raw) Kind() Kind               { return m.RawKind }

func (*ChallengeRequest) message()    {}
func (*ChallengeResponse) message()   {}
func (*Disconnect) message()          {}
func (*Ping) message()                {}
func (*Pong) message()                {}
func (*PuzzleRequest) message()       {}
func (*PuzzleResponse) message()      {}
func (*UnconfirmedSolution) message() {}
func (*Raw) message()                 {}

// Name returns the kind name for logging.
func Name(m Message) string { return m.Kind().String() }
