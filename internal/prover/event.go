package prover

import (
	"github.com/conjugatebond/aleo-prover-lite/internal/identity"
	"github.com/conjugatebond/aleo-prover-lite/internal/wire"
)

// Event is the work-distribution channel's vocabulary. The session
// router produces events; the prover consumes them. A NewTarget always
// precedes the NewWork derived from the same puzzle response, and
// solution acceptance is gated on the most recent target.
type Event interface {
	event()
}

type NewTarget struct {
	Target uint64
}

type NewWork struct {
	Epoch         uint32
	Challenge     wire.EpochChallenge
	RewardAddress identity.Address
}

func (NewTarget) event() {}
func (NewWork) event()   {}
