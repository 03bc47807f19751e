package prover

import (
	"context"
	"encoding/binary"
	"math/rand"

	"golang.org/x/crypto/blake2b"

	"github.com/conjugatebond/aleo-prover-lite/internal/identity"
	"github.com/conjugatebond/aleo-prover-lite/internal/wire"
)

// Solution is one proof meeting (at solve time) the difficulty target.
type Solution struct {
	Nonce uint64
	Proof []byte
	Score uint64
}

// Solver grinds one challenge until it finds a solution whose score
// meets target, or ctx ends. Implementations must be safe for use from
// multiple workers.
type Solver interface {
	Solve(ctx context.Context, challenge wire.EpochChallenge, target uint64, addr identity.Address) (*Solution, error)
}

// HashSolver is the reference solver: blake2b over challenge, reward
// address, and nonce; the score is the first eight bytes of the digest.
type HashSolver struct{}

const solveBatch = 4096

func (HashSolver) Solve(ctx context.Context, challenge wire.EpochChallenge, target uint64, addr identity.Address) (*Solution, error) {
	base := make([]byte, 0, len(challenge.Data)+len(addr)+8)
	base = append(base, challenge.Data...)
	base = append(base, addr[:]...)

	nonce := rand.Uint64()
	buf := make([]byte, len(base)+8)
	copy(buf, base)

	for {
		for i := 0; i < solveBatch; i++ {
			binary.LittleEndian.PutUint64(buf[len(base):], nonce)
			digest := blake2b.Sum256(buf)
			score := binary.LittleEndian.Uint64(digest[:8])
			if score >= target {
				return &Solution{Nonce: nonce, Proof: digest[:], Score: score}, nil
			}
			nonce++
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
}
