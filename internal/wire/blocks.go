package wire

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Digest is the genesis reference: a fixed value identifying which
// network this client is compatible with.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:8]) }

// canonicalGenesis is the network's genesis block encoding, compiled in
// so every build of this client agrees on the reference digest.
const canonicalGenesis = "" +
	"00000000000000000000000000000000000000000000000000000000000000000000000000000000" +
	"a11e0c0de000000000000000000000000000000000000000000000000000000000000000ffffffff" +
	"0000000000000190655361c0ffffffffffffffffffffffffffffffff0000000000000001"

var (
	genesisOnce   sync.Once
	genesisDigest Digest
)

// GenesisDigest returns the blake2b digest of the canonical genesis
// block, computed once at first use.
func GenesisDigest() Digest {
	genesisOnce.Do(func() {
		raw, err := hex.DecodeString(canonicalGenesis)
		if err != nil {
			panic("wire: corrupt canonical genesis constant")
		}
		genesisDigest = blake2b.Sum256(raw)
	})
	return genesisDigest
}

// EpochChallenge is the opaque puzzle descriptor handed to the solver,
// tied to a specific epoch.
type EpochChallenge struct {
	Epoch uint32
	Data  []byte
}

// BlockHeader carries the fields the prover needs from a coordinator
// block header. It travels as an opaque blob inside PuzzleResponse.
type BlockHeader struct {
	Height         uint32
	Round          uint64
	Timestamp      int64
	CoinbaseTarget uint64
	ProofTarget    uint64
}

const blockHeaderSize = 4 + 8 + 8 + 8 + 8

func EncodeBlockHeader(h BlockHeader) []byte {
	b := make([]byte, blockHeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Height)
	binary.LittleEndian.PutUint64(b[4:12], h.Round)
	binary.LittleEndian.PutUint64(b[12:20], uint64(h.Timestamp))
	binary.LittleEndian.PutUint64(b[20:28], h.CoinbaseTarget)
	binary.LittleEndian.PutUint64(b[28:36], h.ProofTarget)
	return b
}

func DecodeBlockHeader(b []byte) (BlockHeader, error) {
	if len(b) != blockHeaderSize {
		return BlockHeader{}, fmt.Errorf("block header: expected %d bytes, got %d", blockHeaderSize, len(b))
	}
	return BlockHeader{
		Height:         binary.LittleEndian.Uint32(b[0:4]),
		Round:          binary.LittleEndian.Uint64(b[4:12]),
		Timestamp:      int64(binary.LittleEndian.Uint64(b[12:20])),
		CoinbaseTarget: binary.LittleEndian.Uint64(b[20:28]),
		ProofTarget:    binary.LittleEndian.Uint64(b[28:36]),
	}, nil
}
