package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Address identifies an account on the wire: the blake2b digest of the
// account public key.
type Address [32]byte

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// ParseAddress parses a hex-encoded 32-byte address.
func ParseAddress(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address: %w", err)
	}
	if len(b) != len(Address{}) {
		return Address{}, fmt.Errorf("invalid address: expected %d bytes, got %d", len(Address{}), len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// AddressFromPub derives the canonical address from a public key.
func AddressFromPub(pub ed25519.PublicKey) Address {
	return Address(blake2b.Sum256(pub))
}

// Signature is an ed25519 signature over a handshake nonce.
type Signature [ed25519.SignatureSize]byte

func (s Signature) Bytes() []byte { return s[:] }

// ParseSignature validates length and copies raw signature bytes.
func ParseSignature(b []byte) (Signature, error) {
	if len(b) != ed25519.SignatureSize {
		return Signature{}, fmt.Errorf("invalid signature: expected %d bytes, got %d", ed25519.SignatureSize, len(b))
	}
	var s Signature
	copy(s[:], b)
	return s, nil
}

// Account is an ephemeral keypair generated once per process. It signs
// handshake nonces only and is never persisted.
type Account struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	addr Address
}

func New() (*Account, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Account{
		priv: priv,
		pub:  pub,
		addr: AddressFromPub(pub),
	}, nil
}

func (a *Account) Address() Address { return a.addr }

func (a *Account) Public() ed25519.PublicKey { return a.pub }

// SignNonce signs the little-endian encoding of a handshake nonce.
func (a *Account) SignNonce(nonce uint64) Signature {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], nonce)
	var s Signature
	copy(s[:], ed25519.Sign(a.priv, buf[:]))
	return s
}

// VerifyNonce reports whether sig is a valid signature of nonce by pub.
func VerifyNonce(pub ed25519.PublicKey, nonce uint64, sig Signature) bool {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], nonce)
	return ed25519.Verify(pub, buf[:], sig[:])
}
