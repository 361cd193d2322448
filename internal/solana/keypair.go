package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Keypair wraps an ed25519 keypair with base58 accessors.
type Keypair struct {
	priv ed25519.PrivateKey
}

// NewKeypair generates a fresh keypair. Used for token mints.
func NewKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{priv: priv}, nil
}

// KeypairFromBase58 parses a base58-encoded 64-byte secret key
// (seed followed by public key).
func KeypairFromBase58(encoded string) (*Keypair, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return &Keypair{priv: ed25519.PrivateKey(raw)}, nil
}

// PublicKey returns the raw 32-byte public key.
func (k *Keypair) PublicKey() []byte {
	return k.priv.Public().(ed25519.PublicKey)
}

// PublicKeyBase58 returns the base58-encoded public key, the canonical
// Solana address form.
func (k *Keypair) PublicKeyBase58() string {
	return base58.Encode(k.PublicKey())
}

// Sign signs a message with the keypair.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// ValidatePublicKey checks that an address decodes to a 32-byte point on
// the ed25519 curve. Off-curve addresses (PDAs) cannot sign.
func ValidatePublicKey(address string) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("address must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("address is not on the ed25519 curve: %w", err)
	}
	return nil
}
