package security

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrUnseal is returned when a sealed value is truncated, tampered with, or sealed under another key.
var ErrUnseal = errors.New("security: cannot open sealed value")

// Sealer encrypts small secrets at rest with NaCl secretbox (XSalsa20-Poly1305).
type Sealer struct {
	key [32]byte
}

// NewSealer returns a Sealer using key.
func NewSealer(key *[32]byte) *Sealer {
	return &Sealer{key: *key}
}

// Seal returns nonce || box for plaintext. Every call uses a fresh random nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrUnseal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	out, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrUnseal
	}
	return out, nil
}
