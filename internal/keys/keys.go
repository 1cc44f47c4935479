// Package keys derives per-owner vault keys and seals them to a caller's
// transport key. LocalDeriver is a single-process stand-in for a
// threshold key-derivation service: the server never stores the derived
// key in clear, only the sealed blob.
package keys

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/box"
)

const (
	// MaxInputLen bounds the derivation input.
	MaxInputLen = 1024
	// TransportKeyLen is the size of an X25519 public key.
	TransportKeyLen = 32
	// KeyLen is the size of a derived key before sealing.
	KeyLen = 32
	// Domain separates derivations of this service from any other user of
	// the same master secret.
	Domain = "vaultkeys:v1"
)

var (
	// ErrInvalidTransportKey is returned when the transport key is not a
	// 32-byte X25519 public key.
	ErrInvalidTransportKey = errors.New("keys: invalid transport public key")
	// ErrInputTooLarge is returned when the derivation input exceeds MaxInputLen.
	ErrInputTooLarge = errors.New("keys: derivation input too large")
	// ErrInvalidScope is returned for unknown scope kinds or missing scope ids.
	ErrInvalidScope = errors.New("keys: invalid scope")
)

// Validate checks a derivation request before any work is done.
func Validate(input, transportKey []byte) error {
	if len(input) > MaxInputLen {
		return fmt.Errorf("%w: %d bytes", ErrInputTooLarge, len(input))
	}
	if len(transportKey) != TransportKeyLen {
		return fmt.Errorf("%w: %d bytes", ErrInvalidTransportKey, len(transportKey))
	}
	return nil
}

// LocalDeriver derives keys with HKDF-SHA256 from a master secret and
// seals each one with an anonymous NaCl box.
type LocalDeriver struct {
	secret []byte
	rand   io.Reader
}

// NewLocalDeriver creates a LocalDeriver. An empty secret is replaced by
// a random one, so keys do not survive a restart.
func NewLocalDeriver(secret []byte) (*LocalDeriver, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, secret); err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
	}
	return &LocalDeriver{secret: secret, rand: rand.Reader}, nil
}

// DeriveKey derives the key for derivationContext and input and returns
// it sealed to transportKey.
func (d *LocalDeriver) DeriveKey(ctx context.Context, derivationContext, input, transportKey []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := Validate(input, transportKey); err != nil {
		return nil, err
	}

	key := make([]byte, KeyLen)
	r := hkdf.New(sha256.New, d.secret, derivationContext, input)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}

	var pub [TransportKeyLen]byte
	copy(pub[:], transportKey)
	sealed, err := box.SealAnonymous(nil, key, &pub, d.rand)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return sealed, nil
}
