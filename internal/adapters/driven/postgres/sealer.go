package postgres

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// sealVersion prefixes every sealed value so the format can evolve.
	sealVersion = 0x01

	nonceSize = 12

	// keySize is the AES-256 key length
	keySize = 32
)

var (
	// ErrInvalidKeySize is returned when the sealing key is not 32 bytes.
	ErrInvalidKeySize = errors.New("sealing key must be 32 bytes")

	// ErrSealedTooShort is returned when a sealed value cannot hold version, nonce and tag.
	ErrSealedTooShort = errors.New("sealed value is too short")

	// ErrUnsupportedVersion is returned when the version byte is unknown.
	ErrUnsupportedVersion = errors.New("unsupported sealed value version")

	// ErrOpenFailed is returned on a wrong key or corrupted data.
	ErrOpenFailed = errors.New("failed to open sealed value")
)

// Sealer encrypts values at rest with AES-256-GCM.
// Sealed format: version(1) || nonce(12) || ciphertext+tag.
// A nil *Sealer stores values as-is.
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer creates a sealer from a 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &Sealer{gcm: gcm}, nil
}

// NewSealerFromHex builds a sealer from a 64 character hex key.
// An empty key returns a nil sealer, which disables sealing.
func NewSealerFromHex(key string) (*Sealer, error) {
	if key == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("decode sealing key: %w", err)
	}
	return NewSealer(raw)
}

// Seal encrypts plaintext with a fresh nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	if s == nil {
		return plaintext, nil
	}

	out := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+s.gcm.Overhead())
	out[0] = sealVersion
	if _, err := rand.Read(out[1:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return s.gcm.Seal(out, out[1:1+nonceSize], plaintext, nil), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if s == nil {
		return sealed, nil
	}

	if len(sealed) < 1+nonceSize+s.gcm.Overhead() {
		return nil, ErrSealedTooShort
	}
	if sealed[0] != sealVersion {
		return nil, fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, sealed[0])
	}

	plaintext, err := s.gcm.Open(nil, sealed[1:1+nonceSize], sealed[1+nonceSize:], nil)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}
