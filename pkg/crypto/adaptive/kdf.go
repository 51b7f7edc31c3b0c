package adaptive

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// SaltSize is the salt length used for key derivation.
	SaltSize = 16

	// KeySize is the length of derived keys.
	KeySize = 32

	// MinPassphraseLength is the shortest accepted passphrase.
	MinPassphraseLength = 8
)

var (
	ErrPassphraseTooShort = errors.New("adaptive: passphrase too short")
	ErrInvalidSalt        = errors.New("adaptive: invalid salt length")
)

// KDFParams are the Argon2id cost parameters.
type KDFParams struct {
	Time      uint32 `json:"t"`
	MemoryKiB uint32 `json:"m"`
	Threads   uint8  `json:"p"`
}

// DefaultKDFParams returns the interactive Argon2id parameters.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 3, MemoryKiB: 64 * 1024, Threads: 4}
}

// NewSalt returns a random salt of SaltSize bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("adaptive: read salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a KeySize key from passphrase with Argon2id.
// The same passphrase, salt and params always yield the same key.
func DeriveKey(passphrase, salt []byte, p KDFParams) ([]byte, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, ErrPassphraseTooShort
	}
	if len(salt) != SaltSize {
		return nil, ErrInvalidSalt
	}
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		p = DefaultKDFParams()
	}
	return argon2.IDKey(passphrase, salt, p.Time, p.MemoryKiB, p.Threads, KeySize), nil
}
