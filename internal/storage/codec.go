package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/pkg/crypto/adaptive"
)

const (
	envelopeFormat  = "fergando-md/credentials"
	envelopeVersion = 1
)

// additionalData binds sealed payloads to this envelope format.
var additionalData = []byte("fergando-md/credentials/v1")

// envelope is the persisted form of a credential set.
type envelope struct {
	Format   string `json:"format"`
	Version  int    `json:"version"`
	SavedAt  int64  `json:"saved_at"`
	Revision uint64 `json:"revision"`

	// Checksum is the hex SHA-256 of the compact Credentials JSON or of
	// Sealed, whichever is set.
	Checksum string `json:"checksum"`

	Credentials json.RawMessage `json:"credentials,omitempty"`

	Cipher adaptive.CipherType `json:"cipher,omitempty"`
	KDF    *adaptive.KDFParams `json:"kdf,omitempty"`
	Salt   []byte              `json:"salt,omitempty"`
	Sealed []byte              `json:"sealed,omitempty"`
}

// Codec turns credentials into bytes and back. With a passphrase the
// credentials are sealed; without one they are stored as plain JSON.
type Codec struct {
	passphrase []byte
	params     adaptive.KDFParams
	cipherType adaptive.CipherType
	now        func() time.Time

	mu      sync.Mutex
	salt    []byte
	ciphers map[string]adaptive.Cipher
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithKDFParams overrides the Argon2id cost parameters.
func WithKDFParams(p adaptive.KDFParams) CodecOption {
	return func(c *Codec) { c.params = p }
}

// WithCipherType pins the cipher instead of choosing one for the CPU.
func WithCipherType(t adaptive.CipherType) CodecOption {
	return func(c *Codec) { c.cipherType = t }
}

// NewCodec creates a codec. An empty passphrase disables encryption.
func NewCodec(passphrase string, opts ...CodecOption) (*Codec, error) {
	c := &Codec{
		params:  adaptive.DefaultKDFParams(),
		now:     time.Now,
		ciphers: make(map[string]adaptive.Cipher),
	}
	if passphrase != "" {
		if len(passphrase) < adaptive.MinPassphraseLength {
			return nil, fmt.Errorf("storage: %w", adaptive.ErrPassphraseTooShort)
		}
		c.passphrase = []byte(passphrase)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encrypted reports whether the codec seals credentials.
func (c *Codec) Encrypted() bool {
	return len(c.passphrase) > 0
}

// Encode serialises creds into an envelope.
func (c *Codec) Encode(creds *domain.Credentials) ([]byte, error) {
	if creds == nil {
		return nil, errors.New("storage: nil credentials")
	}
	plain, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("storage: marshal credentials: %w", err)
	}

	env := envelope{
		Format:   envelopeFormat,
		Version:  envelopeVersion,
		SavedAt:  c.now().UnixMilli(),
		Revision: creds.Revision,
	}

	if !c.Encrypted() {
		env.Credentials = plain
		env.Checksum = checksum(plain)
		return json.MarshalIndent(env, "", "  ")
	}

	salt, ciph, err := c.sealingCipher()
	if err != nil {
		return nil, err
	}
	sealed, err := ciph.Encrypt(plain, additionalData)
	if err != nil {
		return nil, fmt.Errorf("storage: seal credentials: %w", err)
	}
	params := c.params
	env.Cipher = ciph.Type()
	env.KDF = &params
	env.Salt = salt
	env.Sealed = sealed
	env.Checksum = checksum(sealed)
	return json.MarshalIndent(env, "", "  ")
}

// Decode parses an envelope. Any inconsistency is reported as
// domain.ErrCredentialsCorrupt.
func (c *Codec) Decode(data []byte) (*domain.Credentials, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, corrupt("decode envelope", err)
	}
	if env.Format != envelopeFormat {
		return nil, corrupt(fmt.Sprintf("unexpected format %q", env.Format), nil)
	}
	if env.Version != envelopeVersion {
		return nil, corrupt(fmt.Sprintf("unsupported version %d", env.Version), nil)
	}

	plain := []byte(env.Credentials)
	if len(env.Sealed) > 0 {
		if checksum(env.Sealed) != env.Checksum {
			return nil, corrupt("checksum mismatch", nil)
		}
		if !c.Encrypted() {
			return nil, corrupt("credentials are encrypted and no passphrase is configured", nil)
		}
		ciph, err := c.openingCipher(env)
		if err != nil {
			return nil, err
		}
		plain, err = ciph.Decrypt(env.Sealed, additionalData)
		if err != nil {
			return nil, corrupt("open sealed credentials (wrong passphrase?)", err)
		}
	} else {
		// The envelope is indented on disk, so the checksum covers the
		// compact form produced by Encode.
		var compact bytes.Buffer
		if err := json.Compact(&compact, plain); err != nil {
			return nil, corrupt("decode credentials", err)
		}
		plain = compact.Bytes()
		if checksum(plain) != env.Checksum {
			return nil, corrupt("checksum mismatch", nil)
		}
	}

	creds := &domain.Credentials{}
	if err := json.Unmarshal(plain, creds); err != nil {
		return nil, corrupt("decode credentials", err)
	}
	if creds.Keys == nil {
		creds.Keys = make(map[string]map[string][]byte)
	}
	return creds, nil
}

// sealingCipher returns the cipher used for new saves. The salt is chosen
// once per codec so Argon2id runs once, not on every save.
func (c *Codec) sealingCipher() ([]byte, adaptive.Cipher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.salt == nil {
		salt, err := adaptive.NewSalt()
		if err != nil {
			return nil, nil, err
		}
		c.salt = salt
	}
	ciph, err := c.cipherLocked(c.salt, c.params, c.cipherType)
	if err != nil {
		return nil, nil, err
	}
	return c.salt, ciph, nil
}

func (c *Codec) openingCipher(env envelope) (adaptive.Cipher, error) {
	if len(env.Salt) != adaptive.SaltSize || env.KDF == nil || env.Cipher == "" {
		return nil, corrupt("missing key derivation parameters", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ciph, err := c.cipherLocked(env.Salt, *env.KDF, env.Cipher)
	if err != nil {
		return nil, corrupt("derive key", err)
	}
	return ciph, nil
}

func (c *Codec) cipherLocked(salt []byte, params adaptive.KDFParams, typ adaptive.CipherType) (adaptive.Cipher, error) {
	id := fmt.Sprintf("%x/%d/%d/%d/%s", salt, params.Time, params.MemoryKiB, params.Threads, typ)
	if ciph, ok := c.ciphers[id]; ok {
		return ciph, nil
	}
	key, err := adaptive.DeriveKey(c.passphrase, salt, params)
	if err != nil {
		return nil, err
	}
	var ciph adaptive.Cipher
	if typ == "" {
		ciph, err = adaptive.New(key)
	} else {
		ciph, err = adaptive.NewWithType(key, typ)
	}
	if err != nil {
		return nil, err
	}
	c.ciphers[id] = ciph
	return ciph, nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func corrupt(details string, cause error) error {
	err := domain.ErrCredentialsCorrupt.WithDetails(details)
	if cause != nil {
		return err.WithCause(cause)
	}
	return err
}
