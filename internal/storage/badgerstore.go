package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
)

// credsKey is the KV key holding the credential envelope.
var credsKey = []byte("creds/v1")

// BadgerStore keeps credentials as one value in a KVEngine. A single
// transaction per save gives the same all-or-nothing guarantee as
// FileStore's rename.
type BadgerStore struct {
	kv     KVEngine
	codec  *Codec
	logger *slog.Logger
}

// NewBadgerStore wraps kv. The store owns kv and closes it on Close.
func NewBadgerStore(kv KVEngine, codec *Codec, logger *slog.Logger) (*BadgerStore, error) {
	if kv == nil {
		return nil, errors.New("storage: kv engine is required")
	}
	if codec == nil {
		return nil, errors.New("storage: codec is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerStore{kv: kv, codec: codec, logger: logger.With("component", "badgerstore")}, nil
}

func (s *BadgerStore) Load(ctx context.Context) (*domain.Credentials, error) {
	data, err := s.kv.Get(ctx, credsKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, domain.ErrCredentialsAbsent
		}
		return nil, fmt.Errorf("storage: read credentials: %w", err)
	}
	creds, err := s.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("credentials loaded", "revision", creds.Revision, "keys", creds.KeyCount())
	return creds, nil
}

func (s *BadgerStore) Save(ctx context.Context, creds *domain.Credentials) error {
	data, err := s.codec.Encode(creds)
	if err != nil {
		return domain.ErrCredentialsPersist.WithCause(err)
	}
	if err := s.kv.Set(ctx, credsKey, data); err != nil {
		return domain.ErrCredentialsPersist.WithCause(err)
	}
	s.logger.Debug("credentials saved", "revision", creds.Revision, "bytes", len(data))
	return nil
}

func (s *BadgerStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, credsKey); err != nil {
		return fmt.Errorf("storage: delete credentials: %w", err)
	}
	s.logger.Info("credentials cleared")
	return nil
}

// Close closes the underlying engine.
func (s *BadgerStore) Close() error {
	return s.kv.Close()
}
