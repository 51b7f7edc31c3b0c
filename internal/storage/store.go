package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Niro-Programe/Fergando-MD/internal/core/service"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Store is a CredentialStore that holds resources until closed.
type Store interface {
	service.CredentialStore
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Backend is BackendFile (default) or BackendBadger.
	Backend string

	// Path is the session directory.
	Path string

	// Passphrase enables at-rest encryption when non-empty.
	Passphrase string

	Badger BadgerConfig
}

// Open returns the configured store. reg may be nil; when set and the
// Badger backend is chosen, its size and GC metrics are registered.
func Open(cfg Config, logger *slog.Logger, reg prometheus.Registerer) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	codec, err := NewCodec(cfg.Passphrase)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "", BackendFile:
		return NewFileStore(cfg.Path, codec, logger)

	case BackendBadger:
		engine, err := NewBadgerEngine(filepath.Join(cfg.Path, "badger"), cfg.Badger, logger)
		if err != nil {
			return nil, err
		}
		if reg != nil {
			if err := engine.RegisterMetrics(reg); err != nil {
				_ = engine.Close()
				return nil, err
			}
		}
		return NewBadgerStore(engine, codec, logger)

	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
