package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
)

const (
	credsFileName = "creds.json"
	tempPrefix    = ".creds-"
	dirMode       = 0o700
	fileMode      = 0o600
)

// FileStore keeps credentials in a single file inside a directory.
//
// Save writes a temp file, fsyncs it, renames it over creds.json and fsyncs
// the directory, so a crash leaves either the previous or the new file.
type FileStore struct {
	dir    string
	codec  *Codec
	logger *slog.Logger

	mu sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, codec *Codec, logger *slog.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("storage: directory is required")
	}
	if codec == nil {
		return nil, errors.New("storage: codec is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &FileStore{
		dir:    dir,
		codec:  codec,
		logger: logger.With("component", "filestore"),
	}, nil
}

// Path returns the credentials file path.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, credsFileName)
}

// Load reads the credentials file. Leftover temp files from an interrupted
// save are removed first.
func (s *FileStore) Load(ctx context.Context) (*domain.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeTemps()

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
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

// Save atomically replaces the credentials file.
func (s *FileStore) Save(ctx context.Context, creds *domain.Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := s.codec.Encode(creds)
	if err != nil {
		return domain.ErrCredentialsPersist.WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.dir, s.Path(), data); err != nil {
		return domain.ErrCredentialsPersist.WithCause(err)
	}
	s.logger.Debug("credentials saved", "revision", creds.Revision, "bytes", len(data))
	return nil
}

// Clear deletes the credentials file. Clearing an empty store is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeTemps()
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove credentials: %w", err)
	}
	if err := syncDir(s.dir); err != nil {
		return fmt.Errorf("storage: sync dir: %w", err)
	}
	s.logger.Info("credentials cleared", "path", s.Path())
	return nil
}

// Close is a no-op; FileStore holds no open handles.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) removeTemps() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err == nil {
			s.logger.Warn("removed incomplete credentials write", "path", path)
		}
	}
}

func writeFileAtomic(dir, path string, data []byte) (err error) {
	f, err := os.CreateTemp(dir, tempPrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if err = f.Chmod(fileMode); err != nil {
		f.Close()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if _, err = f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}
