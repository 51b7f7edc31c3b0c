package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
)

func newTestFileStore(t *testing.T, dir string) *FileStore {
	t.Helper()
	s, err := NewFileStore(dir, plainCodec(t), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFileStore_LoadAbsent(t *testing.T) {
	s := newTestFileStore(t, filepath.Join(t.TempDir(), "session"))

	_, err := s.Load(context.Background())
	if !errors.Is(err, domain.ErrCredentialsAbsent) {
		t.Errorf("Load() error = %v, want ErrCredentialsAbsent", err)
	}
}

func TestFileStore_SaveThenReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	want := pairedCredentials()

	if err := newTestFileStore(t, dir).Save(ctx, want); err != nil {
		t.Fatal(err)
	}

	// A fresh store over the same directory stands in for a restarted process.
	got, err := newTestFileStore(t, dir).Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Errorf("reloaded credentials differ:\n got %+v\nwant %+v", got, want)
	}
}

func TestFileStore_FilePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	s := newTestFileStore(t, dir)
	if err := s.Save(context.Background(), pairedCredentials()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != fileMode {
		t.Errorf("file mode = %o, want %o", perm, fileMode)
	}
	info, err = os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != dirMode {
		t.Errorf("dir mode = %o, want %o", perm, dirMode)
	}
}

func TestFileStore_InterruptedSaveKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := newTestFileStore(t, dir)

	saved := pairedCredentials()
	if err := s.Save(ctx, saved); err != nil {
		t.Fatal(err)
	}

	// A crash after the temp file was written but before the rename leaves
	// a partial temp file next to the committed one.
	next := saved.Clone()
	next.Apply(domain.CredentialPatch{Keys: map[string]map[string][]byte{
		domain.KeyCategoryPreKey: {"3": []byte("pk-3")},
	}})
	data, err := s.codec.Encode(next)
	if err != nil {
		t.Fatal(err)
	}
	partial := filepath.Join(dir, tempPrefix+"crash.tmp")
	if err := os.WriteFile(partial, data[:len(data)/3], fileMode); err != nil {
		t.Fatal(err)
	}

	got, err := newTestFileStore(t, dir).Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(saved) {
		t.Errorf("loaded %+v, want last committed %+v", got, saved)
	}
	if _, err := os.Stat(partial); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("partial write not cleaned up: %v", err)
	}
}

func TestFileStore_SuccessiveSaves(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t, t.TempDir())
	creds := pairedCredentials()

	for i := 0; i < 5; i++ {
		creds.Apply(domain.CredentialPatch{Keys: map[string]map[string][]byte{
			domain.KeyCategorySession: {"peer": []byte{byte(i)}},
		}})
		if err := s.Save(ctx, creds.Clone()); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Revision != creds.Revision {
		t.Errorf("revision = %d, want %d", got.Revision, creds.Revision)
	}
	if !got.Equal(creds) {
		t.Error("last save not visible")
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only %s", len(entries), credsFileName)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t, t.TempDir())
	if err := s.Save(ctx, pairedCredentials()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), data[:len(data)-10], fileMode); err != nil {
		t.Fatal(err)
	}

	_, err = s.Load(ctx)
	if !errors.Is(err, domain.ErrCredentialsCorrupt) {
		t.Errorf("Load() error = %v, want ErrCredentialsCorrupt", err)
	}
}

func TestFileStore_Encrypted(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	codec := sealedCodec(t, "correct horse battery")

	s, err := NewFileStore(dir, codec, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	want := pairedCredentials()
	if err := s.Save(ctx, want); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileStore(dir, sealedCodec(t, "correct horse battery"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Error("encrypted round trip differs")
	}
}

func TestFileStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t, t.TempDir())

	if err := s.Clear(ctx); err != nil {
		t.Errorf("Clear() on empty store = %v", err)
	}
	if err := s.Save(ctx, pairedCredentials()); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, domain.ErrCredentialsAbsent) {
		t.Errorf("Load() after Clear = %v, want ErrCredentialsAbsent", err)
	}
}

func TestFileStore_CancelledContext(t *testing.T) {
	s := newTestFileStore(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Save(ctx, pairedCredentials()); !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(s.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Error("cancelled save wrote a file")
	}
}
