package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "session.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s, path
}

func TestFileStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s, path := newTestFileStore(t)

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := s.Set(ctx, "a", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "b", "2"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, err := reopened.Get(ctx, "a"); err != nil || v != "1" {
		t.Fatalf("expected 1, got %q (%v)", v, err)
	}

	if err := s.Delete(ctx, "a", "never-set"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := reopened.Get(ctx, "a"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected a to be gone, got %v", err)
	}
	if v, _ := reopened.Get(ctx, "b"); v != "2" {
		t.Fatalf("expected b to survive, got %q", v)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}
}

func TestFileStore_DamagedFile(t *testing.T) {
	ctx := context.Background()
	s, path := newTestFileStore(t)

	if err := os.WriteFile(path, []byte("{garbage"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	v, err := s.Get(ctx, domain.SessionRecordKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "{garbage" {
		t.Fatalf("expected raw content as the session value, got %q", v)
	}

	if err := s.Delete(ctx, domain.SessionRecordKey, domain.DemoStartedAtKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, domain.SessionRecordKey); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected the damaged file to be replaced, got %v", err)
	}
}
