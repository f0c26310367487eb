package favorites

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/storage"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestToggleTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, storage.NewMemoryStore())

	for _, pre := range []bool{false, true} {
		if pre {
			s.Toggle(ctx, "x")
		}
		before := s.IsFavorite("x")
		s.Toggle(ctx, "x")
		s.Toggle(ctx, "x")
		if s.IsFavorite("x") != before {
			t.Fatalf("double toggle changed membership (pre=%v)", pre)
		}
	}
}

func TestTogglePersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()

	s := New(ctx, backend)
	s.Toggle(ctx, "e1")
	s.Toggle(ctx, "e2")
	s.Toggle(ctx, "e1")

	reloaded := New(ctx, backend)
	if reloaded.IsFavorite("e1") {
		t.Fatalf("e1 should not be favorite after two toggles")
	}
	if !reloaded.IsFavorite("e2") {
		t.Fatalf("e2 should survive reload")
	}

	raw, _, _ := backend.Get(ctx, StorageKey)
	if string(raw) != `["e2"]` {
		t.Fatalf("unexpected persisted shape %s", raw)
	}
}

func TestCorruptStorageStartsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	_ = backend.Set(ctx, StorageKey, []byte("{{"))

	s := New(ctx, backend)
	if s.Count() != 0 {
		t.Fatalf("expected empty set, got %v", s.IDs())
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("storage unavailable")
}
func (failingStore) Set(context.Context, string, []byte) error { return errors.New("quota exceeded") }
func (failingStore) Delete(context.Context, string) error      { return nil }

func TestWriteFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, failingStore{})
	s.Toggle(ctx, "e1")
	if !s.IsFavorite("e1") {
		t.Fatalf("in-memory state must survive a failed write")
	}
}
