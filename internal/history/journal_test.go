package history

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
)

func newTestJournal(t *testing.T, max int) *Journal {
	t.Helper()
	j, err := New(Config{DataDir: t.TempDir(), MaxPerPath: max})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RecordListGet(t *testing.T) {
	j := newTestJournal(t, 10)
	ctx := context.Background()

	if err := j.Record(ctx, docstore.Change{Path: "/p/.expanse.json", Reason: "heal", After: []byte(`{"v":1}`)}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := j.Record(ctx, docstore.Change{Path: "/p/.expanse.json", Reason: "desktop_add_shape", Before: []byte(`{"v":1}`), After: []byte(`{"v":2}`)}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := j.Record(ctx, docstore.Change{Path: "/other.json", Reason: "write", After: []byte(`{}`)}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	revs, err := j.List(ctx, "/p/.expanse.json", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("got %d revisions, want 2", len(revs))
	}
	if revs[0].Reason != "desktop_add_shape" || revs[1].Reason != "heal" {
		t.Errorf("order = %s, %s; want newest first", revs[0].Reason, revs[1].Reason)
	}
	if revs[1].BeforeHash != "" {
		t.Errorf("first revision should have no before hash, got %q", revs[1].BeforeHash)
	}

	got, err := j.Get(ctx, revs[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Before) != `{"v":1}` || string(got.After) != `{"v":2}` {
		t.Errorf("snapshots = %q -> %q", got.Before, got.After)
	}

	first, err := j.Get(ctx, revs[1].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.Before != nil {
		t.Errorf("expected nil Before for a created file, got %q", first.Before)
	}
}

func TestJournal_Prunes(t *testing.T) {
	j := newTestJournal(t, 3)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		after := []byte{byte('a' + i)}
		if err := j.Record(ctx, docstore.Change{Path: "x", Reason: "write", After: after}); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}
	revs, err := j.List(ctx, "x", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 3 {
		t.Fatalf("kept %d revisions, want 3", len(revs))
	}
	newest, err := j.Get(ctx, revs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(newest.After) != "f" {
		t.Errorf("newest after = %q, want f", newest.After)
	}
}

func TestJournal_GetUnknown(t *testing.T) {
	j := newTestJournal(t, 0)
	_, err := j.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestJournal_Timestamps(t *testing.T) {
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = orig })

	j := newTestJournal(t, 0)
	if err := j.Record(context.Background(), docstore.Change{Path: "x", Reason: "write", After: []byte("{}")}); err != nil {
		t.Fatal(err)
	}
	revs, _ := j.List(context.Background(), "x", 1)
	if len(revs) != 1 || revs[0].CreatedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("revisions = %+v", revs)
	}
}

func TestNew_OpenError(t *testing.T) {
	orig := openDB
	openDB = func(string, string) (*sql.DB, error) { return nil, errors.New("disk on fire") }
	t.Cleanup(func() { openDB = orig })

	if _, err := New(Config{DataDir: t.TempDir()}); err == nil {
		t.Fatal("expected error")
	}
}

// The journal plugs into the document store and can bring back the
// previous bytes of a file.
func TestJournal_WithDocstoreRestore(t *testing.T) {
	j := newTestJournal(t, 0)
	store := docstore.New(docstore.WithRecorder(j))
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")

	first, err := store.Write(ctx, path, doc.ObjectOf("v", 1.0))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Write(ctx, path, doc.ObjectOf("v", 2.0)); err != nil {
		t.Fatal(err)
	}

	revs, err := j.List(ctx, path, 1)
	if err != nil || len(revs) != 1 {
		t.Fatalf("List: %v %v", revs, err)
	}
	rev, err := j.Get(ctx, revs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	data, err := doc.Decode(rev.Before)
	if err != nil {
		t.Fatal(err)
	}
	restored, err := store.Write(ctx, path, data)
	if err != nil {
		t.Fatal(err)
	}
	if string(restored.Raw) != string(first.Raw) {
		t.Errorf("restored %q, want %q", restored.Raw, first.Raw)
	}
}
