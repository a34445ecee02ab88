package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
	"github.com/mcp-8thwall/mcp-8thwall/internal/jsonptr"
)

type memRecorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *memRecorder) Record(_ context.Context, c Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRead_PlainDocumentIsNotRewritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	writeFile(t, path, "{\"name\": \"x\", // note\n \"objects\": 3}\n")

	rec := &memRecorder{}
	s := New(WithRecorder(rec))
	d, err := s.Read(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, d.Healed)
	assert.Empty(t, rec.changes)

	got, _ := jsonptr.Get(d.Data, "/name")
	assert.Equal(t, "x", got)
}

func TestRead_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".expanse.json")
	writeFile(t, path, "{not json")

	_, err := New().Read(context.Background(), path)
	var invalid *InvalidJSONError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, path, invalid.Path)
	assert.Contains(t, err.Error(), path)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := New().Read(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRead_HealsSceneOnceAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".expanse.json")
	writeFile(t, path, `{"spaces":{"s":{"children":["ghost"]}},"objects":{"a":{"rotation":[0,0,0,0]}}}`)

	rec := &memRecorder{}
	s := New(WithRecorder(rec))

	first, err := s.Read(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, first.Healed)
	require.Len(t, rec.changes, 1)
	assert.Equal(t, ReasonHeal, rec.changes[0].Reason)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first.Raw), string(onDisk))

	second, err := s.Read(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, second.Healed)
	assert.Equal(t, string(first.Raw), string(second.Raw))
	assert.Equal(t, first.Version, second.Version)
	assert.Len(t, rec.changes, 1)

	children, _ := jsonptr.Get(second.Data, "/spaces/s/children")
	assert.Equal(t, []any{"a"}, children)
}

func TestWriteThenRead_UnwrapsDoubleEncodedObjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src", ".expanse.json")
	data := doc.ObjectOf(
		"entrySpaceId", "s",
		"spaces", doc.ObjectOf("s", doc.ObjectOf("id", "s")),
		"objects", doc.ObjectOf("a", `{"name":"X"}`),
	)

	s := New()
	_, err := s.Write(context.Background(), path, data)
	require.NoError(t, err)

	orig, _ := jsonptr.Get(data, "/objects/a")
	assert.Equal(t, `{"name":"X"}`, orig, "caller's value must not be modified")

	d, err := s.Read(context.Background(), path)
	require.NoError(t, err)
	name, ok := jsonptr.Get(d.Data, "/objects/a/name")
	require.True(t, ok)
	assert.Equal(t, "X", name)
}

func TestRead_WholeFileDoubleEncoded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `"{\"a\":1}"`)

	d, err := New().Read(context.Background(), path)
	require.NoError(t, err)
	a, _ := jsonptr.Get(d.Data, "/a")
	assert.Equal(t, 1.0, a)
}

func TestWrite_RecordsBeforeAndAfter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	rec := &memRecorder{}
	s := New(WithRecorder(rec))
	ctx := WithReason(context.Background(), "desktop_write_json")

	_, err := s.Write(ctx, path, doc.ObjectOf("v", 1.0))
	require.NoError(t, err)
	_, err = s.Write(ctx, path, doc.ObjectOf("v", 2.0))
	require.NoError(t, err)

	require.Len(t, rec.changes, 2)
	assert.Nil(t, rec.changes[0].Before)
	assert.Equal(t, "{\n  \"v\": 1\n}", string(rec.changes[1].Before))
	assert.Equal(t, "{\n  \"v\": 2\n}", string(rec.changes[1].After))
	assert.Equal(t, "desktop_write_json", rec.changes[1].Reason)
}

func TestUpdate_StaleVersionLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := New()
	d, err := s.Write(context.Background(), path, doc.ObjectOf("v", 1.0))
	require.NoError(t, err)
	stale := d.Version

	_, err = s.Update(context.Background(), path, stale, func(v any) (any, error) {
		return jsonptr.Set(v, "/v", 2.0)
	})
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	called := false
	_, err = s.Update(context.Background(), path, stale, func(v any) (any, error) {
		called = true
		return v, nil
	})
	var conflict *VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.False(t, called)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestUpdate_FnErrorAborts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := New()
	_, err := s.Write(context.Background(), path, doc.ObjectOf("v", 1.0))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.Update(context.Background(), path, "", func(any) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestUpdate_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")
	s := New()
	_, err := s.Write(context.Background(), path, doc.ObjectOf("n", 0.0))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(context.Background(), path, "", func(v any) (any, error) {
				n, _ := jsonptr.Get(v, "/n")
				return jsonptr.Set(v, "/n", n.(float64)+1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	d, err := s.Read(context.Background(), path)
	require.NoError(t, err)
	n, _ := jsonptr.Get(d.Data, "/n")
	assert.Equal(t, 20.0, n)
}

func TestReasonFrom_Default(t *testing.T) {
	assert.Equal(t, "write", ReasonFrom(context.Background()))
}
