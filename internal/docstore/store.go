// Package docstore reads and writes JSON documents on disk.
//
// Reads tolerate comments, trailing commas and one level of string
// double-encoding. Scene documents (see scene.IsScenePath) are repaired on
// every read, and a read that changes the file's bytes rewrites the file.
// Every write goes through a temp file and rename, and is reported to an
// optional Recorder.
package docstore

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/mcp-8thwall/mcp-8thwall/internal/doc"
	"github.com/mcp-8thwall/mcp-8thwall/internal/scene"
)

// ReasonHeal is recorded for writes made by a self-healing read.
const ReasonHeal = "heal"

// Document is a decoded file together with the bytes it was decoded from.
type Document struct {
	Path    string
	Data    any
	Raw     []byte
	Version string
	// Healed is true when this read rewrote the file.
	Healed bool
}

// Change describes one write.
type Change struct {
	Path   string
	Reason string
	Before []byte // nil when the file did not exist
	After  []byte
}

// Recorder receives every successful write.
type Recorder interface {
	Record(ctx context.Context, c Change) error
}

// InvalidJSONError is returned when a file cannot be parsed.
type InvalidJSONError struct {
	Path string
	Err  error
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("invalid JSON in %s: %v", e.Path, e.Err)
}

func (e *InvalidJSONError) Unwrap() error { return e.Err }

// VersionConflictError is returned by Update when the file changed since
// the caller last read it.
type VersionConflictError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s changed on disk: expected version %s, found %s", e.Path, short(e.Expected), short(e.Actual))
}

func short(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}

// Store serializes access to documents within one process.
type Store struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRecorder attaches a write journal.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store.
func New(opts ...Option) *Store {
	s := &Store{
		locks:  make(map[string]*sync.Mutex),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Version returns the version string of raw file bytes.
func Version(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (s *Store) lock(path string) func() {
	s.mu.Lock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Read loads the document at path.
func (s *Store) Read(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := s.lock(path)
	defer unlock()
	return s.read(ctx, path)
}

func (s *Store) read(ctx context.Context, path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	data, err := doc.DecodeLoose(raw)
	if err != nil {
		return nil, &InvalidJSONError{Path: path, Err: err}
	}
	d := &Document{Path: path, Data: data, Raw: raw}

	if scene.IsScenePath(path) {
		d.Data = scene.Repair(d.Data)
		healed, err := doc.EncodeIndent(d.Data)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", path, err)
		}
		if !bytes.Equal(healed, raw) {
			if err := s.commit(WithReason(ctx, ReasonHeal), path, raw, healed); err != nil {
				return nil, err
			}
			s.logger.Debug("healed document on read", "path", path)
			d.Raw = healed
			d.Healed = true
		}
	}
	d.Version = Version(d.Raw)
	return d, nil
}

// Write replaces the document at path with data. data is cloned first and
// repaired when scene shaped; the caller's value is never modified.
func (s *Store) Write(ctx context.Context, path string, data any) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := s.lock(path)
	defer unlock()

	before, err := readExisting(path)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, path, before, data)
}

func (s *Store) write(ctx context.Context, path string, before []byte, data any) (*Document, error) {
	data = doc.Clone(data)
	if scene.IsSceneShaped(data) {
		data = scene.Repair(data)
	}
	out, err := doc.EncodeIndent(data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := s.commit(ctx, path, before, out); err != nil {
		return nil, err
	}
	return &Document{Path: path, Data: data, Raw: out, Version: Version(out)}, nil
}

// Update runs a read-modify-write cycle under the path's lock. When
// expectedVersion is non-empty and the file's current version differs, no
// write happens and a *VersionConflictError is returned. An error from fn
// aborts the update.
func (s *Store) Update(ctx context.Context, path, expectedVersion string, fn func(data any) (any, error)) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := s.lock(path)
	defer unlock()

	cur, err := s.read(ctx, path)
	if err != nil {
		return nil, err
	}
	if expectedVersion != "" && expectedVersion != cur.Version {
		return nil, &VersionConflictError{Path: path, Expected: expectedVersion, Actual: cur.Version}
	}
	next, err := fn(cur.Data)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, path, cur.Raw, next)
}

func readExisting(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return raw, nil
}

func (s *Store) commit(ctx context.Context, path string, before, after []byte) error {
	if err := writeAtomic(path, after); err != nil {
		return err
	}
	if s.recorder == nil {
		return nil
	}
	c := Change{Path: path, Reason: ReasonFrom(ctx), Before: before, After: after}
	if err := s.recorder.Record(ctx, c); err != nil {
		s.logger.Warn("recording document change", "path", path, "err", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

type reasonKey struct{}

// WithReason tags writes made with ctx, typically with the tool name.
func WithReason(ctx context.Context, reason string) context.Context {
	return context.WithValue(ctx, reasonKey{}, reason)
}

// ReasonFrom returns the reason set by WithReason, or "write".
func ReasonFrom(ctx context.Context) string {
	if r, ok := ctx.Value(reasonKey{}).(string); ok && r != "" {
		return r
	}
	return "write"
}
