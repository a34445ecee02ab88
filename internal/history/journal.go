// Package history keeps a journal of document writes so a scene can be
// rolled back after a bad edit.
//
// Each write becomes a revision holding zstd-compressed snapshots of the
// file before and after the write, stored in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"

	"github.com/mcp-8thwall/mcp-8thwall/internal/docstore"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level var so tests can pin timestamps.
var timeNow = time.Now

// ErrNotFound is returned by Get for unknown revision ids.
var ErrNotFound = errors.New("revision not found")

// Config configures a Journal.
type Config struct {
	DataDir string
	// MaxPerPath bounds how many revisions are kept for one file.
	MaxPerPath int
}

// DefaultConfig stores the journal under ~/.mcp-8thwall.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:    filepath.Join(home, ".mcp-8thwall"),
		MaxPerPath: 50,
	}
}

// Revision is one recorded write.
type Revision struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	Reason     string `json:"reason"`
	BeforeHash string `json:"beforeHash,omitempty"`
	AfterHash  string `json:"afterHash"`
	CreatedAt  string `json:"createdAt"`

	Before []byte `json:"-"`
	After  []byte `json:"-"`
}

// Journal is a SQLite-backed docstore.Recorder.
type Journal struct {
	db  *sql.DB
	cfg Config
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ docstore.Recorder = (*Journal)(nil)

// New opens (creating if needed) the journal database in cfg.DataDir.
func New(cfg Config) (*Journal, error) {
	if cfg.MaxPerPath <= 0 {
		cfg.MaxPerPath = DefaultConfig().MaxPerPath
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("history: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("history: zstd decoder: %w", err)
	}

	j := &Journal{db: db, cfg: cfg, enc: enc, dec: dec}
	if err := j.migrate(); err != nil {
		j.Close()
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return j, nil
}

// Close releases the database and codecs.
func (j *Journal) Close() error {
	j.dec.Close()
	if err := j.enc.Close(); err != nil {
		j.db.Close()
		return err
	}
	return j.db.Close()
}

func (j *Journal) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS revisions (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			path        TEXT NOT NULL,
			reason      TEXT NOT NULL,
			before_hash TEXT,
			after_hash  TEXT NOT NULL,
			before_blob BLOB,
			after_blob  BLOB NOT NULL,
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_revisions_path ON revisions(path, seq);
	`
	_, err := j.db.Exec(schema)
	return err
}

func hash(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Record stores a change. It implements docstore.Recorder.
func (j *Journal) Record(ctx context.Context, c docstore.Change) error {
	var beforeHash sql.NullString
	var beforeBlob []byte
	if c.Before != nil {
		beforeHash = sql.NullString{String: hash(c.Before), Valid: true}
		beforeBlob = j.enc.EncodeAll(c.Before, nil)
	}
	afterBlob := j.enc.EncodeAll(c.After, nil)

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO revisions (id, path, reason, before_hash, after_hash, before_blob, after_blob, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), c.Path, c.Reason, beforeHash, hash(c.After), beforeBlob, afterBlob,
		timeNow().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM revisions WHERE path = ? AND seq NOT IN (
			SELECT seq FROM revisions WHERE path = ? ORDER BY seq DESC LIMIT ?
		)`, c.Path, c.Path, j.cfg.MaxPerPath)
	if err != nil {
		return fmt.Errorf("history: prune: %w", err)
	}
	return tx.Commit()
}

// List returns up to limit revisions of path, newest first. Snapshots are
// not loaded.
func (j *Journal) List(ctx context.Context, path string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, path, reason, COALESCE(before_hash, ''), after_hash, created_at
		 FROM revisions WHERE path = ? ORDER BY seq DESC LIMIT ?`, path, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	out := []Revision{}
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.Path, &r.Reason, &r.BeforeHash, &r.AfterHash, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get loads one revision with its snapshots.
func (j *Journal) Get(ctx context.Context, id string) (*Revision, error) {
	var r Revision
	var beforeBlob, afterBlob []byte
	err := j.db.QueryRowContext(ctx,
		`SELECT id, path, reason, COALESCE(before_hash, ''), after_hash, created_at, before_blob, after_blob
		 FROM revisions WHERE id = ?`, id).
		Scan(&r.ID, &r.Path, &r.Reason, &r.BeforeHash, &r.AfterHash, &r.CreatedAt, &beforeBlob, &afterBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("history: get: %w", err)
	}
	if beforeBlob != nil {
		if r.Before, err = j.dec.DecodeAll(beforeBlob, nil); err != nil {
			return nil, fmt.Errorf("history: decompress before: %w", err)
		}
	}
	if r.After, err = j.dec.DecodeAll(afterBlob, nil); err != nil {
		return nil, fmt.Errorf("history: decompress after: %w", err)
	}
	return &r, nil
}
