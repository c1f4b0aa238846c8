// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records every file conversion in a SQLite database so
// later runs can skip unchanged sources and report what was generated.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/org2anki/pkg/types"
)

const (
	// Dir is the ledger's directory under the export root.
	Dir    = ".org2anki"
	dbFile = "ledger.db"

	defaultLimit = 50
)

// DefaultPath returns the ledger location for an export root.
func DefaultPath(exportRoot string) string {
	return filepath.Join(exportRoot, Dir, dbFile)
}

// Ledger manages the conversion history database.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open opens or creates the ledger database at path and creates the schema
// if it does not exist.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	l := &Ledger{db: db, path: path}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			source_path TEXT PRIMARY KEY,
			export_dir TEXT NOT NULL,
			mod_time TEXT NOT NULL,
			status TEXT NOT NULL,
			cards INTEGER NOT NULL DEFAULT 0,
			clozes INTEGER NOT NULL DEFAULT 0,
			images INTEGER NOT NULL DEFAULT 0,
			media_bytes INTEGER NOT NULL DEFAULT 0,
			warnings TEXT,
			error TEXT,
			converted_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_status ON conversions(status)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Unchanged reports whether source was last converted successfully (or
// found empty) with the same modification time.
func (l *Ledger) Unchanged(ctx context.Context, source string, modTime time.Time) (bool, error) {
	var stored, status string
	err := l.db.QueryRowContext(ctx,
		`SELECT mod_time, status FROM conversions WHERE source_path = ?`, source,
	).Scan(&stored, &status)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up %s: %w", source, err)
	}
	if status == string(types.ConversionFailed) {
		return false, nil
	}
	return stored == formatTime(modTime), nil
}

// Record upserts the outcome of converting one file. Skipped results are
// not recorded; the earlier entry stays authoritative.
func (l *Ledger) Record(ctx context.Context, r types.FileResult) error {
	return l.RecordAll(ctx, []types.FileResult{r})
}

// RecordAll upserts a batch of results in one transaction.
func (l *Ledger) RecordAll(ctx context.Context, results []types.FileResult) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO conversions (source_path, export_dir, mod_time, status, cards, clozes,
			images, media_bytes, warnings, error, converted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_path) DO UPDATE SET
			export_dir=excluded.export_dir, mod_time=excluded.mod_time, status=excluded.status,
			cards=excluded.cards, clozes=excluded.clozes, images=excluded.images,
			media_bytes=excluded.media_bytes, warnings=excluded.warnings,
			error=excluded.error, converted_at=excluded.converted_at`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, r := range results {
		if r.Status == types.ConversionSkipped {
			continue
		}
		warningsJSON, _ := json.Marshal(r.Warnings)
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		_, err := stmt.ExecContext(ctx,
			r.Source, r.ExportDir, formatTime(r.ModTime), string(r.Status),
			r.Cards, r.Clozes, r.Images, r.MediaBytes,
			string(warningsJSON), errText, now,
		)
		if err != nil {
			return fmt.Errorf("recording %s: %w", r.Source, err)
		}
	}
	return tx.Commit()
}

// ListOptions filters ledger entries.
type ListOptions struct {
	// Status keeps only entries with this status.
	Status types.ConversionStatus

	// Prefix keeps only sources under this path.
	Prefix string

	// Limit caps the number of entries. Zero uses the default (50);
	// a negative value returns everything.
	Limit int
}

// Entry is one recorded conversion.
type Entry struct {
	Source      string                 `json:"source" yaml:"source"`
	ExportDir   string                 `json:"export_dir" yaml:"export_dir"`
	Status      types.ConversionStatus `json:"status" yaml:"status"`
	ModTime     time.Time              `json:"mod_time" yaml:"mod_time"`
	Cards       int                    `json:"cards" yaml:"cards"`
	Clozes      int                    `json:"clozes" yaml:"clozes"`
	Images      int                    `json:"images" yaml:"images"`
	MediaBytes  int64                  `json:"media_bytes" yaml:"media_bytes"`
	Warnings    []string               `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error       string                 `json:"error,omitempty" yaml:"error,omitempty"`
	ConvertedAt time.Time              `json:"converted_at" yaml:"converted_at"`
}

// List returns entries ordered by most recent conversion first.
func (l *Ledger) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT source_path, export_dir, mod_time, status, cards, clozes,
		images, media_bytes, warnings, error, converted_at
		FROM conversions WHERE 1=1`)
	if opts.Status != "" {
		qb.WriteString(` AND status = ?`)
		args = append(args, string(opts.Status))
	}
	if opts.Prefix != "" {
		qb.WriteString(` AND instr(source_path, ?) = 1`)
		args = append(args, opts.Prefix)
	}
	qb.WriteString(` ORDER BY converted_at DESC, source_path`)

	limit := opts.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                     Entry
			status, modTime, at   string
			warningsJSON, errText sql.NullString
		)
		if err := rows.Scan(&e.Source, &e.ExportDir, &modTime, &status,
			&e.Cards, &e.Clozes, &e.Images, &e.MediaBytes,
			&warningsJSON, &errText, &at); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		e.Status = types.ConversionStatus(status)
		e.ModTime, _ = time.Parse(time.RFC3339Nano, modTime)
		e.ConvertedAt, _ = time.Parse(time.RFC3339Nano, at)
		e.Error = errText.String
		if warningsJSON.Valid && warningsJSON.String != "" {
			_ = json.Unmarshal([]byte(warningsJSON.String), &e.Warnings)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
