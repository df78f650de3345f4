package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// defaultListLimit caps List when the caller does not set a limit.
const defaultListLimit = 50

// ErrSchemaMismatch indicates the database was created by an incompatible version.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

// Record is one successfully rendered clip.
type Record struct {
	ID               int64         `json:"id"`
	ItemID           string        `json:"item_id"`
	Start            time.Duration `json:"-"`
	End              time.Duration `json:"-"`
	StartMs          int64         `json:"start_ms"`
	EndMs            int64         `json:"end_ms"`
	Path             string        `json:"path"`
	WebPath          string        `json:"web_path"`
	SubtitleKind     string        `json:"subtitle_kind"`
	SubtitleLanguage string        `json:"subtitle_language,omitempty"`
	RequestID        string        `json:"request_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// ListOptions filters List.
type ListOptions struct {
	ItemID string
	Limit  int
}

// Store manages clip history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset history)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Add inserts rec and returns it with ID and CreatedAt assigned.
func (s *Store) Add(ctx context.Context, rec Record) (Record, error) {
	if strings.TrimSpace(rec.ItemID) == "" {
		return Record{}, errors.New("history record requires an item id")
	}
	if strings.TrimSpace(rec.Path) == "" {
		return Record{}, errors.New("history record requires a path")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.SubtitleKind == "" {
		rec.SubtitleKind = "none"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO clips (
            item_id, start_ms, end_ms, path, web_path,
            subtitle_kind, subtitle_language, request_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ItemID,
		rec.Start.Milliseconds(),
		rec.End.Milliseconds(),
		rec.Path,
		rec.WebPath,
		rec.SubtitleKind,
		nullableString(rec.SubtitleLanguage),
		nullableString(rec.RequestID),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert clip record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	rec.StartMs = rec.Start.Milliseconds()
	rec.EndMs = rec.End.Milliseconds()
	return rec, nil
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, item_id, start_ms, end_ms, path, web_path,
            subtitle_kind, subtitle_language, request_id, created_at
        FROM clips`
	args := []any{}
	if item := strings.TrimSpace(opts.ItemID); item != "" {
		query += " WHERE item_id = ?"
		args = append(args, item)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clip history: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clip history: %w", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM clips").Scan(&n); err != nil {
		return 0, fmt.Errorf("count clip history: %w", err)
	}
	return n, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec       Record
		language  sql.NullString
		requestID sql.NullString
		created   string
	)
	if err := rows.Scan(
		&rec.ID, &rec.ItemID, &rec.StartMs, &rec.EndMs, &rec.Path, &rec.WebPath,
		&rec.SubtitleKind, &language, &requestID, &created,
	); err != nil {
		return Record{}, fmt.Errorf("scan clip record: %w", err)
	}
	rec.Start = time.Duration(rec.StartMs) * time.Millisecond
	rec.End = time.Duration(rec.EndMs) * time.Millisecond
	rec.SubtitleLanguage = language.String
	rec.RequestID = requestID.String
	if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
		rec.CreatedAt = parsed
	}
	return rec, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
