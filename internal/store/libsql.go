package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/hookline/hookline/pkg/schema"
)

// timeLayout is a fixed-width UTC encoding of created_at. Fixed width keeps
// lexicographic order equal to chronological order, so the created_at index
// serves range queries directly.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// LibSQLStore implements EventStore using libSQL (embedded SQLite fork).
// Writers serialize only at the commit point via BEGIN IMMEDIATE; in WAL
// mode readers never block on writers.
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path.
// Accepts either a plain filesystem path or a file URI.
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	if !strings.Contains(dbPath, "://") && !strings.HasPrefix(dbPath, "file:") {
		dbPath = "file:" + dbPath
	}
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Append persists one event with the next store-global sequence number.
// Uses BEGIN IMMEDIATE discipline so concurrent writer processes cannot
// interleave the sequence read and the insert.
func (s *LibSQLStore) Append(ctx context.Context, event *schema.HookEvent) (int64, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	filePaths, err := marshalSliceOrDefault(event.FilePaths)
	if err != nil {
		return 0, persistErr("marshal file_paths", err)
	}
	metadata, err := marshalMapOrDefault(event.Metadata)
	if err != nil {
		return 0, persistErr("marshal metadata", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, persistErr("begin immediate tx", err)
	}
	defer tx.Rollback()

	// Acquire the write lock by executing a write-intent statement.
	// In WAL mode, BeginTx alone may start a deferred transaction.
	// We use an immediate-mode write to force lock acquisition.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, name) VALUES (-1, '_lock_noop')`); err != nil {
		return 0, persistErr("acquire write lock", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_version WHERE version = -1`); err != nil {
		return 0, persistErr("cleanup write lock", err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM events`,
	).Scan(&seq)
	if err != nil {
		return 0, persistErr("get next seq", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (seq, id, created_at, event_type, tool_name, command, output, file_paths, session_id, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seq, event.ID, event.CreatedAt.UTC().Format(timeLayout), string(event.EventType),
		nullStr(event.ToolName), nullStr(event.Command), nullStr(event.Output),
		string(filePaths), nullStr(event.SessionID), string(metadata),
	)
	if err != nil {
		return 0, persistErr("insert event", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, persistErr("commit event", err)
	}
	event.Seq = seq
	return seq, nil
}

const eventColumns = `seq, id, created_at, event_type, tool_name, command, output, file_paths, session_id, metadata`

// Recent returns the limit most recently committed events, newest first.
func (s *LibSQLStore) Recent(ctx context.Context, limit int) ([]*schema.HookEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY seq DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, persistErr("query recent", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ByType returns the limit most recent events of one type, newest first.
func (s *LibSQLStore) ByType(ctx context.Context, eventType schema.EventType, limit int) ([]*schema.HookEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE event_type = ? ORDER BY seq DESC LIMIT ?`,
		string(eventType), limit,
	)
	if err != nil {
		return nil, persistErr("query by type", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// BySession reconstructs a session timeline, oldest first.
func (s *LibSQLStore) BySession(ctx context.Context, sessionID string) ([]*schema.HookEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE session_id = ? ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, persistErr("query by session", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// InRange returns events with created_at between start and end inclusive,
// oldest first. Ties on created_at fall back to seq order.
func (s *LibSQLStore) InRange(ctx context.Context, start, end time.Time) ([]*schema.HookEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE created_at >= ? AND created_at <= ? ORDER BY created_at ASC, seq ASC`,
		start.UTC().Format(timeLayout), end.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, persistErr("query range", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetEvent returns one event by its process-generated id.
func (s *LibSQLStore) GetEvent(ctx context.Context, id string) (*schema.HookEvent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id,
	)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "event %q not found", id)
	}
	if err != nil {
		return nil, persistErr("query event", err)
	}
	return e, nil
}

// CountEvents returns the total number of persisted events.
func (s *LibSQLStore) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, persistErr("count events", err)
	}
	return n, nil
}

// PruneBefore deletes events older than cutoff and reports the row count.
func (s *LibSQLStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE created_at < ?`, cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, persistErr("prune events", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, persistErr("prune rows affected", err)
	}
	return n, nil
}

// scanner is the shared subset of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*schema.HookEvent, error) {
	e := &schema.HookEvent{}
	var createdAt string
	var eventType string
	var toolName, command, output, sessionID sql.NullString
	var filePaths, metadata string

	if err := row.Scan(&e.Seq, &e.ID, &createdAt, &eventType,
		&toolName, &command, &output, &filePaths, &sessionID, &metadata); err != nil {
		return nil, err
	}

	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		// Rows written by other tooling may carry plain RFC 3339.
		ts, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
	}
	e.CreatedAt = ts.UTC()
	e.EventType = schema.EventType(eventType)
	e.ToolName = toolName.String
	e.Command = command.String
	e.Output = output.String
	e.SessionID = sessionID.String

	if err := json.Unmarshal([]byte(filePaths), &e.FilePaths); err != nil {
		return nil, fmt.Errorf("unmarshal file_paths: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]*schema.HookEvent, error) {
	var events []*schema.HookEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, persistErr("scan event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate events", err)
	}
	return events, nil
}

// --- Helpers ---

func persistErr(op string, err error) *schema.HookError {
	return schema.NewErrorf(schema.ErrCodePersistence, "%s: %s", op, err.Error()).WithCause(err)
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalSliceOrDefault(s []string) (json.RawMessage, error) {
	if len(s) == 0 {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(s)
}

func marshalMapOrDefault(m map[string]any) (json.RawMessage, error) {
	if len(m) == 0 {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(m)
}

var _ EventStore = (*LibSQLStore)(nil)

