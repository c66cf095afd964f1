// Package audit persists command execution history in an encrypted
// SQLite database and keeps in-memory counters for quick health checks.
// The store implements the execution recorder hook of the tools façade;
// it is always optional and the sandbox behaves identically without it.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/BakeLens/galley/internal/logger"
	"github.com/BakeLens/galley/internal/tools"
	"github.com/BakeLens/galley/internal/types"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mutecomm/go-sqlcipher/v4" // SQLCipher driver for encrypted SQLite
)

var log = logger.New("audit")

// MinEncryptionKeyLength is the minimum passphrase length accepted for
// database encryption.
const MinEncryptionKeyLength = 16

// compressThreshold is the output size below which compression is not
// worth the header overhead.
const compressThreshold = 1024

// Config tunes a Store.
type Config struct {
	// RetentionDays bounds Purge; 0 keeps everything.
	RetentionDays int
	// CompressOutput stores large outputs zstd-compressed.
	CompressOutput bool
}

// Store handles the encrypted execution history database.
type Store struct {
	conn      *sql.DB
	cfg       Config
	metrics   *Metrics
	encrypted bool
}

// NewStore opens (or creates) the database at dbPath. A non-empty
// passphrase turns on SQLCipher encryption; the actual page key is
// derived from it, never used raw.
func NewStore(dbPath, passphrase string, cfg Config) (*Store, error) {
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")
	params.Set("_foreign_keys", "1")

	// The key travels as a connection parameter, not a PRAGMA statement,
	// so it can never be interpreted as SQL.
	if passphrase != "" {
		if len(passphrase) < MinEncryptionKeyLength {
			return nil, fmt.Errorf("encryption key must be at least %d characters", MinEncryptionKeyLength)
		}
		params.Set("_pragma_key", DeriveKey(passphrase))
	}

	dsn := dbPath + "?" + params.Encode()

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// SQLite supports only one writer at a time. Limiting to 1 connection
	// serializes all DB access at the Go level, preventing SQLITE_BUSY errors.
	conn.SetMaxOpenConns(1)

	encrypted := false
	if passphrase != "" {
		var result int
		if err := conn.QueryRowContext(context.Background(), "SELECT 1").Scan(&result); err != nil {
			conn.Close()
			return nil, fmt.Errorf("encryption key verification failed: %w", err)
		}
		encrypted = true
		log.Info("Audit database encryption enabled")
	}

	s := &Store{
		conn:      conn,
		cfg:       cfg,
		metrics:   NewMetrics(),
		encrypted: encrypted,
	}

	if _, err := conn.ExecContext(context.Background(), schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL UNIQUE,
	command TEXT NOT NULL,
	cwd TEXT,
	status TEXT NOT NULL,
	reason TEXT,
	exit_code INTEGER,
	output BLOB,
	output_compressed BOOLEAN DEFAULT FALSE,
	started_at DATETIME,
	ended_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_executions_session_id ON executions(session_id);
CREATE INDEX IF NOT EXISTS idx_executions_started_at ON executions(started_at);
CREATE INDEX IF NOT EXISTS idx_executions_status ON executions(status);
`

// IsEncrypted returns whether the database is encrypted.
func (s *Store) IsEncrypted() bool {
	return s.encrypted
}

// Metrics returns the store's in-memory counters.
func (s *Store) Metrics() *Metrics {
	return s.metrics
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.conn
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Execution is one recorded command lifecycle.
type Execution struct {
	ID        int64      `json:"id"`
	SessionID string     `json:"sessionId"`
	Command   string     `json:"command"`
	Cwd       string     `json:"cwd,omitempty"`
	Status    string     `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	ExitCode  *int       `json:"exitCode,omitempty"`
	Output    string     `json:"output,omitempty"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// Create records a command at admission time. Denials and spawn errors
// arrive already terminal and never see an UpdateStatus.
func (s *Store) Create(rec tools.ExecutionRecord) error {
	ctx := context.Background()

	started := rec.StartedAt
	if started.IsZero() {
		started = time.Now().UTC()
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO executions (session_id, command, cwd, status, reason, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.SessionID, rec.Command, strPtr(rec.Cwd), rec.Status, strPtr(rec.Reason), started.UTC())
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}

	s.metrics.CountAdmission(rec.Status)
	return nil
}

// UpdateStatus records a session's terminal state and its captured
// output.
func (s *Store) UpdateStatus(sessionID string, status types.SessionStatus, exitCode *int, output string) error {
	ctx := context.Background()

	blob := []byte(output)
	compressed := false
	if s.cfg.CompressOutput && len(blob) >= compressThreshold {
		if packed, err := compress(blob); err == nil {
			blob = packed
			compressed = true
		} else {
			log.Warn("Output compression failed for %s: %v", sessionID, err)
		}
	}

	res, err := s.conn.ExecContext(ctx, `
		UPDATE executions
		SET status = ?, exit_code = ?, output = ?, output_compressed = ?, ended_at = ?
		WHERE session_id = ?
	`, string(status), exitCode, blob, compressed, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update execution %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("no execution recorded for session %s", sessionID)
	}

	s.metrics.CountOutcome(status)
	return nil
}

// Get returns one execution by session id.
func (s *Store) Get(sessionID string) (*Execution, error) {
	row := s.conn.QueryRowContext(context.Background(), `
		SELECT id, session_id, command, cwd, status, reason, exit_code,
		       output, output_compressed, started_at, ended_at
		FROM executions
		WHERE session_id = ?
	`, sessionID)

	e, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no execution recorded for session %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load execution %s: %w", sessionID, err)
	}
	return e, nil
}

// MaxRecentMinutes is the maximum time window for recent queries (7 days).
const MaxRecentMinutes = 10080

// Recent returns executions started inside the window, newest first.
func (s *Store) Recent(minutes, limit int) ([]Execution, error) {
	if minutes <= 0 {
		minutes = 60
	} else if minutes > MaxRecentMinutes {
		minutes = MaxRecentMinutes
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.conn.QueryContext(context.Background(), `
		SELECT id, session_id, command, cwd, status, reason, exit_code,
		       output, output_compressed, started_at, ended_at
		FROM executions
		WHERE started_at > datetime('now', ?)
		ORDER BY started_at DESC
		LIMIT ?
	`, fmt.Sprintf("-%d minutes", minutes), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query recent executions: %w", err)
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution row: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Stats aggregates the execution history.
type Stats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus,omitempty"`
	Days     []DayStat        `json:"days,omitempty"`
}

// DayStat is one day's totals, denials included.
type DayStat struct {
	Day    string `json:"day"`
	Total  int64  `json:"total"`
	Denied int64  `json:"denied"`
}

// GetStats returns aggregate statistics, including a per-day breakdown
// for the last seven days.
func (s *Store) GetStats() (*Stats, error) {
	ctx := context.Background()
	stats := &Stats{ByStatus: make(map[string]int64)}

	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM executions`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("failed to count executions: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM executions GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dayRows, err := s.conn.QueryContext(ctx, `
		SELECT date(started_at) AS day,
		       COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN status = 'denied' THEN 1 ELSE 0 END), 0) AS denied
		FROM executions
		WHERE started_at > datetime('now', '-7 days')
		GROUP BY day
		ORDER BY day DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query day stats: %w", err)
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var d DayStat
		if err := dayRows.Scan(&d.Day, &d.Total, &d.Denied); err != nil {
			return nil, fmt.Errorf("failed to scan day stats: %w", err)
		}
		stats.Days = append(stats.Days, d)
	}
	return stats, dayRows.Err()
}

// MaxRetentionDays is the maximum allowed retention period.
const MaxRetentionDays = 36500

// Purge deletes executions older than the given number of days and
// returns how many rows were removed. Zero or negative days is a no-op.
func (s *Store) Purge(days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	if days > MaxRetentionDays {
		days = MaxRetentionDays
	}

	res, err := s.conn.ExecContext(context.Background(), `
		DELETE FROM executions WHERE started_at < datetime('now', ?)
	`, fmt.Sprintf("-%d days", days))
	if err != nil {
		return 0, fmt.Errorf("failed to purge old executions: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged executions: %w", err)
	}
	if deleted > 0 {
		log.Info("Purged %d old executions (retention: %d days)", deleted, days)
	}
	return deleted, nil
}

// PurgeConfigured applies the configured retention, if any.
func (s *Store) PurgeConfigured() (int64, error) {
	return s.Purge(s.cfg.RetentionDays)
}

// scanner covers sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(row scanner) (*Execution, error) {
	var e Execution
	var cwd, reason *string
	var exitCode *int64
	var blob []byte
	var compressed bool
	var started *time.Time
	var ended *time.Time

	if err := row.Scan(
		&e.ID, &e.SessionID, &e.Command, &cwd, &e.Status, &reason,
		&exitCode, &blob, &compressed, &started, &ended,
	); err != nil {
		return nil, err
	}

	e.Cwd = derefStr(cwd)
	e.Reason = derefStr(reason)
	if exitCode != nil {
		code := int(*exitCode)
		e.ExitCode = &code
	}
	if started != nil {
		e.StartedAt = started.UTC()
	}
	if ended != nil {
		t := ended.UTC()
		e.EndedAt = &t
	}

	if len(blob) > 0 {
		if compressed {
			raw, err := decompress(blob)
			if err != nil {
				return nil, fmt.Errorf("failed to decompress output: %w", err)
			}
			e.Output = string(raw)
		} else {
			e.Output = string(blob)
		}
	}
	return &e, nil
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var (
	_ io.Closer               = (*Store)(nil)
	_ tools.ExecutionRecorder = (*Store)(nil)
)
