// Package audit records every ask request in a SQLite log for
// after-the-fact inspection. The admission and cache state itself is
// in-memory only; the audit log is an append-only side record.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dmarinova/cvgate/pkg/models"
)

// Logger writes and queries ask records in a dedicated SQLite database.
type Logger struct {
	db   *sql.DB
	cfg  models.AuditConfig
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the audit SQLite database and creates the schema.
func New(cfg models.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{
		db:   db,
		cfg:  cfg,
		done: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS ask_log (
		request_id      TEXT PRIMARY KEY,
		identity_hash   TEXT NOT NULL,
		identity_prefix TEXT NOT NULL,
		question        TEXT,
		answer          TEXT,
		cached          INTEGER NOT NULL DEFAULT 0,
		status_code     INTEGER,
		latency_ms      INTEGER,
		created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_ask_created ON ask_log(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_ask_prefix ON ask_log(identity_prefix)`)
	return err
}

// Log inserts one ask record, respecting the log_questions/log_answers
// configuration and the body size cap.
func (l *Logger) Log(ctx context.Context, rec models.AskRecord) error {
	if l == nil || l.db == nil {
		return nil
	}

	question := rec.Question
	answer := rec.Answer
	if !l.cfg.LogQuestions {
		question = ""
	}
	if !l.cfg.LogAnswers {
		answer = ""
	}
	if l.cfg.MaxBodySize > 0 {
		if len(question) > l.cfg.MaxBodySize {
			question = question[:l.cfg.MaxBodySize]
		}
		if len(answer) > l.cfg.MaxBodySize {
			answer = answer[:l.cfg.MaxBodySize]
		}
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO ask_log
		(request_id, identity_hash, identity_prefix, question, answer,
		 cached, status_code, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.IdentityHash, rec.IdentityPrefix,
		question, answer, rec.Cached, rec.StatusCode,
		rec.LatencyMs, rec.CreatedAt,
	)
	return err
}

// Query returns ask records matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AskRecord, error) {
	q := `SELECT request_id, identity_hash, identity_prefix, question, answer,
		cached, status_code, latency_ms, created_at
		FROM ask_log WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.IdentityPrefix != "" {
		q += " AND identity_prefix = ?"
		args = append(args, opts.IdentityPrefix)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}
	if opts.StatusCode != 0 {
		q += " AND status_code = ?"
		args = append(args, opts.StatusCode)
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var records []models.AskRecord
	for rows.Next() {
		var r models.AskRecord
		var question, answer sql.NullString
		if err := rows.Scan(
			&r.RequestID, &r.IdentityHash, &r.IdentityPrefix,
			&question, &answer, &r.Cached, &r.StatusCode,
			&r.LatencyMs, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		r.Question = question.String
		r.Answer = answer.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// Stats returns per-day totals with cached and rejected breakdowns.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT date(created_at) AS day,
			count(*) AS total,
			sum(CASE WHEN cached THEN 1 ELSE 0 END) AS cached,
			sum(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END) AS rejected
		 FROM ask_log GROUP BY day ORDER BY day DESC`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		var day sql.NullString
		var cached, rejected sql.NullInt64
		if err := rows.Scan(&day, &s.Total, &cached, &rejected); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Day = day.String
		s.Cached = int(cached.Int64)
		s.Rejected = int(rejected.Int64)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes records older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM ask_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}

// HashIdentity returns the SHA-256 hex hash and an 8-char prefix for a
// client identity, so the log never stores raw addresses.
func HashIdentity(identity string) (hash, prefix string) {
	h := sha256.Sum256([]byte(identity))
	hash = hex.EncodeToString(h[:])
	if len(identity) > 8 {
		prefix = identity[:8]
	} else {
		prefix = identity
	}
	return hash, prefix
}
