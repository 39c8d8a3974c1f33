package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	logx "reminderbot/pkg/logx"
)

//go:embed migrations.sql
var migrations string

type sqliteStore struct {
	db     *sql.DB
	log    logx.Logger
	closed atomic.Bool
}

func openSQLite(cfg Config, log logx.Logger) (*sqliteStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, ErrMissingPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	// Pragmas go in the DSN so a reopened pooled connection keeps them.
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	// A single writer connection; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log.With(logx.String("comp", "storage.sqlite"))}
	if _, err := db.ExecContext(context.Background(), migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	st.log.Info("sqlite store ready", logx.String("path", path))
	return st, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) check() error {
	if s == nil || s.db == nil || s.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (s *sqliteStore) InsertReminder(ctx context.Context, r ReminderRecord) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	if strings.TrimSpace(r.MessageID) == "" {
		return false, fmt.Errorf("%w: empty message id", ErrInvalidRequest)
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reminders(message_id, user_id, text, end_time, destination_id, destination_thread, created_at)
		 VALUES(?,?,?,?,?,?,?)`,
		r.MessageID, r.UserID, r.Text, r.EndTime, r.DestinationID, r.DestinationThread, created.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("storage: insert reminder %s: %w", r.MessageID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *sqliteStore) DeleteReminder(ctx context.Context, messageID string) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE message_id = ?`, messageID)
	if err != nil {
		return false, fmt.Errorf("storage: delete reminder %s: %w", messageID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *sqliteStore) Reminders(ctx context.Context) ([]ReminderRecord, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, user_id, text, end_time, destination_id, destination_thread, created_at
		 FROM reminders ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("storage: list reminders: %w", err)
	}
	defer rows.Close()

	var out []ReminderRecord
	for rows.Next() {
		var (
			r       ReminderRecord
			created int64
		)
		if err := rows.Scan(&r.MessageID, &r.UserID, &r.Text, &r.EndTime, &r.DestinationID, &r.DestinationThread, &created); err != nil {
			return nil, fmt.Errorf("storage: scan reminder: %w", err)
		}
		if created > 0 {
			r.CreatedAt = time.Unix(created, 0)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ReplacePrefix(ctx context.Context, guildID int64, prefix string) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `REPLACE INTO prefixes(guild_id, prefix) VALUES(?,?)`, guildID, prefix)
	if err != nil {
		return fmt.Errorf("storage: replace prefix %d: %w", guildID, err)
	}
	return nil
}

func (s *sqliteStore) Prefixes(ctx context.Context) (map[int64]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id, prefix FROM prefixes`)
	if err != nil {
		return nil, fmt.Errorf("storage: list prefixes: %w", err)
	}
	defer rows.Close()

	out := map[int64]string{}
	for rows.Next() {
		var (
			id     int64
			prefix string
		)
		if err := rows.Scan(&id, &prefix); err != nil {
			return nil, fmt.Errorf("storage: scan prefix: %w", err)
		}
		out[id] = prefix
	}
	return out, rows.Err()
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if err := s.check(); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, actor_id, chat_id, action, target, err, meta) VALUES(?,?,?,?,?,?,?)`,
		e.At.UTC().Format(time.RFC3339Nano), e.ActorID, e.ChatID, e.Action,
		nullStr(e.Target), nullStr(e.Error), nullStr(e.Meta),
	)
	return err
}

func (s *sqliteStore) Maintain(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("storage: checkpoint: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `PRAGMA optimize`); err != nil {
		return fmt.Errorf("storage: optimize: %w", err)
	}
	return nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
