package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrClosed         = errors.New("storage closed")
	ErrUnknownDriver  = errors.New("unknown storage driver")
	ErrMissingPath    = errors.New("storage path is required")
	ErrInvalidRequest = errors.New("invalid storage request")
)

// Store is the persistence API used by the reminder and prefix services.
type Store interface {
	// InsertReminder inserts r unless a row with the same MessageID exists.
	// inserted reports whether a new row was written.
	InsertReminder(ctx context.Context, r ReminderRecord) (inserted bool, err error)
	// DeleteReminder is idempotent; deleting a missing row is not an error.
	DeleteReminder(ctx context.Context, messageID string) (deleted bool, err error)
	// Reminders returns every row in insertion order.
	Reminders(ctx context.Context) ([]ReminderRecord, error)

	ReplacePrefix(ctx context.Context, guildID int64, prefix string) error
	Prefixes(ctx context.Context) (map[int64]string, error)

	AppendAudit(ctx context.Context, e AuditEntry) error

	// Maintain runs periodic housekeeping (checkpoint, planner stats).
	Maintain(ctx context.Context) error
	Close() error
}

// Config selects and tunes the backend.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means 5s
}

// ReminderRecord is one row of the reminders table.
//
// DestinationID is a chat id. For private delivery it holds the owner's id,
// which on Telegram is also the id of the private chat with that user.
type ReminderRecord struct {
	MessageID         string
	UserID            int64
	Text              string
	EndTime           int64 // epoch seconds
	DestinationID     int64
	DestinationThread int
	CreatedAt         time.Time
}

// AuditEntry records a user action that changed persisted state.
type AuditEntry struct {
	At      time.Time
	ActorID int64
	ChatID  int64
	Action  string
	Target  string
	Error   string
	Meta    string
}
