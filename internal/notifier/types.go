package notifier

import "time"

// Config controls delivery throughput.
type Config struct {
	RatePerSec int
	Timeout    time.Duration
}

type HistoryItem struct {
	At     time.Time
	ID     int
	ChatID int64
	Err    string
}

// DeliveryEvent is published on the bus after each attempt.
type DeliveryEvent struct {
	ID       int       `json:"id"`
	ChatID   int64     `json:"chat_id"`
	ThreadID int       `json:"thread_id,omitempty"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}
