package reminder

import (
	"strconv"
	"sync"
	"time"

	"reminderbot/internal/task/scheduler"
)

// State is a reminder's lifecycle position. Only Pending is live.
type State int32

const (
	StatePending State = iota
	StateDelivered
	StateCanceled
	// StateDetached marks reminders whose timer was released at shutdown.
	// Their rows stay in the store and are replayed on the next start.
	StateDetached
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDelivered:
		return "delivered"
	case StateCanceled:
		return "canceled"
	case StateDetached:
		return "detached"
	}
	return "unknown"
}

// Destination is where a reminder is delivered. Private deliveries go to the
// owner's private chat; anything else is a group chat or one of its topics.
type Destination struct {
	ChatID   int64
	ThreadID int
	Title    string
	Private  bool
}

// Reminder is one scheduled delivery. Fields other than the state and the
// timer are fixed at construction.
type Reminder struct {
	id        int
	MessageID string
	UserID    int64
	UserName  string
	Text      string
	Dest      Destination
	EndTime   int64 // epoch seconds
	Duration  time.Duration

	mu    sync.Mutex
	state State
	timer scheduler.Timer
}

// RequestKey is the durable key of the command message that created a
// reminder. Telegram message ids are only unique within a chat.
func RequestKey(chatID int64, messageID int) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(messageID)
}

// ID is the registry id, 0 until registered.
func (r *Reminder) ID() int { return r.id }

func (r *Reminder) EndAt() time.Time { return time.Unix(r.EndTime, 0) }

func (r *Reminder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Remaining is the time left until EndTime, never negative.
func (r *Reminder) Remaining(now time.Time) time.Duration {
	return max(r.EndAt().Sub(now), 0)
}

// transition moves a Pending reminder to to and releases its timer. It
// reports false when the reminder already left Pending.
func (r *Reminder) transition(to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePending {
		return false
	}
	r.state = to
	if to != StateDelivered && r.timer != nil {
		r.timer.Stop()
	}
	r.timer = nil
	return true
}

func (r *Reminder) arm(c scheduler.Clock, fire func(*Reminder)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePending {
		return
	}
	r.timer = c.AfterFunc(r.Duration, func() { fire(r) })
}

// delayUntil converts an absolute end time into a timer delay of at least one
// second.
func delayUntil(endTime int64, now time.Time) time.Duration {
	d := time.Unix(endTime, 0).Sub(now)
	if d < time.Second {
		return time.Second
	}
	return d
}
