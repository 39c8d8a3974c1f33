package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"reminderbot/internal/eventbus"
	"reminderbot/internal/metrics"
	"reminderbot/internal/storage"
	"reminderbot/internal/task/scheduler"
	logx "reminderbot/pkg/logx"
)

// Lifecycle event types published on the bus.
const (
	EventCreated   = "reminder.created"
	EventDelivered = "reminder.delivered"
	EventCanceled  = "reminder.canceled"
	EventPurged    = "reminder.purged"
)

// Event is the payload of lifecycle events.
type Event struct {
	ID        int
	MessageID string
	UserID    int64
	ChatID    int64
	Err       error
}

// Delivery is what a Sink needs to send one reminder.
type Delivery struct {
	ID       int
	UserID   int64
	UserName string
	Text     string
	Dest     Destination
	EndTime  int64
}

// Sink sends fired reminders. Errors are logged and dropped.
type Sink interface {
	Deliver(ctx context.Context, d Delivery) error
}

// Request describes a reminder to create.
type Request struct {
	MessageID string
	UserID    int64
	UserName  string
	Text      string
	Dest      Destination
	EndTime   int64
}

type Options struct {
	Store           storage.Store
	Sink            Sink
	Clock           scheduler.Clock
	Bus             eventbus.Bus
	Log             logx.Logger
	DeliveryTimeout time.Duration
}

// Service owns the registry and every reminder timer.
type Service struct {
	store           storage.Store
	sink            Sink
	clock           scheduler.Clock
	bus             eventbus.Bus
	log             logx.Logger
	reg             *Registry
	m               *metrics.Metrics
	deliveryTimeout time.Duration

	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup
}

func NewService(opt Options) *Service {
	if opt.Clock == nil {
		opt.Clock = scheduler.System()
	}
	if opt.Bus == nil {
		opt.Bus = eventbus.Nop{}
	}
	if opt.DeliveryTimeout <= 0 {
		opt.DeliveryTimeout = 30 * time.Second
	}
	return &Service{
		store:           opt.Store,
		sink:            opt.Sink,
		clock:           opt.Clock,
		bus:             opt.Bus,
		log:             opt.Log.With(logx.String("comp", "reminder")),
		reg:             NewRegistry(),
		m:               metrics.Default(),
		deliveryTimeout: opt.DeliveryTimeout,
	}
}

func (s *Service) Registry() *Registry { return s.reg }

func (s *Service) Now() time.Time { return s.clock.Now() }

// SetDeliveryTimeout changes the per-delivery deadline for later firings.
func (s *Service) SetDeliveryTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.deliveryTimeout = d
	s.mu.Unlock()
}

// Create persists and schedules a reminder. The row is written first; if
// that fails nothing is registered. A repeated MessageID returns the reminder
// already scheduled for it.
func (s *Service) Create(ctx context.Context, req Request) (*Reminder, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errMissingText
	}
	if s.isStopped() {
		return nil, ErrStopped
	}

	inserted, err := s.store.InsertReminder(ctx, storage.ReminderRecord{
		MessageID:         req.MessageID,
		UserID:            req.UserID,
		Text:              req.Text,
		EndTime:           req.EndTime,
		DestinationID:     req.Dest.ChatID,
		DestinationThread: req.Dest.ThreadID,
		CreatedAt:         s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("persist reminder: %w", err)
	}
	if !inserted {
		if r, ok := s.reg.FindByMessageID(req.MessageID); ok {
			return r, nil
		}
	}
	return s.schedule(req), nil
}

func (s *Service) schedule(req Request) *Reminder {
	r := &Reminder{
		MessageID: req.MessageID,
		UserID:    req.UserID,
		UserName:  req.UserName,
		Text:      req.Text,
		Dest:      req.Dest,
		EndTime:   req.EndTime,
		Duration:  delayUntil(req.EndTime, s.clock.Now()),
	}
	id := s.reg.Register(r)
	r.arm(s.clock, s.fire)

	s.m.RemindersCreated.Inc()
	s.m.RemindersPending.Inc()
	s.publish(EventCreated, r, nil)
	s.log.Debug("reminder scheduled",
		logx.Int("id", id),
		logx.String("message_id", r.MessageID),
		logx.Int64("user_id", r.UserID),
		logx.Duration("in", r.Duration),
	)
	return r
}

// List returns userID's pending reminders, oldest first.
func (s *Service) List(userID int64) []*Reminder { return s.reg.ListFor(userID) }

// Cancel cancels reminder id on behalf of userID. Unknown, delivered and
// already canceled ids yield ErrNotFound and never delete twice.
func (s *Service) Cancel(ctx context.Context, id int, userID int64) (*Reminder, error) {
	r, ok := s.reg.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if r.UserID != userID {
		return r, ErrNotOwner
	}
	won, err := s.cancel(ctx, r)
	if !won {
		return r, ErrNotFound
	}
	return r, err
}

// Remove cancels r without ownership checks. Removing a reminder that is no
// longer pending is a no-op.
func (s *Service) Remove(ctx context.Context, r *Reminder) error {
	_, err := s.cancel(ctx, r)
	return err
}

func (s *Service) cancel(ctx context.Context, r *Reminder) (bool, error) {
	if !r.transition(StateCanceled) {
		return false, nil
	}
	err := s.remove(ctx, r)
	s.m.RemindersCanceled.Inc()
	s.publish(EventCanceled, r, err)
	return true, err
}

func (s *Service) fire(r *Reminder) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	timeout := s.deliveryTimeout
	s.mu.Unlock()
	defer s.inflight.Done()

	if !r.transition(StateDelivered) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.m.DeliveryLag.Observe(max(s.clock.Now().Sub(r.EndAt()), 0).Seconds())
	err := s.deliver(ctx, r)
	if err != nil {
		s.m.Deliveries.WithLabelValues("error").Inc()
		s.log.Warn("reminder delivery failed",
			logx.Int("id", r.id),
			logx.Int64("chat_id", r.Dest.ChatID),
			logx.Err(err),
		)
	} else {
		s.m.Deliveries.WithLabelValues("ok").Inc()
	}

	if rerr := s.remove(ctx, r); rerr != nil {
		s.log.Error("reminder cleanup failed", logx.Int("id", r.id), logx.Err(rerr))
	}
	s.publish(EventDelivered, r, err)
}

func (s *Service) deliver(ctx context.Context, r *Reminder) (err error) {
	if s.sink == nil {
		return errors.New("no delivery sink")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("delivery panic: %v", p)
		}
	}()
	return s.sink.Deliver(ctx, Delivery{
		ID:       r.id,
		UserID:   r.UserID,
		UserName: r.UserName,
		Text:     r.Text,
		Dest:     r.Dest,
		EndTime:  r.EndTime,
	})
}

// remove runs after a successful transition out of Pending. The slot is
// tombstoned even when the row delete fails; the row is then replayed and
// delivered again on the next start.
func (s *Service) remove(ctx context.Context, r *Reminder) error {
	_, err := s.store.DeleteReminder(context.WithoutCancel(ctx), r.MessageID)
	if s.reg.Tombstone(r.id) {
		s.m.RemindersPending.Dec()
	}
	if err != nil {
		return fmt.Errorf("delete reminder %d: %w", r.id, err)
	}
	return nil
}

// Stop releases every pending timer without touching the store and waits for
// in-flight deliveries until ctx is done.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	detached := 0
	for _, r := range s.reg.Live() {
		if r.transition(StateDetached) {
			detached++
		}
	}
	s.log.Info("reminder timers detached", logx.Int("count", detached))

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Service) publish(typ string, r *Reminder, err error) {
	s.bus.Publish(eventbus.Event{
		Type: typ,
		Time: s.clock.Now(),
		Data: Event{ID: r.id, MessageID: r.MessageID, UserID: r.UserID, ChatID: r.Dest.ChatID, Err: err},
	})
}

// Stats is a point-in-time view for the stats command.
type Stats struct {
	Live      int
	HighWater int
}

func (s *Service) Stats() Stats {
	return Stats{Live: s.reg.Len(), HighWater: s.reg.HighWater()}
}
