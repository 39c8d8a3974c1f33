package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"reminderbot/internal/eventbus"
	"reminderbot/internal/reminder"
	"reminderbot/internal/transport"
	logx "reminderbot/pkg/logx"
	"reminderbot/pkg/tgui"
)

var ErrNoSender = errors.New("notifier: no sender")

// Sender is the send half of a transport adapter.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

const historySize = 100

// Service implements reminder.Sink on top of a Sender.
//
// It is safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	log     logx.Logger
	sender  Sender
	bus     eventbus.Bus
	cfg     Config
	limiter *rate.Limiter

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender Sender, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	s := &Service{
		sender: sender,
		log:    log.With(logx.String("comp", "notifier")),
		bus:    bus,
	}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	s.cfg = cfg
	// Burst equals the per-second rate so reminders ending together go out at once.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// SetSender swaps the transport, e.g. after the adapter is rebuilt.
func (s *Service) SetSender(sender Sender) {
	s.mu.Lock()
	s.sender = sender
	s.mu.Unlock()
}

// Deliver renders and sends one reminder.
func (s *Service) Deliver(ctx context.Context, d reminder.Delivery) error {
	s.mu.Lock()
	lim := s.limiter
	sender := s.sender
	timeout := s.cfg.Timeout
	s.mu.Unlock()

	if sender == nil {
		return ErrNoSender
	}
	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	msg := Render(d)
	to := transport.ChatTarget{ChatID: d.Dest.ChatID, ThreadID: d.Dest.ThreadID}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	_, err := sender.SendText(callCtx, to, msg.Text, msg.Opt)
	cancel()

	now := time.Now()
	ev := DeliveryEvent{ID: d.ID, ChatID: to.ChatID, ThreadID: to.ThreadID, At: now}
	item := HistoryItem{At: now, ID: d.ID, ChatID: to.ChatID}
	typ := "notifier.sent"
	if err != nil {
		ev.Error = err.Error()
		item.Err = err.Error()
		typ = "notifier.failed"
		s.log.Debug("reminder send failed", logx.Int("id", d.ID), logx.Int64("chat_id", to.ChatID), logx.Err(err))
	}
	s.appendHistory(item)
	s.bus.Publish(eventbus.Event{Type: typ, Time: now, Data: ev})
	return err
}

// maxTextRunes keeps the rendered reminder inside one Telegram message. The
// stored text is not touched.
const maxTextRunes = 3500

// Render builds the delivered message. Group deliveries mention the owner.
func Render(d reminder.Delivery) tgui.Message {
	b := tgui.New()
	if !d.Dest.Private {
		b.HTML(tgui.B("Hey ") + tgui.Mention(d.UserName, d.UserID) + tgui.B(",")).Blank()
	}
	b.Title("⏰", "Reminder!").Line(tgui.TruncRunes(d.Text, maxTextRunes)).Blank()
	if d.Dest.Private {
		b.HTML(tgui.I("This reminder is sent by you!"))
	} else {
		b.HTML(tgui.I("Reminder sent by " + d.UserName))
	}
	return b.Build()
}

func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(it HistoryItem) {
	s.hmu.Lock()
	s.history = append(s.history, it)
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
	s.hmu.Unlock()
}
