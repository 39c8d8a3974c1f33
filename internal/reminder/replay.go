package reminder

import (
	"context"
	"errors"
	"fmt"

	"reminderbot/internal/eventbus"
	"reminderbot/internal/storage"
	"reminderbot/internal/transport"
	logx "reminderbot/pkg/logx"
)

// Resolver is the part of the platform directory replay needs.
type Resolver interface {
	ResolveUser(ctx context.Context, id int64) (transport.User, error)
	ResolveChat(ctx context.Context, id int64) (transport.Chat, error)
	ResolveMember(ctx context.Context, chatID, userID int64) (transport.User, error)
}

// ReplayReport summarizes one replay.
type ReplayReport struct {
	Scheduled int
	Purged    int
	Failed    int
}

// Replay rebuilds the registry from every stored row, in storage order. Rows
// whose owner the platform reports as unknown are deleted. A destination chat that cannot
// be resolved falls back to the owner's private chat.
//
// Chat and user ids share one numeric space, so a vanished group whose id
// later resolves as something else is delivered there; this is not detected.
func (s *Service) Replay(ctx context.Context, res Resolver) (ReplayReport, error) {
	var rep ReplayReport
	rows, err := s.store.Reminders(ctx)
	if err != nil {
		return rep, fmt.Errorf("load reminders: %w", err)
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		req, ok := s.resolveRow(ctx, res, row)
		if !ok {
			if _, err := s.store.DeleteReminder(ctx, row.MessageID); err != nil {
				rep.Failed++
				s.log.Warn("purge reminder row failed", logx.String("message_id", row.MessageID), logx.Err(err))
				continue
			}
			rep.Purged++
			s.m.RemindersPurged.Inc()
			s.bus.Publish(eventPurged(row))
			continue
		}
		if _, ok := s.reg.FindByMessageID(row.MessageID); ok {
			continue
		}
		s.schedule(req)
		rep.Scheduled++
	}

	s.log.Info("reminders replayed",
		logx.Int("scheduled", rep.Scheduled),
		logx.Int("purged", rep.Purged),
		logx.Int("failed", rep.Failed),
	)
	return rep, nil
}

// resolveRow maps a row to a Request. ok is false only when the platform
// reported the owner as gone; lookup failures of any other kind schedule the
// row from its stored ids so an outage at startup does not drop reminders.
func (s *Service) resolveRow(ctx context.Context, res Resolver, row storage.ReminderRecord) (Request, bool) {
	user, err := res.ResolveUser(ctx, row.UserID)
	if err != nil && row.DestinationID != row.UserID {
		user, err = res.ResolveMember(ctx, row.DestinationID, row.UserID)
	}
	if err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			s.log.Debug("reminder owner unresolvable",
				logx.String("message_id", row.MessageID),
				logx.Int64("user_id", row.UserID),
				logx.Err(err),
			)
			return Request{}, false
		}
		s.log.Warn("reminder owner lookup failed, using stored ids",
			logx.String("message_id", row.MessageID),
			logx.Err(err),
		)
		return requestFromRow(row), true
	}

	dest := Destination{ChatID: user.ID, Private: true}
	if chat, err := res.ResolveChat(ctx, row.DestinationID); err == nil {
		if chat.Kind != transport.ChatPrivate {
			dest = Destination{ChatID: chat.ID, ThreadID: row.DestinationThread, Title: chat.Title}
		}
	}

	return Request{
		MessageID: row.MessageID,
		UserID:    user.ID,
		UserName:  DisplayName(user),
		Text:      row.Text,
		Dest:      dest,
		EndTime:   row.EndTime,
	}, true
}

func requestFromRow(row storage.ReminderRecord) Request {
	dest := Destination{ChatID: row.DestinationID, ThreadID: row.DestinationThread}
	if row.DestinationID == row.UserID {
		dest = Destination{ChatID: row.UserID, Private: true}
	}
	return Request{
		MessageID: row.MessageID,
		UserID:    row.UserID,
		UserName:  DisplayName(transport.User{ID: row.UserID}),
		Text:      row.Text,
		Dest:      dest,
		EndTime:   row.EndTime,
	}
}

// DisplayName is "@username" when set, else the first name.
func DisplayName(u transport.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return fmt.Sprintf("user %d", u.ID)
}

func eventPurged(row storage.ReminderRecord) eventbus.Event {
	return eventbus.Event{
		Type: EventPurged,
		Data: Event{MessageID: row.MessageID, UserID: row.UserID, ChatID: row.DestinationID},
	}
}
