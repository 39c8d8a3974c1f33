package adapter

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"reminderbot/internal/transport"
)

// Self returns the bot account loaded by getMe.
func (a *Adapter) Self() transport.User {
	me := a.bot.Me
	if me == nil {
		return transport.User{}
	}
	return transport.User{ID: me.ID, Username: me.Username, FirstName: me.FirstName}
}

// ResolveUser only finds users that opened a private chat with the bot;
// Telegram has no lookup by user id otherwise.
func (a *Adapter) ResolveUser(ctx context.Context, id int64) (transport.User, error) {
	if err := ctx.Err(); err != nil {
		return transport.User{}, err
	}
	chat, err := a.bot.ChatByID(id)
	if err != nil {
		return transport.User{}, classify(err, "user", id)
	}
	if chat.Type != tele.ChatPrivate {
		return transport.User{}, fmt.Errorf("%w: %d is not a user", transport.ErrNotFound, id)
	}
	return transport.User{ID: chat.ID, Username: chat.Username, FirstName: chat.FirstName}, nil
}

func (a *Adapter) ResolveChat(ctx context.Context, id int64) (transport.Chat, error) {
	if err := ctx.Err(); err != nil {
		return transport.Chat{}, err
	}
	chat, err := a.bot.ChatByID(id)
	if err != nil {
		return transport.Chat{}, classify(err, "chat", id)
	}
	return transport.Chat{
		ID:       chat.ID,
		Kind:     chatKind(chat.Type),
		Title:    chat.Title,
		Username: chat.Username,
		IsForum:  chat.IsForum,
	}, nil
}

// ResolveMember finds a user through a group membership. Users who left or
// were banned still resolve; Telegram no longer knowing them does not.
func (a *Adapter) ResolveMember(ctx context.Context, chatID, userID int64) (transport.User, error) {
	m, err := a.member(ctx, chatID, userID)
	if err != nil {
		return transport.User{}, err
	}
	if m.User == nil {
		return transport.User{}, fmt.Errorf("%w: user %d", transport.ErrNotFound, userID)
	}
	return transport.User{ID: m.User.ID, Username: m.User.Username, FirstName: m.User.FirstName}, nil
}

// CanSend reports whether userID is a current member of chatID allowed to
// post messages.
func (a *Adapter) CanSend(ctx context.Context, chatID, userID int64) (bool, error) {
	m, err := a.member(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	switch m.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true, nil
	case tele.Restricted:
		return m.Member && m.CanSendMessages, nil
	default:
		return false, nil
	}
}

func (a *Adapter) member(ctx context.Context, chatID, userID int64) (*tele.ChatMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := a.bot.ChatMemberOf(&tele.Chat{ID: chatID}, &tele.User{ID: userID})
	if err != nil {
		return nil, classify(err, "member", userID)
	}
	return m, nil
}

// Ping measures one getMe round trip.
func (a *Adapter) Ping(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	start := time.Now()
	if _, err := a.bot.Raw("getMe", nil); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// classify maps Telegram's "Bad Request"/"Forbidden" answers to
// transport.ErrNotFound. Network failures and rate limits pass through.
func classify(err error, what string, id int64) error {
	if code, desc := apiError(err); code == 400 || code == 403 {
		return fmt.Errorf("%w: %s %s: %s", transport.ErrNotFound, what, strconv.FormatInt(id, 10), desc)
	}
	return fmt.Errorf("lookup %s %d: %w", what, id, err)
}

// reAPIError matches the plain error telebot builds for descriptions it has
// no sentinel for: "telegram: <description> (<code>)".
var reAPIError = regexp.MustCompile(`^telegram: (.*) \((\d{3})\)$`)

// apiError extracts the Bot API error code and description, or 0 when err
// did not come from an API answer.
func apiError(err error) (int, string) {
	var te *tele.Error
	if errors.As(err, &te) {
		return te.Code, te.Description
	}
	if m := reAPIError.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[2])
		return code, m[1]
	}
	return 0, ""
}
