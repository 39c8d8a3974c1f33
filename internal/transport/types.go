// Package transport defines the chat platform surface the bot depends on.
package transport

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups for users or chats the platform does
// not know or the bot cannot reach.
var ErrNotFound = errors.New("transport: not found")

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type ChatKind string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
)

type Message struct {
	ID           int
	ChatID       int64
	ChatKind     ChatKind
	ChatTitle    string
	ThreadID     int // forum topic, 0 if none
	FromID       int64
	FromUsername string
	FromName     string
	Text         string
}

// IsGroup reports whether the message came from a multi-user chat.
func (m *Message) IsGroup() bool {
	return m.ChatKind == ChatGroup || m.ChatKind == ChatSupergroup
}

type Callback struct {
	ID        string
	FromID    int64
	ChatID    int64
	ThreadID  int
	MessageID int
	Data      string
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode          string
	DisablePreview     bool
	ReplyTo            int
	ReplyMarkupAdapter any // adapter-specific markup (Telegram: *telebot.ReplyMarkup)
}

// User is a resolved platform account.
type User struct {
	ID        int64
	Username  string
	FirstName string
}

// Chat is a resolved conversation.
type Chat struct {
	ID       int64
	Kind     ChatKind
	Title    string
	Username string
	IsForum  bool
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// Directory resolves identities and permissions.
type Directory interface {
	// Self is the bot account.
	Self() User
	ResolveUser(ctx context.Context, id int64) (User, error)
	ResolveChat(ctx context.Context, id int64) (Chat, error)
	// ResolveMember looks a user up through their membership in chatID. It
	// also finds users that never opened a private chat with the bot.
	ResolveMember(ctx context.Context, chatID, userID int64) (User, error)
	// CanSend reports whether userID is a member of chatID allowed to post.
	CanSend(ctx context.Context, chatID, userID int64) (bool, error)
}

type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is implemented by adapters with a native command menu.
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
