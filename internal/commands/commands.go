// Package commands implements the chat commands and inline-button callbacks
// of the reminder bot.
package commands

import (
	"context"
	"time"

	"reminderbot/internal/notifier"
	"reminderbot/internal/prefix"
	"reminderbot/internal/reminder"
	"reminderbot/internal/storage"
	"reminderbot/internal/transport"
	"reminderbot/internal/transport/telegram/router"
	logx "reminderbot/pkg/logx"
)

// Auditor records who changed what. storage.Store implements it.
type Auditor interface {
	AppendAudit(ctx context.Context, e storage.AuditEntry) error
}

// Pinger measures a platform round trip.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// History exposes recent delivery attempts.
type History interface {
	Snapshot() []notifier.HistoryItem
}

type Deps struct {
	Reminders   *reminder.Service
	Prefixes    *prefix.Map
	Directory   transport.Directory
	Audit       Auditor
	Pinger      Pinger
	History     History
	Supervisors *router.SupervisorRegistry
	StartedAt   time.Time
	Log         logx.Logger
}

// Module groups the reminder, prefix and misc commands.
type Module struct {
	svc      *reminder.Service
	prefixes *prefix.Map
	dir      transport.Directory
	audit    Auditor
	pinger   Pinger
	history  History
	sups     *router.SupervisorRegistry
	started  time.Time
	log      logx.Logger
}

func New(d Deps) *Module {
	log := d.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	started := d.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	return &Module{
		svc:      d.Reminders,
		prefixes: d.Prefixes,
		dir:      d.Directory,
		audit:    d.Audit,
		pinger:   d.Pinger,
		history:  d.History,
		sups:     d.Supervisors,
		started:  started,
		log:      log.With(logx.String("comp", "commands")),
	}
}

func (m *Module) Commands() []router.Command {
	return []router.Command{
		{
			Route:       "remind",
			Aliases:     []string{"r", "remindme", "reminder"},
			Description: "Set a reminder",
			Usage:       "remind <duration...> [#here|#topic_id|chat_id] <reminder>",
			Handle:      m.cmdRemind,
		},
		{
			Route:       "reminders",
			Aliases:     []string{"list", "list_reminders", "listreminders", "all", "all_reminders"},
			Description: "List your active reminders",
			Usage:       "reminders",
			Handle:      m.cmdReminders,
		},
		{
			Route:       "delete",
			Description: "Cancel one of your reminders",
			Usage:       "delete <id>",
			Handle:      m.cmdDelete,
		},
		{
			Route:       "prefix",
			Aliases:     []string{"setprefix"},
			Description: "Set this group's command prefix",
			Usage:       "prefix <text>",
			GroupOnly:   true,
			Handle:      m.cmdPrefix,
		},
		{
			Route:       "info",
			Aliases:     []string{"i", "ping"},
			Description: "Bot uptime and latency",
			Usage:       "info",
			Handle:      m.cmdInfo,
		},
		{
			Route:       "stats",
			Description: "Scheduler and runtime counters",
			Usage:       "stats",
			Access:      router.AccessOwnerOnly,
			Handle:      m.cmdStats,
		},
	}
}

func (m *Module) Callbacks() []router.CallbackRoute {
	return []router.CallbackRoute{
		{
			Namespace:   listNamespace,
			Action:      actionPage,
			Description: "page through a reminder list",
			Access:      router.CallbackAccessEveryone,
			Handle:      m.cbPage,
		},
		{
			Namespace:   listNamespace,
			Action:      actionClose,
			Description: "close a reminder list",
			Access:      router.CallbackAccessEveryone,
			Handle:      m.cbClose,
		},
	}
}

func (m *Module) recordAudit(ctx context.Context, e storage.AuditEntry) {
	if m.audit == nil {
		return
	}
	if err := m.audit.AppendAudit(context.WithoutCancel(ctx), e); err != nil {
		m.log.Warn("audit write failed", logx.String("action", e.Action), logx.Err(err))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
