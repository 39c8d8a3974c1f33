package commands

import (
	"context"
	"errors"
	"strings"

	"reminderbot/internal/prefix"
	"reminderbot/internal/storage"
	"reminderbot/internal/transport/telegram/router"
	"reminderbot/pkg/tgui"
)

func (m *Module) cmdPrefix(ctx context.Context, req *router.Request) error {
	p := strings.TrimSpace(req.ArgText)
	switch err := prefix.Validate(p); {
	case errors.Is(err, prefix.ErrEmpty):
		return router.Fail("No prefix specified!", "You need to specify the new prefix!")
	case errors.Is(err, prefix.ErrTooLong):
		return router.Fail("Prefix is too long!", "Your prefix has to be less than 100 characters!")
	}

	err := m.prefixes.Set(ctx, req.Chat.ChatID, p)
	m.recordAudit(ctx, storage.AuditEntry{
		ActorID: req.FromID,
		ChatID:  req.Chat.ChatID,
		Action:  "prefix.set",
		Target:  p,
		Error:   errString(err),
	})
	if errors.Is(err, prefix.ErrNoGroup) {
		return router.Fail("Groups only!", "Prefixes can only be set in groups!")
	}
	if err != nil {
		return err
	}

	out := tgui.New().
		Title("✅", "Prefix successfully set!").
		HTML("Prefix has been set to " + tgui.Code(p)).
		Build()
	_, err = req.Reply(ctx, out)
	return err
}
