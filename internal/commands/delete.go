package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"reminderbot/internal/reminder"
	"reminderbot/internal/storage"
	"reminderbot/internal/transport/telegram/router"
	"reminderbot/pkg/tgui"
)

const seeReminders = "Use the command `reminders` to see your active reminders!"

var (
	errNoID     = router.Fail("No reminder ID specified!", "You need to specify a reminder ID to delete!\n"+seeReminders)
	errUnknown  = router.Fail("Reminder not found!", "A reminder with that ID wasn't found!\n"+seeReminders)
	errNotOwner = router.Fail("You didn't make this reminder!", "Someone else made this reminder, so you can't delete it!")
)

func (m *Module) cmdDelete(ctx context.Context, req *router.Request) error {
	if len(req.Args) == 0 {
		return errNoID
	}
	id, err := strconv.Atoi(req.Args[0])
	if err != nil || id <= 0 {
		return errUnknown
	}

	r, err := m.svc.Cancel(ctx, id, req.FromID)
	switch {
	case errors.Is(err, reminder.ErrNotFound):
		return errUnknown
	case errors.Is(err, reminder.ErrNotOwner):
		return errNotOwner
	}

	m.recordAudit(ctx, storage.AuditEntry{
		ActorID: req.FromID,
		ChatID:  req.Chat.ChatID,
		Action:  "reminder.cancel",
		Target:  r.MessageID,
		Error:   errString(err),
		Meta:    strconv.Itoa(id),
	})
	if err != nil {
		return fmt.Errorf("cancel reminder %d: %w", id, err)
	}

	out := tgui.New().
		Title("🗑", fmt.Sprintf("Reminder successfully removed! (ID: %d)", id)).
		Line(fmt.Sprintf("Reminder \"%s\" has been canceled and deleted!", r.Text)).
		Build()
	_, err = req.Reply(ctx, out)
	return err
}
