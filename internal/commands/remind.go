package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"reminderbot/internal/reminder"
	"reminderbot/internal/transport"
	"reminderbot/internal/transport/telegram/router"
	"reminderbot/pkg/tgui"
)

const usageExample = "Usage example: `remind 5hr 30min make toast`"

var chatIDPattern = regexp.MustCompile(`^-\d{5,20}$`)

var errNoPermission = router.Fail("Missing Permissions!", "You or this bot don't have permissions to talk in that channel!")

func (m *Module) cmdRemind(ctx context.Context, req *router.Request) error {
	msg := req.Message
	dur, rest, err := reminder.ParseDuration(req.ArgText)
	if err != nil {
		var ve *reminder.ValidationError
		if errors.As(err, &ve) {
			return router.Fail(ve.Title, ve.Message+"\n"+usageExample)
		}
		return err
	}

	dest, text, err := m.parseDestination(ctx, msg, rest)
	if err != nil {
		return err
	}

	r, err := m.svc.Create(ctx, reminder.Request{
		MessageID: reminder.RequestKey(msg.ChatID, msg.ID),
		UserID:    msg.FromID,
		UserName:  senderName(msg),
		Text:      strings.TrimSpace(text),
		Dest:      dest,
		EndTime:   m.svc.Now().Unix() + dur.Seconds(),
	})
	if err != nil {
		return err
	}

	to := "you"
	if !dest.Private {
		to = dest.Title
	}
	out := tgui.New().
		Title("⏰", fmt.Sprintf("Reminder added! (ID: %d)", r.ID())).
		Line(fmt.Sprintf("Reminder \"%s\" has been added for %s to be sent to %s!", r.Text, dur.String(), to)).
		Build()
	_, err = req.Reply(ctx, out)
	return err
}

// parseDestination reads an optional destination token from the front of
// rest. Without one the reminder goes to the requester's private chat.
//
//	#here      this chat, and this topic in forum groups
//	#<topic>   a topic of this group
//	-100123... this group by id
func (m *Module) parseDestination(ctx context.Context, msg *transport.Message, rest string) (reminder.Destination, string, error) {
	private := reminder.Destination{ChatID: msg.FromID, Private: true}

	tok, after := firstField(rest)
	var dest reminder.Destination
	switch {
	case strings.EqualFold(tok, "#here"):
		dest = reminder.Destination{ChatID: msg.ChatID, ThreadID: msg.ThreadID}
	case len(tok) > 1 && tok[0] == '#' && isDigits(tok[1:]):
		topic, err := strconv.Atoi(tok[1:])
		if err != nil {
			return private, rest, nil
		}
		dest = reminder.Destination{ChatID: msg.ChatID, ThreadID: topic}
	case chatIDPattern.MatchString(tok):
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil || id != msg.ChatID {
			return private, rest, errNoPermission
		}
		dest = reminder.Destination{ChatID: id}
	default:
		return private, rest, nil
	}

	if !msg.IsGroup() {
		return private, rest, router.Fail("Invalid destination!", "Destinations only work inside groups, private reminders are sent here anyway!")
	}

	if m.dir != nil {
		for _, uid := range []int64{m.dir.Self().ID, msg.FromID} {
			ok, err := m.dir.CanSend(ctx, dest.ChatID, uid)
			if err != nil {
				return private, rest, fmt.Errorf("check permissions: %w", err)
			}
			if !ok {
				return private, rest, errNoPermission
			}
		}
	}

	dest.Title = destinationTitle(msg.ChatTitle, dest.ThreadID)
	return dest, after, nil
}

func destinationTitle(chat string, thread int) string {
	if chat == "" {
		chat = "this chat"
	}
	if thread == 0 {
		return chat
	}
	return chat + " (topic " + strconv.Itoa(thread) + ")"
}

func senderName(msg *transport.Message) string {
	return reminder.DisplayName(transport.User{ID: msg.FromID, Username: msg.FromUsername, FirstName: msg.FromName})
}

func firstField(s string) (tok, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
