package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"reminderbot/internal/reminder"
	"reminderbot/internal/transport"
	"reminderbot/internal/transport/telegram/router"
	"reminderbot/pkg/tgui"
)

const (
	listNamespace = "rem"
	actionPage    = "page"
	actionClose   = "close"

	pageSize = 5
	// Five entries have to fit one Telegram message so the page can be
	// edited in place.
	listTextRunes = 600
)

var errNoReminders = router.Fail("No reminders!", "You don't have any reminders set yet, use the `reminder` command to add one!")

func (m *Module) cmdReminders(ctx context.Context, req *router.Request) error {
	rems := m.svc.List(req.FromID)
	if len(rems) == 0 {
		return errNoReminders
	}
	_, err := req.Reply(ctx, m.renderList(rems, req.FromID, 0))
	return err
}

// renderList renders one page of owner's reminders with navigation buttons.
func (m *Module) renderList(rems []*reminder.Reminder, owner int64, index int) tgui.Message {
	page := tgui.Paginate(rems, index, pageSize)
	now := m.svc.Now()

	name := "you"
	if len(rems) > 0 && rems[0].UserName != "" {
		name = rems[0].UserName
	}
	b := tgui.New().Title("📋", fmt.Sprintf("Showing active reminders for %s (%d/%d):", name, page.Index+1, page.Count))
	for _, r := range page.Items {
		dest := "Your DMS!"
		if !r.Dest.Private {
			dest = r.Dest.Title
		}
		b.Blank().
			HTML(tgui.B(fmt.Sprintf("ID: %d", r.ID()))).
			KV("Reminder", tgui.TruncRunes(r.Text, listTextRunes)).
			KV("Ends at", reminder.FormatEndsAt(r.EndTime)).
			KV("Ends in", reminder.SecondsToStr(int64(r.Remaining(now)/time.Second))).
			KV("Destination", dest)
	}
	return b.Inline(listKeyboard(owner, page)).Build()
}

func listKeyboard(owner int64, page tgui.Page[*reminder.Reminder]) *tgui.Inline {
	type button struct{ text, action, payload string }
	var row []button
	if page.HasPrev() {
		row = append(row, button{"◀", actionPage, pagePayload(owner, page.Index-1)})
	}
	row = append(row, button{"🗑", actionClose, strconv.FormatInt(owner, 10)})
	if page.HasNext() {
		row = append(row, button{"▶", actionPage, pagePayload(owner, page.Index+1)})
	}

	kb := tgui.NewInline()
	btns := make([]tele.Btn, 0, len(row))
	for _, b := range row {
		data, err := tgui.Data(listNamespace, b.action, b.payload)
		if err != nil {
			continue
		}
		btns = append(btns, tgui.Btn(b.text, data))
	}
	return kb.Row(btns...)
}

func pagePayload(owner int64, index int) string {
	return strconv.FormatInt(owner, 10) + ":" + strconv.Itoa(index)
}

// parsePagePayload splits "owner:index". A missing index means the first page.
func parsePagePayload(p string) (owner int64, index int, ok bool) {
	o, i, _ := strings.Cut(p, ":")
	owner, err := strconv.ParseInt(o, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if i == "" {
		return owner, 0, true
	}
	index, err = strconv.Atoi(i)
	if err != nil {
		return 0, 0, false
	}
	return owner, index, true
}

func (m *Module) cbPage(ctx context.Context, req *router.Request, payload string) error {
	owner, index, ok := parsePagePayload(payload)
	if !ok {
		return nil
	}
	if owner != req.FromID {
		return req.Adapter.AnswerCallback(ctx, req.Callback.ID, "Only the person who asked for this list can use it!")
	}
	ref := callbackRef(req)
	rems := m.svc.List(owner)
	if len(rems) == 0 {
		out := tgui.New().Title("❌", "No reminders!").Line("You don't have any reminders set yet, use the `reminder` command to add one!").Build()
		return out.Edit(ctx, req.Adapter, ref)
	}
	return m.renderList(rems, owner, index).Edit(ctx, req.Adapter, ref)
}

func (m *Module) cbClose(ctx context.Context, req *router.Request, payload string) error {
	owner, _, ok := parsePagePayload(payload)
	if !ok {
		return nil
	}
	if owner != req.FromID {
		return req.Adapter.AnswerCallback(ctx, req.Callback.ID, "Only the person who asked for this list can close it!")
	}
	return req.Adapter.DeleteMessage(ctx, callbackRef(req))
}

func callbackRef(req *router.Request) transport.MessageRef {
	return transport.MessageRef{ChatID: req.Chat.ChatID, ThreadID: req.Chat.ThreadID, MessageID: req.Callback.MessageID}
}
