package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reminderbot/internal/prefix"
	"reminderbot/internal/reminder"
	"reminderbot/internal/storage"
	"reminderbot/internal/task/scheduler"
	"reminderbot/internal/transport"
	"reminderbot/internal/transport/telegram/router"
	logx "reminderbot/pkg/logx"
)

const (
	groupID int64 = -100123456
	userID  int64 = 7
	botID   int64 = 99
)

var testStart = time.Unix(1_700_000_000, 0)

type fakeAdapter struct {
	mu       sync.Mutex
	sent     []string
	edited   []string
	deleted  []transport.MessageRef
	answered []string
}

func (a *fakeAdapter) Start(context.Context, chan<- transport.Update) error { return nil }
func (a *fakeAdapter) Stop(context.Context) error                           { return nil }

func (a *fakeAdapter) SendText(_ context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, text)
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(a.sent)}, nil
}

func (a *fakeAdapter) EditText(_ context.Context, _ transport.MessageRef, text string, _ *transport.SendOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.edited = append(a.edited, text)
	return nil
}

func (a *fakeAdapter) DeleteMessage(_ context.Context, ref transport.MessageRef) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, ref)
	return nil
}

func (a *fakeAdapter) AnswerCallback(_ context.Context, _ string, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.answered = append(a.answered, text)
	return nil
}

func (a *fakeAdapter) lastSent(t *testing.T) string {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.sent) == 0 {
		t.Fatalf("nothing was sent")
	}
	return a.sent[len(a.sent)-1]
}

type fakeDirectory struct {
	denied map[int64]bool // user ids that may not post
}

func (d *fakeDirectory) Self() transport.User { return transport.User{ID: botID, Username: "reminder_bot"} }

func (d *fakeDirectory) ResolveUser(_ context.Context, id int64) (transport.User, error) {
	return transport.User{ID: id}, nil
}

func (d *fakeDirectory) ResolveChat(_ context.Context, id int64) (transport.Chat, error) {
	return transport.Chat{ID: id, Kind: transport.ChatSupergroup}, nil
}

func (d *fakeDirectory) ResolveMember(_ context.Context, _, uid int64) (transport.User, error) {
	return transport.User{ID: uid}, nil
}

func (d *fakeDirectory) CanSend(_ context.Context, _ int64, uid int64) (bool, error) {
	return !d.denied[uid], nil
}

type nopSink struct{}

func (nopSink) Deliver(context.Context, reminder.Delivery) error { return nil }

type recordingAudit struct {
	mu      sync.Mutex
	entries []storage.AuditEntry
}

func (a *recordingAudit) AppendAudit(_ context.Context, e storage.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

type fixture struct {
	mod   *Module
	svc   *reminder.Service
	pfx   *prefix.Map
	ad    *fakeAdapter
	dir   *fakeDirectory
	audit *recordingAudit
	msgID int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{
		ad:    &fakeAdapter{},
		dir:   &fakeDirectory{denied: map[int64]bool{}},
		audit: &recordingAudit{},
	}
	f.svc = reminder.NewService(reminder.Options{
		Store: st,
		Sink:  nopSink{},
		Clock: scheduler.NewManualClock(testStart),
		Log:   logx.Nop(),
	})
	f.pfx = prefix.New(st, "$", logx.Nop())
	f.mod = New(Deps{
		Reminders:   f.svc,
		Prefixes:    f.pfx,
		Directory:   f.dir,
		Audit:       f.audit,
		Supervisors: router.NewSupervisorRegistry(),
		StartedAt:   testStart,
	})
	return f
}

func (f *fixture) request(chatID int64, kind transport.ChatKind, from int64, argText string) *router.Request {
	f.msgID++
	msg := &transport.Message{
		ID:           f.msgID,
		ChatID:       chatID,
		ChatKind:     kind,
		ChatTitle:    "Tea Club",
		FromID:       from,
		FromUsername: "alice",
		Text:         "/cmd " + argText,
	}
	return &router.Request{
		Update:  transport.Update{Kind: transport.UpdateMessage, Message: msg},
		Message: msg,
		Chat:    transport.ChatTarget{ChatID: chatID},
		FromID:  from,
		Args:    strings.Fields(argText),
		ArgText: argText,
		Adapter: f.ad,
		Logger:  logx.Nop(),
	}
}

func (f *fixture) group(argText string) *router.Request {
	return f.request(groupID, transport.ChatSupergroup, userID, argText)
}

func userTitle(err error) string {
	var t interface{ UserTitle() string }
	if errors.As(err, &t) {
		return t.UserTitle()
	}
	return ""
}

func TestRemindDefaultsToPrivateDelivery(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mod.cmdRemind(ctx, f.group("5hr 30min make toast")); err != nil {
		t.Fatalf("remind: %v", err)
	}
	reply := f.ad.lastSent(t)
	for _, want := range []string{"Reminder added! (ID: 1)", "make toast", "5 hours, 30 minutes", "to be sent to you!"} {
		if !strings.Contains(reply, want) {
			t.Fatalf("reply missing %q: %s", want, reply)
		}
	}

	rems := f.svc.List(userID)
	if len(rems) != 1 {
		t.Fatalf("listed %d reminders want 1", len(rems))
	}
	r := rems[0]
	if !r.Dest.Private || r.Dest.ChatID != userID {
		t.Fatalf("dest = %+v want private chat of the user", r.Dest)
	}
	if want := testStart.Unix() + 5*3600 + 30*60; r.EndTime != want {
		t.Fatalf("end time = %d want %d", r.EndTime, want)
	}
	if r.MessageID != reminder.RequestKey(groupID, 1) || r.UserName != "@alice" {
		t.Fatalf("reminder = %+v", r)
	}
}

func TestRemindDestinations(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		chat      int64
		kind      transport.ChatKind
		args      string
		deny      int64
		wantTitle string // error title, empty on success
		wantDest  reminder.Destination
	}{
		{
			name:     "here",
			chat:     groupID,
			kind:     transport.ChatSupergroup,
			args:     "10m #here stand up",
			wantDest: reminder.Destination{ChatID: groupID, Title: "Tea Club"},
		},
		{
			name:     "topic",
			chat:     groupID,
			kind:     transport.ChatSupergroup,
			args:     "10m #42 stand up",
			wantDest: reminder.Destination{ChatID: groupID, ThreadID: 42, Title: "Tea Club (topic 42)"},
		},
		{
			name:     "own chat id",
			chat:     groupID,
			kind:     transport.ChatSupergroup,
			args:     fmt.Sprintf("10m %d stand up", groupID),
			wantDest: reminder.Destination{ChatID: groupID, Title: "Tea Club"},
		},
		{
			name:      "other chat id",
			chat:      groupID,
			kind:      transport.ChatSupergroup,
			args:      "10m -100999999 stand up",
			wantTitle: "Missing Permissions!",
		},
		{
			name:      "bot cannot post",
			chat:      groupID,
			kind:      transport.ChatSupergroup,
			args:      "10m #here stand up",
			deny:      botID,
			wantTitle: "Missing Permissions!",
		},
		{
			name:      "requester cannot post",
			chat:      groupID,
			kind:      transport.ChatSupergroup,
			args:      "10m #here stand up",
			deny:      userID,
			wantTitle: "Missing Permissions!",
		},
		{
			name:      "private chat",
			chat:      userID,
			kind:      transport.ChatPrivate,
			args:      "10m #here stand up",
			wantTitle: "Invalid destination!",
		},
		{
			name:     "hashtag text",
			chat:     groupID,
			kind:     transport.ChatSupergroup,
			args:     "10m #standup now",
			wantDest: reminder.Destination{ChatID: userID, Private: true},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			if tc.deny != 0 {
				f.dir.denied[tc.deny] = true
			}
			err := f.mod.cmdRemind(context.Background(), f.request(tc.chat, tc.kind, userID, tc.args))
			if tc.wantTitle != "" {
				if got := userTitle(err); got != tc.wantTitle {
					t.Fatalf("err = %v (title %q) want title %q", err, got, tc.wantTitle)
				}
				if n := len(f.svc.List(userID)); n != 0 {
					t.Fatalf("rejected remind created %d reminders", n)
				}
				return
			}
			if err != nil {
				t.Fatalf("remind: %v", err)
			}
			rems := f.svc.List(userID)
			if len(rems) != 1 {
				t.Fatalf("listed %d reminders want 1", len(rems))
			}
			if rems[0].Dest != tc.wantDest {
				t.Fatalf("dest = %+v want %+v", rems[0].Dest, tc.wantDest)
			}
		})
	}
}

func TestRemindValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	err := f.mod.cmdRemind(ctx, f.group("make toast"))
	if userTitle(err) != "Invalid duration!" {
		t.Fatalf("err = %v want invalid duration", err)
	}
	var ue router.UserError
	if !errors.As(err, &ue) || !strings.Contains(ue.UserMessage(), "remind 5hr 30min make toast") {
		t.Fatalf("duration error should carry a usage example: %v", err)
	}

	if err := f.mod.cmdRemind(ctx, f.group("5m")); userTitle(err) != "Missing reminder!" {
		t.Fatalf("err = %v want missing reminder", err)
	}
}

func TestRemindersPaginates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mod.cmdReminders(ctx, f.group("")); userTitle(err) != "No reminders!" {
		t.Fatalf("empty list err = %v", err)
	}

	for i := 1; i <= 7; i++ {
		if err := f.mod.cmdRemind(ctx, f.group(fmt.Sprintf("%dm task %d", i, i))); err != nil {
			t.Fatalf("remind %d: %v", i, err)
		}
	}

	if err := f.mod.cmdReminders(ctx, f.group("")); err != nil {
		t.Fatalf("reminders: %v", err)
	}
	first := f.ad.lastSent(t)
	if !strings.Contains(first, "Showing active reminders for @alice (1/2):") {
		t.Fatalf("first page title: %s", first)
	}
	if !strings.Contains(first, "ID: 1") || !strings.Contains(first, "ID: 5") || strings.Contains(first, "ID: 6") {
		t.Fatalf("first page entries: %s", first)
	}
	if !strings.Contains(first, "Your DMS!") || !strings.Contains(first, "Ends in") {
		t.Fatalf("first page fields: %s", first)
	}

	cb := &transport.Callback{ID: "cb1", FromID: userID, ChatID: groupID, MessageID: 3, Data: "rem:page:7:1"}
	req := &router.Request{
		Update:   transport.Update{Kind: transport.UpdateCallback, Callback: cb},
		Callback: cb,
		Chat:     transport.ChatTarget{ChatID: groupID},
		FromID:   userID,
		Adapter:  f.ad,
		Logger:   logx.Nop(),
	}
	if err := f.mod.cbPage(ctx, req, pagePayload(userID, 1)); err != nil {
		t.Fatalf("page: %v", err)
	}
	f.ad.mu.Lock()
	second := f.ad.edited[len(f.ad.edited)-1]
	f.ad.mu.Unlock()
	if !strings.Contains(second, "(2/2)") || !strings.Contains(second, "ID: 6") || !strings.Contains(second, "ID: 7") {
		t.Fatalf("second page: %s", second)
	}

	other := *req
	other.FromID = 8
	if err := f.mod.cbPage(ctx, &other, pagePayload(userID, 0)); err != nil {
		t.Fatalf("foreign page: %v", err)
	}
	if err := f.mod.cbClose(ctx, &other, pagePayload(userID, 0)); err != nil {
		t.Fatalf("foreign close: %v", err)
	}
	f.ad.mu.Lock()
	answered, edits, deletes := len(f.ad.answered), len(f.ad.edited), len(f.ad.deleted)
	f.ad.mu.Unlock()
	if answered != 2 || edits != 1 || deletes != 0 {
		t.Fatalf("foreign clicks: answered=%d edits=%d deletes=%d", answered, edits, deletes)
	}

	if err := f.mod.cbClose(ctx, req, pagePayload(userID, 0)); err != nil {
		t.Fatalf("close: %v", err)
	}
	f.ad.mu.Lock()
	deleted := f.ad.deleted
	f.ad.mu.Unlock()
	if len(deleted) != 1 || deleted[0].MessageID != 3 {
		t.Fatalf("deleted = %+v", deleted)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mod.cmdRemind(ctx, f.group("1h water plants")); err != nil {
		t.Fatalf("remind: %v", err)
	}

	tests := []struct {
		name  string
		from  int64
		args  string
		title string
	}{
		{name: "no id", from: userID, args: "", title: "No reminder ID specified!"},
		{name: "not a number", from: userID, args: "abc", title: "Reminder not found!"},
		{name: "unknown", from: userID, args: "42", title: "Reminder not found!"},
		{name: "someone else", from: 8, args: "1", title: "You didn't make this reminder!"},
	}
	for _, tc := range tests {
		err := f.mod.cmdDelete(ctx, f.request(groupID, transport.ChatSupergroup, tc.from, tc.args))
		if got := userTitle(err); got != tc.title {
			t.Fatalf("%s: err = %v want title %q", tc.name, err, tc.title)
		}
	}

	if err := f.mod.cmdDelete(ctx, f.group("1")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	reply := f.ad.lastSent(t)
	if !strings.Contains(reply, "Reminder successfully removed! (ID: 1)") || !strings.Contains(reply, "water plants") {
		t.Fatalf("reply: %s", reply)
	}
	if n := len(f.svc.List(userID)); n != 0 {
		t.Fatalf("%d reminders left after delete", n)
	}
	if err := f.mod.cmdDelete(ctx, f.group("1")); userTitle(err) != "Reminder not found!" {
		t.Fatalf("second delete err = %v", err)
	}

	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	if len(f.audit.entries) != 1 {
		t.Fatalf("audit entries = %d want 1", len(f.audit.entries))
	}
	e := f.audit.entries[0]
	if e.Action != "reminder.cancel" || e.ActorID != userID || e.Target != reminder.RequestKey(groupID, 1) || e.Error != "" {
		t.Fatalf("audit entry = %+v", e)
	}
}

func TestPrefixCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mod.cmdPrefix(ctx, f.group(strings.Repeat("x", 101))); userTitle(err) != "Prefix is too long!" {
		t.Fatalf("long prefix err = %v", err)
	}
	if err := f.mod.cmdPrefix(ctx, f.group("  ")); userTitle(err) != "No prefix specified!" {
		t.Fatalf("empty prefix err = %v", err)
	}
	if got := f.pfx.For(groupID); got != "$" {
		t.Fatalf("prefix changed by rejected input: %q", got)
	}

	if err := f.mod.cmdPrefix(ctx, f.group("!")); err != nil {
		t.Fatalf("prefix: %v", err)
	}
	if got := f.pfx.For(groupID); got != "!" {
		t.Fatalf("prefix = %q want !", got)
	}
	if reply := f.ad.lastSent(t); !strings.Contains(reply, "Prefix successfully set!") || !strings.Contains(reply, "<code>!</code>") {
		t.Fatalf("reply: %s", reply)
	}

	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	if len(f.audit.entries) != 1 || f.audit.entries[0].Action != "prefix.set" || f.audit.entries[0].Target != "!" {
		t.Fatalf("audit = %+v", f.audit.entries)
	}
}

func TestInfoAndStats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mod.cmdInfo(ctx, f.group("")); err != nil {
		t.Fatalf("info: %v", err)
	}
	if reply := f.ad.lastSent(t); !strings.Contains(reply, "Info for Reminder Friend!") || !strings.Contains(reply, "Bot Uptime") {
		t.Fatalf("info reply: %s", reply)
	}

	if err := f.mod.cmdRemind(ctx, f.group("1h stretch")); err != nil {
		t.Fatalf("remind: %v", err)
	}
	if err := f.mod.cmdStats(ctx, f.group("")); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if reply := f.ad.lastSent(t); !strings.Contains(reply, "Pending reminders</b>: 1") {
		t.Fatalf("stats reply: %s", reply)
	}
}

func TestFormatUptime(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 0, want: "0:00:00"},
		{in: 90 * time.Second, want: "0:01:30"},
		{in: 26*time.Hour + 3*time.Minute, want: "1 day, 2:03:00"},
		{in: 49*time.Hour + 1500*time.Millisecond, want: "2 days, 1:00:01"},
	}
	for _, tc := range tests {
		if got := formatUptime(tc.in); got != tc.want {
			t.Fatalf("formatUptime(%v) = %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestParsePagePayload(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in    string
		owner int64
		index int
		ok    bool
	}{
		{in: "7:2", owner: 7, index: 2, ok: true},
		{in: "7", owner: 7, ok: true},
		{in: "x:1"},
		{in: "7:y"},
	}
	for _, tc := range tests {
		owner, index, ok := parsePagePayload(tc.in)
		if ok != tc.ok || owner != tc.owner || index != tc.index {
			t.Fatalf("parsePagePayload(%q) = %d,%d,%v", tc.in, owner, index, ok)
		}
	}
}
