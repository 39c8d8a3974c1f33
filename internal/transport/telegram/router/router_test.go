package router

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"reminderbot/internal/transport"
)

func TestMatchCommand(t *testing.T) {
	t.Parallel()
	prefixes := []string{"/", "$", "@reminder_bot"}
	tests := []struct {
		name   string
		text   string
		ok     bool
		prefix string
		word   string
		rest   string
	}{
		{name: "slash", text: "/remind 5m tea", ok: true, prefix: "/", word: "remind", rest: "5m tea"},
		{name: "custom prefix", text: "$REMIND 5m tea", ok: true, prefix: "$", word: "remind", rest: "5m tea"},
		{name: "space after prefix", text: "$ list", ok: true, prefix: "$", word: "list"},
		{name: "mention prefix", text: "@Reminder_Bot delete 3", ok: true, prefix: "@Reminder_Bot", word: "delete", rest: "3"},
		{name: "addressed to us", text: "/help@reminder_bot", ok: true, prefix: "/", word: "help"},
		{name: "addressed to another bot", text: "/help@other_bot", ok: false},
		{name: "plain chat", text: "hello there", ok: false},
		{name: "prefix only", text: "$", ok: false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			inv, ok := matchCommand(tc.text, prefixes, "reminder_bot")
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if inv.prefix != tc.prefix || inv.word != tc.word || inv.rest != tc.rest {
				t.Fatalf("got %+v", inv)
			}
		})
	}
}

func TestMatchCommandLongestPrefix(t *testing.T) {
	t.Parallel()
	inv, ok := matchCommand("!!list", []string{"!", "!!"}, "")
	if !ok || inv.prefix != "!!" || inv.word != "list" {
		t.Fatalf("got %+v ok=%v", inv, ok)
	}
}

func TestTokenizeCommandLine(t *testing.T) {
	t.Parallel()
	got := tokenizeCommandLine(`a "b c" 'd' e\ f`)
	want := []string{"a", "b c", "d", "e f"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q want %q", got, want)
	}
	if tokenizeCommandLine("   ") != nil {
		t.Fatalf("blank input should give no tokens")
	}
}

func TestBase36(t *testing.T) {
	t.Parallel()
	for in, want := range map[int64]string{0: "0", 35: "z", 36: "10", -36: "10"} {
		if got := base36(in); got != want {
			t.Fatalf("base36(%d)=%q want %q", in, got, want)
		}
	}
}

func TestSanitizeTelegramCommand(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"list-reminders": "list_reminders",
		"Set Prefix":     "set_prefix",
		"9lives":         "cmd_9lives",
		"!!!":            "",
	}
	for in, want := range tests {
		if got := sanitizeTelegramCommand(in); got != want {
			t.Fatalf("sanitize(%q)=%q want %q", in, got, want)
		}
	}
}

func TestIsMentionOnly(t *testing.T) {
	t.Parallel()
	if !isMentionOnly("  @Reminder_Bot ", "reminder_bot") {
		t.Fatalf("mention should match")
	}
	if isMentionOnly("@reminder_bot hi", "reminder_bot") || isMentionOnly("@x", "") {
		t.Fatalf("unexpected match")
	}
}

type sent struct {
	to   transport.ChatTarget
	text string
	opt  *transport.SendOptions
}

type fakeAdapter struct {
	mu   sync.Mutex
	sent []sent
}

func (a *fakeAdapter) Start(context.Context, chan<- transport.Update) error { return nil }
func (a *fakeAdapter) Stop(context.Context) error                           { return nil }

func (a *fakeAdapter) SendText(_ context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, sent{to: to, text: text, opt: opt})
	return transport.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: len(a.sent)}, nil
}

func (a *fakeAdapter) EditText(context.Context, transport.MessageRef, string, *transport.SendOptions) error {
	return nil
}

func (a *fakeAdapter) DeleteMessage(context.Context, transport.MessageRef) error { return nil }

func (a *fakeAdapter) AnswerCallback(context.Context, string, string) error { return nil }

func (a *fakeAdapter) texts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.sent))
	for _, s := range a.sent {
		out = append(out, s.text)
	}
	return out
}

type fixedPrefix string

func (p fixedPrefix) For(int64) string { return string(p) }

type fixedIdentity transport.User

func (u fixedIdentity) Self() transport.User { return transport.User(u) }

func newTestManager(ad *fakeAdapter) *CommandManager {
	return NewCommandManager(Options{
		Adapter:     ad,
		Identity:    fixedIdentity{ID: 99, Username: "reminder_bot"},
		Prefixes:    fixedPrefix("$"),
		Owners:      []int64{1},
		Workers:     2,
		Supervisors: NewSupervisorRegistry(),
	})
}

func groupMessage(text string) transport.Update {
	return transport.Update{Kind: transport.UpdateMessage, Message: &transport.Message{
		ID: 10, ChatID: -100, ChatKind: transport.ChatSupergroup, FromID: 7, Text: text,
	}}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatchRoutesCommandsAndAliases(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	m := newTestManager(ad)

	var mu sync.Mutex
	var got []*Request
	m.SetRegistry([]Command{{
		Route:   "remind",
		Aliases: []string{"r", "remindme"},
		Handle: func(_ context.Context, req *Request) error {
			mu.Lock()
			got = append(got, req)
			mu.Unlock()
			return nil
		},
	}, {
		Route:  "stats",
		Access: AccessOwnerOnly,
		Handle: func(context.Context, *Request) error {
			t.Errorf("owner-only command ran for a non-owner")
			return nil
		},
	}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan transport.Update, 8)
	done := make(chan struct{})
	go func() {
		_ = m.DispatchLoop(ctx, updates)
		close(done)
	}()

	updates <- groupMessage("$stats")
	updates <- groupMessage("$ R 5m tea")
	updates <- groupMessage("/remindme@reminder_bot 1h walk")
	updates <- groupMessage("just chatting")

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})
	cancel()
	<-done

	args := map[string]bool{}
	for _, r := range got {
		if r.Command != "remind" || r.Chat.ChatID != -100 || r.FromID != 7 {
			t.Fatalf("unexpected request %+v", r)
		}
		args[r.ArgText] = true
	}
	if !args["5m tea"] || !args["1h walk"] {
		t.Fatalf("arg texts = %v", args)
	}
}

func TestDispatchUserErrorIsReplied(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	m := newTestManager(ad)
	m.SetRegistry([]Command{{
		Route: "prefix",
		Handle: func(context.Context, *Request) error {
			return Fail("Prefix is too long!", "Your prefix has to be less than 100 characters!")
		},
	}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := make(chan transport.Update, 1)
	go func() { _ = m.DispatchLoop(ctx, updates) }()

	updates <- groupMessage("/prefix " + strings.Repeat("x", 120))
	waitFor(t, func() bool { return len(ad.texts()) == 1 })

	text := ad.texts()[0]
	if !strings.Contains(text, "Prefix is too long!") || !strings.Contains(text, "less than 100 characters") {
		t.Fatalf("reply = %q", text)
	}
	ad.mu.Lock()
	replyTo := ad.sent[0].opt.ReplyTo
	ad.mu.Unlock()
	if replyTo != 10 {
		t.Fatalf("reply_to = %d want 10", replyTo)
	}
}

func TestMentionOnlyRepliesWithPrefixes(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	m := newTestManager(ad)
	m.SetRegistry(nil, nil)

	m.routeMessage(context.Background(), groupMessage("@reminder_bot"))

	texts := ad.texts()
	if len(texts) != 1 || !strings.Contains(texts[0], "Pinged!") || !strings.Contains(texts[0], "<code>$</code>") {
		t.Fatalf("texts = %q", texts)
	}
}

func TestUnknownCommandSilentInGroups(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	m := newTestManager(ad)
	m.SetRegistry(nil, nil)

	m.routeMessage(context.Background(), groupMessage("$nope"))
	if n := len(ad.texts()); n != 0 {
		t.Fatalf("group got %d replies", n)
	}

	private := transport.Update{Kind: transport.UpdateMessage, Message: &transport.Message{
		ID: 1, ChatID: 7, ChatKind: transport.ChatPrivate, FromID: 7, Text: "/nope",
	}}
	m.routeMessage(context.Background(), private)
	if texts := ad.texts(); len(texts) != 1 || !strings.Contains(texts[0], "/help") {
		t.Fatalf("private texts = %q", texts)
	}
}

func TestHelpListsCommands(t *testing.T) {
	t.Parallel()
	m := newTestManager(&fakeAdapter{})
	noop := func(context.Context, *Request) error { return nil }
	m.SetRegistry([]Command{
		{Route: "remind", Description: "Set a reminder", Usage: "remind <duration...> <text>", Aliases: []string{"r"}, Handle: noop},
		{Route: "stats", Description: "Runtime stats", Access: AccessOwnerOnly, Handle: noop},
	}, nil)

	top := m.helpText(nil, "$")
	for _, want := range []string{"/remind", "Set a reminder", "🔒", "<code>$</code>"} {
		if !strings.Contains(top, want) {
			t.Fatalf("top help missing %q:\n%s", want, top)
		}
	}
	if strings.Index(top, "/remind") > strings.Index(top, "/stats") {
		t.Fatalf("owner-only commands should be listed last:\n%s", top)
	}

	detail := m.helpText([]string{"R"}, "$")
	if !strings.Contains(detail, "remind &lt;duration...&gt; &lt;text&gt;") || !strings.Contains(detail, "/r") {
		t.Fatalf("detail help:\n%s", detail)
	}
	if !strings.Contains(m.helpText([]string{"missing"}, ""), "Unknown command") {
		t.Fatalf("unknown help topic not reported")
	}
}

func TestBuildMenu(t *testing.T) {
	t.Parallel()
	noop := func(context.Context, *Request) error { return nil }
	root := newRoot()
	root.add([]string{"stats"}, Command{Route: "stats", Description: "Runtime stats", Access: AccessOwnerOnly, Handle: noop})
	root.add([]string{"remind"}, Command{Route: "remind", Description: "Set a\nreminder", Aliases: []string{"r"}, Handle: noop})
	root.add([]string{"reminders", "all"}, Command{Route: "reminders all", Handle: noop})

	menu := buildMenu(root)
	want := []transport.BotCommand{
		{Command: "remind", Description: "Set a reminder"},
		{Command: "reminders_all", Description: "reminders_all"},
		{Command: "stats", Description: "🔒 Runtime stats"},
	}
	if len(menu) != len(want) {
		t.Fatalf("menu = %+v", menu)
	}
	for i := range want {
		if menu[i] != want[i] {
			t.Fatalf("menu[%d] = %+v, want %+v", i, menu[i], want[i])
		}
	}
}
