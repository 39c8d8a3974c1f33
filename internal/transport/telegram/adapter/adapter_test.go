package adapter

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"

	"reminderbot/internal/transport"
)

func TestSplitTelegramText(t *testing.T) {
	t.Parallel()

	if got := splitTelegramText("short", 10, ""); len(got) != 1 || got[0] != "short" {
		t.Fatalf("short=%q", got)
	}

	lines := strings.Repeat("aaaa\n", 10) // 50 runes
	got := splitTelegramText(lines, 20, "")
	for _, c := range got {
		if len([]rune(c)) > 20 {
			t.Fatalf("chunk too long: %q", c)
		}
		if strings.HasSuffix(c, "\n") || c == "" {
			t.Fatalf("bad chunk %q", c)
		}
	}
	if strings.Join(got, "\n") != strings.TrimRight(lines, "\n") {
		t.Fatalf("chunks lost text: %q", got)
	}

	html := strings.Repeat("x", 15) + "<b>bold</b>"
	for _, c := range splitTelegramText(html, 18, "HTML") {
		if strings.Count(c, "<") != strings.Count(c, ">") {
			t.Fatalf("split inside tag: %q", c)
		}
	}
}

func TestSplitTelegramTextKeepsEntities(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 3972) + strings.Repeat("&amp;", 40)
	chunks := splitTelegramText(text, telegramTextLimit, "HTML")
	if len(chunks) < 2 {
		t.Fatalf("want a split, got %d chunk(s)", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > telegramTextLimit {
			t.Fatalf("chunk %d has %d runes", i, len([]rune(c)))
		}
		if strings.Count(c, "&") != strings.Count(c, "&amp;") {
			t.Fatalf("chunk %d cuts an entity: head=%q tail=%q", i, c[:min(12, len(c))], c[max(0, len(c)-12):])
		}
	}
	if strings.Join(chunks, "") != text {
		t.Fatalf("chunks lost text")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{name: "api error", err: tele.NewError(400, "Bad Request: chat not found"), notFound: true},
		{name: "forbidden", err: tele.NewError(403, "Forbidden: bot was kicked"), notFound: true},
		{name: "plain bad request", err: fmt.Errorf("telegram: Bad Request: user not found (400)"), notFound: true},
		{name: "flood", err: fmt.Errorf("telegram: Too Many Requests: retry after 5 (429)")},
		{name: "network", err: errors.New("telebot: Post \"https://api.telegram.org\": dial tcp: timeout")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := classify(tc.err, "user", 42)
			if got := errors.Is(err, transport.ErrNotFound); got != tc.notFound {
				t.Fatalf("classify(%v) not found = %v, want %v", tc.err, got, tc.notFound)
			}
		})
	}
}

func TestMenuHashChangesWithCommands(t *testing.T) {
	t.Parallel()

	a := []transport.BotCommand{{Command: "remind", Description: "Add a reminder"}}
	b := []transport.BotCommand{{Command: "remind", Description: "Add a reminder!"}}
	if menuHash(a) == menuHash(b) {
		t.Fatalf("hash ignores description")
	}
	if menuHash(a) != menuHash(append([]transport.BotCommand(nil), a...)) {
		t.Fatalf("hash is not stable")
	}
}

func TestToTeleCommands(t *testing.T) {
	t.Parallel()

	cmds := []transport.BotCommand{
		{Command: "remind", Description: "Add a reminder"},
		{Command: ""},
		{Command: "list"},
		{Command: "help", Description: strings.Repeat("x", 300)},
	}
	got := toTeleCommands(cmds)
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3: %+v", len(got), got)
	}
	if got[0].Text != "remind" || got[0].Description != "Add a reminder" {
		t.Fatalf("first=%+v", got[0])
	}
	if got[1].Description != "list" {
		t.Fatalf("missing description not filled: %+v", got[1])
	}
	if len(got[2].Description) != maxMenuDescription {
		t.Fatalf("description len=%d, want %d", len(got[2].Description), maxMenuDescription)
	}

	many := make([]transport.BotCommand, 150)
	for i := range many {
		many[i] = transport.BotCommand{Command: fmt.Sprintf("c%d", i)}
	}
	if n := len(toTeleCommands(many)); n != maxMenuCommands {
		t.Fatalf("capped len=%d, want %d", n, maxMenuCommands)
	}
}
