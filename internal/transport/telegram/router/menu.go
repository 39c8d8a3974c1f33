package router

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"reminderbot/internal/transport"
)

// Bot API limits for setMyCommands.
const (
	maxMenuCommands   = 100
	maxMenuCommandLen = 32
	maxMenuDescRunes  = 256
)

// sanitizeTelegramCommand maps a route or alias onto [a-z0-9_]{1,32}, the
// only names the Bot API accepts. It returns "" when nothing usable is left.
func sanitizeTelegramCommand(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '/' || unicode.IsSpace(r):
			pending = true
		}
	}
	out := b.String()
	if out == "" {
		return ""
	}
	// Clients only link commands that start with a letter.
	if out[0] >= '0' && out[0] <= '9' {
		out = "cmd_" + out
	}
	if len(out) > maxMenuCommandLen {
		out = strings.TrimRight(out[:maxMenuCommandLen], "_")
	}
	return out
}

// menuDescription flattens d to one line within the description limit.
func menuDescription(d, fallback string) string {
	d = strings.Join(strings.Fields(d), " ")
	if d == "" {
		d = fallback
	}
	if utf8.RuneCountInString(d) > maxMenuDescRunes {
		d = string([]rune(d)[:maxMenuDescRunes])
	}
	return d
}

// buildMenu lists the commands shown in the client's "/" menu. Aliases stay
// out of it; owner-only commands are kept but marked.
func buildMenu(root *cmdNode) []transport.BotCommand {
	entries := collectEntries(root, nil)
	sortEntries(entries)

	seen := map[string]bool{}
	out := make([]transport.BotCommand, 0, len(entries))
	for _, e := range entries {
		name := sanitizeTelegramCommand(strings.Join(e.path, "_"))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		desc := menuDescription(e.cmd.Description, name)
		if e.cmd.Access == AccessOwnerOnly {
			desc = menuDescription("🔒 "+desc, name)
		}
		out = append(out, transport.BotCommand{Command: name, Description: desc})
		if len(out) == maxMenuCommands {
			break
		}
	}
	return out
}
