package router

import (
	"html"
	"sort"
	"strings"
)

// helpEntry is one runnable command reached through the tree.
type helpEntry struct {
	path []string
	cmd  *Command
}

func (e helpEntry) name() string { return strings.Join(e.path, " ") }

// collectEntries walks n depth-first and returns every node that carries a
// command, in name order.
func collectEntries(n *cmdNode, path []string) []helpEntry {
	if n == nil {
		return nil
	}
	var out []helpEntry
	if n.cmd != nil && len(path) > 0 {
		out = append(out, helpEntry{path: path, cmd: n.cmd})
	}
	for _, name := range n.childNames() {
		child, _ := n.child(name)
		next := append(append([]string(nil), path...), name)
		out = append(out, collectEntries(child, next)...)
	}
	return out
}

// sortEntries orders owner-only commands last, then by name.
func sortEntries(entries []helpEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		oi := entries[i].cmd.Access == AccessOwnerOnly
		oj := entries[j].cmd.Access == AccessOwnerOnly
		if oi != oj {
			return !oi
		}
		return entries[i].name() < entries[j].name()
	})
}

// helpText renders help in HTML parse mode. custom is the chat's own prefix,
// shown next to the always-available "/".
func (m *CommandManager) helpText(path []string, custom string) string {
	m.mu.RLock()
	root := m.root
	alias := m.alias
	m.mu.RUnlock()

	if len(path) == 0 {
		return helpTop(root, custom)
	}

	words := make([]string, len(path))
	for i, p := range path {
		words[i] = strings.ToLower(p)
	}
	node := root.find(words)
	if node == nil {
		node = alias[words[0]]
	}
	if node == nil {
		return helpUnknown()
	}
	if node.cmd != nil {
		return helpCommand(*node.cmd, custom)
	}
	entries := collectEntries(node, words)
	if len(entries) == 0 {
		return helpUnknown()
	}
	sortEntries(entries)
	lines := []string{"📚 <b>Help</b> <code>/" + html.EscapeString(strings.Join(words, " ")) + "</code>", ""}
	for _, e := range entries {
		lines = append(lines, entryLine(e))
	}
	return strings.Join(lines, "\n")
}

func helpUnknown() string {
	return "❓ <b>Unknown command</b>\nType <code>/help</code> to see the command list."
}

func helpTop(root *cmdNode, custom string) string {
	entries := collectEntries(root, nil)
	sortEntries(entries)

	lines := []string{
		"📚 <b>Commands</b>",
		"Type <code>/help &lt;cmd&gt;</code> for details.",
		"",
	}
	for _, e := range entries {
		lines = append(lines, entryLine(e))
	}
	if custom != "" && custom != "/" {
		lines = append(lines,
			"",
			"Commands also work with the <code>"+html.EscapeString(custom)+"</code> prefix in this chat.",
		)
	}
	return strings.Join(lines, "\n")
}

func entryLine(e helpEntry) string {
	var b strings.Builder
	b.WriteString("• ")
	if e.cmd.Access == AccessOwnerOnly {
		b.WriteString("🔒 ")
	}
	b.WriteString("<code>/" + html.EscapeString(e.name()) + "</code>")
	if d := strings.TrimSpace(e.cmd.Description); d != "" {
		b.WriteString(": " + html.EscapeString(d))
	}
	if e.cmd.GroupOnly {
		b.WriteString(" <i>(groups)</i>")
	}
	return b.String()
}

func helpCommand(c Command, custom string) string {
	route := strings.Join(splitRoute(c.Route), " ")
	lines := []string{"📚 <b>Help</b> <code>/" + html.EscapeString(route) + "</code>"}
	if d := strings.TrimSpace(c.Description); d != "" {
		lines = append(lines, html.EscapeString(d))
	}
	if c.Access == AccessOwnerOnly {
		lines = append(lines, "🔒 <i>Owner only</i>")
	}
	if c.GroupOnly {
		lines = append(lines, "👥 <i>Groups only</i>")
	}

	if usage := strings.TrimSpace(c.Usage); usage != "" {
		lines = append(lines, "", "<b>Usage</b>", "<code>/"+html.EscapeString(usage)+"</code>")
		if custom != "" && custom != "/" {
			lines = append(lines, "<code>"+html.EscapeString(custom+usage)+"</code>")
		}
	}

	if aliases := aliasNames(c); len(aliases) > 0 {
		lines = append(lines, "", "<b>Aliases</b>")
		for _, a := range aliases {
			lines = append(lines, "• <code>/"+html.EscapeString(a)+"</code>")
		}
	}
	return strings.Join(lines, "\n")
}

// aliasNames lists single-word aliases, lowercased and sorted.
func aliasNames(c Command) []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range c.Aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || strings.Contains(a, " ") || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
