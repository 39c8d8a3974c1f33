package router

import (
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"
)

var ridSeq atomic.Uint64

// newReqID is short and roughly sortable: base36 time, sequence, 2 random chars.
func newReqID() string {
	n := ridSeq.Add(1)
	return base36(time.Now().UnixNano()) + "-" + base36(int64(n)) + randSuffix(2)
}

func randSuffix(n int) string {
	const alpha = "abcdefghijklmnopqrstuvwxyz0123456789"
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alpha[rand.IntN(len(alpha))])
	}
	return b.String()
}

func base36(v int64) string {
	const chars = "0123456789abcdefghijklmnopqrstuvwxyz"
	if v < 0 {
		v = -v
	}
	if v == 0 {
		return "0"
	}
	var out [32]byte
	i := len(out)
	for v > 0 {
		i--
		out[i] = chars[v%36]
		v /= 36
	}
	return string(out[i:])
}

// tokenizeCommandLine splits text into tokens, honoring quotes and
// backslash escapes:
//
//	a "b c" 'd'
func tokenizeCommandLine(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		out   []string
		buf   strings.Builder
		inQ   bool
		qChar byte
		esc   bool
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if esc {
			buf.WriteByte(ch)
			esc = false
			continue
		}
		if ch == '\\' {
			esc = true
			continue
		}
		if inQ {
			if ch == qChar {
				inQ = false
				continue
			}
			buf.WriteByte(ch)
			continue
		}
		switch ch {
		case '"', '\'':
			inQ = true
			qChar = ch
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			buf.WriteByte(ch)
		}
	}
	flush()
	return out
}

// invocation is a message that addresses the bot.
type invocation struct {
	prefix string
	word   string // lower-cased command name
	rest   string // raw text after the command word
}

// matchCommand finds the longest matching prefix (case-insensitive), then
// reads the command word after optional whitespace. "/cmd@other_bot" does not
// match when botUsername is set.
func matchCommand(text string, prefixes []string, botUsername string) (invocation, bool) {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)

	best := ""
	for _, p := range prefixes {
		if p == "" || len(p) > len(text) || len(p) <= len(best) {
			continue
		}
		if strings.EqualFold(text[:len(p)], p) {
			best = p
		}
	}
	if best == "" {
		return invocation{}, false
	}

	after := strings.TrimLeftFunc(text[len(best):], unicode.IsSpace)
	end := strings.IndexFunc(after, unicode.IsSpace)
	if end < 0 {
		end = len(after)
	}
	word := after[:end]
	if word == "" {
		return invocation{}, false
	}
	if i := strings.IndexByte(word, '@'); i >= 0 {
		target := word[i+1:]
		word = word[:i]
		if botUsername != "" && !strings.EqualFold(target, botUsername) {
			return invocation{}, false
		}
	}
	if word == "" || !utf8.ValidString(word) {
		return invocation{}, false
	}
	return invocation{
		prefix: text[:len(best)],
		word:   strings.ToLower(word),
		rest:   strings.TrimLeftFunc(after[end:], unicode.IsSpace),
	}, true
}

// isMentionOnly reports whether text is just "@botUsername".
func isMentionOnly(text, botUsername string) bool {
	if botUsername == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(text), "@"+botUsername)
}
