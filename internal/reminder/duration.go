package reminder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Unit is a named number of seconds.
type Unit struct {
	Name    string
	Seconds int64
}

var (
	Second = Unit{"second", 1}
	Minute = Unit{"minute", 60}
	Hour   = Unit{"hour", 3600}
	Day    = Unit{"day", 86_400}
	Week   = Unit{"week", 604_800}
	Month  = Unit{"month", 2_592_000}
	Year   = Unit{"year", 31_536_000}
)

// MaxSeconds caps the total of a parsed duration.
const MaxSeconds = 100 * 31_536_000

var unitAliases = map[string]Unit{}

func init() {
	for _, u := range []struct {
		unit    Unit
		aliases []string
	}{
		{Second, []string{"s", "sec", "secs", "second", "seconds"}},
		{Minute, []string{"m", "min", "mins", "minute", "minutes"}},
		{Hour, []string{"h", "hr", "hrs", "hour", "hours"}},
		{Day, []string{"d", "day", "days"}},
		{Week, []string{"w", "wk", "wks", "week", "weeks"}},
		{Month, []string{"mo", "mos", "month", "months"}},
		{Year, []string{"y", "yr", "yrs", "year", "years"}},
	} {
		for _, a := range u.aliases {
			unitAliases[a] = u.unit
		}
	}
}

// LookupUnit resolves a unit name or abbreviation, case-insensitively.
func LookupUnit(s string) (Unit, bool) {
	u, ok := unitAliases[strings.ToLower(s)]
	return u, ok
}

// Span is one "<amount><unit>" term.
type Span struct {
	Amount int64
	Unit   Unit
}

func (s Span) Seconds() int64 { return s.Amount * s.Unit.Seconds }

// String renders "1 hour" or "5 hours".
func (s Span) String() string {
	name := s.Unit.Name
	if s.Amount != 1 {
		name += "s"
	}
	return fmt.Sprintf("%d %s", s.Amount, name)
}

// Duration is the ordered list of terms a user typed.
type Duration []Span

func (d Duration) Seconds() int64 {
	var n int64
	for _, s := range d {
		n += s.Seconds()
	}
	return n
}

func (d Duration) Std() time.Duration { return time.Duration(d.Seconds()) * time.Second }

// String renders "5 hours, 30 minutes".
func (d Duration) String() string {
	parts := make([]string, len(d))
	for i, s := range d {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

var spanRe = regexp.MustCompile(`^(\d+)([a-zA-Z]+)$`)

// fillers are consumed between duration terms, as in "in 5 minutes".
func isFiller(tok string) bool {
	switch strings.ToLower(tok) {
	case "in", "me", "":
		return true
	}
	return false
}

// ParseDuration consumes leading duration terms from s and returns them with
// the untouched remainder. Terms are "5m", "2hours" or "2 hours"; commas
// are ignored. Parsing stops at the first token that is not a term.
func ParseDuration(s string) (Duration, string, error) {
	var (
		out  Duration
		off  int
		seen = map[string]bool{}
		dup  bool
	)
	for {
		tok, end := nextField(s, off)
		if end == off {
			break
		}
		tok = strings.ReplaceAll(tok, ",", "")
		if isFiller(tok) {
			off = end
			continue
		}

		sp, next, ok := parseSpan(s, tok, end)
		if !ok {
			break
		}
		if sp.Amount == 0 {
			return nil, "", errZeroAmount
		}
		if sp.Amount > MaxSeconds/sp.Unit.Seconds {
			return nil, "", errDurationTooLong
		}
		if seen[sp.Unit.Name] {
			dup = true
		}
		seen[sp.Unit.Name] = true
		out = append(out, sp)
		off = next
	}

	if len(out) == 0 {
		return nil, "", errNoDuration
	}
	if dup {
		return nil, "", errDuplicateUnits
	}
	if out.Seconds() > MaxSeconds {
		return nil, "", errDurationTooLong
	}
	return out, strings.TrimSpace(s[off:]), nil
}

// parseSpan reads one term starting with tok (already comma-stripped). A bare
// number may take its unit from the following field.
func parseSpan(s, tok string, end int) (Span, int, bool) {
	if m := spanRe.FindStringSubmatch(tok); m != nil {
		u, ok := LookupUnit(m[2])
		if !ok {
			return Span{}, 0, false
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return Span{}, 0, false
		}
		return Span{Amount: n, Unit: u}, end, true
	}

	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil || n < 0 {
		return Span{}, 0, false
	}
	unitTok, unitEnd := nextField(s, end)
	if unitEnd == end {
		return Span{}, 0, false
	}
	u, ok := LookupUnit(strings.ReplaceAll(unitTok, ",", ""))
	if !ok {
		return Span{}, 0, false
	}
	return Span{Amount: n, Unit: u}, unitEnd, true
}

// nextField returns the next whitespace-delimited field at or after off and
// the offset just past it. end == off means there is none.
func nextField(s string, off int) (string, int) {
	start := off
	for start < len(s) && isSpace(s[start]) {
		start++
	}
	if start == len(s) {
		return "", off
	}
	end := start
	for end < len(s) && !isSpace(s[end]) {
		end++
	}
	return s[start:end], end
}

func isSpace(b byte) bool { return b < 0x80 && unicode.IsSpace(rune(b)) }
