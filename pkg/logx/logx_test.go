package logx

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARNING ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in, zerolog.InfoLevel); got != tc.want {
			t.Fatalf("parseLevel(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatChatLine(t *testing.T) {
	t.Parallel()

	line := `{"level":"warn","time":"x","message":"delivery failed","reminder_id":7,"comp":"reminder"}`
	got := formatChatLine([]byte(line))
	want := "[WARN] delivery failed\n- comp=reminder\n- reminder_id=7"
	if got != want {
		t.Fatalf("formatChatLine:\n%q\nwant\n%q", got, want)
	}

	if got := formatChatLine([]byte("  not json \n")); got != "not json" {
		t.Fatalf("raw line: got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 50)
	if got := truncate(long, 20); len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate: got %q", got)
	}
	if got := truncate("short", 20); got != "short" {
		t.Fatalf("truncate short: got %q", got)
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()

	var l Logger
	if !l.IsZero() {
		t.Fatalf("zero logger should report IsZero")
	}
	l.With(String("k", "v")).Info("discarded")
	if Nop().IsZero() {
		t.Fatalf("Nop logger should not be zero")
	}
}
