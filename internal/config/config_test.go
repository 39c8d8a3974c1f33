package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  owner_user_ids: [42]
logging:
  level: debug
  console: true
storage:
  path: ./data/test.db
reminders:
  delivery_timeout: 10s
scheduler:
  timezone: UTC
`

func TestDecodeYAMLAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Decode("bot.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || len(cfg.Telegram.OwnerUserIDs) != 1 {
		t.Fatalf("telegram=%+v", cfg.Telegram)
	}
	if cfg.Reminders.DefaultPrefix != "$" || cfg.Storage.Driver != "sqlite" || cfg.Telegram.Workers != 4 {
		t.Fatalf("defaults not applied: %+v %+v", cfg.Reminders, cfg.Storage)
	}
	if got := DurationOr(cfg.Reminders.DeliveryTimeout, time.Second); got != 10*time.Second {
		t.Fatalf("delivery timeout=%v", got)
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		name string
		body string
		want string
	}{
		"unknown key":   {"bot.yaml", "telegram: {token: x}\nplugins: {}\n", "unknown field"},
		"missing token": {"bot.json", `{"telegram":{}}`, "telegram.token"},
		"bad duration":  {"bot.json", `{"telegram":{"token":"x","poll_timeout":"soon"}}`, "telegram.poll_timeout"},
		"trailing data": {"bot.json", `{"telegram":{"token":"x"}} {}`, "trailing data"},
		"long prefix":   {"bot.json", `{"telegram":{"token":"x"},"reminders":{"default_prefix":"` + strings.Repeat("!", 101) + `"}}`, "default_prefix"},
		"no chat id":    {"bot.json", `{"telegram":{"token":"x"},"logging":{"chat":{"enabled":true}}}`, "chat_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tc.name, []byte(tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err=%v want substring %q", err, tc.want)
			}
		})
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()

	a, err := Decode("a.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b := *a
	b.Logging.Level = "info"
	b.Storage.Path = "./other.db"

	changed, _ := SummarizeChange(a, &b)
	if strings.Join(changed, ",") != "logging,storage" {
		t.Fatalf("changed=%v", changed)
	}
	if r := NeedsRestart(changed); len(r) != 1 || r[0] != "storage" {
		t.Fatalf("NeedsRestart=%v", r)
	}
}

func TestWatchPublishesReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()
	time.Sleep(200 * time.Millisecond)

	updated := strings.Replace(sampleYAML, "level: debug", "level: warn", 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-sub:
		if cfg.Logging.Level != "warn" {
			t.Fatalf("level=%q", cfg.Logging.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload published")
	}
	if m.Get().Logging.Level != "warn" {
		t.Fatalf("reload not committed")
	}
}
