package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"reminderbot/internal/transport/telegram/router"
	logx "reminderbot/pkg/logx"
	"reminderbot/pkg/tgui"
)

func (m *Module) cmdInfo(ctx context.Context, req *router.Request) error {
	b := tgui.New().
		Title("ℹ️", "Info for Reminder Friend!").
		Line("This bot sets reminders for you!").
		Blank().
		KV("Bot Uptime", formatUptime(time.Since(m.started)))

	if m.pinger != nil {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rtt, err := m.pinger.Ping(pctx)
		cancel()
		if err != nil {
			req.Logger.Debug("ping failed", logx.Err(err))
			b.KV("Ping", "unavailable")
		} else {
			b.KV("Ping", strconv.FormatInt(rtt.Milliseconds(), 10)+" ms")
		}
	}
	_, err := req.Reply(ctx, b.Build())
	return err
}

// formatUptime renders d as "3 days, 4:05:06", truncated to seconds.
func formatUptime(d time.Duration) string {
	secs := int64(max(d, 0) / time.Second)
	days := secs / 86_400
	secs %= 86_400
	clock := fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	}
	return strconv.FormatInt(days, 10) + " days, " + clock
}

func (m *Module) cmdStats(ctx context.Context, req *router.Request) error {
	st := m.svc.Stats()
	b := tgui.New().
		Title("📊", "Stats").
		KV("Pending reminders", strconv.Itoa(st.Live)).
		KV("Ids issued", strconv.Itoa(st.HighWater)).
		KV("Custom prefixes", strconv.Itoa(m.prefixes.Len())).
		KV("Uptime", formatUptime(time.Since(m.started)))

	if names := m.sups.Names(); len(names) > 0 {
		b.Blank().HTML(tgui.B("Supervisors"))
		snap := m.sups.Snapshot()
		for _, name := range names {
			c := snap[name].Counters()
			b.HTML(tgui.Code(name) + tgui.Esc(fmt.Sprintf(": %d active, %d started", c.Active, c.Started)))
		}
	}

	if m.history != nil {
		hist := m.history.Snapshot()
		if n := len(hist); n > 0 {
			b.Blank().HTML(tgui.B("Recent deliveries"))
			for _, it := range hist[max(n-5, 0):] {
				status := "ok"
				if it.Err != "" {
					status = "failed: " + tgui.TruncRunes(it.Err, 80)
				}
				b.Line(fmt.Sprintf("#%d at %s %s", it.ID, it.At.UTC().Format(time.TimeOnly), status))
			}
		}
	}
	_, err := req.Reply(ctx, b.Build())
	return err
}
