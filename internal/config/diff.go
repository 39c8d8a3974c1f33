package config

import (
	"slices"
	"sort"
	"strings"

	logx "reminderbot/pkg/logx"
)

// SummarizeChange lists the sections that differ between two configs and
// returns log fields describing the new values. Secrets are reported only as
// "set" flags.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	o, n := oldCfg, newCfg

	var changed []string
	var attrs []logx.Field

	if o.Telegram.Token != n.Telegram.Token ||
		!slices.Equal(o.Telegram.OwnerUserIDs, n.Telegram.OwnerUserIDs) ||
		o.Telegram.PollTimeout != n.Telegram.PollTimeout ||
		o.Telegram.Workers != n.Telegram.Workers ||
		o.Telegram.CommandTimeout != n.Telegram.CommandTimeout {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", o.Telegram.Token != n.Telegram.Token),
			logx.Int("telegram.owner_count", len(n.Telegram.OwnerUserIDs)),
			logx.Int("telegram.workers", n.Telegram.Workers),
		)
	}

	if o.Logging != n.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", n.Logging.Level),
			logx.Bool("logging.file", n.Logging.File.Enabled),
			logx.Bool("logging.chat", n.Logging.Chat.Enabled),
		)
	}

	if o.Storage != n.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(n.Storage.Driver)),
			logx.String("storage.busy_timeout", n.Storage.BusyTimeout),
		)
	}

	if o.Reminders != n.Reminders {
		changed = append(changed, "reminders")
		attrs = append(attrs,
			logx.String("reminders.default_prefix", n.Reminders.DefaultPrefix),
			logx.Int("reminders.delivery_rate_per_sec", n.Reminders.DeliveryRatePerSec),
			logx.String("reminders.housekeeping", n.Reminders.Housekeeping),
		)
	}

	if o.Scheduler != n.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs, logx.String("scheduler.timezone", n.Scheduler.Timezone))
	}

	if o.Debug != n.Debug {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.enabled", n.Debug.Enabled),
			logx.String("debug.addr", n.Debug.Addr),
			logx.Bool("debug.token_set", strings.TrimSpace(n.Debug.Token) != ""),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// NeedsRestart reports sections whose changes are not applied live.
func NeedsRestart(changed []string) []string {
	var out []string
	for _, s := range changed {
		if s == "storage" || s == "telegram" {
			out = append(out, s)
		}
	}
	return out
}
