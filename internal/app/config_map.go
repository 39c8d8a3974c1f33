package app

import (
	"fmt"
	"strings"
	"time"

	"reminderbot/internal/config"
	"reminderbot/internal/notifier"
	"reminderbot/internal/observability/debug"
	"reminderbot/internal/storage"
	"reminderbot/internal/task/scheduler"
	logx "reminderbot/pkg/logx"
)

const (
	defaultPollTimeout     = 10 * time.Second
	defaultCommandTimeout  = 30 * time.Second
	defaultDeliveryTimeout = 15 * time.Second
	defaultBusyTimeout     = 5 * time.Second
	housekeepingTimeout    = 2 * time.Minute
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Chat.Enabled,
			ChatID:     cfg.Logging.Chat.ChatID,
			ThreadID:   cfg.Logging.Chat.ThreadID,
			MinLevel:   cfg.Logging.Chat.MinLevel,
			RatePerSec: cfg.Logging.Chat.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)),
		Path:        strings.TrimSpace(cfg.Storage.Path),
		BusyTimeout: config.DurationOr(cfg.Storage.BusyTimeout, defaultBusyTimeout),
	}
}

func mapNotifierConfig(cfg *config.Config) notifier.Config {
	return notifier.Config{
		RatePerSec: cfg.Reminders.DeliveryRatePerSec,
		Timeout:    deliveryTimeout(cfg),
	}
}

func deliveryTimeout(cfg *config.Config) time.Duration {
	return config.DurationOr(cfg.Reminders.DeliveryTimeout, defaultDeliveryTimeout)
}

func commandTimeout(cfg *config.Config) time.Duration {
	return config.DurationOr(cfg.Telegram.CommandTimeout, defaultCommandTimeout)
}

func mapDebugConfig(cfg *config.Config) debug.Config {
	return debug.Config{
		Enabled:       cfg.Debug.Enabled,
		Addr:          cfg.Debug.Addr,
		Token:         cfg.Debug.Token,
		AllowInsecure: cfg.Debug.AllowInsecure,
	}
}

// validateReload rejects reloads that would only fail later, when applied.
func validateReload(cfg *config.Config) error {
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	if _, err := scheduler.ParseSchedule(cfg.Reminders.Housekeeping); err != nil {
		return fmt.Errorf("reminders.housekeeping: %w", err)
	}
	return nil
}
