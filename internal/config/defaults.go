package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	DefaultPrefix       = "$"
	DefaultHousekeeping = "0 */6 * * *"
	DefaultDebugAddr    = "127.0.0.1:6060"
	MaxPrefixLen        = 100
)

// ApplyDefaults fills zero values in place.
func (c *Config) ApplyDefaults() {
	if c.Telegram.Workers <= 0 {
		c.Telegram.Workers = 4
	}
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = "sqlite"
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "./data/reminders.db"
	}
	if c.Reminders.DefaultPrefix == "" {
		c.Reminders.DefaultPrefix = DefaultPrefix
	}
	if c.Reminders.DeliveryRatePerSec <= 0 {
		c.Reminders.DeliveryRatePerSec = 20
	}
	if strings.TrimSpace(c.Reminders.Housekeeping) == "" {
		c.Reminders.Housekeeping = DefaultHousekeeping
	}
	if c.Debug.Addr == "" {
		c.Debug.Addr = DefaultDebugAddr
	}
}

// Validate reports every problem at once, joined.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	for path, raw := range map[string]string{
		"telegram.poll_timeout":      c.Telegram.PollTimeout,
		"telegram.command_timeout":   c.Telegram.CommandTimeout,
		"storage.busy_timeout":       c.Storage.BusyTimeout,
		"reminders.delivery_timeout": c.Reminders.DeliveryTimeout,
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}
	if n := utf8.RuneCountInString(c.Reminders.DefaultPrefix); n > MaxPrefixLen {
		errs = append(errs, fmt.Errorf("reminders.default_prefix: %d characters, max %d", n, MaxPrefixLen))
	}
	if strings.TrimSpace(c.Reminders.DefaultPrefix) != c.Reminders.DefaultPrefix {
		errs = append(errs, errors.New("reminders.default_prefix must not start or end with whitespace"))
	}
	if c.Logging.Chat.Enabled && c.Logging.Chat.ChatID == 0 {
		errs = append(errs, errors.New("logging.chat.chat_id is required when logging.chat is enabled"))
	}
	return errors.Join(errs...)
}
