package config

// Config is the on-disk configuration, YAML or JSON. Unknown keys are rejected.
//
// Durations are Go duration strings ("500ms", "10s", "2m").
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Reminders RemindersConfig `json:"reminders"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Debug     DebugConfig     `json:"debug,omitempty"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	PollTimeout  string  `json:"poll_timeout,omitempty"`

	// Workers is the number of concurrent command handlers (default 4).
	Workers int `json:"workers,omitempty"`
	// CommandTimeout bounds a single command handler (default 30s).
	CommandTimeout string `json:"command_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	Chat    LoggingChat `json:"chat"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingChat forwards warnings to an ops chat.
type LoggingChat struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// StorageConfig changes need a restart.
//
//	storage: { driver: sqlite, path: ./data/reminders.db, busy_timeout: 5s }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type RemindersConfig struct {
	// DefaultPrefix applies to groups without a stored prefix (default "$").
	DefaultPrefix string `json:"default_prefix,omitempty"`
	// DeliveryTimeout bounds one delivery attempt (default 15s).
	DeliveryTimeout string `json:"delivery_timeout,omitempty"`
	// DeliveryRatePerSec caps outgoing reminder messages (default 20).
	DeliveryRatePerSec int `json:"delivery_rate_per_sec,omitempty"`
	// Housekeeping is the schedule of store maintenance (default "0 */6 * * *").
	Housekeeping string `json:"housekeeping,omitempty"`
}

type SchedulerConfig struct {
	Timezone string `json:"timezone,omitempty"`
}

// DebugConfig serves pprof and Prometheus metrics over HTTP.
//
// A non-loopback Addr requires Token or AllowInsecure.
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default 127.0.0.1:6060
	Token         string `json:"token,omitempty"` // bearer token, never logged
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
}
