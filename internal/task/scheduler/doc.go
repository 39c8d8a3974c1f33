// Package scheduler owns time in the bot.
//
// Clock abstracts one-shot timers so reminder delivery can be driven by a
// ManualClock in tests. Service registers periodic housekeeping jobs on a
// robfig/cron runner (cron specs, Go durations or HH:MM intervals).
package scheduler
