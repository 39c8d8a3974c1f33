// Package metrics holds the Prometheus collectors shared by the bot.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reminderbot"

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics groups every collector the bot exports.
type Metrics struct {
	// Reminder lifecycle
	RemindersPending  prometheus.Gauge
	RemindersCreated  prometheus.Counter
	RemindersCanceled prometheus.Counter
	RemindersPurged   prometheus.Counter
	Deliveries        *prometheus.CounterVec
	DeliveryLag       prometheus.Histogram

	// Command handling
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	UpdatesDropped  prometheus.Counter

	// Storage housekeeping
	MaintainRuns *prometheus.CounterVec
}

// Default returns the process-wide collectors, registering them on first use.
//
// Metrics:
//   - reminderbot_reminders_pending - reminders currently scheduled
//   - reminderbot_reminders_created_total - reminders scheduled (commands and replay)
//   - reminderbot_reminders_canceled_total - reminders canceled by their owner
//   - reminderbot_reminders_purged_total - rows dropped during replay
//   - reminderbot_deliveries_total{result} - delivery attempts by outcome
//   - reminderbot_delivery_lag_seconds - delay between end time and delivery
//   - reminderbot_commands_total{command,result} - handled commands
//   - reminderbot_command_duration_seconds{command} - handler latency
//   - reminderbot_updates_dropped_total - updates dropped on a full queue
//   - reminderbot_storage_maintain_total{result} - housekeeping runs
func Default() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RemindersPending: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reminders_pending",
				Help:      "Number of reminders currently scheduled",
			}),
			RemindersCreated: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_created_total",
				Help:      "Total number of reminders scheduled",
			}),
			RemindersCanceled: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_canceled_total",
				Help:      "Total number of reminders canceled by their owner",
			}),
			RemindersPurged: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_purged_total",
				Help:      "Total number of unresolvable rows dropped during replay",
			}),
			Deliveries: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "deliveries_total",
					Help:      "Total number of delivery attempts",
				},
				[]string{"result"}, // "ok" or "error"
			),
			DeliveryLag: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "delivery_lag_seconds",
				Help:      "Delay between a reminder's end time and its delivery",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
			}),
			Commands: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "commands_total",
					Help:      "Total number of handled commands",
				},
				[]string{"command", "result"}, // result: "ok", "user_error", "error"
			),
			CommandDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "command_duration_seconds",
					Help:      "Command handler latency in seconds",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"command"},
			),
			UpdatesDropped: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "updates_dropped_total",
				Help:      "Updates dropped because the dispatch queue was full",
			}),
			MaintainRuns: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "storage_maintain_total",
					Help:      "Storage housekeeping runs",
				},
				[]string{"result"},
			),
		}
	})
	return globalMetrics
}
