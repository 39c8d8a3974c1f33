package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"reminderbot/internal/commands"
	"reminderbot/internal/config"
	"reminderbot/internal/eventbus"
	"reminderbot/internal/metrics"
	"reminderbot/internal/notifier"
	"reminderbot/internal/observability/debug"
	"reminderbot/internal/prefix"
	"reminderbot/internal/reminder"
	"reminderbot/internal/storage"
	"reminderbot/internal/task/scheduler"
	"reminderbot/internal/transport"
	telegram "reminderbot/internal/transport/telegram/adapter"
	"reminderbot/internal/transport/telegram/router"
	logx "reminderbot/pkg/logx"
)

const housekeepingJob = "storage.housekeeping"

type App struct {
	cfgm *config.Manager
	sup  *router.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	adapter *telegram.Adapter

	prefixes  *prefix.Map
	notif     *notifier.Service
	reminders *reminder.Service
	sched     *scheduler.Service
	debug     *debug.Server

	cmdm *router.CommandManager
	mod  *commands.Module
	sups *router.SupervisorRegistry

	startedAt time.Time
	updates   chan transport.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: config.DurationOr(cfg.Telegram.PollTimeout, defaultPollTimeout),
	}, bootLog)
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(mapLogConfig(cfg), ad)
	bus := eventbus.New()

	store, err := storage.Open(mapStorageConfig(cfg), log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	prefixes := prefix.New(store, cfg.Reminders.DefaultPrefix, log)
	notif := notifier.New(mapNotifierConfig(cfg), ad, log.With(logx.String("comp", "notifier")), bus)
	reminders := reminder.NewService(reminder.Options{
		Store:           store,
		Sink:            notif,
		Clock:           scheduler.System(),
		Bus:             bus,
		Log:             log,
		DeliveryTimeout: deliveryTimeout(cfg),
	})
	sched := scheduler.New(scheduler.Config{Timezone: cfg.Scheduler.Timezone}, log.With(logx.String("comp", "scheduler")))
	dbg := debug.New(mapDebugConfig(cfg), func(ctx context.Context) error {
		_, err := ad.Ping(ctx)
		return err
	}, log.With(logx.String("comp", "debug")))

	sups := router.NewSupervisorRegistry()
	cmdm := router.NewCommandManager(router.Options{
		Log:         log.With(logx.String("comp", "router")),
		Adapter:     ad,
		Identity:    ad,
		Prefixes:    prefixes,
		Owners:      cfg.Telegram.OwnerUserIDs,
		Workers:     cfg.Telegram.Workers,
		Timeout:     commandTimeout(cfg),
		Supervisors: sups,
	})

	startedAt := time.Now()
	mod := commands.New(commands.Deps{
		Reminders:   reminders,
		Prefixes:    prefixes,
		Directory:   ad,
		Audit:       store,
		Pinger:      ad,
		History:     notif,
		Supervisors: sups,
		StartedAt:   startedAt,
		Log:         log.With(logx.String("comp", "commands")),
	})

	return &App{
		cfgm:      cfgm,
		log:       log,
		logs:      logs,
		bus:       bus,
		store:     store,
		adapter:   ad,
		prefixes:  prefixes,
		notif:     notif,
		reminders: reminders,
		sched:     sched,
		debug:     dbg,
		cmdm:      cmdm,
		mod:       mod,
		sups:      sups,
		startedAt: startedAt,
		updates:   make(chan transport.Update, 256),
	}, nil
}

// Done is closed when the app supervisor stops.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = router.NewSupervisor(ctx, router.WithLogger(a.log), router.WithCancelOnError(true))
	a.cmdm.SetAppSupervisor(a.sup)
	a.sups.Set("app", a.sup)

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validateReload(cfg)
	})

	if err := a.prefixes.Load(ctx); err != nil {
		return fmt.Errorf("load prefixes: %w", err)
	}

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	if sup := a.adapter.Supervisor(); sup != nil {
		a.sups.Set("telegram.adapter", sup)
	}

	// Replay before dispatch so commands never see a half-built registry.
	report, err := a.reminders.Replay(ctx, a.adapter)
	if err != nil {
		return fmt.Errorf("replay reminders: %w", err)
	}

	cfg := a.cfgm.Get()
	if err := a.scheduleHousekeeping(cfg.Reminders.Housekeeping); err != nil {
		a.log.Warn("housekeeping not scheduled", logx.Err(err))
	}
	a.sched.Start(a.sup.Context())

	a.debug.Reconfigure(a.sup.Context(), mapDebugConfig(cfg))
	if sup := a.debug.Supervisor(); sup != nil {
		a.sups.Set("debug", sup)
	}

	a.cmdm.SetRegistry(a.mod.Commands(), a.mod.Callbacks())
	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.logEvent(e)
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify ready failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}

	a.log.Info("app started",
		logx.String("bot", a.adapter.Self().Username),
		logx.Int("pending", report.Scheduled),
		logx.Int("purged", report.Purged),
	)
	return nil
}

func (a *App) logEvent(e eventbus.Event) {
	fields := []logx.Field{logx.String("type", e.Type), logx.Time("time", e.Time)}
	if ev, ok := e.Data.(reminder.Event); ok {
		fields = append(fields,
			logx.Int("id", ev.ID),
			logx.String("message_id", ev.MessageID),
			logx.Int64("user_id", ev.UserID),
		)
		if ev.Err != nil {
			fields = append(fields, logx.Err(ev.Err))
		}
	}
	a.log.Debug("event", fields...)
}

func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	for _, s := range config.NeedsRestart(sections) {
		a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
	}

	a.logs.Apply(mapLogConfig(newCfg))
	a.cmdm.SetOwners(newCfg.Telegram.OwnerUserIDs)
	a.cmdm.SetTimeout(commandTimeout(newCfg))
	a.notif.Apply(mapNotifierConfig(newCfg))
	a.reminders.SetDeliveryTimeout(deliveryTimeout(newCfg))
	a.prefixes.SetDefault(newCfg.Reminders.DefaultPrefix)

	a.sched.Apply(scheduler.Config{Timezone: newCfg.Scheduler.Timezone})
	if oldCfg == nil || oldCfg.Reminders.Housekeeping != newCfg.Reminders.Housekeeping {
		if err := a.scheduleHousekeeping(newCfg.Reminders.Housekeeping); err != nil {
			a.log.Warn("invalid housekeeping schedule; keeping previous", logx.Err(err))
		}
	}

	a.debug.Reconfigure(ctx, mapDebugConfig(newCfg))
	a.sups.Set("debug", a.debug.Supervisor())

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) scheduleHousekeeping(spec string) error {
	return a.sched.AddSchedule(housekeepingJob, spec, housekeepingTimeout, a.housekeeping)
}

// housekeeping checkpoints the store and resyncs the pending gauge with the
// registry.
func (a *App) housekeeping(ctx context.Context) error {
	m := metrics.Default()
	if err := a.store.Maintain(ctx); err != nil {
		m.MaintainRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("maintain store: %w", err)
	}
	m.MaintainRuns.WithLabelValues("ok").Inc()
	m.RemindersPending.Set(float64(a.reminders.Stats().Live))
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		a.log.Debug("sd_notify stopping failed", logx.Err(err))
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sup.Cancel()

	// Each step is bounded so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
				return
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("max", max),
			)
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	// Timers are detached, rows stay for the next replay.
	step("reminders", 3*time.Second, func(c context.Context) error { return a.reminders.Stop(c) })
	step("debug", 1*time.Second, func(c context.Context) error { a.debug.Stop(c); return nil })
	step("adapter", 3*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("storage", 1*time.Second, func(c context.Context) error { return a.store.Close() })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped", logx.String("reason", string(reason)), logx.Duration("uptime", time.Since(a.startedAt)))
	return a.logs.Close()
}
