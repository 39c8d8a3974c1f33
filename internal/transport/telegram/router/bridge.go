package router

import "reminderbot/internal/runtime/supervisor"

// Supervisor names are re-exported so command handlers and the app can
// share one vocabulary without importing the runtime package.
type (
	Supervisor    = supervisor.Supervisor
	RestartOption = supervisor.RestartOption
)

var (
	NewSupervisor     = supervisor.New
	WithLogger        = supervisor.WithLogger
	WithCancelOnError = supervisor.WithCancelOnError

	WithRestartBackoff    = supervisor.WithRestartBackoff
	WithPublishFirstError = supervisor.WithPublishFirstError
	WithStopOnCleanExit   = supervisor.WithStopOnCleanExit
)
