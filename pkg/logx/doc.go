// Package logx is the structured logging layer of reminderbot.
//
// Logger is a thin value type over zerolog. Loggers derived from a Service
// follow Service.Apply, so level and sink changes from a config reload reach
// every component without re-wiring:
//   - console output keeps a short timestamp and file:line caller
//   - the optional file sink writes JSON lines
//   - the optional chat sink forwards warnings to an ops chat, rate limited
package logx
