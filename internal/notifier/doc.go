// Package notifier delivers fired reminders to chats.
//
// Deliveries are throttled by a shared token bucket so a burst of reminders
// that end at the same second stays under the platform's send limits. A
// failed send is reported to the caller once and never retried.
//
// The service keeps a short in-memory history of recent deliveries for the
// stats command.
package notifier
