// Package reminder schedules delayed notifications and keeps the in-memory
// registry consistent with the persisted reminders table.
//
// A Reminder is persisted before it is registered, and both delivery and
// cancellation run the same removal: delete the row, tombstone the registry
// slot, release the timer. Exactly one of them wins for a given reminder.
package reminder
