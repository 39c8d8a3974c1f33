// Package storage is the durable state of the bot: outstanding reminders,
// per-group command prefixes and an audit trail of user actions.
//
// Every mutation is a single autocommitted statement, so a change is durable
// as soon as the call returns.
package storage
