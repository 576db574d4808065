// Package store provides persistent storage for the gateway using SQLite.
//
// # Architecture
//
// The Store interface covers the three durable entities the message pipeline
// depends on:
//
//   - User: durable identity, resolved at connect time
//   - Room: named group of users exchanging messages
//   - Message: immutable room messages, ordered by creation time
//
// SQLiteStore implements the interface with automatic schema creation and WAL
// mode enabled. Concurrent pipeline invocations touching the same room are
// serialized by the database handle; the store never reorders messages away
// from creation-time ascending.
package store
