// Package storage provides the persistence layer for TabSess.
//
// The package defines the CacheClient abstraction (a TTL-aware
// key-value cache), the SessionStore built on top of it, and the
// snapshot codec used to serialize dataset frames. Two cache
// backends are provided:
//
//   - memory: in-process sharded cache with a background janitor
//   - BadgerCache: embedded BadgerDB with native entry TTLs
//
// Session records and frame snapshots are stored as separate cache
// entries that share the session's sliding TTL, so an expired
// session and its snapshots disappear together.
package storage
