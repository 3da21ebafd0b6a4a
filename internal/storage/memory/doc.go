// Package memory provides an in-process TTL cache backend for TabSess.
//
// The cache stores raw byte values in a sharded concurrent map and
// runs a background janitor that reclaims expired entries. Expiry is
// enforced lazily on read as well, so a Get between janitor sweeps
// never returns a stale entry.
package memory
