// Package service implements the TabSess application services.
//
// SessionService owns the session lifecycle: opening an editing
// session on a catalog dataset, applying transformations, walking the
// undo/redo history, and closing with an optional commit back to the
// catalog. All mutating operations run under a per-session lock and
// persist through optimistic version checks, so concurrent requests
// against one session serialize instead of losing updates.
//
// The storage interfaces are defined here, on the consumer side; the
// concrete implementations live in internal/storage.
package service
