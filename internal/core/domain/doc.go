// Package domain defines the core domain models for TabSess.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - Session: bounded-lifetime editing session over one dataset
//   - Frame: schema-tagged column store with typed values
//   - History: linear undo/redo operation history
//   - Dataset: durable dataset catalog records
//   - Errors: domain-specific error definitions
//
// Frame operations are pure: they never mutate their receiver and the
// same input always produces the same output, which is what makes
// snapshot-based undo/redo safe.
package domain
