// Package domain defines the core domain models for TabSess.
package domain

// OpType identifies a transformation operation.
type OpType string

const (
	OpRenameColumn   OpType = "rename_column"
	OpChangeType     OpType = "change_type"
	OpFillMissing    OpType = "fill_missing"
	OpDropColumns    OpType = "drop_columns"
	OpSortRows       OpType = "sort_rows"
	OpDropDuplicates OpType = "drop_duplicates"
)

// KnownOpTypes lists every supported operation type.
var KnownOpTypes = []OpType{
	OpRenameColumn,
	OpChangeType,
	OpFillMissing,
	OpDropColumns,
	OpSortRows,
	OpDropDuplicates,
}

// ParseOpType parses an operation type name.
func ParseOpType(s string) (OpType, bool) {
	for _, t := range KnownOpTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// OperationRecord is one applied transformation in the history, in the
// format exposed for audit display.
type OperationRecord struct {
	// Index is the snapshot position this operation produced (1-based;
	// position 0 is the initial load and has no record).
	Index int `json:"index"`

	// Type is the operation type.
	Type OpType `json:"type"`

	// Params are the operation parameters as given by the caller.
	Params map[string]string `json:"params"`

	// Timestamp is when the operation was applied (Unix milliseconds).
	Timestamp int64 `json:"timestamp"`

	// Success is always true for retained records; failed operations are
	// never appended.
	Success bool `json:"success"`

	// RowsAffected counts the cells or rows the operation touched.
	RowsAffected int `json:"rows_affected"`

	// Warnings counts values lost during the operation (e.g. retype
	// coercion failures).
	Warnings int `json:"warnings"`

	// Snapshot describes the resulting snapshot.
	Snapshot SnapshotMeta `json:"snapshot"`
}

// SnapshotMeta describes a serialized dataset snapshot.
type SnapshotMeta struct {
	RowCount int    `json:"row_count"`
	ColCount int    `json:"col_count"`
	ByteSize int    `json:"byte_size"`
	Checksum string `json:"checksum"`
}

// History is the linear undo/redo state machine.
//
// Entries[i] produced snapshot position Base+i+1; snapshot position Base
// is the oldest retained state (0 until the retention window slides).
// Pointer addresses the active snapshot relative to Base and always stays
// within [0, len(Entries)].
type History struct {
	// Entries are the retained operations, oldest first.
	Entries []OperationRecord `json:"entries"`

	// Pointer is the active position: 0 means the base snapshot, i means
	// the state after Entries[i-1].
	Pointer int `json:"pointer"`

	// Base is the absolute snapshot position of the retained window start.
	Base int `json:"base"`
}

// Clone creates a deep copy of the history.
func (h *History) Clone() *History {
	entries := make([]OperationRecord, len(h.Entries))
	copy(entries, h.Entries)
	for i := range entries {
		if entries[i].Params != nil {
			params := make(map[string]string, len(entries[i].Params))
			for k, v := range entries[i].Params {
				params[k] = v
			}
			entries[i].Params = params
		}
	}
	return &History{Entries: entries, Pointer: h.Pointer, Base: h.Base}
}

// Len returns the number of retained operations.
func (h *History) Len() int { return len(h.Entries) }

// CanUndo reports whether an undo is possible.
func (h *History) CanUndo() bool { return h.Pointer > 0 }

// CanRedo reports whether a redo is possible.
func (h *History) CanRedo() bool { return h.Pointer < len(h.Entries) }

// ActivePosition returns the absolute snapshot position of the current
// state, used as the cache key suffix for the active snapshot.
func (h *History) ActivePosition() int { return h.Base + h.Pointer }

// Apply discards any entries beyond the pointer, appends the record, and
// advances the pointer. This is standard editor semantics: a new edit
// after an undo invalidates the redo tail.
func (h *History) Apply(rec OperationRecord) {
	h.Entries = append(h.Entries[:h.Pointer], rec)
	h.Pointer = len(h.Entries)
}

// Undo moves the pointer one step back without deleting forward entries.
func (h *History) Undo() error {
	if !h.CanUndo() {
		return ErrNothingToUndo
	}
	h.Pointer--
	return nil
}

// Redo moves the pointer one step forward.
func (h *History) Redo() error {
	if !h.CanRedo() {
		return ErrNothingToRedo
	}
	h.Pointer++
	return nil
}

// TrimBase drops the oldest n entries and shifts the retention window,
// returning the absolute snapshot positions that are no longer retained.
// Used to bound history depth; the pointer must sit past the trimmed
// region (callers only trim committed history).
func (h *History) TrimBase(n int) []int {
	if n <= 0 {
		return nil
	}
	if n > h.Pointer {
		n = h.Pointer
	}
	evicted := make([]int, 0, n)
	for i := 0; i < n; i++ {
		evicted = append(evicted, h.Base+i)
	}
	h.Entries = append([]OperationRecord(nil), h.Entries[n:]...)
	h.Pointer -= n
	h.Base += n
	return evicted
}

// ForwardPositions returns the absolute snapshot positions beyond the
// pointer, i.e. the redo tail a new apply will invalidate.
func (h *History) ForwardPositions() []int {
	var positions []int
	for i := h.Pointer; i < len(h.Entries); i++ {
		positions = append(positions, h.Base+i+1)
	}
	return positions
}
