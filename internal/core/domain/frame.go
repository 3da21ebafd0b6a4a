// Package domain defines the core domain models for TabSess.
package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Column is a named, typed slice of values. All columns of a Frame hold
// the same number of values.
type Column struct {
	Name   string
	Type   ColumnType
	Values []Value
}

// ColumnSpec describes one column in a schema manifest.
type ColumnSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// Frame is an immutable, schema-tagged column store. Operations return a
// new Frame and never mutate the receiver; two Frames produced by the
// same operation on the same input are deeply equal.
type Frame struct {
	Columns []Column
}

// FillStrategy identifies a fill_missing strategy.
type FillStrategy string

const (
	FillConstant FillStrategy = "constant"
	FillMean     FillStrategy = "mean"
	FillMedian   FillStrategy = "median"
	FillMode     FillStrategy = "mode"
)

// ParseFillStrategy parses a fill strategy name.
func ParseFillStrategy(s string) (FillStrategy, bool) {
	switch FillStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case FillConstant:
		return FillConstant, true
	case FillMean:
		return FillMean, true
	case FillMedian:
		return FillMedian, true
	case FillMode:
		return FillMode, true
	}
	return "", false
}

// NumRows returns the row count.
func (f *Frame) NumRows() int {
	if len(f.Columns) == 0 {
		return 0
	}
	return len(f.Columns[0].Values)
}

// NumCols returns the column count.
func (f *Frame) NumCols() int {
	return len(f.Columns)
}

// ColumnIndex returns the position of the named column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i := range f.Columns {
		if f.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// Schema returns the schema manifest in column order. A column is marked
// nullable when it currently holds at least one missing value.
func (f *Frame) Schema() []ColumnSpec {
	specs := make([]ColumnSpec, 0, len(f.Columns))
	for i := range f.Columns {
		col := &f.Columns[i]
		nullable := false
		for _, v := range col.Values {
			if v.Null {
				nullable = true
				break
			}
		}
		specs = append(specs, ColumnSpec{
			Name:     col.Name,
			Type:     col.Type.String(),
			Nullable: nullable,
		})
	}
	return specs
}

// Clone creates a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{Columns: make([]Column, len(f.Columns))}
	for i := range f.Columns {
		values := make([]Value, len(f.Columns[i].Values))
		copy(values, f.Columns[i].Values)
		out.Columns[i] = Column{
			Name:   f.Columns[i].Name,
			Type:   f.Columns[i].Type,
			Values: values,
		}
	}
	return out
}

// Equal reports whether two frames have identical schemas and values.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	if len(f.Columns) != len(o.Columns) {
		return false
	}
	for i := range f.Columns {
		a, b := &f.Columns[i], &o.Columns[i]
		if a.Name != b.Name || a.Type != b.Type || len(a.Values) != len(b.Values) {
			return false
		}
		for j := range a.Values {
			if !a.Values[j].Equal(b.Values[j]) {
				return false
			}
		}
	}
	return true
}

// Validate checks structural integrity: unique non-empty column names,
// equal column lengths, and values matching their column type.
func (f *Frame) Validate() error {
	seen := make(map[string]struct{}, len(f.Columns))
	rows := -1
	for i := range f.Columns {
		col := &f.Columns[i]
		if col.Name == "" {
			return ErrValidation.WithDetails("column name must not be empty")
		}
		if _, dup := seen[col.Name]; dup {
			return ErrValidation.WithDetails("duplicate column name: " + col.Name)
		}
		seen[col.Name] = struct{}{}
		if rows == -1 {
			rows = len(col.Values)
		} else if len(col.Values) != rows {
			return ErrValidation.WithDetails(fmt.Sprintf(
				"column %q has %d values, expected %d", col.Name, len(col.Values), rows))
		}
		for _, v := range col.Values {
			if v.Kind != col.Type {
				return ErrValidation.WithDetails(fmt.Sprintf(
					"column %q holds a %s value but is typed %s",
					col.Name, v.Kind, col.Type))
			}
		}
	}
	return nil
}

// RenameColumn returns a frame with the column renamed.
func (f *Frame) RenameColumn(oldName, newName string) (*Frame, error) {
	if oldName == "" || newName == "" {
		return nil, ErrValidation.WithDetails("old and new column names are required")
	}
	idx := f.ColumnIndex(oldName)
	if idx < 0 {
		return nil, ErrValidation.WithDetails("no such column: " + oldName)
	}
	if oldName != newName && f.ColumnIndex(newName) >= 0 {
		return nil, ErrValidation.WithDetails("column already exists: " + newName)
	}

	out := f.Clone()
	out.Columns[idx].Name = newName
	return out, nil
}

// ConvertColumn returns a frame with the column retyped.
//
// Values that fail per-value coercion become missing and are counted as
// warnings; the operation itself never fails on unconvertible values.
func (f *Frame) ConvertColumn(name string, to ColumnType) (*Frame, int, int, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, 0, 0, ErrValidation.WithDetails("no such column: " + name)
	}

	out := f.Clone()
	col := &out.Columns[idx]
	converted, warnings := 0, 0
	for i, v := range col.Values {
		coerced, ok := Coerce(v, to)
		if !ok {
			col.Values[i] = NullValue(to)
			warnings++
			continue
		}
		col.Values[i] = coerced
		if !v.Null {
			converted++
		}
	}
	col.Type = to
	return out, converted, warnings, nil
}

// FillMissing returns a frame with the column's missing values filled
// according to the strategy. Numeric-only strategies (mean, median) fail
// on non-numeric columns.
func (f *Frame) FillMissing(name string, strategy FillStrategy, constant string) (*Frame, int, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, 0, ErrValidation.WithDetails("no such column: " + name)
	}
	col := &f.Columns[idx]

	var fill Value
	promote := false

	switch strategy {
	case FillConstant:
		v, err := DecodeValue(col.Type, constant)
		if err != nil {
			return nil, 0, ErrValidation.WithDetails(fmt.Sprintf(
				"constant %q is not a valid %s", constant, col.Type))
		}
		fill = v

	case FillMean, FillMedian:
		if !col.Type.IsNumeric() {
			return nil, 0, ErrTransformation.WithDetails(fmt.Sprintf(
				"strategy %s requires a numeric column, %q is %s", strategy, name, col.Type))
		}
		agg, err := numericAggregate(col, strategy)
		if err != nil {
			return nil, 0, err
		}
		if col.Type == TypeInt64 {
			// An int64 column keeps its type when the aggregate is exact;
			// a fractional aggregate promotes the column to float64.
			if rounded, ok := Coerce(Float64Value(agg), TypeInt64); ok {
				fill = rounded
			} else {
				promote = true
				fill = Float64Value(agg)
			}
		} else {
			fill = Float64Value(agg)
		}

	case FillMode:
		v, err := modeValue(col)
		if err != nil {
			return nil, 0, err
		}
		fill = v

	default:
		return nil, 0, ErrValidation.WithDetails("unknown fill strategy: " + string(strategy))
	}

	out := f.Clone()
	target := &out.Columns[idx]
	if promote {
		for i, v := range target.Values {
			coerced, _ := Coerce(v, TypeFloat64)
			target.Values[i] = coerced
		}
		target.Type = TypeFloat64
	}

	filled := 0
	for i, v := range target.Values {
		if v.Null {
			target.Values[i] = fill
			filled++
		}
	}
	return out, filled, nil
}

// numericAggregate computes mean or median over a column's non-null values.
func numericAggregate(col *Column, strategy FillStrategy) (float64, error) {
	var nums []float64
	for _, v := range col.Values {
		if v.Null {
			continue
		}
		if col.Type == TypeInt64 {
			nums = append(nums, float64(v.I64))
		} else {
			nums = append(nums, v.F64)
		}
	}
	if len(nums) == 0 {
		return 0, ErrTransformation.WithDetails(fmt.Sprintf(
			"column %q has no values to aggregate", col.Name))
	}

	if strategy == FillMean {
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		return sum / float64(len(nums)), nil
	}

	sort.Float64s(nums)
	mid := len(nums) / 2
	if len(nums)%2 == 1 {
		return nums[mid], nil
	}
	return (nums[mid-1] + nums[mid]) / 2, nil
}

// modeValue returns the most frequent non-null value. Ties break toward
// the value seen first, which keeps the operation deterministic.
func modeValue(col *Column) (Value, error) {
	counts := make(map[string]int)
	first := make(map[string]int)
	order := 0
	bestKey := ""
	bestCount := 0
	values := make(map[string]Value)

	for _, v := range col.Values {
		if v.Null {
			continue
		}
		key := v.EncodeString()
		if _, seen := counts[key]; !seen {
			first[key] = order
			values[key] = v
		}
		order++
		counts[key]++
		if counts[key] > bestCount ||
			(counts[key] == bestCount && first[key] < first[bestKey]) {
			bestKey = key
			bestCount = counts[key]
		}
	}
	if bestCount == 0 {
		return Value{}, ErrTransformation.WithDetails(fmt.Sprintf(
			"column %q has no values to aggregate", col.Name))
	}
	return values[bestKey], nil
}

// DropColumns returns a frame without the named columns. Dropping every
// column is rejected.
func (f *Frame) DropColumns(names []string) (*Frame, error) {
	if len(names) == 0 {
		return nil, ErrValidation.WithDetails("no columns given")
	}
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		if f.ColumnIndex(name) < 0 {
			return nil, ErrValidation.WithDetails("no such column: " + name)
		}
		drop[name] = struct{}{}
	}
	if len(drop) >= len(f.Columns) {
		return nil, ErrValidation.WithDetails("dropping all columns would leave an empty dataset")
	}

	out := &Frame{Columns: make([]Column, 0, len(f.Columns)-len(drop))}
	for i := range f.Columns {
		if _, gone := drop[f.Columns[i].Name]; gone {
			continue
		}
		values := make([]Value, len(f.Columns[i].Values))
		copy(values, f.Columns[i].Values)
		out.Columns = append(out.Columns, Column{
			Name:   f.Columns[i].Name,
			Type:   f.Columns[i].Type,
			Values: values,
		})
	}
	return out, nil
}

// SortRows returns a frame with rows stably sorted by the named column.
// Missing values sort last regardless of direction.
func (f *Frame) SortRows(name string, descending bool) (*Frame, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, ErrValidation.WithDetails("no such column: " + name)
	}

	rows := f.NumRows()
	perm := make([]int, rows)
	for i := range perm {
		perm[i] = i
	}
	key := f.Columns[idx].Values
	sort.SliceStable(perm, func(a, b int) bool {
		va, vb := key[perm[a]], key[perm[b]]
		if va.Null || vb.Null {
			// Nulls always at the bottom.
			return !va.Null && vb.Null
		}
		if descending {
			return vb.Less(va)
		}
		return va.Less(vb)
	})

	return f.selectRows(perm), nil
}

// DropDuplicates returns a frame with later duplicate rows removed,
// keeping the first occurrence. Two rows are duplicates when every cell
// is equal, nulls included.
func (f *Frame) DropDuplicates() (*Frame, int) {
	rows := f.NumRows()
	seen := make(map[string]struct{}, rows)
	keep := make([]int, 0, rows)

	var sb strings.Builder
	for r := 0; r < rows; r++ {
		sb.Reset()
		for c := range f.Columns {
			v := f.Columns[c].Values[r]
			if v.Null {
				sb.WriteByte(0x01)
			} else {
				sb.WriteString(v.EncodeString())
			}
			sb.WriteByte(0x00)
		}
		key := sb.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, r)
	}

	removed := rows - len(keep)
	if removed == 0 {
		return f.Clone(), 0
	}
	return f.selectRows(keep), removed
}

// selectRows builds a new frame from the given row indices, in order.
func (f *Frame) selectRows(rows []int) *Frame {
	out := &Frame{Columns: make([]Column, len(f.Columns))}
	for c := range f.Columns {
		values := make([]Value, 0, len(rows))
		for _, r := range rows {
			values = append(values, f.Columns[c].Values[r])
		}
		out.Columns[c] = Column{
			Name:   f.Columns[c].Name,
			Type:   f.Columns[c].Type,
			Values: values,
		}
	}
	return out
}
