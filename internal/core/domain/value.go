// Package domain defines the core domain models for TabSess.
package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ColumnType identifies the declared type of a column.
//
// The source data model is duck-typed with implicit coercion; TabSess
// instead tags every column with an explicit type and converts values
// through Coerce, which reports failure instead of guessing.
type ColumnType uint8

const (
	TypeInt64 ColumnType = iota
	TypeFloat64
	TypeString
	TypeBool
	TypeDateTime
)

var columnTypeNames = map[ColumnType]string{
	TypeInt64:    "int64",
	TypeFloat64:  "float64",
	TypeString:   "string",
	TypeBool:     "bool",
	TypeDateTime: "datetime",
}

// String returns the canonical name of the column type.
func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsNumeric reports whether the type supports numeric aggregation.
func (t ColumnType) IsNumeric() bool {
	return t == TypeInt64 || t == TypeFloat64
}

// ParseColumnType parses a canonical type name.
func ParseColumnType(s string) (ColumnType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int64", "int", "integer":
		return TypeInt64, true
	case "float64", "float", "double":
		return TypeFloat64, true
	case "string", "str", "text":
		return TypeString, true
	case "bool", "boolean":
		return TypeBool, true
	case "datetime", "timestamp", "date":
		return TypeDateTime, true
	}
	return TypeString, false
}

// DateTime layouts accepted when coercing strings, tried in order.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Value is a single typed cell. Exactly one variant field is meaningful,
// selected by Kind; Null values carry only their Kind.
type Value struct {
	Kind ColumnType
	Null bool

	I64 int64
	F64 float64
	Str string
	B   bool
	TS  int64 // DateTime as Unix milliseconds (UTC)
}

// NullValue returns the null value of the given type.
func NullValue(t ColumnType) Value {
	return Value{Kind: t, Null: true}
}

// Int64Value wraps an int64.
func Int64Value(v int64) Value { return Value{Kind: TypeInt64, I64: v} }

// Float64Value wraps a float64.
func Float64Value(v float64) Value { return Value{Kind: TypeFloat64, F64: v} }

// StringValue wraps a string.
func StringValue(v string) Value { return Value{Kind: TypeString, Str: v} }

// BoolValue wraps a bool.
func BoolValue(v bool) Value { return Value{Kind: TypeBool, B: v} }

// DateTimeValue wraps a timestamp, truncated to millisecond precision.
func DateTimeValue(t time.Time) Value {
	return Value{Kind: TypeDateTime, TS: t.UnixMilli()}
}

// IsNull reports whether the value is missing.
func (v Value) IsNull() bool { return v.Null }

// Time returns the DateTime variant as time.Time in UTC.
func (v Value) Time() time.Time { return time.UnixMilli(v.TS).UTC() }

// Equal reports whether two values are identical, including nullness.
// Values of different kinds are never equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Null != o.Null {
		return false
	}
	if v.Null {
		return true
	}
	switch v.Kind {
	case TypeInt64:
		return v.I64 == o.I64
	case TypeFloat64:
		return v.F64 == o.F64
	case TypeString:
		return v.Str == o.Str
	case TypeBool:
		return v.B == o.B
	case TypeDateTime:
		return v.TS == o.TS
	}
	return false
}

// Less orders two values of the same kind. Nulls sort after everything
// else so that sorted output keeps missing values at the bottom.
func (v Value) Less(o Value) bool {
	if v.Null || o.Null {
		return !v.Null && o.Null
	}
	switch v.Kind {
	case TypeInt64:
		return v.I64 < o.I64
	case TypeFloat64:
		return v.F64 < o.F64
	case TypeString:
		return v.Str < o.Str
	case TypeBool:
		return !v.B && o.B
	case TypeDateTime:
		return v.TS < o.TS
	}
	return false
}

// EncodeString returns the canonical string form of a value, used by the
// snapshot codec and duplicate detection. The encoding round-trips
// losslessly through DecodeValue.
func (v Value) EncodeString() string {
	if v.Null {
		return ""
	}
	switch v.Kind {
	case TypeInt64:
		return strconv.FormatInt(v.I64, 10)
	case TypeFloat64:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case TypeString:
		return v.Str
	case TypeBool:
		return strconv.FormatBool(v.B)
	case TypeDateTime:
		return v.Time().Format(time.RFC3339Nano)
	}
	return ""
}

// DecodeValue parses the canonical string form back into a typed value.
func DecodeValue(t ColumnType, s string) (Value, error) {
	switch t {
	case TypeInt64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, ErrInvalidArgument.WithDetails("not an int64: " + s)
		}
		return Int64Value(i), nil
	case TypeFloat64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, ErrInvalidArgument.WithDetails("not a float64: " + s)
		}
		return Float64Value(f), nil
	case TypeString:
		return StringValue(s), nil
	case TypeBool:
		b, ok := parseBool(s)
		if !ok {
			return Value{}, ErrInvalidArgument.WithDetails("not a bool: " + s)
		}
		return BoolValue(b), nil
	case TypeDateTime:
		for _, layout := range dateTimeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return DateTimeValue(ts), nil
			}
		}
		return Value{}, ErrInvalidArgument.WithDetails("not a datetime: " + s)
	}
	return Value{}, ErrInvalidArgument.WithDetails("unknown column type")
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}

// Coerce converts a value to the target type.
//
// It returns ok=false when the value cannot be represented in the target
// type; callers turn such values into nulls and count them as warnings
// (the documented lossy retype policy). Null input coerces to null output
// of the target type and is always ok.
func Coerce(v Value, to ColumnType) (Value, bool) {
	if v.Null {
		return NullValue(to), true
	}
	if v.Kind == to {
		return v, true
	}

	switch v.Kind {
	case TypeInt64:
		switch to {
		case TypeFloat64:
			return Float64Value(float64(v.I64)), true
		case TypeString:
			return StringValue(strconv.FormatInt(v.I64, 10)), true
		case TypeBool:
			return BoolValue(v.I64 != 0), true
		}

	case TypeFloat64:
		switch to {
		case TypeInt64:
			if math.IsNaN(v.F64) || math.IsInf(v.F64, 0) {
				return Value{}, false
			}
			if v.F64 != math.Trunc(v.F64) {
				return Value{}, false
			}
			// MaxInt64 rounds up to 2^63 as a float64, so equality is
			// already out of range; MinInt64 is exactly representable.
			if v.F64 >= math.MaxInt64 || v.F64 < math.MinInt64 {
				return Value{}, false
			}
			return Int64Value(int64(v.F64)), true
		case TypeString:
			return StringValue(strconv.FormatFloat(v.F64, 'g', -1, 64)), true
		case TypeBool:
			if math.IsNaN(v.F64) {
				return Value{}, false
			}
			return BoolValue(v.F64 != 0), true
		}

	case TypeString:
		out, err := DecodeValue(to, strings.TrimSpace(v.Str))
		if err != nil {
			return Value{}, false
		}
		return out, true

	case TypeBool:
		switch to {
		case TypeInt64:
			if v.B {
				return Int64Value(1), true
			}
			return Int64Value(0), true
		case TypeFloat64:
			if v.B {
				return Float64Value(1), true
			}
			return Float64Value(0), true
		case TypeString:
			return StringValue(strconv.FormatBool(v.B)), true
		}

	case TypeDateTime:
		switch to {
		case TypeInt64:
			return Int64Value(v.TS), true
		case TypeFloat64:
			return Float64Value(float64(v.TS)), true
		case TypeString:
			return StringValue(v.Time().Format(time.RFC3339Nano)), true
		}
	}

	return Value{}, false
}
