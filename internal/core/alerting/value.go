package alerting

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind identifies which member of the Value union is set.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueBool
)

// Value is a closed tagged union over string, number and boolean. Condition
// values and event fields are always one of these three kinds, decided at
// unmarshal time, so the evaluator never has to guess a type at match time.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

// StringValue builds a string Value.
func StringValue(s string) Value {
	return Value{Kind: ValueString, Str: s}
}

// NumberValue builds a numeric Value.
func NumberValue(n float64) Value {
	return Value{Kind: ValueNumber, Num: n}
}

// BoolValue builds a boolean Value.
func BoolValue(b bool) Value {
	return Value{Kind: ValueBool, Bool: b}
}

// Number returns the numeric form of the value. Strings are coerced via
// strconv; booleans never coerce.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Num, true
	case ValueString:
		n, err := strconv.ParseFloat(v.Str, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// String returns the string form of the value.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// Equal compares two values. Two numbers compare numerically, everything
// else compares on the string form.
func (v Value) Equal(other Value) bool {
	if v.Kind == ValueNumber && other.Kind == ValueNumber {
		return v.Num == other.Num
	}
	return v.String() == other.String()
}

// MarshalJSON emits the underlying scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueNumber:
		return json.Marshal(v.Num)
	case ValueBool:
		return json.Marshal(v.Bool)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON accepts a JSON string, number or boolean. Any other shape
// is rejected so malformed rules fail at save time, not at match time.
func (v *Value) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolValue(b)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = NumberValue(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = StringValue(s)
		return nil
	}

	return fmt.Errorf("value must be a string, number or boolean, got %s", string(data))
}
