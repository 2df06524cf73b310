package value

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"time"
)

// Type identifies one variant of an indexable atomic value.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeString
	TypeDateTime
	TypeDate
	TypeInteger
	TypeDouble
	TypeFloat
	TypeBoolean
)

// String returns the XML Schema name of the type.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeDateTime:
		return "dateTime"
	case TypeDate:
		return "date"
	case TypeInteger:
		return "integer"
	case TypeDouble:
		return "double"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	default:
		return "invalid(" + strconv.Itoa(int(t)) + ")"
	}
}

// Value is a closed variant over the indexable atomic types. The zero Value
// is invalid and cannot be encoded. Values are immutable and comparable with
// Equal; use Compare for domain order between values of one type.
type Value struct {
	typ Type
	str string
	i64 int64
	f64 float64
	f32 float32
	b   bool
	t   time.Time
}

// String returns a string value.
func String(s string) Value { return Value{typ: TypeString, str: s} }

// Integer returns a 64-bit signed integer value.
func Integer(i int64) Value { return Value{typ: TypeInteger, i64: i} }

// Double returns a float64 value.
func Double(f float64) Value { return Value{typ: TypeDouble, f64: f} }

// Float returns a float32 value.
func Float(f float32) Value { return Value{typ: TypeFloat, f32: f} }

// Boolean returns a boolean value.
func Boolean(b bool) Value { return Value{typ: TypeBoolean, b: b} }

// DateTime returns a date-time value normalized to UTC with millisecond
// precision; finer fractions are dropped.
func DateTime(t time.Time) Value {
	u := t.UTC()
	y, mo, d := u.Date()
	h, mi, s := u.Clock()
	ms := u.Nanosecond() / int(time.Millisecond)
	return Value{typ: TypeDateTime, t: time.Date(y, mo, d, h, mi, s, ms*int(time.Millisecond), time.UTC)}
}

// Date returns the UTC calendar date of t. A date carrying a zone is
// normalized the way xs:date is: the instant is moved to UTC first.
func Date(t time.Time) Value {
	y, mo, d := t.UTC().Date()
	return Value{typ: TypeDate, t: time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)}
}

// Type returns the variant tag of v.
func (v Value) Type() Type { return v.typ }

// IsValid reports whether v holds one of the supported variants.
func (v Value) IsValid() bool { return v.typ >= TypeString && v.typ <= TypeBoolean }

// Str returns the string payload ("" for other types).
func (v Value) Str() string { return v.str }

// Int returns the integer payload (0 for other types).
func (v Value) Int() int64 { return v.i64 }

// Float64 returns the double payload, or the float payload widened.
func (v Value) Float64() float64 {
	if v.typ == TypeFloat {
		return float64(v.f32)
	}
	return v.f64
}

// Float32 returns the float payload (0 for other types).
func (v Value) Float32() float32 { return v.f32 }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// Time returns the UTC instant of a DateTime or midnight UTC of a Date.
func (v Value) Time() time.Time { return v.t }

// Equal reports whether a and b are the same variant with identical payloads.
// Floating point payloads compare by bit pattern so NaN equals itself.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeString:
		return v.str == o.str
	case TypeInteger:
		return v.i64 == o.i64
	case TypeDouble:
		return math.Float64bits(v.f64) == math.Float64bits(o.f64)
	case TypeFloat:
		return math.Float32bits(v.f32) == math.Float32bits(o.f32)
	case TypeBoolean:
		return v.b == o.b
	case TypeDateTime, TypeDate:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// Compare orders v and o in domain order: -1, 0 or +1. Values of different
// types order by type tag, which is also how their encoded keys order.
func (v Value) Compare(o Value) int {
	if v.typ != o.typ {
		return cmp.Compare(v.typ, o.typ)
	}
	switch v.typ {
	case TypeString:
		return strings.Compare(v.str, o.str)
	case TypeInteger:
		return cmp.Compare(v.i64, o.i64)
	case TypeDouble:
		return cmp.Compare(v.f64, o.f64)
	case TypeFloat:
		return cmp.Compare(v.f32, o.f32)
	case TypeBoolean:
		switch {
		case v.b == o.b:
			return 0
		case o.b:
			return -1
		default:
			return 1
		}
	case TypeDateTime, TypeDate:
		return v.t.Compare(o.t)
	default:
		return 0
	}
}

// String renders the lexical form of v.
func (v Value) String() string {
	switch v.typ {
	case TypeString:
		return v.str
	case TypeInteger:
		return strconv.FormatInt(v.i64, 10)
	case TypeDouble:
		return strconv.FormatFloat(v.f64, 'g', -1, 64)
	case TypeFloat:
		return strconv.FormatFloat(float64(v.f32), 'g', -1, 32)
	case TypeBoolean:
		return strconv.FormatBool(v.b)
	case TypeDate:
		return v.t.Format(dateLayout)
	case TypeDateTime:
		return v.t.Format(dateTimeLayout)
	default:
		return "<invalid>"
	}
}
