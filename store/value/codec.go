package value

import (
	"math"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joshuapare/xmlstore/internal/buf"
	"github.com/joshuapare/xmlstore/internal/format"
	"github.com/joshuapare/xmlstore/pkg/types"
)

// EncodeOptions selects caller-side transforms applied before encoding.
type EncodeOptions struct {
	// CaseInsensitive lower-cases string values so that keys order and match
	// without regard to case. The type tag is unchanged, so the decoded value
	// is the lower-cased string.
	CaseInsensitive bool
}

// variant binds one type tag to its payload codec.
type variant struct {
	typ   Type
	width int // payload bytes; -1 for variable length
	enc   func(dst []byte, v Value, opts EncodeOptions) ([]byte, error)
	dec   func(payload []byte) (Value, error)
}

var variants = map[byte]variant{
	format.TagString:   {TypeString, -1, appendString, decodeString},
	format.TagDateTime: {TypeDateTime, format.DateTimePayloadSize, appendDateTime, decodeDateTime},
	format.TagDate:     {TypeDate, format.DatePayloadSize, appendDate, decodeDate},
	format.TagInteger:  {TypeInteger, format.IntegerPayloadSize, appendInteger, decodeInteger},
	format.TagDouble:   {TypeDouble, format.DoublePayloadSize, appendDouble, decodeDouble},
	format.TagFloat:    {TypeFloat, format.FloatPayloadSize, appendFloat, decodeFloat},
	format.TagBoolean:  {TypeBoolean, format.BooleanPayloadSize, appendBoolean, decodeBoolean},
}

// tagFor maps a Type to its tag byte. Tags and Type values coincide.
func tagFor(t Type) byte { return byte(t) }

// Encode returns the order-preserving key form of v.
func Encode(v Value) ([]byte, error) {
	return Append(nil, v, EncodeOptions{})
}

// EncodeWith is Encode with caller-selected transforms.
func EncodeWith(v Value, opts EncodeOptions) ([]byte, error) {
	return Append(nil, v, opts)
}

// Append appends the key form of v to dst. Callers that prefix keys (for
// example with a collection or index id) pass the prefix as dst. On error dst
// is returned unchanged.
func Append(dst []byte, v Value, opts EncodeOptions) ([]byte, error) {
	vr, ok := variants[tagFor(v.typ)]
	if !ok || !v.IsValid() {
		return dst, types.Encodingf("value: %w", types.Unsupportedf("type %s", v.typ))
	}
	out, err := vr.enc(dst, v, opts)
	if err != nil {
		return dst, err
	}
	return out, nil
}

// Decode inverts Encode. It fails with ErrUnsupportedType on an unknown tag
// and with ErrCorrupt when the payload does not match the tag's layout.
func Decode(data []byte) (Value, error) {
	if len(data) < format.TagSize {
		return Value{}, types.Corruptf("value: empty key")
	}
	tag := data[0]
	vr, ok := variants[tag]
	if !ok {
		return Value{}, types.Unsupportedf("value: unknown type tag 0x%02x", tag)
	}
	payload := data[format.TagSize:]
	if vr.width >= 0 && len(payload) != vr.width {
		return Value{}, types.Corruptf("value: %s payload is %d bytes, want %d", vr.typ, len(payload), vr.width)
	}
	return vr.dec(payload)
}

// PeekType returns the type of an encoded key without decoding the payload.
func PeekType(data []byte) (Type, error) {
	if len(data) < format.TagSize {
		return TypeInvalid, types.Corruptf("value: empty key")
	}
	vr, ok := variants[data[0]]
	if !ok {
		return TypeInvalid, types.Unsupportedf("value: unknown type tag 0x%02x", data[0])
	}
	return vr.typ, nil
}

// --- String ---

func appendString(dst []byte, v Value, opts EncodeOptions) ([]byte, error) {
	s := v.str
	if !utf8.ValidString(s) {
		return dst, types.Encodingf("value: string is not valid UTF-8")
	}
	if opts.CaseInsensitive {
		// Casers keep state and must not be shared between goroutines.
		s = cases.Lower(language.Und).String(s)
	}
	dst = append(dst, format.TagString)
	return append(dst, s...), nil
}

func decodeString(payload []byte) (Value, error) {
	if !utf8.Valid(payload) {
		return Value{}, types.Corruptf("value: string payload is not valid UTF-8")
	}
	return String(string(payload)), nil
}

// --- Integer ---

func appendInteger(dst []byte, v Value, _ EncodeOptions) ([]byte, error) {
	dst = append(dst, format.TagInteger)
	return buf.AppendU64(dst, uint64(v.i64)^format.Int64SignFlip), nil
}

func decodeInteger(payload []byte) (Value, error) {
	return Integer(int64(buf.U64BE(payload) ^ format.Int64SignFlip)), nil
}

// --- Double / Float ---
//
// Non-negative numbers get their sign bit set; negative numbers have every
// bit inverted so that larger magnitudes sort first.

func orderedFloat64(f float64) uint64 {
	if f == 0 {
		// -0 and +0 compare equal and must share a key.
		f = 0
	}
	bits := math.Float64bits(f)
	if bits&format.Float64SignFlip != 0 {
		return ^bits
	}
	return bits ^ format.Float64SignFlip
}

func unorderedFloat64(u uint64) float64 {
	if u&format.Float64SignFlip != 0 {
		return math.Float64frombits(u ^ format.Float64SignFlip)
	}
	return math.Float64frombits(^u)
}

func orderedFloat32(f float32) uint32 {
	if f == 0 {
		f = 0
	}
	bits := math.Float32bits(f)
	if bits&format.Float32SignFlip != 0 {
		return ^bits
	}
	return bits ^ format.Float32SignFlip
}

func unorderedFloat32(u uint32) float32 {
	if u&format.Float32SignFlip != 0 {
		return math.Float32frombits(u ^ format.Float32SignFlip)
	}
	return math.Float32frombits(^u)
}

func appendDouble(dst []byte, v Value, _ EncodeOptions) ([]byte, error) {
	dst = append(dst, format.TagDouble)
	return buf.AppendU64(dst, orderedFloat64(v.f64)), nil
}

func decodeDouble(payload []byte) (Value, error) {
	return Double(unorderedFloat64(buf.U64BE(payload))), nil
}

func appendFloat(dst []byte, v Value, _ EncodeOptions) ([]byte, error) {
	dst = append(dst, format.TagFloat)
	return buf.AppendU32(dst, orderedFloat32(v.f32)), nil
}

func decodeFloat(payload []byte) (Value, error) {
	return Float(unorderedFloat32(buf.U32BE(payload))), nil
}

// --- Boolean ---

func appendBoolean(dst []byte, v Value, _ EncodeOptions) ([]byte, error) {
	var b byte
	if v.b {
		b = 1
	}
	return append(dst, format.TagBoolean, b), nil
}

func decodeBoolean(payload []byte) (Value, error) {
	switch payload[0] {
	case 0:
		return Boolean(false), nil
	case 1:
		return Boolean(true), nil
	default:
		return Value{}, types.Corruptf("value: boolean byte 0x%02x", payload[0])
	}
}

// --- DateTime / Date ---

func appendYearMonthDay(dst []byte, t time.Time) ([]byte, error) {
	y, m, d := t.Date()
	if y < math.MinInt32 || y > math.MaxInt32 {
		return dst, types.Encodingf("value: year %d out of range", y)
	}
	dst = buf.AppendU32(dst, uint32(int32(y))^format.YearSignFlip)
	return append(dst, byte(m), byte(d)), nil
}

func appendDateTime(dst []byte, v Value, _ EncodeOptions) ([]byte, error) {
	t := v.t.UTC()
	out, err := appendYearMonthDay(append(dst, format.TagDateTime), t)
	if err != nil {
		return dst, err
	}
	h, mi, s := t.Clock()
	ms := t.Nanosecond() / int(time.Millisecond)
	out = append(out, byte(h), byte(mi), byte(s))
	return buf.AppendU16(out, uint16(ms)), nil
}

func appendDate(dst []byte, v Value, _ EncodeOptions) ([]byte, error) {
	out, err := appendYearMonthDay(append(dst, format.TagDate), v.t.UTC())
	if err != nil {
		return dst, err
	}
	return out, nil
}

func decodeYearMonthDay(payload []byte) (year int, month time.Month, day int, err error) {
	year = int(int32(buf.U32BE(payload[format.DTYearOffset:]) ^ format.YearSignFlip))
	month = time.Month(payload[format.DTMonthOffset])
	day = int(payload[format.DTDayOffset])
	if month < time.January || month > time.December {
		return 0, 0, 0, types.Corruptf("value: month %d", month)
	}
	// Day 0 of the following month is the last day of this one.
	if day < 1 || day > time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day() {
		return 0, 0, 0, types.Corruptf("value: day %d of %04d-%02d", day, year, month)
	}
	return year, month, day, nil
}

func decodeDate(payload []byte) (Value, error) {
	y, m, d, err := decodeYearMonthDay(payload)
	if err != nil {
		return Value{}, err
	}
	return Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)), nil
}

func decodeDateTime(payload []byte) (Value, error) {
	y, m, d, err := decodeYearMonthDay(payload)
	if err != nil {
		return Value{}, err
	}
	h := int(payload[format.DTHourOffset])
	mi := int(payload[format.DTMinuteOffset])
	s := int(payload[format.DTSecondOffset])
	ms := int(buf.U16BE(payload[format.DTMilliOffset:]))
	if h > 23 || mi > 59 || s > 59 || ms > 999 {
		return Value{}, types.Corruptf("value: time %02d:%02d:%02d.%03d", h, mi, s, ms)
	}
	return DateTime(time.Date(y, m, d, h, mi, s, ms*int(time.Millisecond), time.UTC)), nil
}
