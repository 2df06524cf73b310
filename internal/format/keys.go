package format

// Index key layout:
//
//	Offset  Size  Field
//	0x00    1     Type tag
//	0x01    n     Payload (fixed width per tag, except String)
//
// Payloads are big-endian so that unsigned byte comparison follows the
// domain order of each variant.
const (
	TagString   byte = 0x01
	TagDateTime byte = 0x02
	TagDate     byte = 0x03
	TagInteger  byte = 0x04
	TagDouble   byte = 0x05
	TagFloat    byte = 0x06
	TagBoolean  byte = 0x07

	TagSize = 1
)

// Payload widths in bytes. String has no fixed width.
const (
	IntegerPayloadSize  = 8
	DoublePayloadSize   = 8
	FloatPayloadSize    = 4
	BooleanPayloadSize  = 1
	DatePayloadSize     = 4 + 1 + 1         // year, month, day
	DateTimePayloadSize = DatePayloadSize + 5 // hour, minute, second, millisecond(2)
)

// Bias and sign masks for the order-preserving numeric forms.
const (
	Int64SignFlip   uint64 = 0x8000000000000000
	Float64SignFlip uint64 = 0x8000000000000000
	Float32SignFlip uint32 = 0x80000000
	YearSignFlip    uint32 = 0x80000000
)

// Offsets inside a DateTime/Date payload (relative to the payload start).
const (
	DTYearOffset   = 0
	DTMonthOffset  = 4
	DTDayOffset    = 5
	DTHourOffset   = 6
	DTMinuteOffset = 7
	DTSecondOffset = 8
	DTMilliOffset  = 9
)
