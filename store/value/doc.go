// Package value encodes typed atomic values into order-preserving index keys.
//
// # Key Layout
//
//	[tag:1][payload]
//
//	Tag   Type      Payload
//	0x01  string    UTF-8 bytes, optionally lower-cased (variable length)
//	0x02  dateTime  year(4) month(1) day(1) hour(1) minute(1) second(1) ms(2)
//	0x03  date      year(4) month(1) day(1)
//	0x04  integer   (v - MinInt64) as uint64, big-endian
//	0x05  double    IEEE-754 bits, sign-adjusted, big-endian
//	0x06  float     IEEE-754 bits, sign-adjusted, big-endian
//	0x07  boolean   0 or 1
//
// For two values of the same type, bytes.Compare on their keys agrees with
// Value.Compare. Date and date-time values are normalized to UTC first, and
// years are biased so negative years sort before positive ones.
//
// Floating point keys set the sign bit of non-negative numbers and invert
// every bit of negative numbers. -0 sorts immediately below +0. The position
// of NaN is unspecified.
//
// # Usage
//
//	key, err := value.Encode(value.Integer(753))
//	if err != nil {
//	    return err
//	}
//	v, err := value.Decode(key)
//
// Case-insensitive string keys:
//
//	key, err := value.EncodeWith(value.String("Title"), value.EncodeOptions{CaseInsensitive: true})
//
// Prefixed keys (the prefix is not interpreted):
//
//	key, err := value.Append(indexPrefix, v, value.EncodeOptions{})
//
// # Errors
//
// Encode fails with types.ErrEncoding (invalid or zero value, non-UTF-8
// string, year outside int32). Decode fails with types.ErrUnsupportedType on
// an unknown tag and types.ErrCorrupt when the payload length or contents do
// not fit the tag.
//
// All functions are pure and safe for concurrent use.
package value
