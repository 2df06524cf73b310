package format

// Node record signature byte:
//
//	bit   7 6 5   4    3    2        1 0
//	      kind    ns   -    subtype  width class
//
// kind is the node kind tag, ns is set when the record carries a namespace
// id and prefix, subtype distinguishes e.g. CDATA from ID attributes, and the
// width class says how many bytes the name id occupies.
const (
	SigKindShift    = 5
	SigKindMask     = 0xE0
	SigNamespaceBit = 0x10
	SigReservedBit  = 0x08
	SigSubtypeShift = 2
	SigSubtypeBit   = 0x04
	SigWidthMask    = 0x03

	// MaxKind is the largest kind tag that fits in three bits.
	MaxKind = 7
)

// Width class codes stored in the low two bits of the signature.
const (
	WidthCodeInvalid = 0
	WidthCode1       = 1 // name id in 1 byte
	WidthCode2       = 2 // name id in 2 bytes
	WidthCode4       = 3 // name id in 4 bytes
)

// Node record field sizes.
const (
	SignatureSize      = 1
	NamespaceIDSize    = 2
	PrefixLengthSize   = 2
	NamespaceHdrSize   = NamespaceIDSize + PrefixLengthSize
	MaxPrefixLength    = 0xFFFF
	NodeRecordMinBytes = SignatureSize + 1
)

// Signature is the unpacked form of a node record's first byte.
type Signature struct {
	Kind         uint8
	WidthCode    uint8
	Subtype      uint8
	HasNamespace bool
}

// Pack folds the fields into one byte. Out-of-range fields are masked.
func (s Signature) Pack() byte {
	b := (s.Kind << SigKindShift) & SigKindMask
	b |= s.WidthCode & SigWidthMask
	b |= (s.Subtype << SigSubtypeShift) & SigSubtypeBit
	if s.HasNamespace {
		b |= SigNamespaceBit
	}
	return b
}

// UnpackSignature splits b into its fields.
func UnpackSignature(b byte) Signature {
	return Signature{
		Kind:         b >> SigKindShift,
		WidthCode:    b & SigWidthMask,
		Subtype:      (b & SigSubtypeBit) >> SigSubtypeShift,
		HasNamespace: b&SigNamespaceBit != 0,
	}
}

// IDWidth returns the name id width in bytes for the signature's class code,
// or 0 when the code is invalid.
func (s Signature) IDWidth() int {
	return WidthForCode(s.WidthCode)
}

// WidthForCode maps a class code to its byte width (0 when invalid).
func WidthForCode(code uint8) int {
	switch code {
	case WidthCode1:
		return 1
	case WidthCode2:
		return 2
	case WidthCode4:
		return 4
	default:
		return 0
	}
}

// CodeForWidth maps a byte width to its class code (WidthCodeInvalid when
// the width is not 1, 2 or 4).
func CodeForWidth(width int) uint8 {
	switch width {
	case 1:
		return WidthCode1
	case 2:
		return WidthCode2
	case 4:
		return WidthCode4
	default:
		return WidthCodeInvalid
	}
}
