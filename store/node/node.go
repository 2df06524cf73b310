package node

import (
	"strconv"

	"github.com/joshuapare/xmlstore/pkg/types"
)

// Kind is the three-bit node kind tag stored in the record signature.
type Kind uint8

const (
	KindText Kind = iota
	KindElement
	KindProcessingInstruction
	KindComment
	KindAttribute
	KindCDATA

	maxKnownKind = KindCDATA
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindElement:
		return "element"
	case KindProcessingInstruction:
		return "processing-instruction"
	case KindComment:
		return "comment"
	case KindAttribute:
		return "attribute"
	case KindCDATA:
		return "cdata"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Subtype is the one-bit refinement of a kind. For attributes it separates
// plain character data from ID attributes.
type Subtype uint8

const (
	SubtypeCDATA Subtype = 0
	SubtypeID    Subtype = 1
)

// Node is the in-memory form of one node record.
//
// Name.Namespace being non-empty is what makes a record carry a namespace
// header. Value holds the node's character content (attribute value, text,
// comment body, PI data) and may be empty.
type Node struct {
	Kind    Kind
	Name    types.QName
	Subtype Subtype
	Value   string
}

// Attr is shorthand for an attribute node.
func Attr(name types.QName, value string) Node {
	return Node{Kind: KindAttribute, Name: name, Value: value}
}

// IDAttr is shorthand for an ID-typed attribute node.
func IDAttr(name types.QName, value string) Node {
	return Node{Kind: KindAttribute, Name: name, Subtype: SubtypeID, Value: value}
}

// Element is shorthand for an element node without content.
func Element(name types.QName) Node {
	return Node{Kind: KindElement, Name: name}
}
