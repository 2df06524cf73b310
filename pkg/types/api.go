package types

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindEncoding    ErrKind = iota // node or value cannot be represented on disk
	ErrKindCorrupt                    // decoded bytes inconsistent with their header
	ErrKindUnsupported                // tag byte outside the supported set
	ErrKindNotFound                   // missing record, symbol or transaction
	ErrKindState                      // invalid operation for current state (e.g., finished txn)
	ErrKindClosed                     // store or manager already shut down
)

// String returns the category name.
func (k ErrKind) String() string {
	switch k {
	case ErrKindEncoding:
		return "encoding"
	case ErrKindCorrupt:
		return "corrupt"
	case ErrKindUnsupported:
		return "unsupported"
	case ErrKindNotFound:
		return "not found"
	case ErrKindState:
		return "state"
	case ErrKindClosed:
		return "closed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrCorrupt)
// holds for every corruption error regardless of its message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil || e == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels commonly returned by implementations.
var (
	// ErrEncoding indicates a node or value cannot be represented (EncodingError).
	ErrEncoding = &Error{Kind: ErrKindEncoding, Msg: "cannot encode"}
	// ErrCorrupt indicates decoded bytes disagree with their header (CorruptDataError).
	ErrCorrupt = &Error{Kind: ErrKindCorrupt, Msg: "corrupt data"}
	// ErrUnsupportedType indicates a tag byte outside the supported set (UnsupportedTypeError).
	ErrUnsupportedType = &Error{Kind: ErrKindUnsupported, Msg: "unsupported type"}
	// ErrNotFound indicates a missing record, symbol or transaction.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrState indicates a write through a transaction that is no longer started.
	ErrState = &Error{Kind: ErrKindState, Msg: "transaction not active"}
	// ErrClosed indicates use after Close/Shutdown.
	ErrClosed = &Error{Kind: ErrKindClosed, Msg: "closed"}
)

// Encodingf builds an EncodingError with a formatted message.
func Encodingf(format string, args ...any) error {
	return newf(ErrKindEncoding, format, args...)
}

// Corruptf builds a CorruptDataError with a formatted message.
func Corruptf(format string, args ...any) error {
	return newf(ErrKindCorrupt, format, args...)
}

// Unsupportedf builds an UnsupportedTypeError with a formatted message.
func Unsupportedf(format string, args ...any) error {
	return newf(ErrKindUnsupported, format, args...)
}

// Statef builds a state error with a formatted message.
func Statef(format string, args ...any) error {
	return newf(ErrKindState, format, args...)
}

// Wrap attaches kind and message to an underlying cause.
func Wrap(kind ErrKind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// newf keeps %w semantics: the first wrapped argument becomes Err.
func newf(kind ErrKind, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &Error{Kind: kind, Msg: err.Error(), Err: errors.Unwrap(err)}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) (ErrKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// -----------------------------------------------------------------------------
// Names & Symbols
// -----------------------------------------------------------------------------

// QName is an XML qualified name: local part, optional namespace URI and
// optional prefix.
type QName struct {
	Local     string
	Namespace string
	Prefix    string
}

// HasNamespace reports whether the name is bound to a namespace and therefore
// carries a namespace declaration in its node record.
func (q QName) HasNamespace() bool { return q.Namespace != "" }

// String renders prefix:local, or {namespace}local when no prefix is set.
func (q QName) String() string {
	switch {
	case q.Prefix != "":
		return q.Prefix + ":" + q.Local
	case q.Namespace != "":
		return "{" + q.Namespace + "}" + q.Local
	default:
		return q.Local
	}
}

// WidthClass is the number of bytes a name id occupies in a node record.
type WidthClass uint8

const (
	Width1 WidthClass = 1
	Width2 WidthClass = 2
	Width4 WidthClass = 4
)

// WidthFor returns the narrowest class that holds id.
func WidthFor(id uint32) WidthClass {
	switch {
	case id <= 0xFF:
		return Width1
	case id <= 0xFFFF:
		return Width2
	default:
		return Width4
	}
}

// Fits reports whether id can be written in w bytes.
func (w WidthClass) Fits(id uint32) bool {
	switch w {
	case Width1:
		return id <= 0xFF
	case Width2:
		return id <= 0xFFFF
	case Width4:
		return true
	default:
		return false
	}
}

// SymbolTable interns qualified names and namespace URIs into small ids.
// Codecs only look ids up; they never allocate them on decode.
//
// IDFor interns the local part of name. The namespace and prefix travel in
// the node record itself, so QNameFor returns a name with only Local set.
type SymbolTable interface {
	IDFor(name QName) (uint32, error)
	QNameFor(id uint32) (QName, bool)
	NamespaceIDFor(uri string) (uint16, error)
	NamespaceURIFor(id uint16) (string, bool)
	WidthClassFor(id uint32) WidthClass
}
