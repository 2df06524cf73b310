// Package types holds the small shared vocabulary of the xmlstore core:
// typed errors with stable categories, qualified names, and the symbol
// table contract consumed by the node codec.
//
// Error categories map onto the on-disk contract:
//   - ErrEncoding: a node or value cannot be represented; no partial output.
//   - ErrCorrupt: decoded bytes disagree with their header.
//   - ErrUnsupportedType: a tag byte outside the supported set.
//
// Callers branch with errors.Is(err, types.ErrCorrupt) or types.KindOf(err).
//
// This package has no dependencies beyond the standard library.
package types
