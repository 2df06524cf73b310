// Package node encodes and decodes node records.
//
// # Record Layout
//
//	Offset  Size  Field
//	0x00    1     Signature
//	0x01    w     Name id (w = 1, 2 or 4, big-endian)
//	--- present only when the signature's namespace bit is set ---
//	+0      2     Namespace id (never 0)
//	+2      2     Prefix length
//	+4      n     Prefix (UTF-8)
//	---
//	...     rest  Value (UTF-8, no length prefix)
//
// The signature packs kind, namespace flag, subtype and width class; see
// internal/format.Signature.
//
// Names are resolved through a types.SymbolTable. Encode may allocate ids in
// the table, Decode only looks them up and reports an unknown id as
// corruption. Encode never returns partial output.
package node
