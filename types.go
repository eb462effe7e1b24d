// SPDX-License-Identifier: BSD-3-Clause

package pdf

// Objects are represented as plain Go values produced exclusively by the
// lexer in lex.go: nil (Null), bool, int64, float64, pdfString,
// pdfName, array, dict, stream, and objptr (an indirect reference).
// This mirrors the teacher's Value/objfmt type-switch representation.

// pdfName is a decoded PDF name (without the leading slash).
type pdfName string

// pdfString is decoded literal-string or hex-string byte content.
type pdfString string

// array is an ordered sequence of objects.
type array []interface{}

// dict is an ordered-lookup dictionary. Go's map does not preserve
// insertion order, but spec.md's Dict contract only requires that lookup
// be deterministic and that duplicate keys resolve to the first
// occurrence — readDict in lex.go enforces the latter by refusing to
// overwrite an existing key.
type dict map[pdfName]interface{}

// objptr is an indirect reference: (object number, generation).
type objptr struct {
	id  uint32
	gen uint16
}

// objdef is a top-level "N G obj ... endobj" definition as produced by
// the lexer; only the xref resolver consumes it.
type objdef struct {
	ptr objptr
	obj interface{}
}

// stream is a dict plus the byte range of its (still filter-encoded)
// payload in the source file.
type stream struct {
	hdr    dict
	ptr    objptr
	offset int64
}

// keyword is a bare PDF keyword/delimiter token (operators, "obj",
// "endobj", "R", "<<", ">>", "[", "]", etc).
type keyword string
