// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a PDFError so callers can branch on failure mode
// without string-matching messages.
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrStartXrefNotFound
	ErrInvalidXrefOffset
	ErrInvalidXrefTable
	ErrInvalidXrefStream
	ErrInvalidTrailer
	ErrUnexpectedToken
	ErrUnexpectedEOF
	ErrInvalidNumber
	ErrInvalidString
	ErrInvalidHexString
	ErrInvalidName
	ErrInvalidDictionary
	ErrInvalidArray
	ErrInvalidStream
	ErrInvalidReference
	ErrNestingTooDeep
	ErrUnknownFilter
	ErrDecompressionFailed
	ErrInvalidPageTree
	ErrUnknownOperator
	ErrFontNotFound
	ErrUnmappedCharCode
	ErrCancelled
	ErrOutOfMemory
	ErrEncrypted
)

var errorKindNames = map[ErrorKind]string{
	ErrUnknown:             "Unknown",
	ErrStartXrefNotFound:   "StartXrefNotFound",
	ErrInvalidXrefOffset:   "InvalidXrefOffset",
	ErrInvalidXrefTable:    "InvalidXrefTable",
	ErrInvalidXrefStream:   "InvalidXrefStream",
	ErrInvalidTrailer:      "InvalidTrailer",
	ErrUnexpectedToken:     "UnexpectedToken",
	ErrUnexpectedEOF:       "UnexpectedEof",
	ErrInvalidNumber:       "InvalidNumber",
	ErrInvalidString:       "InvalidString",
	ErrInvalidHexString:    "InvalidHexString",
	ErrInvalidName:         "InvalidName",
	ErrInvalidDictionary:   "InvalidDictionary",
	ErrInvalidArray:        "InvalidArray",
	ErrInvalidStream:       "InvalidStream",
	ErrInvalidReference:    "InvalidReference",
	ErrNestingTooDeep:      "NestingTooDeep",
	ErrUnknownFilter:       "UnknownFilter",
	ErrDecompressionFailed: "DecompressionFailed",
	ErrInvalidPageTree:     "InvalidPageTree",
	ErrUnknownOperator:     "UnknownOperator",
	ErrFontNotFound:        "FontNotFound",
	ErrUnmappedCharCode:    "UnmappedCharCode",
	ErrCancelled:           "Cancelled",
	ErrOutOfMemory:         "OutOfMemory",
	ErrEncrypted:           "Encrypted",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// fatalKinds are structural failures that Permissive mode still surfaces:
// without a valid xref/catalog/page-tree there is nothing to recover into.
var fatalKinds = map[ErrorKind]bool{
	ErrStartXrefNotFound: true,
	ErrInvalidXrefTable:  true,
	ErrInvalidXrefStream: true,
	ErrInvalidTrailer:    true,
	ErrInvalidPageTree:   true,
	ErrOutOfMemory:       true,
	ErrEncrypted:         true,
}

// PDFError is the error type returned across the package boundary. It wraps
// an underlying cause (when one exists) and names the operation and kind so
// that errors.As callers can classify failures programmatically.
type PDFError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *PDFError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdf: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("pdf: %s: %s", e.Op, e.Kind)
}

func (e *PDFError) Unwrap() error { return e.Err }

// Fatal reports whether this error represents a structural failure that
// cannot be recovered from even in Permissive mode.
func (e *PDFError) Fatal() bool {
	return fatalKinds[e.Kind]
}

func newErr(kind ErrorKind, op string, err error) *PDFError {
	return &PDFError{Kind: kind, Op: op, Err: err}
}

// IsFatal reports whether err represents a structural failure, looking
// through wrapped errors via errors.As.
func IsFatal(err error) bool {
	var pe *PDFError
	if errors.As(err, &pe) {
		return pe.Fatal()
	}
	return err != nil
}
