// SPDX-License-Identifier: BSD-3-Clause

package pdf

import "bytes"

// This file implements spec.md §4.1's byte-scan primitives. They are kept
// as a small, independent capability set — not because the algorithms are
// subtle, but so that a future SIMD backend (explicitly out of scope per
// spec.md §1) has a scalar reference to validate against. Grounded on the
// teacher's read.go wsBits bitmap technique for whitespace classification.

// wsBits is a 256-bit membership set (4 uint64 words) for PDF whitespace:
// NUL, tab, LF, FF, CR, space (ISO 32000-1 §7.2.2).
var wsBits [4]uint64

func init() {
	for _, b := range []byte{0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20} {
		wsBits[b>>6] |= 1 << (b & 63)
	}
}

// isWhitespace reports whether b is PDF whitespace.
func isWhitespace(b byte) bool {
	return (wsBits[b>>6] & (1 << (b & 63))) != 0
}

// isDelimiter reports whether b is one of the ten PDF delimiter bytes.
func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// isRegular reports whether b is neither whitespace nor a delimiter —
// i.e. it may appear inside a bare keyword, number, or name token.
func isRegular(b byte) bool {
	return !isWhitespace(b) && !isDelimiter(b)
}

// findSubstring returns the byte offset of the first occurrence of needle
// in haystack, or -1 if absent. A thin wrapper over bytes.Index so callers
// have one substring primitive to swap for a vectorized implementation.
func findSubstring(haystack, needle []byte) int {
	return bytes.Index(haystack, needle)
}

// findLastSubstring returns the byte offset of the last occurrence of
// needle in haystack, or -1 if absent.
func findLastSubstring(haystack, needle []byte) int {
	return bytes.LastIndex(haystack, needle)
}

// skipWhitespace advances i past a run of PDF whitespace bytes.
func skipWhitespace(buf []byte, i int) int {
	for i < len(buf) && isWhitespace(buf[i]) {
		i++
	}
	return i
}

// endsWithEOL reports whether the last byte in buf[start:end] is CR or LF.
func endsWithEOL(buf []byte, start, end int) bool {
	if end <= start {
		return false
	}
	last := buf[end-1]
	return last == '\n' || last == '\r'
}

func unhex(b byte) int {
	switch {
	case '0' <= b && b <= '9':
		return int(b - '0')
	case 'a' <= b && b <= 'f':
		return int(b-'a') + 10
	case 'A' <= b && b <= 'F':
		return int(b-'A') + 10
	}
	return -1
}
