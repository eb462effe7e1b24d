// SPDX-License-Identifier: BSD-3-Clause

// ToUnicode CMap interpretation (spec.md §4.6): codespace ranges plus
// bfchar/bfrange mappings, including the array-destination form of
// bfrange the teacher's resolveBfrangeWithArray handled but this
// package's distilled spec had flagged as an open gap — it is closed
// here. UTF-16BE decoding of CMap destination strings goes through
// golang.org/x/text/encoding/unicode rather than a hand-rolled surrogate
// decoder, grounded on the same x/text dependency used by encoding.go.
package pdf

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

type codespaceRange struct {
	lo, hi []byte
}

type bfRangeEntry struct {
	lo, hi   []byte
	dstRaw   []byte   // UTF-16BE bytes, used when the destination is a single hex string
	dstArray [][]byte // per-code UTF-16BE byte strings, used for the array destination form
}

// cmap is a parsed ToUnicode (or Identity-style) character map.
type cmap struct {
	codespaces []codespaceRange
	chars      map[string][]byte
	ranges     []bfRangeEntry
}

func parseCMap(data []byte) (*cmap, error) {
	b := newBuffer(data, 0, 100)
	cm := &cmap{chars: make(map[string][]byte)}
	for {
		tok := b.readToken()
		if tok == io.EOF {
			break
		}
		kw, ok := tok.(keyword)
		if !ok {
			continue
		}
		switch kw {
		case "begincodespacerange":
			readCodespaceRange(b, cm)
		case "beginbfchar":
			readBfChar(b, cm)
		case "beginbfrange":
			readBfRange(b, cm)
		}
	}
	return cm, nil
}

func readCodespaceRange(b *buffer, cm *cmap) {
	for {
		tok := b.readToken()
		if tok == keyword("endcodespacerange") || tok == io.EOF {
			return
		}
		lo, ok := tok.(pdfString)
		if !ok {
			continue
		}
		hi, ok := b.readToken().(pdfString)
		if !ok {
			continue
		}
		cm.codespaces = append(cm.codespaces, codespaceRange{lo: []byte(lo), hi: []byte(hi)})
	}
}

func readBfChar(b *buffer, cm *cmap) {
	for {
		tok := b.readToken()
		if tok == keyword("endbfchar") || tok == io.EOF {
			return
		}
		src, ok := tok.(pdfString)
		if !ok {
			continue
		}
		if dst, ok := b.readToken().(pdfString); ok {
			cm.chars[string(src)] = []byte(dst)
		}
	}
}

func readBfRange(b *buffer, cm *cmap) {
	for {
		tok := b.readToken()
		if tok == keyword("endbfrange") || tok == io.EOF {
			return
		}
		lo, ok := tok.(pdfString)
		if !ok {
			continue
		}
		hi, ok := b.readToken().(pdfString)
		if !ok {
			continue
		}
		switch dst := b.readToken().(type) {
		case pdfString:
			cm.ranges = append(cm.ranges, bfRangeEntry{lo: []byte(lo), hi: []byte(hi), dstRaw: []byte(dst)})
		case keyword:
			if dst != "[" {
				continue
			}
			var arr [][]byte
			for {
				t2 := b.readToken()
				if t2 == keyword("]") || t2 == io.EOF {
					break
				}
				if s, ok := t2.(pdfString); ok {
					arr = append(arr, []byte(s))
				}
			}
			cm.ranges = append(cm.ranges, bfRangeEntry{lo: []byte(lo), hi: []byte(hi), dstArray: arr})
		}
	}
}

// Decode maps raw character-code bytes to Unicode text, greedily matching
// the longest codespace range whose width the leading bytes fall inside
// (spec.md §4.6). A code that falls in a codespace but has no chars/ranges
// entry emits U+FFFD in permissive mode, or is a typed error in strict mode.
func (cm *cmap) Decode(data []byte, strict bool) (string, error) {
	var sb strings.Builder
	for len(data) > 0 {
		n := cm.codeLength(data)
		if n > len(data) {
			n = len(data)
		}
		code := data[:n]
		data = data[n:]
		raw, ok := cm.lookup(code)
		if !ok {
			if strict {
				return "", newErr(ErrUnmappedCharCode, "Decode", fmt.Errorf("no ToUnicode mapping for code %x", code))
			}
			sb.WriteRune('�')
			continue
		}
		sb.WriteString(utf16beToString(raw))
	}
	return sb.String(), nil
}

func (cm *cmap) codeLength(data []byte) int {
	best := 0
	for _, cs := range cm.codespaces {
		n := len(cs.lo)
		if n == 0 || n > len(data) {
			continue
		}
		if bytesInRange(data[:n], cs.lo, cs.hi) && n > best {
			best = n
		}
	}
	if best > 0 {
		return best
	}
	if len(cm.codespaces) > 0 {
		return len(cm.codespaces[0].lo)
	}
	return 1
}

func bytesInRange(b, lo, hi []byte) bool {
	if len(b) != len(lo) || len(lo) != len(hi) {
		return false
	}
	for i := range b {
		if b[i] < lo[i] || b[i] > hi[i] {
			return false
		}
	}
	return true
}

func (cm *cmap) lookup(code []byte) ([]byte, bool) {
	if raw, ok := cm.chars[string(code)]; ok {
		return raw, true
	}
	for _, r := range cm.ranges {
		if len(code) != len(r.lo) || !bytesInRange(code, r.lo, r.hi) {
			continue
		}
		offset := decodeBigEndian(code) - decodeBigEndian(r.lo)
		if r.dstArray != nil {
			if offset >= 0 && int(offset) < len(r.dstArray) {
				return r.dstArray[offset], true
			}
			return nil, false
		}
		return incrementUTF16(r.dstRaw, offset), true
	}
	return nil, false
}

// incrementUTF16 adds offset to the last 16-bit code unit of a UTF-16BE
// byte string, the common case for bfrange destinations (a contiguous
// run of code points reachable by bumping only the low code unit).
func incrementUTF16(raw []byte, offset int64) []byte {
	if len(raw) < 2 {
		return raw
	}
	out := append([]byte(nil), raw...)
	last := int(out[len(out)-2])<<8 | int(out[len(out)-1])
	last = (last + int(offset)) & 0xFFFF
	out[len(out)-2] = byte(last >> 8)
	out[len(out)-1] = byte(last)
	return out
}

func utf16beToString(raw []byte) string {
	if len(raw)%2 != 0 {
		raw = append(append([]byte(nil), raw...), 0)
	}
	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
