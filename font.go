// SPDX-License-Identifier: BSD-3-Clause

// Font wrappers bridging a PDF /Font dictionary to the byte-to-Unicode
// decode contract interpreter.go needs (spec.md §4.6). Grounded on the
// teacher's page.go Font type and its getEncoder dispatch, split here
// into a simple/composite variant instead of one struct with optional
// fields, since the two have materially different decode rules.
package pdf

type fontKind int

const (
	fontSimple fontKind = iota
	fontComposite
)

// font is the decode-time view of a /Font resource: enough to turn a
// content-stream string operand into Unicode text.
type font struct {
	kind      fontKind
	encoding  simpleEncodingTable // simple fonts only
	toUnicode *cmap               // optional for either kind; takes priority when present
	cidWidths map[int]float64     // parsed from /W for completeness; not consulted by extraction
	widths    map[int]float64     // parsed from /Widths for completeness; not consulted by extraction
}

func loadFont(fv Value) (*font, error) {
	subtype := fv.Key("Subtype").Name()
	if subtype == "Type0" {
		return loadCompositeFont(fv)
	}
	return loadSimpleFont(fv)
}

func loadSimpleFont(fv Value) (*font, error) {
	f := &font{kind: fontSimple, encoding: standardEncoding()}
	enc := fv.Key("Encoding")
	switch enc.Kind() {
	case KindName:
		f.encoding = baseEncodingTable(enc.Name())
	case KindDict:
		base := enc.Key("BaseEncoding").Name()
		f.encoding = baseEncodingTable(base)
		f.encoding = applyDifferences(f.encoding, enc.Key("Differences"))
	}
	if tu, err := loadToUnicode(fv); err != nil {
		return nil, err
	} else {
		f.toUnicode = tu
	}
	f.widths = parseSimpleWidths(fv)
	return f, nil
}

func loadCompositeFont(fv Value) (*font, error) {
	f := &font{kind: fontComposite}
	if tu, err := loadToUnicode(fv); err != nil {
		return nil, err
	} else {
		f.toUnicode = tu
	}
	descendants := fv.Key("DescendantFonts")
	if descendants.Kind() == KindArray && descendants.Len() > 0 {
		f.cidWidths = parseCIDWidths(descendants.Index(0).Key("W"))
	}
	return f, nil
}

func loadToUnicode(fv Value) (*cmap, error) {
	tu := fv.Key("ToUnicode")
	if tu.Kind() != KindStream {
		return nil, nil
	}
	data, err := tu.decodedBytes()
	if err != nil {
		return nil, err
	}
	return parseCMap(data)
}

func parseSimpleWidths(fv Value) map[int]float64 {
	first := fv.Key("FirstChar")
	widths := fv.Key("Widths")
	if first.Kind() != KindInteger || widths.Kind() != KindArray {
		return nil
	}
	out := make(map[int]float64, widths.Len())
	base := int(first.Int64())
	for i := 0; i < widths.Len(); i++ {
		out[base+i] = widths.Index(i).Float64()
	}
	return out
}

// parseCIDWidths reads a descendant font's /W array: a sequence of either
// "c [w1 w2 ...]" (consecutive CIDs starting at c) or "cFirst cLast w"
// (a uniform range) groups.
func parseCIDWidths(w Value) map[int]float64 {
	if w.Kind() != KindArray {
		return nil
	}
	out := make(map[int]float64)
	i := 0
	for i < w.Len() {
		first := int(w.Index(i).Int64())
		i++
		if i >= w.Len() {
			break
		}
		if w.Index(i).Kind() == KindArray {
			list := w.Index(i)
			for j := 0; j < list.Len(); j++ {
				out[first+j] = list.Index(j).Float64()
			}
			i++
			continue
		}
		last := int(w.Index(i).Int64())
		i++
		if i >= w.Len() {
			break
		}
		width := w.Index(i).Float64()
		i++
		for cid := first; cid <= last; cid++ {
			out[cid] = width
		}
	}
	return out
}

// decodeText turns a content-stream string operand into Unicode text per
// f's decode rule: a ToUnicode CMap always wins when present (an in-codespace
// code it cannot map emits U+FFFD in permissive mode or errors in strict
// mode, per cmap.Decode); otherwise a simple font decodes byte-by-byte
// through its encoding table, and a composite font without ToUnicode has no
// inferable CID->Unicode mapping and contributes no text (spec.md §9 Open
// Question: guessing wrong is worse than omitting).
func (f *font) decodeText(data []byte, strict bool) (string, error) {
	if f.toUnicode != nil {
		return f.toUnicode.Decode(data, strict)
	}
	if f.kind == fontComposite {
		return "", nil
	}
	out := make([]rune, 0, len(data))
	for _, b := range data {
		if r := f.encoding[b]; r != 0 {
			out = append(out, r)
		}
	}
	return string(out), nil
}
