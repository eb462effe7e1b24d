// SPDX-License-Identifier: BSD-3-Clause

// Simple-font (single-byte) text encodings (spec.md §4.6): the four
// predefined base encodings plus per-font /Differences overrides.
// WinAnsiEncoding and MacRomanEncoding are derived from
// golang.org/x/text/encoding/charmap's Windows1252 and Macintosh tables
// (grounded on the opendcm reader in other_examples/ and on
// ScriptRock-pdf's go.mod, which both carry golang.org/x/text) instead of
// a hand-rolled 256-entry table for those two. StandardEncoding and
// MacExpertEncoding have no charmap equivalent in the x/text package and
// are hardcoded per ISO 32000-1 Annex D.
package pdf

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// simpleEncodingTable maps a single byte to a Unicode code point; 0
// means "unmapped" and the byte is skipped during extraction.
type simpleEncodingTable [256]rune

func charmapTable(cm *charmap.Charmap) simpleEncodingTable {
	var t simpleEncodingTable
	for i := 0; i < 256; i++ {
		t[i] = cm.DecodeByte(byte(i))
	}
	return t
}

func winAnsiEncoding() simpleEncodingTable  { return charmapTable(charmap.Windows1252) }
func macRomanEncoding() simpleEncodingTable { return charmapTable(charmap.Macintosh) }

// standardEncoding implements ISO 32000-1 Annex D.2: the ASCII printable
// range (with quoteright and quoteleft at 0x27 and 0x60) plus the
// high-range punctuation, fraction, ligature, accent and letter glyphs.
// Codes StandardEncoding leaves undefined stay unmapped, which extraction
// simply skips.
func standardEncoding() simpleEncodingTable {
	var t simpleEncodingTable
	for i := rune(0x20); i <= 0x7E; i++ {
		t[i] = i
	}
	t[0x27] = 0x2019 // quoteright
	t[0x60] = 0x2018 // quoteleft
	overrides := map[byte]rune{
		0xA1: 0x00A1, 0xA2: 0x00A2, 0xA3: 0x00A3, 0xA4: 0x2044, 0xA5: 0x00A5,
		0xA6: 0x0192, 0xA7: 0x00A7, 0xA8: 0x00A4, 0xA9: 0x0027, 0xAA: 0x201C,
		0xAB: 0x00AB, 0xAC: 0x2039, 0xAD: 0x203A, 0xAE: 0xFB01, 0xAF: 0xFB02,
		0xB1: 0x2013, 0xB2: 0x2020, 0xB3: 0x2021, 0xB4: 0x00B7, 0xB6: 0x00B6,
		0xB7: 0x2022, 0xB8: 0x201A, 0xB9: 0x201E, 0xBA: 0x201D, 0xBB: 0x00BB,
		0xBC: 0x2026, 0xBD: 0x2030, 0xBF: 0x00BF,
		0xC1: 0x0060, 0xC2: 0x00B4, 0xC3: 0x02C6, 0xC4: 0x02DC, 0xC5: 0x00AF,
		0xC6: 0x02D8, 0xC7: 0x02D9, 0xC8: 0x00A8, 0xCA: 0x02DA, 0xCB: 0x00B8,
		0xCD: 0x02DD, 0xCE: 0x02DB, 0xCF: 0x02C7,
		0xD0: 0x2014, 0xE1: 0x00C6, 0xE3: 0x00AA, 0xE8: 0x0141, 0xE9: 0x00D8,
		0xEA: 0x0152, 0xEB: 0x00BA, 0xF1: 0x00E6, 0xF5: 0x0131, 0xF8: 0x0142,
		0xF9: 0x00F8, 0xFA: 0x0153, 0xFB: 0x00DF,
	}
	for b, r := range overrides {
		t[b] = r
	}
	return t
}

// macExpertEncoding is almost never used for extraction (it encodes
// small caps / oldstyle-figure glyph variants with no distinct Unicode
// code point of their own); only the space code (0x20) is filled and
// every other code is unmapped, matching how little real-world text uses it.
func macExpertEncoding() simpleEncodingTable {
	var t simpleEncodingTable
	t[0x20] = 0x20
	return t
}

func baseEncodingTable(name string) simpleEncodingTable {
	switch name {
	case "WinAnsiEncoding":
		return winAnsiEncoding()
	case "MacRomanEncoding":
		return macRomanEncoding()
	case "MacExpertEncoding":
		return macExpertEncoding()
	default:
		return standardEncoding()
	}
}

// applyDifferences patches base per a font's /Differences array: entries
// alternate between an integer starting code and a run of glyph names
// assigned to consecutive codes from there (spec.md §4.6).
func applyDifferences(base simpleEncodingTable, diffs Value) simpleEncodingTable {
	t := base
	if diffs.Kind() != KindArray {
		return t
	}
	code := 0
	for i := 0; i < diffs.Len(); i++ {
		e := diffs.Index(i)
		switch e.Kind() {
		case KindInteger:
			code = int(e.Int64())
		case KindName:
			if code >= 0 && code < 256 {
				if r, ok := glyphNameToRune(e.Name()); ok {
					t[code] = r
				}
			}
			code++
		}
	}
	return t
}

// glyphNameToRune resolves a PostScript glyph name to a Unicode code
// point using a common-case table plus the "uniXXXX"/"uXXXX" generic
// name conventions (ISO 32000-1 Annex D.6). Uncommon glyph names (ligature
// variants, regional letter forms) outside this set report ok=false and
// are left unmapped by the caller.
func glyphNameToRune(name string) (rune, bool) {
	if r, ok := commonGlyphNames[name]; ok {
		return r, true
	}
	if strings.HasPrefix(name, "uni") && len(name) >= 7 {
		if v, err := strconv.ParseUint(name[3:7], 16, 32); err == nil {
			return rune(v), true
		}
	}
	if strings.HasPrefix(name, "u") && len(name) >= 5 && len(name) <= 7 {
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil {
			return rune(v), true
		}
	}
	return 0, false
}

var commonGlyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#',
	"dollar": '$', "percent": '%', "ampersand": '&', "quotesingle": '\'',
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+',
	"comma": ',', "hyphen": '-', "period": '.', "slash": '/',
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
	"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"colon": ':', "semicolon": ';', "less": '<', "equal": '=', "greater": '>',
	"question": '?', "at": '@', "bracketleft": '[', "backslash": '\\',
	"bracketright": ']', "asciicircum": '^', "underscore": '_',
	"grave": '`', "braceleft": '{', "bar": '|', "braceright": '}',
	"asciitilde": '~', "quoteleft": 0x2018, "quoteright": 0x2019,
	"quotedblleft": 0x201C, "quotedblright": 0x201D, "bullet": 0x2022,
	"endash": 0x2013, "emdash": 0x2014, "ellipsis": 0x2026,
	"fi": 0xFB01, "fl": 0xFB02, "dagger": 0x2020, "daggerdbl": 0x2021,
	"trademark": 0x2122, "copyright": 0x00A9, "registered": 0x00AE,
	"degree": 0x00B0, "plusminus": 0x00B1, "section": 0x00A7,
	"paragraph": 0x00B6, "periodcentered": 0x00B7, "dieresis": 0x00A8,
	"Euro": 0x20AC, "currency": 0x00A4, "florin": 0x0192,
	"AE": 0x00C6, "ae": 0x00E6, "OE": 0x0152, "oe": 0x0153,
	"Oslash": 0x00D8, "oslash": 0x00F8, "germandbls": 0x00DF,
	"dotlessi": 0x0131, "Lslash": 0x0141, "lslash": 0x0142,
}

func init() {
	for c := 'A'; c <= 'Z'; c++ {
		commonGlyphNames[string(c)] = c
	}
	for c := 'a'; c <= 'z'; c++ {
		commonGlyphNames[string(c)] = c
	}
}

// pdfDocEncodingTable approximates ISO 32000-1 Annex D.3 PDFDocEncoding,
// used to decode /Info dictionary strings, with WinAnsiEncoding: the two
// agree over the ASCII and Latin-1 ranges that document metadata strings
// use in practice, differing only in a handful of control-range glyphs
// (breve, caron, and similar diacritics) that metadata.go does not
// special-case.
var pdfDocEncodingTable = winAnsiEncoding()

func isPDFDocEncoded(s string) bool {
	for i := 0; i < len(s); i++ {
		if pdfDocEncodingTable[s[i]] == 0 {
			return false
		}
	}
	return true
}

func pdfDocDecode(s string) string {
	out := make([]rune, 0, len(s))
	for i := 0; i < len(s); i++ {
		if r := pdfDocEncodingTable[s[i]]; r != 0 {
			out = append(out, r)
		}
	}
	return string(out)
}

// isUTF16BOM reports whether s has an even length and opens with the
// big-endian UTF-16 byte-order mark PDF text strings use to signal
// non-PDFDocEncoded content (ISO 32000-1 §7.9.2.2).
func isUTF16BOM(s string) bool {
	return len(s) >= 2 && len(s)%2 == 0 && s[0] == 0xFE && s[1] == 0xFF
}
