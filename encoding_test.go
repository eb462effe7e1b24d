// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWinAnsiEncodingASCIIAndHighRange(t *testing.T) {
	tbl := winAnsiEncoding()
	assert.Equal(t, rune('A'), tbl['A'])
	assert.Equal(t, rune(0x20AC), tbl[0x80]) // Euro sign
}

func TestMacRomanEncodingHighRange(t *testing.T) {
	tbl := macRomanEncoding()
	assert.Equal(t, rune('A'), tbl['A'])
	assert.Equal(t, rune(0x00C4), tbl[0x80]) // Adieresis
}

func TestStandardEncodingQuotes(t *testing.T) {
	tbl := standardEncoding()
	assert.Equal(t, rune(0x2019), tbl[0x27]) // quoteright
	assert.Equal(t, rune(0x2018), tbl[0x60]) // quoteleft
	assert.Equal(t, rune('A'), tbl['A'])
}

func TestBaseEncodingTableDispatch(t *testing.T) {
	assert.Equal(t, winAnsiEncoding(), baseEncodingTable("WinAnsiEncoding"))
	assert.Equal(t, macRomanEncoding(), baseEncodingTable("MacRomanEncoding"))
	assert.Equal(t, standardEncoding(), baseEncodingTable("Unknown"))
}

func TestApplyDifferences(t *testing.T) {
	r := newTestResolver()
	diffs := valueOf(r, array{int64(65), pdfName("Euro"), pdfName("space")})
	tbl := applyDifferences(standardEncoding(), diffs)
	assert.Equal(t, rune(0x20AC), tbl[65])
	assert.Equal(t, rune(' '), tbl[66])
}

func TestApplyDifferencesNonArrayIsNoop(t *testing.T) {
	r := newTestResolver()
	base := standardEncoding()
	got := applyDifferences(base, valueOf(r, nil))
	assert.Equal(t, base, got)
}

func TestGlyphNameToRune(t *testing.T) {
	tests := []struct {
		name    string
		want    rune
		wantOK  bool
	}{
		{"space", ' ', true},
		{"A", 'A', true},
		{"Euro", 0x20AC, true},
		{"uni0041", 'A', true},
		{"u1F600", 0x1F600, true},
		{"totally-unknown-glyph", 0, false},
	}
	for _, tt := range tests {
		r, ok := glyphNameToRune(tt.name)
		assert.Equal(t, tt.wantOK, ok, tt.name)
		if tt.wantOK {
			assert.Equal(t, tt.want, r, tt.name)
		}
	}
}

func TestIsUTF16BOM(t *testing.T) {
	assert.True(t, isUTF16BOM("\xFE\xFF\x00A"))
	assert.False(t, isUTF16BOM("hello"))
	assert.False(t, isUTF16BOM("\xFE"))
}

func TestPDFDocDecodeRoundTrip(t *testing.T) {
	s := "Hello"
	assert.True(t, isPDFDocEncoded(s))
	assert.Equal(t, "Hello", pdfDocDecode(s))
}
