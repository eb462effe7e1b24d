// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHeader(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		shouldErr bool
	}{
		{"valid 1.7", "%PDF-1.7\n%%binary\n", false},
		{"valid 2.0", "%PDF-2.0\n", false},
		{"leading garbage tolerated", "\x00\x01%PDF-1.4\n", false},
		{"missing header", "not a pdf", true},
		{"unsupported version", "%PDF-3.0\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := CheckHeader([]byte(tt.data))
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEOFMarker(t *testing.T) {
	assert.NoError(t, ValidateEOFMarker([]byte("...%%EOF")))
	assert.NoError(t, ValidateEOFMarker([]byte("...%%EOF\n\n")))
	assert.Error(t, ValidateEOFMarker([]byte("...no marker here")))
}

func TestFindStartXref(t *testing.T) {
	data := []byte("whatever\nstartxref\n1234\n%%EOF")
	off, err := FindStartXref(data)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), off)
}

func TestFindStartXrefUsesLastOccurrence(t *testing.T) {
	data := []byte("startxref\n1\n%%EOF\nmore data\nstartxref\n9999\n%%EOF")
	off, err := FindStartXref(data)
	require.NoError(t, err)
	assert.Equal(t, int64(9999), off)
}

func TestFindStartXrefMissing(t *testing.T) {
	_, err := FindStartXref([]byte("no marker at all"))
	assert.Error(t, err)
}

// buildRevision appends an object definition plus a legacy xref table and
// trailer to base, returning the new document bytes and the offset of the
// startxref value a reader would follow to reach this revision.
func buildRevision(t *testing.T, base string, objOffset int, objText, prevClause string) (string, int) {
	t.Helper()
	xrefOffset := objOffset + len(objText)
	xref := fmt.Sprintf(
		"xref\n0 2\n0000000000 65535 f \n%010d 00000 n \ntrailer\n<< /Size 2 /Root 2 0 R%s >>\nstartxref\n%d\n%%%%EOF\n",
		objOffset, prevClause, xrefOffset,
	)
	return base + objText + xref, xrefOffset
}

func TestReadXrefTablePrevChainNewestWins(t *testing.T) {
	header := "%PDF-1.4\n"
	obj1aOffset := len(header)
	obj1a := "1 0 obj\n(A)\nendobj\n"
	rev1, xref1Offset := buildRevision(t, header, obj1aOffset, obj1a, "")

	obj1bOffset := len(rev1)
	obj1b := "1 0 obj\n(B)\nendobj\n"
	rev2, xref2Offset := buildRevision(t, rev1, obj1bOffset, obj1b, fmt.Sprintf(" /Prev %d", xref1Offset))

	data := []byte(rev2)
	table, trailer, err := readXref(data, int64(xref2Offset), 100)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, int64(obj1bOffset), table[1].offset, "newest revision's offset must win over Prev")
	assert.Equal(t, objptr{id: 2, gen: 0}, trailer[pdfName("Root")])
}

func TestReadXrefStreamMinimal(t *testing.T) {
	header := "%PDF-1.5\n"
	objOffset := len(header)
	objText := "1 0 obj\n(hi)\nendobj\n"
	strmOffset := objOffset + len(objText)

	// W = [1 2 1]: type(1B) offset(2B) gen(1B) per entry, two entries.
	rec0 := []byte{0x00, 0x00, 0x00, 0xFF}
	rec1 := []byte{0x01, byte(objOffset >> 8), byte(objOffset), 0x00}
	raw := append(rec0, rec1...)

	xrefObj := fmt.Sprintf(
		"2 0 obj\n<< /Type /XRef /W [1 2 1] /Size 2 /Root 3 0 R /Length %d >>\nstream\n%s\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n",
		len(raw), string(raw), strmOffset,
	)

	data := []byte(header + objText + xrefObj)
	table, trailer, err := readXref(data, int64(strmOffset), 100)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.True(t, table[0].ptr == (objptr{}) || table[0].ptr.gen == 65535)
	assert.Equal(t, int64(objOffset), table[1].offset)
	assert.Equal(t, objptr{id: 3, gen: 0}, trailer[pdfName("Root")])
}

// TestReadXrefTableTrailerPrefersNewestSection builds a two-revision
// document where the incremental update both adds a new object and grows
// /Size accordingly. The document trailer returned must be the newest
// section's (larger /Size), not the original revision's — trimming to the
// original /Size would slice the newly added object's entry off the table.
func TestReadXrefTableTrailerPrefersNewestSection(t *testing.T) {
	header := "%PDF-1.4\n"
	obj1Offset := len(header)
	obj1 := "1 0 obj\n(Page1)\nendobj\n"
	obj2Offset := obj1Offset + len(obj1)
	obj2 := "2 0 obj\n<< /Type /Catalog >>\nendobj\n"
	xref1Offset := obj2Offset + len(obj2)
	xref1 := fmt.Sprintf(
		"xref\n0 3\n0000000000 65535 f \n%010d 00000 n \n%010d 00000 n \ntrailer\n<< /Size 3 /Root 2 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		obj1Offset, obj2Offset, xref1Offset,
	)
	rev1 := header + obj1 + obj2 + xref1

	obj3Offset := len(rev1)
	obj3 := "3 0 obj\n(Page2)\nendobj\n"
	xref2Offset := obj3Offset + len(obj3)
	xref2 := fmt.Sprintf(
		"xref\n3 1\n%010d 00000 n \ntrailer\n<< /Size 4 /Root 2 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n",
		obj3Offset, xref1Offset, xref2Offset,
	)
	rev2 := rev1 + obj3 + xref2

	data := []byte(rev2)
	table, trailer, err := readXref(data, int64(xref2Offset), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(4), trailer[pdfName("Size")], "trailer must be the newest section's, not the oldest")
	assert.Equal(t, objptr{id: 2, gen: 0}, trailer[pdfName("Root")])
	require.Len(t, table, 4, "newest /Size must not be trimmed away by an older section's smaller /Size")
	assert.Equal(t, int64(obj3Offset), table[3].offset, "object added by the incremental update must survive")
}

func TestReadXrefInvalidOffset(t *testing.T) {
	_, _, err := readXref([]byte("short"), 9999, 100)
	require.Error(t, err)
	var pe *PDFError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInvalidXrefOffset, pe.Kind)
}
