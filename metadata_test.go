// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDFWithInfo extends buildSinglePagePDF with an /Info dictionary
// named by the trailer, to exercise metadata extraction.
func buildPDFWithInfo(t *testing.T, infoBody string) []byte {
	b := newPDFBuilder()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>")
	b.obj(4, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	b.streamObj(5, "", "BT /F1 12 Tf 72 700 Td (hi) Tj ET")
	b.obj(6, infoBody)

	return b.finishWithExtraTrailer(t, 1, 7, " /Info 6 0 R")
}

func TestMetadataFromInfoDict(t *testing.T) {
	data := buildPDFWithInfo(t, "<< /Title (My Title) /Author (Jane Doe) >>")
	doc, err := Open(data, nil)
	require.NoError(t, err)

	info, err := doc.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "My Title", info.Title)
	assert.Equal(t, "Jane Doe", info.Author)
}

func TestAccessPermissionsNoEncryptGrantsAll(t *testing.T) {
	data := buildSinglePagePDF(t, "x")
	doc, err := Open(data, nil)
	require.NoError(t, err)
	ap := doc.accessPermissions()
	assert.True(t, ap.CanPrint)
	assert.True(t, ap.ExtractContent)
	assert.True(t, ap.AssembleDocument)
}

func TestContainsNonEmbeddedFontTrueWhenNoFontDescriptor(t *testing.T) {
	data := buildSinglePagePDF(t, "x")
	doc, err := Open(data, nil)
	require.NoError(t, err)
	assert.True(t, doc.containsNonEmbeddedFont())
}

func TestDocumentInfoReportsPageCountAndVersion(t *testing.T) {
	data := buildThreePagePDF(t)
	doc, err := Open(data, nil)
	require.NoError(t, err)
	di, err := doc.DocumentInfo()
	require.NoError(t, err)
	assert.Equal(t, 3, di.NPages)
	assert.Equal(t, "1.4", di.PDFVersion)
	assert.False(t, di.Encrypted)
}

func TestParseXMPFallbackExtractsTitle(t *testing.T) {
	xmp := `<rdf:RDF><rdf:Description><dc:title>Fallback Title</dc:title></rdf:Description></rdf:RDF>`
	f := parseXMPFallback(xmp)
	assert.Equal(t, "Fallback Title", f.Title)
}

func TestStripXMLTags(t *testing.T) {
	assert.Equal(t, "hello", stripXMLTags("<b>hello</b>"))
}

func TestPreferPicksNonEmpty(t *testing.T) {
	assert.Equal(t, "a", prefer("a", "b"))
	assert.Equal(t, "b", prefer("", "b"))
	assert.Equal(t, "", prefer("  ", ""))
}
