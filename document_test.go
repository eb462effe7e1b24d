// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pdfBuilder assembles a minimal, hand-offset PDF file body the same way
// buildRevision does in xref_test.go, but for a full document: catalog,
// page tree, one or more pages, and a trailing legacy xref table.
type pdfBuilder struct {
	buf     bytes.Buffer
	offsets map[int]int
}

func newPDFBuilder() *pdfBuilder {
	b := &pdfBuilder{offsets: make(map[int]int)}
	b.buf.WriteString("%PDF-1.4\n")
	return b
}

func (b *pdfBuilder) obj(id int, body string) {
	b.offsets[id] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

func (b *pdfBuilder) streamObj(id int, hdr, content string) {
	b.offsets[id] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n%s\nendstream\nendobj\n", id, hdr, len(content), content)
}

func (b *pdfBuilder) finish(t *testing.T, root int, size int) []byte {
	return b.finishWithExtraTrailer(t, root, size, "")
}

// finishWithExtraTrailer is finish with an additional raw clause (e.g.
// " /Info 6 0 R") spliced into the trailer dictionary.
func (b *pdfBuilder) finishWithExtraTrailer(t *testing.T, root int, size int, extra string) []byte {
	t.Helper()
	xrefOffset := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n0000000000 65535 f \n", size)
	for i := 1; i < size; i++ {
		off, ok := b.offsets[i]
		require.True(t, ok, "object %d never written", i)
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d /Root %d 0 R%s >>\nstartxref\n%d\n%%%%EOF", size, root, extra, xrefOffset)
	return b.buf.Bytes()
}

// buildSinglePagePDF produces a 1-page document whose content stream
// shows a single Tj string, with one font resource /F1.
func buildSinglePagePDF(t *testing.T, text string) []byte {
	b := newPDFBuilder()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>")
	b.obj(4, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	content := fmt.Sprintf("BT /F1 12 Tf 72 700 Td (%s) Tj ET", text)
	b.streamObj(5, "", content)
	return b.finish(t, 1, 6)
}

// buildThreePagePDF produces a 3-page document to exercise document-order
// extraction and page count.
func buildThreePagePDF(t *testing.T) []byte {
	b := newPDFBuilder()
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R 5 0 R 7 0 R] /Count 3 >>")
	font := "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"
	b.obj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources << /Font << /F1 4 0 R >> >> /Contents 9 0 R >>")
	b.obj(4, font)
	b.obj(5, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources << /Font << /F1 6 0 R >> >> /Contents 10 0 R >>")
	b.obj(6, font)
	b.obj(7, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Resources << /Font << /F1 8 0 R >> >> /Contents 11 0 R >>")
	b.obj(8, font)
	b.streamObj(9, "", "BT /F1 12 Tf 72 700 Td (Page One) Tj ET")
	b.streamObj(10, "", "BT /F1 12 Tf 72 700 Td (Page Two) Tj ET")
	b.streamObj(11, "", "BT /F1 12 Tf 72 700 Td (Page Three) Tj ET")
	return b.finish(t, 1, 12)
}

func TestOpenAndExtractSinglePage(t *testing.T) {
	data := buildSinglePagePDF(t, "Hello World")
	doc, err := Open(data, nil)
	require.NoError(t, err)
	require.Equal(t, 1, doc.PageCount())
	assert.False(t, doc.IsEncrypted())

	text, err := doc.ExtractText(0)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", text)

	info, err := doc.GetPageInfo(0)
	require.NoError(t, err)
	assert.Equal(t, Rect{0, 0, 612, 792}, info.MediaBox)
}

func TestExtractAllOrdersPagesAndSeparatesWithFormFeed(t *testing.T) {
	data := buildThreePagePDF(t)
	doc, err := Open(data, nil)
	require.NoError(t, err)
	require.Equal(t, 3, doc.PageCount())

	all, err := doc.ExtractAll()
	require.NoError(t, err)
	assert.Equal(t, "Page One\fPage Two\fPage Three", all)
}

func TestExtractTextOutOfRangeIsError(t *testing.T) {
	data := buildSinglePagePDF(t, "x")
	doc, err := Open(data, nil)
	require.NoError(t, err)
	_, err = doc.ExtractText(5)
	assert.Error(t, err)
}

func TestOpenRejectsMissingHeader(t *testing.T) {
	_, err := Open([]byte("not a pdf at all"), nil)
	assert.Error(t, err)
}

func TestOpenExposesTrailerAndVersion(t *testing.T) {
	data := buildSinglePagePDF(t, "x")
	doc, err := Open(data, nil)
	require.NoError(t, err)
	assert.Equal(t, objptr{id: 1, gen: 0}, doc.Trailer().Key("Root").ptr)
	assert.Equal(t, "1.4", doc.versionStr)
}
