// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver() *resolver {
	return newResolver(nil, nil, nil, 100)
}

func valueOf(r *resolver, data interface{}) Value {
	return Value{r: r, data: data}
}

func TestNormalizeRotate(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 0}, {90, 90}, {180, 180}, {270, 270},
		{360, 0}, {-90, 270}, {450, 90}, {91, 90}, {44, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeRotate(tt.in), "normalizeRotate(%d)", tt.in)
	}
}

func TestRectFromValue(t *testing.T) {
	r := newTestResolver()
	good := valueOf(r, array{int64(0), int64(0), float64(612), int64(792)})
	rect, ok := rectFromValue(good)
	require.True(t, ok)
	assert.Equal(t, Rect{0, 0, 612, 792}, rect)

	bad := valueOf(r, array{int64(0), int64(0)})
	_, ok = rectFromValue(bad)
	assert.False(t, ok)
}

func TestBuildPageTreeInheritance(t *testing.T) {
	r := newTestResolver()
	leaf := dict{
		pdfName("Type"):      pdfName("Page"),
		pdfName("Resources"): dict{pdfName("Font"): dict{}},
	}
	kids := array{leaf}
	pagesNode := dict{
		pdfName("Kids"):     kids,
		pdfName("Count"):    int64(1),
		pdfName("MediaBox"): array{int64(0), int64(0), int64(200), int64(300)},
		pdfName("Rotate"):   int64(90),
	}
	catalog := valueOf(r, dict{pdfName("Pages"): pagesNode})

	pages, err := buildPageTree(catalog, 100)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, Rect{0, 0, 200, 300}, pages[0].mediaBox)
	assert.Equal(t, Rect{0, 0, 200, 300}, pages[0].cropBox)
	assert.Equal(t, 90, pages[0].rotate)
}

func TestBuildPageTreeCycleDetected(t *testing.T) {
	r := newTestResolver()
	cyclePtr := objptr{id: 5, gen: 0}
	node := dict{pdfName("Kids"): array{cyclePtr}}

	root := Value{r: r, ptr: cyclePtr, data: node}
	visited := map[objptr]bool{cyclePtr: true}
	err := walkPageTree(root, inheritedAttrs{mediaBox: defaultMediaBox}, visited, 0, 100, &[]pageInfo{})
	require.Error(t, err)
	var pe *PDFError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrInvalidPageTree, pe.Kind)
}

func TestBuildPageTreeMissingPages(t *testing.T) {
	r := newTestResolver()
	catalog := valueOf(r, dict{})
	_, err := buildPageTree(catalog, 100)
	assert.Error(t, err)
}

func TestBuildPageTreeNoPages(t *testing.T) {
	r := newTestResolver()
	catalog := valueOf(r, dict{pdfName("Pages"): dict{pdfName("Kids"): array{}}})
	_, err := buildPageTree(catalog, 100)
	assert.Error(t, err)
}
