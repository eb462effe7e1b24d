// SPDX-License-Identifier: BSD-3-Clause

// Page-tree traversal and attribute inheritance (spec.md §4.5). The
// teacher's page.go re-walks the /Pages tree on every Page(n) and
// NumPage() call; this generalizes that into a dense index built once
// during Open, and adds cycle detection via a visited-objptr set, which
// the teacher's walk does not have.
package pdf

import "fmt"

// defaultMediaBox is US Letter, the fallback spec.md names for a page
// tree that never declares a MediaBox at any level.
var defaultMediaBox = Rect{0, 0, 612, 792}

// Rect is an inclusive PDF rectangle, [llx, lly, urx, ury].
type Rect [4]float64

// pageInfo is one entry of the Document's flattened page index.
type pageInfo struct {
	ptr       objptr
	page      Value
	mediaBox  Rect
	cropBox   Rect
	rotate    int
	resources Value
}

type inheritedAttrs struct {
	mediaBox  Rect
	cropBox   Rect
	haveCrop  bool
	rotate    int
	resources Value
}

// buildPageTree walks catalog's /Pages subtree and returns pages in
// document (left-to-right, depth-first) order.
func buildPageTree(catalog Value, maxDepth int) ([]pageInfo, error) {
	root := catalog.Key("Pages")
	if root.Kind() != KindDict {
		return nil, newErr(ErrInvalidPageTree, "buildPageTree", fmt.Errorf("catalog /Pages is missing or not a dictionary"))
	}
	var pages []pageInfo
	visited := make(map[objptr]bool)
	if err := walkPageTree(root, inheritedAttrs{mediaBox: defaultMediaBox}, visited, 0, maxDepth, &pages); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, newErr(ErrInvalidPageTree, "buildPageTree", fmt.Errorf("page tree contains no pages"))
	}
	return pages, nil
}

func walkPageTree(node Value, parent inheritedAttrs, visited map[objptr]bool, depth, maxDepth int, out *[]pageInfo) error {
	if depth > maxDepth {
		return newErr(ErrInvalidPageTree, "walkPageTree", fmt.Errorf("page tree nesting exceeds %d levels", maxDepth))
	}
	if node.ptr != (objptr{}) {
		if visited[node.ptr] {
			return newErr(ErrInvalidPageTree, "walkPageTree", fmt.Errorf("cycle detected at object %d %d", node.ptr.id, node.ptr.gen))
		}
		visited[node.ptr] = true
	}

	attrs := inheritAttributes(node, parent)
	kids := node.Key("Kids")
	if node.Key("Type").Name() == "Page" || (node.Key("Type").IsNull() && kids.Kind() != KindArray) {
		*out = append(*out, pageInfo{
			ptr:       node.ptr,
			page:      node,
			mediaBox:  attrs.mediaBox,
			cropBox:   effectiveCropBox(attrs),
			rotate:    normalizeRotate(attrs.rotate),
			resources: attrs.resources,
		})
		return nil
	}
	if kids.Kind() != KindArray {
		return newErr(ErrInvalidPageTree, "walkPageTree", fmt.Errorf("intermediate node missing /Kids array"))
	}
	for i := 0; i < kids.Len(); i++ {
		if err := walkPageTree(kids.Index(i), attrs, visited, depth+1, maxDepth, out); err != nil {
			return err
		}
	}
	return nil
}

func inheritAttributes(node Value, parent inheritedAttrs) inheritedAttrs {
	attrs := parent
	if r, ok := rectFromValue(node.Key("MediaBox")); ok {
		attrs.mediaBox = r
	}
	if r, ok := rectFromValue(node.Key("CropBox")); ok {
		attrs.cropBox = r
		attrs.haveCrop = true
	}
	if rv := node.Key("Rotate"); rv.Kind() == KindInteger {
		attrs.rotate = int(rv.Int64())
	}
	if res := node.Key("Resources"); !res.IsNull() {
		attrs.resources = res
	}
	return attrs
}

func effectiveCropBox(attrs inheritedAttrs) Rect {
	if attrs.haveCrop {
		return attrs.cropBox
	}
	return attrs.mediaBox
}

func rectFromValue(v Value) (Rect, bool) {
	if v.Kind() != KindArray || v.Len() != 4 {
		return Rect{}, false
	}
	var r Rect
	for i := 0; i < 4; i++ {
		e := v.Index(i)
		switch e.Kind() {
		case KindInteger, KindReal:
			r[i] = e.Float64()
		default:
			return Rect{}, false
		}
	}
	return r, true
}

// normalizeRotate folds an arbitrary /Rotate value into {0, 90, 180, 270}
// (spec.md §4.5): negative and >360 values wrap, and values that are not
// already multiples of 90 snap to the nearest one.
func normalizeRotate(deg int) int {
	n := ((deg % 360) + 360) % 360
	n = ((n + 45) / 90) * 90
	return n % 360
}
