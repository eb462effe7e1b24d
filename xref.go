// SPDX-License-Identifier: BSD-3-Clause

// Cross-reference table/stream discovery and parsing (spec.md §4.3).
// Grounded on the teacher's read.go (CheckHeader, ValidateEOFMarker,
// FindStartXref, readXref/readXrefTable/readXrefStream and their Prev-chain
// walkers), adapted from an io.ReaderAt file handle to the whole-document
// byte slice the rest of this module works over, and from panic-on-failure
// to typed *PDFError returns.
package pdf

import (
	"bytes"
	"fmt"
)

// xrefEntry is one slot of the merged cross-reference table: either a
// plain indirect object at a file offset, an object compressed inside an
// object stream, or a free slot (zero ptr, or objptr{0, 65535} for an
// entry an xref stream marks free).
type xrefEntry struct {
	ptr      objptr
	inStream bool
	stream   objptr
	offset   int64
}

// CheckHeader validates the "%PDF-x.y" header, tolerating leading garbage
// (e.g. a BOM) before the marker, and accepts any version from 1.0 to 2.0
// inclusive (spec.md §6).
func CheckHeader(data []byte) (major, minor int, err error) {
	n := len(data)
	if n > 1024 {
		n = 1024
	}
	head := data[:n]
	p := bytes.Index(head, []byte("%PDF-"))
	if p < 0 {
		return 0, 0, newErr(ErrInvalidTrailer, "CheckHeader", fmt.Errorf("missing %%PDF- header"))
	}
	line := head[p:]
	if end := bytes.IndexAny(line, "\r\n"); end >= 0 {
		line = line[:end]
	}
	line = bytes.TrimRight(line, " \t\x00")
	if _, err := fmt.Sscanf(string(line), "%%PDF-%d.%d", &major, &minor); err != nil {
		return 0, 0, newErr(ErrInvalidTrailer, "CheckHeader", fmt.Errorf("malformed version in %q", line))
	}
	if !((major == 1 && minor >= 0 && minor <= 9) || (major == 2 && minor == 0)) {
		return 0, 0, newErr(ErrInvalidTrailer, "CheckHeader", fmt.Errorf("unsupported PDF version %d.%d", major, minor))
	}
	return major, minor, nil
}

// ValidateEOFMarker checks that the file ends with "%%EOF", tolerating
// trailing whitespace.
func ValidateEOFMarker(data []byte) error {
	const tailWindow = 1024
	start := len(data) - tailWindow
	if start < 0 {
		start = 0
	}
	tail := bytes.TrimRight(data[start:], "\r\n\t ")
	if !bytes.HasSuffix(tail, []byte("%%EOF")) {
		return newErr(ErrInvalidTrailer, "ValidateEOFMarker", fmt.Errorf("missing trailing %%%%EOF marker"))
	}
	return nil
}

// FindStartXref locates the final "startxref" keyword within the last
// 1024 bytes of the file and returns the offset it names (spec.md §4.3).
func FindStartXref(data []byte) (int64, error) {
	const tailWindow = 1024
	start := len(data) - tailWindow
	if start < 0 {
		start = 0
	}
	tail := data[start:]
	i := findLastStartxref(tail)
	if i < 0 {
		return 0, newErr(ErrStartXrefNotFound, "FindStartXref", fmt.Errorf("no startxref keyword found in trailing %d bytes", len(tail)))
	}
	pos := int64(start + i)
	b := newBuffer(data[pos:], pos, 100)
	tok := b.readToken()
	if tok != keyword("startxref") {
		return 0, newErr(ErrStartXrefNotFound, "FindStartXref", fmt.Errorf("expected startxref keyword, found %v", tok))
	}
	off, ok := b.readToken().(int64)
	if !ok {
		return 0, newErr(ErrStartXrefNotFound, "FindStartXref", fmt.Errorf("startxref not followed by an integer offset"))
	}
	return off, nil
}

// findLastStartxref returns the index of the last occurrence of
// "startxref" in buf whose following run of PDF whitespace ends in an
// end-of-line byte, or -1.
func findLastStartxref(buf []byte) int {
	needle := []byte("startxref")
	last := -1
	for i := 0; ; {
		j := bytes.Index(buf[i:], needle)
		if j < 0 {
			break
		}
		idx := i + j
		end := skipWhitespace(buf, idx+len(needle))
		if endsWithEOL(buf, idx+len(needle), end) {
			last = idx
		}
		i = idx + 1
	}
	return last
}

// readXref dispatches to the table or stream parser depending on what
// follows the startxref offset, per spec.md §4.3.
func readXref(data []byte, startxref int64, maxDepth int) ([]xrefEntry, dict, error) {
	if startxref < 0 || startxref >= int64(len(data)) {
		return nil, nil, newErr(ErrInvalidXrefOffset, "readXref", fmt.Errorf("startxref offset %d out of range", startxref))
	}
	b := newBuffer(data[startxref:], startxref, maxDepth)
	tok := b.readToken()
	if tok == keyword("xref") {
		return readXrefTable(data, b, maxDepth)
	}
	if _, ok := tok.(int64); ok {
		b.unreadToken(tok)
		return readXrefStream(data, b, maxDepth)
	}
	return nil, nil, newErr(ErrInvalidXrefTable, "readXref", fmt.Errorf("neither xref table nor xref stream found at offset %d", startxref))
}

// --- Cross-reference streams (PDF 1.5+) ---

func readXrefStream(data []byte, b *buffer, maxDepth int) ([]xrefEntry, dict, error) {
	_, strm, err := parseXrefStreamObject(b)
	if err != nil {
		return nil, nil, err
	}
	size, err := xrefStreamSize(strm)
	if err != nil {
		return nil, nil, err
	}
	table := make([]xrefEntry, size)
	table, err = readXrefStreamData(data, strm, table, size, maxDepth)
	if err != nil {
		return nil, nil, err
	}
	table, err = mergePrevXrefStreams(data, strm.hdr, table, size, maxDepth)
	if err != nil {
		return nil, nil, err
	}
	return table, strm.hdr, nil
}

func parseXrefStreamObject(b *buffer) (objptr, stream, error) {
	obj, err := b.parseObject()
	if err != nil {
		return objptr{}, stream{}, err
	}
	od, ok := obj.(objdef)
	if !ok {
		return objptr{}, stream{}, newErr(ErrInvalidXrefStream, "parseXrefStreamObject", fmt.Errorf("expected an indirect object, got %T", obj))
	}
	strm, ok := od.obj.(stream)
	if !ok {
		return objptr{}, stream{}, newErr(ErrInvalidXrefStream, "parseXrefStreamObject", fmt.Errorf("expected a stream object, got %T", od.obj))
	}
	if strm.hdr[pdfName("Type")] != pdfName("XRef") {
		return objptr{}, stream{}, newErr(ErrInvalidXrefStream, "parseXrefStreamObject", fmt.Errorf("stream /Type is not /XRef"))
	}
	return od.ptr, strm, nil
}

func xrefStreamSize(strm stream) (int64, error) {
	size, ok := strm.hdr[pdfName("Size")].(int64)
	if !ok {
		return 0, newErr(ErrInvalidXrefStream, "xrefStreamSize", fmt.Errorf("xref stream missing /Size"))
	}
	return size, nil
}

func mergePrevXrefStreams(data []byte, hdr dict, table []xrefEntry, maxSize int64, maxDepth int) ([]xrefEntry, error) {
	for hops, prevoff := 0, hdr[pdfName("Prev")]; prevoff != nil; hops++ {
		if hops >= maxDepth {
			return nil, newErr(ErrInvalidXrefStream, "mergePrevXrefStreams", fmt.Errorf("/Prev chain exceeds %d sections", maxDepth))
		}
		off, ok := prevoff.(int64)
		if !ok {
			return nil, newErr(ErrInvalidXrefStream, "mergePrevXrefStreams", fmt.Errorf("/Prev is not an integer"))
		}
		if off < 0 || off >= int64(len(data)) {
			return nil, newErr(ErrInvalidXrefOffset, "mergePrevXrefStreams", fmt.Errorf("/Prev offset %d out of range", off))
		}
		b := newBuffer(data[off:], off, maxDepth)
		_, prevStrm, err := parseXrefStreamObject(b)
		if err != nil {
			return nil, err
		}
		psize, ok := prevStrm.hdr[pdfName("Size")].(int64)
		if !ok {
			return nil, newErr(ErrInvalidXrefStream, "mergePrevXrefStreams", fmt.Errorf("prev xref stream missing /Size"))
		}
		if psize > maxSize {
			return nil, newErr(ErrInvalidXrefStream, "mergePrevXrefStreams", fmt.Errorf("prev xref stream /Size %d exceeds %d", psize, maxSize))
		}
		table, err = readXrefStreamData(data, prevStrm, table, psize, maxDepth)
		if err != nil {
			return nil, err
		}
		prevoff = prevStrm.hdr[pdfName("Prev")]
	}
	return table, nil
}

func readXrefStreamData(data []byte, strm stream, table []xrefEntry, size int64, maxDepth int) ([]xrefEntry, error) {
	index, _ := strm.hdr[pdfName("Index")].(array)
	if index == nil {
		index = array{int64(0), size}
	}
	if len(index)%2 != 0 {
		return nil, newErr(ErrInvalidXrefStream, "readXrefStreamData", fmt.Errorf("invalid /Index array"))
	}

	ww, ok := strm.hdr[pdfName("W")].(array)
	if !ok {
		return nil, newErr(ErrInvalidXrefStream, "readXrefStreamData", fmt.Errorf("xref stream missing /W array"))
	}
	var w []int
	for _, x := range ww {
		i, ok := x.(int64)
		if !ok || int64(int(i)) != i {
			return nil, newErr(ErrInvalidXrefStream, "readXrefStreamData", fmt.Errorf("invalid /W entry %#v", x))
		}
		w = append(w, int(i))
	}
	if len(w) < 3 {
		return nil, newErr(ErrInvalidXrefStream, "readXrefStreamData", fmt.Errorf("/W array must have 3 entries"))
	}

	raw, err := decodeStreamPayload(data, strm, maxDepth)
	if err != nil {
		return nil, err
	}

	wtotal := w[0] + w[1] + w[2]
	pos := 0
	for len(index) > 0 {
		start, ok1 := index[0].(int64)
		n, ok2 := index[1].(int64)
		if !ok1 || !ok2 {
			return nil, newErr(ErrInvalidXrefStream, "readXrefStreamData", fmt.Errorf("malformed /Index pair"))
		}
		index = index[2:]
		for i := int64(0); i < n; i++ {
			if pos+wtotal > len(raw) {
				return nil, newErr(ErrInvalidXrefStream, "readXrefStreamData", fmt.Errorf("xref stream data truncated"))
			}
			rec := raw[pos : pos+wtotal]
			pos += wtotal
			v1 := int64(1)
			if w[0] > 0 {
				v1 = decodeBigEndian(rec[0:w[0]])
			}
			v2 := decodeBigEndian(rec[w[0] : w[0]+w[1]])
			v3 := decodeBigEndian(rec[w[0]+w[1] : wtotal])
			x := int(start) + int(i)
			table = ensureXrefLen(table, x+1)
			if table[x].ptr != (objptr{}) {
				continue
			}
			switch v1 {
			case 0:
				table[x] = xrefEntry{ptr: objptr{0, 65535}}
			case 1:
				table[x] = xrefEntry{ptr: objptr{uint32(x), uint16(v3)}, offset: v2}
			case 2:
				table[x] = xrefEntry{ptr: objptr{uint32(x), 0}, inStream: true, stream: objptr{uint32(v2), 0}, offset: v3}
			}
		}
	}
	return table, nil
}

func decodeBigEndian(b []byte) int64 {
	var x int64
	for _, c := range b {
		x = x<<8 | int64(c)
	}
	return x
}

func ensureXrefLen(s []xrefEntry, n int) []xrefEntry {
	if n <= len(s) {
		return s
	}
	ns := make([]xrefEntry, n)
	copy(ns, s)
	return ns
}

func setXrefIfEmpty(table *[]xrefEntry, x int, val xrefEntry) {
	if x < 0 {
		return
	}
	*table = ensureXrefLen(*table, x+1)
	if (*table)[x].ptr == (objptr{}) {
		(*table)[x] = val
	}
}

// --- Legacy ASCII cross-reference tables ---

func readXrefTable(data []byte, b *buffer, maxDepth int) ([]xrefEntry, dict, error) {
	table, trailer, err := parseXrefTableAndTrailer(b, nil)
	if err != nil {
		return nil, nil, err
	}
	table, trailer, err = mergeTrailerXRefStm(data, table, trailer, maxDepth)
	if err != nil {
		return nil, nil, err
	}
	table, trailer, err = resolvePrevXrefTables(data, trailer, table, maxDepth)
	if err != nil {
		return nil, nil, err
	}
	if err := trimToTrailerSize(&table, trailer); err != nil {
		return nil, nil, err
	}
	return table, trailer, nil
}

func parseXrefTableAndTrailer(b *buffer, table []xrefEntry) ([]xrefEntry, dict, error) {
	table, err := readXrefTableData(b, table)
	if err != nil {
		return nil, nil, err
	}
	obj, err := b.parseObject()
	if err != nil {
		return nil, nil, err
	}
	trailer, ok := obj.(dict)
	if !ok {
		return nil, nil, newErr(ErrInvalidTrailer, "parseXrefTableAndTrailer", fmt.Errorf("xref table not followed by a trailer dictionary"))
	}
	return table, trailer, nil
}

func readXrefTableData(b *buffer, table []xrefEntry) (result []xrefEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			if lf, ok := r.(*lexFailure); ok {
				result, err = nil, newErr(lf.kind, "readXrefTableData", fmt.Errorf("%s", lf.msg))
				return
			}
			panic(r)
		}
	}()
	for {
		tok := b.readToken()
		if tok == keyword("trailer") {
			break
		}
		start, ok1 := tok.(int64)
		count, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 || start < 0 || count < 0 {
			return nil, newErr(ErrInvalidXrefTable, "readXrefTableData", fmt.Errorf("malformed subsection header"))
		}
		for i := int64(0); i < count; i++ {
			offTok := b.readToken()
			genTok := b.readToken()
			allocTok := b.readToken()
			off, okOff := offTok.(int64)
			gen, okGen := genTok.(int64)
			alloc, okAlloc := allocTok.(keyword)
			if !okOff || !okGen || !okAlloc {
				return nil, newErr(ErrInvalidXrefTable, "readXrefTableData", fmt.Errorf("malformed entry in subsection starting at %d", start))
			}
			idx := int(start + i)
			switch alloc {
			case keyword("n"):
				setXrefIfEmpty(&table, idx, xrefEntry{ptr: objptr{uint32(idx), uint16(gen)}, offset: off})
			case keyword("f"):
				table = ensureXrefLen(table, idx+1)
			default:
				return nil, newErr(ErrInvalidXrefTable, "readXrefTableData", fmt.Errorf("unexpected allocation marker %q", alloc))
			}
		}
	}
	return table, nil
}

// resolvePrevXrefTables walks the /Prev chain of legacy xref sections,
// merging older sections' entries in (earliest-section entries never
// overwrite a slot a newer section already populated, via
// setXrefIfEmpty/parseXrefTableAndTrailer), but the document trailer
// returned is always the first (newest) section's trailer per spec.md
// §4.3 — an incremental update's /Size and /Root must win, not the
// original revision's.
func resolvePrevXrefTables(data []byte, trailer dict, table []xrefEntry, maxDepth int) ([]xrefEntry, dict, error) {
	newest := trailer
	cur := trailer
	for hops, prevoff := 0, cur[pdfName("Prev")]; prevoff != nil; hops++ {
		if hops >= maxDepth {
			return nil, nil, newErr(ErrInvalidXrefTable, "resolvePrevXrefTables", fmt.Errorf("/Prev chain exceeds %d sections", maxDepth))
		}
		off, ok := prevoff.(int64)
		if !ok {
			return nil, nil, newErr(ErrInvalidXrefTable, "resolvePrevXrefTables", fmt.Errorf("/Prev is not an integer"))
		}
		if off < 0 || off >= int64(len(data)) {
			return nil, nil, newErr(ErrInvalidXrefOffset, "resolvePrevXrefTables", fmt.Errorf("/Prev offset %d out of range", off))
		}
		b := newBuffer(data[off:], off, maxDepth)
		tok := b.readToken()
		if tok != keyword("xref") {
			return nil, nil, newErr(ErrInvalidXrefTable, "resolvePrevXrefTables", fmt.Errorf("/Prev does not point at an xref table"))
		}
		var err error
		table, cur, err = parseXrefTableAndTrailer(b, table)
		if err != nil {
			return nil, nil, err
		}
		table, cur, err = mergeTrailerXRefStm(data, table, cur, maxDepth)
		if err != nil {
			return nil, nil, err
		}
		prevoff = cur[pdfName("Prev")]
	}
	return table, newest, nil
}

func trimToTrailerSize(table *[]xrefEntry, trailer dict) error {
	size, ok := trailer[pdfName("Size")].(int64)
	if !ok {
		return newErr(ErrInvalidTrailer, "trimToTrailerSize", fmt.Errorf("trailer missing /Size"))
	}
	if size < int64(len(*table)) {
		*table = (*table)[:size]
	}
	return nil
}

// mergeTrailerXRefStm handles the hybrid-reference-file case: a legacy
// trailer naming a companion /XRefStm stream holding entries for objects
// compressed in object streams (spec.md §4.3).
func mergeTrailerXRefStm(data []byte, table []xrefEntry, trailer dict, maxDepth int) ([]xrefEntry, dict, error) {
	xrefstm := trailer[pdfName("XRefStm")]
	if xrefstm == nil {
		return table, trailer, nil
	}
	off, ok := xrefstm.(int64)
	if !ok {
		return nil, nil, newErr(ErrInvalidXrefStream, "mergeTrailerXRefStm", fmt.Errorf("/XRefStm is not an integer"))
	}
	if off < 0 || off >= int64(len(data)) {
		return nil, nil, newErr(ErrInvalidXrefOffset, "mergeTrailerXRefStm", fmt.Errorf("/XRefStm offset %d out of range", off))
	}
	b := newBuffer(data[off:], off, maxDepth)
	srcTable, _, err := readXrefStream(data, b, maxDepth)
	if err != nil {
		return nil, nil, err
	}
	table = mergeXrefTables(table, srcTable)
	return table, trailer, nil
}

// mergeXrefTables combines a stream-derived table into a legacy-table
// result: the stream table is authoritative for slots where both name an
// in-use entry, since object streams can only be described that way.
func mergeXrefTables(dest, src []xrefEntry) []xrefEntry {
	if len(src) > len(dest) {
		dest = ensureXrefLen(dest, len(src))
	}
	for i := range src {
		s := src[i]
		if s.ptr == (objptr{}) {
			continue
		}
		if dest[i].ptr == (objptr{}) {
			dest[i] = s
			continue
		}
		if dest[i].ptr.gen != 65535 && s.ptr.gen != 65535 {
			dest[i] = s
		}
	}
	return dest
}
