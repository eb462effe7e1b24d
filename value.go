// SPDX-License-Identifier: BSD-3-Clause

// The Value accessor API and the indirect-object resolver. Grounded on
// the teacher's read.go Value type (Kind/Int64/Float64/Name/Key/Index/
// Reader, and Reader.resolve), adapted from the teacher's per-call
// re-parse-on-every-resolve model to a write-once resolver cache built
// once at Open and frozen for the immutable Document's lifetime
// (spec.md §3, §9's "arena").
package pdf

import (
	"fmt"
	"sort"
)

// ValueKind enumerates the shapes a resolved Value can take.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInteger
	KindReal
	KindString
	KindName
	KindDict
	KindArray
	KindStream
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindInteger:
		return "Integer"
	case KindReal:
		return "Real"
	case KindString:
		return "String"
	case KindName:
		return "Name"
	case KindDict:
		return "Dict"
	case KindArray:
		return "Array"
	case KindStream:
		return "Stream"
	default:
		return "Null"
	}
}

// resolver owns the document's byte slice, its merged cross-reference
// table, and a write-once cache of resolved top-level objects. It is
// built once during Open and never mutated afterward, so concurrent
// reads from ExtractText/ExtractAll need no locking (spec.md §5).
type resolver struct {
	data    []byte
	xref    []xrefEntry
	trailer dict
	maxDepth int
	cache   map[objptr]interface{}
	frozen  bool // set at the end of Open; no cache writes happen after it
}

func newResolver(data []byte, xref []xrefEntry, trailer dict, maxDepth int) *resolver {
	return &resolver{data: data, xref: xref, trailer: trailer, maxDepth: maxDepth, cache: make(map[objptr]interface{})}
}

// Value is a single resolved PDF value together with enough context
// (its resolver and the objptr it was reached through) to resolve
// further indirect references reachable from it.
type Value struct {
	r    *resolver
	ptr  objptr
	data interface{}
}

func (r *resolver) trailerValue() Value {
	return Value{r, objptr{}, r.trailer}
}

// resolve follows a single level of indirection. Direct values pass
// through unchanged.
func (r *resolver) resolve(parent objptr, x interface{}) (Value, error) {
	ptr, ok := x.(objptr)
	if !ok {
		switch x.(type) {
		case nil, bool, int64, float64, pdfString, pdfName, dict, array, stream:
			return Value{r, parent, x}, nil
		default:
			return Value{}, newErr(ErrUnknown, "resolve", fmt.Errorf("unexpected object type %T", x))
		}
	}
	if cached, ok := r.cache[ptr]; ok {
		return Value{r, ptr, cached}, nil
	}
	obj, err := r.load(ptr)
	if err != nil {
		return Value{}, err
	}
	if !r.frozen {
		r.cache[ptr] = obj
	}
	return Value{r, ptr, obj}, nil
}

// load fetches the object named by ptr, either from a plain "N G obj"
// envelope at a file offset or from inside a compressed object stream.
func (r *resolver) load(ptr objptr) (interface{}, error) {
	if ptr.id >= uint32(len(r.xref)) {
		return nil, nil
	}
	ent := r.xref[ptr.id]
	if ent.ptr != ptr {
		return nil, nil
	}
	if ent.inStream {
		return r.loadFromObjectStream(ent)
	}
	if ent.offset <= 0 || ent.offset >= int64(len(r.data)) {
		return nil, nil
	}
	b := newBuffer(r.data[ent.offset:], ent.offset, r.maxDepth)
	od, err := b.parseIndirectObject()
	if err != nil {
		return nil, err
	}
	if od.ptr != ptr {
		return nil, newErr(ErrInvalidReference, "load", fmt.Errorf("expected object %d %d, found %d %d", ptr.id, ptr.gen, od.ptr.id, od.ptr.gen))
	}
	return od.obj, nil
}

func (r *resolver) loadFromObjectStream(ent xrefEntry) (interface{}, error) {
	strmVal, err := r.resolve(objptr{}, ent.stream)
	if err != nil {
		return nil, err
	}
	for {
		if strmVal.Kind() != KindStream {
			return nil, newErr(ErrInvalidReference, "loadFromObjectStream", fmt.Errorf("object stream %v is not a stream", ent.stream))
		}
		if strmVal.Key("Type").Name() != "ObjStm" {
			return nil, newErr(ErrInvalidReference, "loadFromObjectStream", fmt.Errorf("stream %v is not an ObjStm", ent.stream))
		}
		n := int(strmVal.Key("N").Int64())
		first := strmVal.Key("First").Int64()
		raw, err := strmVal.decodedBytes()
		if err != nil {
			return nil, err
		}
		b := newBuffer(raw, 0, r.maxDepth)
		for i := 0; i < n; i++ {
			id, _ := b.readToken().(int64)
			off, _ := b.readToken().(int64)
			if uint32(id) == ent.ptr.id {
				if first+off < 0 || first+off > int64(len(raw)) {
					return nil, newErr(ErrInvalidReference, "loadFromObjectStream", fmt.Errorf("object %d offset out of range", id))
				}
				ib := newBuffer(raw[first+off:], first+off, r.maxDepth)
				return ib.parseObject()
			}
		}
		ext := strmVal.Key("Extends")
		if ext.Kind() != KindStream {
			return nil, newErr(ErrInvalidReference, "loadFromObjectStream", fmt.Errorf("object %d not found in stream chain", ent.ptr.id))
		}
		strmVal = ext
	}
}

// Kind reports the shape of v.
func (v Value) Kind() ValueKind {
	switch v.data.(type) {
	case bool:
		return KindBool
	case int64:
		return KindInteger
	case float64:
		return KindReal
	case pdfString:
		return KindString
	case pdfName:
		return KindName
	case dict:
		return KindDict
	case array:
		return KindArray
	case stream:
		return KindStream
	default:
		return KindNull
	}
}

func (v Value) IsNull() bool { return v.Kind() == KindNull }

func (v Value) Bool() bool {
	x, _ := v.data.(bool)
	return x
}

func (v Value) Int64() int64 {
	switch x := v.data.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	default:
		return 0
	}
}

func (v Value) Float64() float64 {
	switch x := v.data.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	default:
		return 0
	}
}

func (v Value) RawString() string {
	x, _ := v.data.(pdfString)
	return string(x)
}

func (v Value) Name() string {
	x, _ := v.data.(pdfName)
	return string(x)
}

// Text decodes a PDF text string (ISO 32000-1 §7.9.2.2): UTF-16BE with a
// leading byte-order mark, or PDFDocEncoding otherwise. Used for /Info
// dictionary values, which are text strings rather than content-stream
// show-text operands and so never go through a font's CMap/encoding.
func (v Value) Text() string {
	s := v.RawString()
	if s == "" {
		return ""
	}
	if isUTF16BOM(s) {
		return utf16beToString([]byte(s)[2:])
	}
	if isPDFDocEncoded(s) {
		return pdfDocDecode(s)
	}
	return s
}

func (v Value) dictOrStreamHeader() (dict, bool) {
	switch x := v.data.(type) {
	case dict:
		return x, true
	case stream:
		return x.hdr, true
	default:
		return nil, false
	}
}

// Key looks up a dictionary (or stream header) entry and resolves it.
// Per spec.md's traversal-is-total-function contract, a missing key or a
// non-dict/stream receiver yields a null Value rather than an error.
func (v Value) Key(key string) Value {
	hdr, ok := v.dictOrStreamHeader()
	if !ok {
		return Value{}
	}
	rv, err := v.r.resolve(v.ptr, hdr[pdfName(key)])
	if err != nil {
		return Value{}
	}
	return rv
}

// Keys returns the sorted key set of a dict or stream header.
func (v Value) Keys() []string {
	hdr, ok := v.dictOrStreamHeader()
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(hdr))
	for k := range hdr {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// Index resolves the i'th array element, or a null Value if v is not an
// array or i is out of range.
func (v Value) Index(i int) Value {
	x, ok := v.data.(array)
	if !ok || i < 0 || i >= len(x) {
		return Value{}
	}
	rv, err := v.r.resolve(v.ptr, x[i])
	if err != nil {
		return Value{}
	}
	return rv
}

func (v Value) Len() int {
	x, ok := v.data.(array)
	if !ok {
		return 0
	}
	return len(x)
}

// decodedBytes returns a stream's fully filter-decoded payload,
// resolving an indirect /Length if present before falling back to an
// endstream scan (spec.md §4.4).
func (v Value) decodedBytes() ([]byte, error) {
	strm, ok := v.data.(stream)
	if !ok {
		return nil, newErr(ErrInvalidStream, "decodedBytes", fmt.Errorf("value is not a stream"))
	}
	length := int64(-1)
	if lv := v.Key("Length"); lv.Kind() == KindInteger {
		length = lv.Int64()
	}
	raw := rawStreamBytes(v.r.data, strm, length)
	specs, err := resolvedFilterChain(v)
	if err != nil {
		return nil, err
	}
	return applyFilters(raw, specs)
}

// resolvedFilterChain is filterChain generalized to resolve indirect
// /Filter and /DecodeParms entries via the Value's resolver.
func resolvedFilterChain(v Value) ([]filterSpec, error) {
	f := v.Key("Filter")
	if f.IsNull() {
		return nil, nil
	}
	p := v.Key("DecodeParms")
	if p.IsNull() {
		p = v.Key("DP")
	}
	switch f.Kind() {
	case KindName:
		pd, _ := p.data.(dict)
		return []filterSpec{{name: f.Name(), parms: pd}}, nil
	case KindArray:
		specs := make([]filterSpec, 0, f.Len())
		for i := 0; i < f.Len(); i++ {
			nameVal := f.Index(i)
			if nameVal.Kind() != KindName {
				return nil, newErr(ErrUnknownFilter, "resolvedFilterChain", fmt.Errorf("non-name filter entry at index %d", i))
			}
			var pd dict
			if p.Kind() == KindArray {
				pd, _ = p.Index(i).data.(dict)
			}
			specs = append(specs, filterSpec{name: nameVal.Name(), parms: pd})
		}
		return specs, nil
	default:
		return nil, newErr(ErrUnknownFilter, "resolvedFilterChain", fmt.Errorf("unsupported /Filter kind %v", f.Kind()))
	}
}
