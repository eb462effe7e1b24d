// SPDX-License-Identifier: BSD-3-Clause

// Recursive-descent parsing of PDF tokens and objects over an immutable
// byte slice (spec.md §4.2). Grounded on other_examples' ScriptRock-pdf
// lex.go (a sibling fork of this module's own lineage), adapted from a
// streaming io.Reader buffer to a slice+cursor over memory-resident bytes,
// with typed errors in place of bare panics and an explicit nesting bound.
package pdf

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// token is a PDF token: bool, int64, float64, pdfString, pdfName,
// keyword, objptr, or the sentinel io.EOF.
type token interface{}

// buffer is a cursor over an immutable byte slice. It never copies the
// input except for decoded string/name content, which is the only
// allocation the parser performs per spec.md's arena-backed ownership
// model (an arena is simulated here by ordinary Go allocation + GC, since
// the core never needs to free sub-trees independently of the Document).
type buffer struct {
	data         []byte
	pos          int
	base         int64 // absolute file offset corresponding to data[0]
	unread       []token
	depth        int
	maxDepth     int
	curObj       objptr
	strictStream bool
}

func newBuffer(data []byte, base int64, maxDepth int) *buffer {
	if maxDepth <= 0 {
		maxDepth = 100
	}
	return &buffer{data: data, base: base, maxDepth: maxDepth}
}

type lexFailure struct {
	kind ErrorKind
	msg  string
}

func (b *buffer) fail(kind ErrorKind, msg string) {
	panic(&lexFailure{kind: kind, msg: msg})
}

func (b *buffer) failf(kind ErrorKind, format string, args ...interface{}) {
	b.fail(kind, fmt.Sprintf(format, args...))
}

func (b *buffer) absOffset() int64 {
	return b.base + int64(b.pos)
}

func (b *buffer) next() (byte, bool) {
	if b.pos >= len(b.data) {
		return 0, false
	}
	c := b.data[b.pos]
	b.pos++
	return c, true
}

func (b *buffer) unread1() {
	if b.pos > 0 {
		b.pos--
	}
}

func (b *buffer) unreadToken(t token) {
	b.unread = append(b.unread, t)
}

func (b *buffer) enter() {
	b.depth++
	if b.depth > b.maxDepth {
		b.failf(ErrNestingTooDeep, "nesting exceeds %d levels", b.maxDepth)
	}
}

func (b *buffer) leave() {
	b.depth--
}

// seekTo repositions the cursor to an absolute file offset, which must lie
// within [base, base+len(data)).
func (b *buffer) seekTo(offset int64) {
	p := offset - b.base
	if p < 0 {
		p = 0
	}
	if p > int64(len(b.data)) {
		p = int64(len(b.data))
	}
	b.pos = int(p)
}

func (b *buffer) readToken() token {
	if n := len(b.unread); n > 0 {
		t := b.unread[n-1]
		b.unread = b.unread[:n-1]
		return t
	}
	for {
		c, ok := b.next()
		if !ok {
			return io.EOF
		}
		if isWhitespace(c) {
			continue
		}
		if c == '%' {
			for {
				c2, ok2 := b.next()
				if !ok2 || c2 == '\r' || c2 == '\n' {
					break
				}
			}
			continue
		}
		return b.readTokenFrom(c)
	}
}

func (b *buffer) readTokenFrom(c byte) token {
	switch c {
	case '<':
		c2, ok := b.next()
		if ok && c2 == '<' {
			return keyword("<<")
		}
		if ok {
			b.unread1()
		}
		return b.readHexString()
	case '(':
		return b.readLiteralString()
	case '[', ']', '{', '}':
		return keyword(string(c))
	case '/':
		return b.readName()
	case '>':
		c2, ok := b.next()
		if ok && c2 == '>' {
			return keyword(">>")
		}
		if ok {
			b.unread1()
		}
		b.failf(ErrUnexpectedToken, "unexpected '>' at offset %d", b.absOffset())
	default:
		if isDelimiter(c) {
			b.failf(ErrUnexpectedToken, "unexpected delimiter %q at offset %d", c, b.absOffset())
		}
		b.unread1()
		return b.readKeyword()
	}
	panic("unreachable")
}

// readHexString implements spec.md §4.2: whitespace inside "<...>" is
// skipped, and an odd trailing nibble becomes the HIGH nibble of a final
// zero-padded byte (left-shifted by 4), not the low nibble.
func (b *buffer) readHexString() token {
	var nibbles []byte
	for {
		c, ok := b.next()
		if !ok {
			b.fail(ErrInvalidHexString, "unterminated hex string")
		}
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		v := unhex(c)
		if v < 0 {
			b.failf(ErrInvalidHexString, "invalid hex digit %q", c)
		}
		nibbles = append(nibbles, byte(v))
	}
	out := make([]byte, 0, (len(nibbles)+1)/2)
	for i := 0; i < len(nibbles); i += 2 {
		hi := nibbles[i]
		var lo byte
		if i+1 < len(nibbles) {
			lo = nibbles[i+1]
		}
		out = append(out, hi<<4|lo)
	}
	return pdfString(out)
}

// readLiteralString implements the escapes and line-continuation rules of
// spec.md §4.2.
func (b *buffer) readLiteralString() token {
	var out []byte
	depth := 1
	for {
		c, ok := b.next()
		if !ok {
			b.fail(ErrInvalidString, "unterminated literal string")
		}
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return pdfString(out)
			}
			out = append(out, c)
		case '\\':
			out = b.readStringEscape(out)
		default:
			out = append(out, c)
		}
	}
}

func (b *buffer) readStringEscape(out []byte) []byte {
	c, ok := b.next()
	if !ok {
		b.fail(ErrInvalidString, "unterminated escape in literal string")
	}
	switch c {
	case 'n':
		return append(out, '\n')
	case 'r':
		return append(out, '\r')
	case 't':
		return append(out, '\t')
	case 'b':
		return append(out, '\b')
	case 'f':
		return append(out, '\f')
	case '(', ')', '\\':
		return append(out, c)
	case '\r':
		if c2, ok2 := b.next(); ok2 && c2 != '\n' {
			b.unread1()
		}
		return out // line continuation emits nothing
	case '\n':
		return out // line continuation emits nothing
	case '0', '1', '2', '3', '4', '5', '6', '7':
		x := int(c - '0')
		for i := 0; i < 2; i++ {
			c2, ok2 := b.next()
			if !ok2 || c2 < '0' || c2 > '7' {
				if ok2 {
					b.unread1()
				}
				break
			}
			x = x*8 + int(c2-'0')
		}
		return append(out, byte(x&0xFF))
	default:
		// Unknown escape emits the escaped byte (spec.md §4.2).
		return append(out, c)
	}
}

// readName implements #XX hex-escape decoding; a malformed escape passes
// the literal '#' through unconsumed.
func (b *buffer) readName() token {
	var out []byte
	for {
		c, ok := b.next()
		if !ok || isWhitespace(c) || isDelimiter(c) {
			if ok {
				b.unread1()
			}
			break
		}
		if c == '#' {
			save := b.pos
			c1, ok1 := b.next()
			c2, ok2 := b.next()
			if ok1 && ok2 {
				v1, v2 := unhex(c1), unhex(c2)
				if v1 >= 0 && v2 >= 0 {
					out = append(out, byte(v1<<4|v2))
					continue
				}
			}
			b.pos = save
			out = append(out, '#')
			continue
		}
		out = append(out, c)
	}
	return pdfName(out)
}

func (b *buffer) readKeyword() token {
	var out []byte
	for {
		c, ok := b.next()
		if !ok || isWhitespace(c) || isDelimiter(c) {
			if ok {
				b.unread1()
			}
			break
		}
		out = append(out, c)
	}
	s := string(out)
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if isIntegerLiteral(s) {
		if x, err := strconv.ParseInt(s, 10, 64); err == nil {
			return x
		}
	}
	if isRealLiteral(s) {
		if x, err := strconv.ParseFloat(s, 64); err == nil {
			return x
		}
	}
	return keyword(s)
}

func isIntegerLiteral(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isRealLiteral(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	ndot := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			ndot++
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return ndot == 1
}

// readObject parses one PDF object at the cursor. It also implements the
// lookahead required to distinguish a bare integer from the start of a
// "N G R" reference or a "N G obj ... endobj" indirect-object envelope:
// after an unsigned integer, if the next two tokens are an unsigned
// integer followed by R or obj, the appropriate compound is built;
// otherwise all lookahead tokens are pushed back (spec.md §4.2).
func (b *buffer) readObject() interface{} {
	tok := b.readToken()
	if kw, ok := tok.(keyword); ok {
		switch kw {
		case "null":
			return nil
		case "<<":
			return b.readDict()
		case "[":
			return b.readArray()
		}
		b.failf(ErrUnexpectedToken, "unexpected keyword %q parsing object", kw)
	}
	if tok == io.EOF {
		b.fail(ErrUnexpectedEOF, "unexpected end of input parsing object")
	}

	if t1, ok := tok.(int64); ok && t1 >= 0 && t1 <= int64(^uint32(0)) {
		tok2 := b.readToken()
		if t2, ok2 := tok2.(int64); ok2 && t2 >= 0 && t2 <= 65535 {
			tok3 := b.readToken()
			switch tok3 {
			case keyword("R"):
				return objptr{id: uint32(t1), gen: uint16(t2)}
			case keyword("obj"):
				old := b.curObj
				b.curObj = objptr{id: uint32(t1), gen: uint16(t2)}
				obj := b.readObject()
				if _, isStream := obj.(stream); !isStream {
					end := b.readToken()
					if end != keyword("endobj") && end != io.EOF {
						b.unreadToken(end)
					}
				}
				b.curObj = old
				return objdef{ptr: objptr{id: uint32(t1), gen: uint16(t2)}, obj: obj}
			}
			b.unreadToken(tok3)
		}
		b.unreadToken(tok2)
	}
	return tok
}

func (b *buffer) readArray() interface{} {
	b.enter()
	defer b.leave()
	var x array
	for {
		tok := b.readToken()
		if tok == io.EOF {
			b.fail(ErrInvalidArray, "unterminated array")
		}
		if tok == keyword("]") {
			break
		}
		b.unreadToken(tok)
		x = append(x, b.readObject())
	}
	return x
}

func (b *buffer) readDict() interface{} {
	b.enter()
	defer b.leave()
	x := make(dict)
	for {
		tok := b.readToken()
		if tok == io.EOF {
			b.fail(ErrInvalidDictionary, "unterminated dictionary")
		}
		if tok == keyword(">>") {
			break
		}
		n, ok := tok.(pdfName)
		if !ok {
			b.failf(ErrInvalidDictionary, "non-name key %#v parsing dictionary", tok)
		}
		v := b.readObject()
		if _, exists := x[n]; !exists {
			// First occurrence wins (spec.md §3 Dict contract).
			x[n] = v
		}
	}

	tok := b.readToken()
	if tok != keyword("stream") {
		if tok != io.EOF {
			b.unreadToken(tok)
		}
		return x
	}

	c, ok := b.next()
	switch {
	case ok && c == '\r':
		if c2, ok2 := b.next(); ok2 && c2 != '\n' {
			b.unread1()
		}
	case ok && c == '\n':
		// single-LF terminator, as required.
	default:
		if ok {
			b.unread1()
		}
		if b.strictStream {
			b.fail(ErrInvalidStream, "stream keyword not followed by EOL")
		}
	}
	return stream{hdr: x, ptr: b.curObj, offset: b.absOffset()}
}

// parseObject recovers from the internal panic/recover idiom used by the
// lexer's descent and converts it into a typed *PDFError at the package
// boundary. The public API never panics.
func (b *buffer) parseObject() (obj interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if lf, ok := r.(*lexFailure); ok {
				err = newErr(lf.kind, "parseObject", errors.New(lf.msg))
				return
			}
			panic(r)
		}
	}()
	obj = b.readObject()
	return obj, nil
}

// parseIndirectObject reads the "N G obj ... endobj" envelope at the
// cursor (spec.md §4.2's parse_indirect_object entry point).
func (b *buffer) parseIndirectObject() (objdef, error) {
	obj, err := b.parseObject()
	if err != nil {
		return objdef{}, err
	}
	od, ok := obj.(objdef)
	if !ok {
		return objdef{}, newErr(ErrInvalidReference, "parseIndirectObject",
			fmt.Errorf("expected indirect object envelope, got %T", obj))
	}
	return od, nil
}
