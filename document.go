// SPDX-License-Identifier: BSD-3-Clause

// Document is the public façade over the lower-level xref/value/page-tree
// machinery (spec.md §3, §6): Open parses a whole in-memory PDF once,
// after which the Document is immutable and safe for concurrent
// ExtractText calls (see parallel.go). Grounded on the teacher's
// NewReader (header/EOF/startxref/xref sequencing) generalized from an
// os.File + io.ReaderAt model to an in-memory byte slice.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/lucidglyph/pdftext/logger"
)

// Document is a parsed, immutable PDF ready for text extraction.
type Document struct {
	cfg        *Config
	res        *resolver
	catalog    Value
	trailer    Value
	pages      []pageInfo
	encrypted  bool
	versionStr string
}

// PageInfo describes the non-text-content attributes of one page.
type PageInfo struct {
	MediaBox Rect
	CropBox  Rect
	Rotate   int
}

// Open parses data as a complete PDF file. cfg may be nil, in which case
// NewDefaultConfig is used. The returned Document owns no reference back
// to data beyond reading it; data must not be mutated while the Document
// is in use.
func Open(data []byte, cfg *Config) (doc *Document, err error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if verr := cfg.Validate(); verr != nil {
		return nil, newErr(ErrUnknown, "Open", verr)
	}
	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			if lf, ok := r.(*lexFailure); ok {
				err = newErr(lf.kind, "Open", fmt.Errorf("%s", lf.msg))
				return
			}
			err = newErr(ErrUnknown, "Open", fmt.Errorf("internal error: %v", r))
		}
	}()

	logger.Debug("pdf: checking header", true)
	major, minor, herr := CheckHeader(data)
	if herr != nil {
		return nil, herr
	}

	if eerr := ValidateEOFMarker(data); eerr != nil {
		if cfg.Strict() {
			return nil, eerr
		}
		logger.Debug(fmt.Sprintf("pdf: missing trailing %%%%EOF, continuing in best-effort mode: %v", eerr))
	}

	logger.Debug("pdf: locating startxref", true)
	startxref, serr := FindStartXref(data)
	if serr != nil {
		return nil, serr
	}

	table, trailer, xerr := readXref(data, startxref, cfg.NestingLimit)
	if xerr != nil {
		return nil, xerr
	}

	res := newResolver(data, table, trailer, cfg.NestingLimit)
	root, rerr := res.resolve(objptr{}, trailer[pdfName("Root")])
	if rerr != nil {
		return nil, rerr
	}
	if root.Kind() != KindDict {
		return nil, newErr(ErrInvalidTrailer, "Open", fmt.Errorf("trailer /Root is missing or not a dictionary"))
	}

	logger.Debug("pdf: walking page tree", true)
	pages, perr := buildPageTree(root, cfg.NestingLimit)
	if perr != nil {
		return nil, perr
	}

	encrypted := trailer[pdfName("Encrypt")] != nil
	if encrypted && cfg.Strict() {
		return nil, newErr(ErrEncrypted, "Open", fmt.Errorf("document is encrypted"))
	}
	res.frozen = true

	return &Document{
		cfg:        cfg,
		res:        res,
		catalog:    root,
		trailer:    res.trailerValue(),
		pages:      pages,
		encrypted:  encrypted,
		versionStr: fmt.Sprintf("%d.%d", major, minor),
	}, nil
}

// Trailer returns the document's trailer dictionary, the entry point for
// metadata.go's /Info and /Encrypt lookups that the page tree alone
// cannot reach.
func (doc *Document) Trailer() Value { return doc.trailer }

// PageCount reports the number of pages in document order.
func (doc *Document) PageCount() int { return len(doc.pages) }

// IsEncrypted reports whether the trailer names an /Encrypt dictionary.
// Content decryption itself is out of scope; this exists so callers can
// decide whether to attempt extraction at all.
func (doc *Document) IsEncrypted() bool { return doc.encrypted }

// GetPageInfo returns the inherited layout attributes of page i.
func (doc *Document) GetPageInfo(i int) (PageInfo, error) {
	if i < 0 || i >= len(doc.pages) {
		return PageInfo{}, newErr(ErrInvalidPageTree, "GetPageInfo", fmt.Errorf("page index %d out of range [0,%d)", i, len(doc.pages)))
	}
	p := doc.pages[i]
	return PageInfo{MediaBox: p.mediaBox, CropBox: p.cropBox, Rotate: p.rotate}, nil
}

// ExtractText decodes the text-showing operators of page i's content
// stream into plain text. In best-effort mode, a page whose content
// cannot be decoded yields an empty string rather than an error.
func (doc *Document) ExtractText(i int) (string, error) {
	if i < 0 || i >= len(doc.pages) {
		return "", newErr(ErrInvalidPageTree, "ExtractText", fmt.Errorf("page index %d out of range [0,%d)", i, len(doc.pages)))
	}
	pi := doc.pages[i]
	data, err := doc.pageContentBytes(pi)
	if err != nil {
		if doc.cfg.Strict() {
			return "", err
		}
		return "", nil
	}
	text, err := runContentStream(data, pi.resources, doc.cfg)
	if err != nil {
		if doc.cfg.Strict() {
			return "", err
		}
		return "", nil
	}
	if doc.cfg.MaxTotalChars > 0 && len(text) > doc.cfg.MaxTotalChars {
		text = text[:doc.cfg.MaxTotalChars]
	}
	return text, nil
}

// pageContentBytes concatenates a page's (possibly array-valued)
// /Contents into one filter-decoded byte slice, inserting a separating
// space between streams so tokens never merge across a join.
func (doc *Document) pageContentBytes(pi pageInfo) ([]byte, error) {
	c := pi.page.Key("Contents")
	switch c.Kind() {
	case KindStream:
		return c.decodedBytes()
	case KindArray:
		var buf bytes.Buffer
		for i := 0; i < c.Len(); i++ {
			part := c.Index(i)
			if part.Kind() != KindStream {
				continue
			}
			b, err := part.decodedBytes()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
			buf.WriteByte(' ')
		}
		return buf.Bytes(), nil
	default:
		return nil, nil
	}
}

// ExtractAll concatenates every page's extracted text, separated by a
// form-feed, in document order (spec.md §4).
func (doc *Document) ExtractAll() (string, error) {
	var sb strings.Builder
	for i := range doc.pages {
		text, err := doc.ExtractText(i)
		if err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteByte('\f')
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}
