// SPDX-License-Identifier: BSD-3-Clause

// Document metadata: the /Info dictionary, XMP metadata stream, and
// security-handler access permissions (spec.md §10, supplementing the
// distilled spec from the teacher's metadata.go, which covers all three
// against a from-disk Reader; this rebuilds the same reads against the
// in-memory Document/Value API).
package pdf

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"strings"
)

// Info is the document's unified metadata, XMP taking precedence over
// the /Info dictionary entry of the same name when both are present.
type Info struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modDate,omitempty"`
}

type xmpPacket struct {
	XMLName xml.Name `xml:"xmpmeta"`
	RDF     rdfRDF   `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF"`
}

type rdfRDF struct {
	Descriptions []rdfDescription `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
}

type rdfDescription struct {
	Title       altString `xml:"http://purl.org/dc/elements/1.1/ title"`
	Description altString `xml:"http://purl.org/dc/elements/1.1/ description"`
	Creator     seqString `xml:"http://purl.org/dc/elements/1.1/ creator"`

	PDFProducer string `xml:"http://ns.adobe.com/pdf/1.3/ Producer"`
	PDFKeywords string `xml:"http://ns.adobe.com/pdf/1.3/ Keywords"`

	XMPCreatorTool string `xml:"http://ns.adobe.com/xap/1.0/ CreatorTool"`
	XMPCreateDate  string `xml:"http://ns.adobe.com/xap/1.0/ CreateDate"`
	XMPModifyDate  string `xml:"http://ns.adobe.com/xap/1.0/ ModifyDate"`
}

type altString struct {
	Alt struct {
		LI []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# li"`
	} `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Alt"`
}

func (a altString) First() string {
	if len(a.Alt.LI) > 0 {
		return strings.TrimSpace(a.Alt.LI[0])
	}
	return ""
}

type seqString struct {
	Seq struct {
		LI []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# li"`
	} `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Seq"`
}

func (s seqString) First() string {
	if len(s.Seq.LI) > 0 {
		return strings.TrimSpace(s.Seq.LI[0])
	}
	return ""
}

type xmpFields struct {
	Title, Creator, Subject, Keywords, CreatorTool, Producer, CreateDate, ModifyDate string
}

// AccessPermission reports the operations the security handler's /P bit
// mask grants (ISO 32000-1 §7.6.3.2). A document with no /Encrypt entry
// grants everything.
type AccessPermission struct {
	CanPrint                bool `json:"can_print"`
	CanPrintFaithful        bool `json:"can_print_faithful"`
	CanModify               bool `json:"can_modify"`
	ExtractContent          bool `json:"extract_content"`
	ModifyAnnotations       bool `json:"modify_annotations"`
	FillInForm              bool `json:"fill_in_form"`
	ExtractForAccessibility bool `json:"extract_for_accessibility"`
	AssembleDocument        bool `json:"assemble_document"`
}

// DocumentInfo is a comprehensive metadata report: the unified /Info+XMP
// fields plus structural facts about the file that spec.md's six
// extraction scenarios don't need but a production caller typically does.
type DocumentInfo struct {
	Info

	PDFVersion              string `json:"pdf:PDFVersion,omitempty"`
	HasXMP                  bool   `json:"pdf:hasXMP"`
	HasCollection           bool   `json:"pdf:hasCollection"`
	Encrypted               bool   `json:"pdf:encrypted"`
	NPages                  int    `json:"xmpTPg:NPages,omitempty"`
	ContainsNonEmbeddedFont bool   `json:"pdf:containsNonEmbeddedFont"`

	AccessPermission AccessPermission `json:"access_permission"`
}

func prefer(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// InfoDict returns the raw /Info dictionary as a Value (may be null).
func (doc *Document) InfoDict() Value {
	return doc.trailer.Key("Info")
}

func (doc *Document) readInfoDict() Info {
	info := doc.InfoDict()
	return Info{
		Title:        info.Key("Title").Text(),
		Author:       info.Key("Author").Text(),
		Subject:      info.Key("Subject").Text(),
		Keywords:     info.Key("Keywords").Text(),
		Creator:      info.Key("Creator").Text(),
		Producer:     info.Key("Producer").Text(),
		CreationDate: info.Key("CreationDate").Text(),
		ModDate:      info.Key("ModDate").Text(),
	}
}

// readXMP returns the raw XMP XML from /Root/Metadata (empty if absent).
func (doc *Document) readXMP() (string, error) {
	md := doc.catalog.Key("Metadata")
	if md.Kind() != KindStream {
		return "", nil
	}
	b, err := md.decodedBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parseXMPWithXML(x string) (xmpFields, bool) {
	var pkt xmpPacket
	dec := xml.NewDecoder(strings.NewReader(x))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	if err := dec.Decode(&pkt); err != nil {
		return xmpFields{}, false
	}

	var f xmpFields
	for _, d := range pkt.RDF.Descriptions {
		if t := d.Title.First(); t != "" {
			f.Title = t
		}
		if c := d.Creator.First(); c != "" {
			f.Creator = c
		}
		if s := d.Description.First(); s != "" {
			f.Subject = s
		}
		if k := strings.TrimSpace(d.PDFKeywords); k != "" {
			f.Keywords = k
		}
		if p := strings.TrimSpace(d.PDFProducer); p != "" {
			f.Producer = p
		}
		if ct := strings.TrimSpace(d.XMPCreatorTool); ct != "" {
			f.CreatorTool = ct
		}
		if cd := strings.TrimSpace(d.XMPCreateDate); cd != "" {
			f.CreateDate = cd
		}
		if md := strings.TrimSpace(d.XMPModifyDate); md != "" {
			f.ModifyDate = md
		}
	}
	return f, true
}

// parseXMPFallback does a simple tag-search when the XMP packet isn't
// well-formed enough for encoding/xml to parse.
func parseXMPFallback(xmp string) xmpFields {
	get := func(cands ...string) string {
		for _, t := range cands {
			open, closeTag := "<"+t+">", "</"+t+">"
			if i := strings.Index(xmp, open); i >= 0 {
				if j := strings.Index(xmp[i+len(open):], closeTag); j >= 0 {
					return strings.TrimSpace(stripXMLTags(xmp[i+len(open) : i+len(open)+j]))
				}
			}
		}
		return ""
	}
	return xmpFields{
		Title:       get("dc:title", "pdf:Title", "xmp:Title", "rdf:li"),
		Creator:     get("dc:creator", "pdf:Author", "xmp:Author", "rdf:li"),
		Subject:     get("dc:description", "pdf:Subject"),
		Keywords:    get("pdf:Keywords", "xmp:Keywords"),
		CreatorTool: get("xmp:CreatorTool"),
		Producer:    get("pdf:Producer"),
		CreateDate:  get("xmp:CreateDate"),
		ModifyDate:  get("xmp:ModifyDate"),
	}
}

func stripXMLTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch r {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// Metadata returns the document's unified metadata, XMP fields taking
// precedence over the /Info dictionary entry of the same name.
func (doc *Document) Metadata() (Info, error) {
	info := doc.readInfoDict()

	xmpXML, err := doc.readXMP()
	if err != nil {
		return Info{}, err
	}

	var xf xmpFields
	if xmpXML != "" {
		if got, ok := parseXMPWithXML(xmpXML); ok {
			xf = got
		} else {
			xf = parseXMPFallback(xmpXML)
		}
	}

	return Info{
		Title:        prefer(xf.Title, info.Title),
		Author:       prefer(xf.Creator, info.Author),
		Subject:      prefer(xf.Subject, info.Subject),
		Keywords:     prefer(xf.Keywords, info.Keywords),
		Creator:      prefer(xf.CreatorTool, info.Creator),
		Producer:     prefer(xf.Producer, info.Producer),
		CreationDate: prefer(xf.CreateDate, info.CreationDate),
		ModDate:      prefer(xf.ModifyDate, info.ModDate),
	}, nil
}

// MetadataJSON writes DocumentInfo as pretty JSON to w.
func (doc *Document) MetadataJSON(w io.Writer) error {
	mf, err := doc.DocumentInfo()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(mf)
}

func (doc *Document) hasXMP() bool {
	return doc.catalog.Key("Metadata").Kind() == KindStream
}

func (doc *Document) hasCollection() bool {
	return !doc.catalog.Key("Collection").IsNull()
}

// accessPermissions computes the effective access permissions from the
// security handler's /P bit mask (ISO 32000-1 Table 22).
func (doc *Document) accessPermissions() AccessPermission {
	enc := doc.trailer.Key("Encrypt")
	if enc.IsNull() {
		return AccessPermission{
			CanPrint: true, CanModify: true, ExtractContent: true,
			ModifyAnnotations: true, FillInForm: true,
			ExtractForAccessibility: true, AssembleDocument: true,
			CanPrintFaithful: true,
		}
	}
	p := uint32(enc.Key("P").Int64())
	var ap AccessPermission
	ap.CanPrint = p&(1<<2) != 0
	ap.CanModify = p&(1<<3) != 0
	ap.ExtractContent = p&(1<<4) != 0
	ap.ModifyAnnotations = p&(1<<5) != 0
	ap.FillInForm = p&(1<<8) != 0 || ap.ModifyAnnotations
	ap.ExtractForAccessibility = p&(1<<9) != 0
	ap.AssembleDocument = p&(1<<10) != 0
	ap.CanPrintFaithful = p&(1<<11) != 0 || ap.CanPrint
	return ap
}

// containsNonEmbeddedFont reports whether any page references a font with
// no embedded font program, a hint that the rendered glyphs depend on
// fonts available on whatever system later displays the PDF.
func (doc *Document) containsNonEmbeddedFont() bool {
	for _, pi := range doc.pages {
		fonts := pi.resources.Key("Font")
		if fonts.Kind() != KindDict {
			continue
		}
		for _, name := range fonts.Keys() {
			desc := fonts.Key(name).Key("FontDescriptor")
			if desc.Kind() != KindDict {
				return true
			}
			if desc.Key("FontFile").Kind() == KindStream ||
				desc.Key("FontFile2").Kind() == KindStream ||
				desc.Key("FontFile3").Kind() == KindStream {
				continue
			}
			return true
		}
	}
	return false
}

// DocumentInfo returns a comprehensive metadata report for the document.
func (doc *Document) DocumentInfo() (DocumentInfo, error) {
	var out DocumentInfo

	md, err := doc.Metadata()
	if err != nil {
		return out, err
	}
	out.Info = md

	out.PDFVersion = doc.versionStr
	out.HasXMP = doc.hasXMP()
	out.HasCollection = doc.hasCollection()
	out.Encrypted = doc.IsEncrypted()
	out.NPages = doc.PageCount()
	out.ContainsNonEmbeddedFont = doc.containsNonEmbeddedFont()
	out.AccessPermission = doc.accessPermissions()

	return out, nil
}
