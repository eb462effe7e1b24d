// SPDX-License-Identifier: BSD-3-Clause

// Stream filter decoding (spec.md §4.4). FlateDecode generalizes the
// teacher's read.go pngUpReader (which only handled PNG predictor 12,
// i.e. Up, on every scanline) into the full PNG predictor set (None, Sub,
// Up, Average, Paeth, selected per scanline) plus the TIFF predictor.
// ASCII85Decode keeps the teacher's pre-filtering-reader idea (its
// newAlphaReader, referenced by ascii85_test.go but not present in the
// retrieved sources) generalized into asciiAlphaFilter. LZWDecode and
// RunLengthDecode have no teacher implementation and are grounded on
// github.com/hhrutter/lzw (named in benoitkugler's pdf go.mod) and the
// RFC-level RunLengthDecode algorithm in ISO 32000-1 §7.4.5.
package pdf

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"fmt"
	"io"

	"github.com/hhrutter/lzw"
)

// filterSpec is one stage of a stream's /Filter + /DecodeParms chain.
type filterSpec struct {
	name  string
	parms dict
}

// filterChain extracts the ordered filter names and their per-filter
// parameter dictionaries from a stream header, tolerating both the
// single-name and array forms (spec.md §4.4).
func filterChain(hdr dict) ([]filterSpec, error) {
	f := hdr[pdfName("Filter")]
	if f == nil {
		return nil, nil
	}
	p := hdr[pdfName("DecodeParms")]
	if p == nil {
		p = hdr[pdfName("DP")]
	}
	switch fv := f.(type) {
	case pdfName:
		pd, _ := p.(dict)
		return []filterSpec{{name: string(fv), parms: pd}}, nil
	case array:
		pa, _ := p.(array)
		specs := make([]filterSpec, 0, len(fv))
		for i, nm := range fv {
			n, ok := nm.(pdfName)
			if !ok {
				return nil, newErr(ErrUnknownFilter, "filterChain", fmt.Errorf("non-name filter entry %#v", nm))
			}
			var pd dict
			if pa != nil && i < len(pa) {
				pd, _ = pa[i].(dict)
			}
			specs = append(specs, filterSpec{name: string(n), parms: pd})
		}
		return specs, nil
	default:
		return nil, newErr(ErrUnknownFilter, "filterChain", fmt.Errorf("unsupported /Filter value %#v", f))
	}
}

// applyFilters runs raw bytes through the given filter chain in order.
func applyFilters(raw []byte, specs []filterSpec) ([]byte, error) {
	cur := raw
	for _, s := range specs {
		decoded, err := applyFilter(cur, s.name, s.parms)
		if err != nil {
			return nil, err
		}
		cur = decoded
	}
	return cur, nil
}

func applyFilter(raw []byte, name string, parms dict) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return flateDecode(raw, parms)
	case "ASCIIHexDecode", "AHx":
		return asciiHexDecode(raw)
	case "ASCII85Decode", "A85":
		return ascii85Decode(raw)
	case "LZWDecode", "LZW":
		return lzwDecode(raw, parms)
	case "RunLengthDecode", "RL":
		return runLengthDecode(raw)
	default:
		return nil, newErr(ErrUnknownFilter, "applyFilter", fmt.Errorf("unsupported filter %q", name))
	}
}

// scanForEndstream implements the fallback of spec.md §4.4: when a
// stream's /Length is missing, indirect-and-unresolvable, or evidently
// wrong (the declared slice does not land on an "endstream" boundary),
// scan forward for the "endstream" keyword and trim the single trailing
// EOL that precedes it.
func scanForEndstream(data []byte, offset int64) []byte {
	rest := data[offset:]
	i := findSubstring(rest, []byte("endstream"))
	if i < 0 {
		return rest
	}
	end := i
	if end > 0 && rest[end-1] == '\n' {
		end--
		if end > 0 && rest[end-1] == '\r' {
			end--
		}
	} else if end > 0 && rest[end-1] == '\r' {
		end--
	}
	return rest[:end]
}

// rawStreamBytes returns the still-filter-encoded payload of strm. length
// is the resolved /Length, or -1 if it could not be determined directly
// (an indirect reference the caller has not resolved, or a value that
// does not land on "endstream").
func rawStreamBytes(data []byte, strm stream, length int64) []byte {
	if length >= 0 {
		end := strm.offset + length
		if end <= int64(len(data)) {
			candidate := data[strm.offset:end]
			if looksLikeEndstream(data, end) {
				return candidate
			}
		}
	}
	return scanForEndstream(data, strm.offset)
}

func looksLikeEndstream(data []byte, end int64) bool {
	i := int(end)
	for i < len(data) && isWhitespace(data[i]) {
		i++
	}
	return bytes.HasPrefix(data[i:], []byte("endstream"))
}

// decodeStreamPayload extracts and fully decodes a stream whose /Length
// must be a direct integer: this is the bootstrap path used while
// building the cross-reference table (xref streams, object streams),
// before any resolver exists to chase an indirect /Length.
func decodeStreamPayload(data []byte, strm stream, maxDepth int) ([]byte, error) {
	length := int64(-1)
	if l, ok := strm.hdr[pdfName("Length")].(int64); ok {
		length = l
	}
	raw := rawStreamBytes(data, strm, length)
	specs, err := filterChain(strm.hdr)
	if err != nil {
		return nil, err
	}
	return applyFilters(raw, specs)
}

// --- FlateDecode ---

func flateDecode(raw []byte, parms dict) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, newErr(ErrDecompressionFailed, "flateDecode", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, newErr(ErrDecompressionFailed, "flateDecode", err)
	}
	predictor := intParm(parms, "Predictor", 1)
	if predictor <= 1 {
		return out, nil
	}
	colors := intParm(parms, "Colors", 1)
	bpc := intParm(parms, "BitsPerComponent", 8)
	columns := intParm(parms, "Columns", 1)
	if predictor == 2 {
		return tiffPredictorDecode(out, colors, bpc, columns)
	}
	return pngPredictorDecode(out, colors, bpc, columns)
}

func intParm(parms dict, key string, def int) int {
	if parms == nil {
		return def
	}
	if v, ok := parms[pdfName(key)].(int64); ok {
		return int(v)
	}
	return def
}

func bytesPerPixel(colors, bpc int) int {
	bits := colors * bpc
	n := (bits + 7) / 8
	if n < 1 {
		n = 1
	}
	return n
}

// pngPredictorDecode reverses the PNG predictor filters (None, Sub, Up,
// Average, Paeth) applied per scanline, generalizing the teacher's
// pngUpReader (predictor 12 only, i.e. always Up) to the full filter set
// selected by the tag byte prefixing each row.
func pngPredictorDecode(data []byte, colors, bpc, columns int) ([]byte, error) {
	rowBytes := (columns*colors*bpc + 7) / 8
	bpp := bytesPerPixel(colors, bpc)
	stride := rowBytes + 1
	if stride <= 1 {
		return data, nil
	}
	nrows := len(data) / stride
	out := make([]byte, 0, nrows*rowBytes)
	prev := make([]byte, rowBytes)
	cur := make([]byte, rowBytes)
	for r := 0; r < nrows; r++ {
		row := data[r*stride : r*stride+stride]
		tag := row[0]
		src := row[1:]
		switch tag {
		case 0: // None
			copy(cur, src)
		case 1: // Sub
			for i := 0; i < rowBytes; i++ {
				var left byte
				if i >= bpp {
					left = cur[i-bpp]
				}
				cur[i] = src[i] + left
			}
		case 2: // Up
			for i := 0; i < rowBytes; i++ {
				cur[i] = src[i] + prev[i]
			}
		case 3: // Average
			for i := 0; i < rowBytes; i++ {
				var left int
				if i >= bpp {
					left = int(cur[i-bpp])
				}
				cur[i] = src[i] + byte((left+int(prev[i]))/2)
			}
		case 4: // Paeth
			for i := 0; i < rowBytes; i++ {
				var left, upLeft int
				if i >= bpp {
					left = int(cur[i-bpp])
					upLeft = int(prev[i-bpp])
				}
				cur[i] = src[i] + paeth(left, int(prev[i]), upLeft)
			}
		default:
			return nil, newErr(ErrDecompressionFailed, "pngPredictorDecode", fmt.Errorf("unsupported PNG predictor tag %d", tag))
		}
		out = append(out, cur...)
		prev, cur = cur, prev
	}
	return out, nil
}

func paeth(a, b, c int) byte {
	p := a + b - c
	pa, pb, pc := abs(p-a), abs(p-b), abs(p-c)
	switch {
	case pa <= pb && pa <= pc:
		return byte(a)
	case pb <= pc:
		return byte(b)
	default:
		return byte(c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// tiffPredictorDecode reverses TIFF predictor 2 (horizontal differencing).
// Only the common BitsPerComponent=8 case is implemented; other component
// widths are left undecoded, matching this filter's narrow real-world use
// inside PDFs (almost exclusively 8-bit image samples).
func tiffPredictorDecode(data []byte, colors, bpc, columns int) ([]byte, error) {
	if bpc != 8 {
		return nil, newErr(ErrDecompressionFailed, "tiffPredictorDecode", fmt.Errorf("unsupported BitsPerComponent %d for TIFF predictor", bpc))
	}
	rowBytes := columns * colors
	if rowBytes <= 0 {
		return data, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	for start := 0; start+rowBytes <= len(out); start += rowBytes {
		row := out[start : start+rowBytes]
		for i := colors; i < len(row); i++ {
			row[i] += row[i-colors]
		}
	}
	return out, nil
}

// --- ASCIIHexDecode ---

func asciiHexDecode(raw []byte) ([]byte, error) {
	var nibbles []byte
	for _, c := range raw {
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		v := unhex(c)
		if v < 0 {
			return nil, newErr(ErrDecompressionFailed, "asciiHexDecode", fmt.Errorf("invalid hex digit %q", c))
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
	return out, nil
}

// --- ASCII85Decode ---

// alphaFilter strips bytes outside the base-85 alphabet (whitespace, the
// trailing "~>" terminator, and any stray producer garbage) before
// handing the stream to encoding/ascii85, mirroring the teacher's
// dedicated pre-filtering reader for this same purpose.
func alphaFilter(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '~' {
			break
		}
		if c == 'z' || (c >= '!' && c <= 'u') {
			out = append(out, c)
		}
	}
	return out
}

func ascii85Decode(raw []byte) ([]byte, error) {
	clean := alphaFilter(raw)
	out := make([]byte, 4*len(clean)) // each 'z' expands to four bytes
	ndst, _, err := ascii85.Decode(out, clean, true)
	if err != nil {
		return nil, newErr(ErrDecompressionFailed, "ascii85Decode", err)
	}
	return out[:ndst], nil
}

// --- LZWDecode ---

func lzwDecode(raw []byte, parms dict) ([]byte, error) {
	early := intParm(parms, "EarlyChange", 1)
	if early != 1 {
		return nil, newErr(ErrDecompressionFailed, "lzwDecode", fmt.Errorf("EarlyChange=0 is not supported"))
	}
	r := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, newErr(ErrDecompressionFailed, "lzwDecode", err)
	}
	predictor := intParm(parms, "Predictor", 1)
	if predictor <= 1 {
		return out, nil
	}
	colors := intParm(parms, "Colors", 1)
	bpc := intParm(parms, "BitsPerComponent", 8)
	columns := intParm(parms, "Columns", 1)
	if predictor == 2 {
		return tiffPredictorDecode(out, colors, bpc, columns)
	}
	return pngPredictorDecode(out, colors, bpc, columns)
}

// --- RunLengthDecode ---

func runLengthDecode(raw []byte) ([]byte, error) {
	var out []byte
	i := 0
	for i < len(raw) {
		length := raw[i]
		i++
		switch {
		case length == 128:
			return out, nil
		case length < 128:
			n := int(length) + 1
			if i+n > len(raw) {
				return nil, newErr(ErrDecompressionFailed, "runLengthDecode", fmt.Errorf("literal run truncated"))
			}
			out = append(out, raw[i:i+n]...)
			i += n
		default:
			if i >= len(raw) {
				return nil, newErr(ErrDecompressionFailed, "runLengthDecode", fmt.Errorf("replicate run truncated"))
			}
			n := 257 - int(length)
			b := raw[i]
			i++
			for k := 0; k < n; k++ {
				out = append(out, b)
			}
		}
	}
	return out, nil
}
