// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLengthDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"literal run", []byte{4, 'h', 'e', 'l', 'l', 'o'}, []byte("hello")},
		{"replicate run", []byte{257 - 3, 'x'}, []byte("xxx")},
		{"terminator stops early", []byte{1, 'a', 'b', 128, 3, 'z', 'z', 'z', 'z'}, []byte("ab")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runLengthDecode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestASCIIHexDecode(t *testing.T) {
	got, err := asciiHexDecode([]byte("48 65 6C6C6F>"))
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello"), got)
}

func TestASCIIHexDecodeOddNibblePadsHigh(t *testing.T) {
	got, err := asciiHexDecode([]byte("482>"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x48, 0x20}, got)
}

func TestASCII85Decode(t *testing.T) {
	plain := []byte("Hello world")
	encoded := make([]byte, ascii85.MaxEncodedLen(len(plain)))
	n := ascii85.Encode(encoded, plain)
	encoded = append(encoded[:n], []byte("~>")...)

	got, err := ascii85Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestFlateDecodeNoPredictor(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte("some plain text"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := flateDecode(buf.Bytes(), nil)
	require.NoError(t, err)
	assert.Equal(t, "some plain text", string(got))
}

func TestPNGPredictorUpRoundTrip(t *testing.T) {
	// Two one-byte-per-pixel rows [10, 20, 30] and [11, 22, 33], filtered
	// with PNG predictor "Up" (tag 2): each byte is the delta from the
	// byte directly above it in the previous row.
	row0 := []byte{2, 10, 20, 30}
	row1 := []byte{2, 1, 2, 3} // 11-10, 22-20, 33-30
	filtered := append(append([]byte{}, row0...), row1...)

	got, err := pngPredictorDecode(filtered, 1, 8, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30, 11, 22, 33}, got)
}

func TestTIFFPredictorRoundTrip(t *testing.T) {
	// One row, 3 columns, 1 color: horizontal differences of [10, 20, 30]
	// are [10, 10, 10].
	filtered := []byte{10, 10, 10}
	got, err := tiffPredictorDecode(filtered, 1, 8, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30}, got)
}

func TestTIFFPredictorRejectsNon8Bit(t *testing.T) {
	_, err := tiffPredictorDecode([]byte{1, 2, 3}, 1, 4, 3)
	assert.Error(t, err)
}

func TestFilterChainArrayForm(t *testing.T) {
	hdr := dict{
		pdfName("Filter"): array{pdfName("ASCII85Decode"), pdfName("FlateDecode")},
	}
	specs, err := filterChain(hdr)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "ASCII85Decode", specs[0].name)
	assert.Equal(t, "FlateDecode", specs[1].name)
}

func TestApplyFilterUnknownName(t *testing.T) {
	_, err := applyFilter(nil, "BogusDecode", nil)
	assert.Error(t, err)
}

func TestRawStreamBytesFallsBackToScan(t *testing.T) {
	data := []byte("stream\nhello world\nendstream")
	strm := stream{offset: int64(len("stream\n"))}
	got := rawStreamBytes(data, strm, -1)
	assert.Equal(t, "hello world", string(got))
}
