package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"github.com/klauspost/compress/zlib"

	jpeg "github.com/tayloraswift/jpeg-sub000"
)

func testSpectral() *jpeg.Spectral {
	f := &jpeg.Frame{
		Process:   jpeg.Process{Kind: jpeg.Progressive, Coding: jpeg.Huffman},
		Precision: 8,
		Width:     19,
		Height:    11,
		Components: []jpeg.Component{
			{Key: 1, H: 2, V: 1, Quantization: 0},
			{Key: 2, H: 1, V: 1, Quantization: 1},
			{Key: 3, H: 1, V: 1, Quantization: 1},
		},
	}
	s := jpeg.NewSpectral(f)

	luma := &jpeg.QuantizationTable{}
	chroma := &jpeg.QuantizationTable{Wide: true}
	for k := range luma.Values {
		luma.Values[k] = uint16(k + 1)
		chroma.Values[k] = uint16(300 + k)
	}
	s.Quanta[0], s.Quanta[1] = luma, chroma

	for i := range s.Planes {
		coefficients := s.Planes[i].Coefficients()
		for j := range coefficients {
			coefficients[j] = int32((j*7+i)%61 - 30)
		}
	}

	return s
}

func TestArchiveRoundTrip(t *testing.T) {
	for _, name := range []string{"zstd", "zlib"} {
		t.Run(name, func(t *testing.T) {
			c, err := compressionByte(name)
			if err != nil {
				t.Fatal(err)
			}

			s := testSpectral()
			var buf bytes.Buffer
			if err := writeArchive(&buf, s, c); err != nil {
				t.Fatal(err)
			}

			got, err := readArchive(buf.Bytes())
			if err != nil {
				t.Fatal(err)
			}

			if got.Width != s.Width || got.Height != s.Height || got.Precision != s.Precision {
				t.Fatalf("frame %dx%d/%d, want %dx%d/%d",
					got.Width, got.Height, got.Precision, s.Width, s.Height, s.Precision)
			}
			if len(got.Planes) != len(s.Planes) {
				t.Fatalf("%d planes, want %d", len(got.Planes), len(s.Planes))
			}
			for i := range s.Planes {
				if got.Planes[i].Component != s.Planes[i].Component {
					t.Errorf("plane %d component %+v, want %+v", i, got.Planes[i].Component, s.Planes[i].Component)
				}
				if !slices.Equal(got.Planes[i].Coefficients(), s.Planes[i].Coefficients()) {
					t.Errorf("plane %d coefficients differ", i)
				}
			}
			for i := range s.Quanta {
				switch {
				case s.Quanta[i] == nil && got.Quanta[i] != nil:
					t.Errorf("quantization table %d defined, want nil", i)
				case s.Quanta[i] != nil && (got.Quanta[i] == nil || *got.Quanta[i] != *s.Quanta[i]):
					t.Errorf("quantization table %d differs", i)
				}
			}
		})
	}
}

// frameBody returns an archive body holding one 1x1 component of the given
// size, no quantization tables and no coefficients.
func frameBody(width, height uint32) []byte {
	b := binary.LittleEndian.AppendUint32(nil, width)
	b = binary.LittleEndian.AppendUint32(b, height)

	return append(b, 8, 1, 1, 1, 1, 0, 0)
}

// zlibArchive wraps a raw body the way writeArchive does.
func zlibArchive(t *testing.T, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(archiveMagic)
	buf.WriteByte(compressZlib)

	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

func TestArchiveMalformed(t *testing.T) {
	var good bytes.Buffer
	if err := writeArchive(&good, testSpectral(), compressZlib); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"magic only", []byte(archiveMagic)},
		{"bad magic", append([]byte("jpegscan coefficients v0\n"), good.Bytes()[len(archiveMagic):]...)},
		{"unknown compression", append([]byte(archiveMagic), 'x', 0)},
		{"huge frame", zlibArchive(t, frameBody(1<<28, 1<<28))},
		{"wrapping frame", zlibArchive(t, frameBody(0xFFFFFFFF, 0xFFFFFFFF))},
		{"zero width", zlibArchive(t, frameBody(0, 8))},
		{"missing coefficients", zlibArchive(t, frameBody(64, 64))},
		{"short coefficients", zlibArchive(t, append(frameBody(8, 8), make([]byte, 255)...))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := readArchive(tt.data); !errors.Is(err, errArchive) {
				t.Errorf("err = %v, want %v", err, errArchive)
			}
		})
	}
}

func TestArchiveTruncatedBody(t *testing.T) {
	body := marshalSpectral(testSpectral())

	for _, n := range []int{0, 5, 10, 14, len(body) - 1} {
		if _, err := unmarshalSpectral(body[:n]); !errors.Is(err, errArchive) {
			t.Errorf("%d bytes: err = %v, want %v", n, err, errArchive)
		}
	}
	if _, err := unmarshalSpectral(append(body, 0)); !errors.Is(err, errArchive) {
		t.Errorf("trailing byte: err = %v, want %v", err, errArchive)
	}
}

func TestArchiveDeferredHeight(t *testing.T) {
	// A zero height is a valid model with empty planes.
	s, err := readArchive(zlibArchive(t, frameBody(8, 0)))
	if err != nil {
		t.Fatal(err)
	}
	if s.Width != 8 || s.Height != 0 || len(s.Planes[0].Coefficients()) != 0 {
		t.Errorf("spectral %dx%d with %d coefficients", s.Width, s.Height, len(s.Planes[0].Coefficients()))
	}

	if _, err := readArchive(zlibArchive(t, append(frameBody(8, 8), make([]byte, 256)...))); err != nil {
		t.Errorf("one block: %v", err)
	}
}

func TestCompressionByte(t *testing.T) {
	if _, err := compressionByte("brotli"); err == nil {
		t.Error("expected an error for an unknown compression")
	}
}
