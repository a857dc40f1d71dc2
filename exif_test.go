package jpeg

import (
	"encoding/binary"
	"errors"
	"testing"
)

type ifdEntry struct {
	tag, kind uint16
	count     uint32
	value     uint32
}

func appendIFD(b []byte, order binary.AppendByteOrder, entries []ifdEntry, next uint32) []byte {
	b = order.AppendUint16(b, uint16(len(entries)))
	for _, e := range entries {
		b = order.AppendUint16(b, e.tag)
		b = order.AppendUint16(b, e.kind)
		b = order.AppendUint32(b, e.count)
		if e.kind == typeUnsignedShort {
			b = order.AppendUint16(b, uint16(e.value))
			b = append(b, 0, 0)
		} else {
			b = order.AppendUint32(b, e.value)
		}
	}

	return order.AppendUint32(b, next)
}

// testTIFF builds a big-endian TIFF with an orientation, a make and a
// DateTimeOriginal in the Exif sub-IFD.
func testTIFF() []byte {
	order := binary.BigEndian
	b := []byte{'M', 'M', 0, 42, 0, 0, 0, 8}
	b = appendIFD(b, order, []ifdEntry{
		{tagOrientation, typeUnsignedShort, 1, 6},
		{tagMake, typeASCIIString, 6, 50},
		{tagExifIFDPointer, typeUnsignedLong, 1, 56},
	}, 0)
	b = append(b, "Canon\x00"...)
	b = appendIFD(b, order, []ifdEntry{
		{tagDateTimeOriginal, typeASCIIString, 20, 74},
	}, 0)

	return append(b, "2024:01:02 03:04:05\x00"...)
}

func TestParseExif(t *testing.T) {
	x, err := parseExif(testTIFF())
	if err != nil {
		t.Fatalf("parseExif failed: %v", err)
	}

	if x.Orientation != 6 {
		t.Errorf("Orientation = %d, want 6", x.Orientation)
	}
	if x.Make != "Canon" {
		t.Errorf("Make = %q, want Canon", x.Make)
	}
	if x.DateTimeOriginal != "2024:01:02 03:04:05" {
		t.Errorf("DateTimeOriginal = %q", x.DateTimeOriginal)
	}
}

func TestParseExifLittleEndian(t *testing.T) {
	order := binary.LittleEndian
	b := []byte{'I', 'I', 42, 0, 8, 0, 0, 0}
	b = appendIFD(b, order, []ifdEntry{
		{tagOrientation, typeUnsignedShort, 1, 3},
		{tagModel, typeASCIIString, 4, 0},
	}, 0)
	// A string of four bytes or fewer is stored in the entry itself.
	copy(b[8+2+12+8:], "X10\x00")

	x, err := parseExif(b)
	if err != nil {
		t.Fatalf("parseExif failed: %v", err)
	}
	if x.Orientation != 3 || x.Model != "X10" {
		t.Errorf("parseExif = %+v", x)
	}
}

func TestParseExifInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short", []byte{'M', 'M', 0}},
		{"byte order", []byte{'M', 'I', 0, 42, 0, 0, 0, 8}},
		{"magic", []byte{'M', 'M', 0, 43, 0, 0, 0, 8}},
		{"offset past end", []byte{'M', 'M', 0, 42, 0, 0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseExif(tt.data); err == nil {
				t.Fatal("parseExif accepted an invalid header")
			}
		})
	}

	// Entries pointing past the end read as empty.
	b := []byte{'M', 'M', 0, 42, 0, 0, 0, 8}
	b = appendIFD(b, binary.BigEndian, []ifdEntry{{tagMake, typeASCIIString, 30, 9000}}, 0)
	if x, err := parseExif(b); err != nil || x.Make != "" {
		t.Errorf("parseExif = %+v, %v", x, err)
	}
}

func TestValidateExif(t *testing.T) {
	app1 := func(tiff []byte) []byte { return append([]byte("Exif\x00\x00"), tiff...) }

	if err := validateExif(app1(testTIFF())); err != nil {
		t.Errorf("well formed Exif: %v", err)
	}

	// Unknown tags fail validation but the known fields are still read.
	b := []byte{'M', 'M', 0, 42, 0, 0, 0, 8}
	b = appendIFD(b, binary.BigEndian, []ifdEntry{
		{tagOrientation, typeUnsignedShort, 1, 8},
		{0x9999, typeUnsignedShort, 1, 1},
	}, 0)

	var m Metadata
	if err := m.application(MarkerAPP1, app1(b)); err != nil {
		t.Fatalf("APP1: %v", err)
	}
	if m.Exif == nil || m.Exif.Orientation != 8 {
		t.Fatalf("Exif = %+v", m.Exif)
	}
	if m.Exif.Violation == nil {
		t.Error("unknown tag passed validation")
	}

	// An entry count running past the end is reported, not a panic.
	b = []byte{'M', 'M', 0, 42, 0, 0, 0, 8}
	b = appendIFD(b, binary.BigEndian, []ifdEntry{{tagOrientation, typeUnsignedShort, 1, 1}}, 0)
	b[9] = 40
	if err := validateExif(app1(b)); !errors.Is(err, errExifHeader) {
		t.Errorf("truncated IFD: error = %v, want %v", err, errExifHeader)
	}

	if err := validateExif([]byte("Exif\x00\x00")); !errors.Is(err, errExifHeader) {
		t.Errorf("empty TIFF: error = %v, want %v", err, errExifHeader)
	}
}

func TestMetadataApplication(t *testing.T) {
	var m Metadata

	app1 := append([]byte("Exif\x00\x00"), testTIFF()...)
	if err := m.application(MarkerAPP1, app1); err != nil {
		t.Fatalf("APP1: %v", err)
	}
	if m.Exif == nil || m.Exif.Orientation != 6 || m.Exif.Violation != nil {
		t.Errorf("Exif = %+v", m.Exif)
	}

	// Malformed Exif is kept but not fatal.
	if err := m.application(MarkerAPP1, []byte("Exif\x00\x00XX")); err != nil {
		t.Fatalf("malformed APP1: %v", err)
	}
	if err := m.application(MarkerAPP0+14, []byte("Adobe")); err != nil {
		t.Fatalf("APP14: %v", err)
	}
	if len(m.Application) != 3 || m.Application[2].Marker != MarkerAPP0+14 {
		t.Errorf("Application = %+v", m.Application)
	}

	if err := m.application(MarkerAPP0, []byte("JFIF\x00\x01")); !errors.Is(err, ErrInvalidJFIF) {
		t.Errorf("short JFIF: error = %v", err)
	}
	if err := m.application(MarkerAPP0, []byte("JFXX\x00")); err != nil {
		t.Errorf("JFXX: error = %v", err)
	}
}
