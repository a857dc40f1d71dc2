package jpeg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/jrm-1535/exif"
)

// EXIF tag constants
const (
	// Main IFD tags
	tagOrientation    = 0x0112
	tagMake           = 0x010F
	tagModel          = 0x0110
	tagSoftware       = 0x0131
	tagDateTime       = 0x0132
	tagExifIFDPointer = 0x8769

	// EXIF SubIFD tags
	tagDateTimeOriginal = 0x9003
)

// EXIF field types read by this package.
const (
	typeASCIIString   = 2
	typeUnsignedShort = 3
	typeUnsignedLong  = 4
)

var exifSignature = []byte("Exif\x00\x00")

var errExifHeader = errors.New("invalid TIFF header")

// Exif holds the image description fields of an APP1 Exif segment.
type Exif struct {
	// Orientation is the TIFF orientation tag (1..8), or 0 when absent.
	Orientation      int
	Make             string
	Model            string
	Software         string
	DateTime         string
	DateTimeOriginal string
	// Violation is the first tag that failed validation, or nil. The fields
	// above are filled either way.
	Violation error
}

// exifReader reads TIFF fields with the byte order declared by the TIFF header.
type exifReader struct {
	data  []byte
	order binary.ByteOrder
}

func (r *exifReader) uint16(offset int) uint16 {
	if offset < 0 || offset+2 > len(r.data) {
		return 0
	}

	return r.order.Uint16(r.data[offset:])
}

func (r *exifReader) uint32(offset int) uint32 {
	if offset < 0 || offset+4 > len(r.data) {
		return 0
	}

	return r.order.Uint32(r.data[offset:])
}

func (r *exifReader) string(offset, count int) string {
	if offset < 0 || offset >= len(r.data) {
		return ""
	}
	end := min(offset+count, len(r.data))
	if i := bytes.IndexByte(r.data[offset:end], 0); i >= 0 {
		end = offset + i
	}

	return string(r.data[offset:end])
}

// exifEntry is one 12-byte IFD entry. For values wider than 4 bytes the value
// field holds an offset into the TIFF data.
type exifEntry struct {
	tag, kind uint16
	count     int
	value     int
}

// ifd returns the entries of the IFD at offset.
func (r *exifReader) ifd(offset int) []exifEntry {
	n := int(r.uint16(offset))
	entries := make([]exifEntry, 0, n)
	for i := 0; i < n; i++ {
		at := offset + 2 + 12*i
		if at+12 > len(r.data) {
			break
		}

		e := exifEntry{
			tag:   r.uint16(at),
			kind:  r.uint16(at + 2),
			count: int(r.uint32(at + 4)),
			value: at + 8,
		}
		if e.kind == typeASCIIString && e.count > 4 {
			e.value = int(r.uint32(at + 8))
		}
		entries = append(entries, e)
	}

	return entries
}

// validateExif checks every tag of an APP1 Exif body against its expected
// type and count. The checker indexes without bounds checks, so a panic on a
// truncated structure is reported as a violation.
func validateExif(body []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errExifHeader, r)
		}
	}()

	body = body[:len(body):len(body)]
	// Parse takes the segment length, which ends six bytes past the body.
	if _, err := exif.Parse(body, 0, uint(len(body)+len(exifSignature)), &exif.Control{}); err != nil {
		return errors.New(strings.TrimSpace(err.Error()))
	}

	return nil
}

// parseExif parses the TIFF structure that follows the Exif signature.
func parseExif(data []byte) (*Exif, error) {
	if len(data) < 8 {
		return nil, errExifHeader
	}

	r := &exifReader{data: data}
	switch {
	case data[0] == 'I' && data[1] == 'I':
		r.order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		r.order = binary.BigEndian
	default:
		return nil, errExifHeader
	}
	if r.uint16(2) != 42 {
		return nil, errExifHeader
	}

	offset := int(r.uint32(4))
	if offset < 8 || offset >= len(data) {
		return nil, errExifHeader
	}

	x := &Exif{}
	sub := 0
	for _, e := range r.ifd(offset) {
		switch {
		case e.tag == tagOrientation && e.kind == typeUnsignedShort:
			x.Orientation = int(r.uint16(e.value))
		case e.tag == tagExifIFDPointer && e.kind == typeUnsignedLong:
			sub = int(r.uint32(e.value))
		case e.kind == typeASCIIString:
			s := r.string(e.value, e.count)
			switch e.tag {
			case tagMake:
				x.Make = s
			case tagModel:
				x.Model = s
			case tagSoftware:
				x.Software = s
			case tagDateTime:
				x.DateTime = s
			}
		}
	}

	if sub >= 8 && sub < len(data) {
		for _, e := range r.ifd(sub) {
			if e.tag == tagDateTimeOriginal && e.kind == typeASCIIString {
				x.DateTimeOriginal = r.string(e.value, e.count)
			}
		}
	}

	return x, nil
}
