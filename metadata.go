package jpeg

import (
	"bytes"
	"fmt"
)

var jfifSignature = []byte("JFIF\x00")

// Density units of a JFIF segment.
const (
	DensityAspect = 0 // no units, aspect ratio only
	DensityInch   = 1
	DensityCM     = 2
)

// JFIF holds the fields of an APP0 JFIF segment.
type JFIF struct {
	Major, Minor       int
	Units              int
	DensityX, DensityY int
}

// parseJFIF decodes an APP0 body. It reports false if the body is not JFIF.
func parseJFIF(body []byte) (*JFIF, bool, error) {
	if !bytes.HasPrefix(body, jfifSignature) {
		return nil, false, nil
	}
	if len(body) < 14 {
		return nil, true, fmt.Errorf("JFIF segment of %d bytes: %w", len(body), ErrInvalidJFIF)
	}

	thumbnail := 3 * int(body[12]) * int(body[13])
	if len(body) < 14+thumbnail {
		return nil, true, fmt.Errorf("JFIF thumbnail %dx%d truncated: %w", body[12], body[13], ErrInvalidJFIF)
	}

	j := &JFIF{
		Major:    int(body[5]),
		Minor:    int(body[6]),
		Units:    int(body[7]),
		DensityX: int(body[8])<<8 | int(body[9]),
		DensityY: int(body[10])<<8 | int(body[11]),
	}
	if j.Units > DensityCM {
		return nil, true, fmt.Errorf("JFIF units %d: %w", j.Units, ErrInvalidJFIF)
	}

	return j, true, nil
}

// appendAPP0 serializes an APP0 JFIF segment without a thumbnail.
func (j *JFIF) appendAPP0(dst []byte) []byte {
	dst = appendMarkerHeader(dst, MarkerAPP0, 16)
	dst = append(dst, jfifSignature...)

	return append(dst,
		byte(j.Major), byte(j.Minor), byte(j.Units),
		byte(j.DensityX>>8), byte(j.DensityX),
		byte(j.DensityY>>8), byte(j.DensityY),
		0, 0,
	)
}

// Application is an APPn segment kept verbatim.
type Application struct {
	Marker Marker
	Data   []byte
}

// Metadata collects the non-image segments of a stream.
type Metadata struct {
	JFIF        *JFIF
	Exif        *Exif
	Application []Application
	Comments    [][]byte
	// RestartInterval is the last restart interval defined, in MCUs.
	RestartInterval int
}

// application records an APPn segment. Malformed Exif data is kept verbatim
// but otherwise ignored.
func (m *Metadata) application(marker Marker, body []byte) error {
	switch marker {
	case MarkerAPP0:
		j, ok, err := parseJFIF(body)
		if err != nil {
			return err
		}
		if ok {
			m.JFIF = j
			return nil
		}
	case MarkerAPP1:
		if bytes.HasPrefix(body, exifSignature) {
			if x, err := parseExif(body[len(exifSignature):]); err == nil {
				x.Violation = validateExif(body)
				m.Exif = x
			}
		}
	}

	m.Application = append(m.Application, Application{Marker: marker, Data: bytes.Clone(body)})

	return nil
}
