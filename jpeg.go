// Package jpeg implements a progressive JPEG codec at the level of DCT
// coefficients.
//
// Decode parses a stream into its spectral model: one plane of coefficient
// blocks per component. Encode writes a spectral model back out with Huffman
// tables optimized per scan. Only the progressive Huffman coding process is
// supported; other frame types fail with ErrUnsupportedFrameCodingProcess.
package jpeg

import (
	"fmt"
	"io"
)

// Interface to check if a reader knows its remaining length.
type readerWithLen interface {
	Len() int
}

// readAllData reads data from r, pre-allocating if the size is known.
func readAllData(r io.Reader) ([]byte, error) {
	if rl, ok := r.(readerWithLen); ok {
		if size := rl.Len(); size > 0 {
			data := make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("failed to read image data: %w", err)
			}

			return data, nil
		}
	}

	return io.ReadAll(r)
}

// Decode reads a progressive JPEG stream from r. A nil opts uses the defaults.
func Decode(r io.Reader, opts *DecodeOptions) (*Spectral, *Metadata, error) {
	data, err := readAllData(r)
	if err != nil {
		return nil, nil, err
	}

	c := NewContext(opts)
	if err := c.Run(data); err != nil {
		return nil, nil, err
	}

	return c.Spectral(), c.Metadata(), nil
}

// DecodeFrame reads the stream up to its frame header and returns it.
// The stream may use any coding process.
func DecodeFrame(r io.Reader) (*Frame, error) {
	data, err := readAllData(r)
	if err != nil {
		return nil, err
	}

	l := &lexer{data: data}
	s, err := l.next(false)
	if err != nil {
		return nil, err
	}
	if s.marker != MarkerSOI {
		return nil, fmt.Errorf("first marker %v: %w", s.marker, ErrMissingStartOfImage)
	}

	for {
		if s, err = l.next(false); err != nil {
			return nil, err
		}

		switch {
		case s.marker.IsFrame():
			p, _ := processFromMarker(s.marker)

			return parseFrame(p, s.body)
		case s.marker == MarkerSOS:
			return nil, ErrPrematureScanHeader
		case s.marker == MarkerEOI:
			return nil, ErrPrematureEndOfImage
		}
	}
}
