package jpeg

import "fmt"

// lexer splits a JPEG byte stream into marker segments and the entropy-coded
// bytes that precede them.
type lexer struct {
	data []byte
	pos  int
}

// segment is one lexed marker segment.
type segment struct {
	marker Marker
	body   []byte
	// prefix holds the entropy-coded bytes before the marker, with
	// byte stuffing removed. It is only populated in entropy-coded mode.
	prefix []byte
}

// next reads the next marker segment. With ecs set, bytes before the marker are
// entropy-coded data: 0xFF 0x00 is a literal 0xFF and is kept in the prefix.
// Otherwise the marker prefix must come first.
func (l *lexer) next(ecs bool) (segment, error) {
	var s segment

	for {
		if l.pos >= len(l.data) {
			return s, ErrTruncatedMarkerSegmentType
		}

		b := l.data[l.pos]
		if b != 0xFF {
			if !ecs {
				return s, fmt.Errorf("byte 0x%02x at offset %d: %w", b, l.pos, ErrInvalidMarkerSegmentPrefix)
			}
			s.prefix = append(s.prefix, b)
			l.pos++

			continue
		}

		if l.pos+1 >= len(l.data) {
			return s, ErrTruncatedMarkerSegmentType
		}

		code := l.data[l.pos+1]
		switch code {
		case 0x00:
			if !ecs {
				return s, fmt.Errorf("stuffed byte at offset %d: %w", l.pos, ErrInvalidMarkerSegmentPrefix)
			}
			s.prefix = append(s.prefix, 0xFF)
			l.pos += 2

			continue
		case 0xFF:
			// Fill byte.
			l.pos++

			continue
		}

		s.marker = Marker(code)
		l.pos += 2

		break
	}

	if !s.marker.valid() {
		return s, fmt.Errorf("marker 0xFF%02X: %w", uint8(s.marker), ErrInvalidMarkerSegmentType)
	}
	if !s.marker.HasLength() {
		return s, nil
	}

	if l.pos+2 > len(l.data) {
		return s, fmt.Errorf("%v: %w", s.marker, ErrTruncatedMarkerSegmentHeader)
	}
	length := int(l.data[l.pos])<<8 | int(l.data[l.pos+1])
	if length < 2 {
		return s, fmt.Errorf("%v length %d: %w", s.marker, length, ErrInvalidMarkerSegmentLength)
	}
	if l.pos+length > len(l.data) {
		return s, fmt.Errorf("%v: %w", s.marker, ErrTruncatedMarkerSegmentBody)
	}

	s.body = l.data[l.pos+2 : l.pos+length]
	l.pos += length

	return s, nil
}
