package jpeg

import (
	"fmt"
	"math"
)

// Unbounded is the upper bit of an initial (first-pass) successive approximation range.
const Unbounded = math.MaxInt

// Band is a half-open range [Lo, Hi) of zig-zag coefficient indices.
type Band struct {
	Lo, Hi int
}

// DC reports whether the band is the DC coefficient alone.
func (b Band) DC() bool {
	return b.Lo == 0
}

// Bits is a half-open range [Lo, Hi) of coefficient bit planes.
// Hi is Unbounded for the first pass over a band.
type Bits struct {
	Lo, Hi int
}

// Initial reports whether the range is a first pass.
func (b Bits) Initial() bool {
	return b.Hi == Unbounded
}

func (b Bits) String() string {
	if b.Initial() {
		return fmt.Sprintf("%d..", b.Lo)
	}

	return fmt.Sprintf("%d..<%d", b.Lo, b.Hi)
}

// ScanComponent is one component of a scan, resolved against the frame.
type ScanComponent struct {
	Component
	// Index is the position of the component in the frame.
	Index  int
	DC, AC Selector
}

// Scan is a parsed and validated scan header.
type Scan struct {
	Band       Band
	Bits       Bits
	Components []ScanComponent
}

// parseScan decodes a SOS segment body and validates it against f.
func parseScan(f *Frame, body []byte) (*Scan, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("empty scan header: %w", ErrInvalidSegmentBody)
	}

	n := int(body[0])
	if n < 1 || n > 4 {
		return nil, fmt.Errorf("%d components: %w", n, ErrInvalidScanComponentCount)
	}
	if len(body) != 4+2*n {
		return nil, fmt.Errorf("scan header of %d bytes for %d components: %w", len(body), n, ErrInvalidSegmentBody)
	}

	s := &Scan{}
	for i := 0; i < n; i++ {
		key, code := body[1+2*i], body[2+2*i]
		dc, okDC := selectorFromCode(code >> 4)
		ac, okAC := selectorFromCode(code & 0x0F)
		if !okDC || !okAC {
			return nil, fmt.Errorf("component %d selectors 0x%02x: %w", key, code, ErrInvalidScanHuffmanSelector)
		}

		c, err := f.scanComponent(key)
		if err != nil {
			return nil, err
		}
		c.DC, c.AC = dc, ac
		s.Components = append(s.Components, c)
	}

	tail := body[1+2*n:]
	s.Band = Band{Lo: int(tail[0]), Hi: int(tail[1]) + 1}
	s.Bits = Bits{Lo: int(tail[2] & 0x0F), Hi: Unbounded}
	if ah := int(tail[2] >> 4); ah != 0 {
		s.Bits.Hi = ah
	}

	if err := s.validate(f); err != nil {
		return nil, err
	}

	return s, nil
}

// scanComponent resolves a scan component key against the frame.
func (f *Frame) scanComponent(key uint8) (ScanComponent, error) {
	i, ok := f.Index(key)
	if !ok {
		return ScanComponent{}, fmt.Errorf("component %d: %w", key, ErrInvalidScanComponentIndex)
	}

	return ScanComponent{Component: f.Components[i], Index: i}, nil
}

// validate checks the scan against the frame and its coding process.
func (s *Scan) validate(f *Frame) error {
	n := len(s.Components)
	if n < 1 || n > 4 {
		return fmt.Errorf("%d components: %w", n, ErrInvalidScanComponentCount)
	}

	volume := 0
	seen := make(map[uint8]bool, n)
	for _, c := range s.Components {
		if seen[c.Key] {
			return fmt.Errorf("component %d: %w", c.Key, ErrDuplicateScanComponentIndex)
		}
		seen[c.Key] = true

		if f.Process.Kind == Baseline && (c.DC > Slot1 || c.AC > Slot1) {
			return fmt.Errorf("component %d selectors %v/%v for %v: %w", c.Key, c.DC, c.AC, f.Process, ErrInvalidScanHuffmanSelector)
		}
		volume += c.H * c.V
	}
	// A single-component scan is one block per unit regardless of sampling.
	if n > 1 && volume > 10 {
		return fmt.Errorf("sampling volume %d: %w", volume, ErrInvalidScanSamplingVolume)
	}

	switch f.Process.Kind {
	case Baseline, Extended:
		if s.Band != (Band{Lo: 0, Hi: 64}) {
			return fmt.Errorf("band %d..<%d for %v: %w", s.Band.Lo, s.Band.Hi, f.Process, ErrInvalidSpectralSelection)
		}
		if s.Bits != (Bits{Lo: 0, Hi: Unbounded}) {
			return fmt.Errorf("bits %v for %v: %w", s.Bits, f.Process, ErrInvalidSuccessiveApproximation)
		}
	case Progressive:
		if s.Band.Lo >= s.Band.Hi || s.Band.Hi > 64 {
			return fmt.Errorf("band %d..<%d: %w", s.Band.Lo, s.Band.Hi, ErrInvalidSpectralSelection)
		}
		if s.Band.DC() {
			if s.Band.Hi != 1 {
				return fmt.Errorf("band %d..<%d mixes DC and AC: %w", s.Band.Lo, s.Band.Hi, ErrInvalidSpectralSelection)
			}
		} else if n != 1 {
			return fmt.Errorf("band %d..<%d with %d components: %w", s.Band.Lo, s.Band.Hi, n, ErrInvalidProgressiveSubset)
		}

		if s.Bits.Lo > 13 || (!s.Bits.Initial() && s.Bits.Hi != s.Bits.Lo+1) {
			return fmt.Errorf("bits %v: %w", s.Bits, ErrInvalidSuccessiveApproximation)
		}
	}

	return nil
}

// appendSOS serializes the scan header, marker included.
func (s *Scan) appendSOS(dst []byte) []byte {
	dst = appendMarkerHeader(dst, MarkerSOS, 6+2*len(s.Components))
	dst = append(dst, byte(len(s.Components)))
	for _, c := range s.Components {
		dst = append(dst, c.Key, byte(c.DC)<<4|byte(c.AC))
	}

	ah := 0
	if !s.Bits.Initial() {
		ah = s.Bits.Hi
	}

	return append(dst, byte(s.Band.Lo), byte(s.Band.Hi-1), byte(ah<<4|s.Bits.Lo))
}
