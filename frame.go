package jpeg

import "fmt"

// ProcessKind is the coding process family declared by a frame header.
type ProcessKind uint8

const (
	Baseline ProcessKind = iota
	Extended
	Progressive
	Lossless
)

// Coding is the entropy coding method of a process.
type Coding uint8

const (
	Huffman Coding = iota
	Arithmetic
)

// Process is the coding process declared by a SOFn marker.
type Process struct {
	Kind         ProcessKind
	Coding       Coding
	Differential bool
}

// processFromMarker maps a SOFn marker to its coding process.
func processFromMarker(m Marker) (Process, bool) {
	if !m.IsFrame() {
		return Process{}, false
	}

	n := int(m - MarkerSOF0)
	p := Process{
		Coding:       Coding(n >> 3),
		Differential: n&4 != 0,
	}
	// Codes 4, 8 and 12 are DHT, JPG and DAC, so only SOF0 is baseline.
	switch n & 3 {
	case 0:
		p.Kind = Baseline
	case 1:
		p.Kind = Extended
	case 2:
		p.Kind = Progressive
	case 3:
		p.Kind = Lossless
	}

	return p, true
}

// marker returns the SOFn marker declaring p.
func (p Process) marker() Marker {
	n := 0
	switch p.Kind {
	case Extended:
		n = 1
	case Progressive:
		n = 2
	case Lossless:
		n = 3
	}
	if p.Differential {
		n |= 4
	}
	if p.Coding == Arithmetic {
		n |= 8
	}

	return MarkerSOF0 + Marker(n)
}

func (p Process) String() string {
	var s string
	switch p.Kind {
	case Baseline:
		s = "baseline"
	case Extended:
		s = "extended"
	case Progressive:
		s = "progressive"
	case Lossless:
		s = "lossless"
	}
	if p.Differential {
		s = "differential " + s
	}
	if p.Coding == Arithmetic {
		return s + " (arithmetic)"
	}

	return s + " (huffman)"
}

// Component is one image component declared by a frame header.
type Component struct {
	Key uint8
	// H and V are the horizontal and vertical sampling factors (1..4).
	H, V         int
	Quantization Selector
}

// Frame is a parsed and validated frame header.
type Frame struct {
	Process   Process
	Precision int
	Width     int
	// Height is zero until defined by a DNL segment when the frame defers it.
	Height     int
	Components []Component
}

// Index returns the position of the component with the given key.
func (f *Frame) Index(key uint8) (int, bool) {
	for i, c := range f.Components {
		if c.Key == key {
			return i, true
		}
	}

	return 0, false
}

// Scale returns the largest horizontal and vertical sampling factors.
func (f *Frame) Scale() (h, v int) {
	h, v = 1, 1
	for _, c := range f.Components {
		h = max(h, c.H)
		v = max(v, c.V)
	}

	return h, v
}

// parseFrame decodes and validates a SOFn segment body.
func parseFrame(p Process, body []byte) (*Frame, error) {
	if len(body) < 6 {
		return nil, fmt.Errorf("frame header of %d bytes: %w", len(body), ErrInvalidSegmentBody)
	}

	f := &Frame{
		Process:   p,
		Precision: int(body[0]),
		Height:    int(body[1])<<8 | int(body[2]),
		Width:     int(body[3])<<8 | int(body[4]),
	}

	n := int(body[5])
	if len(body) != 6+3*n {
		return nil, fmt.Errorf("frame header of %d bytes for %d components: %w", len(body), n, ErrInvalidSegmentBody)
	}

	for i := 0; i < n; i++ {
		c := body[6+3*i:]
		f.Components = append(f.Components, Component{
			Key:          c[0],
			H:            int(c[1] >> 4),
			V:            int(c[1] & 0x0F),
			Quantization: Selector(c[2]),
		})
	}

	if err := f.validate(); err != nil {
		return nil, err
	}

	return f, nil
}

// validate checks the frame fields against the process in effect.
func (f *Frame) validate() error {
	switch f.Process.Kind {
	case Baseline, Extended:
		if f.Precision != 8 {
			return fmt.Errorf("precision %d for %v: %w", f.Precision, f.Process, ErrInvalidFramePrecision)
		}
	case Progressive:
		if f.Precision != 8 && f.Precision != 12 {
			return fmt.Errorf("precision %d for %v: %w", f.Precision, f.Process, ErrInvalidFramePrecision)
		}
	case Lossless:
		if f.Precision < 2 || f.Precision > 16 {
			return fmt.Errorf("precision %d for %v: %w", f.Precision, f.Process, ErrInvalidFramePrecision)
		}
	}

	if f.Width <= 0 || f.Width > 0xFFFF {
		return fmt.Errorf("width %d: %w", f.Width, ErrInvalidFrameWidth)
	}
	if f.Height < 0 || f.Height > 0xFFFF {
		return fmt.Errorf("height %d: %w", f.Height, ErrInvalidFrameHeight)
	}

	n := len(f.Components)
	limit := 255
	if f.Process.Kind == Progressive {
		limit = 4
	}
	if n < 1 || n > limit {
		return fmt.Errorf("%d components for %v: %w", n, f.Process, ErrInvalidFrameComponentCount)
	}

	quanta := Selector(3)
	if f.Process.Kind == Baseline {
		quanta = 1
	}

	seen := make(map[uint8]bool, n)
	for _, c := range f.Components {
		if c.H < 1 || c.H > 4 || c.V < 1 || c.V > 4 {
			return fmt.Errorf("component %d sampling %dx%d: %w", c.Key, c.H, c.V, ErrInvalidFrameComponentSamplingFactor)
		}
		if c.Quantization > quanta {
			return fmt.Errorf("component %d quantization selector %d: %w", c.Key, c.Quantization, ErrInvalidFrameQuantizationSelector)
		}
		if seen[c.Key] {
			return fmt.Errorf("component %d: %w", c.Key, ErrDuplicateFrameComponentIndex)
		}
		seen[c.Key] = true
	}

	return nil
}

// appendSOF serializes the frame header, marker included.
func (f *Frame) appendSOF(dst []byte) []byte {
	dst = appendMarkerHeader(dst, f.Process.marker(), 8+3*len(f.Components))
	dst = append(dst,
		byte(f.Precision),
		byte(f.Height>>8), byte(f.Height),
		byte(f.Width>>8), byte(f.Width),
		byte(len(f.Components)),
	)
	for _, c := range f.Components {
		dst = append(dst, c.Key, byte(c.H<<4|c.V), byte(c.Quantization))
	}

	return dst
}

// parseDNL decodes a Define Number of Lines segment body.
func parseDNL(body []byte) (int, error) {
	if len(body) != 2 {
		return 0, fmt.Errorf("DNL of %d bytes: %w", len(body), ErrInvalidSegmentBody)
	}

	height := int(body[0])<<8 | int(body[1])
	if height == 0 {
		return 0, fmt.Errorf("DNL height 0: %w", ErrInvalidFrameHeight)
	}

	return height, nil
}

// appendDNL serializes a Define Number of Lines segment.
func appendDNL(dst []byte, height int) []byte {
	dst = appendMarkerHeader(dst, MarkerDNL, 4)

	return append(dst, byte(height>>8), byte(height))
}

// parseDRI decodes a Define Restart Interval segment body.
func parseDRI(body []byte) (int, error) {
	if len(body) != 2 {
		return 0, fmt.Errorf("DRI of %d bytes: %w", len(body), ErrInvalidSegmentBody)
	}

	return int(body[0])<<8 | int(body[1]), nil
}

// appendDRI serializes a Define Restart Interval segment.
func appendDRI(dst []byte, interval int) []byte {
	dst = appendMarkerHeader(dst, MarkerDRI, 4)

	return append(dst, byte(interval>>8), byte(interval))
}
