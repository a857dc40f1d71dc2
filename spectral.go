package jpeg

import "fmt"

// Plane is the block grid of one component. Coefficients are stored block by
// block in raster order, 64 per block in zig-zag order.
type Plane struct {
	Component
	// UnitsX and UnitsY are the grid dimensions in blocks. The grid covers
	// whole MCUs, so it may extend past the image edge.
	UnitsX, UnitsY int
	coefficients   []int32
}

// Block returns the 64 coefficients of the block at (x, y).
func (p *Plane) Block(x, y int) []int32 {
	i := (y*p.UnitsX + x) * 64

	return p.coefficients[i : i+64 : i+64]
}

// At returns coefficient k of the block at (x, y).
func (p *Plane) At(x, y, k int) int32 {
	return p.coefficients[(y*p.UnitsX+x)*64+k]
}

// Set stores coefficient k of the block at (x, y).
func (p *Plane) Set(x, y, k int, v int32) {
	p.coefficients[(y*p.UnitsX+x)*64+k] = v
}

// Coefficients returns the backing storage of the plane.
func (p *Plane) Coefficients() []int32 {
	return p.coefficients
}

// Spectral holds the DCT coefficients of every component of an image.
type Spectral struct {
	Width, Height int
	Precision     int
	Planes        []Plane
	// Quanta are the quantization tables referenced by the planes.
	Quanta [4]*QuantizationTable

	scaleH, scaleV int
}

// NewSpectral allocates a zeroed spectral model for the frame. A frame height
// of zero allocates empty planes until SetHeight is called.
func NewSpectral(f *Frame) *Spectral {
	s := &Spectral{
		Width:     f.Width,
		Precision: f.Precision,
		Planes:    make([]Plane, len(f.Components)),
	}
	s.scaleH, s.scaleV = f.Scale()

	mx, _ := s.MCUs()
	for i, c := range f.Components {
		s.Planes[i] = Plane{Component: c, UnitsX: mx * c.H}
	}
	s.SetHeight(f.Height)

	return s
}

// Frame returns the progressive frame header describing s.
func (s *Spectral) Frame() *Frame {
	f := &Frame{
		Process:   Process{Kind: Progressive, Coding: Huffman},
		Precision: s.Precision,
		Width:     s.Width,
		Height:    s.Height,
	}
	for _, p := range s.Planes {
		f.Components = append(f.Components, p.Component)
	}

	return f
}

// Format identifies the component layout of s.
func (s *Spectral) Format() (Format, bool) {
	keys := make([]uint8, len(s.Planes))
	for i, p := range s.Planes {
		keys[i] = p.Key
	}

	return RecognizeFormat(keys, s.Precision)
}

// MCUs returns the dimensions of the image in MCUs.
func (s *Spectral) MCUs() (x, y int) {
	return ceilDiv(s.Width, 8*s.scaleH), ceilDiv(s.Height, 8*s.scaleV)
}

// extent returns the block dimensions of plane i in a single-component scan,
// which only covers blocks that hold image samples.
func (s *Spectral) extent(i int) (x, y int) {
	p := &s.Planes[i]

	return ceilDiv(ceilDiv(s.Width*p.H, s.scaleH), 8), ceilDiv(ceilDiv(s.Height*p.V, s.scaleV), 8)
}

// SetHeight resizes every plane for a new image height, keeping the
// coefficients of the rows that remain.
func (s *Spectral) SetHeight(height int) {
	s.Height = height

	_, my := s.MCUs()
	for i := range s.Planes {
		p := &s.Planes[i]
		p.UnitsY = my * p.V

		n := p.UnitsX * p.UnitsY * 64
		switch old := len(p.coefficients); {
		case n <= old:
			p.coefficients = p.coefficients[:n]
		case n <= cap(p.coefficients):
			p.coefficients = p.coefficients[:n]
			clear(p.coefficients[old:])
		default:
			grown := make([]int32, n)
			copy(grown, p.coefficients)
			p.coefficients = grown
		}
	}
}

// Dequantize multiplies the coefficients of plane i within band by the
// matching entries of q.
func (s *Spectral) Dequantize(i int, band Band, q *QuantizationTable) {
	p := &s.Planes[i]
	for b := 0; b < len(p.coefficients); b += 64 {
		block := p.coefficients[b : b+64 : b+64]
		for k := band.Lo; k < band.Hi; k++ {
			block[k] *= int32(q.Values[k])
		}
	}
}

// Quantize divides every coefficient by its quantization step, rounding to
// the nearest integer. It is the inverse of dequantization.
func (s *Spectral) Quantize() error {
	for i := range s.Planes {
		p := &s.Planes[i]
		q := s.Quanta[p.Quantization]
		if q == nil {
			return fmt.Errorf("component %d %v: %w", p.Key, p.Quantization, ErrUndefinedScanQuantizationSelector)
		}

		for b := 0; b < len(p.coefficients); b += 64 {
			block := p.coefficients[b : b+64 : b+64]
			for k, v := range block {
				step := int32(q.Values[k])
				if step <= 1 {
					continue
				}
				if v < 0 {
					block[k] = -((-v + step/2) / step)
				} else {
					block[k] = (v + step/2) / step
				}
			}
		}
	}

	return nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// blockRef addresses one block visited by a scan: the position of its
// component within the scan, and its block coordinates in the plane.
type blockRef struct {
	c, x, y int
}

// mcuCount returns the number of MCUs coded by the scan. A single-component
// scan codes one block per MCU.
func (s *Spectral) mcuCount(scan *Scan) int {
	if len(scan.Components) == 1 {
		ex, ey := s.extent(scan.Components[0].Index)

		return ex * ey
	}
	mx, my := s.MCUs()

	return mx * my
}

// mcuBlocks appends the blocks of MCU m of the scan to dst, in coding order.
func (s *Spectral) mcuBlocks(scan *Scan, m int, dst []blockRef) []blockRef {
	if len(scan.Components) == 1 {
		ex, _ := s.extent(scan.Components[0].Index)

		return append(dst, blockRef{c: 0, x: m % ex, y: m / ex})
	}

	mx, _ := s.MCUs()
	x, y := m%mx, m/mx
	for c, sc := range scan.Components {
		for v := 0; v < sc.V; v++ {
			for h := 0; h < sc.H; h++ {
				dst = append(dst, blockRef{c: c, x: x*sc.H + h, y: y*sc.V + v})
			}
		}
	}

	return dst
}

// intervals returns the number of restart intervals a scan is split into.
func (s *Spectral) intervals(scan *Scan, restart int) (count, size int) {
	total := s.mcuCount(scan)
	if restart <= 0 || restart >= total {
		return 1, total
	}

	return ceilDiv(total, restart), restart
}
