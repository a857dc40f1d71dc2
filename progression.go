package jpeg

import "fmt"

// progression tracks, for every coefficient of every component, the lowest bit
// plane decoded so far. Unbounded marks a coefficient no scan has coded yet.
type progression struct {
	planes [][64]int
}

func newProgression(components int) *progression {
	p := &progression{planes: make([][64]int, components)}
	for i := range p.planes {
		for k := range p.planes[i] {
			p.planes[i][k] = Unbounded
		}
	}

	return p
}

// advance checks that scan continues the progression of each of its
// components and records the bits it codes.
func (p *progression) advance(scan *Scan) error {
	band, bits := scan.Band, scan.Bits

	for _, c := range scan.Components {
		plane := &p.planes[c.Index]
		if !band.DC() && plane[0] == Unbounded {
			return fmt.Errorf("component %d: AC band %d..<%d before DC: %w", c.Key, band.Lo, band.Hi, ErrInvalidSpectralSelectionProgression)
		}

		for k := band.Lo; k < band.Hi; k++ {
			switch {
			case bits.Initial() && plane[k] != Unbounded:
				return fmt.Errorf("component %d coefficient %d coded twice: %w", c.Key, k, ErrInvalidSpectralSelectionProgression)
			case !bits.Initial() && plane[k] != bits.Hi:
				return fmt.Errorf("component %d coefficient %d: refining bits %v: %w", c.Key, k, bits, ErrInvalidSuccessiveApproximationProgression)
			}
		}
		for k := band.Lo; k < band.Hi; k++ {
			plane[k] = bits.Lo
		}
	}

	return nil
}

// complete reports whether every coefficient of every component is fully coded.
func (p *progression) complete() bool {
	for i := range p.planes {
		for _, lo := range p.planes[i] {
			if lo != 0 {
				return false
			}
		}
	}

	return true
}
