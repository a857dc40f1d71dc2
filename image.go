package jpeg

import (
	"fmt"
	"image"
)

// Image renders the dequantized spectral model into pixels. Grayscale images
// become *image.Gray and YCbCr images *image.YCbCr, keeping the chroma
// subsampling of the frame.
func (s *Spectral) Image() (image.Image, error) {
	f, ok := s.Format()
	if !ok {
		return nil, fmt.Errorf("%d components at precision %d: %w", len(s.Planes), s.Precision, ErrUnsupported)
	}
	bounds := image.Rect(0, 0, s.Width, s.Height)

	switch f {
	case FormatY8:
		pix, stride := s.render(0)

		return &image.Gray{Pix: pix, Stride: stride, Rect: bounds}, nil
	case FormatYCbCr8:
		return s.ycbcr(bounds)
	}

	return nil, fmt.Errorf("%v: %w", f, ErrUnsupported)
}

func (s *Spectral) ycbcr(bounds image.Rectangle) (image.Image, error) {
	frame := s.Frame()
	y, _ := frame.Index(1)
	cb, _ := frame.Index(2)
	cr, _ := frame.Index(3)

	luma, blue, red := &s.Planes[y], &s.Planes[cb], &s.Planes[cr]
	if blue.H != 1 || blue.V != 1 || red.H != 1 || red.V != 1 {
		return nil, fmt.Errorf("chroma sampling %dx%d: %w", blue.H, blue.V, ErrUnsupported)
	}

	var ratio image.YCbCrSubsampleRatio
	switch [2]int{luma.H, luma.V} {
	case [2]int{1, 1}:
		ratio = image.YCbCrSubsampleRatio444
	case [2]int{2, 1}:
		ratio = image.YCbCrSubsampleRatio422
	case [2]int{2, 2}:
		ratio = image.YCbCrSubsampleRatio420
	case [2]int{1, 2}:
		ratio = image.YCbCrSubsampleRatio440
	case [2]int{4, 1}:
		ratio = image.YCbCrSubsampleRatio411
	case [2]int{4, 2}:
		ratio = image.YCbCrSubsampleRatio410
	default:
		return nil, fmt.Errorf("luma sampling %dx%d: %w", luma.H, luma.V, ErrUnsupported)
	}

	img := &image.YCbCr{SubsampleRatio: ratio, Rect: bounds}
	img.Y, img.YStride = s.render(y)
	img.Cb, img.CStride = s.render(cb)
	img.Cr, _ = s.render(cr)

	return img, nil
}

// render transforms every block of plane i into a sample buffer covering the
// whole block grid.
func (s *Spectral) render(i int) (pix []byte, stride int) {
	p := &s.Planes[i]
	stride = p.UnitsX * 8
	pix = make([]byte, stride*p.UnitsY*8)

	for by := 0; by < p.UnitsY; by++ {
		for bx := 0; bx < p.UnitsX; bx++ {
			inverseDCT(p.Block(bx, by), pix[by*8*stride+bx*8:], stride)
		}
	}

	return pix, stride
}
