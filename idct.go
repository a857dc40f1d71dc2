package jpeg

// Fixed-point cosine factors, 2048*sqrt(2)*cos(k*pi/16).
const (
	c1 = 2841
	c2 = 2676
	c3 = 2408
	c5 = 1609
	c6 = 1108
	c7 = 565
)

// unzigzag maps zig-zag index to natural (row-major) index.
var unzigzag = [64]uint8{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

func clampSample(v int32) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}

	return uint8(v)
}

// inverseDCT transforms a dequantized block in zig-zag order into 8x8 level
// shifted 8-bit samples written to dst with the given stride.
func inverseDCT(block []int32, dst []byte, stride int) {
	var b [64]int32
	for k, v := range block[:64] {
		b[unzigzag[k]] = v
	}

	for row := 0; row < 64; row += 8 {
		idctRow((*[8]int32)(b[row : row+8]))
	}
	for col := 0; col < 8; col++ {
		idctColumn(&b, col, dst[col:], stride)
	}
}

// idctRow transforms one row in place, leaving it scaled by 2^8.
func idctRow(r *[8]int32) {
	x1, x2, x3, x4 := r[4]<<11, r[6], r[2], r[1]
	x5, x6, x7 := r[7], r[5], r[3]
	if x1|x2|x3|x4|x5|x6|x7 == 0 {
		dc := r[0] << 3
		for i := range r {
			r[i] = dc
		}

		return
	}
	x0 := r[0]<<11 + 128

	x8 := c7 * (x4 + x5)
	x4 = x8 + (c1-c7)*x4
	x5 = x8 - (c1+c7)*x5
	x8 = c3 * (x6 + x7)
	x6 = x8 - (c3-c5)*x6
	x7 = x8 - (c3+c5)*x7

	x8 = x0 + x1
	x0 -= x1
	x1 = c6 * (x3 + x2)
	x2 = x1 - (c2+c6)*x2
	x3 = x1 + (c2-c6)*x3

	x1 = x4 + x6
	x4 -= x6
	x6 = x5 + x7
	x5 -= x7

	x7 = x8 + x3
	x8 -= x3
	x3 = x0 + x2
	x0 -= x2

	x2 = (181*(x4+x5) + 128) >> 8
	x4 = (181*(x4-x5) + 128) >> 8

	r[0] = (x7 + x1) >> 8
	r[1] = (x3 + x2) >> 8
	r[2] = (x0 + x4) >> 8
	r[3] = (x8 + x6) >> 8
	r[4] = (x8 - x6) >> 8
	r[5] = (x0 - x4) >> 8
	r[6] = (x3 - x2) >> 8
	r[7] = (x7 - x1) >> 8
}

// idctColumn transforms column col of b and writes the samples.
func idctColumn(b *[64]int32, col int, dst []byte, stride int) {
	x1, x2, x3, x4 := b[col+32]<<8, b[col+48], b[col+16], b[col+8]
	x5, x6, x7 := b[col+56], b[col+40], b[col+24]
	if x1|x2|x3|x4|x5|x6|x7 == 0 {
		dc := clampSample((b[col]+32)>>6 + 128)
		for i := 0; i < 8; i++ {
			dst[i*stride] = dc
		}

		return
	}
	x0 := b[col]<<8 + 8192

	x8 := c7*(x4+x5) + 4
	x4 = (x8 + (c1-c7)*x4) >> 3
	x5 = (x8 - (c1+c7)*x5) >> 3
	x8 = c3*(x6+x7) + 4
	x6 = (x8 - (c3-c5)*x6) >> 3
	x7 = (x8 - (c3+c5)*x7) >> 3

	x8 = x0 + x1
	x0 -= x1
	x1 = c6*(x3+x2) + 4
	x2 = (x1 - (c2+c6)*x2) >> 3
	x3 = (x1 + (c2-c6)*x3) >> 3

	x1 = x4 + x6
	x4 -= x6
	x6 = x5 + x7
	x5 -= x7

	x7 = x8 + x3
	x8 -= x3
	x3 = x0 + x2
	x0 -= x2

	x2 = (181*(x4+x5) + 128) >> 8
	x4 = (181*(x4-x5) + 128) >> 8

	out := [8]int32{x7 + x1, x3 + x2, x0 + x4, x8 + x6, x8 - x6, x0 - x4, x3 - x2, x7 - x1}
	for i, v := range out {
		dst[i*stride] = clampSample(v>>14 + 128)
	}
}
