package jpeg

import (
	"bytes"
	"fmt"
	"testing"
)

// idctBlockAC has three low-frequency AC coefficients, in natural order.
var idctBlockAC = [64]int32{
	0, 20, 0, 0, 0, 0, 0, 0,
	-30, 0, 15, 0, 0, 0, 0, 0,
}

// idctPixelsAC is the expected output for idctBlockAC.
var idctPixelsAC = [64]byte{
	130, 127, 123, 120, 119, 119, 121, 123,
	130, 128, 124, 121, 120, 120, 122, 123,
	130, 129, 126, 124, 122, 122, 123, 124,
	131, 130, 129, 127, 126, 125, 124, 124,
	132, 132, 131, 130, 129, 127, 126, 125,
	132, 133, 134, 134, 132, 130, 127, 126,
	133, 134, 136, 136, 135, 132, 128, 126,
	133, 135, 137, 137, 136, 133, 129, 126,
}

// zigzag reorders a natural-order block into zig-zag order.
func zigzag(natural *[64]int32) []int32 {
	block := make([]int32, 64)
	for k, n := range unzigzag {
		block[k] = natural[n]
	}

	return block
}

func blockString(pix []byte, stride int) string {
	var buf bytes.Buffer
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			fmt.Fprintf(&buf, "%4d", pix[r*stride+c])
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

func TestUnzigzagPermutation(t *testing.T) {
	var seen [64]bool
	for _, n := range unzigzag {
		if seen[n] {
			t.Fatalf("natural index %d appears twice", n)
		}
		seen[n] = true
	}
}

func TestInverseDCT(t *testing.T) {
	tests := []struct {
		name    string
		natural [64]int32
		want    func(r, c int) byte
	}{
		{"DC only", [64]int32{512}, func(int, int) byte { return 192 }},
		{"clamped low", [64]int32{-2000}, func(int, int) byte { return 0 }},
		{"clamped high", [64]int32{2000}, func(int, int) byte { return 255 }},
		{"AC", idctBlockAC, func(r, c int) byte { return idctPixelsAC[r*8+c] }},
	}

	for _, tt := range tests {
		for _, stride := range []int{8, 16} {
			t.Run(fmt.Sprintf("%s stride %d", tt.name, stride), func(t *testing.T) {
				out := make([]byte, 7*stride+8)
				inverseDCT(zigzag(&tt.natural), out, stride)

				for r := 0; r < 8; r++ {
					for c := 0; c < 8; c++ {
						if got, want := out[r*stride+c], tt.want(r, c); got != want {
							t.Fatalf("row %d col %d = %d, want %d\n%s", r, c, got, want, blockString(out, stride))
						}
					}
				}
			})
		}
	}
}

func BenchmarkInverseDCT(b *testing.B) {
	block := zigzag(&idctBlockAC)
	var out [64]byte

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		inverseDCT(block, out[:], 8)
	}
}
