package jpeg

import (
	"errors"
	"math/rand"
	"testing"
)

// standardLuminanceDC is the example DC table from Annex K of the JPEG standard.
var standardLuminanceDC = HuffmanTable{
	Class: ClassDC,
	Symbols: [16][]byte{
		1: {0},
		2: {1, 2, 3, 4, 5},
		3: {6},
		4: {7},
		5: {8},
		6: {9},
		7: {10},
		8: {11},
	},
}

func TestHuffmanDecoderLookup(t *testing.T) {
	d, err := standardLuminanceDC.Decoder()
	if err != nil {
		t.Fatalf("Decoder() failed: %v", err)
	}

	tests := []struct {
		code   uint16
		length int
		symbol uint8
	}{
		{0b00, 2, 0},
		{0b010, 3, 1},
		{0b110, 3, 5},
		{0b1110, 4, 6},
		{0b1111_1111_0, 9, 11},
	}

	for _, tt := range tests {
		u := tt.code<<(16-tt.length) | 0xFFFF>>tt.length
		symbol, length := d.Lookup(u)
		if symbol != tt.symbol || length != tt.length {
			t.Errorf("Lookup(%016b) = (%d, %d), want (%d, %d)", u, symbol, length, tt.symbol, tt.length)
		}
	}

	// The all-ones prefix has no codeword.
	if _, length := d.Lookup(0xFFFF); length != 16 {
		t.Errorf("Lookup(ffff) length = %d, want 16", length)
	}
}

func TestHuffmanDecoderLongCodes(t *testing.T) {
	table := HuffmanTable{Class: ClassAC}
	table.Symbols[0] = []byte{0x01}
	table.Symbols[15] = []byte{0x10, 0x20, 0x30}

	d, err := table.Decoder()
	if err != nil {
		t.Fatalf("Decoder() failed: %v", err)
	}

	if s, l := d.Lookup(0x0000); s != 0x01 || l != 1 {
		t.Errorf("Lookup(0000) = (%x, %d), want (1, 1)", s, l)
	}
	for i, want := range []uint8{0x10, 0x20, 0x30} {
		u := uint16(0x8000 + i)
		if s, l := d.Lookup(u); s != want || l != 16 {
			t.Errorf("Lookup(%04x) = (%x, %d), want (%x, 16)", u, s, l, want)
		}
	}
}

func TestHuffmanDecoderInvalid(t *testing.T) {
	tests := []struct {
		name  string
		table HuffmanTable
	}{
		{"complete at length 1", HuffmanTable{Symbols: [16][]byte{0: {0, 1}}}},
		{"overfull", HuffmanTable{Symbols: [16][]byte{1: {0, 1, 2, 3, 4}}}},
		{"all-ones assigned", HuffmanTable{Symbols: [16][]byte{0: {0}, 1: {1}, 2: {2}, 3: {3}, 4: {4}, 5: {5}, 6: {6}, 7: {7}, 8: {8}, 9: {9}, 10: {10}, 11: {11}, 12: {12}, 13: {13}, 14: {14}, 15: {15, 16}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.table.Decoder()
			if !errors.Is(err, ErrInvalidHuffmanTable) {
				t.Fatalf("Decoder() error = %v, want ErrInvalidHuffmanTable", err)
			}
			if !errors.Is(err, ErrParsing) {
				t.Fatalf("Decoder() error = %v is not a parsing error", err)
			}
		})
	}
}

func TestParseDHT(t *testing.T) {
	body := appendDHT(nil, []huffmanSlot{
		{selector: Slot1, table: standardLuminanceDC},
	})[4:]

	slots, err := parseDHT(body)
	if err != nil {
		t.Fatalf("parseDHT failed: %v", err)
	}
	if len(slots) != 1 || slots[0].selector != Slot1 || slots[0].table.Class != ClassDC {
		t.Fatalf("parseDHT = %+v", slots)
	}
	if _, total := slots[0].table.counts(); total != 12 {
		t.Errorf("parsed %d symbols, want 12", total)
	}

	if _, err := parseDHT([]byte{0x24}); !errors.Is(err, ErrInvalidHuffmanTable) {
		t.Errorf("short record: error = %v", err)
	}

	bad := append([]byte{0x25}, body[1:]...)
	if _, err := parseDHT(bad); !errors.Is(err, ErrInvalidHuffmanTarget) {
		t.Errorf("class 2: error = %v, want ErrInvalidHuffmanTarget", err)
	}
}

// maxLength returns the longest codeword length of t.
func maxLength(t *HuffmanTable) int {
	for l := 15; l >= 0; l-- {
		if len(t.Symbols[l]) > 0 {
			return l + 1
		}
	}

	return 0
}

func TestBuildHuffmanEncoder(t *testing.T) {
	fibonacci := [256]int{}
	a, b := 1, 1
	for s := 0; s < 30; s++ {
		fibonacci[s] = a
		a, b = b, a+b
	}

	uniform := [256]int{}
	for s := range uniform {
		uniform[s] = 7
	}

	tests := []struct {
		name        string
		frequencies [256]int
		symbols     int
	}{
		{"one symbol", [256]int{42: 9}, 1},
		{"two symbols", [256]int{1: 1, 2: 1000}, 2},
		{"fibonacci", fibonacci, 30},
		{"uniform 256", uniform, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := BuildHuffmanEncoder(ClassAC, &tt.frequencies)
			table := e.Table()

			if _, total := table.counts(); total != tt.symbols {
				t.Fatalf("table has %d symbols, want %d", total, tt.symbols)
			}
			if l := maxLength(table); l > 16 {
				t.Fatalf("longest codeword %d bits", l)
			}

			d, err := table.Decoder()
			if err != nil {
				t.Fatalf("built table rejected: %v", err)
			}

			// Every codeword decodes to its own symbol.
			for s, f := range tt.frequencies {
				if f == 0 {
					continue
				}
				bits, length := e.Codeword(uint8(s))
				u := bits | 0xFFFF>>length
				got, n := d.Lookup(u)
				if got != uint8(s) || n != length {
					t.Fatalf("symbol %d: Lookup = (%d, %d), want (%d, %d)", s, got, n, s, length)
				}
			}
		})
	}
}

func TestBuildHuffmanEncoderEmpty(t *testing.T) {
	e := BuildHuffmanEncoder(ClassDC, &[256]int{})
	if _, total := e.Table().counts(); total != 0 {
		t.Fatalf("table has %d symbols, want 0", total)
	}
}

func TestHuffmanEncoderFrequencyOrder(t *testing.T) {
	var frequencies [256]int
	for s := 0; s < 12; s++ {
		frequencies[s] = 1 << (12 - s)
	}

	e := BuildHuffmanEncoder(ClassDC, &frequencies)
	prev := 0
	for s := 0; s < 12; s++ {
		_, length := e.Codeword(uint8(s))
		if length < prev {
			t.Fatalf("symbol %d: more frequent symbol has longer code (%d < %d)", s, length, prev)
		}
		prev = length
	}
}

func TestHuffmanEncoderAbsentSymbol(t *testing.T) {
	e := BuildHuffmanEncoder(ClassAC, &[256]int{3: 1})

	defer func() {
		if recover() == nil {
			t.Fatal("Codeword of an absent symbol did not panic")
		}
	}()
	e.Codeword(4)
}

// Random frequency tables always yield valid, height-limited, prefix-free codes.
func TestBuildHuffmanEncoderRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 300; iter++ {
		var frequencies [256]int
		for n := 1 + rng.Intn(256); n > 0; n-- {
			// Exponentially distributed weights force deep trees.
			frequencies[rng.Intn(256)] = 1 << rng.Intn(30)
		}

		e := BuildHuffmanEncoder(ClassAC, &frequencies)
		if l := maxLength(e.Table()); l > 16 {
			t.Fatalf("iteration %d: longest codeword %d bits", iter, l)
		}

		d, err := e.Table().Decoder()
		if err != nil {
			t.Fatalf("iteration %d: built table rejected: %v", iter, err)
		}
		for s, f := range frequencies {
			if f == 0 {
				continue
			}
			bits, length := e.Codeword(uint8(s))
			if got, n := d.Lookup(bits | 0xFFFF>>length); got != uint8(s) || n != length {
				t.Fatalf("iteration %d symbol %d: Lookup = (%d, %d)", iter, s, got, n)
			}
		}
	}
}

// Random valid leaf counts always build, and every canonical codeword decodes
// to its own symbol and length whatever bits follow it.
func TestHuffmanDecoderRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for iter := 0; iter < 500; iter++ {
		symbols := rng.Perm(256)
		table := HuffmanTable{Class: ClassAC}

		used, interior := 0, 1
		for l := range table.Symbols {
			interior *= 2
			// Keep one node open so the all-ones codeword stays unassigned.
			limit := min(interior-1, 256-used)
			c := 0
			if limit > 0 && rng.Intn(3) > 0 {
				c = rng.Intn(limit + 1)
			}
			for _, s := range symbols[used : used+c] {
				table.Symbols[l] = append(table.Symbols[l], byte(s))
			}
			used += c
			interior -= c
		}

		d, err := table.Decoder()
		if err != nil {
			t.Fatalf("iteration %d: valid table rejected: %v", iter, err)
		}

		code, end := 0, 0
		for l, level := range table.Symbols {
			length := l + 1
			for _, s := range level {
				start := code << (16 - length)
				if start < end {
					t.Fatalf("iteration %d: codeword %0*b overlaps a shorter one", iter, length, code)
				}
				end = start + 1<<(16-length)

				tail := uint16(rng.Intn(1 << (16 - length)))
				if got, n := d.Lookup(uint16(start) | tail); got != s || n != length {
					t.Fatalf("iteration %d: codeword %0*b decodes to (%d, %d), want (%d, %d)",
						iter, length, code, got, n, s, length)
				}
				code++
			}
			code <<= 1
		}
		if end > 0xFFFF {
			t.Fatalf("iteration %d: the all-ones codeword is assigned", iter)
		}
	}
}
