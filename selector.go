package jpeg

import "fmt"

// Selector names one of the four table slots shared by Huffman and quantization tables.
type Selector uint8

// Table slots.
const (
	Slot0 Selector = iota
	Slot1
	Slot2
	Slot3
)

// selectorFromCode converts a wire-format table destination code.
func selectorFromCode(code uint8) (Selector, bool) {
	if code > 3 {
		return 0, false
	}

	return Selector(code), true
}

func (s Selector) String() string {
	return fmt.Sprintf("slot%d", uint8(s))
}
