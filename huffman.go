package jpeg

import "fmt"

// HuffmanClass distinguishes DC tables from AC tables.
type HuffmanClass uint8

const (
	ClassDC HuffmanClass = iota
	ClassAC
)

func (c HuffmanClass) String() string {
	if c == ClassDC {
		return "DC"
	}

	return "AC"
}

// HuffmanTable is the interchange form of a canonical Huffman table:
// for each codeword length 1..16, the symbols of that length in codeword order.
type HuffmanTable struct {
	Class   HuffmanClass
	Symbols [16][]byte
}

// counts returns the number of symbols of each length and their total.
func (t *HuffmanTable) counts() (counts [16]int, total int) {
	for l, symbols := range t.Symbols {
		counts[l] = len(symbols)
		total += len(symbols)
	}

	return counts, total
}

// huffmanEntry represents a single entry in the lookup table.
type huffmanEntry struct {
	symbol uint8
	length uint8
}

// HuffmanDecoder decodes one symbol from a 16-bit lookahead in constant time.
//
// The first n entries are indexed directly by the high byte of the lookahead and
// hold every codeword of length 8 or less, each replicated 256>>length times.
// The remaining entries hold the longer codewords, each replicated
// 1<<(16-length) times, and are indexed by the full lookahead with the direct
// region's n*256 codewords subtracted out.
type HuffmanDecoder struct {
	storage []huffmanEntry
	n       int
}

// Decoder builds the lookup table for t. It fails with ErrInvalidHuffmanTable
// if the lengths do not describe a tree of height 16 or less that leaves the
// all-ones codeword unassigned.
func (t *HuffmanTable) Decoder() (*HuffmanDecoder, error) {
	counts, total := t.counts()
	if total > 256 {
		return nil, fmt.Errorf("%d symbols: %w", total, ErrInvalidHuffmanTable)
	}

	// Track the number of unterminated nodes level by level.
	interior := 1
	for l, c := range counts {
		interior = 2*interior - c
		if interior <= 0 {
			return nil, fmt.Errorf("tree overfull at length %d: %w", l+1, ErrInvalidHuffmanTable)
		}
	}

	n, z := 0, 0
	for l := 0; l < 8; l++ {
		n += counts[l] << (7 - l)
	}
	for l := 8; l < 16; l++ {
		z += counts[l] << (15 - l)
	}

	d := &HuffmanDecoder{storage: make([]huffmanEntry, 0, n+z), n: n}
	for l, symbols := range t.Symbols {
		length := l + 1
		replicas := 1 << (16 - length)
		if length <= 8 {
			replicas = 256 >> length
		}
		for _, symbol := range symbols {
			e := huffmanEntry{symbol: symbol, length: uint8(length)}
			for r := 0; r < replicas; r++ {
				d.storage = append(d.storage, e)
			}
		}
	}

	return d, nil
}

// Lookup decodes the codeword at the start of the 16-bit lookahead u. It returns
// the symbol and the codeword length. Lookaheads that begin with no assigned
// codeword yield a zero symbol with length 16.
func (d *HuffmanDecoder) Lookup(u uint16) (symbol uint8, length int) {
	if first := int(u >> 8); first < d.n {
		e := d.storage[first]

		return e.symbol, int(e.length)
	}

	k := int(u) - d.n*255
	if k >= len(d.storage) {
		return 0, 16
	}
	e := d.storage[k]

	return e.symbol, int(e.length)
}

// huffmanSlot is one table record of a DHT segment.
type huffmanSlot struct {
	selector Selector
	table    HuffmanTable
}

// parseDHT decodes the Define Huffman Table segment body. It consists of
// repeated (class|selector, 16 counts, symbols) records.
func parseDHT(body []byte) ([]huffmanSlot, error) {
	var slots []huffmanSlot
	for len(body) > 0 {
		if len(body) < 17 {
			return nil, fmt.Errorf("DHT record of %d bytes: %w", len(body), ErrInvalidHuffmanTable)
		}

		class, code := body[0]>>4, body[0]&0x0F
		selector, ok := selectorFromCode(code)
		if !ok || class > 1 {
			return nil, fmt.Errorf("DHT target 0x%02x: %w", body[0], ErrInvalidHuffmanTarget)
		}

		table := HuffmanTable{Class: HuffmanClass(class)}
		values := body[17:]
		for l := 0; l < 16; l++ {
			c := int(body[1+l])
			if c > len(values) {
				return nil, fmt.Errorf("DHT symbols truncated: %w", ErrInvalidHuffmanTable)
			}
			table.Symbols[l] = append([]byte(nil), values[:c]...)
			values = values[c:]
		}

		slots = append(slots, huffmanSlot{selector: selector, table: table})
		body = values
	}

	return slots, nil
}

// appendDHT serializes tables as one DHT segment, marker included.
func appendDHT(dst []byte, slots []huffmanSlot) []byte {
	length := 2
	for _, s := range slots {
		_, total := s.table.counts()
		length += 17 + total
	}

	dst = appendMarkerHeader(dst, MarkerDHT, length)
	for _, s := range slots {
		dst = append(dst, byte(s.table.Class)<<4|byte(s.selector))
		for _, symbols := range s.table.Symbols {
			dst = append(dst, byte(len(symbols)))
		}
		for _, symbols := range s.table.Symbols {
			dst = append(dst, symbols...)
		}
	}

	return dst
}
