package jpeg

import "fmt"

// Bitstream handling

// Bitstream is a packed, MSB-first bit buffer stored as 16-bit atoms.
// All bits at and beyond Count read as 1, so a reader can always peek a full
// 16-bit window even at the end of a segment.
type Bitstream struct {
	atoms []uint16
	count int
}

// NewBitstream returns a Bitstream holding the given (already unstuffed) bytes.
func NewBitstream(data []byte) Bitstream {
	atoms := make([]uint16, (len(data)+1)/2)
	for i := range atoms {
		hi := uint16(data[2*i]) << 8
		lo := uint16(0xFF)
		if 2*i+1 < len(data) {
			lo = uint16(data[2*i+1])
		}
		atoms[i] = hi | lo
	}

	return Bitstream{atoms: atoms, count: 8 * len(data)}
}

// ParseBitstream returns a Bitstream holding stuffed entropy-coded bytes, as
// produced by Bytes. Every 0xFF byte must be followed by 0x00.
func ParseBitstream(stuffed []byte) (Bitstream, error) {
	data := make([]byte, 0, len(stuffed))
	for i := 0; i < len(stuffed); i++ {
		v := stuffed[i]
		data = append(data, v)
		if v != 0xFF {
			continue
		}
		if i+1 >= len(stuffed) || stuffed[i+1] != 0x00 {
			return Bitstream{}, fmt.Errorf("unstuffed 0xFF at offset %d: %w", i, ErrInvalidMarkerSegmentPrefix)
		}
		i++
	}

	return NewBitstream(data), nil
}

// Count returns the number of bits written to the stream.
func (b *Bitstream) Count() int {
	return b.count
}

// atom returns the i-th storage atom, or all ones past the end of storage.
func (b *Bitstream) atom(i int) uint16 {
	if i < len(b.atoms) {
		return b.atoms[i]
	}

	return 0xFFFF
}

// AppendBit appends a single bit. Any non-zero value appends a 1.
func (b *Bitstream) AppendBit(bit uint8) {
	shift := b.count & 15
	if shift == 0 {
		b.atoms = append(b.atoms, 0xFFFF)
	}
	if bit == 0 {
		b.atoms[len(b.atoms)-1] &^= 0x8000 >> shift
	}
	b.count++
}

// Append appends the count (1..16) most significant bits of bits.
func (b *Bitstream) Append(bits uint16, count int) {
	if count <= 0 {
		return
	}

	// The unused low bits become ones so the padding invariant survives.
	v := bits | 0xFFFF>>count

	shift := b.count & 15
	if shift == 0 {
		b.atoms = append(b.atoms, v)
		b.count += count

		return
	}

	last := len(b.atoms) - 1
	b.atoms[last] &= v>>shift | ^(0xFFFF >> shift)
	if shift+count > 16 {
		b.atoms = append(b.atoms, v<<(16-shift)|0xFFFF>>shift)
	}
	b.count += count
}

// AppendTail appends the count low bits of value, most significant first.
func (b *Bitstream) AppendTail(value uint16, count int) {
	if count <= 0 {
		return
	}
	b.Append(value<<(16-count), count)
}

// Peek returns count (0..16) bits starting at bit offset i, right-justified.
// It does not advance any cursor.
func (b *Bitstream) Peek(i, count int) uint16 {
	if count == 0 {
		return 0
	}

	a := i >> 4
	window := uint32(b.atom(a))<<16 | uint32(b.atom(a+1))

	return uint16(window << (i & 15) >> (32 - count))
}

// Bit returns the bit at offset i.
func (b *Bitstream) Bit(i int) uint8 {
	return uint8(b.atom(i>>4) >> (15 - i&15) & 1)
}

// Bytes serializes the stream, padding the final byte with ones and
// escaping every 0xFF byte as 0xFF 0x00.
func (b *Bitstream) Bytes() []byte {
	n := (b.count + 7) / 8
	out := make([]byte, 0, n+n/64)
	for i := 0; i < n; i++ {
		v := byte(b.atoms[i/2] >> (8 * (1 - i&1)))
		out = append(out, v)
		if v == 0xFF {
			out = append(out, 0x00)
		}
	}

	return out
}
