package jpeg

import "fmt"

// QuantizationTable holds 64 quantization steps in zig-zag order.
type QuantizationTable struct {
	// Wide tables are serialized with 16-bit entries.
	Wide   bool
	Values [64]uint16
}

// quantizationSlot is one table record of a DQT segment.
type quantizationSlot struct {
	selector Selector
	table    QuantizationTable
}

// parseDQT decodes the Define Quantization Table segment body. It consists of
// repeated (precision|selector, 64 or 128 bytes) records.
func parseDQT(body []byte) ([]quantizationSlot, error) {
	var slots []quantizationSlot
	for len(body) > 0 {
		precision, code := body[0]>>4, body[0]&0x0F
		selector, ok := selectorFromCode(code)
		if !ok || precision > 1 {
			return nil, fmt.Errorf("DQT target 0x%02x: %w", body[0], ErrInvalidQuantizationTarget)
		}

		t := QuantizationTable{Wide: precision == 1}
		size := 64
		if t.Wide {
			size = 128
		}
		if len(body) < 1+size {
			return nil, fmt.Errorf("DQT record of %d bytes: %w", len(body), ErrInvalidQuantizationTable)
		}

		for k := 0; k < 64; k++ {
			if t.Wide {
				t.Values[k] = uint16(body[1+2*k])<<8 | uint16(body[2+2*k])
			} else {
				t.Values[k] = uint16(body[1+k])
			}
		}

		slots = append(slots, quantizationSlot{selector: selector, table: t})
		body = body[1+size:]
	}

	return slots, nil
}

// appendDQT serializes tables as one DQT segment, marker included.
func appendDQT(dst []byte, slots []quantizationSlot) []byte {
	length := 2
	for _, s := range slots {
		length += 65
		if s.table.Wide {
			length += 64
		}
	}

	dst = appendMarkerHeader(dst, MarkerDQT, length)
	for _, s := range slots {
		if s.table.Wide {
			dst = append(dst, 0x10|byte(s.selector))
			for _, v := range s.table.Values {
				dst = append(dst, byte(v>>8), byte(v))
			}

			continue
		}

		dst = append(dst, byte(s.selector))
		for _, v := range s.table.Values {
			dst = append(dst, byte(v))
		}
	}

	return dst
}
