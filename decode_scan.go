package jpeg

import (
	"fmt"
	"math/bits"
)

// extend reconstructs a signed value from its binade and tail bits. Tails
// with the top bit set are positive; the others map onto the negative range
// of the same binade.
func extend(tail uint16, binade int) int32 {
	if binade == 0 {
		return 0
	}

	v := int32(tail)
	if v < 1<<(binade-1) {
		v -= 1<<binade - 1
	}

	return v
}

// compact splits a signed value into its binade and tail bits. It is the
// inverse of extend.
func compact(v int32) (binade int, tail uint16) {
	if v == 0 {
		return 0, 0
	}

	m := v
	if m < 0 {
		m = -m
	}
	binade = bits.Len32(uint32(m))
	if v < 0 {
		v += 1<<binade - 1
	}

	return binade, uint16(v)
}

// scanDecoder holds the entropy decoding state of one scan.
type scanDecoder struct {
	scan   *Scan
	dc, ac [4]*HuffmanDecoder

	stream Bitstream
	i      int // cursor into stream

	predictors [4]int32
	eobrun     int
}

// consume advances the cursor, failing if it passes the end of the data.
func (d *scanDecoder) consume(n int) {
	d.i += n
	if d.i > d.stream.Count() {
		panic(errDecode{ErrTruncatedEntropyCodedSegment})
	}
}

// symbol decodes one Huffman symbol.
func (d *scanDecoder) symbol(t *HuffmanDecoder) uint8 {
	s, length := t.Lookup(d.stream.Peek(d.i, 16))
	d.consume(length)

	return s
}

// receive reads n raw bits.
func (d *scanDecoder) receive(n int) uint16 {
	v := d.stream.Peek(d.i, n)
	d.consume(n)

	return v
}

// bit reads one raw bit.
func (d *scanDecoder) bit() uint8 {
	b := d.stream.Bit(d.i)
	d.consume(1)

	return b
}

// restart begins a new restart interval.
func (d *scanDecoder) restart(data []byte) {
	d.stream = NewBitstream(data)
	d.i = 0
	d.predictors = [4]int32{}
	d.eobrun = 0
}

// decodeScan decodes one scan into the spectral model. Each interval is the
// entropy-coded data of one restart interval, with byte stuffing removed.
func (s *Spectral) decodeScan(scan *Scan, intervals [][]byte, restart int, dc, ac [4]*HuffmanDecoder) (err error) {
	// Recovery for panics in the hot path.
	defer func() {
		if r := recover(); r != nil {
			if de, ok := r.(errDecode); ok {
				err = de.error
			} else {
				panic(r)
			}
		}
	}()

	count, size := s.intervals(scan, restart)
	switch {
	case len(intervals) > count:
		return fmt.Errorf("%d restart intervals, expected %d: %w", len(intervals), count, ErrUnexpectedRestart)
	case len(intervals) < count:
		return fmt.Errorf("%d restart intervals, expected %d: %w", len(intervals), count, ErrTruncatedEntropyCodedSegment)
	}

	d := &scanDecoder{scan: scan, dc: dc, ac: ac}

	var decode func(c int, block []int32)
	switch {
	case scan.Band.DC() && scan.Bits.Initial():
		decode = d.dcInitial
	case scan.Band.DC():
		decode = d.dcRefine
	case scan.Bits.Initial():
		decode = d.acInitial
	default:
		decode = d.acRefine
	}

	var refs []blockRef
	total := s.mcuCount(scan)
	for m := 0; m < total; m++ {
		if m%size == 0 {
			d.restart(intervals[m/size])
		}

		refs = s.mcuBlocks(scan, m, refs[:0])
		for _, r := range refs {
			plane := &s.Planes[scan.Components[r.c].Index]
			decode(r.c, plane.Block(r.x, r.y))
		}
	}

	return nil
}

// dcInitial decodes a DC difference and stores the running predictor.
func (d *scanDecoder) dcInitial(c int, block []int32) {
	binade := d.symbol(d.dc[c])
	if binade > 15 {
		panic(errDecode{fmt.Errorf("DC binade %d: %w", binade, ErrInvalidCompositeValue)})
	}

	d.predictors[c] += extend(d.receive(int(binade)), int(binade))
	block[0] = d.predictors[c] << d.scan.Bits.Lo
}

// dcRefine adds one correction bit to the DC coefficient.
func (d *scanDecoder) dcRefine(_ int, block []int32) {
	if d.bit() != 0 {
		block[0] |= 1 << d.scan.Bits.Lo
	}
}

// acInitial decodes the first pass over an AC band of one block.
func (d *scanDecoder) acInitial(c int, block []int32) {
	if d.eobrun > 0 {
		d.eobrun--
		return
	}

	band, lo := d.scan.Band, d.scan.Bits.Lo
	for k := band.Lo; k < band.Hi; k++ {
		symbol := d.symbol(d.ac[c])
		run, binade := int(symbol>>4), int(symbol&0x0F)

		if binade == 0 {
			if run < 15 {
				// End of band for this block and the next eobrun blocks.
				d.eobrun = 1<<run - 1
				if run > 0 {
					d.eobrun += int(d.receive(run))
				}

				return
			}
			k += 15

			continue
		}

		k += run
		if k >= band.Hi {
			panic(errDecode{fmt.Errorf("AC run past coefficient %d: %w", band.Hi-1, ErrInvalidCompositeValue)})
		}
		block[k] = extend(d.receive(binade), binade) << lo
	}
}

// acRefine decodes a refining pass over an AC band of one block.
func (d *scanDecoder) acRefine(c int, block []int32) {
	band := d.scan.Band
	delta := int32(1) << d.scan.Bits.Lo

	k := band.Lo
	if d.eobrun == 0 {
	loop:
		for ; k < band.Hi; k++ {
			symbol := d.symbol(d.ac[c])
			run, binade := int(symbol>>4), int(symbol&0x0F)

			var z int32
			switch binade {
			case 0:
				if run < 15 {
					d.eobrun = 1 << run
					if run > 0 {
						d.eobrun += int(d.receive(run))
					}

					break loop
				}
			case 1:
				z = delta
				if d.bit() == 0 {
					z = -z
				}
			default:
				panic(errDecode{fmt.Errorf("refinement binade %d: %w", binade, ErrInvalidCompositeValue)})
			}

			k = d.refineNonZeroes(block, k, band.Hi, run, delta)
			if k >= band.Hi {
				panic(errDecode{fmt.Errorf("AC run past coefficient %d: %w", band.Hi-1, ErrInvalidCompositeValue)})
			}
			if z != 0 {
				block[k] = z
			}
		}
	}

	if d.eobrun > 0 {
		d.eobrun--
		d.refineNonZeroes(block, k, band.Hi, -1, delta)
	}
}

// refineNonZeroes reads a correction bit for every non-zero coefficient from k
// on, passing over the given number of zero coefficients. It returns the index
// of the next zero coefficient, or hi. A negative count never stops early.
func (d *scanDecoder) refineNonZeroes(block []int32, k, hi, zeros int, delta int32) int {
	for ; k < hi; k++ {
		if block[k] == 0 {
			if zeros == 0 {
				break
			}
			zeros--

			continue
		}

		if d.bit() == 0 {
			continue
		}
		if block[k] >= 0 {
			block[k] += delta
		} else {
			block[k] -= delta
		}
	}

	return k
}
