package jpeg

import (
	"fmt"
	"math/bits"
)

const (
	// maxEOBRun is the longest end-of-band run a single symbol can code.
	maxEOBRun = 0x7FFF
	// maxCorrectionBits bounds the correction bits buffered behind an EOB run.
	maxCorrectionBits = 1000
)

// entropySink receives the output of the scan encoder. The encoder runs twice
// per scan: once into a histogram to gather symbol statistics, and once into an
// emitter built from the resulting tables.
type entropySink interface {
	symbol(table int, s uint8)
	// bits writes the count low bits of value.
	bits(value uint16, count int)
	// flush ends a restart interval.
	flush()
}

// histogram counts symbols per table.
type histogram [4][256]int

func (h *histogram) symbol(table int, s uint8) { h[table][s]++ }

func (h *histogram) bits(uint16, int) {}

func (h *histogram) flush() {}

// emitter writes codewords and raw bits, producing one byte-stuffed segment
// per restart interval.
type emitter struct {
	tables    [4]*HuffmanEncoder
	stream    Bitstream
	intervals [][]byte
}

func (e *emitter) symbol(table int, s uint8) {
	e.stream.Append(e.tables[table].Codeword(s))
}

func (e *emitter) bits(value uint16, count int) {
	e.stream.AppendTail(value, count)
}

func (e *emitter) flush() {
	e.intervals = append(e.intervals, e.stream.Bytes())
	e.stream = Bitstream{}
}

// scanEncoder holds the entropy coding state of one scan.
type scanEncoder struct {
	scan *Scan
	sink entropySink

	predictors [4]int32
	eobrun     int
	// pending holds the correction bits of the blocks in the current EOB run.
	pending []uint8
	// corrections holds the correction bits of the current block not yet emitted.
	corrections []uint8
}

// encodeScan runs the entropy coder for one scan over the spectral model.
func (s *Spectral) encodeScan(scan *Scan, restart int, sink entropySink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if de, ok := r.(errDecode); ok {
				err = de.error
			} else {
				panic(r)
			}
		}
	}()

	e := &scanEncoder{scan: scan, sink: sink}

	var encode func(c int, block []int32)
	switch {
	case scan.Band.DC() && scan.Bits.Initial():
		encode = e.dcInitial
	case scan.Band.DC():
		encode = e.dcRefine
	case scan.Bits.Initial():
		encode = e.acInitial
	default:
		encode = e.acRefine
	}

	_, size := s.intervals(scan, restart)
	total := s.mcuCount(scan)

	var refs []blockRef
	for m := 0; m < total; m++ {
		if m > 0 && m%size == 0 {
			e.flush()
		}

		refs = s.mcuBlocks(scan, m, refs[:0])
		for _, r := range refs {
			plane := &s.Planes[scan.Components[r.c].Index]
			encode(r.c, plane.Block(r.x, r.y))
		}
	}
	e.flush()

	return nil
}

// flush ends the current restart interval.
func (e *scanEncoder) flush() {
	e.emitEOBRun()
	e.sink.flush()
	e.predictors = [4]int32{}
}

// composite writes a symbol whose low nibble is the binade of v, followed by
// the tail bits of v.
func (e *scanEncoder) composite(table int, high uint8, v int32) {
	binade, tail := compact(v)
	if binade > 15 {
		panic(errDecode{fmt.Errorf("coefficient %d out of range: %w", v, ErrInvalidCompositeValue)})
	}

	e.sink.symbol(table, high<<4|uint8(binade))
	e.sink.bits(tail, binade)
}

// emitEOBRun writes the pending end-of-band run and its buffered correction bits.
func (e *scanEncoder) emitEOBRun() {
	if e.eobrun == 0 {
		return
	}

	n := bits.Len(uint(e.eobrun)) - 1
	e.sink.symbol(0, uint8(n<<4))
	e.sink.bits(uint16(e.eobrun), n)
	e.emitCorrections(e.pending)

	e.eobrun = 0
	e.pending = e.pending[:0]
}

func (e *scanEncoder) emitCorrections(corrections []uint8) {
	for _, b := range corrections {
		e.sink.bits(uint16(b), 1)
	}
}

// pointTransform divides v by 2^lo, rounding toward zero.
func pointTransform(v int32, lo int) int32 {
	if v < 0 {
		return -(-v >> lo)
	}

	return v >> lo
}

func (e *scanEncoder) dcInitial(c int, block []int32) {
	// The DC point transform is an arithmetic shift.
	v := block[0] >> e.scan.Bits.Lo
	diff := v - e.predictors[c]
	e.predictors[c] = v

	e.composite(c, 0, diff)
}

func (e *scanEncoder) dcRefine(_ int, block []int32) {
	e.sink.bits(uint16(block[0]>>e.scan.Bits.Lo)&1, 1)
}

func (e *scanEncoder) acInitial(_ int, block []int32) {
	band, lo := e.scan.Band, e.scan.Bits.Lo

	run := 0
	for k := band.Lo; k < band.Hi; k++ {
		v := pointTransform(block[k], lo)
		if v == 0 {
			run++
			continue
		}

		e.emitEOBRun()
		for ; run > 15; run -= 16 {
			e.sink.symbol(0, 0xF0)
		}
		e.composite(0, uint8(run), v)
		run = 0
	}

	if run > 0 {
		e.eobrun++
		if e.eobrun == maxEOBRun {
			e.emitEOBRun()
		}
	}
}

func (e *scanEncoder) acRefine(_ int, block []int32) {
	band, lo := e.scan.Band, e.scan.Bits.Lo

	// Magnitudes after the point transform; the last coefficient that becomes
	// non-zero in this pass bounds where zero runs must be coded explicitly.
	var magnitudes [64]int32
	last := -1
	for k := band.Lo; k < band.Hi; k++ {
		m := block[k]
		if m < 0 {
			m = -m
		}
		m >>= lo
		magnitudes[k] = m
		if m == 1 {
			last = k
		}
	}

	e.corrections = e.corrections[:0]
	run := 0
	for k := band.Lo; k < band.Hi; k++ {
		m := magnitudes[k]
		if m == 0 {
			run++
			continue
		}

		for run > 15 && k <= last {
			e.emitEOBRun()
			e.sink.symbol(0, 0xF0)
			run -= 16
			e.emitCorrections(e.corrections)
			e.corrections = e.corrections[:0]
		}

		if m > 1 {
			// Previously non-zero: one correction bit.
			e.corrections = append(e.corrections, uint8(m&1))
			continue
		}

		e.emitEOBRun()
		e.sink.symbol(0, uint8(run<<4|1))
		var sign uint16
		if block[k] > 0 {
			sign = 1
		}
		e.sink.bits(sign, 1)
		e.emitCorrections(e.corrections)
		e.corrections = e.corrections[:0]
		run = 0
	}

	if run > 0 || len(e.corrections) > 0 {
		e.eobrun++
		e.pending = append(e.pending, e.corrections...)
		if e.eobrun == maxEOBRun || len(e.pending) > maxCorrectionBits-64+1 {
			e.emitEOBRun()
		}
	}
}
