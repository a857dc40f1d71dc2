package jpeg

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
)

// ScriptScan describes one scan of a progression script.
type ScriptScan struct {
	// Components are the keys of the components coded by the scan.
	Components []uint8
	Band       Band
	Bits       Bits
}

// EncodeOptions specifies encoding parameters.
type EncodeOptions struct {
	// Logger receives a debug event per scan. If nil, slog.Default is used.
	Logger *slog.Logger
	// Script is the scan progression. If nil, DefaultScanScript is used.
	Script []ScriptScan
	// RestartInterval is the number of MCUs per restart interval, or 0 for none.
	RestartInterval int
	// DeferHeight writes a zero frame height and defines it with a DNL segment
	// after the first scan.
	DeferHeight bool
	// JFIF is written as an APP0 segment. If nil, images of a recognized
	// format get a version 1.02 segment with a 1:1 aspect ratio.
	JFIF *JFIF
}

// DefaultScanScript returns the scan progression used when none is given.
// Grayscale and YCbCr images follow the customary successive approximation
// script; other layouts get the same script repeated per component.
func DefaultScanScript(s *Spectral) []ScriptScan {
	keys := make([]uint8, len(s.Planes))
	volume := 0
	for i, p := range s.Planes {
		keys[i] = p.Key
		volume += p.H * p.V
	}

	initial := func(lo int) Bits { return Bits{Lo: lo, Hi: Unbounded} }
	refine := func(lo int) Bits { return Bits{Lo: lo, Hi: lo + 1} }
	dc := Band{Lo: 0, Hi: 1}

	if f, ok := s.Format(); ok && f == FormatYCbCr8 {
		y, cb, cr := []uint8{1}, []uint8{2}, []uint8{3}

		return []ScriptScan{
			{Components: keys, Band: dc, Bits: initial(1)},
			{Components: y, Band: Band{Lo: 1, Hi: 6}, Bits: initial(2)},
			{Components: cr, Band: Band{Lo: 1, Hi: 64}, Bits: initial(1)},
			{Components: cb, Band: Band{Lo: 1, Hi: 64}, Bits: initial(1)},
			{Components: y, Band: Band{Lo: 6, Hi: 64}, Bits: initial(2)},
			{Components: y, Band: Band{Lo: 1, Hi: 64}, Bits: refine(1)},
			{Components: keys, Band: dc, Bits: refine(0)},
			{Components: cr, Band: Band{Lo: 1, Hi: 64}, Bits: refine(0)},
			{Components: cb, Band: Band{Lo: 1, Hi: 64}, Bits: refine(0)},
			{Components: y, Band: Band{Lo: 1, Hi: 64}, Bits: refine(0)},
		}
	}

	var script []ScriptScan
	dcScans := func(bits Bits) {
		if len(keys) == 1 || volume <= 10 {
			script = append(script, ScriptScan{Components: keys, Band: dc, Bits: bits})
			return
		}
		for _, k := range keys {
			script = append(script, ScriptScan{Components: []uint8{k}, Band: dc, Bits: bits})
		}
	}

	dcScans(initial(1))
	for _, k := range keys {
		script = append(script,
			ScriptScan{Components: []uint8{k}, Band: Band{Lo: 1, Hi: 6}, Bits: initial(2)},
			ScriptScan{Components: []uint8{k}, Band: Band{Lo: 6, Hi: 64}, Bits: initial(2)},
			ScriptScan{Components: []uint8{k}, Band: Band{Lo: 1, Hi: 64}, Bits: refine(1)},
		)
	}
	dcScans(refine(0))
	for _, k := range keys {
		script = append(script, ScriptScan{Components: []uint8{k}, Band: Band{Lo: 1, Hi: 64}, Bits: refine(0)})
	}

	return script
}

// Encode writes s to w as a progressive JPEG stream with optimized Huffman
// tables. The coefficients of s must be quantized, as decoded with Raw set or
// after Quantize.
func Encode(w io.Writer, s *Spectral, opts *EncodeOptions) error {
	if opts == nil {
		opts = &EncodeOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := s.Frame()
	if err := f.validate(); err != nil {
		return err
	}
	if f.Height == 0 {
		return fmt.Errorf("height 0: %w", ErrInvalidFrameHeight)
	}
	if opts.RestartInterval < 0 || opts.RestartInterval > 0xFFFF {
		return fmt.Errorf("restart interval %d: %w", opts.RestartInterval, ErrInvalidSegmentBody)
	}

	script := opts.Script
	if script == nil {
		script = DefaultScanScript(s)
	}

	out := appendMarker(nil, MarkerSOI)
	jfif := opts.JFIF
	if _, ok := s.Format(); ok && jfif == nil {
		jfif = &JFIF{Major: 1, Minor: 2, Units: DensityAspect, DensityX: 1, DensityY: 1}
	}
	if jfif != nil {
		out = jfif.appendAPP0(out)
	}

	var slots []quantizationSlot
	for _, p := range s.Planes {
		if slices.ContainsFunc(slots, func(q quantizationSlot) bool { return q.selector == p.Quantization }) {
			continue
		}
		q := s.Quanta[p.Quantization]
		if q == nil {
			return fmt.Errorf("component %d %v: %w", p.Key, p.Quantization, ErrUndefinedScanQuantizationSelector)
		}
		slots = append(slots, quantizationSlot{selector: p.Quantization, table: *q})
	}
	out = appendDQT(out, slots)

	header := *f
	if opts.DeferHeight {
		header.Height = 0
	}
	out = header.appendSOF(out)
	if opts.RestartInterval > 0 {
		out = appendDRI(out, opts.RestartInterval)
	}

	tracker := newProgression(len(s.Planes))
	for i, ss := range script {
		scan, err := scriptScan(f, ss)
		if err != nil {
			return fmt.Errorf("scan %d: %w", i, err)
		}
		if err := tracker.advance(scan); err != nil {
			return fmt.Errorf("scan %d: %w", i, err)
		}

		out, err = s.appendScan(out, scan, opts.RestartInterval)
		if err != nil {
			return fmt.Errorf("scan %d: %w", i, err)
		}
		if i == 0 && opts.DeferHeight {
			out = appendDNL(out, f.Height)
		}

		logger.Debug("jpeg: SOS encoded",
			slog.Int("components", len(scan.Components)),
			slog.Int("band_lo", scan.Band.Lo),
			slog.Int("band_hi", scan.Band.Hi),
			slog.String("bits", scan.Bits.String()))
	}
	out = appendMarker(out, MarkerEOI)

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write image data: %w", err)
	}

	return nil
}

// scriptScan resolves a script entry into a scan header. Initial DC scans use
// one table per component; AC scans use table 0.
func scriptScan(f *Frame, ss ScriptScan) (*Scan, error) {
	scan := &Scan{Band: ss.Band, Bits: ss.Bits}
	for i, key := range ss.Components {
		c, err := f.scanComponent(key)
		if err != nil {
			return nil, err
		}
		if ss.Band.DC() && ss.Bits.Initial() {
			c.DC = Selector(i)
		}
		scan.Components = append(scan.Components, c)
	}

	if err := scan.validate(f); err != nil {
		return nil, err
	}

	return scan, nil
}

// appendScan encodes one scan with tables optimized for it, writing the DHT
// segment, the scan header and the entropy-coded segment.
func (s *Spectral) appendScan(dst []byte, scan *Scan, restart int) ([]byte, error) {
	var h histogram
	if err := s.encodeScan(scan, restart, &h); err != nil {
		return nil, err
	}

	class := ClassAC
	if scan.Band.DC() {
		class = ClassDC
	}

	em := &emitter{}
	var slots []huffmanSlot
	for t := range h {
		if !slices.ContainsFunc(h[t][:], func(n int) bool { return n > 0 }) {
			continue
		}
		em.tables[t] = BuildHuffmanEncoder(class, &h[t])
		slots = append(slots, huffmanSlot{selector: Selector(t), table: *em.tables[t].Table()})
	}
	if len(slots) > 0 {
		dst = appendDHT(dst, slots)
	}
	dst = scan.appendSOS(dst)

	if err := s.encodeScan(scan, restart, em); err != nil {
		return nil, err
	}
	for j, interval := range em.intervals {
		if j > 0 {
			dst = appendMarker(dst, MarkerRST0+Marker((j-1)%8))
		}
		dst = append(dst, interval...)
	}

	return dst, nil
}
