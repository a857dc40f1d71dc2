package jpeg

import (
	"bytes"
	"fmt"
	"log/slog"
)

// DecodeOptions specifies decoding parameters.
type DecodeOptions struct {
	// Logger receives debug events for each segment. If nil, slog.Default is used.
	Logger *slog.Logger
	// Raw leaves coefficients as coded instead of dequantizing them.
	Raw bool
}

// Context is the decoder state machine. It consumes the segments of one
// progressive JPEG stream and accumulates the spectral model.
type Context struct {
	logger *slog.Logger
	raw    bool

	started     bool
	frame       *Frame
	spectral    *Spectral
	progression *progression
	scans       int

	dc, ac  [4]*HuffmanDecoder
	quanta  [4]*QuantizationTable
	restart int

	metadata Metadata
}

// NewContext returns a decoder context. A nil opts uses the defaults.
func NewContext(opts *DecodeOptions) *Context {
	c := &Context{logger: slog.Default()}
	if opts != nil {
		if opts.Logger != nil {
			c.logger = opts.Logger
		}
		c.raw = opts.Raw
	}

	return c
}

// Frame returns the frame header, or nil if none has been read.
func (c *Context) Frame() *Frame {
	return c.frame
}

// Spectral returns the spectral model, or nil if no frame has been read.
func (c *Context) Spectral() *Spectral {
	return c.spectral
}

// Metadata returns the non-image segments read so far.
func (c *Context) Metadata() *Metadata {
	return &c.metadata
}

// Run decodes data from the start of image through the end of image marker.
// Bytes after the end of image are ignored.
func (c *Context) Run(data []byte) error {
	l := &lexer{data: data}

	var (
		pending *segment
		s       segment
		err     error
	)
	for {
		if pending != nil {
			s, pending = *pending, nil
		} else if s, err = l.next(false); err != nil {
			return err
		}

		if !c.started {
			if s.marker != MarkerSOI {
				return fmt.Errorf("first marker %v: %w", s.marker, ErrMissingStartOfImage)
			}
			c.started = true

			continue
		}

		if s.marker == MarkerEOI {
			if c.frame == nil || c.scans == 0 {
				return ErrPrematureEndOfImage
			}
			c.logger.Debug("jpeg: EOI",
				slog.Int("scans", c.scans),
				slog.Bool("complete", c.progression.complete()))

			return nil
		}

		if s.marker == MarkerSOS {
			if pending, err = c.scan(l, s.body); err != nil {
				return err
			}

			continue
		}

		if err := c.segment(s); err != nil {
			return err
		}
	}
}

// segment handles one marker segment outside of a scan.
func (c *Context) segment(s segment) error {
	m := s.marker
	switch {
	case m == MarkerSOI:
		return ErrDuplicateStartOfImage
	case m.IsFrame():
		return c.frameHeader(m, s.body)
	case m == MarkerDHT:
		return c.defineHuffman(s.body)
	case m == MarkerDQT:
		return c.defineQuantization(s.body)
	case m == MarkerDRI:
		interval, err := parseDRI(s.body)
		if err != nil {
			return err
		}
		c.restart = interval
		c.metadata.RestartInterval = interval
		c.logger.Debug("jpeg: DRI parsed", slog.Int("interval", interval))
	case m == MarkerDNL:
		if c.scans == 0 {
			return ErrPrematureHeightRedefinitionSegment
		}
		return ErrUnexpectedHeightRedefinitionSegment
	case m == MarkerDHP, m == MarkerEXP:
		return fmt.Errorf("%v segment: %w", m, ErrUnsupported)
	case m.IsApplication():
		return c.metadata.application(m, s.body)
	case m == MarkerCOM:
		c.metadata.Comments = append(c.metadata.Comments, bytes.Clone(s.body))
	default:
		if _, ok := m.IsRestart(); ok {
			return fmt.Errorf("%v: %w", m, ErrPrematureEntropyCodedSegment)
		}
		// DAC and TEM carry nothing a Huffman decoder needs.
		c.logger.Debug("jpeg: segment skipped", slog.String("marker", m.String()))
	}

	return nil
}

func (c *Context) frameHeader(m Marker, body []byte) error {
	if c.frame != nil {
		return ErrDuplicateFrameHeader
	}

	p, _ := processFromMarker(m)
	if p != (Process{Kind: Progressive, Coding: Huffman}) {
		return fmt.Errorf("%v: %w", p, ErrUnsupportedFrameCodingProcess)
	}

	f, err := parseFrame(p, body)
	if err != nil {
		return err
	}

	c.frame = f
	c.spectral = NewSpectral(f)
	c.progression = newProgression(len(f.Components))

	c.logger.Debug("jpeg: SOF parsed",
		slog.String("process", p.String()),
		slog.Int("precision", f.Precision),
		slog.Int("width", f.Width),
		slog.Int("height", f.Height),
		slog.Int("components", len(f.Components)))

	return nil
}

func (c *Context) defineHuffman(body []byte) error {
	slots, err := parseDHT(body)
	if err != nil {
		return err
	}

	for _, s := range slots {
		d, err := s.table.Decoder()
		if err != nil {
			return fmt.Errorf("%v table %v: %w", s.table.Class, s.selector, err)
		}
		if s.table.Class == ClassDC {
			c.dc[s.selector] = d
		} else {
			c.ac[s.selector] = d
		}

		_, total := s.table.counts()
		c.logger.Debug("jpeg: DHT parsed",
			slog.String("class", s.table.Class.String()),
			slog.String("selector", s.selector.String()),
			slog.Int("symbols", total))
	}

	return nil
}

func (c *Context) defineQuantization(body []byte) error {
	slots, err := parseDQT(body)
	if err != nil {
		return err
	}

	for _, s := range slots {
		t := s.table
		c.quanta[s.selector] = &t
		c.logger.Debug("jpeg: DQT parsed",
			slog.String("selector", s.selector.String()),
			slog.Bool("wide", t.Wide))
	}

	return nil
}

// scan parses a scan header, reads its entropy-coded segment and decodes it.
// It returns the segment that ended the entropy-coded data, unless that
// segment was consumed as the height redefinition of the first scan.
func (c *Context) scan(l *lexer, body []byte) (*segment, error) {
	if c.frame == nil {
		return nil, ErrPrematureScanHeader
	}

	scan, err := parseScan(c.frame, body)
	if err != nil {
		return nil, err
	}
	if err := c.progression.advance(scan); err != nil {
		return nil, err
	}

	var dc, ac [4]*HuffmanDecoder
	dequantize := scan.Bits.Lo == 0 && !c.raw
	for i, sc := range scan.Components {
		switch {
		case scan.Band.DC() && scan.Bits.Initial():
			if dc[i] = c.dc[sc.DC]; dc[i] == nil {
				return nil, fmt.Errorf("component %d DC %v: %w", sc.Key, sc.DC, ErrUndefinedScanHuffmanSelector)
			}
		case !scan.Band.DC():
			if ac[i] = c.ac[sc.AC]; ac[i] == nil {
				return nil, fmt.Errorf("component %d AC %v: %w", sc.Key, sc.AC, ErrUndefinedScanHuffmanSelector)
			}
		}

		q := c.quanta[sc.Quantization]
		if q == nil && dequantize {
			return nil, fmt.Errorf("component %d %v: %w", sc.Key, sc.Quantization, ErrUndefinedScanQuantizationSelector)
		}
		if q != nil {
			c.spectral.Quanta[sc.Quantization] = q
		}
	}

	intervals, end, err := c.entropyCoded(l)
	if err != nil {
		return nil, err
	}

	if c.spectral.Height == 0 {
		if end.marker != MarkerDNL {
			return nil, fmt.Errorf("%v after first scan: %w", end.marker, ErrMissingHeightRedefinitionSegment)
		}
		height, err := parseDNL(end.body)
		if err != nil {
			return nil, err
		}
		c.frame.Height = height
		c.spectral.SetHeight(height)
		c.logger.Debug("jpeg: DNL parsed", slog.Int("height", height))
		end = nil
	}

	if err := c.spectral.decodeScan(scan, intervals, c.restart, dc, ac); err != nil {
		return nil, fmt.Errorf("scan %d: %w", c.scans, err)
	}
	c.scans++

	if dequantize {
		for _, sc := range scan.Components {
			c.spectral.Dequantize(sc.Index, scan.Band, c.quanta[sc.Quantization])
		}
	}

	c.logger.Debug("jpeg: SOS decoded",
		slog.Int("components", len(scan.Components)),
		slog.Int("band_lo", scan.Band.Lo),
		slog.Int("band_hi", scan.Band.Hi),
		slog.String("bits", scan.Bits.String()),
		slog.Int("intervals", len(intervals)))

	return end, nil
}

// entropyCoded lexes the entropy-coded segment of a scan, split at restart
// markers. It returns the intervals and the segment that ended the data.
func (c *Context) entropyCoded(l *lexer) ([][]byte, *segment, error) {
	var intervals [][]byte
	for {
		s, err := l.next(true)
		if err != nil {
			return nil, nil, err
		}
		intervals = append(intervals, s.prefix)

		phase, ok := s.marker.IsRestart()
		if !ok {
			return intervals, &s, nil
		}
		if want := (len(intervals) - 1) % 8; phase != want {
			return nil, nil, fmt.Errorf("%v, expected RST%d: %w", s.marker, want, ErrInvalidRestartPhase)
		}
	}
}
