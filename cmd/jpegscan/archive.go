package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	jpeg "github.com/tayloraswift/jpeg-sub000"
)

// An archive holds a spectral model outside of JPEG: a magic line, one byte
// naming the compression, then the compressed body.
const archiveMagic = "jpegscan coefficients v1\n"

const (
	compressZstd = 'z'
	compressZlib = 'l'
)

var errArchive = errors.New("malformed coefficient archive")

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil)
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	},
}

func compressionByte(name string) (byte, error) {
	switch name {
	case "zstd":
		return compressZstd, nil
	case "zlib":
		return compressZlib, nil
	}

	return 0, fmt.Errorf("unknown compression %q", name)
}

// writeArchive serializes s and compresses it.
func writeArchive(w io.Writer, s *jpeg.Spectral, compression byte) error {
	body := marshalSpectral(s)

	var buf bytes.Buffer
	buf.WriteString(archiveMagic)
	buf.WriteByte(compression)

	switch compression {
	case compressZstd:
		enc := zstdEncPool.Get().(*zstd.Encoder)
		defer zstdEncPool.Put(enc)

		enc.Reset(&buf)
		if _, err := enc.Write(body); err != nil {
			_ = enc.Close()
			return fmt.Errorf("zstd encode: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("zstd encode: %w", err)
		}
	case compressZlib:
		zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return err
		}
		if _, err := zw.Write(body); err != nil {
			return fmt.Errorf("zlib encode: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("zlib encode: %w", err)
		}
	default:
		return fmt.Errorf("compression %q: %w", compression, errArchive)
	}

	_, err := w.Write(buf.Bytes())

	return err
}

// readArchive decompresses and deserializes an archive.
func readArchive(data []byte) (*jpeg.Spectral, error) {
	if !bytes.HasPrefix(data, []byte(archiveMagic)) || len(data) <= len(archiveMagic) {
		return nil, fmt.Errorf("bad magic: %w", errArchive)
	}
	compression, payload := data[len(archiveMagic)], data[len(archiveMagic)+1:]

	var out bytes.Buffer
	switch compression {
	case compressZstd:
		dec := zstdDecPool.Get().(*zstd.Decoder)
		defer zstdDecPool.Put(dec)

		if err := dec.Reset(bytes.NewReader(payload)); err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		if _, err := io.Copy(&out, dec); err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
	case compressZlib:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("zlib decode: %w", err)
		}
		defer zr.Close()

		if _, err := io.Copy(&out, zr); err != nil {
			return nil, fmt.Errorf("zlib decode: %w", err)
		}
	default:
		return nil, fmt.Errorf("compression %q: %w", compression, errArchive)
	}

	return unmarshalSpectral(out.Bytes())
}

// The body is little-endian: the frame fields, a bit mask of the defined
// quantization tables followed by the tables, then every plane's coefficients.
func marshalSpectral(s *jpeg.Spectral) []byte {
	var b []byte
	b = binary.LittleEndian.AppendUint32(b, uint32(s.Width))
	b = binary.LittleEndian.AppendUint32(b, uint32(s.Height))
	b = append(b, byte(s.Precision), byte(len(s.Planes)))
	for _, p := range s.Planes {
		b = append(b, p.Key, byte(p.H), byte(p.V), byte(p.Quantization))
	}

	var mask byte
	for i, q := range s.Quanta {
		if q != nil {
			mask |= 1 << i
		}
	}
	b = append(b, mask)
	for _, q := range s.Quanta {
		if q == nil {
			continue
		}
		wide := byte(0)
		if q.Wide {
			wide = 1
		}
		b = append(b, wide)
		for _, v := range q.Values {
			b = binary.LittleEndian.AppendUint16(b, v)
		}
	}

	for i := range s.Planes {
		for _, v := range s.Planes[i].Coefficients() {
			b = binary.LittleEndian.AppendUint32(b, uint32(v))
		}
	}

	return b
}

func unmarshalSpectral(b []byte) (*jpeg.Spectral, error) {
	r := bytes.NewReader(b)
	var head struct {
		Width, Height        uint32
		Precision, Component uint8
	}
	if err := binary.Read(r, binary.LittleEndian, &head); err != nil {
		return nil, fmt.Errorf("header: %w", errArchive)
	}

	f := &jpeg.Frame{
		Process:   jpeg.Process{Kind: jpeg.Progressive, Coding: jpeg.Huffman},
		Precision: int(head.Precision),
		Width:     int(head.Width),
		Height:    int(head.Height),
	}
	for i := 0; i < int(head.Component); i++ {
		var c [4]uint8
		if _, err := io.ReadFull(r, c[:]); err != nil {
			return nil, fmt.Errorf("component %d: %w", i, errArchive)
		}
		if c[1] < 1 || c[1] > 4 || c[2] < 1 || c[2] > 4 || c[3] > 3 {
			return nil, fmt.Errorf("component %d fields %v: %w", i, c, errArchive)
		}
		f.Components = append(f.Components, jpeg.Component{
			Key: c[0], H: int(c[1]), V: int(c[2]), Quantization: jpeg.Selector(c[3]),
		})
	}
	if head.Width == 0 || head.Width > 0xFFFF || head.Height > 0xFFFF || len(f.Components) == 0 {
		return nil, fmt.Errorf("frame %dx%d: %w", head.Width, head.Height, errArchive)
	}
	size := coefficientBytes(f)
	if r.Len() < size {
		return nil, fmt.Errorf("%d bytes left, %d coefficient bytes expected: %w", r.Len(), size, errArchive)
	}

	s := jpeg.NewSpectral(f)

	mask, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("quantization mask: %w", errArchive)
	}
	for i := range s.Quanta {
		if mask&(1<<i) == 0 {
			continue
		}
		var q struct {
			Wide   uint8
			Values [64]uint16
		}
		if err := binary.Read(r, binary.LittleEndian, &q); err != nil {
			return nil, fmt.Errorf("quantization table %d: %w", i, errArchive)
		}
		s.Quanta[i] = &jpeg.QuantizationTable{Wide: q.Wide != 0, Values: q.Values}
	}

	if r.Len() != size {
		return nil, fmt.Errorf("%d coefficient bytes, expected %d: %w", r.Len(), size, errArchive)
	}

	for i := range s.Planes {
		coefficients := s.Planes[i].Coefficients()
		if err := binary.Read(r, binary.LittleEndian, coefficients); err != nil {
			return nil, fmt.Errorf("plane %d: %w", i, errArchive)
		}
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes: %w", r.Len(), errArchive)
	}

	return s, nil
}

// coefficientBytes returns the size of the coefficient section for f, so that
// a corrupt header is caught before the planes are allocated.
func coefficientBytes(f *jpeg.Frame) int {
	h, v := f.Scale()
	mx, my := (f.Width+8*h-1)/(8*h), (f.Height+8*v-1)/(8*v)

	n := 0
	for _, c := range f.Components {
		n += mx * c.H * my * c.V * 64 * 4
	}

	return n
}
