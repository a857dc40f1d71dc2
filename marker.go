package jpeg

import "fmt"

// Marker is the code byte that follows a 0xFF marker prefix.
type Marker uint8

// Marker codes.
const (
	MarkerTEM   Marker = 0x01
	MarkerSOF0  Marker = 0xC0 // baseline sequential, Huffman
	MarkerSOF1  Marker = 0xC1 // extended sequential, Huffman
	MarkerSOF2  Marker = 0xC2 // progressive, Huffman
	MarkerSOF3  Marker = 0xC3 // lossless, Huffman
	MarkerDHT   Marker = 0xC4
	MarkerJPG   Marker = 0xC8
	MarkerDAC   Marker = 0xCC
	MarkerSOF15 Marker = 0xCF
	MarkerRST0  Marker = 0xD0
	MarkerRST7  Marker = 0xD7
	MarkerSOI   Marker = 0xD8
	MarkerEOI   Marker = 0xD9
	MarkerSOS   Marker = 0xDA
	MarkerDQT   Marker = 0xDB
	MarkerDNL   Marker = 0xDC
	MarkerDRI   Marker = 0xDD
	MarkerDHP   Marker = 0xDE
	MarkerEXP   Marker = 0xDF
	MarkerAPP0  Marker = 0xE0
	MarkerAPP1  Marker = 0xE1
	MarkerAPP15 Marker = 0xEF
	MarkerCOM   Marker = 0xFE
)

// IsFrame reports whether m is one of the SOFn frame header markers.
func (m Marker) IsFrame() bool {
	return m >= MarkerSOF0 && m <= MarkerSOF15 && m != MarkerDHT && m != MarkerJPG && m != MarkerDAC
}

// IsRestart reports whether m is a restart marker and returns its phase (0..7).
func (m Marker) IsRestart() (phase int, ok bool) {
	if m >= MarkerRST0 && m <= MarkerRST7 {
		return int(m - MarkerRST0), true
	}

	return 0, false
}

// IsApplication reports whether m is one of the APPn markers.
func (m Marker) IsApplication() bool {
	return m >= MarkerAPP0 && m <= MarkerAPP15
}

// HasLength reports whether a length-prefixed body follows the marker.
func (m Marker) HasLength() bool {
	switch {
	case m == MarkerSOI, m == MarkerEOI, m == MarkerTEM:
		return false
	case m >= MarkerRST0 && m <= MarkerRST7:
		return false
	}

	return true
}

// valid reports whether m may appear in an interchange stream.
// Codes 0x02 through 0xBF and the JPGn extensions 0xF0 through 0xFD are reserved.
func (m Marker) valid() bool {
	switch {
	case m == MarkerTEM:
		return true
	case m < MarkerSOF0:
		return false
	case m >= 0xF0 && m <= 0xFD:
		return false
	case m == 0xFF:
		return false
	}

	return m != MarkerJPG
}

func (m Marker) String() string {
	switch {
	case m.IsFrame():
		return fmt.Sprintf("SOF%d", int(m-MarkerSOF0))
	case m.IsApplication():
		return fmt.Sprintf("APP%d", int(m-MarkerAPP0))
	}
	if phase, ok := m.IsRestart(); ok {
		return fmt.Sprintf("RST%d", phase)
	}

	switch m {
	case MarkerTEM:
		return "TEM"
	case MarkerDHT:
		return "DHT"
	case MarkerDAC:
		return "DAC"
	case MarkerSOI:
		return "SOI"
	case MarkerEOI:
		return "EOI"
	case MarkerSOS:
		return "SOS"
	case MarkerDQT:
		return "DQT"
	case MarkerDNL:
		return "DNL"
	case MarkerDRI:
		return "DRI"
	case MarkerDHP:
		return "DHP"
	case MarkerEXP:
		return "EXP"
	case MarkerCOM:
		return "COM"
	}

	return fmt.Sprintf("0xFF%02X", uint8(m))
}

// appendMarkerHeader writes the marker prefix, code, and big-endian segment
// length (which counts its own two bytes).
func appendMarkerHeader(dst []byte, m Marker, length int) []byte {
	return append(dst, 0xFF, byte(m), byte(length>>8), byte(length))
}

// appendMarker writes a marker that carries no body.
func appendMarker(dst []byte, m Marker) []byte {
	return append(dst, 0xFF, byte(m))
}
