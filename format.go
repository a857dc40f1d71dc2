package jpeg

import "slices"

// Format is a supported component layout.
type Format uint8

const (
	// FormatY8 is 8-bit grayscale: one component.
	FormatY8 Format = iota + 1
	// FormatYCbCr8 is 8-bit YCbCr: components 1, 2 and 3.
	FormatYCbCr8
)

// RecognizeFormat identifies the format of a frame from its component keys
// and sample precision.
func RecognizeFormat(keys []uint8, precision int) (Format, bool) {
	if precision != 8 {
		return 0, false
	}
	// Grayscale streams are not consistent about the key of their only component.
	if len(keys) == 1 {
		return FormatY8, true
	}

	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	for _, f := range []Format{FormatY8, FormatYCbCr8} {
		if slices.Equal(sorted, f.Components()) {
			return f, true
		}
	}

	return 0, false
}

// Components returns the component keys of the format, in declaration order.
func (f Format) Components() []uint8 {
	switch f {
	case FormatY8:
		return []uint8{1}
	case FormatYCbCr8:
		return []uint8{1, 2, 3}
	}

	return nil
}

// Precision returns the sample precision of the format.
func (f Format) Precision() int {
	return 8
}

func (f Format) String() string {
	switch f {
	case FormatY8:
		return "Y8"
	case FormatYCbCr8:
		return "YCbCr8"
	}

	return "unknown"
}
