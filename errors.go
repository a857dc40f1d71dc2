package jpeg

import "errors"

// Error tiers. Every error returned by this package wraps exactly one of them.
var (
	// ErrLexing reports a byte stream that cannot be split into marker segments.
	ErrLexing = errors.New("jpeg: lexing error")
	// ErrParsing reports a marker segment whose fields are malformed or inconsistent.
	ErrParsing = errors.New("jpeg: parsing error")
	// ErrDecoding reports entropy-coded data or a marker sequence that cannot be decoded.
	ErrDecoding = errors.New("jpeg: decoding error")
)

// ErrUnsupported reports a well-formed stream that uses a coding process this package does not implement.
var ErrUnsupported = &Error{tier: ErrDecoding, msg: "jpeg: unsupported"}

// Error is a specific failure belonging to one of the error tiers.
type Error struct {
	tier error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap returns the tier of the error.
func (e *Error) Unwrap() error { return e.tier }

// Lexing errors.
var (
	ErrTruncatedMarkerSegmentType   = &Error{ErrLexing, "jpeg: truncated marker segment type"}
	ErrTruncatedMarkerSegmentHeader = &Error{ErrLexing, "jpeg: truncated marker segment header"}
	ErrTruncatedMarkerSegmentBody   = &Error{ErrLexing, "jpeg: truncated marker segment body"}
	ErrInvalidMarkerSegmentLength   = &Error{ErrLexing, "jpeg: invalid marker segment length"}
	ErrInvalidMarkerSegmentType     = &Error{ErrLexing, "jpeg: invalid marker segment type"}
	ErrInvalidMarkerSegmentPrefix   = &Error{ErrLexing, "jpeg: invalid marker segment prefix"}
)

// Parsing errors.
var (
	ErrInvalidSegmentBody                        = &Error{ErrParsing, "jpeg: malformed marker segment body"}
	ErrInvalidFrameWidth                         = &Error{ErrParsing, "jpeg: invalid frame width"}
	ErrInvalidFrameHeight                        = &Error{ErrParsing, "jpeg: invalid frame height"}
	ErrInvalidFramePrecision                     = &Error{ErrParsing, "jpeg: invalid frame precision"}
	ErrInvalidFrameComponentCount                = &Error{ErrParsing, "jpeg: invalid frame component count"}
	ErrInvalidFrameComponentSamplingFactor       = &Error{ErrParsing, "jpeg: invalid frame component sampling factor"}
	ErrInvalidFrameQuantizationSelector          = &Error{ErrParsing, "jpeg: invalid frame quantization selector"}
	ErrDuplicateFrameComponentIndex              = &Error{ErrParsing, "jpeg: duplicate frame component index"}
	ErrInvalidScanComponentCount                 = &Error{ErrParsing, "jpeg: invalid scan component count"}
	ErrInvalidScanComponentIndex                 = &Error{ErrParsing, "jpeg: scan component index not in frame"}
	ErrDuplicateScanComponentIndex               = &Error{ErrParsing, "jpeg: duplicate scan component index"}
	ErrInvalidScanHuffmanSelector                = &Error{ErrParsing, "jpeg: invalid scan huffman selector"}
	ErrInvalidScanSamplingVolume                 = &Error{ErrParsing, "jpeg: invalid scan sampling volume"}
	ErrInvalidSpectralSelection                  = &Error{ErrParsing, "jpeg: invalid spectral selection"}
	ErrInvalidSuccessiveApproximation            = &Error{ErrParsing, "jpeg: invalid successive approximation"}
	ErrInvalidProgressiveSubset                  = &Error{ErrParsing, "jpeg: progressive AC scan must contain exactly one component"}
	ErrInvalidSpectralSelectionProgression       = &Error{ErrParsing, "jpeg: spectral selection out of progression order"}
	ErrInvalidSuccessiveApproximationProgression = &Error{ErrParsing, "jpeg: successive approximation out of progression order"}
	ErrInvalidHuffmanTarget                      = &Error{ErrParsing, "jpeg: invalid huffman table target"}
	ErrInvalidHuffmanTable                       = &Error{ErrParsing, "jpeg: invalid huffman table"}
	ErrInvalidQuantizationTarget                 = &Error{ErrParsing, "jpeg: invalid quantization table target"}
	ErrInvalidQuantizationTable                  = &Error{ErrParsing, "jpeg: invalid quantization table"}
	ErrInvalidJFIF                               = &Error{ErrParsing, "jpeg: invalid JFIF segment"}
)

// Decoding errors.
var (
	ErrTruncatedEntropyCodedSegment        = &Error{ErrDecoding, "jpeg: truncated entropy-coded segment"}
	ErrInvalidCompositeValue               = &Error{ErrDecoding, "jpeg: invalid composite value"}
	ErrUndefinedScanHuffmanSelector        = &Error{ErrDecoding, "jpeg: scan references undefined huffman table"}
	ErrUndefinedScanQuantizationSelector   = &Error{ErrDecoding, "jpeg: scan references undefined quantization table"}
	ErrMissingStartOfImage                 = &Error{ErrDecoding, "jpeg: missing start of image"}
	ErrDuplicateStartOfImage               = &Error{ErrDecoding, "jpeg: duplicate start of image"}
	ErrDuplicateFrameHeader                = &Error{ErrDecoding, "jpeg: duplicate frame header"}
	ErrPrematureScanHeader                 = &Error{ErrDecoding, "jpeg: scan header before frame header"}
	ErrPrematureHeightRedefinitionSegment  = &Error{ErrDecoding, "jpeg: height redefinition before first scan"}
	ErrUnexpectedHeightRedefinitionSegment = &Error{ErrDecoding, "jpeg: unexpected height redefinition"}
	ErrMissingHeightRedefinitionSegment    = &Error{ErrDecoding, "jpeg: missing height redefinition after first scan"}
	ErrPrematureEntropyCodedSegment        = &Error{ErrDecoding, "jpeg: entropy-coded segment outside of a scan"}
	ErrPrematureEndOfImage                 = &Error{ErrDecoding, "jpeg: end of image before any scan"}
	ErrUnexpectedRestart                   = &Error{ErrDecoding, "jpeg: unexpected restart marker"}
	ErrInvalidRestartPhase                 = &Error{ErrDecoding, "jpeg: restart marker out of sequence"}
	ErrUnsupportedFrameCodingProcess       = &Error{ErrUnsupported, "jpeg: unsupported frame coding process"}
)

// errDecode is used for internal panics during the hot decoding path.
type errDecode struct{ error }
