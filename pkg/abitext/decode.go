// Package abitext validates and decodes untrusted length-prefixed byte
// payloads, as returned by contract-call style upstreams, into bounded,
// sanitized text. Construction fails closed: no BoundedText exists unless
// every validation stage passed.
package abitext

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/omlabs/trustbound/pkg/metrics"
)

// Wire layout: a 32-byte offset word, a 32-byte big-endian length word, then
// the payload. 128 bytes is the smallest structurally valid blob (both words
// plus one padded payload word's worth of room).
const (
	headerSize  = 64
	minBlobSize = 128

	// DefaultMaxLength bounds the declared payload length accepted before any
	// allocation or decoding happens.
	DefaultMaxLength = 10000
)

// The decode failure taxonomy. Each stage fails with its own kind so callers
// can discriminate with errors.Is instead of collapsing everything to a bool.
var (
	ErrInvalidInput    = errors.New("abitext: empty or nil input")
	ErrTooShort        = errors.New("abitext: blob below minimum structural size")
	ErrTooLong         = errors.New("abitext: declared length exceeds maximum")
	ErrTruncated       = errors.New("abitext: blob shorter than declared length")
	ErrInvalidEncoding = errors.New("abitext: payload is not valid UTF-8")
)

// BoundedText is a decoded payload that passed every validation stage:
// length-bounded, strictly valid UTF-8, and filtered to printable characters
// plus space, tab, and newline.
type BoundedText struct {
	s string
}

func (b BoundedText) String() string { return b.s }
func (b BoundedText) Len() int       { return len(b.s) }

// Option tunes a single Decode call.
type Option func(*options)

type options struct {
	maxLength int
}

// WithMaxLength overrides the declared-length bound for one call.
func WithMaxLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLength = n
		}
	}
}

// Decode runs the validation pipeline over blob in strict order,
// short-circuiting on the first failure:
//
//	emptiness → minimum size → length word → bound → sufficiency →
//	strict UTF-8 → printable-whitelist filter
//
// The bound is checked before the payload is touched, so an adversarial
// length word cannot force a large allocation or decode. The whitelist pass
// is sanitization, not validation: disallowed characters are dropped, never
// an error.
func Decode(blob []byte, opts ...Option) (BoundedText, error) {
	o := options{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(&o)
	}

	if len(blob) == 0 {
		return BoundedText{}, fail(ErrInvalidInput)
	}
	if len(blob) < minBlobSize {
		return BoundedText{}, fail(fmt.Errorf("%w: %d bytes, need %d", ErrTooShort, len(blob), minBlobSize))
	}

	declared, ok := lengthWord(blob)
	if !ok || declared > uint64(o.maxLength) {
		// A length word with non-zero high bytes declares an astronomical
		// payload; both cases are the same DoS rejection.
		return BoundedText{}, fail(fmt.Errorf("%w: declared %s, max %d", ErrTooLong, declaredString(blob, declared, ok), o.maxLength))
	}

	payload := blob[headerSize:]
	if uint64(len(payload)) < declared {
		return BoundedText{}, fail(fmt.Errorf("%w: declared %d, %d bytes remain", ErrTruncated, declared, len(payload)))
	}
	payload = payload[:declared]

	if !utf8.Valid(payload) {
		return BoundedText{}, fail(ErrInvalidEncoding)
	}

	return BoundedText{s: sanitize(string(payload))}, nil
}

// lengthWord reads the 32-byte length word. ok is false when the high 24
// bytes are non-zero, i.e. the declared length does not fit in a uint64.
func lengthWord(blob []byte) (uint64, bool) {
	for _, b := range blob[32:56] {
		if b != 0 {
			return 0, false
		}
	}
	return binary.BigEndian.Uint64(blob[56:64]), true
}

func declaredString(blob []byte, declared uint64, ok bool) string {
	if !ok {
		return fmt.Sprintf("0x%x…", blob[32:40])
	}
	return fmt.Sprintf("%d", declared)
}

// sanitize keeps printable runes plus newline and tab; everything else
// (control characters and the like) is silently dropped. Space counts as
// printable.
func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			out = append(out, r)
		}
	}
	return string(out)
}

// fail counts the failure kind before returning it.
func fail(err error) error {
	metrics.IncDecodeFailure(kindOf(err))
	return err
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrTooShort):
		return "too_short"
	case errors.Is(err, ErrTooLong):
		return "too_long"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrInvalidEncoding):
		return "invalid_encoding"
	default:
		return "unknown"
	}
}
