package safehttp

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which variant of an Outcome is populated.
type Kind string

const (
	KindSuccess        Kind = "success"
	KindTimeout        Kind = "timeout"
	KindHTTPError      Kind = "http_error"
	KindTransportError Kind = "transport_error"
	KindDecodeError    Kind = "decode_error"
)

// Outcome is the closed result set of one request through the client.
// Exactly one variant is populated per call: a payload on success, or one
// failure kind with its safe detail. Callers switch on Kind instead of
// unwrapping error chains; nothing escapes Do as a panic or raw error.
type Outcome struct {
	kind    Kind
	payload json.RawMessage
	status  int
	message string
}

// Success wraps a decoded JSON payload.
func Success(payload json.RawMessage) Outcome {
	return Outcome{kind: KindSuccess, payload: payload}
}

// Timeout reports that the call exceeded the client's deadline.
func Timeout() Outcome {
	return Outcome{kind: KindTimeout}
}

// HTTPError reports a client- or server-error status code. The body is
// intentionally absent: error bodies from untrusted upstreams are not parsed.
func HTTPError(status int) Outcome {
	return Outcome{kind: KindHTTPError, status: status}
}

// TransportError reports a connection-level failure (DNS, refused, reset,
// TLS verification). message must already be safe to log.
func TransportError(message string) Outcome {
	return Outcome{kind: KindTransportError, message: message}
}

// DecodeError reports a body that was not usable JSON, including an explicit
// null or empty payload on a successful status.
func DecodeError(message string) Outcome {
	return Outcome{kind: KindDecodeError, message: message}
}

// Kind returns the populated variant.
func (o Outcome) Kind() Kind { return o.kind }

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.kind == KindSuccess }

// Payload returns the raw JSON payload; nil unless the outcome is a success.
func (o Outcome) Payload() json.RawMessage {
	if o.kind != KindSuccess {
		return nil
	}
	return o.payload
}

// Status returns the HTTP status code for KindHTTPError outcomes, 0 otherwise.
func (o Outcome) Status() int { return o.status }

// Message returns the safe failure detail for transport and decode outcomes.
func (o Outcome) Message() string { return o.message }

// DecodeInto unmarshals a success payload into v.
// Calling it on a non-success outcome is an error, not a panic.
func (o Outcome) DecodeInto(v any) error {
	if o.kind != KindSuccess {
		return fmt.Errorf("safehttp: cannot decode %s outcome", o.kind)
	}
	return json.Unmarshal(o.payload, v)
}

func (o Outcome) String() string {
	switch o.kind {
	case KindSuccess:
		return fmt.Sprintf("success(%d bytes)", len(o.payload))
	case KindHTTPError:
		return fmt.Sprintf("http_error(%d)", o.status)
	case KindTransportError, KindDecodeError:
		return fmt.Sprintf("%s(%s)", o.kind, o.message)
	default:
		return string(o.kind)
	}
}
