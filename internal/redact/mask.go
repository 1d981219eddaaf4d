package redact

import (
	"net/http"
	"regexp"
	"strings"
)

var dsnPasswordRegex = regexp.MustCompile(`(:)([^:@]+)(@)`)

// MaskDSN masks the password portion of a connection string.
func MaskDSN(dsn string) string {
	return dsnPasswordRegex.ReplaceAllString(dsn, ":***@")
}

// sensitiveHeaders are header names whose values must never reach logs or
// audit events. Matched case-insensitively, plus any name containing
// "key", "token" or "secret".
var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"set-cookie":          {},
}

func isSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := sensitiveHeaders[lower]; ok {
		return true
	}
	return strings.Contains(lower, "key") ||
		strings.Contains(lower, "token") ||
		strings.Contains(lower, "secret")
}

// MaskHeaders returns a copy of h safe for logging: credential-bearing
// header values are replaced with "***", everything else passes through.
func MaskHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for name, vals := range h {
		if isSensitiveHeader(name) {
			out[name] = "***"
			continue
		}
		out[name] = strings.Join(vals, ", ")
	}
	return out
}

// MaskValue masks a secret value for diagnostics, keeping just enough of the
// prefix to tell credentials apart. Values of 8 runes or fewer are fully masked.
func MaskValue(v string) string {
	r := []rune(v)
	if len(r) <= 8 {
		return "***"
	}
	return string(r[:4]) + "***"
}
