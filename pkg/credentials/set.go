package credentials

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/omlabs/trustbound/internal/redact"
)

// Set is an immutable mapping of requirement name to validated value.
// It is only ever produced by a fully successful Load. Its string and log
// representations never contain the values themselves.
type Set struct {
	spec   string
	values map[string]string
}

// Spec returns the name of the spec the set was loaded for.
func (s *Set) Spec() string { return s.spec }

// Get returns the value for name and whether the set contains it.
func (s *Set) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// MustGet returns the value for name, panicking if the set does not contain
// it. Safe for names that appear in the spec the set was loaded from.
func (s *Set) MustGet(name string) string {
	v, ok := s.values[name]
	if !ok {
		panic(fmt.Sprintf("credentials: %q not in set for spec %q", name, s.spec))
	}
	return v
}

// Names returns the contained names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of values in the set.
func (s *Set) Len() int { return len(s.values) }

// String lists the contained names only. Values are never rendered.
func (s *Set) String() string {
	return fmt.Sprintf("credentials.Set(%s: %s)", s.spec, strings.Join(s.Names(), ", "))
}

// MarshalLogObject renders the set for zap with masked values, so a Set can
// be attached to a log line without leaking secrets.
func (s *Set) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, name := range s.Names() {
		enc.AddString(name, redact.MaskValue(s.values[name]))
	}
	return nil
}
