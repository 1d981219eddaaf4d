// Package credentials loads named configuration values from an injected
// source (process environment, secrets manager) and validates them as a set
// before any integration is allowed to start.
package credentials

import (
	"fmt"
	"strings"
)

// Requirement names a single value an integration needs, with a
// human-readable purpose for error messages and runbooks.
type Requirement struct {
	Name        string
	Description string
}

// Spec is an ordered list of requirements for one integration.
// Names are unique within a spec; NewSpec enforces this.
type Spec struct {
	name string
	reqs []Requirement
}

// NewSpec builds a Spec for the named integration (e.g. "twitter", "wallet").
func NewSpec(name string, reqs ...Requirement) (*Spec, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("credentials: spec name is required")
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("credentials: spec %q has no requirements", name)
	}

	seen := make(map[string]struct{}, len(reqs))
	for _, r := range reqs {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("credentials: spec %q has a requirement with an empty name", name)
		}
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("credentials: spec %q has duplicate requirement %q", name, r.Name)
		}
		seen[r.Name] = struct{}{}
	}

	return &Spec{name: name, reqs: reqs}, nil
}

// MustSpec is NewSpec for package-level spec declarations.
func MustSpec(name string, reqs ...Requirement) *Spec {
	s, err := NewSpec(name, reqs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the integration name the spec was declared for.
func (s *Spec) Name() string { return s.name }

// Names returns the requirement names in declaration order.
func (s *Spec) Names() []string {
	names := make([]string, len(s.reqs))
	for i, r := range s.reqs {
		names[i] = r.Name
	}
	return names
}

// Requirements returns a copy of the requirement list.
func (s *Spec) Requirements() []Requirement {
	out := make([]Requirement, len(s.reqs))
	copy(out, s.reqs)
	return out
}
