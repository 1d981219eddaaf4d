package credentials

import (
	"fmt"
	"strings"
)

// MissingError reports every requirement a source failed to satisfy, so one
// error carries the complete remediation list rather than the first gap found.
type MissingError struct {
	Spec  string
	Names []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required %s credentials: %s",
		e.Spec, strings.Join(e.Names, ", "))
}

// Load resolves every requirement in spec against source.
//
// A requirement is missing when the source reports it absent or its value is
// empty after trimming whitespace. All requirements are checked in one pass;
// if any are missing the returned error is a *MissingError naming all of
// them. On success the returned Set holds exactly the spec's names, each
// mapped to its trimmed value.
//
// Load performs no I/O beyond the source lookups and never logs values.
func Load(spec *Spec, source Source) (*Set, error) {
	if spec == nil {
		return nil, fmt.Errorf("credentials: nil spec")
	}
	if source == nil {
		return nil, fmt.Errorf("credentials: nil source for spec %q", spec.name)
	}

	values := make(map[string]string, len(spec.reqs))
	var missing []string

	for _, req := range spec.reqs {
		raw, ok := source.Lookup(req.Name)
		trimmed := strings.TrimSpace(raw)
		if !ok || trimmed == "" {
			missing = append(missing, req.Name)
			continue
		}
		values[req.Name] = trimmed
	}

	if len(missing) > 0 {
		return nil, &MissingError{Spec: spec.name, Names: missing}
	}

	return &Set{spec: spec.name, values: values}, nil
}
