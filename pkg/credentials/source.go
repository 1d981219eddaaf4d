package credentials

import (
	"os"

	"github.com/joho/godotenv"
)

// Source supplies candidate values by name. Load never touches the process
// environment directly; it only sees what the injected Source exposes, which
// keeps loading deterministic and testable.
type Source interface {
	// Lookup returns the raw value for name, and whether it was present at all.
	Lookup(name string) (string, bool)
}

// MapSource serves values from a plain map. Absent keys report not-present.
type MapSource map[string]string

func (m MapSource) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// EnvSource serves values from the process environment.
type EnvSource struct{}

// NewEnvSource returns an environment-backed Source, first loading any given
// .env files (or ./.env when none are named). A missing .env is not an error.
func NewEnvSource(dotenvFiles ...string) EnvSource {
	_ = godotenv.Load(dotenvFiles...)
	return EnvSource{}
}

func (EnvSource) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}
