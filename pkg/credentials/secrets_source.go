package credentials

import (
	"context"
	"time"

	"go.uber.org/zap"

	log "github.com/omlabs/trustbound/pkg/logger"
	"github.com/omlabs/trustbound/pkg/metrics"
)

// SecretsSource adapts one named secret (stored as a JSON map in a secrets
// manager) into a Source, so Load can draw an integration's credential set
// from AWS Secrets Manager instead of the process environment.
//
// The resolved map is cached with a TTL; a fetch failure is logged and
// counted, and every name then reports not-present, which Load surfaces as a
// complete MissingError. No secret value ever reaches the log output.
type SecretsSource struct {
	logger     *zap.Logger
	provider   Provider
	cache      *Cache[map[string]string]
	secretName string
	timeout    time.Duration
}

// NewSecretsSource builds a Source backed by the given provider and secret name.
func NewSecretsSource(
	logger *zap.Logger,
	provider Provider,
	cache *Cache[map[string]string],
	secretName string,
	timeout time.Duration,
) *SecretsSource {
	if logger == nil {
		logger = log.L()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SecretsSource{
		logger:     logger,
		provider:   provider,
		cache:      cache,
		secretName: secretName,
		timeout:    timeout,
	}
}

// Lookup resolves name from the cached secret map, fetching it on a miss.
func (s *SecretsSource) Lookup(name string) (string, bool) {
	m, ok := s.secretMap()
	if !ok {
		return "", false
	}
	v, ok := m[name]
	return v, ok
}

// Bust drops the cached secret map, forcing a refetch (secret rotation).
func (s *SecretsSource) Bust() {
	if s.cache != nil {
		s.cache.Bust(s.secretName)
	}
}

func (s *SecretsSource) secretMap() (map[string]string, bool) {
	if s.cache != nil {
		if m, ok := s.cache.Get(s.secretName); ok {
			return m, true
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	m, err := s.provider.GetSecret(ctx, s.secretName)
	if err != nil {
		s.logger.Warn("credentials.secret_fetch_failed",
			zap.String("secret", s.secretName),
			zap.Error(err))
		metrics.IncCredentialSourceFailure(s.secretName)
		return nil, false
	}

	if s.cache != nil {
		s.cache.Put(s.secretName, m)
	}
	return m, true
}
