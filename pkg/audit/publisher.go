// Package audit publishes trust-boundary failure events to NATS so operators
// can alert on them without scraping logs. Events carry the failure category
// and safe detail only; payloads, bodies, and credential values never ride
// the bus.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/omlabs/trustbound/internal/redact"
	log "github.com/omlabs/trustbound/pkg/logger"
	"github.com/omlabs/trustbound/pkg/metrics"
)

// Event is one reported failure at the trust boundary.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Service   string    `json:"service"`
	Component string    `json:"component"` // "credentials", "safehttp", "abitext"
	Kind      string    `json:"kind"`      // taxonomy member, e.g. "timeout", "too_long"
	Detail    string    `json:"detail,omitempty"`
	Host      string    `json:"host,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// jetStream is the slice of the JetStream API the publisher needs; narrow so
// tests can supply a fake.
type jetStream interface {
	PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher wraps a NATS connection and publishes failure events.
type Publisher struct {
	logger  *zap.Logger
	js      jetStream
	subject string
	service string
}

// New creates a Publisher with JetStream enabled.
func New(logger *zap.Logger, nc *nats.Conn, subject, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return newWithJS(logger, js, subject, service), nil
}

func newWithJS(logger *zap.Logger, js jetStream, subject, service string) *Publisher {
	if logger == nil {
		logger = log.L()
	}
	return &Publisher{
		logger:  logger,
		js:      js,
		subject: subject,
		service: service,
	}
}

// PublishFailure serializes and publishes one failure event. The detail
// string is masked before it leaves the process. Missing ID/timestamp fields
// are filled in.
func (p *Publisher) PublishFailure(ctx context.Context, ev Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Service == "" {
		ev.Service = p.service
	}
	ev.Detail = redact.MaskDSN(ev.Detail)

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("audit.marshal_failed",
			zap.String("component", ev.Component),
			zap.String("kind", ev.Kind),
			zap.Error(err))
		metrics.IncAuditPublishError(p.subject)
		return err
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header: nats.Header{
			"event_type":   []string{"trustbound.failure"},
			"component":    []string{ev.Component},
			"service":      []string{ev.Service},
			"content_type": []string{"application/json"},
		},
	}

	if _, err := p.js.PublishMsg(msg); err != nil {
		p.logger.Error("audit.publish_failed",
			zap.String("subject", p.subject),
			zap.String("component", ev.Component),
			zap.String("kind", ev.Kind),
			zap.Error(err))
		metrics.IncAuditPublishError(p.subject)
		return err
	}

	p.logger.Debug("audit.publish_success",
		zap.String("subject", p.subject),
		zap.String("component", ev.Component),
		zap.String("kind", ev.Kind))
	return nil
}
