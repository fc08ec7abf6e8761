// Package events publishes domain events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-crm-api/pkg/config"
)

// Event subjects, relative to the configured prefix.
const (
	LinkIssued          = "link.issued"
	ReportSubmitted     = "report.submitted"
	StudentStatusChange = "student.status_changed"
	BatchCompleted      = "batch.completed"
)

// Envelope wraps every published payload.
type Envelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Publisher emits domain events. Implementations never fail the caller;
// publishing errors are logged.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{})
	Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) {}
func (NopPublisher) Close()                                       {}

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes JSON envelopes to core NATS subjects.
type NATSPublisher struct {
	conn   conn
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// New connects to NATS when a URL is configured, otherwise returns a NopPublisher.
func New(cfg config.EventsConfig, logger *zap.Logger) (Publisher, error) {
	if strings.TrimSpace(cfg.NATSURL) == "" {
		return NopPublisher{}, nil
	}
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("alumnos-crm-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newNATSPublisher(nc, cfg.SubjectPrefix, logger), nil
}

func newNATSPublisher(c conn, prefix string, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: c, prefix: strings.Trim(prefix, "."), logger: logger, now: time.Now}
}

// Subject returns the full subject for eventType.
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

func (p *NATSPublisher) Publish(_ context.Context, eventType string, data interface{}) {
	payload, err := json.Marshal(Envelope{Type: eventType, OccurredAt: p.now().UTC(), Data: data})
	if err != nil {
		p.logger.Sugar().Warnw("marshal event", "type", eventType, "error", err)
		return
	}
	if err := p.conn.Publish(p.Subject(eventType), payload); err != nil {
		p.logger.Sugar().Warnw("publish event", "type", eventType, "error", err)
	}
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Sugar().Warnw("drain nats", "error", err)
	}
}
