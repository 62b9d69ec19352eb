package messaging

import (
	"context"
	"time"

	"example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/forms"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Message subjects
const (
	SubjectNotification   = "procurement.notification"
	SubjectReportExported = "procurement.report_exported"
)

// Event is the envelope of every published message
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Source    string      `json:"source"`
	Subject   string      `json:"subject"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ReportExported is published after the worker wrote a report file
type ReportExported struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Format    string `json:"format"`
	Path      string `json:"path"`
	Size      int    `json:"size"`
}

// Publisher broadcasts console notifications and worker events. Without a
// sender it only logs.
type Publisher struct {
	sender Sender
	source string
}

// NewPublisher wraps sender; sender may be nil
func NewPublisher(sender Sender, source string) *Publisher {
	return &Publisher{sender: sender, source: source}
}

// NewPublisherFromConfig connects to Service Bus when a connection string is
// configured and returns a log-only publisher otherwise
func NewPublisherFromConfig(cfg config.AzureConfig, source string) (*Publisher, error) {
	if cfg.QueueConnStr == "" {
		log.Debug().Msg("Azure Service Bus not configured, notifications will not be published")
		return NewPublisher(nil, source), nil
	}

	sender, err := NewServiceBusSender(cfg, source)
	if err != nil {
		return nil, err
	}
	log.Info().Str("queue", cfg.QueueName).Msg("Publishing notifications to Azure Service Bus")
	return NewPublisher(sender, source), nil
}

// Enabled reports whether messages leave the process
func (p *Publisher) Enabled() bool {
	return p.sender != nil
}

// Publish sends payload under subject
func (p *Publisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	if p.sender == nil {
		return nil
	}

	event := Event{
		ID:        uuid.New(),
		Source:    p.source,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	return p.sender.SendMessage(ctx, subject, event)
}

// Notify publishes a form notification. Failures are logged; a notification
// never fails the action that raised it.
func (p *Publisher) Notify(ctx context.Context, n forms.Notification) {
	if err := p.Publish(ctx, SubjectNotification, n); err != nil {
		log.Error().Err(err).Str("kind", string(n.Kind)).Msg("Failed to publish notification")
	}
}

// Close releases the sender
func (p *Publisher) Close() error {
	if p.sender == nil {
		return nil
	}
	return p.sender.Close()
}
