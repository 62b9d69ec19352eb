package messaging

import (
	"context"
	"encoding/json"
	"time"

	"example.com/backstage/services/procurement/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
)

// Sender sends JSON messages to a queue
type Sender interface {
	SendMessage(ctx context.Context, subject string, body interface{}) error
	Close() error
}

// serviceBusSender sends to an Azure Service Bus queue
type serviceBusSender struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
	source    string
}

// NewServiceBusSender connects a sender to the configured queue. source is
// stamped on every message.
func NewServiceBusSender(cfg config.AzureConfig, source string) (Sender, error) {
	if cfg.QueueConnStr == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &serviceBusSender{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
		source:    source,
	}, nil
}

// SendMessage sends body as JSON
func (s *serviceBusSender) SendMessage(ctx context.Context, subject string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message body")
	}

	contentType := "application/json"
	msg := &azservicebus.Message{
		Body:        data,
		Subject:     &subject,
		ContentType: &contentType,
		ApplicationProperties: map[string]interface{}{
			"source": s.source,
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := s.sender.SendMessage(ctx, msg, nil); err != nil {
		return errors.Wrapf(err, "failed to send %s to %s", subject, s.queueName)
	}
	return nil
}

// Close closes the sender and the client
func (s *serviceBusSender) Close() error {
	if s.sender != nil {
		if err := s.sender.Close(context.Background()); err != nil {
			return err
		}
	}
	if s.client != nil {
		return s.client.Close(context.Background())
	}
	return nil
}
