package messaging

import (
	"context"
	"encoding/json"
	"time"

	"example.com/pacific/relief/config"
	"example.com/pacific/relief/internal/metrics"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json"

// Notification is the envelope published for every change
type Notification struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time string      `json:"time"`
}

// messageSender is the subset of *azservicebus.Sender used here
type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// Publisher sends change notifications to a Service Bus queue. Without a
// connection string it is disabled and drops every message.
type Publisher struct {
	client *azservicebus.Client
	sender messageSender
	queue  string
	now    func() time.Time
}

// NewServiceBusClient creates an Azure Service Bus client, or returns nil
// when no connection string is configured
func NewServiceBusClient(cfg config.AzureConfig) (*azservicebus.Client, error) {
	if cfg.QueueConnStr == "" {
		return nil, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}
	return client, nil
}

// NewPublisher creates a publisher for queue. A nil client yields a
// disabled publisher.
func NewPublisher(client *azservicebus.Client, queue string) (*Publisher, error) {
	if client == nil {
		log.Warn().Msg("Azure Service Bus not configured, notifications will be disabled")
		return &Publisher{queue: queue, now: time.Now}, nil
	}

	sender, err := client.NewSender(queue, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create Service Bus sender for %s", queue)
	}

	return &Publisher{
		client: client,
		sender: sender,
		queue:  queue,
		now:    time.Now,
	}, nil
}

// Enabled reports whether messages are actually sent
func (p *Publisher) Enabled() bool {
	return p != nil && p.sender != nil
}

// Publish sends a notification of eventType carrying data
func (p *Publisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	if !p.Enabled() {
		return nil
	}

	body, err := json.Marshal(Notification{
		Type: eventType,
		Data: data,
		Time: p.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification")
	}

	contentType := contentTypeJSON
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &eventType,
		ApplicationProperties: map[string]interface{}{
			"type": eventType,
		},
	}

	err = p.sender.SendMessage(ctx, msg, nil)
	metrics.RecordMessageBusOperation(metrics.MessageBusOperationSend, err == nil)
	if err != nil {
		return errors.Wrapf(err, "failed to send %s notification to %s", eventType, p.queue)
	}
	return nil
}

// Close closes the sender
func (p *Publisher) Close(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.sender.Close(ctx)
}
