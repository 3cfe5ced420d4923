package messaging

import (
	"context"

	"example.com/pacific/relief/internal/metrics"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const receiveBatchSize = 10

// MessageHandler processes one received message
type MessageHandler func(ctx context.Context, msg *azservicebus.ReceivedMessage) error

// PermanentError marks a message that can never be processed. Such messages
// are dead-lettered instead of redelivered.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as a PermanentError
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked permanent
func IsPermanent(err error) bool {
	var perr *PermanentError
	return errors.As(err, &perr)
}

// messageReceiver is the subset of *azservicebus.Receiver used here
type messageReceiver interface {
	ReceiveMessages(ctx context.Context, maxMessages int, options *azservicebus.ReceiveMessagesOptions) ([]*azservicebus.ReceivedMessage, error)
	CompleteMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.CompleteMessageOptions) error
	AbandonMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.AbandonMessageOptions) error
	DeadLetterMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.DeadLetterOptions) error
	Close(ctx context.Context) error
}

// Consumer receives messages from a Service Bus queue in peek-lock mode
type Consumer struct {
	receiver messageReceiver
	queue    string
}

// NewConsumer creates a consumer for queue. A nil client yields a disabled
// consumer whose Run only waits for cancellation.
func NewConsumer(client *azservicebus.Client, queue string) (*Consumer, error) {
	if client == nil {
		return &Consumer{queue: queue}, nil
	}

	receiver, err := client.NewReceiverForQueue(queue, &azservicebus.ReceiverOptions{
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create receiver for queue %s", queue)
	}

	return &Consumer{receiver: receiver, queue: queue}, nil
}

// Run receives and settles messages until ctx is cancelled
func (c *Consumer) Run(ctx context.Context, handler MessageHandler) error {
	if c.receiver == nil {
		log.Warn().Str("queue", c.queue).Msg("Azure Service Bus not configured, consumer idle")
		<-ctx.Done()
		return nil
	}

	defer func() {
		if err := c.receiver.Close(context.Background()); err != nil {
			log.Error().Err(err).Str("queue", c.queue).Msg("Error closing receiver")
		}
	}()

	log.Info().Str("queue", c.queue).Msg("Starting Service Bus consumer")
	for {
		messages, err := c.receiver.ReceiveMessages(ctx, receiveBatchSize, nil)
		if ctx.Err() != nil {
			return nil
		}
		metrics.RecordMessageBusOperation(metrics.MessageBusOperationReceive, err == nil)
		if err != nil {
			return errors.Wrapf(err, "failed to receive messages from %s", c.queue)
		}

		for _, msg := range messages {
			c.handle(ctx, msg, handler)
		}
	}
}

// handle runs handler on msg and settles it: complete on success, dead-letter
// on a permanent failure, abandon otherwise
func (c *Consumer) handle(ctx context.Context, msg *azservicebus.ReceivedMessage, handler MessageHandler) {
	err := handler(ctx, msg)

	// Settle even if ctx was cancelled mid-handler
	settleCtx := context.WithoutCancel(ctx)

	switch {
	case err == nil:
		settleErr := c.receiver.CompleteMessage(settleCtx, msg, nil)
		metrics.RecordMessageBusOperation(metrics.MessageBusOperationComplete, settleErr == nil)
		if settleErr != nil {
			log.Error().Err(settleErr).Str("message_id", msg.MessageID).Msg("Failed to complete message")
		}
	case IsPermanent(err):
		log.Warn().Err(err).Str("message_id", msg.MessageID).Msg("Dead-lettering unprocessable message")
		reason := "unprocessable"
		description := err.Error()
		settleErr := c.receiver.DeadLetterMessage(settleCtx, msg, &azservicebus.DeadLetterOptions{
			Reason:           &reason,
			ErrorDescription: &description,
		})
		metrics.RecordMessageBusOperation(metrics.MessageBusOperationDeadLetter, settleErr == nil)
		if settleErr != nil {
			log.Error().Err(settleErr).Str("message_id", msg.MessageID).Msg("Failed to dead-letter message")
		}
	default:
		log.Error().Err(err).Str("message_id", msg.MessageID).Msg("Error processing message, abandoning")
		settleErr := c.receiver.AbandonMessage(settleCtx, msg, nil)
		metrics.RecordMessageBusOperation(metrics.MessageBusOperationAbandon, settleErr == nil)
		if settleErr != nil {
			log.Error().Err(settleErr).Str("message_id", msg.MessageID).Str("queue", c.queue).Msg("Failed to abandon message")
		}
	}
}
