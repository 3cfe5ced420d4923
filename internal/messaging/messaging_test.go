package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"example.com/pacific/relief/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error {
	args := m.Called(ctx, message, options)
	return args.Error(0)
}

func (m *MockSender) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockReceiver struct {
	mock.Mock
}

func (m *MockReceiver) ReceiveMessages(ctx context.Context, maxMessages int, options *azservicebus.ReceiveMessagesOptions) ([]*azservicebus.ReceivedMessage, error) {
	args := m.Called(ctx, maxMessages, options)
	msgs, _ := args.Get(0).([]*azservicebus.ReceivedMessage)
	return msgs, args.Error(1)
}

func (m *MockReceiver) CompleteMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.CompleteMessageOptions) error {
	return m.Called(ctx, message, options).Error(0)
}

func (m *MockReceiver) AbandonMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.AbandonMessageOptions) error {
	return m.Called(ctx, message, options).Error(0)
}

func (m *MockReceiver) DeadLetterMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.DeadLetterOptions) error {
	return m.Called(ctx, message, options).Error(0)
}

func (m *MockReceiver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestPublishSendsEnvelope(t *testing.T) {
	sender := new(MockSender)
	fixed := time.Date(2024, 12, 18, 9, 30, 0, 0, time.UTC)
	p := &Publisher{sender: sender, queue: "relief-notifications", now: func() time.Time { return fixed }}

	var sent *azservicebus.Message
	sender.On("SendMessage", mock.Anything, mock.AnythingOfType("*azservicebus.Message"), (*azservicebus.SendMessageOptions)(nil)).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*azservicebus.Message) }).
		Return(nil)

	err := p.Publish(context.Background(), "request.created", map[string]string{"id": "r1"})
	require.NoError(t, err)
	sender.AssertExpectations(t)

	require.NotNil(t, sent)
	assert.Equal(t, "request.created", sent.ApplicationProperties["type"])
	assert.Equal(t, "application/json", *sent.ContentType)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(sent.Body, &envelope))
	assert.Equal(t, "request.created", envelope["type"])
	assert.Equal(t, "2024-12-18T09:30:00Z", envelope["time"])
	assert.Equal(t, map[string]interface{}{"id": "r1"}, envelope["data"])
}

func TestPublishWrapsSendError(t *testing.T) {
	sender := new(MockSender)
	p := &Publisher{sender: sender, queue: "q", now: time.Now}
	sender.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("link detached"))

	err := p.Publish(context.Background(), "event.created", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link detached")
}

func TestDisabledPublisher(t *testing.T) {
	p, err := NewPublisher(nil, "q")
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Publish(context.Background(), "event.created", nil))
	assert.NoError(t, p.Close(context.Background()))

	client, err := NewServiceBusClient(config.AzureConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestConsumerSettlesByOutcome(t *testing.T) {
	ok := &azservicebus.ReceivedMessage{MessageID: "ok"}
	bad := &azservicebus.ReceivedMessage{MessageID: "bad"}
	flaky := &azservicebus.ReceivedMessage{MessageID: "flaky"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	receiver := new(MockReceiver)
	receiver.On("ReceiveMessages", mock.Anything, receiveBatchSize, (*azservicebus.ReceiveMessagesOptions)(nil)).
		Return([]*azservicebus.ReceivedMessage{ok, bad, flaky}, nil).Once()
	receiver.On("ReceiveMessages", mock.Anything, receiveBatchSize, (*azservicebus.ReceiveMessagesOptions)(nil)).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled).Once()
	receiver.On("CompleteMessage", mock.Anything, ok, (*azservicebus.CompleteMessageOptions)(nil)).Return(nil)
	receiver.On("DeadLetterMessage", mock.Anything, bad, mock.AnythingOfType("*azservicebus.DeadLetterOptions")).Return(nil)
	receiver.On("AbandonMessage", mock.Anything, flaky, (*azservicebus.AbandonMessageOptions)(nil)).Return(nil)
	receiver.On("Close", mock.Anything).Return(nil)

	c := &Consumer{receiver: receiver, queue: "relief-field-updates"}
	err := c.Run(ctx, func(_ context.Context, msg *azservicebus.ReceivedMessage) error {
		switch msg.MessageID {
		case "bad":
			return Permanent(errors.New("request not found"))
		case "flaky":
			return errors.New("database unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	receiver.AssertExpectations(t)
}

func TestConsumerReturnsReceiveError(t *testing.T) {
	receiver := new(MockReceiver)
	receiver.On("ReceiveMessages", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("unauthorized"))
	receiver.On("Close", mock.Anything).Return(nil)

	c := &Consumer{receiver: receiver, queue: "q"}
	err := c.Run(context.Background(), func(context.Context, *azservicebus.ReceivedMessage) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestDisabledConsumerWaitsForCancel(t *testing.T) {
	c, err := NewConsumer(nil, "q")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, c.Run(ctx, nil))
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	err := errors.Wrap(Permanent(errors.New("bad payload")), "processing")
	assert.True(t, IsPermanent(err))
	assert.False(t, IsPermanent(errors.New("timeout")))
}
