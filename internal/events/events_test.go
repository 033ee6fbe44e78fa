package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable).Error(0)
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, msg).Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

func TestRabbitPublisher_Publish(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", "accounthub.events", amqp.ExchangeTopic, true).Return(nil)

	var sent amqp.Publishing
	ch.On("PublishWithContext", "accounthub.events", "user.registered", mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(2).(amqp.Publishing) }).
		Return(nil)

	p, err := newRabbitPublisher(ch, "accounthub.events")
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), New(UserRegistered, "user-1")))

	assert.Equal(t, "application/json", sent.ContentType)
	assert.Equal(t, amqp.Persistent, sent.DeliveryMode)

	var got Event
	require.NoError(t, json.Unmarshal(sent.Body, &got))
	assert.Equal(t, UserRegistered, got.Type)
	assert.Equal(t, "user-1", got.UserID)
	ch.AssertExpectations(t)
}

func TestRabbitPublisher_Errors(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", "x", amqp.ExchangeTopic, true).Return(errors.New("access refused"))
	_, err := newRabbitPublisher(ch, "x")
	assert.ErrorContains(t, err, "access refused")

	ch = new(mockChannel)
	ch.On("ExchangeDeclare", "x", amqp.ExchangeTopic, true).Return(nil)
	ch.On("PublishWithContext", "x", "user.logged_in", mock.Anything).Return(amqp.ErrClosed)
	p, err := newRabbitPublisher(ch, "x")
	require.NoError(t, err)
	assert.ErrorIs(t, p.Publish(context.Background(), New(UserLoggedIn, "u")), amqp.ErrClosed)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Publish(context.Background(), New(UserLoggedOut, "u")))
}
