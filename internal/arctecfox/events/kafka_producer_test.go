package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gartstein/arctecfox/internal/arctecfox/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaWriter implements KafkaWriter for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestEvent_Key(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id.String(), Event{Type: CompanyCreated, Company: &models.Company{ID: id}}.Key())
	assert.Equal(t, "user-1", Event{Type: ProfileCompleted, User: &models.User{ID: "user-1"}}.Key())
	assert.Equal(t, "", Event{}.Key())
}

func TestProducer_Produce(t *testing.T) {
	t.Run("successful produce", func(t *testing.T) {
		producer := newProducer(new(MockKafkaWriter), zaptest.NewLogger(t), 10)

		producer.Produce(Event{Type: CompanyCreated, Company: &models.Company{ID: uuid.New()}})

		require.Equal(t, 1, len(producer.events))
		queued := <-producer.events
		assert.False(t, queued.OccurredAt.IsZero(), "produce should stamp the event time")
	})

	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		producer := newProducer(new(MockKafkaWriter), zap.New(core), 1)
		event := Event{Type: CompanyCreated, Company: &models.Company{ID: uuid.New()}}

		producer.Produce(event)
		producer.Produce(event) // This should be dropped

		assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
	})
}

func TestProducer_SendEvent(t *testing.T) {
	company := &models.Company{ID: uuid.New(), Name: "Acme"}
	event := Event{Type: CompanyCreated, Company: company, OccurredAt: time.Unix(0, 0).UTC()}

	t.Run("successful send", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newProducer(mockWriter, zaptest.NewLogger(t), 1)
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)

		producer.sendEvent(context.Background(), event)

		value, err := json.Marshal(event)
		require.NoError(t, err)
		mockWriter.AssertCalled(t, "WriteMessages", mock.Anything, []kafka.Message{
			{Key: []byte(company.ID.String()), Value: value},
		})
	})

	t.Run("serialization error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer := newProducer(new(MockKafkaWriter), zap.New(core), 1)

		oldMarshal := jsonMarshal
		jsonMarshal = func(_ interface{}) ([]byte, error) {
			return nil, errors.New("mock marshal error")
		}
		defer func() { jsonMarshal = oldMarshal }()

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("key", company.ID.String())).Len())
	})

	t.Run("write error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		mockWriter := new(MockKafkaWriter)
		producer := newProducer(mockWriter, zap.New(core), 1)
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
	})
}

func TestProducer_Close(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("Close").Return(nil)
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)
	producer := newProducer(mockWriter, zaptest.NewLogger(t), 10)
	go producer.eventLoop()

	producer.Close()

	mockWriter.AssertCalled(t, "Close")
}
