package natsbridge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tesla254/textly-core/internal/messaging/app"
	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/events"
	"github.com/tesla254/textly-core/internal/platform/messagebroker"
)

// --- Mocks ---

type MockNATSClient struct {
	mock.Mock
}

func (m *MockNATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func (m *MockNATSClient) Subscribe(ctx context.Context, subject, queueGroup string, handler func(msg messagebroker.Message)) (messagebroker.Subscription, error) {
	args := m.Called(ctx, subject, queueGroup, handler)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(messagebroker.Subscription), args.Error(1)
}

func (m *MockNATSClient) Close() {
	m.Called()
}

type MockSubscription struct {
	mock.Mock
}

func (m *MockSubscription) Unsubscribe() error {
	args := m.Called()
	return args.Error(0)
}

type fakeBrokerMessage struct {
	subject string
	data    []byte
}

func (f fakeBrokerMessage) Subject() string { return f.subject }
func (f fakeBrokerMessage) Data() []byte    { return f.data }

// trackerMessageRepo backs a real DeliveryTracker in consumer tests.
type trackerMessageRepo struct {
	mock.Mock
}

func (m *trackerMessageRepo) Upsert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *trackerMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *trackerMessageRepo) ListByThread(ctx context.Context, threadID string, limit, offset int) ([]*domain.Message, error) {
	args := m.Called(ctx, threadID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *trackerMessageRepo) Search(ctx context.Context, query string) ([]*domain.Message, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *trackerMessageRepo) ApplyStatus(ctx context.Context, id string, status domain.DeliveryStatus, dateSent *time.Time, errorMessage *string) (bool, error) {
	args := m.Called(ctx, id, status, dateSent, errorMessage)
	return args.Bool(0), args.Error(1)
}

func (m *trackerMessageRepo) ConfirmPartSent(ctx context.Context, id string, part int) (int, int, error) {
	args := m.Called(ctx, id, part)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *trackerMessageRepo) ConfirmPartDelivered(ctx context.Context, id string, part int) (int, int, error) {
	args := m.Called(ctx, id, part)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *trackerMessageRepo) MostRecentInFlightOutbound(ctx context.Context) (*domain.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

// --- Tests ---

func TestCallbackConsumer_StartSubscribesBothSubjects(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockNats := new(MockNATSClient)
	mockRepo := new(trackerMessageRepo)
	bus := events.NewBus(16)
	defer bus.Close()
	tracker := app.NewDeliveryTracker(mockRepo, bus, logger)
	consumer := NewCallbackConsumer(mockNats, tracker, logger)

	sentSub := new(MockSubscription)
	deliveredSub := new(MockSubscription)
	mockNats.On("Subscribe", mock.Anything, SubjectCallbackSent, QueueGroup, mock.AnythingOfType("func(messagebroker.Message)")).
		Return(sentSub, nil).Once()
	mockNats.On("Subscribe", mock.Anything, SubjectCallbackDelivered, QueueGroup, mock.AnythingOfType("func(messagebroker.Message)")).
		Return(deliveredSub, nil).Once()

	require.NoError(t, consumer.Start(context.Background()))
	mockNats.AssertExpectations(t)

	sentSub.On("Unsubscribe").Return(nil).Once()
	deliveredSub.On("Unsubscribe").Return(nil).Once()
	consumer.Stop()
	sentSub.AssertExpectations(t)
	deliveredSub.AssertExpectations(t)
}

func TestCallbackConsumer_SentPayloadReachesTracker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockNats := new(MockNATSClient)
	mockRepo := new(trackerMessageRepo)
	bus := events.NewBus(16)
	defer bus.Close()
	tracker := app.NewDeliveryTracker(mockRepo, bus, logger)
	consumer := NewCallbackConsumer(mockNats, tracker, logger)

	var sentHandler func(messagebroker.Message)
	mockNats.On("Subscribe", mock.Anything, SubjectCallbackSent, QueueGroup, mock.Anything).
		Run(func(args mock.Arguments) {
			sentHandler = args.Get(3).(func(messagebroker.Message))
		}).
		Return(new(MockSubscription), nil).Once()
	mockNats.On("Subscribe", mock.Anything, SubjectCallbackDelivered, QueueGroup, mock.Anything).
		Return(new(MockSubscription), nil).Once()

	require.NoError(t, consumer.Start(context.Background()))
	require.NotNil(t, sentHandler)

	msg := &domain.Message{ID: "sms_1", ThreadID: "thread_15551234567", DeliveryStatus: domain.DeliveryStatusPending, Segments: 1}
	mockRepo.On("GetByID", mock.Anything, "sms_1").Return(msg, nil).Once()
	mockRepo.On("ConfirmPartSent", mock.Anything, "sms_1", 1).Return(1, 1, nil).Once()
	mockRepo.On("ApplyStatus", mock.Anything, "sms_1", domain.DeliveryStatusSent, mock.AnythingOfType("*time.Time"), (*string)(nil)).
		Return(true, nil).Once()

	payload, err := json.Marshal(CallbackPayload{CorrelationID: "sms_1", ResultCode: "success", Part: 1})
	require.NoError(t, err)
	sentHandler(fakeBrokerMessage{subject: SubjectCallbackSent, data: payload})

	mockRepo.AssertExpectations(t)
}

func TestCallbackConsumer_PartNumberReachesStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockNats := new(MockNATSClient)
	mockRepo := new(trackerMessageRepo)
	bus := events.NewBus(16)
	defer bus.Close()
	tracker := app.NewDeliveryTracker(mockRepo, bus, logger)
	consumer := NewCallbackConsumer(mockNats, tracker, logger)

	var deliveredHandler func(messagebroker.Message)
	mockNats.On("Subscribe", mock.Anything, SubjectCallbackSent, QueueGroup, mock.Anything).
		Return(new(MockSubscription), nil).Once()
	mockNats.On("Subscribe", mock.Anything, SubjectCallbackDelivered, QueueGroup, mock.Anything).
		Run(func(args mock.Arguments) {
			deliveredHandler = args.Get(3).(func(messagebroker.Message))
		}).
		Return(new(MockSubscription), nil).Once()

	require.NoError(t, consumer.Start(context.Background()))
	require.NotNil(t, deliveredHandler)

	msg := &domain.Message{ID: "sms_long", ThreadID: "thread_15551234567", DeliveryStatus: domain.DeliveryStatusSent, Segments: 3}
	mockRepo.On("GetByID", mock.Anything, "sms_long").Return(msg, nil).Twice()
	// The replayed callback for part 2 confirms the same bit again; the
	// count stays short of the segment total and nothing advances.
	mockRepo.On("ConfirmPartDelivered", mock.Anything, "sms_long", 2).Return(1, 3, nil).Twice()

	payload, err := json.Marshal(CallbackPayload{CorrelationID: "sms_long", ResultCode: "success", Part: 2})
	require.NoError(t, err)
	deliveredHandler(fakeBrokerMessage{subject: SubjectCallbackDelivered, data: payload})
	deliveredHandler(fakeBrokerMessage{subject: SubjectCallbackDelivered, data: payload})

	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "ApplyStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCallbackConsumer_MalformedPayloadIsDropped(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockNats := new(MockNATSClient)
	mockRepo := new(trackerMessageRepo)
	bus := events.NewBus(16)
	defer bus.Close()
	tracker := app.NewDeliveryTracker(mockRepo, bus, logger)
	consumer := NewCallbackConsumer(mockNats, tracker, logger)

	var deliveredHandler func(messagebroker.Message)
	mockNats.On("Subscribe", mock.Anything, SubjectCallbackSent, QueueGroup, mock.Anything).
		Return(new(MockSubscription), nil).Once()
	mockNats.On("Subscribe", mock.Anything, SubjectCallbackDelivered, QueueGroup, mock.Anything).
		Run(func(args mock.Arguments) {
			deliveredHandler = args.Get(3).(func(messagebroker.Message))
		}).
		Return(new(MockSubscription), nil).Once()

	require.NoError(t, consumer.Start(context.Background()))
	require.NotNil(t, deliveredHandler)

	deliveredHandler(fakeBrokerMessage{subject: SubjectCallbackDelivered, data: []byte("{not json")})
	mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCallbackConsumer_SubscribeErrorFailsStart(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockNats := new(MockNATSClient)
	bus := events.NewBus(16)
	defer bus.Close()
	tracker := app.NewDeliveryTracker(new(trackerMessageRepo), bus, logger)
	consumer := NewCallbackConsumer(mockNats, tracker, logger)

	mockNats.On("Subscribe", mock.Anything, SubjectCallbackSent, QueueGroup, mock.Anything).
		Return(nil, assert.AnError).Once()

	err := consumer.Start(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
