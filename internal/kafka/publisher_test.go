package kafka_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/kafka"
	mock_kafka "gitlab.ozon.dev/pupkingeorgij/lockbox/internal/kafka/mocks"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository/memory"
	mock_storage "gitlab.ozon.dev/pupkingeorgij/lockbox/internal/storage/mocks"
)

// seedTask stores one redemption event in the outbox the way the invitation
// manager does.
func seedTask(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	inv, err := lockbox.NewInvitation("inv-1", "owner", "box-1", "Alice", "ABCDEFGH", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Invitations().Create(ctx, inv))
	_, err = inv.Redeem("user-a", time.Now())
	require.NoError(t, err)
	task, err := repository.NewEventTask("invitation-events",
		lockbox.NewInvitationEvent("e1", lockbox.EventInvitationCreated, inv, "user-a", time.Now()))
	require.NoError(t, err)
	require.NoError(t, store.Invitations().UpdateIfVersion(ctx, inv, task))
}

func newPublisher(store *memory.Store, producer kafka.Producer, maxAttempts int) *kafka.Publisher {
	return kafka.NewPublisher(store.Outbox(), producer, kafka.PublisherConfig{
		PollInterval: time.Hour,
		BatchSize:    10,
		MaxAttempts:  maxAttempts,
		StaleAfter:   time.Minute,
	}, zap.NewNop())
}

func TestPublisher_SendsAndMarksDone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := memory.New()
	seedTask(t, store)
	producer := mock_kafka.NewMockProducer(ctrl)
	pub := newPublisher(store, producer, 3)

	var sent kafka.Message
	producer.EXPECT().SendMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg kafka.Message) error {
			sent = msg
			return nil
		})

	require.NoError(t, pub.ProcessBatch(context.Background()))

	assert.Equal(t, "invitation-events", sent.Topic)
	assert.Equal(t, []byte("box-1"), sent.Key)
	assert.Equal(t, "invitation_created", sent.Headers[lockbox.EventTypeAttribute])

	tasks := store.Outbox().Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, repository.TaskStatusDone, tasks[0].Status)
	assert.NotNil(t, tasks[0].CompletedAt)

	// nothing left to claim
	require.NoError(t, pub.ProcessBatch(context.Background()))
}

func TestPublisher_RetriesFailedSends(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := memory.New()
	seedTask(t, store)
	producer := mock_kafka.NewMockProducer(ctrl)
	pub := newPublisher(store, producer, 3)
	ctx := context.Background()

	gomock.InOrder(
		producer.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Return(errors.New("broker down")),
		producer.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Return(nil),
	)

	require.NoError(t, pub.ProcessBatch(ctx))
	task := store.Outbox().Tasks()[0]
	assert.Equal(t, repository.TaskStatusFailed, task.Status)
	assert.Equal(t, 1, task.Attempts)
	require.NotNil(t, task.LastError)
	assert.Equal(t, "broker down", *task.LastError)

	require.NoError(t, pub.ProcessBatch(ctx))
	task = store.Outbox().Tasks()[0]
	assert.Equal(t, repository.TaskStatusDone, task.Status)
	assert.Equal(t, 2, task.Attempts)
}

func TestPublisher_StopsAtMaxAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := memory.New()
	seedTask(t, store)
	producer := mock_kafka.NewMockProducer(ctrl)
	pub := newPublisher(store, producer, 1)
	ctx := context.Background()

	producer.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).Times(1)

	require.NoError(t, pub.ProcessBatch(ctx))
	require.NoError(t, pub.ProcessBatch(ctx))
	assert.Equal(t, repository.TaskStatusFailed, store.Outbox().Tasks()[0].Status)
}

func TestPublisher_VersionConflictKeepsAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := memory.New()
	seedTask(t, store)
	producer := mock_kafka.NewMockProducer(ctrl)
	pub := newPublisher(store, producer, 1)
	ctx := context.Background()

	conflict := fmt.Errorf("applying event e1 to box box-1: %w", repository.ErrVersionConflict)
	gomock.InOrder(
		producer.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Return(conflict).Times(2),
		producer.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Return(nil),
	)

	for range 2 {
		require.NoError(t, pub.ProcessBatch(ctx))
		task := store.Outbox().Tasks()[0]
		assert.Equal(t, repository.TaskStatusFailed, task.Status)
		assert.Equal(t, 0, task.Attempts)
	}

	require.NoError(t, pub.ProcessBatch(ctx))
	task := store.Outbox().Tasks()[0]
	assert.Equal(t, repository.TaskStatusDone, task.Status)
	assert.Equal(t, 1, task.Attempts)
}

func TestPublisher_ShutdownClosesProducer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	producer := mock_kafka.NewMockProducer(ctrl)
	pub := newPublisher(memory.New(), producer, 1)
	producer.EXPECT().Close().Return(nil).Times(1)

	done := make(chan struct{})
	go func() {
		pub.Run(context.Background())
		close(done)
	}()
	pub.Shutdown()
	pub.Shutdown()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestPublisher_ClaimFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_storage.NewMockOutboxTaskRepository(ctrl)
	producer := mock_kafka.NewMockProducer(ctrl)
	pub := kafka.NewPublisher(repo, producer, kafka.PublisherConfig{BatchSize: 5, MaxAttempts: 3}, zap.NewNop())

	repo.EXPECT().ClaimProcessable(gomock.Any(), 5, 3, gomock.Any()).Return(nil, errors.New("connection reset"))

	err := pub.ProcessBatch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPublisher_StatusUpdateFailureKeepsGoing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_storage.NewMockOutboxTaskRepository(ctrl)
	producer := mock_kafka.NewMockProducer(ctrl)
	pub := kafka.NewPublisher(repo, producer, kafka.PublisherConfig{BatchSize: 5, MaxAttempts: 3}, zap.NewNop())

	first := &repository.OutboxTask{ID: uuid.New(), Topic: "t", Status: repository.TaskStatusProcessing}
	second := &repository.OutboxTask{ID: uuid.New(), Topic: "t", Key: "box-2", Status: repository.TaskStatusProcessing}

	repo.EXPECT().ClaimProcessable(gomock.Any(), 5, 3, gomock.Any()).Return([]*repository.OutboxTask{first, second}, nil)
	producer.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	gomock.InOrder(
		repo.EXPECT().UpdateTaskStatus(gomock.Any(), first.ID, repository.TaskStatusDone, 1, gomock.Nil(), gomock.Any()).
			Return(errors.New("connection reset")),
		repo.EXPECT().UpdateTaskStatus(gomock.Any(), second.ID, repository.TaskStatusDone, 1, gomock.Nil(), gomock.Any()).
			Return(nil),
	)

	require.NoError(t, pub.ProcessBatch(context.Background()))
}
