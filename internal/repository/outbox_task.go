package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
)

type TaskStatus string

const (
	TaskStatusCreated    TaskStatus = "CREATED"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusFailed     TaskStatus = "FAILED"
	TaskStatusDone       TaskStatus = "DONE"
)

type OutboxTask struct {
	ID          uuid.UUID         `db:"id"`
	Status      TaskStatus        `db:"status"`
	Topic       string            `db:"topic"`
	Key         string            `db:"key"`
	Payload     json.RawMessage   `db:"payload"`
	Attributes  map[string]string `db:"attributes"`
	Attempts    int               `db:"attempts"`
	LastError   *string           `db:"last_error"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
	CompletedAt *time.Time        `db:"completed_at"`
}

// Claimable reports whether the relay may pick the task up: fresh, failed
// with attempts left, or stuck in PROCESSING since before staleBefore.
func (t *OutboxTask) Claimable(maxAttempts int, staleBefore time.Time) bool {
	switch t.Status {
	case TaskStatusCreated:
		return true
	case TaskStatusFailed:
		return t.Attempts < maxAttempts
	case TaskStatusProcessing:
		return t.UpdatedAt.Before(staleBefore)
	}
	return false
}

// NewEventTask wraps an invitation event for the outbox. The box id is the
// message key so events of one box share a partition.
func NewEventTask(topic string, e lockbox.InvitationEvent) (*OutboxTask, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding event %s: %w", e.EventID, err)
	}
	return &OutboxTask{
		ID:         uuid.New(),
		Status:     TaskStatusCreated,
		Topic:      topic,
		Key:        e.BoxID,
		Payload:    payload,
		Attributes: map[string]string{lockbox.EventTypeAttribute: string(e.EventType)},
	}, nil
}
