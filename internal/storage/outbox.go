//go:generate mockgen -source ./outbox.go -destination=./mocks/outbox.go -package=mock_storage
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
)

// OutboxTaskRepository is the relay side of the transactional outbox.
// Producers of tasks write them through the invitation repository so the
// event commits together with the state change.
type OutboxTaskRepository interface {
	// ClaimProcessable marks up to limit claimable tasks PROCESSING and
	// returns them. Tasks already claimed by a concurrent relay are skipped.
	ClaimProcessable(ctx context.Context, limit, maxAttempts int, staleBefore time.Time) ([]*repository.OutboxTask, error)
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, completedAt *time.Time) error
}
