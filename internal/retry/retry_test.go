package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
)

func TestOnConflict(t *testing.T) {
	p := Policy{MaxAttempts: 4, BaseDelay: time.Millisecond}
	ctx := context.Background()

	t.Run("Succeeds After Conflicts", func(t *testing.T) {
		calls := 0
		err := OnConflict(ctx, p, "test", func() error {
			calls++
			if calls < 3 {
				return repository.ErrVersionConflict
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("Budget Spent", func(t *testing.T) {
		calls := 0
		err := OnConflict(ctx, p, "test", func() error {
			calls++
			return repository.ErrVersionConflict
		})
		assert.ErrorIs(t, err, repository.ErrVersionConflict)
		assert.Equal(t, 4, calls)
	})

	t.Run("Other Errors Stop At Once", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		err := OnConflict(ctx, p, "test", func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		err := OnConflict(ctx, Policy{MaxAttempts: 10, BaseDelay: time.Second}, "test", func() error {
			return repository.ErrVersionConflict
		})
		assert.Error(t, err)
	})
}
