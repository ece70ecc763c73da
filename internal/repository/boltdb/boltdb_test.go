package boltdb_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository/boltdb"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository/storetest"
)

func open(t *testing.T) storetest.Stores {
	s, err := boltdb.Open(filepath.Join(t.TempDir(), "lockbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return storetest.Stores{Boxes: s.Boxes(), Invitations: s.Invitations(), Outbox: s.Outbox()}
}

func TestBoxStore(t *testing.T)        { storetest.RunBoxRepository(t, open) }
func TestInvitationStore(t *testing.T) { storetest.RunInvitationRepository(t, open) }
func TestOutboxStore(t *testing.T)     { storetest.RunOutboxRepository(t, open) }

func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lockbox.db")
	s, err := boltdb.Open(path)
	require.NoError(t, err)
	b, err := lockbox.NewBox("b1", "owner-1", "papers", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, b.UpsertGuardian(lockbox.Guardian{ID: "g1", Name: "G"}, time.Now()))
	require.NoError(t, s.Boxes().Create(ctx, b))
	require.NoError(t, s.Close())

	s, err = boltdb.Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Boxes().Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	guarded, err := s.Boxes().ListByGuardian(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, guarded, 1)
}
