//go:build integration

package postgresql

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/db"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository/storetest"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// open connects to the database named by DB_* and empties every table.
func open(t *testing.T) storetest.Stores {
	ctx := context.Background()
	port, err := strconv.Atoi(envOr("DB_PORT", "5432"))
	require.NoError(t, err)
	database, err := db.NewDb(ctx, db.Config{
		Host:     envOr("DB_HOST", "localhost"),
		Port:     port,
		User:     envOr("DB_USER", "postgres"),
		Password: envOr("DB_PASSWORD", "postgres"),
		Name:     envOr("DB_NAME", "test_db"),
	})
	require.NoError(t, err)
	t.Cleanup(database.Close)

	require.NoError(t, db.Migrate(ctx, database, zap.NewNop()))
	_, err = database.Exec(ctx, "TRUNCATE boxes, invitations, outbox_tasks")
	require.NoError(t, err)

	outbox := NewOutboxTaskRepo(database)
	return storetest.Stores{
		Boxes:       NewBoxRepo(database),
		Invitations: NewInvitationRepo(database, outbox),
		Outbox:      outbox,
	}
}

func TestBoxRepoIntegration(t *testing.T)        { storetest.RunBoxRepository(t, open) }
func TestInvitationRepoIntegration(t *testing.T) { storetest.RunInvitationRepository(t, open) }
func TestOutboxRepoIntegration(t *testing.T)     { storetest.RunOutboxRepository(t, open) }
