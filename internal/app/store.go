// Package app assembles the record-store backend selected by configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/config"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/db"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository/boltdb"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository/memory"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository/postgresql"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/server"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/storage"
)

const (
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
	BackendMemory   = "memory"
)

// Store bundles the repositories of one backend.
type Store struct {
	Boxes       storage.BoxRepository
	Invitations storage.InvitationRepository
	Outbox      storage.OutboxTaskRepository
	// Admin is nil when no admin account is configured.
	Admin server.AdminValidator
	Ping  func(ctx context.Context) error
	Close func()
}

func OpenStore(ctx context.Context, cfg config.Store, admin config.Admin, logger *zap.Logger) (*Store, error) {
	var st *Store
	switch cfg.Backend {
	case BackendPostgres:
		var err error
		if st, err = openPostgres(ctx, cfg.Postgres, admin, logger); err != nil {
			return nil, err
		}
	case BackendBolt:
		bolt, err := boltdb.Open(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("opening bolt store %s: %w", cfg.BoltPath, err)
		}
		st = &Store{
			Boxes:       bolt.Boxes(),
			Invitations: bolt.Invitations(),
			Outbox:      bolt.Outbox(),
			Ping:        func(context.Context) error { return nil },
			Close: func() {
				if err := bolt.Close(); err != nil {
					logger.Error("Failed to close bolt store", zap.Error(err))
				}
			},
		}
	case BackendMemory:
		mem := memory.New()
		st = &Store{
			Boxes:       mem.Boxes(),
			Invitations: mem.Invitations(),
			Outbox:      mem.Outbox(),
			Ping:        func(context.Context) error { return nil },
			Close:       func() {},
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if st.Admin == nil && admin.Username != "" && admin.PasswordHash != "" {
		st.Admin = server.StaticAdmin{Username: admin.Username, PasswordHash: admin.PasswordHash}
	}
	logger.Info("Record store ready", zap.String("backend", cfg.Backend))
	return st, nil
}

func openPostgres(ctx context.Context, cfg config.Postgres, admin config.Admin, logger *zap.Logger) (*Store, error) {
	database, err := db.NewDb(ctx, db.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Name:     cfg.Name,
		MaxConns: cfg.MaxConns,
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database, logger); err != nil {
		database.Close()
		return nil, err
	}
	if err := db.EnsureAdmin(ctx, database, admin.Username, admin.Password, logger); err != nil {
		database.Close()
		return nil, err
	}

	outbox := postgresql.NewOutboxTaskRepo(database)
	st := &Store{
		Boxes:       postgresql.NewBoxRepo(database),
		Invitations: postgresql.NewInvitationRepo(database, outbox),
		Outbox:      outbox,
		Ping:        database.Ping,
		Close:       database.Close,
	}
	if admin.Username != "" && admin.Password != "" {
		st.Admin = postgresql.NewAdminRepo(database)
	}
	return st, nil
}
