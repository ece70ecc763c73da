package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// EnsureAdmin creates the metrics admin account on first start. An existing
// account keeps its password.
func EnsureAdmin(ctx context.Context, database DB, username, password string, logger *zap.Logger) error {
	if username == "" || password == "" {
		return nil
	}

	var count int
	err := database.ExecQueryRow(ctx, "SELECT COUNT(*) FROM admins WHERE username = $1", username).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking admin %s: %w", username, err)
	}
	if count > 0 {
		logger.Info("Admin user already exists", zap.String("username", username))
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	_, err = database.Exec(ctx, "INSERT INTO admins (username, password) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING", username, string(hashed))
	if err != nil {
		return fmt.Errorf("creating admin %s: %w", username, err)
	}
	logger.Info("Admin user created", zap.String("username", username))
	return nil
}
