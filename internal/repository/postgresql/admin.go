package postgresql

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/db"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
)

type AdminRepo struct {
	db db.DB
}

func NewAdminRepo(db db.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

// ValidateAdmin reports whether the password matches the stored bcrypt hash.
// An unknown username is not an error.
func (r *AdminRepo) ValidateAdmin(ctx context.Context, username, password string) (bool, error) {
	var hashed string
	err := r.db.Get(ctx, &hashed, "SELECT password FROM admins WHERE username = $1", username)
	if err != nil {
		if errors.Is(translate(err), repository.ErrObjectNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("loading admin %s: %w", username, err)
	}
	err = bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
