package data

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/gatewarden/gatewarden/internal/domain/auth"
)

// UserRepo reads identities from PostgreSQL. The authentication core never
// writes to the users table; account lifecycle belongs to the surrounding
// application.
type UserRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a new UserRepo over the given connection pool.
func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// FindByEmail resolves an identity by its email handle.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (domainauth.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return domainauth.Identity{}, ErrUserNotFound
	}

	var ident domainauth.Identity
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, is_active
		FROM users
		WHERE lower(email) = $1
	`, email).Scan(&ident.ID, &ident.Email, &ident.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainauth.Identity{}, ErrUserNotFound
		}
		return domainauth.Identity{}, fmt.Errorf("find user by email: %w", classifyStoreError(err))
	}

	return ident, nil
}

// FindByID resolves an identity by its numeric id.
func (r *UserRepo) FindByID(ctx context.Context, id int64) (domainauth.Identity, error) {
	var ident domainauth.Identity
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, is_active
		FROM users
		WHERE id = $1
	`, id).Scan(&ident.ID, &ident.Email, &ident.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainauth.Identity{}, ErrUserNotFound
		}
		return domainauth.Identity{}, fmt.Errorf("find user by id: %w", classifyStoreError(err))
	}

	return ident, nil
}

// VerifyPassword checks a raw password against the stored bcrypt hash. A
// mismatch is (false, nil); only lookup or hashing failures error.
func (r *UserRepo) VerifyPassword(ctx context.Context, id int64, raw string) (bool, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `
		SELECT password_hash
		FROM users
		WHERE id = $1
	`, id).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("load password hash: %w", classifyStoreError(err))
	}

	switch err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)); {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password hash: %w", err)
	}
}
