package admin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Account is a platform operator account, disjoint from the users table.
type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository handles admin account persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an admin account repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByEmail returns an admin account by email, or nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	const q = `SELECT id, email, password_hash, created_at FROM admin_accounts WHERE email = $1`
	var a Account
	err := r.pool.QueryRow(ctx, q, email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// EnsureBootstrap seeds an admin account if none exists for the email.
// Used at boot when ADMIN_BOOTSTRAP_EMAIL/PASSWORD are configured.
func (r *Repository) EnsureBootstrap(ctx context.Context, email, passwordHash string) error {
	const q = `INSERT INTO admin_accounts (email, password_hash) VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, email, passwordHash)
	return err
}
