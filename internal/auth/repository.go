package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamcart/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, email, password_hash, full_name, role, profile, created_at, updated_at FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, q, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, email, password_hash, full_name, role, profile, created_at, updated_at FROM users WHERE email = $1`
	return r.scanUser(r.pool.QueryRow(ctx, q, email))
}

type row interface {
	Scan(dest ...any) error
}

func (r *Repository) scanUser(rw row) (*models.User, error) {
	var u models.User
	var role string
	var profile []byte
	if err := rw.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &role, &profile, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &u.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	return &u, nil
}

// Create inserts a new user. Influencer accounts are created through
// influencers.Repository.Initialize instead, so the empty credential row is
// provisioned in the same transaction.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	const q = `INSERT INTO users (email, password_hash, full_name, role, profile)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, u.Email, u.Password, u.FullName, string(u.Role), profile).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}
