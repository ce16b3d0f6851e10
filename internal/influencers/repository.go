package influencers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamcart/backend/internal/models"
)

// Repository provisions influencer accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an influencers repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Initialize creates an influencer account and its empty credential vault row
// in a single transaction. Either both rows exist afterwards or neither does;
// there is no partially provisioned influencer to repair later.
func (r *Repository) Initialize(ctx context.Context, u *models.User) error {
	if u.Role != models.RoleInfluencer {
		return fmt.Errorf("initialize influencer: role is %q", u.Role)
	}
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertUser = `INSERT INTO users (email, password_hash, full_name, role, profile)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertUser, u.Email, u.Password, u.FullName, string(u.Role), profile).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	const insertCredential = `INSERT INTO influencer_credentials (influencer_id) VALUES ($1)`
	if _, err := tx.Exec(ctx, insertCredential, u.ID); err != nil {
		return fmt.Errorf("insert credential row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
