package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamcart/backend/internal/models"
)

// PartialUpdate describes the fields an admin is setting on a credential row.
// Nil fields are left untouched; an empty string clears the field.
type PartialUpdate struct {
	BroadcasterRoom  *string
	BroadcasterToken *string
	ViewerRoom       *string
	ViewerToken      *string
}

// Empty reports whether the update carries no fields at all.
func (p PartialUpdate) Empty() bool {
	return p.BroadcasterRoom == nil && p.BroadcasterToken == nil &&
		p.ViewerRoom == nil && p.ViewerToken == nil
}

// TouchesTokens reports whether the update sets either token value, which
// re-stamps token_created_at.
func (p PartialUpdate) TouchesTokens() bool {
	return p.BroadcasterToken != nil || p.ViewerToken != nil
}

const credentialColumns = `influencer_id, broadcaster_room, broadcaster_token,
	viewer_room, viewer_token, is_streaming_enabled, token_created_at, updated_at`

// Repository is the credential vault backed by Postgres. One row per
// influencer; rows are created empty at influencer initialization and only
// mutated through the issuance service.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a credential vault repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanCredential(row pgx.Row) (*models.InfluencerCredential, error) {
	var c models.InfluencerCredential
	err := row.Scan(&c.InfluencerID, &c.BroadcasterRoom, &c.BroadcasterToken,
		&c.ViewerRoom, &c.ViewerToken, &c.IsStreamingEnabled, &c.TokenCreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// GetByInfluencer returns the vault row for an influencer, or nil when absent.
func (r *Repository) GetByInfluencer(ctx context.Context, influencerID uuid.UUID) (*models.InfluencerCredential, error) {
	q := `SELECT ` + credentialColumns + ` FROM influencer_credentials WHERE influencer_id = $1`
	return scanCredential(r.pool.QueryRow(ctx, q, influencerID))
}

// Apply writes a partial update. Nil fields keep their current value via
// COALESCE; the upsert covers influencers initialized before the vault table
// existed. tokenCreatedAt is stamped only when the update touches a token.
func (r *Repository) Apply(ctx context.Context, influencerID uuid.UUID, upd PartialUpdate, tokenCreatedAt *time.Time) (*models.InfluencerCredential, error) {
	q := `INSERT INTO influencer_credentials
			(influencer_id, broadcaster_room, broadcaster_token, viewer_room, viewer_token, token_created_at, updated_at)
		VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), COALESCE($4, ''), COALESCE($5, ''), $6, NOW())
		ON CONFLICT (influencer_id) DO UPDATE SET
			broadcaster_room  = COALESCE($2, influencer_credentials.broadcaster_room),
			broadcaster_token = COALESCE($3, influencer_credentials.broadcaster_token),
			viewer_room       = COALESCE($4, influencer_credentials.viewer_room),
			viewer_token      = COALESCE($5, influencer_credentials.viewer_token),
			token_created_at  = COALESCE($6, influencer_credentials.token_created_at),
			updated_at        = NOW()
		RETURNING ` + credentialColumns
	return scanCredential(r.pool.QueryRow(ctx, q, influencerID,
		upd.BroadcasterRoom, upd.BroadcasterToken, upd.ViewerRoom, upd.ViewerToken, tokenCreatedAt))
}

// SetEnabled flips the streaming gate without touching stored tokens.
// Returns nil when the influencer has no vault row.
func (r *Repository) SetEnabled(ctx context.Context, influencerID uuid.UUID, enabled bool) (*models.InfluencerCredential, error) {
	q := `UPDATE influencer_credentials
		SET is_streaming_enabled = $2, updated_at = NOW()
		WHERE influencer_id = $1
		RETURNING ` + credentialColumns
	return scanCredential(r.pool.QueryRow(ctx, q, influencerID, enabled))
}

// BroadcastReady reports whether the influencer may go live: gate enabled and
// broadcaster pair complete. A missing row is simply not ready.
func (r *Repository) BroadcastReady(ctx context.Context, influencerID uuid.UUID) (bool, error) {
	const q = `SELECT is_streaming_enabled AND broadcaster_room <> '' AND broadcaster_token <> ''
		FROM influencer_credentials WHERE influencer_id = $1`
	var ready bool
	err := r.pool.QueryRow(ctx, q, influencerID).Scan(&ready)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return ready, nil
}

// ViewerAccessByInfluencer returns the watch access map for a set of
// influencers in one query. Influencers without a vault row or without a
// complete viewer pair come back limited.
func (r *Repository) ViewerAccessByInfluencer(ctx context.Context, influencerIDs []uuid.UUID) (map[uuid.UUID]models.WatchAccess, error) {
	access := make(map[uuid.UUID]models.WatchAccess, len(influencerIDs))
	for _, id := range influencerIDs {
		access[id] = models.WatchAccessLimited
	}
	if len(influencerIDs) == 0 {
		return access, nil
	}

	const q = `SELECT influencer_id FROM influencer_credentials
		WHERE influencer_id = ANY($1) AND viewer_room <> '' AND viewer_token <> ''`
	rows, err := r.pool.Query(ctx, q, influencerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		access[id] = models.WatchAccessFull
	}
	return access, rows.Err()
}

// ListAdminRows returns the admin dashboard: every influencer with their
// provisioning state and session aggregates, newest signups first.
func (r *Repository) ListAdminRows(ctx context.Context) ([]models.AdminInfluencerRow, error) {
	const q = `SELECT u.id, u.email, u.full_name, u.created_at,
			COALESCE(c.broadcaster_room, ''), COALESCE(c.broadcaster_token, ''),
			COALESCE(c.viewer_room, ''), COALESCE(c.viewer_token, ''),
			COALESCE(c.is_streaming_enabled, FALSE), c.token_created_at,
			COALESCE(c.updated_at, u.created_at),
			COUNT(s.id), COUNT(s.id) FILTER (WHERE s.status = 'live'),
			COALESCE(MAX(s.peak_viewers), 0)
		FROM users u
		LEFT JOIN influencer_credentials c ON c.influencer_id = u.id
		LEFT JOIN live_sessions s ON s.influencer_id = u.id
		WHERE u.role = 'influencer'
		GROUP BY u.id, u.email, u.full_name, u.created_at,
			c.broadcaster_room, c.broadcaster_token, c.viewer_room, c.viewer_token,
			c.is_streaming_enabled, c.token_created_at, c.updated_at
		ORDER BY u.created_at DESC`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.AdminInfluencerRow, 0)
	for rows.Next() {
		var (
			row  models.AdminInfluencerRow
			cred models.InfluencerCredential
		)
		err := rows.Scan(&row.InfluencerID, &row.Email, &row.FullName, &row.JoinedAt,
			&cred.BroadcasterRoom, &cred.BroadcasterToken,
			&cred.ViewerRoom, &cred.ViewerToken,
			&cred.IsStreamingEnabled, &cred.TokenCreatedAt, &cred.UpdatedAt,
			&row.TotalSessions, &row.LiveNow, &row.PeakViewers)
		if err != nil {
			return nil, err
		}
		cred.InfluencerID = row.InfluencerID
		row.Credential = cred.Status()
		out = append(out, row)
	}
	return out, rows.Err()
}
