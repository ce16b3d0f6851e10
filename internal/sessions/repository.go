package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamcart/backend/internal/models"
)

const sessionColumns = `id, influencer_id, title, description, thumbnail_key, visibility, has_showcase, status,
	scheduled_start_time, actual_start_time, end_time,
	current_viewers, peak_viewers, total_unique_viewers, total_messages, total_reactions, total_sales_cents,
	created_at, updated_at`

// Repository is the PostgreSQL Store. Every transition is a single conditional
// UPDATE so concurrent callers race on the status column, not on the Go side.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a live session repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) Create(ctx context.Context, s *models.LiveSession) error {
	const q = `INSERT INTO live_sessions
		(influencer_id, title, description, thumbnail_key, visibility, has_showcase, status, scheduled_start_time, actual_start_time, current_viewers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q,
		s.InfluencerID, s.Title, s.Description, s.ThumbnailKey, string(s.Visibility), s.HasShowcase,
		string(s.Status), s.ScheduledStartTime, s.ActualStartTime).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.LiveSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM live_sessions WHERE id = $1`
	s, err := scanSession(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *Repository) StartLive(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	const q = `UPDATE live_sessions
		SET status = 'live', actual_start_time = $2, current_viewers = 0, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'`
	tag, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) EndLive(ctx context.Context, id uuid.UUID, now time.Time, m models.EndMetrics) (bool, error) {
	const q = `UPDATE live_sessions
		SET status = 'ended', end_time = $2,
			peak_viewers = GREATEST(peak_viewers, $3),
			total_unique_viewers = GREATEST(total_unique_viewers, $4),
			total_sales_cents = total_sales_cents + $5,
			updated_at = NOW()
		WHERE id = $1 AND status = 'live'`
	tag, err := r.pool.Exec(ctx, q, id, now, m.PeakViewers, m.TotalUniqueViewers, m.TotalSalesCents)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) Cancel(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	const q = `UPDATE live_sessions
		SET status = 'cancelled', end_time = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'`
	tag, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) FoldEndMetrics(ctx context.Context, id uuid.UUID, m models.EndMetrics) error {
	const q = `UPDATE live_sessions
		SET peak_viewers = GREATEST(peak_viewers, $2),
			total_unique_viewers = GREATEST(total_unique_viewers, $3),
			total_sales_cents = total_sales_cents + $4,
			updated_at = NOW()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, m.PeakViewers, m.TotalUniqueViewers, m.TotalSalesCents)
	return err
}

func (r *Repository) ViewerJoined(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE live_sessions
		SET current_viewers = current_viewers + 1,
			peak_viewers = GREATEST(peak_viewers, current_viewers + 1),
			updated_at = NOW()
		WHERE id = $1 AND status = 'live'`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) CountUniqueViewer(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE live_sessions
		SET total_unique_viewers = total_unique_viewers + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'live'`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) ViewerLeft(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE live_sessions
		SET current_viewers = GREATEST(current_viewers - 1, 0), updated_at = NOW()
		WHERE id = $1 AND status = 'live'`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) IncrementEngagement(ctx context.Context, id uuid.UUID, messages, reactions int) (bool, error) {
	const q = `UPDATE live_sessions
		SET total_messages = total_messages + $2, total_reactions = total_reactions + $3, updated_at = NOW()
		WHERE id = $1 AND status = 'live'`
	tag, err := r.pool.Exec(ctx, q, id, messages, reactions)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) SetThumbnailKey(ctx context.Context, id uuid.UUID, key string) error {
	const q = `UPDATE live_sessions SET thumbnail_key = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListLive(ctx context.Context) ([]models.LiveSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM live_sessions
		WHERE status = 'live' AND visibility = 'public'
		ORDER BY current_viewers DESC, actual_start_time DESC`
	return r.list(ctx, q)
}

func (r *Repository) ListUpcoming(ctx context.Context) ([]models.LiveSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM live_sessions
		WHERE status = 'scheduled' AND visibility = 'public'
		ORDER BY scheduled_start_time ASC`
	return r.list(ctx, q)
}

func (r *Repository) ListByInfluencer(ctx context.Context, influencerID uuid.UUID) ([]models.LiveSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM live_sessions
		WHERE influencer_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, q, influencerID)
}

func (r *Repository) LiveStats(ctx context.Context) (models.LiveStats, error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(current_viewers), 0) FROM live_sessions WHERE status = 'live'`
	var stats models.LiveStats
	err := r.pool.QueryRow(ctx, q).Scan(&stats.LiveSessions, &stats.TotalViewers)
	return stats, err
}

func (r *Repository) DashboardStats(ctx context.Context, influencerID uuid.UUID) (models.DashboardStats, error) {
	const q = `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'live'),
		COALESCE(MAX(peak_viewers), 0),
		COALESCE(SUM(total_unique_viewers), 0),
		COALESCE(SUM(total_messages), 0),
		COALESCE(SUM(total_reactions), 0),
		COALESCE(SUM(total_sales_cents), 0)
		FROM live_sessions WHERE influencer_id = $1`
	stats := models.DashboardStats{InfluencerID: influencerID}
	err := r.pool.QueryRow(ctx, q, influencerID).Scan(
		&stats.TotalSessions, &stats.LiveNow, &stats.PeakViewers, &stats.TotalUniqueViewers,
		&stats.TotalMessages, &stats.TotalReactions, &stats.TotalSalesCents)
	return stats, err
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]models.LiveSession, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.LiveSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

func scanSession(row pgx.Row) (*models.LiveSession, error) {
	var s models.LiveSession
	var visibility, status string
	err := row.Scan(&s.ID, &s.InfluencerID, &s.Title, &s.Description, &s.ThumbnailKey, &visibility, &s.HasShowcase, &status,
		&s.ScheduledStartTime, &s.ActualStartTime, &s.EndTime,
		&s.CurrentViewers, &s.PeakViewers, &s.TotalUniqueViewers, &s.TotalMessages, &s.TotalReactions, &s.TotalSalesCents,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Visibility = models.Visibility(visibility)
	s.Status = models.SessionStatus(status)
	return &s, nil
}
