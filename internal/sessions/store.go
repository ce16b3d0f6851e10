package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/models"
)

// Store is the persistence abstraction for live sessions. Transition methods
// are conditional: the status check and the write are one operation, so two
// concurrent callers cannot both stamp a timestamp. They return false (not an
// error) when the row was not in the required status; the Service decides
// whether that is an idempotent no-op or an illegal transition.
type Store interface {
	Create(ctx context.Context, s *models.LiveSession) error
	Get(ctx context.Context, id uuid.UUID) (*models.LiveSession, error)

	// StartLive moves scheduled -> live, stamping actual_start_time and
	// resetting current_viewers to 0.
	StartLive(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// EndLive moves live -> ended, stamping end_time and folding metrics
	// (MAX for peak and unique viewers, SUM for sales).
	EndLive(ctx context.Context, id uuid.UUID, now time.Time, m models.EndMetrics) (bool, error)
	// Cancel moves scheduled -> cancelled, stamping end_time.
	Cancel(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// FoldEndMetrics merges metrics monotonically without touching status or
	// timestamps (repeat end calls, wrap-up jobs).
	FoldEndMetrics(ctx context.Context, id uuid.UUID, m models.EndMetrics) error

	// ViewerJoined bumps current_viewers (raising peak alongside) on a live
	// session. Returns false when the session is not live.
	ViewerJoined(ctx context.Context, id uuid.UUID) (bool, error)
	// CountUniqueViewer bumps total_unique_viewers on a live session. Returns
	// false when the session is not live.
	CountUniqueViewer(ctx context.Context, id uuid.UUID) (bool, error)
	// ViewerLeft decrements current_viewers, clamped at zero, on a live session.
	ViewerLeft(ctx context.Context, id uuid.UUID) (bool, error)
	// IncrementEngagement adds message/reaction counts to a live session.
	IncrementEngagement(ctx context.Context, id uuid.UUID, messages, reactions int) (bool, error)

	SetThumbnailKey(ctx context.Context, id uuid.UUID, key string) error

	// ListLive returns public live sessions ordered by current_viewers descending.
	ListLive(ctx context.Context) ([]models.LiveSession, error)
	// ListUpcoming returns public scheduled sessions ordered by scheduled start ascending.
	ListUpcoming(ctx context.Context) ([]models.LiveSession, error)
	ListByInfluencer(ctx context.Context, influencerID uuid.UUID) ([]models.LiveSession, error)
	LiveStats(ctx context.Context) (models.LiveStats, error)
	DashboardStats(ctx context.Context, influencerID uuid.UUID) (models.DashboardStats, error)
}

// InMemoryStore is an in-memory Store used in tests and single-node setups.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.LiveSession
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[uuid.UUID]*models.LiveSession)}
}

func (s *InMemoryStore) Create(_ context.Context, sess *models.LiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	now := time.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*models.LiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *InMemoryStore) StartLive(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Status != models.StatusScheduled {
		return false, nil
	}
	t := now
	sess.Status = models.StatusLive
	sess.ActualStartTime = &t
	sess.CurrentViewers = 0
	sess.UpdatedAt = now
	return true, nil
}

func (s *InMemoryStore) EndLive(_ context.Context, id uuid.UUID, now time.Time, m models.EndMetrics) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Status != models.StatusLive {
		return false, nil
	}
	t := now
	sess.Status = models.StatusEnded
	sess.EndTime = &t
	fold(sess, m)
	sess.UpdatedAt = now
	return true, nil
}

func (s *InMemoryStore) Cancel(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Status != models.StatusScheduled {
		return false, nil
	}
	t := now
	sess.Status = models.StatusCancelled
	sess.EndTime = &t
	sess.UpdatedAt = now
	return true, nil
}

func (s *InMemoryStore) FoldEndMetrics(_ context.Context, id uuid.UUID, m models.EndMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	fold(sess, m)
	sess.UpdatedAt = time.Now()
	return nil
}

func fold(sess *models.LiveSession, m models.EndMetrics) {
	if m.PeakViewers > sess.PeakViewers {
		sess.PeakViewers = m.PeakViewers
	}
	if m.TotalUniqueViewers > sess.TotalUniqueViewers {
		sess.TotalUniqueViewers = m.TotalUniqueViewers
	}
	sess.TotalSalesCents += m.TotalSalesCents
}

func (s *InMemoryStore) ViewerJoined(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Status != models.StatusLive {
		return false, nil
	}
	sess.CurrentViewers++
	if sess.CurrentViewers > sess.PeakViewers {
		sess.PeakViewers = sess.CurrentViewers
	}
	sess.UpdatedAt = time.Now()
	return true, nil
}

func (s *InMemoryStore) CountUniqueViewer(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Status != models.StatusLive {
		return false, nil
	}
	sess.TotalUniqueViewers++
	sess.UpdatedAt = time.Now()
	return true, nil
}

func (s *InMemoryStore) ViewerLeft(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Status != models.StatusLive {
		return false, nil
	}
	if sess.CurrentViewers > 0 {
		sess.CurrentViewers--
	}
	sess.UpdatedAt = time.Now()
	return true, nil
}

func (s *InMemoryStore) IncrementEngagement(_ context.Context, id uuid.UUID, messages, reactions int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Status != models.StatusLive {
		return false, nil
	}
	sess.TotalMessages += messages
	sess.TotalReactions += reactions
	sess.UpdatedAt = time.Now()
	return true, nil
}

func (s *InMemoryStore) SetThumbnailKey(_ context.Context, id uuid.UUID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.ThumbnailKey = key
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) ListLive(_ context.Context) ([]models.LiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.LiveSession
	for _, sess := range s.sessions {
		if sess.Status == models.StatusLive && sess.Visibility == models.VisibilityPublic {
			list = append(list, *sess)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CurrentViewers > list[j].CurrentViewers })
	return list, nil
}

func (s *InMemoryStore) ListUpcoming(_ context.Context) ([]models.LiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.LiveSession
	for _, sess := range s.sessions {
		if sess.Status == models.StatusScheduled && sess.Visibility == models.VisibilityPublic && sess.ScheduledStartTime != nil {
			list = append(list, *sess)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ScheduledStartTime.Before(*list[j].ScheduledStartTime)
	})
	return list, nil
}

func (s *InMemoryStore) ListByInfluencer(_ context.Context, influencerID uuid.UUID) ([]models.LiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.LiveSession
	for _, sess := range s.sessions {
		if sess.InfluencerID == influencerID {
			list = append(list, *sess)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *InMemoryStore) LiveStats(_ context.Context) (models.LiveStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats models.LiveStats
	for _, sess := range s.sessions {
		if sess.Status == models.StatusLive {
			stats.LiveSessions++
			stats.TotalViewers += sess.CurrentViewers
		}
	}
	return stats, nil
}

func (s *InMemoryStore) DashboardStats(_ context.Context, influencerID uuid.UUID) (models.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := models.DashboardStats{InfluencerID: influencerID}
	for _, sess := range s.sessions {
		if sess.InfluencerID != influencerID {
			continue
		}
		stats.TotalSessions++
		if sess.Status == models.StatusLive {
			stats.LiveNow++
		}
		if sess.PeakViewers > stats.PeakViewers {
			stats.PeakViewers = sess.PeakViewers
		}
		stats.TotalUniqueViewers += sess.TotalUniqueViewers
		stats.TotalMessages += sess.TotalMessages
		stats.TotalReactions += sess.TotalReactions
		stats.TotalSalesCents += sess.TotalSalesCents
	}
	return stats, nil
}
