package discovery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/internal/sessions"
)

// AccessReader resolves watch access for a set of influencers from the
// credential vault: a complete viewer pair means full access, anything else is
// limited.
type AccessReader interface {
	ViewerAccessByInfluencer(ctx context.Context, influencerIDs []uuid.UUID) (map[uuid.UUID]models.WatchAccess, error)
}

// Service builds the shopper-facing read projections. Everything here is
// derived from session and vault state; nothing in this package mutates.
type Service struct {
	store  sessions.Store
	access AccessReader
	logger *zap.Logger
}

// NewService creates a discovery service.
func NewService(store sessions.Store, access AccessReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, access: access, logger: logger}
}

// decorate attaches watch access to a session list. A vault read failure
// degrades to limited access rather than failing the listing: limited is the
// safe floor and discovery must stay up.
func (s *Service) decorate(ctx context.Context, list []models.LiveSession) []models.LiveSessionView {
	ids := make([]uuid.UUID, 0, len(list))
	seen := make(map[uuid.UUID]struct{}, len(list))
	for _, sess := range list {
		if _, ok := seen[sess.InfluencerID]; !ok {
			seen[sess.InfluencerID] = struct{}{}
			ids = append(ids, sess.InfluencerID)
		}
	}

	access, err := s.access.ViewerAccessByInfluencer(ctx, ids)
	if err != nil {
		s.logger.Warn("watch access lookup failed, defaulting to limited", zap.Error(err))
		access = nil
	}

	out := make([]models.LiveSessionView, 0, len(list))
	for _, sess := range list {
		wa := models.WatchAccessLimited
		if a, ok := access[sess.InfluencerID]; ok {
			wa = a
		}
		out = append(out, models.LiveSessionView{LiveSession: sess, WatchAccess: wa})
	}
	return out
}

// ListLive returns public live sessions, busiest first, each annotated with
// the viewer's watch access.
func (s *Service) ListLive(ctx context.Context) ([]models.LiveSessionView, error) {
	list, err := s.store.ListLive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list live: %w", err)
	}
	return s.decorate(ctx, list), nil
}

// ListUpcoming returns public scheduled sessions, soonest first.
func (s *Service) ListUpcoming(ctx context.Context) ([]models.LiveSessionView, error) {
	list, err := s.store.ListUpcoming(ctx)
	if err != nil {
		return nil, fmt.Errorf("list upcoming: %w", err)
	}
	return s.decorate(ctx, list), nil
}

// LiveStats returns the platform-wide live snapshot.
func (s *Service) LiveStats(ctx context.Context) (models.LiveStats, error) {
	return s.store.LiveStats(ctx)
}

// Dashboard returns an influencer's aggregate stats and their sessions.
func (s *Service) Dashboard(ctx context.Context, influencerID uuid.UUID) (*models.DashboardStats, []models.LiveSession, error) {
	stats, err := s.store.DashboardStats(ctx, influencerID)
	if err != nil {
		return nil, nil, fmt.Errorf("dashboard stats: %w", err)
	}
	list, err := s.store.ListByInfluencer(ctx, influencerID)
	if err != nil {
		return nil, nil, fmt.Errorf("list sessions: %w", err)
	}
	return &stats, list, nil
}
