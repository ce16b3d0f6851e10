package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/models"
)

// CredentialGate answers whether an influencer may broadcast right now:
// streaming enabled and a complete broadcaster pair in the vault.
type CredentialGate interface {
	BroadcastReady(ctx context.Context, influencerID uuid.UUID) (bool, error)
}

// Service drives the session lifecycle: scheduled -> live -> ended, with
// cancellation from scheduled. Ended and cancelled are terminal. Re-delivering
// the event that put a session in its current terminal-bound state is an
// idempotent success; any other event against a state that does not accept it
// fails with ErrIllegalTransition and changes nothing.
type Service struct {
	store  Store
	gate   CredentialGate
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a session lifecycle service.
func NewService(store Store, gate CredentialGate, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, gate: gate, logger: logger, now: time.Now}
}

// CreateParams describes a new session.
type CreateParams struct {
	InfluencerID       uuid.UUID
	Title              string
	Description        string
	Visibility         models.Visibility
	HasShowcase        bool
	ScheduledStartTime *time.Time
	// LiveNow creates the session directly in the live state, subject to the
	// same credential guard as Start.
	LiveNow bool
}

// Create persists a new session as scheduled, or directly live when LiveNow is set.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.LiveSession, error) {
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if p.Visibility == "" {
		p.Visibility = models.VisibilityPublic
	}
	sess := &models.LiveSession{
		InfluencerID: p.InfluencerID,
		Title:        p.Title,
		Description:  p.Description,
		Visibility:   p.Visibility,
		HasShowcase:  p.HasShowcase,
	}
	if p.LiveNow {
		if err := s.checkGate(ctx, p.InfluencerID); err != nil {
			return nil, err
		}
		now := s.now()
		sess.Status = models.StatusLive
		sess.ActualStartTime = &now
		sess.CurrentViewers = 0
	} else {
		if p.ScheduledStartTime == nil {
			return nil, fmt.Errorf("%w: scheduled_start_time is required for a scheduled session", ErrValidation)
		}
		sess.Status = models.StatusScheduled
		sess.ScheduledStartTime = p.ScheduledStartTime
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("session created",
		zap.String("session_id", sess.ID.String()),
		zap.String("influencer_id", p.InfluencerID.String()),
		zap.String("status", string(sess.Status)))
	return sess, nil
}

// Start moves a scheduled session to live. Starting an already-live session is
// an idempotent success that does not re-stamp actual_start_time.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*models.LiveSession, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case models.StatusLive:
		return sess, nil
	case models.StatusEnded, models.StatusCancelled:
		return nil, fmt.Errorf("%w: cannot start a %s session", ErrIllegalTransition, sess.Status)
	}

	if err := s.checkGate(ctx, sess.InfluencerID); err != nil {
		return nil, err
	}

	ok, err := s.store.StartLive(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if !ok {
		// Lost the race: someone else transitioned first. A concurrent start
		// is the idempotent case; anything else is illegal.
		sess, err = s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess.Status == models.StatusLive {
			return sess, nil
		}
		return nil, fmt.Errorf("%w: cannot start a %s session", ErrIllegalTransition, sess.Status)
	}
	sess, err = s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session live", zap.String("session_id", id.String()))
	return sess, nil
}

// End moves a live session to ended and folds the supplied final metrics.
// Ending an already-ended session does not re-stamp end_time but still folds
// metrics monotonically, so late metric deliveries are never lost and never
// lower a value.
func (s *Service) End(ctx context.Context, id uuid.UUID, metrics *models.EndMetrics) (*models.LiveSession, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var m models.EndMetrics
	if metrics != nil {
		m = *metrics
	}
	switch sess.Status {
	case models.StatusEnded:
		if metrics != nil {
			if err := s.store.FoldEndMetrics(ctx, id, m); err != nil {
				return nil, fmt.Errorf("fold end metrics: %w", err)
			}
		}
		return s.store.Get(ctx, id)
	case models.StatusScheduled, models.StatusCancelled:
		return nil, fmt.Errorf("%w: cannot end a %s session", ErrIllegalTransition, sess.Status)
	}

	ok, err := s.store.EndLive(ctx, id, s.now(), m)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if !ok {
		sess, err = s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess.Status == models.StatusEnded {
			if metrics != nil {
				if err := s.store.FoldEndMetrics(ctx, id, m); err != nil {
					return nil, fmt.Errorf("fold end metrics: %w", err)
				}
				return s.store.Get(ctx, id)
			}
			return sess, nil
		}
		return nil, fmt.Errorf("%w: cannot end a %s session", ErrIllegalTransition, sess.Status)
	}
	sess, err = s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session ended",
		zap.String("session_id", id.String()),
		zap.Int("peak_viewers", sess.PeakViewers),
		zap.Int("total_unique_viewers", sess.TotalUniqueViewers))
	return sess, nil
}

// Cancel moves a scheduled session to cancelled. Cancelling twice is an
// idempotent success.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*models.LiveSession, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case models.StatusCancelled:
		return sess, nil
	case models.StatusLive, models.StatusEnded:
		return nil, fmt.Errorf("%w: cannot cancel a %s session", ErrIllegalTransition, sess.Status)
	}

	ok, err := s.store.Cancel(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("cancel session: %w", err)
	}
	if !ok {
		sess, err = s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess.Status == models.StatusCancelled {
			return sess, nil
		}
		return nil, fmt.Errorf("%w: cannot cancel a %s session", ErrIllegalTransition, sess.Status)
	}
	s.logger.Info("session cancelled", zap.String("session_id", id.String()))
	return s.store.Get(ctx, id)
}

// Get returns one session.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.LiveSession, error) {
	return s.store.Get(ctx, id)
}

// RecordEngagement adds message/reaction counts to a live session. Counts
// against a non-live session are dropped silently; engagement telemetry never
// resurrects a terminal session's counters.
func (s *Service) RecordEngagement(ctx context.Context, id uuid.UUID, messages, reactions int) error {
	if messages <= 0 && reactions <= 0 {
		return nil
	}
	_, err := s.store.IncrementEngagement(ctx, id, messages, reactions)
	return err
}

func (s *Service) checkGate(ctx context.Context, influencerID uuid.UUID) error {
	ready, err := s.gate.BroadcastReady(ctx, influencerID)
	if err != nil {
		return fmt.Errorf("credential lookup: %w", err)
	}
	if !ready {
		return ErrNotProvisioned
	}
	return nil
}
