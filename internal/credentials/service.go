package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/admin"
	"github.com/streamcart/backend/internal/models"
)

var (
	// ErrNotFound means the influencer has no vault row.
	ErrNotFound = errors.New("influencer credentials not found")
	// ErrValidation means the request shape is invalid.
	ErrValidation = errors.New("validation failed")
)

// Minter produces a fresh broadcaster/viewer credential pair for an
// influencer. Implemented by the ZEGO token service.
type Minter interface {
	MintPair(influencerID uuid.UUID) (MintedPair, error)
}

// MintedPair is a freshly generated credential set.
type MintedPair struct {
	BroadcasterRoom  string
	BroadcasterToken string
	ViewerRoom       string
	ViewerToken      string
}

// Service is the admin-mediated issuance surface over the credential vault.
// Every call takes the caller's admin session explicitly and re-checks it
// against the clock: an expired session fails closed with
// admin.ErrSessionExpired even if the HTTP guard admitted the request.
type Service struct {
	vault  Vault
	minter Minter
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a credential issuance service. minter may be nil when
// token generation is not configured; Generate then fails with ErrValidation.
func NewService(vault Vault, minter Minter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{vault: vault, minter: minter, logger: logger, now: time.Now}
}

func (s *Service) requireLive(sess *admin.Session) error {
	if !sess.Live(s.now()) {
		return admin.ErrSessionExpired
	}
	return nil
}

// Status returns the presence-flag view of one influencer's credentials.
func (s *Service) Status(ctx context.Context, sess *admin.Session, influencerID uuid.UUID) (*models.CredentialStatus, error) {
	if err := s.requireLive(sess); err != nil {
		return nil, err
	}
	row, err := s.vault.GetByInfluencer(ctx, influencerID)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if row == nil {
		return nil, ErrNotFound
	}
	st := row.Status()
	return &st, nil
}

// SetManual applies an admin-entered partial credential update. Absent fields
// keep their stored values; setting either token re-stamps token_created_at.
func (s *Service) SetManual(ctx context.Context, sess *admin.Session, influencerID uuid.UUID, upd PartialUpdate) (*models.CredentialStatus, error) {
	if err := s.requireLive(sess); err != nil {
		return nil, err
	}
	if upd.Empty() {
		return nil, fmt.Errorf("%w: no credential fields provided", ErrValidation)
	}
	var stamp *time.Time
	if upd.TouchesTokens() {
		now := s.now()
		stamp = &now
	}
	row, err := s.vault.Apply(ctx, influencerID, upd, stamp)
	if err != nil {
		return nil, fmt.Errorf("apply credentials: %w", err)
	}
	s.logger.Info("credentials updated",
		zap.String("influencer_id", influencerID.String()),
		zap.String("admin_id", sess.AdminID.String()),
		zap.Bool("tokens_rotated", upd.TouchesTokens()))
	st := row.Status()
	return &st, nil
}

// Generate mints a fresh broadcaster/viewer pair and stores it, replacing any
// manually entered values for all four fields.
func (s *Service) Generate(ctx context.Context, sess *admin.Session, influencerID uuid.UUID) (*models.CredentialStatus, error) {
	if err := s.requireLive(sess); err != nil {
		return nil, err
	}
	if s.minter == nil {
		return nil, fmt.Errorf("%w: token generation is not configured", ErrValidation)
	}
	pair, err := s.minter.MintPair(influencerID)
	if err != nil {
		return nil, fmt.Errorf("mint credentials: %w", err)
	}
	now := s.now()
	row, err := s.vault.Apply(ctx, influencerID, PartialUpdate{
		BroadcasterRoom:  &pair.BroadcasterRoom,
		BroadcasterToken: &pair.BroadcasterToken,
		ViewerRoom:       &pair.ViewerRoom,
		ViewerToken:      &pair.ViewerToken,
	}, &now)
	if err != nil {
		return nil, fmt.Errorf("store minted credentials: %w", err)
	}
	s.logger.Info("credentials generated",
		zap.String("influencer_id", influencerID.String()),
		zap.String("admin_id", sess.AdminID.String()))
	st := row.Status()
	return &st, nil
}

// SetStreamingEnabled flips the go-live gate. Stored tokens are untouched, so
// re-enabling restores the previous provisioning state.
func (s *Service) SetStreamingEnabled(ctx context.Context, sess *admin.Session, influencerID uuid.UUID, enabled bool) (*models.CredentialStatus, error) {
	if err := s.requireLive(sess); err != nil {
		return nil, err
	}
	row, err := s.vault.SetEnabled(ctx, influencerID, enabled)
	if err != nil {
		return nil, fmt.Errorf("set streaming gate: %w", err)
	}
	if row == nil {
		return nil, ErrNotFound
	}
	s.logger.Info("streaming gate set",
		zap.String("influencer_id", influencerID.String()),
		zap.String("admin_id", sess.AdminID.String()),
		zap.Bool("enabled", enabled))
	st := row.Status()
	return &st, nil
}

// AdminRows returns the admin dashboard rows.
func (s *Service) AdminRows(ctx context.Context, sess *admin.Session) ([]models.AdminInfluencerRow, error) {
	if err := s.requireLive(sess); err != nil {
		return nil, err
	}
	return s.vault.ListAdminRows(ctx)
}

// BroadcastReady satisfies the session lifecycle's credential gate.
func (s *Service) BroadcastReady(ctx context.Context, influencerID uuid.UUID) (bool, error) {
	return s.vault.BroadcastReady(ctx, influencerID)
}
