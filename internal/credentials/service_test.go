package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/admin"
)

type stubMinter struct{}

func (stubMinter) MintPair(influencerID uuid.UUID) (MintedPair, error) {
	return MintedPair{
		BroadcasterRoom:  "live_" + influencerID.String(),
		BroadcasterToken: "btok",
		ViewerRoom:       "live_" + influencerID.String(),
		ViewerToken:      "vtok",
	}, nil
}

func liveSession() *admin.Session {
	now := time.Now()
	return &admin.Session{
		AdminID:   uuid.New(),
		Email:     "ops@example.com",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func expiredSession() *admin.Session {
	now := time.Now()
	return &admin.Session{
		AdminID:   uuid.New(),
		Email:     "ops@example.com",
		IssuedAt:  now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
}

func strptr(s string) *string { return &s }

func TestSetManualPartialUpdate(t *testing.T) {
	vault := NewMemoryVault()
	svc := NewService(vault, stubMinter{}, nil)
	ctx := context.Background()
	influencer := uuid.New()
	vault.Seed(influencer)
	sess := liveSession()

	st, err := svc.SetManual(ctx, sess, influencer, PartialUpdate{
		BroadcasterRoom:  strptr("room-a"),
		BroadcasterToken: strptr("tok-a"),
	})
	if err != nil {
		t.Fatalf("SetManual() error = %v", err)
	}
	if st.BroadcasterRoom != "room-a" || !st.HasBroadcasterToken {
		t.Fatalf("broadcaster pair not stored: %+v", st)
	}
	if st.TokenCreatedAt == nil {
		t.Fatalf("token_created_at not stamped when token set")
	}
	firstStamp := *st.TokenCreatedAt

	// Second update touches only the viewer room: broadcaster fields and the
	// token stamp must survive.
	st, err = svc.SetManual(ctx, sess, influencer, PartialUpdate{
		ViewerRoom: strptr("room-v"),
	})
	if err != nil {
		t.Fatalf("SetManual() second error = %v", err)
	}
	if st.BroadcasterRoom != "room-a" || !st.HasBroadcasterToken {
		t.Fatalf("partial update clobbered broadcaster pair: %+v", st)
	}
	if st.ViewerRoom != "room-v" || st.HasViewerToken {
		t.Fatalf("viewer room update wrong: %+v", st)
	}
	if !st.TokenCreatedAt.Equal(firstStamp) {
		t.Fatalf("token_created_at re-stamped by non-token update")
	}
}

func TestSetManualRejectsEmptyUpdate(t *testing.T) {
	svc := NewService(NewMemoryVault(), stubMinter{}, nil)
	_, err := svc.SetManual(context.Background(), liveSession(), uuid.New(), PartialUpdate{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("SetManual() empty error = %v, want ErrValidation", err)
	}
}

func TestExpiredSessionFailsClosed(t *testing.T) {
	vault := NewMemoryVault()
	svc := NewService(vault, stubMinter{}, nil)
	ctx := context.Background()
	influencer := uuid.New()
	vault.Seed(influencer)
	sess := expiredSession()

	if _, err := svc.SetManual(ctx, sess, influencer, PartialUpdate{ViewerRoom: strptr("r")}); !errors.Is(err, admin.ErrSessionExpired) {
		t.Fatalf("SetManual() error = %v, want ErrSessionExpired", err)
	}
	if _, err := svc.Generate(ctx, sess, influencer); !errors.Is(err, admin.ErrSessionExpired) {
		t.Fatalf("Generate() error = %v, want ErrSessionExpired", err)
	}
	if _, err := svc.SetStreamingEnabled(ctx, sess, influencer, true); !errors.Is(err, admin.ErrSessionExpired) {
		t.Fatalf("SetStreamingEnabled() error = %v, want ErrSessionExpired", err)
	}
	if _, err := svc.Status(ctx, sess, influencer); !errors.Is(err, admin.ErrSessionExpired) {
		t.Fatalf("Status() error = %v, want ErrSessionExpired", err)
	}

	// Nothing leaked through.
	row, err := vault.GetByInfluencer(ctx, influencer)
	if err != nil {
		t.Fatalf("GetByInfluencer() error = %v", err)
	}
	if row.ViewerRoom != "" {
		t.Fatalf("expired session mutated the vault")
	}
}

func TestNilSessionFailsClosed(t *testing.T) {
	svc := NewService(NewMemoryVault(), stubMinter{}, nil)
	if _, err := svc.Status(context.Background(), nil, uuid.New()); !errors.Is(err, admin.ErrSessionExpired) {
		t.Fatalf("Status() with nil session error = %v, want ErrSessionExpired", err)
	}
}

func TestEnableDisablePreservesTokens(t *testing.T) {
	vault := NewMemoryVault()
	svc := NewService(vault, stubMinter{}, nil)
	ctx := context.Background()
	influencer := uuid.New()
	vault.Seed(influencer)
	sess := liveSession()

	if _, err := svc.Generate(ctx, sess, influencer); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	st, err := svc.SetStreamingEnabled(ctx, sess, influencer, true)
	if err != nil {
		t.Fatalf("SetStreamingEnabled(true) error = %v", err)
	}
	if !st.BroadcastReady {
		t.Fatalf("broadcast_ready = false after generate + enable")
	}

	st, err = svc.SetStreamingEnabled(ctx, sess, influencer, false)
	if err != nil {
		t.Fatalf("SetStreamingEnabled(false) error = %v", err)
	}
	if st.BroadcastReady {
		t.Fatalf("broadcast_ready = true while disabled")
	}
	if !st.HasBroadcasterToken || !st.HasViewerToken {
		t.Fatalf("disable dropped stored tokens: %+v", st)
	}

	st, err = svc.SetStreamingEnabled(ctx, sess, influencer, true)
	if err != nil {
		t.Fatalf("SetStreamingEnabled(re-enable) error = %v", err)
	}
	if !st.BroadcastReady {
		t.Fatalf("re-enable did not restore broadcast readiness")
	}
}

func TestBroadcastReadyGate(t *testing.T) {
	vault := NewMemoryVault()
	svc := NewService(vault, stubMinter{}, nil)
	ctx := context.Background()
	influencer := uuid.New()
	vault.Seed(influencer)

	ready, err := svc.BroadcastReady(ctx, influencer)
	if err != nil {
		t.Fatalf("BroadcastReady() error = %v", err)
	}
	if ready {
		t.Fatalf("empty vault row reported ready")
	}

	sess := liveSession()
	if _, err := svc.Generate(ctx, sess, influencer); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// Tokens alone are not enough; the gate must be enabled too.
	ready, err = svc.BroadcastReady(ctx, influencer)
	if err != nil {
		t.Fatalf("BroadcastReady() error = %v", err)
	}
	if ready {
		t.Fatalf("ready with streaming disabled")
	}

	if _, err := svc.SetStreamingEnabled(ctx, sess, influencer, true); err != nil {
		t.Fatalf("SetStreamingEnabled() error = %v", err)
	}
	ready, err = svc.BroadcastReady(ctx, influencer)
	if err != nil {
		t.Fatalf("BroadcastReady() error = %v", err)
	}
	if !ready {
		t.Fatalf("not ready with tokens + gate enabled")
	}
}

func TestSetStreamingEnabledMissingRow(t *testing.T) {
	svc := NewService(NewMemoryVault(), stubMinter{}, nil)
	_, err := svc.SetStreamingEnabled(context.Background(), liveSession(), uuid.New(), true)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetStreamingEnabled() error = %v, want ErrNotFound", err)
	}
}
