package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/models"
)

type stubGate struct {
	ready bool
	err   error
}

func (g stubGate) BroadcastReady(_ context.Context, _ uuid.UUID) (bool, error) {
	return g.ready, g.err
}

func newTestService(t *testing.T, gate CredentialGate) (*Service, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	return NewService(store, gate, nil), store
}

func createScheduled(t *testing.T, svc *Service) *models.LiveSession {
	t.Helper()
	start := time.Now().Add(time.Hour)
	sess, err := svc.Create(context.Background(), CreateParams{
		InfluencerID:       uuid.New(),
		Title:              "sneaker drop",
		ScheduledStartTime: &start,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return sess
}

func TestCreateRequiresTitle(t *testing.T) {
	svc, _ := newTestService(t, stubGate{ready: true})
	_, err := svc.Create(context.Background(), CreateParams{InfluencerID: uuid.New()})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Create() error = %v, want ErrValidation", err)
	}
}

func TestCreateScheduledRequiresStartTime(t *testing.T) {
	svc, _ := newTestService(t, stubGate{ready: true})
	_, err := svc.Create(context.Background(), CreateParams{
		InfluencerID: uuid.New(),
		Title:        "no start time",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Create() error = %v, want ErrValidation", err)
	}
}

func TestCreateLiveNowChecksGate(t *testing.T) {
	svc, _ := newTestService(t, stubGate{ready: false})
	_, err := svc.Create(context.Background(), CreateParams{
		InfluencerID: uuid.New(),
		Title:        "instant live",
		LiveNow:      true,
	})
	if !errors.Is(err, ErrNotProvisioned) {
		t.Fatalf("Create() error = %v, want ErrNotProvisioned", err)
	}
}

func TestCreateLiveNowStampsStart(t *testing.T) {
	svc, _ := newTestService(t, stubGate{ready: true})
	sess, err := svc.Create(context.Background(), CreateParams{
		InfluencerID: uuid.New(),
		Title:        "instant live",
		LiveNow:      true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.Status != models.StatusLive {
		t.Fatalf("status = %q, want live", sess.Status)
	}
	if sess.ActualStartTime == nil {
		t.Fatalf("actual_start_time not set on live-now create")
	}
}

func TestStartRequiresProvisionedCredentials(t *testing.T) {
	svc, _ := newTestService(t, stubGate{ready: false})
	sess := createScheduled(t, svc)

	_, err := svc.Start(context.Background(), sess.ID)
	if !errors.Is(err, ErrNotProvisioned) {
		t.Fatalf("Start() error = %v, want ErrNotProvisioned", err)
	}

	got, err := svc.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != models.StatusScheduled {
		t.Fatalf("status after failed start = %q, want scheduled", got.Status)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, stubGate{ready: true})
	sess := createScheduled(t, svc)

	first, err := svc.Start(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	second, err := svc.Start(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Start() second error = %v", err)
	}
	if !first.ActualStartTime.Equal(*second.ActualStartTime) {
		t.Fatalf("second start re-stamped actual_start_time: %v != %v",
			first.ActualStartTime, second.ActualStartTime)
	}
}

func TestStartAfterTerminalFails(t *testing.T) {
	svc, _ := newTestService(t, stubGate{ready: true})
	sess := createScheduled(t, svc)

	if _, err := svc.Cancel(context.Background(), sess.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	_, err := svc.Start(context.Background(), sess.ID)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("Start() after cancel error = %v, want ErrIllegalTransition", err)
	}
}

func TestEndScheduledFails(t *testing.T) {
	svc, _ := newTestService(t, stubGate{ready: true})
	sess := createScheduled(t, svc)

	_, err := svc.End(context.Background(), sess.ID, nil)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("End() on scheduled error = %v, want ErrIllegalTransition", err)
	}
}

func TestEndFoldsMetricsMonotonically(t *testing.T) {
	svc, store := newTestService(t, stubGate{ready: true})
	sess := createScheduled(t, svc)
	ctx := context.Background()

	if _, err := svc.Start(ctx, sess.ID); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := store.ViewerJoined(ctx, sess.ID); err != nil {
			t.Fatalf("ViewerJoined() error = %v", err)
		}
	}

	ended, err := svc.End(ctx, sess.ID, &models.EndMetrics{
		PeakViewers:        2, // below server-observed peak, must not lower it
		TotalUniqueViewers: 9,
		TotalSalesCents:    1500,
	})
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.PeakViewers != 4 {
		t.Fatalf("peak_viewers = %d, want 4", ended.PeakViewers)
	}
	if ended.TotalUniqueViewers != 9 {
		t.Fatalf("total_unique_viewers = %d, want 9", ended.TotalUniqueViewers)
	}
	if ended.TotalSalesCents != 1500 {
		t.Fatalf("total_sales_cents = %d, want 1500", ended.TotalSalesCents)
	}

	// Repeated end: no re-stamp, metrics still fold.
	again, err := svc.End(ctx, sess.ID, &models.EndMetrics{
		PeakViewers:     10,
		TotalSalesCents: 500,
	})
	if err != nil {
		t.Fatalf("End() second error = %v", err)
	}
	if !again.EndTime.Equal(*ended.EndTime) {
		t.Fatalf("second end re-stamped end_time: %v != %v", again.EndTime, ended.EndTime)
	}
	if again.PeakViewers != 10 {
		t.Fatalf("peak_viewers after second end = %d, want 10", again.PeakViewers)
	}
	if again.TotalSalesCents != 2000 {
		t.Fatalf("total_sales_cents after second end = %d, want 2000 (sums)", again.TotalSalesCents)
	}
}

func TestCancelIsIdempotentAndTerminal(t *testing.T) {
	svc, _ := newTestService(t, stubGate{ready: true})
	sess := createScheduled(t, svc)
	ctx := context.Background()

	if _, err := svc.Cancel(ctx, sess.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if _, err := svc.Cancel(ctx, sess.ID); err != nil {
		t.Fatalf("Cancel() repeat error = %v", err)
	}
	if _, err := svc.End(ctx, sess.ID, nil); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("End() on cancelled error = %v, want ErrIllegalTransition", err)
	}
}

func TestCancelLiveFails(t *testing.T) {
	svc, _ := newTestService(t, stubGate{ready: true})
	sess := createScheduled(t, svc)
	ctx := context.Background()

	if _, err := svc.Start(ctx, sess.ID); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := svc.Cancel(ctx, sess.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("Cancel() on live error = %v, want ErrIllegalTransition", err)
	}
}

func TestEngagementDroppedAfterEnd(t *testing.T) {
	svc, _ := newTestService(t, stubGate{ready: true})
	sess := createScheduled(t, svc)
	ctx := context.Background()

	if _, err := svc.Start(ctx, sess.ID); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := svc.RecordEngagement(ctx, sess.ID, 3, 1); err != nil {
		t.Fatalf("RecordEngagement() error = %v", err)
	}
	if _, err := svc.End(ctx, sess.ID, nil); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if err := svc.RecordEngagement(ctx, sess.ID, 5, 5); err != nil {
		t.Fatalf("RecordEngagement() after end error = %v", err)
	}

	got, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TotalMessages != 3 || got.TotalReactions != 1 {
		t.Fatalf("engagement = (%d, %d), want (3, 1): post-end counts must drop",
			got.TotalMessages, got.TotalReactions)
	}
}

// TestFullLifecycle walks a session from scheduling through a watched stream
// to its final aggregates.
func TestFullLifecycle(t *testing.T) {
	svc, store := newTestService(t, stubGate{ready: true})
	ctx := context.Background()

	start := time.Now().Add(30 * time.Minute)
	sess, err := svc.Create(ctx, CreateParams{
		InfluencerID:       uuid.New(),
		Title:              "autumn lookbook",
		Visibility:         models.VisibilityPublic,
		ScheduledStartTime: &start,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	live, err := store.ListLive(ctx)
	if err != nil {
		t.Fatalf("ListLive() error = %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("scheduled session listed as live")
	}
	upcoming, err := store.ListUpcoming(ctx)
	if err != nil {
		t.Fatalf("ListUpcoming() error = %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].ID != sess.ID {
		t.Fatalf("scheduled session missing from upcoming")
	}

	if _, err := svc.Start(ctx, sess.ID); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// 10 joins, 7 of them first-time viewers.
	for i := 0; i < 10; i++ {
		if _, err := store.ViewerJoined(ctx, sess.ID); err != nil {
			t.Fatalf("ViewerJoined() error = %v", err)
		}
		if i < 7 {
			if _, err := store.CountUniqueViewer(ctx, sess.ID); err != nil {
				t.Fatalf("CountUniqueViewer() error = %v", err)
			}
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := store.ViewerLeft(ctx, sess.ID); err != nil {
			t.Fatalf("ViewerLeft() error = %v", err)
		}
	}

	mid, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if mid.CurrentViewers != 7 || mid.PeakViewers != 10 || mid.TotalUniqueViewers != 7 {
		t.Fatalf("mid-stream counters = (current %d, peak %d, unique %d), want (7, 10, 7)",
			mid.CurrentViewers, mid.PeakViewers, mid.TotalUniqueViewers)
	}

	ended, err := svc.End(ctx, sess.ID, &models.EndMetrics{PeakViewers: 5})
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.PeakViewers != 10 {
		t.Fatalf("peak_viewers = %d, want 10: client-reported 5 must not lower it", ended.PeakViewers)
	}
	if ended.Status != models.StatusEnded || ended.EndTime == nil {
		t.Fatalf("ended session status = %q, end_time = %v", ended.Status, ended.EndTime)
	}
}
