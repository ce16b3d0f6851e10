package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/internal/sessions"
)

type failingSeenStore struct{}

func (failingSeenStore) MarkSeen(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, errors.New("redis down")
}
func (failingSeenStore) UniqueCount(context.Context, uuid.UUID) (int, error) {
	return 0, errors.New("redis down")
}
func (failingSeenStore) Clear(context.Context, uuid.UUID) error {
	return errors.New("redis down")
}

func newLiveSession(t *testing.T, store *sessions.InMemoryStore) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	sess := &models.LiveSession{
		InfluencerID: uuid.New(),
		Title:        "test stream",
		Visibility:   models.VisibilityPublic,
		Status:       models.StatusScheduled,
	}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ok, err := store.StartLive(ctx, sess.ID, time.Now()); err != nil || !ok {
		t.Fatalf("StartLive() = (%v, %v)", ok, err)
	}
	return sess.ID
}

func TestJoinDedupsByViewer(t *testing.T) {
	store := sessions.NewInMemoryStore()
	agg := NewAggregator(store, NewMemorySeenStore(), nil)
	ctx := context.Background()
	id := newLiveSession(t, store)

	viewer := uuid.New()
	for i := 0; i < 3; i++ {
		if err := agg.Join(ctx, id, viewer); err != nil {
			t.Fatalf("Join() error = %v", err)
		}
	}
	if err := agg.Join(ctx, id, uuid.New()); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.CurrentViewers != 4 {
		t.Fatalf("current_viewers = %d, want 4 (raw joins)", sess.CurrentViewers)
	}
	if sess.TotalUniqueViewers != 2 {
		t.Fatalf("total_unique_viewers = %d, want 2 (deduped)", sess.TotalUniqueViewers)
	}
}

func TestLeaveClampsAtZero(t *testing.T) {
	store := sessions.NewInMemoryStore()
	agg := NewAggregator(store, NewMemorySeenStore(), nil)
	ctx := context.Background()
	id := newLiveSession(t, store)

	viewer := uuid.New()
	// Leave before any join, then a join/leave pair plus a duplicate leave.
	if err := agg.Leave(ctx, id, viewer); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if err := agg.Join(ctx, id, viewer); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if err := agg.Leave(ctx, id, viewer); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if err := agg.Leave(ctx, id, viewer); err != nil {
		t.Fatalf("Leave() duplicate error = %v", err)
	}

	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.CurrentViewers != 0 {
		t.Fatalf("current_viewers = %d, want 0 (clamped)", sess.CurrentViewers)
	}
}

func TestJoinDegradesWhenSeenStoreFails(t *testing.T) {
	store := sessions.NewInMemoryStore()
	agg := NewAggregator(store, failingSeenStore{}, nil)
	ctx := context.Background()
	id := newLiveSession(t, store)

	viewer := uuid.New()
	for i := 0; i < 2; i++ {
		if err := agg.Join(ctx, id, viewer); err != nil {
			t.Fatalf("Join() with failing seen store error = %v, want nil (degrade, never block)", err)
		}
	}

	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.CurrentViewers != 2 {
		t.Fatalf("current_viewers = %d, want 2", sess.CurrentViewers)
	}
	// Without dedup, every join counts as unique.
	if sess.TotalUniqueViewers != 2 {
		t.Fatalf("total_unique_viewers = %d, want 2 (raw counting fallback)", sess.TotalUniqueViewers)
	}
}

func TestJoinIgnoredForNonLiveSession(t *testing.T) {
	store := sessions.NewInMemoryStore()
	seen := NewMemorySeenStore()
	agg := NewAggregator(store, seen, nil)
	ctx := context.Background()

	sess := &models.LiveSession{
		InfluencerID: uuid.New(),
		Title:        "not yet live",
		Visibility:   models.VisibilityPublic,
		Status:       models.StatusScheduled,
	}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := agg.Join(ctx, sess.ID, uuid.New()); err != nil {
		t.Fatalf("Join() on scheduled session error = %v, want nil", err)
	}
	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CurrentViewers != 0 || got.TotalUniqueViewers != 0 {
		t.Fatalf("counters moved for non-live session: current %d, unique %d",
			got.CurrentViewers, got.TotalUniqueViewers)
	}
	if n, _ := seen.UniqueCount(ctx, sess.ID); n != 0 {
		t.Fatalf("seen set has %d entries after scheduled-session join, want 0", n)
	}
}

func TestJoinBeforeLiveDoesNotPoisonDedup(t *testing.T) {
	store := sessions.NewInMemoryStore()
	seen := NewMemorySeenStore()
	agg := NewAggregator(store, seen, nil)
	ctx := context.Background()

	sess := &models.LiveSession{
		InfluencerID: uuid.New(),
		Title:        "early birds",
		Visibility:   models.VisibilityPublic,
		Status:       models.StatusScheduled,
	}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// A stale join while still scheduled must not mark the viewer seen,
	// or their real join below would count as a repeat.
	viewer := uuid.New()
	if err := agg.Join(ctx, sess.ID, viewer); err != nil {
		t.Fatalf("Join() before live error = %v", err)
	}
	if ok, err := store.StartLive(ctx, sess.ID, time.Now()); err != nil || !ok {
		t.Fatalf("StartLive() = (%v, %v)", ok, err)
	}
	if err := agg.Join(ctx, sess.ID, viewer); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CurrentViewers != 1 || got.TotalUniqueViewers != 1 {
		t.Fatalf("post-start counters = (current %d, unique %d), want (1, 1)",
			got.CurrentViewers, got.TotalUniqueViewers)
	}

	// After the session ends and wrap-up clears the set, a late join must
	// not recreate it.
	if ok, err := store.EndLive(ctx, sess.ID, time.Now(), models.EndMetrics{}); err != nil || !ok {
		t.Fatalf("EndLive() = (%v, %v)", ok, err)
	}
	if err := seen.Clear(ctx, sess.ID); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := agg.Join(ctx, sess.ID, uuid.New()); err != nil {
		t.Fatalf("Join() after end error = %v", err)
	}
	if n, _ := seen.UniqueCount(ctx, sess.ID); n != 0 {
		t.Fatalf("seen set recreated after clear: %d entries", n)
	}
}

func TestUniqueCountSurvivesLeaves(t *testing.T) {
	store := sessions.NewInMemoryStore()
	seen := NewMemorySeenStore()
	agg := NewAggregator(store, seen, nil)
	ctx := context.Background()
	id := newLiveSession(t, store)

	a, b := uuid.New(), uuid.New()
	_ = agg.Join(ctx, id, a)
	_ = agg.Join(ctx, id, b)
	_ = agg.Leave(ctx, id, a)
	_ = agg.Leave(ctx, id, b)

	n, err := agg.UniqueCount(ctx, id)
	if err != nil {
		t.Fatalf("UniqueCount() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("UniqueCount() = %d, want 2", n)
	}
}
