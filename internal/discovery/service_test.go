package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/internal/sessions"
)

type mapAccessReader map[uuid.UUID]models.WatchAccess

func (m mapAccessReader) ViewerAccessByInfluencer(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.WatchAccess, error) {
	out := make(map[uuid.UUID]models.WatchAccess, len(ids))
	for _, id := range ids {
		if a, ok := m[id]; ok {
			out[id] = a
		} else {
			out[id] = models.WatchAccessLimited
		}
	}
	return out, nil
}

type failingAccessReader struct{}

func (failingAccessReader) ViewerAccessByInfluencer(context.Context, []uuid.UUID) (map[uuid.UUID]models.WatchAccess, error) {
	return nil, errors.New("vault unavailable")
}

func addLive(t *testing.T, store *sessions.InMemoryStore, influencerID uuid.UUID, viewers int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	sess := &models.LiveSession{
		InfluencerID: influencerID,
		Title:        "stream",
		Visibility:   models.VisibilityPublic,
		Status:       models.StatusScheduled,
	}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ok, err := store.StartLive(ctx, sess.ID, time.Now()); err != nil || !ok {
		t.Fatalf("StartLive() = (%v, %v)", ok, err)
	}
	for i := 0; i < viewers; i++ {
		if _, err := store.ViewerJoined(ctx, sess.ID); err != nil {
			t.Fatalf("ViewerJoined() error = %v", err)
		}
	}
	return sess.ID
}

func TestListLiveOrdersByViewersAndDecorates(t *testing.T) {
	store := sessions.NewInMemoryStore()
	full := uuid.New()
	limited := uuid.New()
	quiet := addLive(t, store, limited, 1)
	busy := addLive(t, store, full, 5)

	svc := NewService(store, mapAccessReader{full: models.WatchAccessFull}, nil)
	list, err := svc.ListLive(context.Background())
	if err != nil {
		t.Fatalf("ListLive() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if list[0].ID != busy || list[1].ID != quiet {
		t.Fatalf("ordering wrong: got [%s, %s], want busiest first", list[0].ID, list[1].ID)
	}
	if list[0].WatchAccess != models.WatchAccessFull {
		t.Fatalf("watch_access for provisioned influencer = %q, want full", list[0].WatchAccess)
	}
	if list[1].WatchAccess != models.WatchAccessLimited {
		t.Fatalf("watch_access for unprovisioned influencer = %q, want limited", list[1].WatchAccess)
	}
}

func TestListLiveDegradesToLimitedOnVaultFailure(t *testing.T) {
	store := sessions.NewInMemoryStore()
	addLive(t, store, uuid.New(), 3)

	svc := NewService(store, failingAccessReader{}, nil)
	list, err := svc.ListLive(context.Background())
	if err != nil {
		t.Fatalf("ListLive() error = %v, want nil (degrade, never fail the listing)", err)
	}
	if len(list) != 1 || list[0].WatchAccess != models.WatchAccessLimited {
		t.Fatalf("vault failure did not degrade to limited: %+v", list)
	}
}

func TestListUpcomingOrdersBySchedule(t *testing.T) {
	store := sessions.NewInMemoryStore()
	ctx := context.Background()

	later := time.Now().Add(2 * time.Hour)
	sooner := time.Now().Add(time.Hour)
	for _, at := range []*time.Time{&later, &sooner} {
		sess := &models.LiveSession{
			InfluencerID:       uuid.New(),
			Title:              "upcoming",
			Visibility:         models.VisibilityPublic,
			Status:             models.StatusScheduled,
			ScheduledStartTime: at,
		}
		if err := store.Create(ctx, sess); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	svc := NewService(store, mapAccessReader{}, nil)
	list, err := svc.ListUpcoming(ctx)
	if err != nil {
		t.Fatalf("ListUpcoming() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if !list[0].ScheduledStartTime.Before(*list[1].ScheduledStartTime) {
		t.Fatalf("upcoming not ordered soonest first")
	}
}

func TestLiveStats(t *testing.T) {
	store := sessions.NewInMemoryStore()
	addLive(t, store, uuid.New(), 4)
	addLive(t, store, uuid.New(), 2)

	svc := NewService(store, mapAccessReader{}, nil)
	stats, err := svc.LiveStats(context.Background())
	if err != nil {
		t.Fatalf("LiveStats() error = %v", err)
	}
	if stats.LiveSessions != 2 || stats.TotalViewers != 6 {
		t.Fatalf("LiveStats() = %+v, want 2 sessions / 6 viewers", stats)
	}
}

func TestDashboardScopedToInfluencer(t *testing.T) {
	store := sessions.NewInMemoryStore()
	mine := uuid.New()
	addLive(t, store, mine, 3)
	addLive(t, store, uuid.New(), 8)

	svc := NewService(store, mapAccessReader{}, nil)
	stats, list, err := svc.Dashboard(context.Background(), mine)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if stats.TotalSessions != 1 || stats.LiveNow != 1 || stats.PeakViewers != 3 {
		t.Fatalf("stats = %+v, want 1 session / 1 live / peak 3", stats)
	}
	if len(list) != 1 || list[0].InfluencerID != mine {
		t.Fatalf("session list leaked other influencers: %+v", list)
	}
}
