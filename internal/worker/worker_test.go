package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/internal/presence"
	"github.com/streamcart/backend/internal/sessions"
	"github.com/streamcart/backend/pkg/queue"
)

func wrapupJob(t *testing.T, sessionID, influencerID uuid.UUID) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(queue.SessionWrapupPayload{SessionID: sessionID, InfluencerID: influencerID})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &queue.Job{ID: uuid.New().String(), Type: queue.JobTypeSessionWrapup, Payload: payload}
}

func TestWrapupFoldsUniqueViewersAndClears(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewInMemoryStore()
	seen := presence.NewMemorySeenStore()

	sess := &models.LiveSession{
		InfluencerID: uuid.New(),
		Title:        "ended stream",
		Visibility:   models.VisibilityPublic,
		Status:       models.StatusScheduled,
	}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ok, _ := store.StartLive(ctx, sess.ID, time.Now()); !ok {
		t.Fatalf("StartLive() failed")
	}

	// Three distinct viewers observed; the row only counted two of them.
	for i := 0; i < 3; i++ {
		if _, err := seen.MarkSeen(ctx, sess.ID, uuid.New()); err != nil {
			t.Fatalf("MarkSeen() error = %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := store.ViewerJoined(ctx, sess.ID); err != nil {
			t.Fatalf("ViewerJoined() error = %v", err)
		}
		if _, err := store.CountUniqueViewer(ctx, sess.ID); err != nil {
			t.Fatalf("CountUniqueViewer() error = %v", err)
		}
	}
	if ok, _ := store.EndLive(ctx, sess.ID, time.Now(), models.EndMetrics{}); !ok {
		t.Fatalf("EndLive() failed")
	}

	p := NewWrapupProcessor(store, seen, nil, nil)
	if err := p.Process(ctx, wrapupJob(t, sess.ID, sess.InfluencerID)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TotalUniqueViewers != 3 {
		t.Fatalf("total_unique_viewers = %d, want 3 (folded from seen set)", got.TotalUniqueViewers)
	}

	n, err := seen.UniqueCount(ctx, sess.ID)
	if err != nil {
		t.Fatalf("UniqueCount() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("seen set not cleared after wrapup: %d", n)
	}
}

func TestWrapupSkipsNonEndedSession(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewInMemoryStore()
	seen := presence.NewMemorySeenStore()

	sess := &models.LiveSession{
		InfluencerID: uuid.New(),
		Title:        "still live",
		Visibility:   models.VisibilityPublic,
		Status:       models.StatusScheduled,
	}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ok, _ := store.StartLive(ctx, sess.ID, time.Now()); !ok {
		t.Fatalf("StartLive() failed")
	}
	if _, err := seen.MarkSeen(ctx, sess.ID, uuid.New()); err != nil {
		t.Fatalf("MarkSeen() error = %v", err)
	}

	p := NewWrapupProcessor(store, seen, nil, nil)
	if err := p.Process(ctx, wrapupJob(t, sess.ID, sess.InfluencerID)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TotalUniqueViewers != 0 {
		t.Fatalf("wrapup folded into a live session")
	}
	// Presence data stays until the session actually ends.
	n, _ := seen.UniqueCount(ctx, sess.ID)
	if n != 1 {
		t.Fatalf("seen set cleared for non-ended session")
	}
}

func TestWrapupRejectsUnknownJobType(t *testing.T) {
	p := NewWrapupProcessor(sessions.NewInMemoryStore(), presence.NewMemorySeenStore(), nil, nil)
	err := p.Process(context.Background(), &queue.Job{ID: "x", Type: "mystery"})
	if err == nil {
		t.Fatalf("Process() accepted unknown job type")
	}
}
