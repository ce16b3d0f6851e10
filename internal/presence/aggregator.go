package presence

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/sessions"
)

// Aggregator maintains current_viewers for live sessions from join/leave
// events. The events arrive from any transport (WebSocket hub, HTTP beacons),
// possibly duplicated or out of order; the contract is commutative, idempotent
// updates: joins only count against live sessions, leaves clamp at zero, and
// unique-viewer dedup is by viewer id. Viewer-count telemetry is best-effort —
// a failing dedup store degrades to raw counting, it never blocks a viewer.
type Aggregator struct {
	store  sessions.Store
	seen   SeenStore
	logger *zap.Logger
}

// NewAggregator creates a viewer presence aggregator.
func NewAggregator(store sessions.Store, seen SeenStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{store: store, seen: seen, logger: logger}
}

// Join records a viewer joining a session. Joins against non-live sessions are
// accepted and dropped, dedup set included: a join racing a concurrent end must
// not resurrect the session's counters, a pre-live mark would swallow the
// viewer's real join, and a mark after wrap-up would recreate a cleared set.
func (a *Aggregator) Join(ctx context.Context, sessionID, viewerID uuid.UUID) error {
	ok, err := a.store.ViewerJoined(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		a.logger.Debug("join ignored for non-live session", zap.String("session_id", sessionID.String()))
		return nil
	}

	countUnique := true
	if a.seen != nil {
		first, err := a.seen.MarkSeen(ctx, sessionID, viewerID)
		if err != nil {
			// Degrade to raw counting rather than failing the join.
			a.logger.Warn("viewer dedup unavailable, counting raw",
				zap.String("session_id", sessionID.String()), zap.Error(err))
		} else {
			countUnique = first
		}
	}
	if countUnique {
		if _, err := a.store.CountUniqueViewer(ctx, sessionID); err != nil {
			return err
		}
	}
	return nil
}

// Leave records a viewer leaving a session. Duplicate or early leaves (a leave
// observed before its join) clamp at zero instead of erroring.
func (a *Aggregator) Leave(ctx context.Context, sessionID, viewerID uuid.UUID) error {
	ok, err := a.store.ViewerLeft(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		a.logger.Debug("leave ignored for non-live session", zap.String("session_id", sessionID.String()))
	}
	return nil
}

// UniqueCount reports the distinct viewers observed for a session so far.
func (a *Aggregator) UniqueCount(ctx context.Context, sessionID uuid.UUID) (int, error) {
	if a.seen == nil {
		return 0, nil
	}
	return a.seen.UniqueCount(ctx, sessionID)
}
