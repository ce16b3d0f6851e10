package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/internal/presence"
	"github.com/streamcart/backend/internal/sessions"
	"github.com/streamcart/backend/pkg/queue"
)

// WrapupProcessor reconciles an ended session with the presence seen set:
// the final distinct-viewer count folds into total_unique_viewers, then the
// session's presence keys are discarded. Folding is monotonic, so a wrap-up
// racing a repeated end never lowers anything.
type WrapupProcessor struct {
	store  sessions.Store
	seen   presence.SeenStore
	queue  *queue.Queue
	logger *zap.Logger
}

// NewWrapupProcessor creates a session wrap-up processor.
func NewWrapupProcessor(store sessions.Store, seen presence.SeenStore, q *queue.Queue, logger *zap.Logger) *WrapupProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WrapupProcessor{store: store, seen: seen, queue: q, logger: logger}
}

// Process executes one wrap-up job.
func (p *WrapupProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeSessionWrapup {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.SessionWrapupPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	sess, err := p.store.Get(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess.Status != models.StatusEnded {
		// A wrap-up for a non-ended session means the end was rolled into a
		// different outcome; nothing to reconcile.
		p.logger.Info("skipping wrapup for non-ended session",
			zap.String("session_id", payload.SessionID.String()),
			zap.String("status", string(sess.Status)))
		return nil
	}

	unique, err := p.seen.UniqueCount(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("unique count: %w", err)
	}
	if unique > 0 {
		err := p.store.FoldEndMetrics(ctx, payload.SessionID, models.EndMetrics{
			TotalUniqueViewers: unique,
		})
		if err != nil {
			return fmt.Errorf("fold unique viewers: %w", err)
		}
	}

	if err := p.seen.Clear(ctx, payload.SessionID); err != nil {
		// The fold already committed; a leaked set only costs memory until
		// its key is retried or expires.
		p.logger.Warn("failed to clear seen set",
			zap.String("session_id", payload.SessionID.String()), zap.Error(err))
	}

	p.logger.Info("session wrapup completed",
		zap.String("session_id", payload.SessionID.String()),
		zap.Int("unique_viewers", unique))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *WrapupProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("wrapup worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
