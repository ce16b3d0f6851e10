package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/middleware"
	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/pkg/queue"
	"github.com/streamcart/backend/pkg/response"
	"github.com/streamcart/backend/pkg/storage"
)

// Presence receives viewer join/leave events. Implemented by the presence
// aggregator.
type Presence interface {
	Join(ctx context.Context, sessionID, viewerID uuid.UUID) error
	Leave(ctx context.Context, sessionID, viewerID uuid.UUID) error
}

// Wrapups enqueues post-end wrap-up jobs. Implemented by the Redis queue.
type Wrapups interface {
	EnqueueSessionWrapup(ctx context.Context, payload queue.SessionWrapupPayload) error
}

// Notifier fans lifecycle events out to connected clients. Implemented by the
// realtime hub; nil disables fan-out.
type Notifier interface {
	SessionStarted(sessionID uuid.UUID)
	SessionEnded(sessionID uuid.UUID)
}

// Handler exposes the session lifecycle over HTTP.
type Handler struct {
	service  *Service
	presence Presence
	wrapups  Wrapups
	notifier Notifier
	s3       *storage.S3
	logger   *zap.Logger
}

// NewHandler creates a session handler. wrapups, notifier, and s3 may be nil
// when the corresponding backend is not configured.
func NewHandler(service *Service, presence Presence, wrapups Wrapups, notifier Notifier, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, presence: presence, wrapups: wrapups, notifier: notifier, s3: s3, logger: logger}
}

// CreateRequest is the body for POST /sessions.
type CreateRequest struct {
	Title              string     `json:"title" binding:"required"`
	Description        string     `json:"description"`
	Visibility         string     `json:"visibility"`
	HasShowcase        bool       `json:"has_showcase"`
	ScheduledStartTime *time.Time `json:"scheduled_start_time"`
	LiveNow            bool       `json:"live_now"`
}

// EndRequest is the optional body for POST /sessions/:id/end. The broadcaster
// client reports its final view of the stream; values merge monotonically with
// server-side counters.
type EndRequest struct {
	PeakViewers        int   `json:"peak_viewers"`
	TotalUniqueViewers int   `json:"total_unique_viewers"`
	TotalSalesCents    int64 `json:"total_sales_cents"`
}

// ThumbnailURLRequest is the body for POST /sessions/:id/thumbnail-upload-url.
type ThumbnailURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
}

// ThumbnailURLResponse carries the presigned PUT URL and the object key.
type ThumbnailURLResponse struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in_seconds"`
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "session not found")
	case errors.Is(err, ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotProvisioned):
		response.GuardFailed(c, "streaming credentials are not provisioned", "not_provisioned")
	case errors.Is(err, ErrIllegalTransition):
		response.Conflict(c, err.Error(), "illegal_transition")
	default:
		h.logger.Error("session operation failed", zap.Error(err))
		response.Internal(c, "session operation failed")
	}
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

// owned loads the session and verifies the caller owns it.
func (h *Handler) owned(c *gin.Context, id uuid.UUID) (*models.LiveSession, bool) {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return nil, false
	}
	sess, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	if sess.InfluencerID != userID {
		response.Forbidden(c, "not your session")
		return nil, false
	}
	return sess, true
}

// Create handles POST /sessions.
func (h *Handler) Create(c *gin.Context) {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sess, err := h.service.Create(c.Request.Context(), CreateParams{
		InfluencerID:       userID,
		Title:              req.Title,
		Description:        req.Description,
		Visibility:         models.Visibility(req.Visibility),
		HasShowcase:        req.HasShowcase,
		ScheduledStartTime: req.ScheduledStartTime,
		LiveNow:            req.LiveNow,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	if req.LiveNow && h.notifier != nil {
		h.notifier.SessionStarted(sess.ID)
	}
	response.Created(c, sess)
}

// Get handles GET /sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, sess)
}

// Start handles POST /sessions/:id/start.
func (h *Handler) Start(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if _, ok := h.owned(c, id); !ok {
		return
	}
	sess, err := h.service.Start(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if h.notifier != nil {
		h.notifier.SessionStarted(id)
	}
	response.OK(c, sess)
}

// End handles POST /sessions/:id/end. The body is optional; when present its
// metrics fold into the stored aggregates.
func (h *Handler) End(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	owner, ok := h.owned(c, id)
	if !ok {
		return
	}

	var metrics *models.EndMetrics
	if c.Request.ContentLength > 0 {
		var req EndRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
		metrics = &models.EndMetrics{
			PeakViewers:        req.PeakViewers,
			TotalUniqueViewers: req.TotalUniqueViewers,
			TotalSalesCents:    req.TotalSalesCents,
		}
	}

	sess, err := h.service.End(c.Request.Context(), id, metrics)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if h.wrapups != nil {
		err := h.wrapups.EnqueueSessionWrapup(c.Request.Context(), queue.SessionWrapupPayload{
			SessionID:    id,
			InfluencerID: owner.InfluencerID,
		})
		if err != nil {
			// The wrap-up only reconciles late aggregates; the end already
			// committed, so log and move on.
			h.logger.Warn("failed to enqueue session wrapup",
				zap.String("session_id", id.String()), zap.Error(err))
		}
	}
	if h.notifier != nil {
		h.notifier.SessionEnded(id)
	}
	response.OK(c, sess)
}

// Cancel handles POST /sessions/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if _, ok := h.owned(c, id); !ok {
		return
	}
	sess, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, sess)
}

// Join handles POST /sessions/:id/join for viewers without a WebSocket
// connection. Joins never fail on presence bookkeeping.
func (h *Handler) Join(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	if err := h.presence.Join(c.Request.Context(), id, userID); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

// Leave handles POST /sessions/:id/leave.
func (h *Handler) Leave(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	if err := h.presence.Leave(c.Request.Context(), id, userID); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

// ThumbnailUploadURL handles POST /sessions/:id/thumbnail-upload-url. Returns
// a presigned PUT URL and records the object key on the session.
func (h *Handler) ThumbnailUploadURL(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if _, ok := h.owned(c, id); !ok {
		return
	}
	if h.s3 == nil {
		response.ServiceUnavailable(c, "thumbnail storage is not configured")
		return
	}
	var req ThumbnailURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !storage.ValidateThumbnailType(req.ContentType, req.Filename) {
		response.BadRequest(c, "unsupported thumbnail type")
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(req.Filename)
	}
	key := storage.ThumbnailKey(id.String(), req.Filename)
	expires := h.s3.PresignExpire()
	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), h.s3.ThumbnailsBucket(), key, contentType, expires)
	if err != nil {
		h.logger.Error("presign thumbnail upload failed", zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}
	if err := h.service.store.SetThumbnailKey(c.Request.Context(), id, key); err != nil {
		h.logger.Error("store thumbnail key failed", zap.Error(err))
		response.Internal(c, "failed to record thumbnail")
		return
	}
	response.OK(c, ThumbnailURLResponse{
		UploadURL: url,
		Key:       key,
		ExpiresIn: int(expires.Seconds()),
	})
}
