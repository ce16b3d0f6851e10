package credentials

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/admin"
	"github.com/streamcart/backend/pkg/response"
)

// Handler exposes the admin credential surface. Every route sits behind
// admin.Guard; the service re-checks session liveness on each call.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a credential handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// UpdateRequest is the body for PUT /admin/influencers/:id/credentials.
// Absent fields are untouched; empty strings clear.
type UpdateRequest struct {
	BroadcasterRoom  *string `json:"broadcaster_room"`
	BroadcasterToken *string `json:"broadcaster_token"`
	ViewerRoom       *string `json:"viewer_room"`
	ViewerToken      *string `json:"viewer_token"`
}

// StreamingRequest is the body for PATCH /admin/influencers/:id/streaming.
type StreamingRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, admin.ErrSessionExpired):
		response.UnauthorizedReason(c, "admin session expired", "admin_session_expired")
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "influencer credentials not found")
	case errors.Is(err, ErrValidation):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("credential operation failed", zap.Error(err))
		response.Internal(c, "credential operation failed")
	}
}

func influencerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid influencer id")
		return uuid.Nil, false
	}
	return id, true
}

// ListInfluencers handles GET /admin/influencers.
func (h *Handler) ListInfluencers(c *gin.Context) {
	rows, err := h.service.AdminRows(c.Request.Context(), admin.SessionFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, rows)
}

// GetCredentials handles GET /admin/influencers/:id/credentials.
func (h *Handler) GetCredentials(c *gin.Context) {
	id, ok := influencerID(c)
	if !ok {
		return
	}
	st, err := h.service.Status(c.Request.Context(), admin.SessionFrom(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, st)
}

// UpdateCredentials handles PUT /admin/influencers/:id/credentials.
func (h *Handler) UpdateCredentials(c *gin.Context) {
	id, ok := influencerID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	st, err := h.service.SetManual(c.Request.Context(), admin.SessionFrom(c), id, PartialUpdate{
		BroadcasterRoom:  req.BroadcasterRoom,
		BroadcasterToken: req.BroadcasterToken,
		ViewerRoom:       req.ViewerRoom,
		ViewerToken:      req.ViewerToken,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, st)
}

// GenerateCredentials handles POST /admin/influencers/:id/credentials/generate.
func (h *Handler) GenerateCredentials(c *gin.Context) {
	id, ok := influencerID(c)
	if !ok {
		return
	}
	st, err := h.service.Generate(c.Request.Context(), admin.SessionFrom(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, st)
}

// SetStreaming handles PATCH /admin/influencers/:id/streaming.
func (h *Handler) SetStreaming(c *gin.Context) {
	id, ok := influencerID(c)
	if !ok {
		return
	}
	var req StreamingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	st, err := h.service.SetStreamingEnabled(c.Request.Context(), admin.SessionFrom(c), id, *req.Enabled)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, st)
}
