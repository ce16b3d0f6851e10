package discovery

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/middleware"
	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/pkg/response"
)

// Handler exposes the shopper-facing discovery surface.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a discovery handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// DashboardResponse is the influencer dashboard payload.
type DashboardResponse struct {
	Stats    *models.DashboardStats `json:"stats"`
	Sessions []models.LiveSession   `json:"sessions"`
}

// ListLive handles GET /live.
func (h *Handler) ListLive(c *gin.Context) {
	list, err := h.service.ListLive(c.Request.Context())
	if err != nil {
		h.logger.Error("list live failed", zap.Error(err))
		response.Internal(c, "failed to list live sessions")
		return
	}
	response.OK(c, list)
}

// ListUpcoming handles GET /upcoming.
func (h *Handler) ListUpcoming(c *gin.Context) {
	list, err := h.service.ListUpcoming(c.Request.Context())
	if err != nil {
		h.logger.Error("list upcoming failed", zap.Error(err))
		response.Internal(c, "failed to list upcoming sessions")
		return
	}
	response.OK(c, list)
}

// LiveStats handles GET /live/stats.
func (h *Handler) LiveStats(c *gin.Context) {
	stats, err := h.service.LiveStats(c.Request.Context())
	if err != nil {
		h.logger.Error("live stats failed", zap.Error(err))
		response.Internal(c, "failed to compute live stats")
		return
	}
	response.OK(c, stats)
}

// Dashboard handles GET /influencers/me/dashboard. Requires an authenticated
// influencer; the id comes from the JWT, never the URL.
func (h *Handler) Dashboard(c *gin.Context) {
	influencerID, ok := middleware.UserIDFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	stats, list, err := h.service.Dashboard(c.Request.Context(), influencerID)
	if err != nil {
		h.logger.Error("dashboard failed", zap.Error(err))
		response.Internal(c, "failed to build dashboard")
		return
	}
	response.OK(c, DashboardResponse{Stats: stats, Sessions: list})
}
