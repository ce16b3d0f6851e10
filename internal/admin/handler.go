package admin

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/streamcart/backend/pkg/response"
	"github.com/streamcart/backend/pkg/utils"
)

// LoginRequest is the body for POST /admin/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the admin session token and its expiry.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Handler handles admin session endpoints.
type Handler struct {
	repo     *Repository
	sessions *SessionService
	logger   *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(repo *Repository, sessions *SessionService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, sessions: sessions, logger: logger}
}

// Login handles POST /admin/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	account, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Internal(c, "failed to look up admin account")
		return
	}
	if account == nil || !utils.CheckPassword(req.Password, account.PasswordHash) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, sess, err := h.sessions.Issue(account.ID, account.Email)
	if err != nil {
		response.Internal(c, "failed to issue admin session")
		return
	}
	h.logger.Info("admin logged in", zap.String("admin_id", account.ID.String()))
	response.OK(c, LoginResponse{Token: token, ExpiresAt: sess.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00")})
}
