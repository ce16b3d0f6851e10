package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/pkg/response"
	"github.com/streamcart/backend/pkg/utils"
)

// InfluencerInitializer provisions a new influencer account plus its empty
// credential vault row in one transaction.
type InfluencerInitializer interface {
	Initialize(ctx context.Context, u *models.User) error
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=6"`
	FullName string         `json:"full_name" binding:"required"`
	Role     string         `json:"role"` // optional, defaults to customer
	Profile  models.Profile `json:"profile"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo        *Repository
	influencers InfluencerInitializer
	jwt         *JWTService
	logger      *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, influencers InfluencerInitializer, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, influencers: influencers, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role := models.RoleCustomer
	if req.Role != "" {
		role = models.Role(req.Role)
		if !role.Valid() {
			response.BadRequest(c, "invalid role")
			return
		}
	}
	if err := req.Profile.Validate(role); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if _, err := h.repo.GetByEmail(c.Request.Context(), req.Email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user := &models.User{
		Email:    req.Email,
		Password: hash,
		FullName: req.FullName,
		Role:     role,
		Profile:  req.Profile,
	}
	// Influencer creation also provisions the empty credential row; both
	// inserts commit or abort together.
	if role == models.RoleInfluencer {
		err = h.influencers.Initialize(c.Request.Context(), user)
	} else {
		err = h.repo.Create(c.Request.Context(), user)
	}
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err), zap.String("role", string(role)))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	c.JSON(http.StatusOK, response.Body{Success: true, Data: TokenResponse{Token: token, User: user.ToPublic()}})
}
