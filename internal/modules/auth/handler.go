package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"filevault/internal/middleware"
	"filevault/internal/pkg/response"
	"filevault/internal/pkg/validator"
	"filevault/internal/session"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service  *Service
	sessions *session.Manager
	ttl      time.Duration
}

func NewHandler(service *Service, sessions *session.Manager, ttl time.Duration) *Handler {
	return &Handler{service: service, sessions: sessions, ttl: ttl}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/signup", h.Signup)
		authGroup.POST("/login", h.Login)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	authGroup := protected.Group("/auth")
	{
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/me", h.Me)
	}
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	user, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, req.Values())
		return
	}
	response.Success(c, http.StatusCreated, toPublic(user))
}

// Login authenticates and then replaces whatever session the caller held
// with a fresh one, so an id planted before login cannot be reused.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	user, err := h.service.Authenticate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, map[string]string{"email": req.Email})
		return
	}

	ctx := c.Request.Context()
	sess := middleware.CurrentSession(c)
	if err := h.sessions.Regenerate(ctx, sess); err != nil {
		response.Internal(c, err)
		return
	}
	sess.Data = session.Data{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		UsedSpace: user.UsedSpace,
	}
	if err := h.sessions.Save(ctx, sess); err != nil {
		response.Internal(c, err)
		return
	}
	token, err := h.sessions.Issue(c, sess)
	if err != nil {
		response.Internal(c, err)
		return
	}
	middleware.WithSession(c, sess)

	response.Success(c, http.StatusOK, LoginResponse{
		User:      toPublic(user),
		Token:     token,
		ExpiresIn: int64(h.ttl / time.Second),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c, middleware.CurrentSession(c)); err != nil {
		response.Internal(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

func (h *Handler) Me(c *gin.Context) {
	me, err := h.service.Me(c.Request.Context(), middleware.CurrentSession(c).UserID())
	if err != nil {
		writeError(c, err, nil)
		return
	}
	response.Success(c, http.StatusOK, me)
}

func writeError(c *gin.Context, err error, values any) {
	var fields validator.Errors
	switch {
	case errors.As(err, &fields):
		response.ValidationFailed(c, fields, values)
	case errors.Is(err, ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Please log in to continue")
	default:
		response.Internal(c, err)
	}
}
