package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forumhub/gatekeeper/core"
	"github.com/forumhub/gatekeeper/internal/cookies"
	"github.com/forumhub/gatekeeper/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints.
type AuthHandlers struct {
	authService *service.AuthService
	codec       *cookies.Codec
	logger      *slog.Logger
	production  bool
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(authService *service.AuthService, codec *cookies.Codec, logger *slog.Logger, production bool) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		codec:       codec,
		logger:      logger,
		production:  production,
	}
}

// identityResponse is the client-facing shape of an identity. The password
// hash has no field here on purpose.
type identityResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func toIdentityResponse(identity *core.Identity) identityResponse {
	return identityResponse{
		ID:       identity.ID,
		Username: identity.Username,
		Email:    identity.Email,
		Role:     identity.Role,
	}
}

// Register handles the registration request.
func (h *AuthHandlers) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=32"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}

	identity, err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, h.production, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "user registered",
		"user":    toIdentityResponse(identity),
	})
}

// Login handles the login request. On success both cookies are set: the
// locked-down session cookie and the script-readable CSRF cookie. The raw
// CSRF token is also returned in the body so the client can echo it in the
// request header without parsing the cookie.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}

	session, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, h.production, err)
		return
	}

	ttl := h.authService.SessionTTL()
	h.codec.SetAuthToken(c.Writer, session.Token, ttl)
	h.codec.SetCSRFToken(c.Writer, session.CSRF.Signed, ttl)

	c.JSON(http.StatusOK, gin.H{
		"message":    "logged in",
		"csrf_token": session.CSRF.Raw,
	})
}

// Logout clears the session cookie. Requires a resolved identity.
func (h *AuthHandlers) Logout(c *gin.Context) {
	subject, ok := subjectID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "identity missing from context"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), subject); err != nil {
		writeError(c, h.logger, h.production, err)
		return
	}

	h.codec.ClearAuthToken(c.Writer)
	c.Status(http.StatusNoContent)
}

// ChangePassword re-verifies the current password and replaces the hash.
func (h *AuthHandlers) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=8"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request"})
		return
	}

	subject, ok := subjectID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "identity missing from context"})
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), subject, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, h.logger, h.production, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// Me returns the authenticated identity.
func (h *AuthHandlers) Me(c *gin.Context) {
	subject, ok := subjectID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "identity missing from context"})
		return
	}

	identity, err := h.authService.Identity(c.Request.Context(), subject)
	if err != nil {
		writeError(c, h.logger, h.production, err)
		return
	}

	c.JSON(http.StatusOK, toIdentityResponse(identity))
}

// Ping is the health route.
func (h *AuthHandlers) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
