package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forumhub/gatekeeper/core"
	"github.com/forumhub/gatekeeper/internal/cookies"
	"github.com/forumhub/gatekeeper/internal/csrf"
	"github.com/forumhub/gatekeeper/service"
)

// subjectKey is the gin context key the session middleware stores the
// authenticated subject ID under.
const subjectKey = "authSubjectID"

// CSRFHeader is the request header clients echo the raw CSRF token in.
const CSRFHeader = "X-CSRF-Token"

// SessionMiddleware gates requests on a valid session cookie: it opens the
// signed cookie, verifies the token, and attaches the claim's subject to the
// context. Every failure branch collapses into the same 401; the actual
// reason is logged server-side only.
func SessionMiddleware(authService *service.AuthService, codec *cookies.Codec, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := codec.AuthToken(c.Request)
		if err != nil {
			rejectSession(c, logger, err)
			return
		}

		claim, err := authService.ValidateSession(token)
		if err != nil {
			rejectSession(c, logger, err)
			return
		}

		c.Set(subjectKey, claim.SubjectID)
		c.Next()
	}
}

// CSRFMiddleware enforces the double-submit check on mutating methods. Safe
// methods pass through untouched.
func CSRFMiddleware(issuer *csrf.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		cookieValue, err := c.Cookie(cookies.CSRFTokenName)
		if err != nil {
			cookieValue = ""
		}

		if !issuer.Verify(c.GetHeader(CSRFHeader), cookieValue) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "invalid or missing CSRF token"})
			return
		}

		c.Next()
	}
}

// RequestLogger logs method, path, status and duration for every request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func rejectSession(c *gin.Context, logger *slog.Logger, err error) {
	logger.Info("session rejected",
		"reason", sessionFailure(err),
		"path", c.Request.URL.Path,
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
}

// sessionFailure names the failure branch for logs. The client always sees
// the same generic message regardless of the branch.
func sessionFailure(err error) string {
	switch {
	case errors.Is(err, http.ErrNoCookie):
		return "missing session cookie"
	case errors.Is(err, cookies.ErrInvalidSignature):
		return "cookie signature mismatch"
	case errors.Is(err, core.ErrTokenMalformed):
		return "malformed token"
	case errors.Is(err, core.ErrTokenDecryptionFailed):
		return "token decryption failed"
	case errors.Is(err, core.ErrTokenSignatureInvalid):
		return "token signature invalid"
	case errors.Is(err, core.ErrTokenExpired):
		return "token expired"
	default:
		return "unclassified"
	}
}

// subjectID returns the authenticated subject placed by SessionMiddleware.
func subjectID(c *gin.Context) (string, bool) {
	v, ok := c.Get(subjectKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
