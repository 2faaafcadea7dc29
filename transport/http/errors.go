package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forumhub/gatekeeper/core"
)

// writeError is the boundary where service errors become wire responses.
// Classified errors map kind to status and expose only their client-safe
// message; everything else is a 500 whose detail is logged and, in
// production, hidden.
func writeError(c *gin.Context, logger *slog.Logger, production bool, err error) {
	var classified *core.Error
	if errors.As(err, &classified) {
		c.JSON(statusOf(classified.Kind), gin.H{"message": classified.Message})
		return
	}

	logger.Error("unhandled error",
		"error", err,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	message := err.Error()
	if production {
		message = "an internal error occurred"
	}
	c.JSON(http.StatusInternalServerError, gin.H{"message": message})
}

func statusOf(kind core.Kind) int {
	switch kind {
	case core.KindAuthentication:
		return http.StatusUnauthorized
	case core.KindAuthorization:
		return http.StatusForbidden
	case core.KindConflict:
		return http.StatusConflict
	case core.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
