package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/forumhub/gatekeeper/internal/cookies"
	"github.com/forumhub/gatekeeper/internal/csrf"
	"github.com/forumhub/gatekeeper/service"
)

// Options tunes the router for the environment it runs in.
type Options struct {
	// Production hides internal error detail from 500 responses.
	Production bool

	// AllowedOrigins is the credentialed CORS allow-list. Empty disables
	// cross-origin access entirely.
	AllowedOrigins []string
}

// SetupRouter sets up the Gin router.
func SetupRouter(
	authService *service.AuthService,
	issuer *csrf.Issuer,
	codec *cookies.Codec,
	logger *slog.Logger,
	opts Options,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders:     []string{"Origin", "Content-Type", CSRFHeader},
			AllowCredentials: true,
		}))
	}

	handlers := NewAuthHandlers(authService, codec, logger, opts.Production)
	session := SessionMiddleware(authService, codec, logger)

	router.GET("/ping", handlers.Ping)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)

		// Mutating routes for an established session take both gates.
		auth.POST("/logout", session, CSRFMiddleware(issuer), handlers.Logout)
		auth.PUT("/change-password", session, CSRFMiddleware(issuer), handlers.ChangePassword)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(session)
	{
		api.GET("/me", handlers.Me)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "the requested resource does not exist"})
	})

	return router
}
