package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"promoscan/internal/promo"
	"promoscan/internal/runner"
	"promoscan/internal/store"
)

// ErrRunInProgress is reported when a run is triggered while another is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// RunFunc executes one pipeline run.
type RunFunc func(ctx context.Context) (runner.Summary, error)

// History reads recorded runs.
type History interface {
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	// Categories returns a run's categories or store.ErrRunNotFound.
	Categories(ctx context.Context, runID int64) ([]promo.Category, error)
}

// NewServer creates the HTTP server with all routes configured. API routes
// require apiKey when it is not empty.
func NewServer(handler *Handler, apiKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger())
	r.Use(gin.Recovery())

	r.GET("/health", handler.Health)

	api := r.Group("/api")
	if apiKey != "" {
		api.Use(authMiddleware(apiKey))
	} else {
		log.Warn("API key not set, API endpoints are unauthenticated")
	}
	api.POST("/runs", handler.TriggerRun)
	api.GET("/runs", handler.ListRuns)
	api.GET("/runs/:id/promotions", handler.GetRunPromotions)
	api.GET("/promotions", handler.GetPromotions)

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Round(time.Millisecond),
			"client":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("Request failed")
			return
		}
		entry.Info("Request")
	}
}

// authMiddleware accepts the key in X-API-Key or as an Authorization bearer token.
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}
		if providedKey != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}
		c.Next()
	}
}
