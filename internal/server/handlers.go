package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"promoscan/internal/output"
	"promoscan/internal/store"
)

type Handler struct {
	run          RunFunc
	history      History
	artifactPath string
	format       string

	mu      sync.Mutex
	running atomic.Bool
}

// NewHandler creates a Handler serving the artifact at artifactPath, written
// in the given output format. history may be nil.
func NewHandler(run RunFunc, history History, artifactPath, format string) *Handler {
	return &Handler{
		run:          run,
		history:      history,
		artifactPath: artifactPath,
		format:       format,
	}
}

// TriggerRun runs the pipeline synchronously. The run is detached from the
// request context so a disconnecting client does not abort the crawl.
func (h *Handler) TriggerRun(c *gin.Context) {
	if !h.mu.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": ErrRunInProgress.Error()})
		return
	}
	defer h.mu.Unlock()
	h.running.Store(true)
	defer h.running.Store(false)

	summary, err := h.run(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		log.WithError(err).Error("Triggered run failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   err.Error(),
			"summary": summary,
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	if h.history == nil {
		c.JSON(http.StatusOK, []store.Run{})
		return
	}

	runs, err := h.history.ListRuns(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// GetPromotions serves the latest artifact as written by the last run.
func (h *Handler) GetPromotions(c *gin.Context) {
	data, err := os.ReadFile(h.artifactPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no promotions available yet"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read promotions"})
		return
	}
	c.Data(http.StatusOK, output.ContentType(h.format), data)
}

// GetRunPromotions returns the categories recorded for one run.
func (h *Handler) GetRunPromotions(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run id must be a positive integer"})
		return
	}
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run history is disabled"})
		return
	}

	categories, err := h.history.Categories(c.Request.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read run"})
		return
	}
	c.PureJSON(http.StatusOK, categories)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"running": h.running.Load(),
	})
}
