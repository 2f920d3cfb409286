package api

import (
	"net/http"
	"strconv"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 20

type handlers struct {
	fetch    *core.FetchService
	submit   *core.SubmitService
	pipeline *core.PipelineService
	logger   *zap.Logger
}

func newHandlers(fetch *core.FetchService, submit *core.SubmitService, pipeline *core.PipelineService, logger *zap.Logger) *handlers {
	return &handlers{
		fetch:    fetch,
		submit:   submit,
		pipeline: pipeline,
		logger:   logger,
	}
}

func (h *handlers) getEmails(c *gin.Context) {
	result, err := h.fetch.FetchNew(c.Request.Context())
	if err != nil {
		h.fail(c, "get_emails", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) processEmails(c *gin.Context) {
	results, err := h.submit.ProcessStaged(c.Request.Context())
	if err != nil {
		h.fail(c, "process_emails", err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *handlers) run(c *gin.Context) {
	result, err := h.pipeline.Run(c.Request.Context())
	if err != nil {
		h.fail(c, "run", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) submissions(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := h.submit.History(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, "submissions", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *handlers) fail(c *gin.Context, op string, err error) {
	h.logger.Error("Request failed", zap.String("operation", op), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
