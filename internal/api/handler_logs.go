package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"maintenance-backend/internal/audit"
)

// ListRequestLogs handles GET /api/maintenance-requests/:id/logs.
func (h *Handler) ListRequestLogs(c *gin.Context) {
	logs, err := h.logs.ListByRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// ListRecentLogs handles GET /api/maintenance-logs/recent, the operational
// cross-request feed.
func (h *Handler) ListRecentLogs(c *gin.Context) {
	limit := audit.DefaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	logs, err := h.logs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
