package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maintenance-backend/internal/apperr"
	"maintenance-backend/internal/maintenance"
	"maintenance-backend/internal/model"
	"maintenance-backend/internal/mw"
	"maintenance-backend/internal/store"
)

// CreateRequest handles POST /api/maintenance-requests.
func (h *Handler) CreateRequest(c *gin.Context) {
	var in maintenance.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.requests.Create(c.Request.Context(), in, mw.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// ListRequests handles GET /api/maintenance-requests with filtering and
// pagination.
func (h *Handler) ListRequests(c *gin.Context) {
	var f store.RequestFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.Priority != "" && !model.ValidPriority(f.Priority) {
		writeError(c, apperr.Validation("invalid priority %q", f.Priority))
		return
	}
	if f.Status != "" && !model.ValidStatus(f.Status) {
		writeError(c, apperr.Validation("invalid status %q", f.Status))
		return
	}

	page, err := h.requests.FindAll(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetRequest handles GET /api/maintenance-requests/:id.
func (h *Handler) GetRequest(c *gin.Context) {
	request, err := h.requests.FindOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// MyRequests handles GET /api/maintenance-requests/my-requests.
func (h *Handler) MyRequests(c *gin.Context) {
	requests, err := h.requests.FindByUser(c.Request.Context(), mw.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// MyAssignments handles GET /api/maintenance-requests/my-assignments.
func (h *Handler) MyAssignments(c *gin.Context) {
	requests, err := h.requests.FindByTechnician(c.Request.Context(), mw.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// UpdateRequest handles PATCH /api/maintenance-requests/:id.
func (h *Handler) UpdateRequest(c *gin.Context) {
	var in maintenance.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.requests.Update(c.Request.Context(), c.Param("id"), in, mw.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

type assignTechnicianRequest struct {
	TechnicianID string `json:"technicianId" binding:"required"`
}

// AssignTechnician handles PATCH /api/maintenance-requests/:id/assign.
func (h *Handler) AssignTechnician(c *gin.Context) {
	var req assignTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.requests.AssignTechnician(c.Request.Context(), c.Param("id"), req.TechnicianID, mw.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

type updateStatusRequest struct {
	Status  model.Status `json:"status" binding:"required"`
	Message string       `json:"message"`
}

// UpdateStatus handles PATCH /api/maintenance-requests/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.requests.UpdateStatus(
		c.Request.Context(), c.Param("id"), req.Status, mw.UserID(c), mw.Role(c), req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// DeleteRequest handles DELETE /api/maintenance-requests/:id.
func (h *Handler) DeleteRequest(c *gin.Context) {
	if err := h.requests.Remove(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetStats handles GET /api/maintenance-requests/stats.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.requests.GetStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetDashboard handles GET /api/dashboard.
func (h *Handler) GetDashboard(c *gin.Context) {
	dash, err := h.requests.GetDashboardSnapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}
