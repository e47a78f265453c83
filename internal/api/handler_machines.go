package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maintenance-backend/internal/apperr"
	"maintenance-backend/internal/model"
)

type machineRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// CreateMachine handles POST /api/machines.
func (h *Handler) CreateMachine(c *gin.Context) {
	var req machineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	machine := &model.Machine{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		IsActive:    true,
	}
	if err := h.store.CreateMachine(c.Request.Context(), machine); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, machine)
}

// ListMachines handles GET /api/machines.
func (h *Handler) ListMachines(c *gin.Context) {
	machines, err := h.store.ListMachines(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, machines)
}

// GetMachine handles GET /api/machines/:id.
func (h *Handler) GetMachine(c *gin.Context) {
	machine, err := h.store.FindMachineByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, machine)
}

type machineUpdateRequest struct {
	Code        *string `json:"code"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	IsActive    *bool   `json:"isActive"`
}

// UpdateMachine handles PATCH /api/machines/:id.
func (h *Handler) UpdateMachine(c *gin.Context) {
	ctx := c.Request.Context()
	machine, err := h.store.FindMachineByID(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req machineUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Code != nil && *req.Code != machine.Code {
		existing, err := h.store.FindMachineByCode(ctx, *req.Code)
		if err != nil && !apperr.IsNotFound(err) {
			writeError(c, err)
			return
		}
		if existing != nil {
			writeError(c, apperr.Conflict("machine code %q already exists", *req.Code))
			return
		}
		machine.Code = *req.Code
	}
	if req.Name != nil {
		machine.Name = *req.Name
	}
	if req.Description != nil {
		machine.Description = *req.Description
	}
	if req.Location != nil {
		machine.Location = *req.Location
	}
	if req.IsActive != nil {
		machine.IsActive = *req.IsActive
	}

	machine.MaintenanceRequests = nil
	if err := h.store.SaveMachine(ctx, machine); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, machine)
}

// DeleteMachine handles DELETE /api/machines/:id.
func (h *Handler) DeleteMachine(c *gin.Context) {
	if _, err := h.store.FindMachineByID(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	if err := h.store.DeleteMachine(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
