package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maintenance-backend/internal/model"
	"maintenance-backend/internal/store"
)

// settingView is a setting with its value decoded per type tag.
type settingView struct {
	Key         string            `json:"key"`
	Value       any               `json:"value"`
	Type        model.SettingType `json:"type"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category"`
}

func toSettingView(s *model.Setting) settingView {
	value, err := store.DecodeSettingValue(s)
	if err != nil {
		// A malformed stored value falls back to its raw text.
		value = s.Value
	}
	return settingView{
		Key:         s.Key,
		Value:       value,
		Type:        s.Type,
		Description: s.Description,
		Category:    s.Category,
	}
}

// ListSettings handles GET /api/settings, optionally filtered by category.
func (h *Handler) ListSettings(c *gin.Context) {
	settings, err := h.store.ListSettings(c.Request.Context(), c.Query("category"))
	if err != nil {
		writeError(c, err)
		return
	}

	views := make([]settingView, 0, len(settings))
	for i := range settings {
		views = append(views, toSettingView(&settings[i]))
	}
	c.JSON(http.StatusOK, views)
}

// GetSetting handles GET /api/settings/:key.
func (h *Handler) GetSetting(c *gin.Context) {
	setting, err := h.store.GetSetting(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSettingView(setting))
}

type settingUpdateRequest struct {
	Value       string            `json:"value" binding:"required"`
	Type        model.SettingType `json:"type"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
}

// PutSetting handles PUT /api/settings/:key (admin).
func (h *Handler) PutSetting(c *gin.Context) {
	var req settingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	setting := &model.Setting{
		Key:         c.Param("key"),
		Value:       req.Value,
		Type:        req.Type,
		Description: req.Description,
		Category:    req.Category,
	}
	if err := h.store.UpsertSetting(c.Request.Context(), setting); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSettingView(setting))
}

type bulkSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}

// PutSettings handles PUT /api/settings (admin), updating values in bulk.
func (h *Handler) PutSettings(c *gin.Context) {
	var req bulkSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for key, value := range req.Settings {
		if err := h.store.UpsertSetting(c.Request.Context(), &model.Setting{Key: key, Value: value}); err != nil {
			writeError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}
