package api

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"maintenance-backend/internal/apperr"
	"maintenance-backend/internal/audit"
	"maintenance-backend/internal/maintenance"
	"maintenance-backend/internal/notification"
	"maintenance-backend/internal/realtime"
	"maintenance-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	requests   *maintenance.Service
	logs       *audit.Writer
	dispatcher *notification.Dispatcher
	hub        *realtime.Hub
	webpush    *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(
	s store.Store,
	requests *maintenance.Service,
	logs *audit.Writer,
	dispatcher *notification.Dispatcher,
	hub *realtime.Hub,
	webpushOptions *webpush.Options,
) *Handler {
	return &Handler{
		store:      s,
		requests:   requests,
		logs:       logs,
		dispatcher: dispatcher,
		hub:        hub,
		webpush:    webpushOptions,
	}
}

// writeError maps the application error taxonomy onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindPermission:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
