package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"maintenance-backend/internal/model"
	"maintenance-backend/internal/mw"
	"maintenance-backend/internal/notification"
)

// staleAfter is the unused-subscription cutoff for the cleanup pass.
const staleAfter = 30 * 24 * time.Hour

// GetVAPIDPublicKey returns the VAPID public key to the client.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vapid keys are not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.webpush.VAPIDPublicKey})
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256DH string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
	DeviceName string `json:"deviceName"`
}

// Subscribe handles POST /api/notifications/subscribe.
func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.store.UpsertSubscription(c.Request.Context(), &model.PushSubscription{
		UserID:     mw.UserID(c),
		Endpoint:   req.Endpoint,
		P256DH:     req.Keys.P256DH,
		Auth:       req.Keys.Auth,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		DeviceName: req.DeviceName,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":        "Successfully subscribed to push notifications",
		"subscriptionId": sub.ID,
	})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// Unsubscribe handles DELETE /api/notifications/unsubscribe.
func (h *Handler) Unsubscribe(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.DeactivateSubscription(c.Request.Context(), mw.UserID(c), req.Endpoint); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UnsubscribeAll handles DELETE /api/notifications/unsubscribe-all.
func (h *Handler) UnsubscribeAll(c *gin.Context) {
	if err := h.store.DeactivateAllSubscriptions(c.Request.Context(), mw.UserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubscriptions handles GET /api/notifications/subscriptions, returning
// the caller's active devices.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	subs, err := h.store.ActiveSubscriptionsByUser(c.Request.Context(), mw.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

type sendNotificationRequest struct {
	UserIDs []string `json:"userIds"`
	All     bool     `json:"all"`
	Title   string   `json:"title" binding:"required"`
	Body    string   `json:"body" binding:"required"`
	URL     string   `json:"url"`
	Tag     string   `json:"tag"`
}

// SendNotification handles POST /api/notifications/send (admin).
func (h *Handler) SendNotification(c *gin.Context) {
	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.All && len(req.UserIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userIds or all is required"})
		return
	}

	payload := notification.Payload{
		Title: req.Title,
		Body:  req.Body,
		URL:   req.URL,
		Tag:   req.Tag,
	}

	var (
		res notification.Result
		err error
	)
	if req.All {
		res, err = h.dispatcher.SendToAll(c.Request.Context(), payload)
	} else {
		res, err = h.dispatcher.SendToUsers(c.Request.Context(), req.UserIDs, payload)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CleanupSubscriptions handles POST /api/notifications/cleanup (admin),
// deleting inactive rows and rows unused past the staleness cutoff.
func (h *Handler) CleanupSubscriptions(c *gin.Context) {
	removed, err := h.store.PurgeStaleSubscriptions(c.Request.Context(), time.Now().Add(-staleAfter))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
