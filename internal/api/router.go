package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"maintenance-backend/config"
	"maintenance-backend/internal/model"
	"maintenance-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	authn := mw.Auth(cfg.Auth.JWTSecret)
	adminOnly := mw.RequireRoles(model.RoleAdmin)
	adminOrTech := mw.RequireRoles(model.RoleAdmin, model.RoleTechnician)

	api := r.Group("/api")
	api.Use(rateLimiter)

	// Public surface: the VAPID key is needed before a client can subscribe,
	// and the websocket endpoint authenticates at the application level via
	// room semantics.
	api.GET("/notifications/vapid-public-key", h.GetVAPIDPublicKey)
	api.GET("/ws", h.ServeWS)

	authed := api.Group("")
	authed.Use(authn)
	{
		requests := authed.Group("/maintenance-requests")
		{
			requests.POST("", h.CreateRequest)
			requests.GET("", h.ListRequests)
			requests.GET("/stats", h.GetStats)
			requests.GET("/my-requests", h.MyRequests)
			requests.GET("/my-assignments", adminOrTech, h.MyAssignments)
			requests.GET("/:id", h.GetRequest)
			requests.PATCH("/:id", h.UpdateRequest)
			requests.PATCH("/:id/assign", adminOnly, h.AssignTechnician)
			requests.PATCH("/:id/status", adminOrTech, h.UpdateStatus)
			requests.DELETE("/:id", adminOnly, h.DeleteRequest)
			requests.GET("/:id/logs", h.ListRequestLogs)
		}

		authed.GET("/dashboard", caching, h.GetDashboard)
		authed.GET("/maintenance-logs/recent", adminOnly, h.ListRecentLogs)

		machines := authed.Group("/machines")
		{
			machines.GET("", caching, h.ListMachines)
			machines.GET("/:id", h.GetMachine)
			machines.POST("", adminOnly, h.CreateMachine)
			machines.PATCH("/:id", adminOnly, h.UpdateMachine)
			machines.DELETE("/:id", adminOnly, h.DeleteMachine)
		}

		notifications := authed.Group("/notifications")
		{
			notifications.POST("/subscribe", h.Subscribe)
			notifications.DELETE("/unsubscribe", h.Unsubscribe)
			notifications.DELETE("/unsubscribe-all", h.UnsubscribeAll)
			notifications.GET("/subscriptions", h.ListSubscriptions)
			notifications.POST("/send", adminOnly, h.SendNotification)
			notifications.POST("/cleanup", adminOnly, h.CleanupSubscriptions)
		}

		settings := authed.Group("/settings")
		{
			settings.GET("", h.ListSettings)
			settings.GET("/:key", h.GetSetting)
			settings.PUT("/:key", adminOnly, h.PutSetting)
			settings.PUT("", adminOnly, h.PutSettings)
		}
	}

	return r
}
