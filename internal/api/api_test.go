package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"maintenance-backend/config"
	"maintenance-backend/internal/audit"
	"maintenance-backend/internal/db"
	"maintenance-backend/internal/maintenance"
	"maintenance-backend/internal/model"
	"maintenance-backend/internal/notification"
	"maintenance-backend/internal/realtime"
	"maintenance-backend/internal/store"
)

const testSecret = "api-test-secret"

type apiFixture struct {
	store  store.Store
	router *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))

	s := store.NewGormStore(gormDB)
	hub := realtime.NewHub()
	webpushOptions := &webpush.Options{VAPIDPublicKey: "test-public-key"}
	// Workers are never started; async pushes stay queued and are discarded
	// with the fixture.
	dispatcher := notification.NewDispatcher(s, webpushOptions, 1, 64)
	logs := audit.NewWriter(s)
	requests := maintenance.NewService(s, logs, hub, dispatcher)

	handler := NewHandler(s, requests, logs, dispatcher, hub, webpushOptions)
	cfg := &config.Config{
		Server: config.ServerConfig{
			RateLimitPerSec: 1000,
			RateLimitBurst:  1000,
			CacheTTLSeconds: 1,
		},
		Auth: config.AuthConfig{JWTSecret: testSecret},
	}
	return &apiFixture{store: s, router: NewRouter(handler, cfg)}
}

func (f *apiFixture) seedUser(t *testing.T, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		ID:       uuid.NewString(),
		Username: uuid.NewString()[:8],
		Email:    uuid.NewString()[:8] + "@example.com",
		FullName: "Test " + string(role),
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, f.store.DB().Create(u).Error)
	return u
}

func (f *apiFixture) seedMachine(t *testing.T, code string) *model.Machine {
	t.Helper()
	m := &model.Machine{Code: code, Name: "Machine " + code, IsActive: true}
	require.NoError(t, f.store.CreateMachine(context.Background(), m))
	return m
}

func tokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRequestsRequireAuth(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/maintenance-requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVAPIDPublicKeyIsPublic(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/notifications/vapid-public-key", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "test-public-key", body["publicKey"])
}

func TestCreateAndGetRequest(t *testing.T) {
	f := newAPIFixture(t)
	user := f.seedUser(t, model.RoleUser)
	machine := f.seedMachine(t, "CNC-01")
	token := tokenFor(t, user)

	w := f.do(t, http.MethodPost, "/api/maintenance-requests", token, gin.H{
		"machineId":   machine.ID,
		"title":       "Spindle noise",
		"description": "Grinding noise at high rpm",
		"priority":    "HIGH",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decode[model.MaintenanceRequest](t, w)
	assert.Equal(t, model.StatusOpen, created.Status)
	assert.Equal(t, model.PriorityHigh, created.Priority)
	assert.Equal(t, user.ID, created.RequestedBy)

	w = f.do(t, http.MethodGet, "/api/maintenance-requests/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/maintenance-requests/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRequest_ValidationErrors(t *testing.T) {
	f := newAPIFixture(t)
	user := f.seedUser(t, model.RoleUser)
	machine := f.seedMachine(t, "CNC-02")
	token := tokenFor(t, user)

	// Missing required fields.
	w := f.do(t, http.MethodPost, "/api/maintenance-requests", token, gin.H{
		"machineId": machine.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown priority.
	w = f.do(t, http.MethodPost, "/api/maintenance-requests", token, gin.H{
		"machineId":   machine.ID,
		"title":       "t",
		"description": "d",
		"priority":    "EXTREME",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown machine.
	w = f.do(t, http.MethodPost, "/api/maintenance-requests", token, gin.H{
		"machineId":   uuid.NewString(),
		"title":       "t",
		"description": "d",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRequests_Pagination(t *testing.T) {
	f := newAPIFixture(t)
	user := f.seedUser(t, model.RoleUser)
	machine := f.seedMachine(t, "CNC-03")
	token := tokenFor(t, user)

	for i := 0; i < 25; i++ {
		w := f.do(t, http.MethodPost, "/api/maintenance-requests", token, gin.H{
			"machineId":   machine.ID,
			"title":       fmt.Sprintf("Request %d", i),
			"description": "d",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := f.do(t, http.MethodGet, "/api/maintenance-requests?page=2&limit=10", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[store.Page[model.MaintenanceRequest]](t, w)
	assert.Len(t, page.Data, 10)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)

	w = f.do(t, http.MethodGet, "/api/maintenance-requests?status=BROKEN", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignAndStatusFlow(t *testing.T) {
	f := newAPIFixture(t)
	user := f.seedUser(t, model.RoleUser)
	admin := f.seedUser(t, model.RoleAdmin)
	tech := f.seedUser(t, model.RoleTechnician)
	otherTech := f.seedUser(t, model.RoleTechnician)
	machine := f.seedMachine(t, "CNC-04")

	w := f.do(t, http.MethodPost, "/api/maintenance-requests", tokenFor(t, user), gin.H{
		"machineId": machine.ID, "title": "t", "description": "d",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[model.MaintenanceRequest](t, w)

	// Assignment is admin-only.
	w = f.do(t, http.MethodPatch, "/api/maintenance-requests/"+created.ID+"/assign",
		tokenFor(t, user), gin.H{"technicianId": tech.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Assigning a non-technician fails validation.
	w = f.do(t, http.MethodPatch, "/api/maintenance-requests/"+created.ID+"/assign",
		tokenFor(t, admin), gin.H{"technicianId": user.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, "/api/maintenance-requests/"+created.ID+"/assign",
		tokenFor(t, admin), gin.H{"technicianId": tech.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assigned := decode[model.MaintenanceRequest](t, w)
	assert.Equal(t, model.StatusInProgress, assigned.Status)

	// A plain user may not change status at all.
	w = f.do(t, http.MethodPatch, "/api/maintenance-requests/"+created.ID+"/status",
		tokenFor(t, user), gin.H{"status": "COMPLETED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A technician who is not the assignee is rejected.
	w = f.do(t, http.MethodPatch, "/api/maintenance-requests/"+created.ID+"/status",
		tokenFor(t, otherTech), gin.H{"status": "COMPLETED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPatch, "/api/maintenance-requests/"+created.ID+"/status",
		tokenFor(t, tech), gin.H{"status": "COMPLETED", "message": "Replaced the belt"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[model.MaintenanceRequest](t, w)
	assert.Equal(t, model.StatusCompleted, done.Status)

	// The audit trail is reachable through the API, newest first.
	w = f.do(t, http.MethodGet, "/api/maintenance-requests/"+created.ID+"/logs", tokenFor(t, user), nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[[]model.MaintenanceLog](t, w)
	require.Len(t, logs, 3)
	assert.Equal(t, "Replaced the belt", logs[0].Message)
}

func TestMyRequestsAndAssignments(t *testing.T) {
	f := newAPIFixture(t)
	user := f.seedUser(t, model.RoleUser)
	admin := f.seedUser(t, model.RoleAdmin)
	tech := f.seedUser(t, model.RoleTechnician)
	machine := f.seedMachine(t, "CNC-05")

	w := f.do(t, http.MethodPost, "/api/maintenance-requests", tokenFor(t, user), gin.H{
		"machineId": machine.ID, "title": "t", "description": "d",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[model.MaintenanceRequest](t, w)

	w = f.do(t, http.MethodPatch, "/api/maintenance-requests/"+created.ID+"/assign",
		tokenFor(t, admin), gin.H{"technicianId": tech.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/maintenance-requests/my-requests", tokenFor(t, user), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.MaintenanceRequest](t, w), 1)

	// my-assignments is technician/admin surface.
	w = f.do(t, http.MethodGet, "/api/maintenance-requests/my-assignments", tokenFor(t, user), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, "/api/maintenance-requests/my-assignments", tokenFor(t, tech), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.MaintenanceRequest](t, w), 1)
}

func TestDeleteRequest_AdminOnly(t *testing.T) {
	f := newAPIFixture(t)
	user := f.seedUser(t, model.RoleUser)
	admin := f.seedUser(t, model.RoleAdmin)
	machine := f.seedMachine(t, "CNC-06")

	w := f.do(t, http.MethodPost, "/api/maintenance-requests", tokenFor(t, user), gin.H{
		"machineId": machine.ID, "title": "t", "description": "d",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[model.MaintenanceRequest](t, w)

	w = f.do(t, http.MethodDelete, "/api/maintenance-requests/"+created.ID, tokenFor(t, user), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodDelete, "/api/maintenance-requests/"+created.ID, tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/maintenance-requests/"+created.ID, tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMachineCRUD(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.seedUser(t, model.RoleAdmin)
	user := f.seedUser(t, model.RoleUser)

	w := f.do(t, http.MethodPost, "/api/machines", tokenFor(t, user), gin.H{
		"code": "LATHE-1", "name": "Lathe",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/machines", tokenFor(t, admin), gin.H{
		"code": "LATHE-1", "name": "Lathe", "location": "Hall A",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.Machine](t, w)
	assert.True(t, created.IsActive)

	// Duplicate code conflicts.
	w = f.do(t, http.MethodPost, "/api/machines", tokenFor(t, admin), gin.H{
		"code": "LATHE-1", "name": "Another Lathe",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPatch, "/api/machines/"+created.ID, tokenFor(t, admin), gin.H{
		"name": "Lathe (rebuilt)", "isActive": false,
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[model.Machine](t, w)
	assert.Equal(t, "Lathe (rebuilt)", updated.Name)
	assert.False(t, updated.IsActive)

	w = f.do(t, http.MethodDelete, "/api/machines/"+created.ID, tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/machines/"+created.ID, tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptionFlow(t *testing.T) {
	f := newAPIFixture(t)
	user := f.seedUser(t, model.RoleUser)
	token := tokenFor(t, user)

	w := f.do(t, http.MethodPost, "/api/notifications/subscribe", token, gin.H{
		"endpoint": "https://push.example.com/device-1",
		"keys":     gin.H{"p256dh": "pk", "auth": "ak"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/notifications/subscriptions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.PushSubscription](t, w), 1)

	w = f.do(t, http.MethodDelete, "/api/notifications/unsubscribe", token, gin.H{
		"endpoint": "https://push.example.com/device-1",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/notifications/subscriptions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]model.PushSubscription](t, w))
}

func TestCleanupSubscriptions_AdminOnly(t *testing.T) {
	f := newAPIFixture(t)
	user := f.seedUser(t, model.RoleUser)
	admin := f.seedUser(t, model.RoleAdmin)

	deadID := uuid.NewString()
	require.NoError(t, f.store.DB().Create(&model.PushSubscription{
		ID:       deadID,
		UserID:   user.ID,
		Endpoint: "https://push.example.com/dead",
		P256DH:   "pk",
		Auth:     "ak",
		IsActive: false,
		LastUsed: time.Now(),
	}).Error)
	// GORM skips zero-value fields that carry a default tag on Create, so
	// force the inactive flag with an explicit update.
	require.NoError(t, f.store.DB().Model(&model.PushSubscription{}).
		Where("id = ?", deadID).Update("is_active", false).Error)

	w := f.do(t, http.MethodPost, "/api/notifications/cleanup", tokenFor(t, user), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/notifications/cleanup", tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]int64](t, w)
	assert.Equal(t, int64(1), body["removed"])
}

func TestSettingsEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.seedUser(t, model.RoleAdmin)
	user := f.seedUser(t, model.RoleUser)
	require.NoError(t, f.store.SeedDefaultSettings(context.Background()))

	w := f.do(t, http.MethodGet, "/api/settings/sessionTimeout", tokenFor(t, user), nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[map[string]any](t, w)
	assert.Equal(t, float64(60), view["value"], "number settings decode to JSON numbers")

	w = f.do(t, http.MethodPut, "/api/settings/sessionTimeout", tokenFor(t, user), gin.H{"value": "30"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPut, "/api/settings/sessionTimeout", tokenFor(t, admin), gin.H{"value": "30"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/settings/sessionTimeout", tokenFor(t, user), nil)
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[map[string]any](t, w)
	assert.Equal(t, float64(30), view["value"])
}

func TestStatsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	user := f.seedUser(t, model.RoleUser)
	machine := f.seedMachine(t, "CNC-07")
	token := tokenFor(t, user)

	for i := 0; i < 3; i++ {
		w := f.do(t, http.MethodPost, "/api/maintenance-requests", token, gin.H{
			"machineId": machine.ID, "title": "t", "description": "d",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := f.do(t, http.MethodGet, "/api/maintenance-requests/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[maintenance.Stats](t, w)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(3), stats.Open)
}

func TestRecentLogs_AdminOnly(t *testing.T) {
	f := newAPIFixture(t)
	user := f.seedUser(t, model.RoleUser)
	admin := f.seedUser(t, model.RoleAdmin)
	machine := f.seedMachine(t, "CNC-08")

	w := f.do(t, http.MethodPost, "/api/maintenance-requests", tokenFor(t, user), gin.H{
		"machineId": machine.ID, "title": "t", "description": "d",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodGet, "/api/maintenance-logs/recent", tokenFor(t, user), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, "/api/maintenance-logs/recent?limit=5", tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.MaintenanceLog](t, w), 1)
}
