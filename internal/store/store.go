package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"maintenance-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// Users
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	UserIDsByRole(ctx context.Context, role model.Role) ([]string, error)

	// Machines
	CreateMachine(ctx context.Context, m *model.Machine) error
	FindMachineByID(ctx context.Context, id string) (*model.Machine, error)
	FindMachineByCode(ctx context.Context, code string) (*model.Machine, error)
	ListMachines(ctx context.Context) ([]model.Machine, error)
	SaveMachine(ctx context.Context, m *model.Machine) error
	DeleteMachine(ctx context.Context, id string) error

	// Maintenance requests
	CreateRequest(ctx context.Context, r *model.MaintenanceRequest) error
	FindRequestByID(ctx context.Context, id string) (*model.MaintenanceRequest, error)
	SaveRequest(ctx context.Context, r *model.MaintenanceRequest) error
	ListRequests(ctx context.Context, f RequestFilter) (*Page[model.MaintenanceRequest], error)
	ListRequestsByTechnician(ctx context.Context, technicianID string) ([]model.MaintenanceRequest, error)
	ListRequestsByRequester(ctx context.Context, userID string) ([]model.MaintenanceRequest, error)
	ListTopByStatus(ctx context.Context, status model.Status, limit int) ([]model.MaintenanceRequest, error)
	ListCompletedBetween(ctx context.Context, from, to time.Time, limit int) ([]model.MaintenanceRequest, error)
	ListRecentCompleted(ctx context.Context, limit int) ([]model.MaintenanceRequest, error)
	CountRequests(ctx context.Context, c RequestCount) (int64, error)
	TechnicianWorkloads(ctx context.Context) ([]TechnicianWorkload, error)
	DeleteRequestWithLogs(ctx context.Context, id string) error

	// Maintenance logs
	CreateLog(ctx context.Context, l *model.MaintenanceLog) error
	ListLogsByRequest(ctx context.Context, requestID string) ([]model.MaintenanceLog, error)
	ListRecentLogs(ctx context.Context, limit int) ([]model.MaintenanceLog, error)

	// Push subscriptions
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) (*model.PushSubscription, error)
	DeactivateSubscription(ctx context.Context, userID, endpoint string) error
	DeactivateAllSubscriptions(ctx context.Context, userID string) error
	DeactivateSubscriptionByID(ctx context.Context, id string) error
	TouchSubscription(ctx context.Context, id string, at time.Time) error
	ActiveSubscriptionsByUser(ctx context.Context, userID string) ([]model.PushSubscription, error)
	ActiveSubscriptionsByIP(ctx context.Context, ip string) ([]model.PushSubscription, error)
	ActiveSubscriptionsByUsers(ctx context.Context, userIDs []string) ([]model.PushSubscription, error)
	ActiveSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
	PurgeStaleSubscriptions(ctx context.Context, cutoff time.Time) (int64, error)

	// Settings
	ListSettings(ctx context.Context, category string) ([]model.Setting, error)
	GetSetting(ctx context.Context, key string) (*model.Setting, error)
	UpsertSetting(ctx context.Context, s *model.Setting) error
	SeedDefaultSettings(ctx context.Context) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying gorm handle for migrations and tests.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}
