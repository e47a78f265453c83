package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"maintenance-backend/internal/apperr"
	"maintenance-backend/internal/model"
)

// requestJoins preloads the relations returned with every joined request.
func requestJoins(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Machine").
		Preload("RequestedByUser").
		Preload("AssignedToUser")
}

func (s *gormStore) CreateRequest(ctx context.Context, r *model.MaintenanceRequest) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to create maintenance request: %w", err)
	}
	return nil
}

func (s *gormStore) FindRequestByID(ctx context.Context, id string) (*model.MaintenanceRequest, error) {
	var r model.MaintenanceRequest
	err := requestJoins(s.db.WithContext(ctx)).
		Preload("Logs", func(db *gorm.DB) *gorm.DB {
			return db.Order("maintenance_logs.created_at DESC")
		}).
		Preload("Logs.ActionByUser").
		First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("maintenance request %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find maintenance request %s: %w", id, err)
	}
	return &r, nil
}

func (s *gormStore) SaveRequest(ctx context.Context, r *model.MaintenanceRequest) error {
	// Save only the row's own columns; preloaded associations must not be
	// written back.
	err := s.db.WithContext(ctx).
		Omit("Machine", "RequestedByUser", "AssignedToUser", "Logs").
		Save(&model.MaintenanceRequest{
			ID:          r.ID,
			MachineID:   r.MachineID,
			RequestedBy: r.RequestedBy,
			AssignedTo:  r.AssignedTo,
			Title:       r.Title,
			Description: r.Description,
			Priority:    r.Priority,
			Status:      r.Status,
			ImageURL:    r.ImageURL,
			CreatedAt:   r.CreatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to save maintenance request %s: %w", r.ID, err)
	}
	return nil
}

func (s *gormStore) ListRequests(ctx context.Context, f RequestFilter) (*Page[model.MaintenanceRequest], error) {
	f.Normalize()

	q := s.db.WithContext(ctx).Model(&model.MaintenanceRequest{})
	if f.MachineID != "" {
		q = q.Where("machine_id = ?", f.MachineID)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.StartDate != nil && f.EndDate != nil {
		q = q.Where("created_at BETWEEN ? AND ?", f.StartDate, f.EndDate)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count maintenance requests: %w", err)
	}

	var data []model.MaintenanceRequest
	err := requestJoins(q).
		Order("created_at DESC").
		Offset(f.Offset()).
		Limit(f.Limit).
		Find(&data).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance requests: %w", err)
	}

	return NewPage(data, total, f.Page, f.Limit), nil
}

func (s *gormStore) ListRequestsByTechnician(ctx context.Context, technicianID string) ([]model.MaintenanceRequest, error) {
	var data []model.MaintenanceRequest
	err := s.db.WithContext(ctx).
		Preload("Machine").
		Preload("RequestedByUser").
		Where("assigned_to = ?", technicianID).
		Order("created_at DESC").
		Find(&data).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for technician %s: %w", technicianID, err)
	}
	return data, nil
}

func (s *gormStore) ListRequestsByRequester(ctx context.Context, userID string) ([]model.MaintenanceRequest, error) {
	var data []model.MaintenanceRequest
	err := s.db.WithContext(ctx).
		Preload("Machine").
		Preload("AssignedToUser").
		Where("requested_by = ?", userID).
		Order("created_at DESC").
		Find(&data).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for user %s: %w", userID, err)
	}
	return data, nil
}

func (s *gormStore) ListTopByStatus(ctx context.Context, status model.Status, limit int) ([]model.MaintenanceRequest, error) {
	var data []model.MaintenanceRequest
	err := requestJoins(s.db.WithContext(ctx)).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&data).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s requests: %w", status, err)
	}
	return data, nil
}

func (s *gormStore) ListCompletedBetween(ctx context.Context, from, to time.Time, limit int) ([]model.MaintenanceRequest, error) {
	var data []model.MaintenanceRequest
	err := requestJoins(s.db.WithContext(ctx)).
		Where("status = ? AND updated_at >= ? AND updated_at < ?", model.StatusCompleted, from, to).
		Order("updated_at DESC").
		Limit(limit).
		Find(&data).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list requests completed between %s and %s: %w", from, to, err)
	}
	return data, nil
}

func (s *gormStore) ListRecentCompleted(ctx context.Context, limit int) ([]model.MaintenanceRequest, error) {
	var data []model.MaintenanceRequest
	err := s.db.WithContext(ctx).
		Preload("Machine").
		Where("status = ?", model.StatusCompleted).
		Order("updated_at DESC").
		Limit(limit).
		Find(&data).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recently completed requests: %w", err)
	}
	return data, nil
}

func (s *gormStore) CountRequests(ctx context.Context, c RequestCount) (int64, error) {
	q := s.db.WithContext(ctx).Model(&model.MaintenanceRequest{})
	if c.Status != "" {
		q = q.Where("status = ?", c.Status)
	}
	if len(c.Statuses) > 0 {
		q = q.Where("status IN ?", c.Statuses)
	}
	if c.CreatedFrom != nil {
		q = q.Where("created_at >= ?", c.CreatedFrom)
	}
	if c.CreatedTo != nil {
		q = q.Where("created_at < ?", c.CreatedTo)
	}
	if c.UpdatedFrom != nil {
		q = q.Where("updated_at >= ?", c.UpdatedFrom)
	}
	if c.UpdatedTo != nil {
		q = q.Where("updated_at < ?", c.UpdatedTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count maintenance requests: %w", err)
	}
	return total, nil
}

func (s *gormStore) TechnicianWorkloads(ctx context.Context) ([]TechnicianWorkload, error) {
	var rows []TechnicianWorkload
	err := s.db.WithContext(ctx).
		Model(&model.MaintenanceRequest{}).
		Select(`maintenance_requests.assigned_to AS technician_id,
			users.full_name AS technician_name,
			SUM(CASE WHEN maintenance_requests.status = 'OPEN' THEN 1 ELSE 0 END) AS open,
			SUM(CASE WHEN maintenance_requests.status = 'IN_PROGRESS' THEN 1 ELSE 0 END) AS in_progress,
			SUM(CASE WHEN maintenance_requests.status = 'COMPLETED' THEN 1 ELSE 0 END) AS completed`).
		Joins("JOIN users ON users.id = maintenance_requests.assigned_to").
		Where("maintenance_requests.assigned_to IS NOT NULL").
		Group("maintenance_requests.assigned_to, users.full_name").
		Order("open + in_progress ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate technician workloads: %w", err)
	}
	return rows, nil
}

// DeleteRequestWithLogs removes a request together with its audit log entries
// in one transaction. Log rows never outlive their parent.
func (s *gormStore) DeleteRequestWithLogs(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("request_id = ?", id).Delete(&model.MaintenanceLog{}).Error; err != nil {
			return fmt.Errorf("failed to delete logs for request %s: %w", id, err)
		}
		if err := tx.Delete(&model.MaintenanceRequest{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete request %s: %w", id, err)
		}
		return nil
	})
}
