package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"maintenance-backend/internal/model"
)

func (s *gormStore) CreateLog(ctx context.Context, l *model.MaintenanceLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to create maintenance log: %w", err)
	}
	return nil
}

func (s *gormStore) ListLogsByRequest(ctx context.Context, requestID string) ([]model.MaintenanceLog, error) {
	var logs []model.MaintenanceLog
	err := s.db.WithContext(ctx).
		Preload("ActionByUser").
		Where("request_id = ?", requestID).
		Order("created_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list logs for request %s: %w", requestID, err)
	}
	return logs, nil
}

func (s *gormStore) ListRecentLogs(ctx context.Context, limit int) ([]model.MaintenanceLog, error) {
	var logs []model.MaintenanceLog
	err := s.db.WithContext(ctx).
		Preload("ActionByUser").
		Preload("Request").
		Preload("Request.Machine").
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent logs: %w", err)
	}
	return logs, nil
}
