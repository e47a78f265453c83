package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"maintenance-backend/internal/apperr"
	"maintenance-backend/internal/model"
)

func (s *gormStore) CreateMachine(ctx context.Context, m *model.Machine) error {
	existing, err := s.FindMachineByCode(ctx, m.Code)
	if err != nil && !apperr.IsNotFound(err) {
		return err
	}
	if existing != nil {
		return apperr.Conflict("machine code %q already exists", m.Code)
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create machine: %w", err)
	}
	return nil
}

func (s *gormStore) FindMachineByID(ctx context.Context, id string) (*model.Machine, error) {
	var m model.Machine
	err := s.db.WithContext(ctx).
		Preload("MaintenanceRequests", func(db *gorm.DB) *gorm.DB {
			return db.Order("maintenance_requests.created_at DESC")
		}).
		First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("machine %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find machine %s: %w", id, err)
	}
	return &m, nil
}

func (s *gormStore) FindMachineByCode(ctx context.Context, code string) (*model.Machine, error) {
	var m model.Machine
	err := s.db.WithContext(ctx).First(&m, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("machine with code %q not found", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find machine by code %q: %w", code, err)
	}
	return &m, nil
}

func (s *gormStore) ListMachines(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, nil
}

func (s *gormStore) SaveMachine(ctx context.Context, m *model.Machine) error {
	err := s.db.WithContext(ctx).
		Omit("MaintenanceRequests").
		Save(m).Error
	if err != nil {
		return fmt.Errorf("failed to save machine %s: %w", m.ID, err)
	}
	return nil
}

func (s *gormStore) DeleteMachine(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&model.Machine{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete machine %s: %w", id, err)
	}
	return nil
}
