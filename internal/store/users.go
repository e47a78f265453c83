package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"maintenance-backend/internal/apperr"
	"maintenance-backend/internal/model"
)

func (s *gormStore) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", id, err)
	}
	return &u, nil
}

func (s *gormStore) UserIDsByRole(ctx context.Context, role model.Role) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("role = ? AND is_active = ?", role, true).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s user ids: %w", role, err)
	}
	return ids, nil
}
