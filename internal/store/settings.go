package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"maintenance-backend/internal/apperr"
	"maintenance-backend/internal/model"
)

// defaultSettings are seeded once at startup; existing keys are left alone.
var defaultSettings = []model.Setting{
	{Key: "siteName", Value: "Machine Maintenance System", Type: model.SettingString, Category: "general", Description: "Display name of the system"},
	{Key: "maintenanceMode", Value: "false", Type: model.SettingBoolean, Category: "general", Description: "Disable non-admin access"},
	{Key: "defaultUserRole", Value: "USER", Type: model.SettingString, Category: "user", Description: "Role granted to new accounts"},
	{Key: "sessionTimeout", Value: "60", Type: model.SettingNumber, Category: "user", Description: "Session expiry in minutes"},
	{Key: "autoAssignTechnician", Value: "false", Type: model.SettingBoolean, Category: "notification", Description: "Assign technicians automatically"},
	{Key: "maxUploadSize", Value: "10", Type: model.SettingNumber, Category: "system", Description: "Maximum upload size in MB"},
}

func (s *gormStore) ListSettings(ctx context.Context, category string) ([]model.Setting, error) {
	q := s.db.WithContext(ctx).Order("category, key")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var settings []model.Setting
	if err := q.Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}

func (s *gormStore) GetSetting(ctx context.Context, key string) (*model.Setting, error) {
	var setting model.Setting
	err := s.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("setting %q not found", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting %q: %w", key, err)
	}
	return &setting, nil
}

func (s *gormStore) UpsertSetting(ctx context.Context, setting *model.Setting) error {
	existing, err := s.GetSetting(ctx, setting.Key)
	if err != nil && !apperr.IsNotFound(err) {
		return err
	}
	if existing != nil {
		existing.Value = setting.Value
		if setting.Type != "" {
			existing.Type = setting.Type
		}
		if setting.Description != "" {
			existing.Description = setting.Description
		}
		if setting.Category != "" {
			existing.Category = setting.Category
		}
		if err := s.db.WithContext(ctx).Save(existing).Error; err != nil {
			return fmt.Errorf("failed to update setting %q: %w", setting.Key, err)
		}
		*setting = *existing
		return nil
	}

	setting.ID = uuid.NewString()
	if setting.Type == "" {
		setting.Type = model.SettingString
	}
	if setting.Category == "" {
		setting.Category = "general"
	}
	if err := s.db.WithContext(ctx).Create(setting).Error; err != nil {
		return fmt.Errorf("failed to create setting %q: %w", setting.Key, err)
	}
	return nil
}

// SeedDefaultSettings inserts any default setting whose key is missing.
func (s *gormStore) SeedDefaultSettings(ctx context.Context) error {
	for _, def := range defaultSettings {
		_, err := s.GetSetting(ctx, def.Key)
		if err == nil {
			continue
		}
		if !apperr.IsNotFound(err) {
			return err
		}
		def.ID = uuid.NewString()
		if err := s.db.WithContext(ctx).Create(&def).Error; err != nil {
			return fmt.Errorf("failed to seed setting %q: %w", def.Key, err)
		}
	}
	return nil
}

// DecodeSettingValue converts a setting's text value per its type tag.
func DecodeSettingValue(setting *model.Setting) (any, error) {
	switch setting.Type {
	case model.SettingNumber:
		n, err := strconv.ParseFloat(setting.Value, 64)
		if err != nil {
			return nil, apperr.Validation("setting %q is not a number: %v", setting.Key, err)
		}
		return n, nil
	case model.SettingBoolean:
		b, err := strconv.ParseBool(setting.Value)
		if err != nil {
			return nil, apperr.Validation("setting %q is not a boolean: %v", setting.Key, err)
		}
		return b, nil
	case model.SettingJSON:
		var v any
		if err := json.Unmarshal([]byte(setting.Value), &v); err != nil {
			return nil, apperr.Validation("setting %q is not valid JSON: %v", setting.Key, err)
		}
		return v, nil
	default:
		return setting.Value, nil
	}
}
