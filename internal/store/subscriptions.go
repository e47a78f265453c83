package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"maintenance-backend/internal/model"
)

// UpsertSubscription stores a push subscription keyed by its endpoint.
// A known endpoint is overwritten in place (owner, keys, metadata) and
// reactivated; an unknown endpoint creates a fresh row.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) (*model.PushSubscription, error) {
	var existing model.PushSubscription
	err := s.db.WithContext(ctx).First(&existing, "endpoint = ?", sub.Endpoint).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub.ID = uuid.NewString()
		sub.IsActive = true
		sub.LastUsed = time.Now()
		if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
			return nil, fmt.Errorf("failed to create push subscription: %w", err)
		}
		return sub, nil
	case err != nil:
		return nil, fmt.Errorf("failed to look up push subscription: %w", err)
	}

	existing.UserID = sub.UserID
	existing.P256DH = sub.P256DH
	existing.Auth = sub.Auth
	existing.IPAddress = sub.IPAddress
	if sub.UserAgent != "" {
		existing.UserAgent = sub.UserAgent
	}
	if sub.DeviceName != "" {
		existing.DeviceName = sub.DeviceName
	}
	existing.IsActive = true
	existing.LastUsed = time.Now()

	if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to update push subscription: %w", err)
	}
	return &existing, nil
}

func (s *gormStore) DeactivateSubscription(ctx context.Context, userID, endpoint string) error {
	err := s.db.WithContext(ctx).
		Model(&model.PushSubscription{}).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", err)
	}
	return nil
}

func (s *gormStore) DeactivateAllSubscriptions(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).
		Model(&model.PushSubscription{}).
		Where("user_id = ?", userID).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate subscriptions for user %s: %w", userID, err)
	}
	return nil
}

func (s *gormStore) DeactivateSubscriptionByID(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).
		Model(&model.PushSubscription{}).
		Where("id = ?", id).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate subscription %s: %w", id, err)
	}
	return nil
}

func (s *gormStore) TouchSubscription(ctx context.Context, id string, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&model.PushSubscription{}).
		Where("id = ?", id).
		Update("last_used", at).Error
	if err != nil {
		return fmt.Errorf("failed to touch subscription %s: %w", id, err)
	}
	return nil
}

func (s *gormStore) ActiveSubscriptionsByUser(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_used DESC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for user %s: %w", userID, err)
	}
	return subs, nil
}

func (s *gormStore) ActiveSubscriptionsByIP(ctx context.Context, ip string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("ip_address = ? AND is_active = ?", ip, true).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for ip %s: %w", ip, err)
	}
	return subs, nil
}

func (s *gormStore) ActiveSubscriptionsByUsers(ctx context.Context, userIDs []string) ([]model.PushSubscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("user_id IN ? AND is_active = ?", userIDs, true).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for users: %w", err)
	}
	return subs, nil
}

func (s *gormStore) ActiveSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}
	return subs, nil
}

// PurgeStaleSubscriptions deletes rows that are inactive or unused since the
// cutoff, returning the number removed.
func (s *gormStore) PurgeStaleSubscriptions(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("is_active = ? OR last_used < ?", false, cutoff).
		Delete(&model.PushSubscription{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge stale subscriptions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
