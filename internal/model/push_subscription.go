package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// The endpoint is the natural dedup key: re-subscribing the same endpoint
// updates the existing row in place.
type PushSubscription struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:36;index:idx_push_user_ip" json:"userId"`
	Endpoint   string    `gorm:"uniqueIndex;size:500;not null" json:"endpoint"`
	P256DH     string    `gorm:"column:p256dh_key;size:500;not null" json:"p256dh"`
	Auth       string    `gorm:"column:auth_key;size:500;not null" json:"auth"`
	IPAddress  string    `gorm:"size:45;index:idx_push_user_ip" json:"ipAddress"`
	UserAgent  string    `gorm:"size:500" json:"userAgent"`
	DeviceName string    `gorm:"size:255" json:"deviceName"`
	IsActive   bool      `gorm:"not null;default:true" json:"isActive"`
	LastUsed   time.Time `json:"lastUsed"`
	CreatedAt  time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"not null" json:"updatedAt"`
}
