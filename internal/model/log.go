package model

import "time"

// MaintenanceLog is one append-only audit entry on a maintenance request.
// Entries are never updated; they are removed only when their parent request
// is deleted.
type MaintenanceLog struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	RequestID string    `gorm:"size:36;index;not null" json:"requestId"`
	ActionBy  string    `gorm:"size:36;not null" json:"actionBy"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`

	// Associations
	Request      *MaintenanceRequest `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	ActionByUser *User               `gorm:"foreignKey:ActionBy" json:"actionByUser,omitempty"`
}
