package model

import "time"

// Priority is the urgency of a maintenance request.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status is the lifecycle state of a maintenance request.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCanceled   Status = "CANCELED"
)

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// MaintenanceRequest is a ticket tracking a repair through its lifecycle.
// Status only changes through the lifecycle service; AssignedTo is set by
// admin assignment.
type MaintenanceRequest struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	MachineID   string    `gorm:"size:36;index;not null" json:"machineId"`
	RequestedBy string    `gorm:"size:36;index;not null" json:"requestedBy"`
	AssignedTo  *string   `gorm:"size:36;index" json:"assignedTo"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Priority    Priority  `gorm:"size:20;not null;default:MEDIUM" json:"priority"`
	Status      Status    `gorm:"size:20;index;not null;default:OPEN" json:"status"`
	ImageURL    *string   `gorm:"size:500" json:"imageUrl"`
	CreatedAt   time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Machine         *Machine         `gorm:"foreignKey:MachineID" json:"machine,omitempty"`
	RequestedByUser *User            `gorm:"foreignKey:RequestedBy" json:"requestedByUser,omitempty"`
	AssignedToUser  *User            `gorm:"foreignKey:AssignedTo" json:"assignedToUser,omitempty"`
	Logs            []MaintenanceLog `gorm:"foreignKey:RequestID" json:"logs,omitempty"`
}
