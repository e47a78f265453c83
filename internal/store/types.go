package store

import (
	"time"

	"maintenance-backend/internal/model"
)

// Pagination bounds for request listings.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// RequestFilter narrows and paginates a maintenance request listing.
type RequestFilter struct {
	MachineID string         `form:"machineId"`
	Priority  model.Priority `form:"priority"`
	Status    model.Status   `form:"status"`
	StartDate *time.Time     `form:"startDate" time_format:"2006-01-02"`
	EndDate   *time.Time     `form:"endDate" time_format:"2006-01-02"`
	Page      int            `form:"page"`
	Limit     int            `form:"limit"`
}

// Normalize clamps pagination to page>=1 and 1<=limit<=100.
func (f *RequestFilter) Normalize() {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
}

// Offset returns the row offset for the current page.
func (f *RequestFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NewPage assembles a page envelope, deriving totalPages from total and limit.
func NewPage[T any](data []T, total int64, page, limit int) *Page[T] {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &Page[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// RequestCount is a predicate for counting maintenance requests.
// Zero fields are ignored.
type RequestCount struct {
	Status      model.Status
	Statuses    []model.Status
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
}

// TechnicianWorkload aggregates a technician's request counts by status.
type TechnicianWorkload struct {
	TechnicianID   string `json:"technicianId"`
	TechnicianName string `json:"technicianName"`
	Open           int64  `json:"open"`
	InProgress     int64  `json:"inProgress"`
	Completed      int64  `json:"completed"`
}
