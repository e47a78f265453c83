// Package audit appends immutable log entries to maintenance requests.
// Entries have no update path; they disappear only when their parent request
// is deleted.
package audit

import (
	"context"
	"time"

	"maintenance-backend/internal/model"
	"maintenance-backend/internal/store"
)

// DefaultRecentLimit bounds the global cross-request feed.
const DefaultRecentLimit = 100

// Writer appends and reads audit log entries.
type Writer struct {
	store store.Store
}

// NewWriter creates an audit log writer backed by the given store.
func NewWriter(s store.Store) *Writer {
	return &Writer{store: s}
}

// Append records one log entry for a request. The timestamp is assigned at
// write time.
func (w *Writer) Append(ctx context.Context, requestID, actorID, message string) (*model.MaintenanceLog, error) {
	entry := &model.MaintenanceLog{
		RequestID: requestID,
		ActionBy:  actorID,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := w.store.CreateLog(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListByRequest returns a request's entries newest-first with actor identity
// resolved.
func (w *Writer) ListByRequest(ctx context.Context, requestID string) ([]model.MaintenanceLog, error) {
	if _, err := w.store.FindRequestByID(ctx, requestID); err != nil {
		return nil, err
	}
	return w.store.ListLogsByRequest(ctx, requestID)
}

// ListRecent returns the global cross-request feed, newest-first, with
// request and machine context resolved. A non-positive limit applies the
// default.
func (w *Writer) ListRecent(ctx context.Context, limit int) ([]model.MaintenanceLog, error) {
	if limit <= 0 || limit > DefaultRecentLimit {
		limit = DefaultRecentLimit
	}
	return w.store.ListRecentLogs(ctx, limit)
}
