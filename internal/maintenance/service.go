// Package maintenance owns the request lifecycle: state transitions,
// permission checks, audit logging and the fan-out of realtime and push
// notifications after each committed mutation.
package maintenance

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"maintenance-backend/internal/apperr"
	"maintenance-backend/internal/audit"
	"maintenance-backend/internal/model"
	"maintenance-backend/internal/notification"
	"maintenance-backend/internal/realtime"
	"maintenance-backend/internal/store"
)

// Realtime event types emitted on lifecycle transitions.
const (
	EventRequestCreated  = "REQUEST_CREATED"
	EventRequestAssigned = "REQUEST_ASSIGNED"
	EventNewAssignment   = "NEW_ASSIGNMENT"
	EventStatusChanged   = "STATUS_CHANGED"
	EventRequestUpdated  = "REQUEST_UPDATED"
)

// statusLabels are the human-readable status names used in push bodies.
var statusLabels = map[model.Status]string{
	model.StatusOpen:       "Opened",
	model.StatusInProgress: "In progress",
	model.StatusCompleted:  "Completed",
	model.StatusCanceled:   "Canceled",
}

// Broadcaster emits typed events to connected realtime clients.
type Broadcaster interface {
	BroadcastAll(eventType string, data any)
	BroadcastToRoom(room, eventType string, data any)
}

// Pusher queues best-effort push notifications. Dispatch must never block or
// fail the calling operation.
type Pusher interface {
	DispatchToUser(userID string, n notification.Payload)
	DispatchToUsers(userIDs []string, n notification.Payload)
}

// Service orchestrates the maintenance request lifecycle.
type Service struct {
	store  store.Store
	logs   *audit.Writer
	hub    Broadcaster
	pusher Pusher
}

// NewService wires the lifecycle engine to its collaborators.
func NewService(s store.Store, logs *audit.Writer, hub Broadcaster, pusher Pusher) *Service {
	return &Service{store: s, logs: logs, hub: hub, pusher: pusher}
}

// CreateInput carries the caller-supplied fields of a new request.
type CreateInput struct {
	MachineID   string         `json:"machineId" binding:"required"`
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description" binding:"required"`
	Priority    model.Priority `json:"priority"`
	ImageURL    *string        `json:"imageUrl"`
}

// UpdateInput is a free-form field patch with no status side effects.
type UpdateInput struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Priority    *model.Priority `json:"priority"`
	ImageURL    *string         `json:"imageUrl"`
}

// StatusChange is the STATUS_CHANGED event payload.
type StatusChange struct {
	Request   *model.MaintenanceRequest `json:"request"`
	OldStatus model.Status              `json:"oldStatus"`
	NewStatus model.Status              `json:"newStatus"`
}

// Create opens a new request, logs it, broadcasts REQUEST_CREATED and pushes
// to admin subscribers. The returned record is fully joined.
func (s *Service) Create(ctx context.Context, in CreateInput, requesterID string) (*model.MaintenanceRequest, error) {
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !model.ValidPriority(in.Priority) {
		return nil, apperr.Validation("invalid priority %q", in.Priority)
	}

	machine, err := s.store.FindMachineByID(ctx, in.MachineID)
	if err != nil {
		return nil, err
	}

	request := &model.MaintenanceRequest{
		MachineID:   in.MachineID,
		RequestedBy: requesterID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      model.StatusOpen,
		ImageURL:    in.ImageURL,
	}
	if err := s.store.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	if _, err := s.logs.Append(ctx, request.ID, requesterID, "Maintenance request created"); err != nil {
		return nil, err
	}

	joined, err := s.store.FindRequestByID(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastAll(EventRequestCreated, joined)

	adminIDs, err := s.store.UserIDsByRole(ctx, model.RoleAdmin)
	if err != nil {
		// Push delivery is best-effort; the mutation already committed.
		adminIDs = nil
	}
	s.pusher.DispatchToUsers(adminIDs, notification.Payload{
		Title: "New maintenance request",
		Body:  fmt.Sprintf("%s: %s", machine.Name, truncate(in.Description, 50)),
		URL:   "/requests/" + request.ID,
		Tag:   "request-" + request.ID,
		Data:  map[string]any{"requestId": request.ID, "type": EventRequestCreated},
	})

	return joined, nil
}

// AssignTechnician sets the assignee and auto-advances an OPEN request to
// IN_PROGRESS. Any other status is left unchanged.
func (s *Service) AssignTechnician(ctx context.Context, requestID, technicianID, actingUserID string) (*model.MaintenanceRequest, error) {
	request, err := s.store.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	technician, err := s.store.FindUserByID(ctx, technicianID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Validation("technician %s does not exist", technicianID)
		}
		return nil, err
	}
	if technician.Role != model.RoleTechnician {
		return nil, apperr.Validation("user %s is not a technician", technicianID)
	}

	request.AssignedTo = &technicianID
	if request.Status == model.StatusOpen {
		request.Status = model.StatusInProgress
	}
	if err := s.store.SaveRequest(ctx, request); err != nil {
		return nil, err
	}

	if _, err := s.logs.Append(ctx, requestID, actingUserID, "Technician assigned to the request"); err != nil {
		return nil, err
	}

	joined, err := s.store.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastAll(EventRequestAssigned, joined)
	s.hub.BroadcastToRoom(realtime.TechnicianRoom(technicianID), EventNewAssignment, joined)

	machineName := "equipment"
	if joined.Machine != nil {
		machineName = joined.Machine.Name
	}
	s.pusher.DispatchToUser(technicianID, notification.Payload{
		Title: "New assignment",
		Body:  fmt.Sprintf("You have been assigned to %s", machineName),
		URL:   "/requests/" + requestID,
		Tag:   "assignment-" + requestID,
		Data:  map[string]any{"requestId": requestID, "type": EventNewAssignment},
	})

	return joined, nil
}

// UpdateStatus sets the status unconditionally once authorized. A technician
// may only update requests assigned to them. The target status is not
// checked against a transition whitelist; an admin override may set any
// value.
func (s *Service) UpdateStatus(ctx context.Context, requestID string, newStatus model.Status, actingUserID string, actingRole model.Role, message string) (*model.MaintenanceRequest, error) {
	if !model.ValidStatus(newStatus) {
		return nil, apperr.Validation("invalid status %q", newStatus)
	}

	request, err := s.store.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if actingRole == model.RoleTechnician {
		if request.AssignedTo == nil || *request.AssignedTo != actingUserID {
			return nil, apperr.Permission("you are not assigned to this request")
		}
	}

	oldStatus := request.Status
	request.Status = newStatus
	if err := s.store.SaveRequest(ctx, request); err != nil {
		return nil, err
	}

	if message == "" {
		message = fmt.Sprintf("Status changed from %s to %s", oldStatus, newStatus)
	}
	if _, err := s.logs.Append(ctx, requestID, actingUserID, message); err != nil {
		return nil, err
	}

	joined, err := s.store.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastAll(EventStatusChanged, StatusChange{
		Request:   joined,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
	s.hub.BroadcastToRoom(realtime.RequestRoom(requestID), EventRequestUpdated, joined)

	machineName := "equipment"
	if joined.Machine != nil {
		machineName = joined.Machine.Name
	}
	label, ok := statusLabels[newStatus]
	if !ok {
		label = string(newStatus)
	}
	s.pusher.DispatchToUser(joined.RequestedBy, notification.Payload{
		Title: "Maintenance request update",
		Body:  fmt.Sprintf("%s: %s", machineName, label),
		URL:   "/requests/" + requestID,
		Tag:   "status-" + requestID,
		Data:  map[string]any{"requestId": requestID, "type": EventStatusChanged, "newStatus": string(newStatus)},
	})

	return joined, nil
}

// Update patches title/description/priority/image with no status side
// effects and no push notification.
func (s *Service) Update(ctx context.Context, requestID string, in UpdateInput, actingUserID string) (*model.MaintenanceRequest, error) {
	request, err := s.store.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		request.Title = *in.Title
	}
	if in.Description != nil {
		request.Description = *in.Description
	}
	if in.Priority != nil {
		if !model.ValidPriority(*in.Priority) {
			return nil, apperr.Validation("invalid priority %q", *in.Priority)
		}
		request.Priority = *in.Priority
	}
	if in.ImageURL != nil {
		request.ImageURL = in.ImageURL
	}
	if err := s.store.SaveRequest(ctx, request); err != nil {
		return nil, err
	}

	if _, err := s.logs.Append(ctx, requestID, actingUserID, "Maintenance request updated"); err != nil {
		return nil, err
	}

	return s.store.FindRequestByID(ctx, requestID)
}

// Remove deletes a request and its audit log entries.
func (s *Service) Remove(ctx context.Context, requestID string) error {
	if _, err := s.store.FindRequestByID(ctx, requestID); err != nil {
		return err
	}
	return s.store.DeleteRequestWithLogs(ctx, requestID)
}

// FindOne returns the fully joined record.
func (s *Service) FindOne(ctx context.Context, requestID string) (*model.MaintenanceRequest, error) {
	return s.store.FindRequestByID(ctx, requestID)
}

// FindAll returns a filtered, paginated listing.
func (s *Service) FindAll(ctx context.Context, f store.RequestFilter) (*store.Page[model.MaintenanceRequest], error) {
	return s.store.ListRequests(ctx, f)
}

// FindByTechnician lists requests assigned to a technician, newest first.
func (s *Service) FindByTechnician(ctx context.Context, technicianID string) ([]model.MaintenanceRequest, error) {
	return s.store.ListRequestsByTechnician(ctx, technicianID)
}

// FindByUser lists requests created by a user, newest first.
func (s *Service) FindByUser(ctx context.Context, userID string) ([]model.MaintenanceRequest, error) {
	return s.store.ListRequestsByRequester(ctx, userID)
}

// Stats holds per-status request counts over the full table.
type Stats struct {
	Total      int64 `json:"total"`
	Open       int64 `json:"open"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
	Canceled   int64 `json:"canceled"`
}

// GetStats counts requests per status with independent concurrent queries.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)

	count := func(dst *int64, c store.RequestCount) func() error {
		return func() error {
			n, err := s.store.CountRequests(ctx, c)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		}
	}

	g.Go(count(&stats.Total, store.RequestCount{}))
	g.Go(count(&stats.Open, store.RequestCount{Status: model.StatusOpen}))
	g.Go(count(&stats.InProgress, store.RequestCount{Status: model.StatusInProgress}))
	g.Go(count(&stats.Completed, store.RequestCount{Status: model.StatusCompleted}))
	g.Go(count(&stats.Canceled, store.RequestCount{Status: model.StatusCanceled}))

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
