package maintenance

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"maintenance-backend/internal/model"
	"maintenance-backend/internal/store"
)

const (
	dashboardTopLimit    = 10
	downtimeSampleSize   = 20
	downtimeDisplayLimit = 10
	chartDays            = 7
)

// TodayCounts are per-status counts for the current day (local midnight to
// next midnight). Open and in-progress count by creation time, completed and
// canceled by their last update.
type TodayCounts struct {
	Open       int64 `json:"open"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
	Canceled   int64 `json:"canceled"`
}

// DowntimeEntry is the repair turnaround of one completed request.
type DowntimeEntry struct {
	RequestID       string    `json:"requestId"`
	Title           string    `json:"title"`
	MachineName     string    `json:"machineName"`
	DowntimeMinutes int64     `json:"downtimeMinutes"`
	CompletedAt     time.Time `json:"completedAt"`
}

// Downtime aggregates turnaround over the most recently completed requests.
type Downtime struct {
	AverageMinutes int64           `json:"averageMinutes"`
	Recent         []DowntimeEntry `json:"recent"`
}

// ChartDay is one day of the trailing activity chart.
type ChartDay struct {
	Date      string `json:"date"`
	Created   int64  `json:"created"`
	Completed int64  `json:"completed"`
	Canceled  int64  `json:"canceled"`
}

// Dashboard is the aggregate snapshot served to the operations view.
type Dashboard struct {
	Today               TodayCounts                `json:"today"`
	TopOpen             []model.MaintenanceRequest `json:"topOpen"`
	TopInProgress       []model.MaintenanceRequest `json:"topInProgress"`
	CompletedToday      []model.MaintenanceRequest `json:"completedToday"`
	TechnicianWorkloads []store.TechnicianWorkload `json:"technicianWorkloads"`
	Downtime            Downtime                   `json:"downtime"`
	Chart               []ChartDay                 `json:"chart"`
}

// GetDashboardSnapshot aggregates today's counts, the hottest open work, the
// technician workload table, downtime metrics and a 7-day trailing chart.
func (s *Service) GetDashboardSnapshot(ctx context.Context) (*Dashboard, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	dash := &Dashboard{}

	today, err := s.todayCounts(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	dash.Today = *today

	if dash.TopOpen, err = s.store.ListTopByStatus(ctx, model.StatusOpen, dashboardTopLimit); err != nil {
		return nil, err
	}
	if dash.TopInProgress, err = s.store.ListTopByStatus(ctx, model.StatusInProgress, dashboardTopLimit); err != nil {
		return nil, err
	}
	if dash.CompletedToday, err = s.store.ListCompletedBetween(ctx, dayStart, dayEnd, dashboardTopLimit); err != nil {
		return nil, err
	}
	if dash.TechnicianWorkloads, err = s.store.TechnicianWorkloads(ctx); err != nil {
		return nil, err
	}

	downtime, err := s.downtime(ctx)
	if err != nil {
		return nil, err
	}
	dash.Downtime = *downtime

	if dash.Chart, err = s.chart(ctx, dayStart); err != nil {
		return nil, err
	}

	return dash, nil
}

func (s *Service) todayCounts(ctx context.Context, dayStart, dayEnd time.Time) (*TodayCounts, error) {
	var counts TodayCounts
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

	g.Go(count(&counts.Open, store.RequestCount{
		Status: model.StatusOpen, CreatedFrom: &dayStart, CreatedTo: &dayEnd,
	}))
	g.Go(count(&counts.InProgress, store.RequestCount{
		Status: model.StatusInProgress, CreatedFrom: &dayStart, CreatedTo: &dayEnd,
	}))
	g.Go(count(&counts.Completed, store.RequestCount{
		Status: model.StatusCompleted, UpdatedFrom: &dayStart, UpdatedTo: &dayEnd,
	}))
	g.Go(count(&counts.Canceled, store.RequestCount{
		Status: model.StatusCanceled, UpdatedFrom: &dayStart, UpdatedTo: &dayEnd,
	}))

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &counts, nil
}

// downtime derives repair turnaround from the last 20 completed requests.
// downtimeMinutes = round((updatedAt - createdAt) in minutes); the average
// rounds the same way; an empty sample yields zero.
func (s *Service) downtime(ctx context.Context) (*Downtime, error) {
	completed, err := s.store.ListRecentCompleted(ctx, downtimeSampleSize)
	if err != nil {
		return nil, err
	}
	if len(completed) == 0 {
		return &Downtime{Recent: []DowntimeEntry{}}, nil
	}

	entries := make([]DowntimeEntry, 0, len(completed))
	var sum int64
	for _, r := range completed {
		minutes := int64(math.Round(r.UpdatedAt.Sub(r.CreatedAt).Minutes()))
		sum += minutes

		machineName := ""
		if r.Machine != nil {
			machineName = r.Machine.Name
		}
		entries = append(entries, DowntimeEntry{
			RequestID:       r.ID,
			Title:           r.Title,
			MachineName:     machineName,
			DowntimeMinutes: minutes,
			CompletedAt:     r.UpdatedAt,
		})
	}

	avg := int64(math.Round(float64(sum) / float64(len(entries))))
	if len(entries) > downtimeDisplayLimit {
		entries = entries[:downtimeDisplayLimit]
	}
	return &Downtime{AverageMinutes: avg, Recent: entries}, nil
}

// chart builds the trailing 7-day activity series, inclusive of today, in
// ascending date order. The three counts of each day run concurrently; days
// run sequentially.
func (s *Service) chart(ctx context.Context, todayStart time.Time) ([]ChartDay, error) {
	chart := make([]ChartDay, 0, chartDays)
	for i := chartDays - 1; i >= 0; i-- {
		dayStart := todayStart.AddDate(0, 0, -i)
		dayEnd := dayStart.AddDate(0, 0, 1)

		day := ChartDay{Date: dayStart.Format("2006-01-02")}
		g, gctx := errgroup.WithContext(ctx)

		count := func(dst *int64, c store.RequestCount) func() error {
			return func() error {
				n, err := s.store.CountRequests(gctx, c)
				if err != nil {
					return err
				}
				*dst = n
				return nil
			}
		}

		g.Go(count(&day.Created, store.RequestCount{
			CreatedFrom: &dayStart, CreatedTo: &dayEnd,
		}))
		g.Go(count(&day.Completed, store.RequestCount{
			Status: model.StatusCompleted, UpdatedFrom: &dayStart, UpdatedTo: &dayEnd,
		}))
		g.Go(count(&day.Canceled, store.RequestCount{
			Status: model.StatusCanceled, UpdatedFrom: &dayStart, UpdatedTo: &dayEnd,
		}))

		if err := g.Wait(); err != nil {
			return nil, err
		}
		chart = append(chart, day)
	}
	return chart, nil
}
