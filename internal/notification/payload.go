package notification

import "time"

const (
	defaultIcon  = "/assets/icons/icon-192x192.png"
	defaultBadge = "/assets/icons/badge-72x72.png"
	defaultURL   = "/"
)

// Payload is the notification body serialized into a web push message.
type Payload struct {
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Icon      string         `json:"icon"`
	Badge     string         `json:"badge"`
	URL       string         `json:"url"`
	Tag       string         `json:"tag,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// withDefaults fills icon, badge, url and timestamp when the caller left
// them empty.
func (p Payload) withDefaults() Payload {
	if p.Icon == "" {
		p.Icon = defaultIcon
	}
	if p.Badge == "" {
		p.Badge = defaultBadge
	}
	if p.URL == "" {
		p.URL = defaultURL
	}
	if p.Timestamp == 0 {
		p.Timestamp = time.Now().UnixMilli()
	}
	return p
}

// Result tallies one batch delivery.
type Result struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}
