package event

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("event: not found")

// Event is a recurring weekly meeting. Times are HHmm strings.
type Event struct {
	ID           int64          `json:"id"`
	LocationID   int64          `json:"locationId"`
	OrgID        int64          `json:"orgId"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	DayOfWeek    string         `json:"dayOfWeek"`
	StartTime    string         `json:"startTime"`
	EndTime      string         `json:"endTime"`
	EventTypeIDs []int64        `json:"eventTypeIds"`
	Meta         map[string]any `json:"meta,omitempty"`
	IsActive     bool           `json:"isActive"`
	Created      time.Time      `json:"created"`
	Updated      time.Time      `json:"updated"`
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Event, error)
	ListByOrg(ctx context.Context, orgID int64) ([]Event, error)
	Create(ctx context.Context, ev *Event) (int64, error)
	Update(ctx context.Context, ev *Event) error
	SetActive(ctx context.Context, id int64, active bool) error
}
