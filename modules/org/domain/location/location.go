package location

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("location: not found")

// Location is owned by exactly one AO at a time.
type Location struct {
	ID             int64     `json:"id"`
	OrgID          int64     `json:"orgId"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	AddressStreet  string    `json:"addressStreet,omitempty"`
	AddressStreet2 string    `json:"addressStreet2,omitempty"`
	AddressCity    string    `json:"addressCity,omitempty"`
	AddressState   string    `json:"addressState,omitempty"`
	AddressZip     string    `json:"addressZip,omitempty"`
	AddressCountry string    `json:"addressCountry,omitempty"`
	IsActive       bool      `json:"isActive"`
	Created        time.Time `json:"created"`
	Updated        time.Time `json:"updated"`
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Location, error)
	ListByOrg(ctx context.Context, orgID int64) ([]Location, error)
	Create(ctx context.Context, loc *Location) (int64, error)
	Update(ctx context.Context, loc *Location) error
	SetActive(ctx context.Context, id int64, active bool) error
}
