package updaterequest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("update request: not found")

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// UpdateRequest is a proposed change. Status only moves from pending to
// approved or rejected.
type UpdateRequest struct {
	ID                 uuid.UUID       `json:"id"`
	Kind               Kind            `json:"requestType"`
	RegionID           *int64          `json:"regionId,omitempty"`
	TargetOrgID        int64           `json:"targetOrgId"`
	NewOrgID           *int64          `json:"newOrgId,omitempty"`
	OriginalLocationID *int64          `json:"originalLocationId,omitempty"`
	OriginalEventID    *int64          `json:"originalEventId,omitempty"`
	NewLocationID      *int64          `json:"newLocationId,omitempty"`
	Payload            json.RawMessage `json:"payload"`
	SubmittedBy        int64           `json:"submittedBy"`
	Status             Status          `json:"status"`
	ReviewedBy         *int64          `json:"reviewedBy,omitempty"`
	Created            time.Time       `json:"created"`
	Updated            time.Time       `json:"updated"`
}

// Cursor positions a page in (created desc, id desc) order.
type Cursor struct {
	Created time.Time
	ID      uuid.UUID
}

type ListFilter struct {
	// OrgIDs restricts to requests whose target or new org is in the set.
	// Nil means no restriction; an empty non-nil slice matches nothing.
	OrgIDs []int64
	Status *Status
	Kind   *Kind
	Limit  int
	Cursor *Cursor
}

type Repository interface {
	Insert(ctx context.Context, req *UpdateRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*UpdateRequest, error)
	// Resolve moves a pending request to status. It reports false when the
	// request was no longer pending.
	Resolve(ctx context.Context, id uuid.UUID, status Status, reviewedBy int64, at time.Time) (bool, error)
	// RecordResult stores the ids a commit produced. Nil arguments leave the
	// stored value unchanged.
	RecordResult(ctx context.Context, id uuid.UUID, newOrgID, newLocationID *int64) error
	List(ctx context.Context, filter ListFilter) ([]UpdateRequest, error)
}
