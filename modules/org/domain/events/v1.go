package events

import (
	"time"

	"github.com/google/uuid"
)

const EventVersionV1 = 1

// RequestSubmittedV1 is published once a submission has been stored.
type RequestSubmittedV1 struct {
	EventID      uuid.UUID `json:"event_id"`
	EventVersion int       `json:"event_version"`
	RequestID    string    `json:"request_id,omitempty"`
	UpdateID     uuid.UUID `json:"update_request_id"`
	RequestType  string    `json:"request_type"`
	TargetOrgID  int64     `json:"target_org_id"`
	SubmittedBy  int64     `json:"submitted_by"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// RequestResolvedV1 is published after an approve or reject commits.
type RequestResolvedV1 struct {
	EventID      uuid.UUID `json:"event_id"`
	EventVersion int       `json:"event_version"`
	RequestID    string    `json:"request_id,omitempty"`
	UpdateID     uuid.UUID `json:"update_request_id"`
	RequestType  string    `json:"request_type"`
	TargetOrgID  int64     `json:"target_org_id"`
	ReviewedBy   int64     `json:"reviewed_by"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// OrgTreeChangedV1 is published when a committed request changed the org tree.
type OrgTreeChangedV1 struct {
	EventID      uuid.UUID `json:"event_id"`
	EventVersion int       `json:"event_version"`
	RequestID    string    `json:"request_id,omitempty"`
	UpdateID     uuid.UUID `json:"update_request_id"`
	ChangeType   string    `json:"change_type"`
	OrgID        int64     `json:"org_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}
