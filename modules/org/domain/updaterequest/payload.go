package updaterequest

import (
	"encoding/json"
)

// Payload is implemented only by the per-kind request types in this package.
type Payload interface {
	Kind() Kind
	isPayload()
}

// RegionScoped payloads name the region the submitter believes owns the target.
type RegionScoped interface {
	Payload
	RegionID() int64
}

// Edit payloads carry a partial change set and the pre-edit snapshot.
type Edit interface {
	Payload
	Changes() ([]byte, error)
	Snapshot() map[string]any
}

// NewPayload returns an empty payload for kind, ready for decoding.
func NewPayload(kind Kind) (Payload, bool) {
	switch kind {
	case KindCreateAOAndLocationAndEvent:
		return &CreateAOAndLocationAndEvent{}, true
	case KindCreateEvent:
		return &CreateEvent{}, true
	case KindEditEvent:
		return &EditEvent{}, true
	case KindEditAOAndLocation:
		return &EditAOAndLocation{}, true
	case KindMoveAOToNewLocation:
		return &MoveAOToNewLocation{}, true
	case KindMoveAOToDifferentLocation:
		return &MoveAOToDifferentLocation{}, true
	case KindMoveAOToDifferentRegion:
		return &MoveAOToDifferentRegion{}, true
	case KindMoveEventToNewLocation:
		return &MoveEventToNewLocation{}, true
	case KindMoveEventToDifferentAO:
		return &MoveEventToDifferentAO{}, true
	case KindDeleteAO:
		return &DeleteAO{}, true
	case KindDeleteEvent:
		return &DeleteEvent{}, true
	case KindCreateOrg:
		return &CreateOrg{}, true
	case KindEditOrg:
		return &EditOrg{}, true
	case KindDeleteOrg:
		return &DeleteOrg{}, true
	default:
		return nil, false
	}
}

type RegionRef struct {
	OriginalRegionID int64 `json:"originalRegionId" validate:"required,gt=0"`
}

func (r RegionRef) RegionID() int64 { return r.OriginalRegionID }

type EventFields struct {
	EventName        string         `json:"eventName" validate:"required,max=200"`
	EventDescription string         `json:"eventDescription,omitempty" validate:"max=2000"`
	EventDayOfWeek   string         `json:"eventDayOfWeek" validate:"required,dayofweek"`
	EventStartTime   string         `json:"eventStartTime" validate:"required,hhmm"`
	EventEndTime     string         `json:"eventEndTime" validate:"required,hhmm"`
	EventTypeIDs     []int64        `json:"eventTypeIds" validate:"required,min=1,dive,gt=0"`
	EventMeta        map[string]any `json:"eventMeta,omitempty"`
}

type EventPatch struct {
	EventName        *string        `json:"eventName,omitempty" validate:"omitempty,min=1,max=200"`
	EventDescription *string        `json:"eventDescription,omitempty" validate:"omitempty,max=2000"`
	EventDayOfWeek   *string        `json:"eventDayOfWeek,omitempty" validate:"omitempty,dayofweek"`
	EventStartTime   *string        `json:"eventStartTime,omitempty" validate:"omitempty,hhmm"`
	EventEndTime     *string        `json:"eventEndTime,omitempty" validate:"omitempty,hhmm"`
	EventTypeIDs     []int64        `json:"eventTypeIds,omitempty" validate:"omitempty,min=1,dive,gt=0"`
	EventMeta        map[string]any `json:"eventMeta,omitempty"`
}

type AOFields struct {
	AOName        string `json:"aoName" validate:"required,max=200"`
	AODescription string `json:"aoDescription,omitempty" validate:"max=2000"`
	AOWebsite     string `json:"aoWebsite,omitempty" validate:"omitempty,url"`
	AOLogo        string `json:"aoLogo,omitempty" validate:"omitempty,url"`
}

type AOPatch struct {
	AOName        *string `json:"aoName,omitempty" validate:"omitempty,min=1,max=200"`
	AODescription *string `json:"aoDescription,omitempty" validate:"omitempty,max=2000"`
	AOWebsite     *string `json:"aoWebsite,omitempty" validate:"omitempty,url"`
	AOLogo        *string `json:"aoLogo,omitempty" validate:"omitempty,url"`
}

type LocationFields struct {
	LocationName        string   `json:"locationName,omitempty" validate:"max=200"`
	LocationDescription string   `json:"locationDescription,omitempty" validate:"max=2000"`
	LocationLat         *float64 `json:"locationLat" validate:"required,gte=-90,lte=90"`
	LocationLng         *float64 `json:"locationLng" validate:"required,gte=-180,lte=180"`
	LocationAddress     string   `json:"locationAddress,omitempty" validate:"max=200"`
	LocationAddress2    string   `json:"locationAddress2,omitempty" validate:"max=200"`
	LocationCity        string   `json:"locationCity,omitempty" validate:"max=100"`
	LocationState       string   `json:"locationState,omitempty" validate:"max=100"`
	LocationZip         string   `json:"locationZip,omitempty" validate:"max=20"`
	LocationCountry     string   `json:"locationCountry,omitempty" validate:"max=100"`
}

type LocationPatch struct {
	LocationName        *string  `json:"locationName,omitempty" validate:"omitempty,max=200"`
	LocationDescription *string  `json:"locationDescription,omitempty" validate:"omitempty,max=2000"`
	LocationLat         *float64 `json:"locationLat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	LocationLng         *float64 `json:"locationLng,omitempty" validate:"omitempty,gte=-180,lte=180"`
	LocationAddress     *string  `json:"locationAddress,omitempty" validate:"omitempty,max=200"`
	LocationAddress2    *string  `json:"locationAddress2,omitempty" validate:"omitempty,max=200"`
	LocationCity        *string  `json:"locationCity,omitempty" validate:"omitempty,max=100"`
	LocationState       *string  `json:"locationState,omitempty" validate:"omitempty,max=100"`
	LocationZip         *string  `json:"locationZip,omitempty" validate:"omitempty,max=20"`
	LocationCountry     *string  `json:"locationCountry,omitempty" validate:"omitempty,max=100"`
}

type OrgPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Website     *string `json:"website,omitempty" validate:"omitempty,url"`
}

type CreateAOAndLocationAndEvent struct {
	RegionRef
	AOFields
	LocationFields
	EventFields
}

type CreateEvent struct {
	RegionRef
	OriginalAOID       int64 `json:"originalAoId" validate:"required,gt=0"`
	OriginalLocationID int64 `json:"originalLocationId" validate:"required,gt=0"`
	EventFields
}

type EditEvent struct {
	RegionRef
	OriginalEventID int64 `json:"originalEventId" validate:"required,gt=0"`
	EventPatch
	CurrentValues map[string]any `json:"currentValues" validate:"required"`
}

type EditAOAndLocation struct {
	RegionRef
	OriginalAOID       int64 `json:"originalAoId" validate:"required,gt=0"`
	OriginalLocationID int64 `json:"originalLocationId" validate:"required,gt=0"`
	AOPatch
	LocationPatch
	CurrentValues map[string]any `json:"currentValues" validate:"required"`
}

type MoveAOToNewLocation struct {
	RegionRef
	OriginalAOID int64 `json:"originalAoId" validate:"required,gt=0"`
	LocationFields
}

type MoveAOToDifferentLocation struct {
	RegionRef
	OriginalAOID  int64 `json:"originalAoId" validate:"required,gt=0"`
	NewLocationID int64 `json:"newLocationId" validate:"required,gt=0"`
}

type MoveAOToDifferentRegion struct {
	RegionRef
	OriginalAOID int64 `json:"originalAoId" validate:"required,gt=0"`
	NewRegionID  int64 `json:"newRegionId" validate:"required,gt=0"`
}

type MoveEventToNewLocation struct {
	RegionRef
	OriginalEventID int64 `json:"originalEventId" validate:"required,gt=0"`
	LocationFields
}

type MoveEventToDifferentAO struct {
	RegionRef
	OriginalEventID int64 `json:"originalEventId" validate:"required,gt=0"`
	NewAOID         int64 `json:"newAoId" validate:"required,gt=0"`
	// NewLocationID picks one of the new AO's locations. When empty the
	// event moves to the new AO's oldest active location.
	NewLocationID *int64 `json:"newLocationId,omitempty" validate:"omitempty,gt=0"`
}

type DeleteAO struct {
	RegionRef
	OriginalAOID int64 `json:"originalAoId" validate:"required,gt=0"`
}

type DeleteEvent struct {
	RegionRef
	OriginalEventID int64 `json:"originalEventId" validate:"required,gt=0"`
}

type CreateOrg struct {
	ParentID    int64  `json:"parentId" validate:"required,gt=0"`
	OrgType     string `json:"orgType" validate:"required,oneof=sector area region"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	Website     string `json:"website,omitempty" validate:"omitempty,url"`
}

type EditOrg struct {
	OriginalOrgID int64 `json:"originalOrgId" validate:"required,gt=0"`
	OrgPatch
	CurrentValues map[string]any `json:"currentValues" validate:"required"`
}

type DeleteOrg struct {
	OriginalOrgID int64 `json:"originalOrgId" validate:"required,gt=0"`
}

func (*CreateAOAndLocationAndEvent) Kind() Kind { return KindCreateAOAndLocationAndEvent }
func (*CreateEvent) Kind() Kind                 { return KindCreateEvent }
func (*EditEvent) Kind() Kind                   { return KindEditEvent }
func (*EditAOAndLocation) Kind() Kind           { return KindEditAOAndLocation }
func (*MoveAOToNewLocation) Kind() Kind         { return KindMoveAOToNewLocation }
func (*MoveAOToDifferentLocation) Kind() Kind   { return KindMoveAOToDifferentLocation }
func (*MoveAOToDifferentRegion) Kind() Kind     { return KindMoveAOToDifferentRegion }
func (*MoveEventToNewLocation) Kind() Kind      { return KindMoveEventToNewLocation }
func (*MoveEventToDifferentAO) Kind() Kind      { return KindMoveEventToDifferentAO }
func (*DeleteAO) Kind() Kind                    { return KindDeleteAO }
func (*DeleteEvent) Kind() Kind                 { return KindDeleteEvent }
func (*CreateOrg) Kind() Kind                   { return KindCreateOrg }
func (*EditOrg) Kind() Kind                     { return KindEditOrg }
func (*DeleteOrg) Kind() Kind                   { return KindDeleteOrg }

func (*CreateAOAndLocationAndEvent) isPayload() {}
func (*CreateEvent) isPayload()                 {}
func (*EditEvent) isPayload()                   {}
func (*EditAOAndLocation) isPayload()           {}
func (*MoveAOToNewLocation) isPayload()         {}
func (*MoveAOToDifferentLocation) isPayload()   {}
func (*MoveAOToDifferentRegion) isPayload()     {}
func (*MoveEventToNewLocation) isPayload()      {}
func (*MoveEventToDifferentAO) isPayload()      {}
func (*DeleteAO) isPayload()                    {}
func (*DeleteEvent) isPayload()                 {}
func (*CreateOrg) isPayload()                   {}
func (*EditOrg) isPayload()                     {}
func (*DeleteOrg) isPayload()                   {}

func (p *EditEvent) Changes() ([]byte, error) {
	return json.Marshal(p.EventPatch)
}

func (p *EditEvent) Snapshot() map[string]any {
	return p.CurrentValues
}

func (p *EditAOAndLocation) Changes() ([]byte, error) {
	return json.Marshal(struct {
		AOPatch
		LocationPatch
	}{p.AOPatch, p.LocationPatch})
}

func (p *EditAOAndLocation) Snapshot() map[string]any {
	return p.CurrentValues
}

func (p *EditOrg) Changes() ([]byte, error) {
	return json.Marshal(p.OrgPatch)
}

func (p *EditOrg) Snapshot() map[string]any {
	return p.CurrentValues
}
