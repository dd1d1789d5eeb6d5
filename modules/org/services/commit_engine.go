package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/pkg/errors"

	"github.com/f3nation/f3map/modules/org/domain/event"
	"github.com/f3nation/f3map/modules/org/domain/location"
	"github.com/f3nation/f3map/modules/org/domain/org"
	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
)

// CommitResult names the entities a commit created or changed.
type CommitResult struct {
	OrgID      *int64 `json:"orgId,omitempty"`
	LocationID *int64 `json:"locationId,omitempty"`
	EventID    *int64 `json:"eventId,omitempty"`
}

// CommitEngine applies validated requests to the entity store. Apply must run
// inside the caller's transaction so a request's row changes land together.
type CommitEngine struct {
	tree      *OrgTree
	orgs      org.Repository
	locations location.Repository
	events    event.Repository
}

func NewCommitEngine(tree *OrgTree, orgs org.Repository, locations location.Repository, events event.Repository) *CommitEngine {
	return &CommitEngine{tree: tree, orgs: orgs, locations: locations, events: events}
}

func (e *CommitEngine) Apply(ctx context.Context, req ValidatedRequest, t *Targets) (CommitResult, error) {
	res, err := e.apply(ctx, req, t)
	if err != nil {
		return CommitResult{}, mapPgErrorToServiceError(err)
	}
	return res, nil
}

func (e *CommitEngine) apply(ctx context.Context, req ValidatedRequest, t *Targets) (CommitResult, error) {
	switch p := req.Payload.(type) {
	case *updaterequest.CreateAOAndLocationAndEvent:
		aoID, err := e.orgs.Create(ctx, &org.Node{
			Type:        org.TypeAO,
			ParentID:    int64Ptr(t.Org.ID),
			Name:        p.AOName,
			Description: p.AODescription,
			Website:     p.AOWebsite,
			Logo:        p.AOLogo,
			IsActive:    true,
		})
		if err != nil {
			return CommitResult{}, errors.Wrap(err, "create ao")
		}
		locID, err := e.locations.Create(ctx, newLocation(aoID, p.LocationFields))
		if err != nil {
			return CommitResult{}, errors.Wrap(err, "create location")
		}
		evID, err := e.events.Create(ctx, newEvent(aoID, locID, p.EventFields))
		if err != nil {
			return CommitResult{}, errors.Wrap(err, "create event")
		}
		return CommitResult{OrgID: &aoID, LocationID: &locID, EventID: &evID}, nil

	case *updaterequest.CreateEvent:
		evID, err := e.events.Create(ctx, newEvent(t.Org.ID, t.Location.ID, p.EventFields))
		if err != nil {
			return CommitResult{}, errors.Wrap(err, "create event")
		}
		return CommitResult{OrgID: int64Ptr(t.Org.ID), LocationID: int64Ptr(t.Location.ID), EventID: &evID}, nil

	case *updaterequest.EditEvent:
		view := eventViewOf(t.Event)
		if err := mergeInto(&view, p); err != nil {
			return CommitResult{}, err
		}
		view.applyTo(t.Event)
		if err := e.events.Update(ctx, t.Event); err != nil {
			return CommitResult{}, errors.Wrap(err, "update event")
		}
		return CommitResult{OrgID: int64Ptr(t.Event.OrgID), EventID: int64Ptr(t.Event.ID)}, nil

	case *updaterequest.EditAOAndLocation:
		view := aoLocationViewOf(t.Org, t.Location)
		if err := mergeInto(&view, p); err != nil {
			return CommitResult{}, err
		}
		view.applyTo(t.Org, t.Location)
		if err := e.orgs.Update(ctx, t.Org); err != nil {
			return CommitResult{}, errors.Wrap(err, "update ao")
		}
		if err := e.locations.Update(ctx, t.Location); err != nil {
			return CommitResult{}, errors.Wrap(err, "update location")
		}
		return CommitResult{OrgID: int64Ptr(t.Org.ID), LocationID: int64Ptr(t.Location.ID)}, nil

	case *updaterequest.MoveAOToNewLocation:
		locID, err := e.locations.Create(ctx, newLocation(t.Org.ID, p.LocationFields))
		if err != nil {
			return CommitResult{}, errors.Wrap(err, "create location")
		}
		if err := e.relocateAO(ctx, t.Org.ID, locID); err != nil {
			return CommitResult{}, err
		}
		return CommitResult{OrgID: int64Ptr(t.Org.ID), LocationID: &locID}, nil

	case *updaterequest.MoveAOToDifferentLocation:
		t.NewLocation.OrgID = t.Org.ID
		if err := e.locations.Update(ctx, t.NewLocation); err != nil {
			return CommitResult{}, errors.Wrap(err, "update location")
		}
		if err := e.relocateAO(ctx, t.Org.ID, t.NewLocation.ID); err != nil {
			return CommitResult{}, err
		}
		return CommitResult{OrgID: int64Ptr(t.Org.ID), LocationID: int64Ptr(t.NewLocation.ID)}, nil

	case *updaterequest.MoveAOToDifferentRegion:
		t.Org.ParentID = int64Ptr(t.NewOrg.ID)
		if err := e.orgs.Update(ctx, t.Org); err != nil {
			return CommitResult{}, errors.Wrap(err, "update ao")
		}
		return CommitResult{OrgID: int64Ptr(t.Org.ID)}, nil

	case *updaterequest.MoveEventToNewLocation:
		locID, err := e.locations.Create(ctx, newLocation(t.Event.OrgID, p.LocationFields))
		if err != nil {
			return CommitResult{}, errors.Wrap(err, "create location")
		}
		t.Event.LocationID = locID
		if err := e.events.Update(ctx, t.Event); err != nil {
			return CommitResult{}, errors.Wrap(err, "update event")
		}
		return CommitResult{OrgID: int64Ptr(t.Event.OrgID), LocationID: &locID, EventID: int64Ptr(t.Event.ID)}, nil

	case *updaterequest.MoveEventToDifferentAO:
		t.Event.OrgID = t.NewOrg.ID
		t.Event.LocationID = t.NewLocation.ID
		if err := e.events.Update(ctx, t.Event); err != nil {
			return CommitResult{}, errors.Wrap(err, "update event")
		}
		return CommitResult{OrgID: int64Ptr(t.NewOrg.ID), LocationID: int64Ptr(t.NewLocation.ID), EventID: int64Ptr(t.Event.ID)}, nil

	case *updaterequest.DeleteAO:
		if err := e.deactivateAO(ctx, t.Org.ID); err != nil {
			return CommitResult{}, err
		}
		return CommitResult{OrgID: int64Ptr(t.Org.ID)}, nil

	case *updaterequest.DeleteEvent:
		if err := e.events.SetActive(ctx, t.Event.ID, false); err != nil {
			return CommitResult{}, errors.Wrap(err, "deactivate event")
		}
		return CommitResult{EventID: int64Ptr(t.Event.ID)}, nil

	case *updaterequest.CreateOrg:
		id, err := e.orgs.Create(ctx, &org.Node{
			Type:        org.Type(p.OrgType),
			ParentID:    int64Ptr(t.Org.ID),
			Name:        p.Name,
			Description: p.Description,
			Website:     p.Website,
			IsActive:    true,
		})
		if err != nil {
			return CommitResult{}, errors.Wrap(err, "create org")
		}
		return CommitResult{OrgID: &id}, nil

	case *updaterequest.EditOrg:
		view := orgViewOf(t.Org)
		if err := mergeInto(&view, p); err != nil {
			return CommitResult{}, err
		}
		view.applyTo(t.Org)
		if err := e.orgs.Update(ctx, t.Org); err != nil {
			return CommitResult{}, errors.Wrap(err, "update org")
		}
		return CommitResult{OrgID: int64Ptr(t.Org.ID)}, nil

	case *updaterequest.DeleteOrg:
		children, err := e.orgs.ListChildren(ctx, t.Org.ID)
		if err != nil {
			return CommitResult{}, errors.Wrap(err, "list children")
		}
		for _, c := range children {
			if c.IsActive {
				return CommitResult{}, newServiceError(http.StatusConflict, CodeOrgHasChildren,
					fmt.Sprintf("org %d still has active children", t.Org.ID), nil)
			}
		}
		if err := e.orgs.SetActive(ctx, t.Org.ID, false); err != nil {
			return CommitResult{}, errors.Wrap(err, "deactivate org")
		}
		return CommitResult{OrgID: int64Ptr(t.Org.ID)}, nil
	}
	return CommitResult{}, newValidationError("requestType", fmt.Sprintf("unsupported request type %q", req.Kind))
}

// relocateAO points the AO's active events at locID and retires its other
// locations.
func (e *CommitEngine) relocateAO(ctx context.Context, aoID, locID int64) error {
	evs, err := e.events.ListByOrg(ctx, aoID)
	if err != nil {
		return errors.Wrap(err, "list events")
	}
	for i := range evs {
		ev := evs[i]
		if !ev.IsActive || ev.LocationID == locID {
			continue
		}
		ev.LocationID = locID
		if err := e.events.Update(ctx, &ev); err != nil {
			return errors.Wrap(err, "update event")
		}
	}
	locs, err := e.locations.ListByOrg(ctx, aoID)
	if err != nil {
		return errors.Wrap(err, "list locations")
	}
	for _, loc := range locs {
		if loc.ID == locID || !loc.IsActive {
			continue
		}
		if err := e.locations.SetActive(ctx, loc.ID, false); err != nil {
			return errors.Wrap(err, "deactivate location")
		}
	}
	return nil
}

func (e *CommitEngine) deactivateAO(ctx context.Context, aoID int64) error {
	if err := e.orgs.SetActive(ctx, aoID, false); err != nil {
		return errors.Wrap(err, "deactivate ao")
	}
	evs, err := e.events.ListByOrg(ctx, aoID)
	if err != nil {
		return errors.Wrap(err, "list events")
	}
	for _, ev := range evs {
		if !ev.IsActive {
			continue
		}
		if err := e.events.SetActive(ctx, ev.ID, false); err != nil {
			return errors.Wrap(err, "deactivate event")
		}
	}
	locs, err := e.locations.ListByOrg(ctx, aoID)
	if err != nil {
		return errors.Wrap(err, "list locations")
	}
	for _, loc := range locs {
		if !loc.IsActive {
			continue
		}
		if err := e.locations.SetActive(ctx, loc.ID, false); err != nil {
			return errors.Wrap(err, "deactivate location")
		}
	}
	return nil
}

// mergeInto applies the edit's change set to view as an RFC 7396 merge patch.
// The result is decoded into a zero value so keys the patch nulls out inside
// nested maps are gone rather than merged back.
func mergeInto[V any](view *V, edit updaterequest.Edit) error {
	changes, err := edit.Changes()
	if err != nil {
		return errors.Wrap(err, "encode changes")
	}
	doc, err := json.Marshal(view)
	if err != nil {
		return errors.Wrap(err, "encode current state")
	}
	patched, err := jsonpatch.MergePatch(doc, changes)
	if err != nil {
		return newValidationError("payload", "cannot apply changes: "+err.Error())
	}
	var out V
	if err := json.Unmarshal(patched, &out); err != nil {
		return newValidationError("payload", "changes do not fit the entity: "+err.Error())
	}
	*view = out
	return nil
}

func newLocation(orgID int64, f updaterequest.LocationFields) *location.Location {
	loc := &location.Location{
		OrgID:          orgID,
		Name:           f.LocationName,
		Description:    f.LocationDescription,
		AddressStreet:  f.LocationAddress,
		AddressStreet2: f.LocationAddress2,
		AddressCity:    f.LocationCity,
		AddressState:   f.LocationState,
		AddressZip:     f.LocationZip,
		AddressCountry: f.LocationCountry,
		IsActive:       true,
	}
	if f.LocationLat != nil {
		loc.Lat = *f.LocationLat
	}
	if f.LocationLng != nil {
		loc.Lng = *f.LocationLng
	}
	return loc
}

func newEvent(orgID, locationID int64, f updaterequest.EventFields) *event.Event {
	return &event.Event{
		LocationID:   locationID,
		OrgID:        orgID,
		Name:         f.EventName,
		Description:  f.EventDescription,
		DayOfWeek:    f.EventDayOfWeek,
		StartTime:    f.EventStartTime,
		EndTime:      f.EventEndTime,
		EventTypeIDs: append([]int64(nil), f.EventTypeIDs...),
		Meta:         f.EventMeta,
		IsActive:     true,
	}
}
