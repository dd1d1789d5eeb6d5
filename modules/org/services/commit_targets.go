package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/f3nation/f3map/modules/org/domain/event"
	"github.com/f3nation/f3map/modules/org/domain/location"
	"github.com/f3nation/f3map/modules/org/domain/org"
	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
)

// Targets are the stored entities a request refers to, looked up and checked
// for consistency.
type Targets struct {
	// TargetOrgID is the org whose subtree the request changes.
	TargetOrgID int64
	// NewOrgID is the destination org of a move, if any.
	NewOrgID *int64
	// AuthorityOrgIDs lists every org the actor needs authority on.
	AuthorityOrgIDs []int64

	Org         *org.Node
	NewOrg      *org.Node
	Location    *location.Location
	NewLocation *location.Location
	Event       *event.Event
}

// ResolveTargets loads the entities named by req. Missing or inactive ones
// fail with MAP_TARGET_NOT_FOUND; entities that do not fit together fail
// validation.
func (e *CommitEngine) ResolveTargets(ctx context.Context, req ValidatedRequest) (*Targets, error) {
	t := &Targets{}
	switch p := req.Payload.(type) {
	case *updaterequest.CreateAOAndLocationAndEvent:
		region, err := e.orgOfType(ctx, p.OriginalRegionID, "originalRegionId", org.TypeRegion)
		if err != nil {
			return nil, err
		}
		t.Org = region
		t.TargetOrgID = region.ID

	case *updaterequest.CreateEvent:
		ao, err := e.orgOfType(ctx, p.OriginalAOID, "originalAoId", org.TypeAO)
		if err != nil {
			return nil, err
		}
		loc, err := e.ownedLocation(ctx, p.OriginalLocationID, "originalLocationId", ao.ID)
		if err != nil {
			return nil, err
		}
		t.Org, t.Location, t.TargetOrgID = ao, loc, ao.ID

	case *updaterequest.EditEvent:
		ev, err := e.activeEvent(ctx, p.OriginalEventID)
		if err != nil {
			return nil, err
		}
		t.Event, t.TargetOrgID = ev, ev.OrgID

	case *updaterequest.EditAOAndLocation:
		ao, err := e.orgOfType(ctx, p.OriginalAOID, "originalAoId", org.TypeAO)
		if err != nil {
			return nil, err
		}
		loc, err := e.ownedLocation(ctx, p.OriginalLocationID, "originalLocationId", ao.ID)
		if err != nil {
			return nil, err
		}
		t.Org, t.Location, t.TargetOrgID = ao, loc, ao.ID

	case *updaterequest.MoveAOToNewLocation:
		ao, err := e.orgOfType(ctx, p.OriginalAOID, "originalAoId", org.TypeAO)
		if err != nil {
			return nil, err
		}
		t.Org, t.TargetOrgID = ao, ao.ID

	case *updaterequest.MoveAOToDifferentLocation:
		ao, err := e.orgOfType(ctx, p.OriginalAOID, "originalAoId", org.TypeAO)
		if err != nil {
			return nil, err
		}
		loc, err := e.activeLocation(ctx, p.NewLocationID)
		if err != nil {
			return nil, err
		}
		t.Org, t.NewLocation, t.TargetOrgID = ao, loc, ao.ID
		if loc.OrgID != ao.ID {
			t.NewOrgID = int64Ptr(loc.OrgID)
		}

	case *updaterequest.MoveAOToDifferentRegion:
		ao, err := e.orgOfType(ctx, p.OriginalAOID, "originalAoId", org.TypeAO)
		if err != nil {
			return nil, err
		}
		region, err := e.orgOfType(ctx, p.NewRegionID, "newRegionId", org.TypeRegion)
		if err != nil {
			return nil, err
		}
		t.Org, t.NewOrg, t.TargetOrgID, t.NewOrgID = ao, region, ao.ID, int64Ptr(region.ID)

	case *updaterequest.MoveEventToNewLocation:
		ev, err := e.activeEvent(ctx, p.OriginalEventID)
		if err != nil {
			return nil, err
		}
		t.Event, t.TargetOrgID = ev, ev.OrgID

	case *updaterequest.MoveEventToDifferentAO:
		ev, err := e.activeEvent(ctx, p.OriginalEventID)
		if err != nil {
			return nil, err
		}
		ao, err := e.orgOfType(ctx, p.NewAOID, "newAoId", org.TypeAO)
		if err != nil {
			return nil, err
		}
		var loc *location.Location
		if p.NewLocationID != nil {
			loc, err = e.ownedLocation(ctx, *p.NewLocationID, "newLocationId", ao.ID)
		} else {
			loc, err = e.firstLocation(ctx, ao.ID, "newAoId")
		}
		if err != nil {
			return nil, err
		}
		t.Event, t.NewOrg, t.NewLocation = ev, ao, loc
		t.TargetOrgID, t.NewOrgID = ev.OrgID, int64Ptr(ao.ID)

	case *updaterequest.DeleteAO:
		ao, err := e.orgOfType(ctx, p.OriginalAOID, "originalAoId", org.TypeAO)
		if err != nil {
			return nil, err
		}
		t.Org, t.TargetOrgID = ao, ao.ID

	case *updaterequest.DeleteEvent:
		ev, err := e.activeEvent(ctx, p.OriginalEventID)
		if err != nil {
			return nil, err
		}
		t.Event, t.TargetOrgID = ev, ev.OrgID

	case *updaterequest.CreateOrg:
		parent, err := e.tree.Get(ctx, p.ParentID)
		if err != nil {
			return nil, err
		}
		if !parent.Type.CanParent(org.Type(p.OrgType)) {
			return nil, newValidationError("orgType", fmt.Sprintf("a %s cannot be placed under a %s", p.OrgType, parent.Type))
		}
		t.Org, t.TargetOrgID = &parent, parent.ID

	case *updaterequest.EditOrg:
		node, err := e.tree.Get(ctx, p.OriginalOrgID)
		if err != nil {
			return nil, err
		}
		t.Org, t.TargetOrgID = &node, node.ID

	case *updaterequest.DeleteOrg:
		node, err := e.tree.Get(ctx, p.OriginalOrgID)
		if err != nil {
			return nil, err
		}
		switch node.Type {
		case org.TypeSector, org.TypeArea, org.TypeRegion:
		default:
			return nil, newValidationError("originalOrgId", "only sector, area or region nodes can be deleted this way")
		}
		t.Org, t.TargetOrgID = &node, node.ID

	default:
		return nil, newValidationError("requestType", fmt.Sprintf("unsupported request type %q", req.Kind))
	}

	if scoped, ok := req.Payload.(updaterequest.RegionScoped); ok {
		if err := e.checkRegion(ctx, t.TargetOrgID, scoped.RegionID()); err != nil {
			return nil, err
		}
	}

	t.AuthorityOrgIDs = []int64{t.TargetOrgID}
	if t.NewOrgID != nil && *t.NewOrgID != t.TargetOrgID {
		t.AuthorityOrgIDs = append(t.AuthorityOrgIDs, *t.NewOrgID)
	}
	return t, nil
}

// checkRegion requires regionID to be on the ancestor chain of orgID.
func (e *CommitEngine) checkRegion(ctx context.Context, orgID, regionID int64) error {
	chain, err := e.tree.AncestorsOf(ctx, orgID)
	if err != nil {
		return err
	}
	for _, n := range chain {
		if n.ID == regionID {
			return nil
		}
	}
	return newValidationError("originalRegionId", fmt.Sprintf("org %d is not within region %d", orgID, regionID))
}

func (e *CommitEngine) orgOfType(ctx context.Context, id int64, field string, want org.Type) (*org.Node, error) {
	node, err := e.tree.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if node.Type != want {
		return nil, newValidationError(field, fmt.Sprintf("org %d is a %s, not a %s", id, node.Type, want))
	}
	return &node, nil
}

func (e *CommitEngine) activeLocation(ctx context.Context, id int64) (*location.Location, error) {
	loc, err := e.locations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, location.ErrNotFound) {
			return nil, newTargetNotFound("location", id, err)
		}
		return nil, err
	}
	if !loc.IsActive {
		return nil, newTargetNotFound("location", id, nil)
	}
	return loc, nil
}

func (e *CommitEngine) ownedLocation(ctx context.Context, id int64, field string, aoID int64) (*location.Location, error) {
	loc, err := e.activeLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc.OrgID != aoID {
		return nil, newValidationError(field, fmt.Sprintf("location %d does not belong to AO %d", id, aoID))
	}
	return loc, nil
}

// firstLocation returns the AO's active location with the lowest id.
func (e *CommitEngine) firstLocation(ctx context.Context, aoID int64, field string) (*location.Location, error) {
	locs, err := e.locations.ListByOrg(ctx, aoID)
	if err != nil {
		return nil, err
	}
	var first *location.Location
	for i := range locs {
		if locs[i].IsActive && (first == nil || locs[i].ID < first.ID) {
			first = &locs[i]
		}
	}
	if first == nil {
		return nil, newValidationError(field, fmt.Sprintf("AO %d has no active location to host the event", aoID))
	}
	return first, nil
}

func (e *CommitEngine) activeEvent(ctx context.Context, id int64) (*event.Event, error) {
	ev, err := e.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			return nil, newTargetNotFound("event", id, err)
		}
		return nil, err
	}
	if !ev.IsActive {
		return nil, newTargetNotFound("event", id, nil)
	}
	return ev, nil
}

func int64Ptr(v int64) *int64 { return &v }
