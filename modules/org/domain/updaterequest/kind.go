package updaterequest

// Kind names one request shape. The set is closed: every kind has exactly
// one payload type.
type Kind string

const (
	KindCreateAOAndLocationAndEvent Kind = "create_ao_and_location_and_event"
	KindCreateEvent                 Kind = "create_event"
	KindEditEvent                   Kind = "edit_event"
	KindEditAOAndLocation           Kind = "edit_ao_and_location"
	KindMoveAOToNewLocation         Kind = "move_ao_to_new_location"
	KindMoveAOToDifferentLocation   Kind = "move_ao_to_different_location"
	KindMoveAOToDifferentRegion     Kind = "move_ao_to_different_region"
	KindMoveEventToNewLocation      Kind = "move_event_to_new_location"
	KindMoveEventToDifferentAO      Kind = "move_event_to_different_ao"
	KindDeleteAO                    Kind = "delete_ao"
	KindDeleteEvent                 Kind = "delete_event"
	KindCreateOrg                   Kind = "create_org"
	KindEditOrg                     Kind = "edit_org"
	KindDeleteOrg                   Kind = "delete_org"

	// KindLegacyEdit is never processed; submitters must pick a current kind.
	KindLegacyEdit Kind = "edit"
)

// CurrentKinds lists every kind accepted for submission.
var CurrentKinds = []Kind{
	KindCreateAOAndLocationAndEvent,
	KindCreateEvent,
	KindEditEvent,
	KindEditAOAndLocation,
	KindMoveAOToNewLocation,
	KindMoveAOToDifferentLocation,
	KindMoveAOToDifferentRegion,
	KindMoveEventToNewLocation,
	KindMoveEventToDifferentAO,
	KindDeleteAO,
	KindDeleteEvent,
	KindCreateOrg,
	KindEditOrg,
	KindDeleteOrg,
}

func (k Kind) Valid() bool {
	for _, c := range CurrentKinds {
		if c == k {
			return true
		}
	}
	return false
}

func (k Kind) IsLegacy() bool {
	return k == KindLegacyEdit
}

// IsOrgLifecycle reports whether k creates or removes org nodes.
func (k Kind) IsOrgLifecycle() bool {
	switch k {
	case KindCreateOrg, KindDeleteOrg, KindDeleteAO:
		return true
	default:
		return false
	}
}

// MutatesOrgTree reports whether applying k can change a node's parent,
// name or active flag.
func (k Kind) MutatesOrgTree() bool {
	switch k {
	case KindCreateAOAndLocationAndEvent,
		KindEditAOAndLocation,
		KindMoveAOToDifferentRegion,
		KindDeleteAO,
		KindCreateOrg,
		KindEditOrg,
		KindDeleteOrg:
		return true
	default:
		return false
	}
}

// IsEdit reports whether k carries a currentValues snapshot.
func (k Kind) IsEdit() bool {
	switch k {
	case KindEditEvent, KindEditAOAndLocation, KindEditOrg:
		return true
	default:
		return false
	}
}
