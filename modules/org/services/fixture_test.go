package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/f3nation/f3map/modules/org/domain/event"
	"github.com/f3nation/f3map/modules/org/domain/location"
	"github.com/f3nation/f3map/modules/org/domain/org"
	"github.com/f3nation/f3map/modules/org/domain/role"
	"github.com/f3nation/f3map/modules/org/infrastructure/memstore"
	"github.com/f3nation/f3map/pkg/authz"
	"github.com/f3nation/f3map/pkg/eventbus"
)

const (
	userRegionEditor int64 = 100
	userNobody       int64 = 101
	userSectorAdmin  int64 = 102
	userAOEditor     int64 = 103
	userRegionAdmin  int64 = 104
	userOtherEditor  int64 = 105
)

// fixture is a small tree:
//
//	nation
//	└── sector
//	    └── area
//	        ├── region ── ao (location, event)
//	        └── otherRegion ── otherAO (otherLocation)
type fixture struct {
	store    *memstore.Store
	bus      eventbus.EventBus
	cache    AncestorCache
	tree     *OrgTree
	roles    *RoleStore
	resolver *AuthorityResolver
	engine   *CommitEngine
	ledger   *RequestLedger

	nation, sector, area, region, ao int64
	otherRegion, otherAO             int64
	location, otherLocation, eventID int64
}

func newFixture(t *testing.T, tweak ...func(*LedgerOptions)) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{store: memstore.New(), bus: eventbus.NewEventPublisher(nil), cache: NewMemoryAncestorCache()}
	f.nation = f.createOrg(t, org.TypeNation, 0, "Nation")
	f.sector = f.createOrg(t, org.TypeSector, f.nation, "Southeast")
	f.area = f.createOrg(t, org.TypeArea, f.sector, "Carolinas")
	f.region = f.createOrg(t, org.TypeRegion, f.area, "Charlotte")
	f.ao = f.createOrg(t, org.TypeAO, f.region, "The Yard")
	f.otherRegion = f.createOrg(t, org.TypeRegion, f.area, "Raleigh")
	f.otherAO = f.createOrg(t, org.TypeAO, f.otherRegion, "The Depot")

	var err error
	f.location, err = f.store.Locations().Create(ctx, &location.Location{OrgID: f.ao, Name: "Park", Lat: 35.2, Lng: -80.8, IsActive: true})
	require.NoError(t, err)
	f.otherLocation, err = f.store.Locations().Create(ctx, &location.Location{OrgID: f.otherAO, Name: "School", Lat: 35.8, Lng: -78.6, IsActive: true})
	require.NoError(t, err)
	f.eventID, err = f.store.Events().Create(ctx, &event.Event{
		LocationID:   f.location,
		OrgID:        f.ao,
		Name:         "Bootcamp",
		DayOfWeek:    "monday",
		StartTime:    "0530",
		EndTime:      "0615",
		EventTypeIDs: []int64{1},
		IsActive:     true,
	})
	require.NoError(t, err)

	for _, g := range []role.Grant{
		{UserID: userRegionEditor, OrgID: f.region, Level: role.LevelEditor},
		{UserID: userSectorAdmin, OrgID: f.sector, Level: role.LevelAdmin},
		{UserID: userAOEditor, OrgID: f.ao, Level: role.LevelEditor},
		{UserID: userRegionAdmin, OrgID: f.region, Level: role.LevelAdmin},
		{UserID: userOtherEditor, OrgID: f.otherRegion, Level: role.LevelEditor},
	} {
		require.NoError(t, f.store.Roles().Upsert(ctx, g))
	}

	policy, err := authz.NewService(authz.Config{})
	require.NoError(t, err)

	f.tree = NewOrgTree(f.store.Orgs(), f.cache)
	f.roles = NewRoleStore(f.store.Roles())
	f.resolver = NewAuthorityResolver(f.tree, f.roles, policy)
	f.engine = NewCommitEngine(f.tree, f.store.Orgs(), f.store.Locations(), f.store.Events())

	opts := LedgerOptions{DirectCommit: true, DefaultPageSize: 50, MaxPageSize: 200, RetryDelay: time.Millisecond}
	for _, fn := range tweak {
		fn(&opts)
	}
	f.ledger = NewRequestLedger(LedgerDeps{
		Tx:        f.store,
		Requests:  f.store.UpdateRequests(),
		Tree:      f.tree,
		Roles:     f.roles,
		Resolver:  f.resolver,
		Validator: NewRequestValidator(),
		Policy:    NewAutoApprovalPolicy(AutoApproveAuthorized),
		Engine:    f.engine,
		Publisher: f.bus,
	}, opts)
	return f
}

// peer is a second service stack over the fixture's store with its own memory
// cache, standing in for another server instance or an admin CLI run.
type peer struct {
	tree     *OrgTree
	resolver *AuthorityResolver
	ledger   *RequestLedger
}

func (f *fixture) newPeer(t *testing.T) *peer {
	t.Helper()
	policy, err := authz.NewService(authz.Config{})
	require.NoError(t, err)

	p := &peer{tree: NewOrgTree(f.store.Orgs(), NewMemoryAncestorCache())}
	roles := NewRoleStore(f.store.Roles())
	p.resolver = NewAuthorityResolver(p.tree, roles, policy)
	p.ledger = NewRequestLedger(LedgerDeps{
		Tx:        f.store,
		Requests:  f.store.UpdateRequests(),
		Tree:      p.tree,
		Roles:     roles,
		Resolver:  p.resolver,
		Validator: NewRequestValidator(),
		Engine:    NewCommitEngine(p.tree, f.store.Orgs(), f.store.Locations(), f.store.Events()),
		Publisher: eventbus.NewEventPublisher(nil),
	}, LedgerOptions{DirectCommit: true, RetryDelay: time.Millisecond})
	return p
}

func (f *fixture) createOrg(t *testing.T, typ org.Type, parent int64, name string) int64 {
	t.Helper()
	node := &org.Node{Type: typ, Name: name, IsActive: true}
	if parent > 0 {
		node.ParentID = &parent
	}
	id, err := f.store.Orgs().Create(context.Background(), node)
	require.NoError(t, err)
	return id
}

func (f *fixture) activeEvents(t *testing.T, orgID int64) []event.Event {
	t.Helper()
	all, err := f.store.Events().ListByOrg(context.Background(), orgID)
	require.NoError(t, err)
	var out []event.Event
	for _, ev := range all {
		if ev.IsActive {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fixture) createEventPayload(regionID, aoID, locationID int64, start string) []byte {
	return []byte(fmt.Sprintf(`{
		"originalRegionId": %d,
		"originalAoId": %d,
		"originalLocationId": %d,
		"eventName": "Speed Work",
		"eventDayOfWeek": "wednesday",
		"eventStartTime": %q,
		"eventEndTime": "0645",
		"eventTypeIds": [2]
	}`, regionID, aoID, locationID, start))
}

func requireCode(t *testing.T, err error, code string) *ServiceError {
	t.Helper()
	require.Error(t, err)
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr), "expected ServiceError, got %T: %v", err, err)
	require.Equal(t, code, svcErr.Code, svcErr.Message)
	return svcErr
}
