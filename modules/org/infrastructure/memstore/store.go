// Package memstore is a transactional in-memory implementation of the org
// module repositories. Transactions are serialized and work on a copy of the
// data that replaces the committed copy only when fn succeeds.
package memstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/f3nation/f3map/modules/org/domain/event"
	"github.com/f3nation/f3map/modules/org/domain/location"
	"github.com/f3nation/f3map/modules/org/domain/org"
	"github.com/f3nation/f3map/modules/org/domain/role"
	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
)

type grantKey struct {
	userID int64
	orgID  int64
}

type state struct {
	orgs      map[int64]org.Node
	locations map[int64]location.Location
	events    map[int64]event.Event
	grants    map[grantKey]role.Grant
	requests  map[uuid.UUID]updaterequest.UpdateRequest
	nextOrg   int64
	nextLoc   int64
	nextEvent int64

	// treeVersion is drawn from Store.treeSeq on every org write.
	treeVersion int64
}

func newState() *state {
	return &state{
		orgs:      make(map[int64]org.Node),
		locations: make(map[int64]location.Location),
		events:    make(map[int64]event.Event),
		grants:    make(map[grantKey]role.Grant),
		requests:  make(map[uuid.UUID]updaterequest.UpdateRequest),
	}
}

// clone copies the maps. Stored values are never mutated in place, so the
// values themselves can be shared.
func (s *state) clone() *state {
	out := &state{
		orgs:      make(map[int64]org.Node, len(s.orgs)),
		locations: make(map[int64]location.Location, len(s.locations)),
		events:    make(map[int64]event.Event, len(s.events)),
		grants:    make(map[grantKey]role.Grant, len(s.grants)),
		requests:  make(map[uuid.UUID]updaterequest.UpdateRequest, len(s.requests)),
		nextOrg:   s.nextOrg,
		nextLoc:   s.nextLoc,
		nextEvent: s.nextEvent,

		treeVersion: s.treeVersion,
	}
	for k, v := range s.orgs {
		out.orgs[k] = v
	}
	for k, v := range s.locations {
		out.locations[k] = v
	}
	for k, v := range s.events {
		out.events[k] = v
	}
	for k, v := range s.grants {
		out.grants[k] = v
	}
	for k, v := range s.requests {
		out.requests[k] = v
	}
	return out
}

type txKey struct{}

type tx struct {
	store *Store
	state *state
}

type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time

	// treeSeq outlives rolled back transactions so versions are never reused.
	treeSeq atomic.Int64

	faultMu sync.Mutex
	faults  []error
}

func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

// SetClock replaces the clock used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// FailCommits makes the next len(errs) top-level transactions fail with the
// given errors after fn has run. Their changes are discarded.
func (s *Store) FailCommits(errs ...error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults = append(s.faults, errs...)
}

func (s *Store) nextFault() error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if len(s.faults) == 0 {
		return nil
	}
	err := s.faults[0]
	s.faults = s.faults[1:]
	return err
}

// InTx runs fn against a private copy of the data and publishes the copy when
// fn returns nil. A nested call joins the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t, ok := ctx.Value(txKey{}).(*tx); ok && t.store == s {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s, state: s.state.clone()}
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.nextFault(); err != nil {
		return err
	}
	s.state = t.state
	return nil
}

// read runs fn on the transaction's state, or on the committed state under
// the store lock.
func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if t, ok := ctx.Value(txKey{}).(*tx); ok && t.store == s {
		return fn(t.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// write runs fn in a transaction, joining the caller's when there is one.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	return s.InTx(ctx, func(txCtx context.Context) error {
		return fn(txCtx.Value(txKey{}).(*tx).state)
	})
}

func (s *Store) Orgs() org.Repository                     { return &orgRepository{s} }
func (s *Store) Locations() location.Repository           { return &locationRepository{s} }
func (s *Store) Events() event.Repository                 { return &eventRepository{s} }
func (s *Store) Roles() role.Repository                   { return &roleRepository{s} }
func (s *Store) UpdateRequests() updaterequest.Repository { return &updateRequestRepository{s} }
