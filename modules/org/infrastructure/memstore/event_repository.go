package memstore

import (
	"context"
	"sort"

	"github.com/f3nation/f3map/modules/org/domain/event"
)

type eventRepository struct{ s *Store }

func cloneEvent(ev event.Event) event.Event {
	ev.EventTypeIDs = append([]int64(nil), ev.EventTypeIDs...)
	if ev.Meta != nil {
		meta := make(map[string]any, len(ev.Meta))
		for k, v := range ev.Meta {
			meta[k] = v
		}
		ev.Meta = meta
	}
	return ev
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*event.Event, error) {
	var out *event.Event
	err := r.s.read(ctx, func(st *state) error {
		ev, ok := st.events[id]
		if !ok {
			return event.ErrNotFound
		}
		ev = cloneEvent(ev)
		out = &ev
		return nil
	})
	return out, err
}

func (r *eventRepository) ListByOrg(ctx context.Context, orgID int64) ([]event.Event, error) {
	var out []event.Event
	err := r.s.read(ctx, func(st *state) error {
		for _, ev := range st.events {
			if ev.OrgID == orgID {
				out = append(out, cloneEvent(ev))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r *eventRepository) Create(ctx context.Context, ev *event.Event) (int64, error) {
	var id int64
	err := r.s.write(ctx, func(st *state) error {
		if _, ok := st.locations[ev.LocationID]; !ok {
			return event.ErrNotFound
		}
		st.nextEvent++
		id = st.nextEvent
		e := cloneEvent(*ev)
		e.ID = id
		e.Created = r.s.now().UTC()
		e.Updated = e.Created
		st.events[id] = e
		return nil
	})
	return id, err
}

func (r *eventRepository) Update(ctx context.Context, ev *event.Event) error {
	return r.s.write(ctx, func(st *state) error {
		cur, ok := st.events[ev.ID]
		if !ok {
			return event.ErrNotFound
		}
		e := cloneEvent(*ev)
		e.Created = cur.Created
		e.Updated = r.s.now().UTC()
		st.events[e.ID] = e
		return nil
	})
}

func (r *eventRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.s.write(ctx, func(st *state) error {
		e, ok := st.events[id]
		if !ok {
			return event.ErrNotFound
		}
		e = cloneEvent(e)
		e.IsActive = active
		e.Updated = r.s.now().UTC()
		st.events[id] = e
		return nil
	})
}
