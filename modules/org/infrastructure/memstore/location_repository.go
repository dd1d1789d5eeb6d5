package memstore

import (
	"context"
	"sort"

	"github.com/f3nation/f3map/modules/org/domain/location"
)

type locationRepository struct{ s *Store }

func (r *locationRepository) GetByID(ctx context.Context, id int64) (*location.Location, error) {
	var out *location.Location
	err := r.s.read(ctx, func(st *state) error {
		loc, ok := st.locations[id]
		if !ok {
			return location.ErrNotFound
		}
		out = &loc
		return nil
	})
	return out, err
}

func (r *locationRepository) ListByOrg(ctx context.Context, orgID int64) ([]location.Location, error) {
	var out []location.Location
	err := r.s.read(ctx, func(st *state) error {
		for _, loc := range st.locations {
			if loc.OrgID == orgID {
				out = append(out, loc)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r *locationRepository) Create(ctx context.Context, loc *location.Location) (int64, error) {
	var id int64
	err := r.s.write(ctx, func(st *state) error {
		st.nextLoc++
		id = st.nextLoc
		l := *loc
		l.ID = id
		l.Created = r.s.now().UTC()
		l.Updated = l.Created
		st.locations[id] = l
		return nil
	})
	return id, err
}

func (r *locationRepository) Update(ctx context.Context, loc *location.Location) error {
	return r.s.write(ctx, func(st *state) error {
		cur, ok := st.locations[loc.ID]
		if !ok {
			return location.ErrNotFound
		}
		l := *loc
		l.Created = cur.Created
		l.Updated = r.s.now().UTC()
		st.locations[l.ID] = l
		return nil
	})
}

func (r *locationRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.s.write(ctx, func(st *state) error {
		l, ok := st.locations[id]
		if !ok {
			return location.ErrNotFound
		}
		l.IsActive = active
		l.Updated = r.s.now().UTC()
		st.locations[id] = l
		return nil
	})
}
