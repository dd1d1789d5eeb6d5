package memstore

import (
	"context"
	"sort"

	"github.com/f3nation/f3map/modules/org/domain/role"
)

type roleRepository struct{ s *Store }

func (r *roleRepository) ListByUser(ctx context.Context, userID int64) ([]role.Grant, error) {
	var out []role.Grant
	err := r.s.read(ctx, func(st *state) error {
		for k, g := range st.grants {
			if k.userID == userID {
				out = append(out, g)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].OrgID < out[j].OrgID })
		return nil
	})
	return out, err
}

func (r *roleRepository) Upsert(ctx context.Context, grant role.Grant) error {
	return r.s.write(ctx, func(st *state) error {
		st.grants[grantKey{userID: grant.UserID, orgID: grant.OrgID}] = grant
		return nil
	})
}

func (r *roleRepository) Delete(ctx context.Context, userID, orgID int64) (bool, error) {
	var removed bool
	err := r.s.write(ctx, func(st *state) error {
		key := grantKey{userID: userID, orgID: orgID}
		_, removed = st.grants[key]
		delete(st.grants, key)
		return nil
	})
	return removed, err
}
