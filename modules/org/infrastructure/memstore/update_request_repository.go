package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
)

var errDuplicateRequest = errors.New("memstore: duplicate update request id")

type updateRequestRepository struct{ s *Store }

func cloneRequest(req updaterequest.UpdateRequest) updaterequest.UpdateRequest {
	req.Payload = append(json.RawMessage(nil), req.Payload...)
	return req
}

func (r *updateRequestRepository) Insert(ctx context.Context, req *updaterequest.UpdateRequest) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.requests[req.ID]; ok {
			return errDuplicateRequest
		}
		st.requests[req.ID] = cloneRequest(*req)
		return nil
	})
}

func (r *updateRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*updaterequest.UpdateRequest, error) {
	var out *updaterequest.UpdateRequest
	err := r.s.read(ctx, func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return updaterequest.ErrNotFound
		}
		req = cloneRequest(req)
		out = &req
		return nil
	})
	return out, err
}

func (r *updateRequestRepository) Resolve(ctx context.Context, id uuid.UUID, status updaterequest.Status, reviewedBy int64, at time.Time) (bool, error) {
	var ok bool
	err := r.s.write(ctx, func(st *state) error {
		req, found := st.requests[id]
		if !found || req.Status != updaterequest.StatusPending {
			return nil
		}
		req.Status = status
		req.ReviewedBy = &reviewedBy
		req.Updated = at
		st.requests[id] = req
		ok = true
		return nil
	})
	return ok, err
}

func (r *updateRequestRepository) RecordResult(ctx context.Context, id uuid.UUID, newOrgID, newLocationID *int64) error {
	return r.s.write(ctx, func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return updaterequest.ErrNotFound
		}
		if newOrgID != nil {
			v := *newOrgID
			req.NewOrgID = &v
		}
		if newLocationID != nil {
			v := *newLocationID
			req.NewLocationID = &v
		}
		st.requests[id] = req
		return nil
	})
}

func (r *updateRequestRepository) List(ctx context.Context, filter updaterequest.ListFilter) ([]updaterequest.UpdateRequest, error) {
	var out []updaterequest.UpdateRequest
	err := r.s.read(ctx, func(st *state) error {
		var scope map[int64]struct{}
		if filter.OrgIDs != nil {
			scope = make(map[int64]struct{}, len(filter.OrgIDs))
			for _, id := range filter.OrgIDs {
				scope[id] = struct{}{}
			}
		}
		for _, req := range st.requests {
			if !matches(req, filter, scope) {
				continue
			}
			out = append(out, cloneRequest(req))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return olderThan(out[j], out[i].Created, out[i].ID) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matches(req updaterequest.UpdateRequest, filter updaterequest.ListFilter, scope map[int64]struct{}) bool {
	if filter.Status != nil && req.Status != *filter.Status {
		return false
	}
	if filter.Kind != nil && req.Kind != *filter.Kind {
		return false
	}
	if scope != nil {
		_, inTarget := scope[req.TargetOrgID]
		inNew := false
		if req.NewOrgID != nil {
			_, inNew = scope[*req.NewOrgID]
		}
		if !inTarget && !inNew {
			return false
		}
	}
	if filter.Cursor != nil && !olderThan(req, filter.Cursor.Created, filter.Cursor.ID) {
		return false
	}
	return true
}

// olderThan reports whether req sorts after (created, id) in newest-first order.
func olderThan(req updaterequest.UpdateRequest, created time.Time, id uuid.UUID) bool {
	if !req.Created.Equal(created) {
		return req.Created.Before(created)
	}
	return req.ID.String() < id.String()
}
