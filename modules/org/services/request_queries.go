package services

import (
	"context"
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wI2L/jsondiff"

	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
)

type VisibilityFilter struct {
	// OnlyMine keeps requests at or below an org the user holds a grant on.
	OnlyMine bool
	Status   *updaterequest.Status
	Kind     *updaterequest.Kind
	Limit    int
	Cursor   *updaterequest.Cursor
}

type RequestPage struct {
	Items      []updaterequest.UpdateRequest
	NextCursor *updaterequest.Cursor
}

// RequestDetail pairs a request with the reviewer diff of edit kinds.
type RequestDetail struct {
	Request *updaterequest.UpdateRequest `json:"request"`
	Diff    jsondiff.Patch               `json:"diff,omitempty"`
}

// ListVisibleTo returns the review queue, newest first.
func (l *RequestLedger) ListVisibleTo(ctx context.Context, userID int64, filter VisibilityFilter) (RequestPage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = l.opts.DefaultPageSize
	}
	if limit > l.opts.MaxPageSize {
		limit = l.opts.MaxPageSize
	}

	query := updaterequest.ListFilter{
		Status: filter.Status,
		Kind:   filter.Kind,
		Limit:  limit + 1,
		Cursor: filter.Cursor,
	}
	if filter.OnlyMine {
		orgIDs, err := l.scopeOf(ctx, userID)
		if err != nil {
			return RequestPage{}, err
		}
		if len(orgIDs) == 0 {
			return RequestPage{Items: []updaterequest.UpdateRequest{}}, nil
		}
		query.OrgIDs = orgIDs
	}

	items, err := l.Requests.List(ctx, query)
	if err != nil {
		return RequestPage{}, err
	}
	page := RequestPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = &updaterequest.Cursor{Created: last.Created, ID: last.ID}
	}
	if page.Items == nil {
		page.Items = []updaterequest.UpdateRequest{}
	}
	return page, nil
}

// scopeOf lists every org at or below a node userID holds a grant on.
// Inactive nodes stay in scope so resolved history remains visible.
func (l *RequestLedger) scopeOf(ctx context.Context, userID int64) ([]int64, error) {
	grants, err := l.Roles.GrantsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{})
	out := make([]int64, 0, len(grants))
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, g := range grants {
		nodes, err := l.Tree.DescendantsOf(ctx, g.OrgID, nil, IncludeInactive())
		if err != nil {
			if hasCode(err, CodeTargetNotFound) {
				continue
			}
			return nil, err
		}
		add(g.OrgID)
		for _, n := range nodes {
			add(n.ID)
		}
	}
	return out, nil
}

// Get returns one request. Edit kinds come with a JSON patch from the
// submitter's snapshot to the proposed values.
func (l *RequestLedger) Get(ctx context.Context, id uuid.UUID) (*RequestDetail, error) {
	req, err := l.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &RequestDetail{Request: req}
	if !req.Kind.IsEdit() {
		return detail, nil
	}
	diff, err := reviewDiff(req)
	if err != nil {
		fields := requestFields(ctx, req.ID, req.Kind, 0)
		fields["error"] = err.Error()
		logWithFields(ctx, logrus.WarnLevel, "update_request.diff.failed", fields)
		return detail, nil
	}
	detail.Diff = diff
	return detail, nil
}

func reviewDiff(req *updaterequest.UpdateRequest) (jsondiff.Patch, error) {
	payload, ok := updaterequest.NewPayload(req.Kind)
	if !ok {
		return nil, errors.Errorf("unknown request type %q", req.Kind)
	}
	if err := json.Unmarshal(req.Payload, payload); err != nil {
		return nil, errors.Wrap(err, "decode payload")
	}
	edit, ok := payload.(updaterequest.Edit)
	if !ok {
		return nil, errors.Errorf("%s is not an edit", req.Kind)
	}
	before, err := json.Marshal(edit.Snapshot())
	if err != nil {
		return nil, errors.Wrap(err, "encode snapshot")
	}
	changes, err := edit.Changes()
	if err != nil {
		return nil, errors.Wrap(err, "encode changes")
	}
	after, err := jsonpatch.MergePatch(before, changes)
	if err != nil {
		return nil, errors.Wrap(err, "apply changes")
	}
	return jsondiff.CompareJSON(before, after)
}
