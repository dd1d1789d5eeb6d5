package persistence

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
	"github.com/f3nation/f3map/pkg/composables"
)

const requestColumns = `id, request_type, region_id, target_org_id, new_org_id, original_location_id,
	original_event_id, new_location_id, payload, submitted_by, status, reviewed_by, created, updated`

type UpdateRequestRepository struct{}

func NewUpdateRequestRepository() *UpdateRequestRepository {
	return &UpdateRequestRepository{}
}

func scanRequest(row pgx.Row) (updaterequest.UpdateRequest, error) {
	var (
		req          updaterequest.UpdateRequest
		kind, status string
		payload      []byte
	)
	err := row.Scan(
		&req.ID, &kind, &req.RegionID, &req.TargetOrgID, &req.NewOrgID, &req.OriginalLocationID,
		&req.OriginalEventID, &req.NewLocationID, &payload, &req.SubmittedBy, &status, &req.ReviewedBy,
		&req.Created, &req.Updated,
	)
	req.Kind = updaterequest.Kind(kind)
	req.Status = updaterequest.Status(status)
	req.Payload = payload
	return req, err
}

func (r *UpdateRequestRepository) Insert(ctx context.Context, req *updaterequest.UpdateRequest) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
INSERT INTO update_requests (
	id, request_type, region_id, target_org_id, new_org_id, original_location_id,
	original_event_id, new_location_id, payload, submitted_by, status, reviewed_by, created, updated
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::jsonb,$10,$11,$12,$13,$14)
`,
		req.ID, string(req.Kind), req.RegionID, req.TargetOrgID, req.NewOrgID, req.OriginalLocationID,
		req.OriginalEventID, req.NewLocationID, string(req.Payload), req.SubmittedBy, string(req.Status), req.ReviewedBy,
		req.Created, req.Updated,
	)
	return err
}

func (r *UpdateRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*updaterequest.UpdateRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	req, err := scanRequest(tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM update_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, updaterequest.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// Resolve is a compare-and-set on the pending status, so two reviewers racing
// on the same request cannot both win.
func (r *UpdateRequestRepository) Resolve(ctx context.Context, id uuid.UUID, status updaterequest.Status, reviewedBy int64, at time.Time) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `
UPDATE update_requests
SET status = $2, reviewed_by = $3, updated = $4
WHERE id = $1 AND status = 'pending'
`, id, string(status), reviewedBy, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UpdateRequestRepository) RecordResult(ctx context.Context, id uuid.UUID, newOrgID, newLocationID *int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
UPDATE update_requests
SET new_org_id = COALESCE($2, new_org_id), new_location_id = COALESCE($3, new_location_id)
WHERE id = $1
`, id, newOrgID, newLocationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return updaterequest.ErrNotFound
	}
	return nil
}

func (r *UpdateRequestRepository) List(ctx context.Context, filter updaterequest.ListFilter) ([]updaterequest.UpdateRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	if filter.OrgIDs != nil && len(filter.OrgIDs) == 0 {
		return nil, nil
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.OrgIDs != nil {
		p := arg(filter.OrgIDs)
		where = append(where, "(target_org_id = ANY("+p+") OR new_org_id = ANY("+p+"))")
	}
	if filter.Status != nil {
		where = append(where, "status = "+arg(string(*filter.Status)))
	}
	if filter.Kind != nil {
		where = append(where, "request_type = "+arg(string(*filter.Kind)))
	}
	if filter.Cursor != nil {
		where = append(where, "(created, id::text) < ("+arg(filter.Cursor.Created)+", "+arg(filter.Cursor.ID.String())+")")
	}

	sql := `SELECT ` + requestColumns + ` FROM update_requests`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY created DESC, id::text DESC"
	if filter.Limit > 0 {
		sql += " LIMIT " + arg(filter.Limit)
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []updaterequest.UpdateRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
