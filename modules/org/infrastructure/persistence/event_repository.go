package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/f3nation/f3map/modules/org/domain/event"
	"github.com/f3nation/f3map/pkg/composables"
)

const eventColumns = `id, location_id, org_id, name, description, day_of_week, start_time, end_time,
	event_type_ids, meta, is_active, created, updated`

type EventRepository struct{}

func NewEventRepository() *EventRepository {
	return &EventRepository{}
}

func scanEvent(row pgx.Row) (event.Event, error) {
	var ev event.Event
	err := row.Scan(
		&ev.ID, &ev.LocationID, &ev.OrgID, &ev.Name, &ev.Description,
		&ev.DayOfWeek, &ev.StartTime, &ev.EndTime, &ev.EventTypeIDs, &ev.Meta,
		&ev.IsActive, &ev.Created, &ev.Updated,
	)
	return ev, err
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*event.Event, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	ev, err := scanEvent(tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, event.ErrNotFound
		}
		return nil, err
	}
	return &ev, nil
}

func (r *EventRepository) ListByOrg(ctx context.Context, orgID int64) ([]event.Event, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT `+eventColumns+` FROM events WHERE org_id = $1 ORDER BY id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func typeIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func (r *EventRepository) Create(ctx context.Context, ev *event.Event) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRow(ctx, `
INSERT INTO events (
	location_id, org_id, name, description, day_of_week, start_time, end_time,
	event_type_ids, meta, is_active
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id
`,
		ev.LocationID, ev.OrgID, ev.Name, ev.Description, ev.DayOfWeek, ev.StartTime, ev.EndTime,
		typeIDs(ev.EventTypeIDs), ev.Meta, ev.IsActive,
	).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *EventRepository) Update(ctx context.Context, ev *event.Event) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
UPDATE events SET
	location_id = $2, org_id = $3, name = $4, description = $5, day_of_week = $6,
	start_time = $7, end_time = $8, event_type_ids = $9, meta = $10, is_active = $11, updated = now()
WHERE id = $1
`,
		ev.ID, ev.LocationID, ev.OrgID, ev.Name, ev.Description, ev.DayOfWeek,
		ev.StartTime, ev.EndTime, typeIDs(ev.EventTypeIDs), ev.Meta, ev.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return event.ErrNotFound
	}
	return nil
}

func (r *EventRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE events SET is_active = $2, updated = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return event.ErrNotFound
	}
	return nil
}
