package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/f3nation/f3map/modules/org/domain/location"
	"github.com/f3nation/f3map/pkg/composables"
)

const locationColumns = `id, org_id, name, description, lat, lng, address_street, address_street2,
	address_city, address_state, address_zip, address_country, is_active, created, updated`

type LocationRepository struct{}

func NewLocationRepository() *LocationRepository {
	return &LocationRepository{}
}

func scanLocation(row pgx.Row) (location.Location, error) {
	var l location.Location
	err := row.Scan(
		&l.ID, &l.OrgID, &l.Name, &l.Description, &l.Lat, &l.Lng,
		&l.AddressStreet, &l.AddressStreet2, &l.AddressCity, &l.AddressState, &l.AddressZip, &l.AddressCountry,
		&l.IsActive, &l.Created, &l.Updated,
	)
	return l, err
}

func (r *LocationRepository) GetByID(ctx context.Context, id int64) (*location.Location, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	l, err := scanLocation(tx.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, location.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *LocationRepository) ListByOrg(ctx context.Context, orgID int64) ([]location.Location, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT `+locationColumns+` FROM locations WHERE org_id = $1 ORDER BY id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []location.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LocationRepository) Create(ctx context.Context, l *location.Location) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRow(ctx, `
INSERT INTO locations (
	org_id, name, description, lat, lng,
	address_street, address_street2, address_city, address_state, address_zip, address_country,
	is_active
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING id
`,
		l.OrgID, l.Name, l.Description, l.Lat, l.Lng,
		l.AddressStreet, l.AddressStreet2, l.AddressCity, l.AddressState, l.AddressZip, l.AddressCountry,
		l.IsActive,
	).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *LocationRepository) Update(ctx context.Context, l *location.Location) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
UPDATE locations SET
	org_id = $2, name = $3, description = $4, lat = $5, lng = $6,
	address_street = $7, address_street2 = $8, address_city = $9, address_state = $10,
	address_zip = $11, address_country = $12, is_active = $13, updated = now()
WHERE id = $1
`,
		l.ID, l.OrgID, l.Name, l.Description, l.Lat, l.Lng,
		l.AddressStreet, l.AddressStreet2, l.AddressCity, l.AddressState, l.AddressZip, l.AddressCountry,
		l.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return location.ErrNotFound
	}
	return nil
}

func (r *LocationRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE locations SET is_active = $2, updated = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return location.ErrNotFound
	}
	return nil
}
