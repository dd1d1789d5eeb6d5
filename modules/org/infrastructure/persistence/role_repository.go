package persistence

import (
	"context"

	"github.com/f3nation/f3map/modules/org/domain/role"
	"github.com/f3nation/f3map/pkg/composables"
)

type RoleRepository struct{}

func NewRoleRepository() *RoleRepository {
	return &RoleRepository{}
}

func (r *RoleRepository) ListByUser(ctx context.Context, userID int64) ([]role.Grant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
SELECT user_id, org_id, role_level
FROM roles_x_users_x_org
WHERE user_id = $1
ORDER BY org_id
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []role.Grant
	for rows.Next() {
		var (
			g     role.Grant
			level string
		)
		if err := rows.Scan(&g.UserID, &g.OrgID, &level); err != nil {
			return nil, err
		}
		if g.Level, err = role.ParseLevel(level); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Upsert keeps a single grant per (user, org); a later grant replaces the level.
func (r *RoleRepository) Upsert(ctx context.Context, grant role.Grant) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
INSERT INTO roles_x_users_x_org (user_id, org_id, role_level)
VALUES ($1, $2, $3)
ON CONFLICT ON CONSTRAINT roles_x_users_x_org_pkey DO UPDATE SET role_level = EXCLUDED.role_level
`, grant.UserID, grant.OrgID, grant.Level.String())
	return err
}

func (r *RoleRepository) Delete(ctx context.Context, userID, orgID int64) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM roles_x_users_x_org WHERE user_id = $1 AND org_id = $2`, userID, orgID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
