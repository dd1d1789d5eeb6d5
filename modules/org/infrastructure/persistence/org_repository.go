package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/f3nation/f3map/modules/org/domain/org"
	"github.com/f3nation/f3map/pkg/composables"
)

// maxTreeDepth bounds the recursive walks so a corrupted parent link cannot
// loop forever.
const maxTreeDepth = 32

const orgColumns = `id, parent_id, org_type, name, description, website, logo, is_active, created, updated`

type OrgRepository struct{}

func NewOrgRepository() *OrgRepository {
	return &OrgRepository{}
}

func scanOrg(row pgx.Row) (org.Node, error) {
	var (
		n   org.Node
		typ string
	)
	err := row.Scan(&n.ID, &n.ParentID, &typ, &n.Name, &n.Description, &n.Website, &n.Logo, &n.IsActive, &n.Created, &n.Updated)
	n.Type = org.Type(typ)
	return n, err
}

func collectOrgs(rows pgx.Rows) ([]org.Node, error) {
	defer rows.Close()
	var out []org.Node
	for rows.Next() {
		n, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *OrgRepository) GetByID(ctx context.Context, id int64) (*org.Node, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	n, err := scanOrg(tx.QueryRow(ctx, `SELECT `+orgColumns+` FROM orgs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, org.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// ListAncestors returns the node first and the root last.
func (r *OrgRepository) ListAncestors(ctx context.Context, id int64) ([]org.Node, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
WITH RECURSIVE chain AS (
	SELECT o.*, 0 AS depth FROM orgs o WHERE o.id = $1
	UNION ALL
	SELECT p.*, c.depth + 1 FROM orgs p JOIN chain c ON p.id = c.parent_id
	WHERE c.depth < $2
)
SELECT `+orgColumns+` FROM chain ORDER BY depth ASC
`, id, maxTreeDepth)
	if err != nil {
		return nil, err
	}
	chain, err := collectOrgs(rows)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, org.ErrNotFound
	}
	return chain, nil
}

// ListDescendants returns every node below id, parents before children.
func (r *OrgRepository) ListDescendants(ctx context.Context, id int64) ([]org.Node, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orgs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, org.ErrNotFound
	}
	rows, err := tx.Query(ctx, `
WITH RECURSIVE sub AS (
	SELECT o.*, 1 AS depth FROM orgs o WHERE o.parent_id = $1
	UNION ALL
	SELECT c.*, s.depth + 1 FROM orgs c JOIN sub s ON c.parent_id = s.id
	WHERE s.depth < $2
)
SELECT `+orgColumns+` FROM sub ORDER BY depth ASC, id ASC
`, id, maxTreeDepth)
	if err != nil {
		return nil, err
	}
	return collectOrgs(rows)
}

func (r *OrgRepository) ListChildren(ctx context.Context, parentID int64) ([]org.Node, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT `+orgColumns+` FROM orgs WHERE parent_id = $1 ORDER BY id`, parentID)
	if err != nil {
		return nil, err
	}
	return collectOrgs(rows)
}

func (r *OrgRepository) Create(ctx context.Context, node *org.Node) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRow(ctx, `
INSERT INTO orgs (parent_id, org_type, name, description, website, logo, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`, node.ParentID, string(node.Type), node.Name, node.Description, node.Website, node.Logo, node.IsActive).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *OrgRepository) Update(ctx context.Context, node *org.Node) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
UPDATE orgs
SET parent_id = $2, org_type = $3, name = $4, description = $5, website = $6, logo = $7, is_active = $8, updated = now()
WHERE id = $1
`, node.ID, node.ParentID, string(node.Type), node.Name, node.Description, node.Website, node.Logo, node.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return org.ErrNotFound
	}
	return nil
}

func (r *OrgRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE orgs SET is_active = $2, updated = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return org.ErrNotFound
	}
	return nil
}

// TreeVersion reads the counter that the orgs_tree_version_bump trigger
// advances on every write to orgs.
func (r *OrgRepository) TreeVersion(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var version int64
	if err := tx.QueryRow(ctx, `SELECT version FROM org_tree_version`).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}
