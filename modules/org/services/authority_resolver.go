package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/f3nation/f3map/modules/org/domain/org"
	"github.com/f3nation/f3map/modules/org/domain/role"
	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
	"github.com/f3nation/f3map/pkg/authz"
)

// RolePolicy decides the least privileged role allowed to commit a kind.
type RolePolicy interface {
	MinimumRole(ctx context.Context, object, action string, roles []string) (string, bool, error)
}

// AuthorityResolver derives an actor's effective level on an org node from
// grants on the node and its ancestors.
type AuthorityResolver struct {
	tree   *OrgTree
	roles  *RoleStore
	policy RolePolicy
}

func NewAuthorityResolver(tree *OrgTree, roles *RoleStore, policy RolePolicy) *AuthorityResolver {
	return &AuthorityResolver{tree: tree, roles: roles, policy: policy}
}

// Resolve returns the highest level userID holds on targetOrgID or any of its
// ancestors. A missing (or, without IncludeInactive, inactive) target fails
// with MAP_TARGET_NOT_FOUND.
func (r *AuthorityResolver) Resolve(ctx context.Context, userID, targetOrgID int64, opts ...TreeOption) (role.Level, error) {
	chain, err := r.tree.AncestorsOf(ctx, targetOrgID, opts...)
	if err != nil {
		return role.LevelNone, err
	}
	grants, err := r.roles.GrantsFor(ctx, userID)
	if err != nil {
		return role.LevelNone, err
	}
	return maxLevelOnChain(chain, grants), nil
}

// ResolveAll returns the lowest of the levels resolved for each org. An
// operation spanning several orgs needs authority on all of them.
func (r *AuthorityResolver) ResolveAll(ctx context.Context, userID int64, orgIDs []int64, opts ...TreeOption) (role.Level, error) {
	if len(orgIDs) == 0 {
		return role.LevelNone, nil
	}
	grants, err := r.roles.GrantsFor(ctx, userID)
	if err != nil {
		return role.LevelNone, err
	}
	lowest := role.LevelAdmin
	for _, id := range orgIDs {
		chain, err := r.tree.AncestorsOf(ctx, id, opts...)
		if err != nil {
			return role.LevelNone, err
		}
		if lvl := maxLevelOnChain(chain, grants); lvl < lowest {
			lowest = lvl
		}
	}
	return lowest, nil
}

// RequiredLevel is the least level that may commit kind without review.
func (r *AuthorityResolver) RequiredLevel(ctx context.Context, kind updaterequest.Kind) (role.Level, error) {
	names := make([]string, 0, len(role.Levels))
	for _, lvl := range role.Levels {
		names = append(names, lvl.String())
	}
	name, ok, err := r.policy.MinimumRole(ctx, string(kind), authz.ActionCommit, names)
	if err != nil {
		return role.LevelNone, err
	}
	if !ok {
		return role.LevelNone, newServiceError(http.StatusForbidden, CodeForbidden, fmt.Sprintf("no role may commit %s", kind), nil)
	}
	return role.ParseLevel(name)
}

// CanCommitDirectly reports whether userID may apply kind on targetOrgID
// without review.
func (r *AuthorityResolver) CanCommitDirectly(ctx context.Context, userID, targetOrgID int64, kind updaterequest.Kind) (bool, error) {
	required, err := r.RequiredLevel(ctx, kind)
	if err != nil {
		return false, err
	}
	lvl, err := r.Resolve(ctx, userID, targetOrgID)
	if err != nil {
		return false, err
	}
	return lvl >= required, nil
}

// CanEditOrgs reports, per org, whether userID holds at least editor on it.
// Missing or inactive orgs report false.
func (r *AuthorityResolver) CanEditOrgs(ctx context.Context, userID int64, orgIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(orgIDs))
	if len(orgIDs) == 0 {
		return out, nil
	}
	grants, err := r.roles.GrantsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range orgIDs {
		chain, err := r.tree.AncestorsOf(ctx, id)
		if err != nil {
			if hasCode(err, CodeTargetNotFound) {
				out[id] = false
				continue
			}
			return nil, err
		}
		out[id] = maxLevelOnChain(chain, grants) >= role.LevelEditor
	}
	return out, nil
}

func maxLevelOnChain(chain []org.Node, grants []role.Grant) role.Level {
	best := role.LevelNone
	if len(grants) == 0 {
		return best
	}
	onChain := make(map[int64]struct{}, len(chain))
	for _, n := range chain {
		onChain[n.ID] = struct{}{}
	}
	for _, g := range grants {
		if _, ok := onChain[g.OrgID]; ok && g.Level > best {
			best = g.Level
		}
	}
	return best
}
