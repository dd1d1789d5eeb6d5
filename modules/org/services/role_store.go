package services

import (
	"context"
	"net/http"

	"github.com/f3nation/f3map/modules/org/domain/role"
)

// RoleStore answers exact-match grant questions. It never walks the tree.
type RoleStore struct {
	repo role.Repository
}

func NewRoleStore(repo role.Repository) *RoleStore {
	return &RoleStore{repo: repo}
}

func (s *RoleStore) GrantsFor(ctx context.Context, userID int64) ([]role.Grant, error) {
	if userID <= 0 {
		return nil, nil
	}
	return s.repo.ListByUser(ctx, userID)
}

// HasGrant reports whether userID holds at least minLevel on exactly orgID.
func (s *RoleStore) HasGrant(ctx context.Context, userID, orgID int64, minLevel role.Level) (bool, error) {
	grants, err := s.GrantsFor(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, g := range grants {
		if g.OrgID == orgID && g.Level >= minLevel {
			return true, nil
		}
	}
	return false, nil
}

// Grant creates or replaces the grant for (user, org).
func (s *RoleStore) Grant(ctx context.Context, grant role.Grant) error {
	if grant.UserID <= 0 {
		return newValidationError("userId", "must be a positive integer")
	}
	if grant.OrgID <= 0 {
		return newValidationError("orgId", "must be a positive integer")
	}
	if !grant.Level.Grantable() {
		return newValidationError("roleLevel", "must be editor or admin")
	}
	if err := s.repo.Upsert(ctx, grant); err != nil {
		return mapPgErrorToServiceError(err)
	}
	return nil
}

// Revoke removes the grant for (user, org).
func (s *RoleStore) Revoke(ctx context.Context, userID, orgID int64) error {
	removed, err := s.repo.Delete(ctx, userID, orgID)
	if err != nil {
		return err
	}
	if !removed {
		return newServiceError(http.StatusNotFound, CodeTargetNotFound, "grant not found", nil)
	}
	return nil
}
