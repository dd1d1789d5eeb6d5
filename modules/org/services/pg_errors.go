package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// mapPgErrorToServiceError turns constraint violations into client errors.
// Anything else is returned unchanged so the commit path can retry it.
func mapPgErrorToServiceError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return newServiceError(http.StatusNotFound, CodeTargetNotFound, "not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		recordWriteConflict("unique")
		switch pgErr.ConstraintName {
		case "roles_x_users_x_org_pkey":
			return newServiceError(http.StatusConflict, CodeConflict, "grant already exists", err)
		default:
			return newServiceError(http.StatusConflict, CodeConflict, "unique constraint violated", err)
		}
	case "23503": // foreign_key_violation
		recordWriteConflict("foreign_key")
		switch pgErr.ConstraintName {
		case "orgs_parent_id_fkey":
			return newServiceError(http.StatusUnprocessableEntity, CodeTargetNotFound, "parent org not found", err)
		case "locations_org_id_fkey", "events_org_id_fkey":
			return newServiceError(http.StatusUnprocessableEntity, CodeTargetNotFound, "owning org not found", err)
		case "events_location_id_fkey":
			return newServiceError(http.StatusUnprocessableEntity, CodeTargetNotFound, "location not found", err)
		case "roles_x_users_x_org_user_id_fkey":
			return newServiceError(http.StatusUnprocessableEntity, CodeTargetNotFound, "user not found", err)
		case "roles_x_users_x_org_org_id_fkey":
			return newServiceError(http.StatusUnprocessableEntity, CodeTargetNotFound, "org not found", err)
		default:
			return newServiceError(http.StatusUnprocessableEntity, CodeTargetNotFound, "foreign key violation", err)
		}
	case "23514": // check_violation
		recordWriteConflict("check")
		return newServiceError(http.StatusUnprocessableEntity, CodeValidationFailed, fmt.Sprintf("check constraint %s violated", pgErr.ConstraintName), err)
	case "23000": // integrity_constraint_violation
		recordWriteConflict("integrity")
		return newServiceError(http.StatusConflict, CodeConflict, "integrity constraint violated", err)
	default:
		return err
	}
}
