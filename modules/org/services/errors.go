package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
)

const (
	CodeValidationFailed  = "MAP_VALIDATION_FAILED"
	CodeLegacyRequestType = "MAP_LEGACY_REQUEST_TYPE"
	CodeTargetNotFound    = "MAP_TARGET_NOT_FOUND"
	CodeForbidden         = "MAP_FORBIDDEN"
	CodeAlreadyResolved   = "MAP_ALREADY_RESOLVED"
	CodeCommitFailed      = "MAP_COMMIT_FAILED"
	CodeOrgHasChildren    = "MAP_ORG_HAS_CHILDREN"
	CodeConflict          = "MAP_CONFLICT"
	CodeInternal          = "MAP_INTERNAL"
)

type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

// ValidationError names the offending payload field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func newValidationError(field, reason string) *ServiceError {
	return newServiceError(http.StatusUnprocessableEntity, CodeValidationFailed, (&ValidationError{Field: field, Reason: reason}).Error(), &ValidationError{Field: field, Reason: reason})
}

func newLegacyRequestTypeError() *ServiceError {
	names := make([]string, 0, len(updaterequest.CurrentKinds))
	for _, k := range updaterequest.CurrentKinds {
		names = append(names, string(k))
	}
	return newServiceError(http.StatusBadRequest, CodeLegacyRequestType,
		"request type \"edit\" is no longer supported; resubmit as one of: "+strings.Join(names, ", "), nil)
}

func newTargetNotFound(entity string, id int64, cause error) *ServiceError {
	return newServiceError(http.StatusNotFound, CodeTargetNotFound, fmt.Sprintf("%s %d not found", entity, id), cause)
}

func newForbidden(message string) *ServiceError {
	return newServiceError(http.StatusForbidden, CodeForbidden, message, nil)
}

func newAlreadyResolved(status updaterequest.Status) *ServiceError {
	return newServiceError(http.StatusConflict, CodeAlreadyResolved, fmt.Sprintf("request is already %s", status), nil)
}

func newCommitFailed(cause error) *ServiceError {
	return newServiceError(http.StatusServiceUnavailable, CodeCommitFailed, "commit failed, retry later", cause)
}

// AsValidationError extracts the field-level detail of a validation failure.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func hasCode(err error, code string) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Code == code
}

// isDomainError reports errors that a retry cannot fix.
func isDomainError(err error) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
