package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/f3nation/f3map/modules/org/services"
	"github.com/f3nation/f3map/pkg/httpapi"
)

func decodeJSON(body io.ReadCloser, out any) error {
	defer func() { _ = body.Close() }()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// writeServiceError renders a ServiceError with its own status and code.
// Validation failures carry the offending field in meta.
func writeServiceError(w http.ResponseWriter, requestID string, err error) {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		writeAPIError(w, http.StatusInternalServerError, requestID, services.CodeInternal, "internal error")
		return
	}
	meta := httpapi.RequestMeta(requestID)
	if ve, ok := services.AsValidationError(err); ok {
		meta = httpapi.RequestMeta(requestID, "field", ve.Field, "reason", ve.Reason)
	}
	_ = httpapi.WriteError(w, svcErr.Status, svcErr.Code, svcErr.Message, meta)
}

func writeAPIError(w http.ResponseWriter, status int, requestID, code, message string) {
	_ = httpapi.WriteError(w, status, code, message, httpapi.RequestMeta(requestID))
}

func writeJSON[T any](w http.ResponseWriter, status int, payload T) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
