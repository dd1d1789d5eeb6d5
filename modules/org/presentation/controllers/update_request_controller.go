package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
	"github.com/f3nation/f3map/modules/org/services"
	"github.com/f3nation/f3map/pkg/application"
	"github.com/f3nation/f3map/pkg/composables"
	"github.com/f3nation/f3map/pkg/middleware"
)

const (
	apiPrefix       = "/map/api"
	maxPayloadBytes = 1 << 20
)

type UpdateRequestController struct {
	ledger *services.RequestLedger
	auth   middleware.Authenticator
}

func NewUpdateRequestController(app application.Application, auth middleware.Authenticator) application.Controller {
	return &UpdateRequestController{
		ledger: app.Service(services.RequestLedger{}).(*services.RequestLedger),
		auth:   auth,
	}
}

func (c *UpdateRequestController) Key() string {
	return apiPrefix + "/update-requests"
}

func (c *UpdateRequestController) Register(r *mux.Router) {
	api := r.PathPrefix(apiPrefix).Subrouter()
	api.Use(middleware.Authenticate(c.auth, true))

	api.HandleFunc("/update-requests", c.List).Methods(http.MethodGet)
	api.HandleFunc("/update-requests/{id:[0-9a-fA-F-]{36}}:approve", c.Approve).Methods(http.MethodPost)
	api.HandleFunc("/update-requests/{id:[0-9a-fA-F-]{36}}:reject", c.Reject).Methods(http.MethodPost)
	api.HandleFunc("/update-requests/{id:[0-9a-fA-F-]{36}}", c.Get).Methods(http.MethodGet)
	api.HandleFunc("/update-requests/{requestType:[a-z_]+}", c.Submit).Methods(http.MethodPost)
}

type submitResponse struct {
	ID      string                       `json:"id"`
	Status  updaterequest.Status         `json:"status"`
	Request *updaterequest.UpdateRequest `json:"request"`
}

func (c *UpdateRequestController) Submit(w http.ResponseWriter, r *http.Request) {
	requestID, userID := requestMeta(r)
	kind := updaterequest.Kind(mux.Vars(r)["requestType"])

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		writeAPIError(w, http.StatusRequestEntityTooLarge, requestID, "MAP_PAYLOAD_TOO_LARGE", "request body is too large")
		return
	}

	req, err := c.ledger.Submit(r.Context(), kind, raw, userID)
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	status := http.StatusAccepted
	if req.Status == updaterequest.StatusApproved {
		status = http.StatusCreated
	}
	writeJSON(w, status, submitResponse{ID: req.ID.String(), Status: req.Status, Request: req})
}

func (c *UpdateRequestController) Approve(w http.ResponseWriter, r *http.Request) {
	c.resolve(w, r, c.ledger.Approve)
}

func (c *UpdateRequestController) Reject(w http.ResponseWriter, r *http.Request) {
	c.resolve(w, r, c.ledger.Reject)
}

func (c *UpdateRequestController) resolve(
	w http.ResponseWriter,
	r *http.Request,
	decide func(ctx context.Context, id uuid.UUID, actorID int64) (*updaterequest.UpdateRequest, error),
) {
	requestID, userID := requestMeta(r)
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "MAP_INVALID_QUERY", "invalid id")
		return
	}
	req, err := decide(r.Context(), id, userID)
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{ID: req.ID.String(), Status: req.Status, Request: req})
}

type listResponse struct {
	Total      int                           `json:"total"`
	Items      []updaterequest.UpdateRequest `json:"items"`
	NextCursor *string                       `json:"next_cursor"`
}

func (c *UpdateRequestController) List(w http.ResponseWriter, r *http.Request) {
	requestID, userID := requestMeta(r)
	q := r.URL.Query()

	filter := services.VisibilityFilter{}
	if raw := strings.TrimSpace(q.Get("onlyMine")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, requestID, "MAP_INVALID_QUERY", "onlyMine is invalid")
			return
		}
		filter.OnlyMine = v
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := updaterequest.Status(raw)
		if !status.Valid() {
			writeAPIError(w, http.StatusBadRequest, requestID, "MAP_INVALID_QUERY", "status is invalid")
			return
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(q.Get("requestType")); raw != "" {
		kind := updaterequest.Kind(raw)
		if !kind.Valid() {
			writeAPIError(w, http.StatusBadRequest, requestID, "MAP_INVALID_QUERY", "requestType is invalid")
			return
		}
		filter.Kind = &kind
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeAPIError(w, http.StatusBadRequest, requestID, "MAP_INVALID_QUERY", "limit is invalid")
			return
		}
		filter.Limit = n
	}
	if raw := strings.TrimSpace(q.Get("cursor")); raw != "" {
		cursor, err := parseCursor(raw)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, requestID, "MAP_INVALID_QUERY", "cursor is invalid")
			return
		}
		filter.Cursor = cursor
	}

	page, err := c.ledger.ListVisibleTo(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	resp := listResponse{Total: len(page.Items), Items: page.Items}
	if page.NextCursor != nil {
		v := formatCursor(*page.NextCursor)
		resp.NextCursor = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *UpdateRequestController) Get(w http.ResponseWriter, r *http.Request) {
	requestID, _ := requestMeta(r)
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "MAP_INVALID_QUERY", "invalid id")
		return
	}
	detail, err := c.ledger.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Cursors read "created:<RFC3339Nano>:id:<uuid>".
func formatCursor(c updaterequest.Cursor) string {
	return fmt.Sprintf("created:%s:id:%s", c.Created.UTC().Format(time.RFC3339Nano), c.ID)
}

func parseCursor(raw string) (*updaterequest.Cursor, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "created:")
	if !ok {
		return nil, errors.New("invalid cursor")
	}
	atStr, idStr, ok := strings.Cut(rest, ":id:")
	if !ok || atStr == "" || idStr == "" {
		return nil, errors.New("invalid cursor")
	}
	at, err := time.Parse(time.RFC3339Nano, atStr)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return &updaterequest.Cursor{Created: at.UTC(), ID: id}, nil
}

func requestMeta(r *http.Request) (string, int64) {
	requestID, _ := composables.UseRequestID(r.Context())
	userID, _ := composables.UseUserID(r.Context())
	return requestID, userID
}
