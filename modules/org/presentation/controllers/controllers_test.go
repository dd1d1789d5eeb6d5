package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/f3nation/f3map/modules/org/domain/location"
	"github.com/f3nation/f3map/modules/org/domain/org"
	"github.com/f3nation/f3map/modules/org/domain/role"
	"github.com/f3nation/f3map/modules/org/infrastructure/memstore"
	"github.com/f3nation/f3map/modules/org/services"
	"github.com/f3nation/f3map/pkg/application"
	"github.com/f3nation/f3map/pkg/authz"
	"github.com/f3nation/f3map/pkg/httpapi"
	"github.com/f3nation/f3map/pkg/middleware"
)

const (
	editorID int64 = 10
	nobodyID int64 = 11
)

type apiFixture struct {
	router           *mux.Router
	region, ao, loc  int64
	otherRegion, nat int64
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	f := &apiFixture{}

	mk := func(typ org.Type, parent int64, name string) int64 {
		node := &org.Node{Type: typ, Name: name, IsActive: true}
		if parent > 0 {
			node.ParentID = &parent
		}
		id, err := store.Orgs().Create(ctx, node)
		require.NoError(t, err)
		return id
	}
	f.nat = mk(org.TypeNation, 0, "Nation")
	f.region = mk(org.TypeRegion, f.nat, "Region")
	f.otherRegion = mk(org.TypeRegion, f.nat, "Other")
	f.ao = mk(org.TypeAO, f.region, "AO")
	var err error
	f.loc, err = store.Locations().Create(ctx, &location.Location{OrgID: f.ao, Lat: 1, Lng: 1, IsActive: true})
	require.NoError(t, err)
	require.NoError(t, store.Roles().Upsert(ctx, role.Grant{UserID: editorID, OrgID: f.region, Level: role.LevelEditor}))

	policy, err := authz.NewService(authz.Config{})
	require.NoError(t, err)

	app := application.New(&application.ApplicationOptions{})
	tree := services.NewOrgTree(store.Orgs(), services.NewMemoryAncestorCache())
	roles := services.NewRoleStore(store.Roles())
	resolver := services.NewAuthorityResolver(tree, roles, policy)
	ledger := services.NewRequestLedger(services.LedgerDeps{
		Tx:        store,
		Requests:  store.UpdateRequests(),
		Tree:      tree,
		Roles:     roles,
		Resolver:  resolver,
		Validator: services.NewRequestValidator(),
		Policy:    services.NewAutoApprovalPolicy(services.AutoApproveAuthorized),
		Engine:    services.NewCommitEngine(tree, store.Orgs(), store.Locations(), store.Events()),
		Publisher: app.EventPublisher(),
	}, services.LedgerOptions{DirectCommit: true, RetryDelay: time.Millisecond})
	app.RegisterServices(tree, roles, resolver, ledger)

	auth := middleware.HeaderAuthenticator{Header: "X-User-ID"}
	app.RegisterControllers(NewUpdateRequestController(app, auth), NewOrgTreeController(app, auth))

	f.router = mux.NewRouter()
	for _, c := range app.Controllers() {
		c.Register(f.router)
	}
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, userID int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if userID > 0 {
		req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) eventPayload(start string) string {
	return fmt.Sprintf(`{
		"originalRegionId": %d,
		"originalAoId": %d,
		"originalLocationId": %d,
		"eventName": "Ruck",
		"eventDayOfWeek": "saturday",
		"eventStartTime": %q,
		"eventEndTime": "0700",
		"eventTypeIds": [3]
	}`, f.region, f.ao, f.loc, start)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSubmit_StatusCodes(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name     string
		user     int64
		kind     string
		body     string
		wantCode int
		wantErr  string
		field    string
	}{
		{name: "editor commits", user: editorID, kind: "create_event", body: f.eventPayload("0600"), wantCode: http.StatusCreated},
		{name: "outsider is queued", user: nobodyID, kind: "create_event", body: f.eventPayload("0600"), wantCode: http.StatusAccepted},
		{name: "bad time", user: editorID, kind: "create_event", body: f.eventPayload("6am"), wantCode: http.StatusUnprocessableEntity, wantErr: services.CodeValidationFailed, field: "eventStartTime"},
		{name: "legacy edit", user: editorID, kind: "edit", body: `{}`, wantCode: http.StatusBadRequest, wantErr: services.CodeLegacyRequestType},
		{name: "anonymous", user: 0, kind: "create_event", body: f.eventPayload("0600"), wantCode: http.StatusUnauthorized, wantErr: "UNAUTHENTICATED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/map/api/update-requests/"+tt.kind, tt.user, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr == "" {
				return
			}
			env := decode[httpapi.ErrorEnvelope](t, rec)
			require.Equal(t, tt.wantErr, env.Code)
			if tt.field != "" {
				require.Equal(t, tt.field, env.Meta["field"])
			}
		})
	}
}

func TestApproveAndReject(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/map/api/update-requests/create_event", nobodyID, f.eventPayload("0600"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	queued := decode[submitResponse](t, rec)
	require.Equal(t, "pending", string(queued.Status))

	rec = f.do(t, http.MethodPost, "/map/api/update-requests/"+queued.ID+":approve", nobodyID, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/map/api/update-requests/"+queued.ID+":approve", editorID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "approved", string(decode[submitResponse](t, rec).Status))

	rec = f.do(t, http.MethodPost, "/map/api/update-requests/"+queued.ID+":reject", editorID, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, services.CodeAlreadyResolved, decode[httpapi.ErrorEnvelope](t, rec).Code)

	rec = f.do(t, http.MethodGet, "/map/api/update-requests/"+queued.ID, editorID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/map/api/update-requests/00000000-0000-0000-0000-000000000000", editorID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestList_CursorRoundTrip(t *testing.T) {
	f := newAPIFixture(t)
	for _, start := range []string{"0500", "0515", "0530"} {
		rec := f.do(t, http.MethodPost, "/map/api/update-requests/create_event", nobodyID, f.eventPayload(start))
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/map/api/update-requests?limit=2&status=pending", editorID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[listResponse](t, rec)
	require.Len(t, first.Items, 2)
	require.NotNil(t, first.NextCursor)

	rec = f.do(t, http.MethodGet, "/map/api/update-requests?limit=2&cursor="+*first.NextCursor, editorID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[listResponse](t, rec)
	require.Len(t, second.Items, 1)
	require.Nil(t, second.NextCursor)
	require.NotEqual(t, first.Items[0].ID, second.Items[0].ID)
	require.NotEqual(t, first.Items[1].ID, second.Items[0].ID)

	rec = f.do(t, http.MethodGet, "/map/api/update-requests?cursor=garbage", editorID, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodGet, "/map/api/update-requests?status=done", editorID, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrgTreeRoutes(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/map/api/orgs/%d/ancestors", f.ao), 0, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	chain := decode[nodesResponse](t, rec)
	require.Len(t, chain.Nodes, 3)
	require.Equal(t, f.ao, chain.Nodes[0].ID)
	require.Equal(t, f.nat, chain.Nodes[2].ID)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/map/api/orgs/%d/descendants?types=ao", f.nat), 0, "")
	require.Equal(t, http.StatusOK, rec.Code)
	below := decode[nodesResponse](t, rec)
	require.Len(t, below.Nodes, 1)
	require.Equal(t, f.ao, below.Nodes[0].ID)

	rec = f.do(t, http.MethodGet, "/map/api/orgs/999/ancestors", 0, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/map/api/orgs:can-edit", editorID,
		fmt.Sprintf(`{"orgIds":[%d,%d,999]}`, f.ao, f.otherRegion))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got struct {
		Results map[string]bool `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, map[string]bool{
		strconv.FormatInt(f.ao, 10):          true,
		strconv.FormatInt(f.otherRegion, 10): false,
		"999":                                false,
	}, got.Results)

	rec = f.do(t, http.MethodPost, "/map/api/orgs:can-edit", 0, `{"orgIds":[1]}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCursorFormat(t *testing.T) {
	at := time.Date(2026, 3, 1, 5, 30, 0, 123456789, time.UTC)
	raw := fmt.Sprintf("created:%s:id:%s", at.Format(time.RFC3339Nano), "6f1c1d0e-8a4b-4f59-9f0c-5b1f2f3c4d5e")
	c, err := parseCursor(raw)
	require.NoError(t, err)
	require.True(t, at.Equal(c.Created))
	require.Equal(t, raw, formatCursor(*c))

	_, err = parseCursor("updated:" + at.Format(time.RFC3339))
	require.Error(t, err)
}
