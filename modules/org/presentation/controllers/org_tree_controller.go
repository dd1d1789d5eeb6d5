package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/f3nation/f3map/modules/org/domain/org"
	"github.com/f3nation/f3map/modules/org/services"
	"github.com/f3nation/f3map/pkg/application"
	"github.com/f3nation/f3map/pkg/middleware"
)

// OrgTreeController serves hierarchy reads for the map and the edit-permission
// check the UI runs before showing edit controls.
type OrgTreeController struct {
	tree     *services.OrgTree
	resolver *services.AuthorityResolver
	auth     middleware.Authenticator
}

func NewOrgTreeController(app application.Application, auth middleware.Authenticator) application.Controller {
	return &OrgTreeController{
		tree:     app.Service(services.OrgTree{}).(*services.OrgTree),
		resolver: app.Service(services.AuthorityResolver{}).(*services.AuthorityResolver),
		auth:     auth,
	}
}

func (c *OrgTreeController) Key() string {
	return apiPrefix + "/orgs"
}

func (c *OrgTreeController) Register(r *mux.Router) {
	public := r.PathPrefix(apiPrefix + "/orgs").Subrouter()
	public.Use(middleware.Authenticate(c.auth, false))
	public.HandleFunc("/{id:[0-9]+}/ancestors", c.Ancestors).Methods(http.MethodGet)
	public.HandleFunc("/{id:[0-9]+}/descendants", c.Descendants).Methods(http.MethodGet)

	private := r.PathPrefix(apiPrefix).Subrouter()
	private.Use(middleware.Authenticate(c.auth, true))
	private.HandleFunc("/orgs:can-edit", c.CanEdit).Methods(http.MethodPost)
}

type nodesResponse struct {
	Nodes []org.Node `json:"nodes"`
}

func (c *OrgTreeController) Ancestors(w http.ResponseWriter, r *http.Request) {
	requestID, _ := requestMeta(r)
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "MAP_INVALID_QUERY", "invalid id")
		return
	}
	nodes, err := c.tree.AncestorsOf(r.Context(), id)
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, nodesResponse{Nodes: nodes})
}

func (c *OrgTreeController) Descendants(w http.ResponseWriter, r *http.Request) {
	requestID, _ := requestMeta(r)
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "MAP_INVALID_QUERY", "invalid id")
		return
	}
	var types []org.Type
	if raw := strings.TrimSpace(r.URL.Query().Get("types")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			typ, err := org.ParseType(part)
			if err != nil {
				writeAPIError(w, http.StatusBadRequest, requestID, "MAP_INVALID_QUERY", "types is invalid")
				return
			}
			types = append(types, typ)
		}
	}
	nodes, err := c.tree.DescendantsOf(r.Context(), id, types)
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	if nodes == nil {
		nodes = []org.Node{}
	}
	writeJSON(w, http.StatusOK, nodesResponse{Nodes: nodes})
}

type canEditRequest struct {
	OrgIDs []int64 `json:"orgIds"`
}

type canEditResponse struct {
	Results map[int64]bool `json:"results"`
}

func (c *OrgTreeController) CanEdit(w http.ResponseWriter, r *http.Request) {
	requestID, userID := requestMeta(r)
	var body canEditRequest
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, maxPayloadBytes), &body); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "MAP_INVALID_BODY", `body must be {"orgIds": [...]}`)
		return
	}
	results, err := c.resolver.CanEditOrgs(r.Context(), userID, body.OrgIDs)
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, canEditResponse{Results: results})
}
