package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/racks"
	"github.com/JaimeStill/racksmith/pkg/handlers"
	"github.com/JaimeStill/racksmith/pkg/pagination"
	"github.com/JaimeStill/racksmith/pkg/routes"
)

// Handler provides HTTP endpoints for analysis operations.
type Handler struct {
	sys        System
	auth       Authorizer
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler. Rack access is checked through auth.
func NewHandler(sys System, auth Authorizer, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		auth:       auth,
		logger:     logger.With("handler", "analysis"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for analysis endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/analysis",
		Tags:   []string{"Analysis"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: Spec.List},
			{Method: "GET", Pattern: "/racks/{id}", Handler: h.Find, OpenAPI: Spec.Find},
			{Method: "POST", Pattern: "/racks/{id}/analyze", Handler: h.Analyze, OpenAPI: Spec.Analyze},
			{Method: "POST", Pattern: "/racks/{id}/reanalyze", Handler: h.Reanalyze, OpenAPI: Spec.Reanalyze},
			{Method: "GET", Pattern: "/racks/{id}/chains", Handler: h.Hierarchy, OpenAPI: Spec.Hierarchy},
			{Method: "GET", Pattern: "/racks/{id}/chains/{chainId}", Handler: h.Chain, OpenAPI: Spec.Chain},
		},
	}
}

// List returns a page of current results. Admin only.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, err := racks.PrincipalFromRequest(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if !p.Admin {
		handlers.RespondError(w, h.logger, http.StatusForbidden, racks.ErrForbidden)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns the current result of a rack.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := h.rack(w, r)
	if !ok {
		return
	}

	s, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, s)
}

// Analyze runs or returns the analysis of a rack. The force flag is read
// from the JSON body or the force query parameter.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	id, ok := h.rack(w, r)
	if !ok {
		return
	}

	var opts Options
	if err := decodeBody(r, &opts); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	if v := r.URL.Query().Get("force"); v != "" {
		force, err := strconv.ParseBool(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: force", ErrInvalidRequest))
			return
		}
		opts.Force = force
	}

	s, err := h.sys.Analyze(r.Context(), id, opts)
	h.respondRun(w, s, err)
}

// Reanalyze always runs the analysis, with optional per-run overrides.
func (h *Handler) Reanalyze(w http.ResponseWriter, r *http.Request) {
	id, ok := h.rack(w, r)
	if !ok {
		return
	}

	var opts ReanalyzeOptions
	if err := decodeBody(r, &opts); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	s, err := h.sys.Reanalyze(r.Context(), id, opts)
	h.respondRun(w, s, err)
}

// Hierarchy returns the chain tree of a rack.
func (h *Handler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	id, ok := h.rack(w, r)
	if !ok {
		return
	}

	include := false
	if v := r.URL.Query().Get("include_devices"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: include_devices", ErrInvalidRequest))
			return
		}
		include = b
	}

	tree, err := h.sys.Hierarchy(r.Context(), id, include)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, tree)
}

// Chain returns one chain of a rack with its devices.
func (h *Handler) Chain(w http.ResponseWriter, r *http.Request) {
	id, ok := h.rack(w, r)
	if !ok {
		return
	}

	c, err := h.sys.Chain(r.Context(), id, r.PathValue("chainId"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}

// rack resolves the caller and the rack path parameter, and checks access.
// It writes the error response and returns false on failure.
func (h *Handler) rack(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	p, err := racks.PrincipalFromRequest(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return uuid.Nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, racks.ErrInvalidID)
		return uuid.Nil, false
	}

	if err := h.auth.Authorize(r.Context(), p, []uuid.UUID{id}); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) respondRun(w http.ResponseWriter, s *Summary, err error) {
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if s.Status == StatusFailed {
		handlers.RespondJSON(w, http.StatusUnprocessableEntity, s)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, s)
}

// decodeBody reads an optional JSON body into v.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
