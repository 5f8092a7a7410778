package batches

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/racks"
	"github.com/JaimeStill/racksmith/pkg/handlers"
	"github.com/JaimeStill/racksmith/pkg/pagination"
	"github.com/JaimeStill/racksmith/pkg/routes"
)

// Handler provides HTTP endpoints for batch operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "batches"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for batch endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/batches",
		Tags:   []string{"Batches"},
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Submit, OpenAPI: Spec.Submit},
			{Method: "GET", Pattern: "", Handler: h.History, OpenAPI: Spec.History},
			{Method: "GET", Pattern: "/{id}", Handler: h.Status, OpenAPI: Spec.Status},
			{Method: "GET", Pattern: "/{id}/results", Handler: h.Results, OpenAPI: Spec.Results},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Cancel, OpenAPI: Spec.Cancel},
		},
	}
}

// Submit admits a batch and responds 202 with its initial view.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	p, err := racks.PrincipalFromRequest(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	var cmd SubmitCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrAdmission, err))
		return
	}

	v, err := h.sys.Submit(r.Context(), p, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, v)
}

// History returns a page of batches. Callers without the admin role only
// see their own.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	p, err := racks.PrincipalFromRequest(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.History(r.Context(), p, page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.resolve(w, r)
	if !ok {
		return
	}

	v, err := h.sys.Status(r.Context(), p, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.resolve(w, r)
	if !ok {
		return
	}

	include := false
	if v := r.URL.Query().Get("include_details"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid include_details: %q", v))
			return
		}
		include = b
	}

	res, err := h.sys.Results(r.Context(), p, id, include)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.resolve(w, r)
	if !ok {
		return
	}

	v, err := h.sys.Cancel(r.Context(), p, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (racks.Principal, uuid.UUID, bool) {
	p, err := racks.PrincipalFromRequest(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return p, uuid.Nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid batch id: %q", r.PathValue("id")))
		return p, uuid.Nil, false
	}

	return p, id, true
}
