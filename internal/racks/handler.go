package racks

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/pkg/handlers"
	"github.com/JaimeStill/racksmith/pkg/pagination"
	"github.com/JaimeStill/racksmith/pkg/routes"
)

// Handler provides HTTP endpoints for rack references.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "racks"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for rack endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/racks",
		Tags:   []string{"Racks"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
	}
}

// List returns a page of racks. Callers without the admin role only see
// racks they own.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, err := PrincipalFromRequest(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())
	if !p.Admin {
		filters.OwnerID = &p.UserID
	}

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single rack by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	p, err := PrincipalFromRequest(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	rack, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if !p.CanAccess(rack.OwnerID) {
		handlers.RespondError(w, h.logger, http.StatusForbidden, ErrForbidden)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rack)
}
