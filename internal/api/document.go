package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/racks"
	"github.com/JaimeStill/racksmith/pkg/handlers"
	"github.com/JaimeStill/racksmith/pkg/openapi"
	"github.com/JaimeStill/racksmith/pkg/routes"
	"github.com/JaimeStill/racksmith/pkg/storage"
)

// documentHandler streams the stored device-group document of a rack.
type documentHandler struct {
	racks  racks.System
	store  storage.System
	logger *slog.Logger
}

func newDocumentHandler(sys racks.System, store storage.System, logger *slog.Logger) *documentHandler {
	return &documentHandler{
		racks:  sys,
		store:  store,
		logger: logger.With("handler", "documents"),
	}
}

func (h *documentHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/racks",
		Tags:   []string{"Racks"},
		Routes: []routes.Route{
			{
				Method:  "GET",
				Pattern: "/{id}/document",
				Handler: h.download,
				OpenAPI: &openapi.Operation{
					Summary: "Download the stored rack document",
					Responses: map[int]*openapi.Response{
						http.StatusOK:        {Description: "Gzip-compressed device-group document"},
						http.StatusForbidden: openapi.ResponseRef("Forbidden"),
						http.StatusNotFound:  openapi.ResponseRef("NotFound"),
					},
				},
			},
		},
	}
}

func (h *documentHandler) download(w http.ResponseWriter, r *http.Request) {
	p, err := racks.PrincipalFromRequest(r)
	if err != nil {
		handlers.RespondError(w, h.logger, racks.MapHTTPStatus(err), err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, racks.ErrInvalidID)
		return
	}

	rack, err := h.racks.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, racks.MapHTTPStatus(err), err)
		return
	}
	if !p.CanAccess(rack.OwnerID) {
		handlers.RespondError(w, h.logger, http.StatusForbidden, racks.ErrForbidden)
		return
	}

	body, err := h.store.Download(r.Context(), rack.StorageKey)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(rack.StorageKey)),
	)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}
