package api

import (
	"net/http"

	"github.com/JaimeStill/racksmith/internal/analysis"
	"github.com/JaimeStill/racksmith/internal/batches"
	"github.com/JaimeStill/racksmith/internal/config"
	"github.com/JaimeStill/racksmith/pkg/openapi"
	"github.com/JaimeStill/racksmith/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) error {
	groups := []routes.Group{
		domain.Racks.Handler().Routes(),
		newDocumentHandler(domain.Racks, runtime.Storage, runtime.Logger).routes(),
		domain.Analysis.Handler(domain.Racks).Routes(),
		domain.Batches.Handler().Routes(),
	}

	routes.Register(mux, groups...)

	spec, err := buildSpec(cfg, groups)
	if err != nil {
		return err
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))

	return nil
}

func buildSpec(cfg *config.Config, groups []routes.Group) ([]byte, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(analysis.Spec.Schemas)
	spec.Components.AddSchemas(batches.Spec.Schemas)

	routes.Document(spec, "", groups...)
	return openapi.MarshalJSON(spec)
}
