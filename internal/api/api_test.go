package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/racksmith/internal/api"
	"github.com/JaimeStill/racksmith/internal/config"
	"github.com/JaimeStill/racksmith/internal/infrastructure"
	"github.com/JaimeStill/racksmith/pkg/database"
	"github.com/JaimeStill/racksmith/pkg/module"
	"github.com/JaimeStill/racksmith/pkg/openapi"
	"github.com/JaimeStill/racksmith/pkg/pagination"
	"github.com/JaimeStill/racksmith/pkg/storage"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "127.0.0.1",
			Port:            1,
			Name:            "racksmith",
			User:            "racksmith",
			SSLMode:         "disable",
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "200ms",
		},
		Storage: storage.Config{Provider: storage.ProviderLocal, Root: t.TempDir()},
		API: config.APIConfig{
			BasePath:   "/api",
			Pagination: pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
			OpenAPI:    openapi.Config{Title: "Racksmith API", Description: "rack analysis"},
		},
		Analysis: config.AnalysisConfig{MaxChainDepth: 32, LockTTL: "1m"},
		Scheduler: config.SchedulerConfig{
			Workers:          2,
			QueueCapacity:    10,
			MaxBatchSize:     10,
			ActiveLimit:      3,
			AdminActiveLimit: 10,
		},
		Version: "0.1.0",
	}
}

// newModule builds the API module and shuts its lifecycle down when the
// test ends. The database is unreachable, so only routes that fail before
// touching it are exercised.
func newModule(t *testing.T) (*module.Module, *api.Runtime) {
	t.Helper()
	cfg := testConfig(t)

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New: %v", err)
	}

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}
	t.Cleanup(func() {
		if err := infra.Lifecycle.Shutdown(5 * time.Second); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})

	return m, api.NewRuntime(cfg, infra)
}

func TestNewModule(t *testing.T) {
	m, runtime := newModule(t)

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
	if runtime.Pagination.DefaultPageSize != 20 || runtime.Scheduler.Workers != 2 {
		t.Errorf("runtime config: got %+v %+v", runtime.Pagination, runtime.Scheduler)
	}
	if runtime.Logger == nil || runtime.Database == nil || runtime.Storage == nil || runtime.Policies == nil {
		t.Error("runtime should carry the infrastructure systems")
	}
}

func TestOpenAPIDocument(t *testing.T) {
	m, _ := newModule(t)

	rec := httptest.NewRecorder()
	m.Serve(rec, httptest.NewRequest("GET", "/api/openapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	var doc struct {
		Info    openapi.Info              `json:"info"`
		Servers []openapi.Server          `json:"servers"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if doc.Info.Title != "Racksmith API" || doc.Info.Version != "0.1.0" {
		t.Errorf("info: got %+v", doc.Info)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "/api" {
		t.Errorf("servers: got %+v", doc.Servers)
	}

	want := map[string][]string{
		"/racks":                                {"get"},
		"/racks/{id}/document":                  {"get"},
		"/analysis/racks/{id}":                  {"get"},
		"/analysis/racks/{id}/analyze":          {"post"},
		"/analysis/racks/{id}/reanalyze":        {"post"},
		"/analysis/racks/{id}/chains/{chainId}": {"get"},
		"/batches":                              {"get", "post"},
		"/batches/{id}":                         {"get", "delete"},
		"/batches/{id}/results":                 {"get"},
	}
	for path, methods := range want {
		item, ok := doc.Paths[path]
		if !ok {
			t.Errorf("missing path %s", path)
			continue
		}
		for _, method := range methods {
			if _, ok := item[method]; !ok {
				t.Errorf("%s missing %s", path, strings.ToUpper(method))
			}
		}
	}
}

func TestRequestsWithoutIdentity(t *testing.T) {
	m, _ := newModule(t)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{"POST", "/api/batches", `{"rack_ids":[]}`},
		{"GET", "/api/batches", ""},
		{"POST", "/api/analysis/racks/7f8a2b9e-0c41-4d55-9e1a-3b6c2d7e8f90/analyze", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			m.Serve(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "caller identity") {
				t.Errorf("body: got %s", rec.Body.String())
			}
		})
	}
}
