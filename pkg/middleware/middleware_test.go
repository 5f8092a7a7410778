package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/JaimeStill/racksmith/pkg/metrics"
	"github.com/JaimeStill/racksmith/pkg/middleware"
)

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

func TestApplyOrder(t *testing.T) {
	var order []string
	mw := middleware.New()

	for _, name := range []string{"cors", "logger"} {
		mw.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		})
	}

	handler := mw.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if strings.Join(order, ",") != "cors,logger,handler" {
		t.Errorf("order: got %v", order)
	}
}

func TestCORS(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{"http://studio.local"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           3600,
	}

	tests := []struct {
		name        string
		cfg         *middleware.CORSConfig
		method      string
		origin      string
		preflight   bool
		wantOrigin  string
		wantHandled bool
	}{
		{"disabled", &middleware.CORSConfig{}, "GET", "http://studio.local", false, "", true},
		{"allowed origin", cfg, "GET", "http://studio.local", false, "http://studio.local", true},
		{"denied origin", cfg, "GET", "http://elsewhere.local", false, "", true},
		{"preflight", cfg, "OPTIONS", "http://studio.local", true, "http://studio.local", false},
		{"options without preflight", cfg, "OPTIONS", "http://studio.local", false, "http://studio.local", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var handled bool
			handler := middleware.CORS(tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handled = true
			}))

			req := httptest.NewRequest(tt.method, "/api/racks", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow-origin: got %q, want %q", got, tt.wantOrigin)
			}
			if handled != tt.wantHandled {
				t.Errorf("handled: got %v, want %v", handled, tt.wantHandled)
			}
			if tt.preflight && rec.Code != http.StatusNoContent {
				t.Errorf("preflight status: got %d, want 204", rec.Code)
			}
			if tt.cfg.Enabled && rec.Header().Get("Vary") != "Origin" {
				t.Errorf("vary: got %q", rec.Header().Get("Vary"))
			}
			if tt.wantOrigin == "" {
				return
			}
			if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
				t.Errorf("allow-methods: got %s", got)
			}
			if got := rec.Header().Get("Access-Control-Max-Age"); got != "3600" {
				t.Errorf("max-age: got %s", got)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
				t.Errorf("allow-credentials: got %s", got)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := middleware.Logger(logger)(status(http.StatusUnprocessableEntity))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/racks/r1/analysis", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d", rec.Code)
	}
	out := buf.String()
	for _, want := range []string{"level=INFO", "method=POST", "uri=/api/racks/r1/analysis", "status=422"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}

	buf.Reset()
	middleware.Logger(logger)(status(http.StatusInternalServerError)).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("server errors should log at error level: %s", buf.String())
	}
}

func TestMetrics(t *testing.T) {
	reg := metrics.NewRegistry()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /racks/{id}/analysis", status(http.StatusNotFound))
	handler := middleware.Metrics(reg)(mux)

	for _, id := range []string{"a", "b"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/racks/"+id+"/analysis", nil))
	}
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nowhere", nil))

	tests := []struct {
		route  string
		status string
		want   float64
	}{
		{"GET /racks/{id}/analysis", "404", 2},
		{"unmatched", "404", 1},
	}

	for _, tt := range tests {
		counter, err := reg.HTTPRequestsTotal.GetMetricWithLabelValues("GET", tt.route, tt.status)
		if err != nil {
			t.Fatalf("get metric: %v", err)
		}
		var m dto.Metric
		if err := counter.Write(&m); err != nil {
			t.Fatalf("write metric: %v", err)
		}
		if got := m.GetCounter().GetValue(); got != tt.want {
			t.Errorf("%s %s: got %v, want %v", tt.route, tt.status, got, tt.want)
		}
	}
}

func TestCORSConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg middleware.CORSConfig
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if len(cfg.AllowedMethods) != 5 || len(cfg.AllowedHeaders) != 4 || cfg.MaxAge != 3600 {
			t.Errorf("got %+v", cfg)
		}
		for _, h := range []string{"X-User-ID", "X-User-Role"} {
			if !slices.Contains(cfg.AllowedHeaders, h) {
				t.Errorf("allowed headers %v missing %s", cfg.AllowedHeaders, h)
			}
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("RACKSMITH_CORS_ENABLED", "true")
		t.Setenv("RACKSMITH_CORS_ORIGINS", "http://a.local, http://b.local")
		t.Setenv("RACKSMITH_CORS_ALLOW_CREDENTIALS", "true")

		var cfg middleware.CORSConfig
		err := cfg.Finalize(&middleware.CORSEnv{
			Enabled:          "RACKSMITH_CORS_ENABLED",
			Origins:          "RACKSMITH_CORS_ORIGINS",
			AllowCredentials: "RACKSMITH_CORS_ALLOW_CREDENTIALS",
		})
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if !cfg.Enabled || !cfg.AllowCredentials {
			t.Errorf("got %+v", cfg)
		}
		if len(cfg.Origins) != 2 || cfg.Origins[0] != "http://a.local" || cfg.Origins[1] != "http://b.local" {
			t.Errorf("origins: got %v", cfg.Origins)
		}
	})

	t.Run("merge", func(t *testing.T) {
		base := middleware.CORSConfig{Origins: []string{"http://base.local"}, AllowedMethods: []string{"GET"}, MaxAge: 3600}
		base.Merge(&middleware.CORSConfig{Enabled: true, Origins: []string{"http://overlay.local"}, MaxAge: 7200})

		if !base.Enabled || base.Origins[0] != "http://overlay.local" || base.MaxAge != 7200 {
			t.Errorf("got %+v", base)
		}
		if len(base.AllowedMethods) != 1 {
			t.Errorf("nil overlay slice should keep base: got %v", base.AllowedMethods)
		}
	})
}
