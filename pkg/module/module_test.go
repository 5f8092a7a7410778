package module_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/racksmith/pkg/module"
)

func echoPath(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(r.URL.Path))
}

func TestNewPrefix(t *testing.T) {
	m := module.New("/api", http.NewServeMux())
	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}

	for _, prefix := range []string{"", "api", "/api/v1"} {
		t.Run("invalid "+prefix, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for %q", prefix)
				}
			}()
			module.New(prefix, http.NewServeMux())
		})
	}
}

func TestServe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /racks/{id}/hierarchy", echoPath)
	mux.HandleFunc("GET /", echoPath)

	m := module.New("/api", mux)

	var wrapped bool
	m.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped = true
			next.ServeHTTP(w, r)
		})
	})

	tests := []struct {
		path string
		want string
	}{
		{"/api/racks/r1/hierarchy", "/racks/r1/hierarchy"},
		{"/api", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			wrapped = false
			rec := httptest.NewRecorder()
			m.Serve(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Body.String() != tt.want {
				t.Errorf("inner path: got %s, want %s", rec.Body.String(), tt.want)
			}
			if !wrapped {
				t.Error("module middleware should run")
			}
		})
	}
}

func TestRouter(t *testing.T) {
	api := http.NewServeMux()
	api.HandleFunc("GET /batches/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("batch " + r.PathValue("id")))
	})

	router := module.NewRouter()
	router.Mount(module.New("/api", api))
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"module", "/api/batches/b1", http.StatusOK, "batch b1"},
		{"trailing slash", "/api/batches/b1/", http.StatusOK, "batch b1"},
		{"native fallback", "/healthz", http.StatusOK, "ok"},
		{"unknown", "/scalar", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body: got %s, want %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
