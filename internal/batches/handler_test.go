package batches_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/racksmith/internal/batches"
	"github.com/JaimeStill/racksmith/internal/racks"
	"github.com/JaimeStill/racksmith/internal/racktest"
	"github.com/JaimeStill/racksmith/pkg/routes"
)

func request(mux *http.ServeMux, method, target, body string, user uuid.UUID) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if user != uuid.Nil {
		req.Header.Set(racks.HeaderUserID, user.String())
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlerLifecycle(t *testing.T) {
	e := newEnv(t, defaultLimits())
	e.run(t)

	mux := http.NewServeMux()
	routes.Register(mux, e.sys.Handler().Routes())

	user := uuid.New()
	rack := e.src.Put(racktest.Gzip(racktest.NestedRack))

	rec := request(mux, http.MethodPost, "/batches", `{"rack_ids":["`+rack.String()+`"],"priority":"high"}`, user)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var v batches.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Equal(t, batches.PriorityHigh, v.Priority)

	waitStatus(t, e, racks.Principal{UserID: user}, v.ID, batches.StatusCompleted)

	rec = request(mux, http.MethodGet, "/batches/"+v.ID.String(), "", user)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = request(mux, http.MethodGet, "/batches/"+v.ID.String()+"/results?include_details=true", "", user)
	require.Equal(t, http.StatusOK, rec.Code)

	var res batches.Results
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 1, res.Summary.Successful)
	assert.Len(t, res.Items, 1)

	rec = request(mux, http.MethodDelete, "/batches/"+v.ID.String(), "", user)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = request(mux, http.MethodGet, "/batches?status=completed", "", user)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerErrors(t *testing.T) {
	e := newEnv(t, defaultLimits())
	mux := http.NewServeMux()
	routes.Register(mux, e.sys.Handler().Routes())

	user := uuid.New()

	tests := []struct {
		name   string
		method string
		target string
		body   string
		user   uuid.UUID
		status int
	}{
		{"anonymous", http.MethodGet, "/batches", "", uuid.Nil, http.StatusUnauthorized},
		{"malformed body", http.MethodPost, "/batches", `{"rack_ids":`, user, http.StatusBadRequest},
		{"too many racks", http.MethodPost, "/batches", `{"rack_ids":["` + strings.Repeat(uuid.NewString()+`","`, 10) + uuid.NewString() + `"]}`, user, http.StatusBadRequest},
		{"invalid id", http.MethodGet, "/batches/nope", "", user, http.StatusBadRequest},
		{"unknown batch", http.MethodGet, "/batches/" + uuid.NewString(), "", user, http.StatusNotFound},
		{"bad details flag", http.MethodGet, "/batches/" + uuid.NewString() + "/results?include_details=x", "", user, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(mux, tt.method, tt.target, tt.body, tt.user)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}
