package routes

import (
	"net/http"

	"github.com/JaimeStill/racksmith/pkg/openapi"
)

// Route binds an HTTP method and pattern to a handler. OpenAPI documents
// the route; Document derives a minimal operation when it is nil.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}
