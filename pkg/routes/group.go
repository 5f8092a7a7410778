package routes

import (
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/JaimeStill/racksmith/pkg/openapi"
)

// Group organizes routes under a common prefix with shared tags.
type Group struct {
	Prefix   string
	Tags     []string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		registerGroup(mux, "", group)
	}
}

func registerGroup(mux *http.ServeMux, parentPrefix string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		pattern := route.Method + " " + fullPrefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	for _, child := range group.Children {
		registerGroup(mux, fullPrefix, child)
	}
}

var pathParam = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(?:\.\.\.)?\}`)

// Document adds an operation to spec for every route in groups. basePath
// prefixes each path the way the owning module mounts the mux.
func Document(spec *openapi.Spec, basePath string, groups ...Group) {
	for _, group := range groups {
		documentGroup(spec, basePath, nil, group)
	}
}

func documentGroup(spec *openapi.Spec, parentPrefix string, parentTags []string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	tags := group.Tags
	if len(tags) == 0 {
		tags = parentTags
	}

	for _, route := range group.Routes {
		path := pathParam.ReplaceAllString(fullPrefix+route.Pattern, "{$1}")
		if path == "" {
			path = "/"
		}

		op := operation(route, path)
		if len(op.Tags) == 0 {
			op.Tags = tags
		}
		addPathParams(op, path)

		item, ok := spec.Paths[path]
		if !ok {
			item = &openapi.PathItem{}
			spec.Paths[path] = item
		}

		switch route.Method {
		case http.MethodGet:
			item.Get = op
		case http.MethodPost:
			item.Post = op
		case http.MethodPut:
			item.Put = op
		case http.MethodDelete:
			item.Delete = op
		}
	}

	for _, child := range group.Children {
		documentGroup(spec, fullPrefix, tags, child)
	}
}

func operation(route Route, path string) *openapi.Operation {
	if route.OpenAPI != nil {
		op := *route.OpenAPI
		op.Parameters = slices.Clone(op.Parameters)
		return &op
	}
	return &openapi.Operation{
		Summary: route.Method + " " + path,
		Responses: map[int]*openapi.Response{
			http.StatusOK: {Description: "OK"},
		},
	}
}

func addPathParams(op *openapi.Operation, path string) {
	for _, m := range pathParam.FindAllStringSubmatch(path, -1) {
		name := m[1]
		declared := slices.ContainsFunc(op.Parameters, func(p *openapi.Parameter) bool {
			return p.In == "path" && p.Name == name
		})
		if declared {
			continue
		}
		p := openapi.PathParam(name, strings.ReplaceAll(name, "_", " "))
		if name != "id" {
			p.Schema = &openapi.Schema{Type: "string"}
		}
		op.Parameters = append(op.Parameters, p)
	}
}
