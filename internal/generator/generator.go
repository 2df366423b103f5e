package generator

import (
	"sort"
	"strings"

	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/analyzer"
)

func New(config Config) *Generator {
	return &Generator{config: config}
}

// CompiledRoute pairs one route binding with the compiled template behind it.
type CompiledRoute struct {
	Method      string
	Path        string
	Tags        []string
	Description string
	Result      *analyzer.Result
}

// Generate assembles the full OpenAPI document from compiled routes.
func (g *Generator) Generate(routes []CompiledRoute) *OpenAPISpec {
	spec := &OpenAPISpec{
		OpenAPI: "3.0.3",
		Info: Info{
			Title:       g.config.Title,
			Description: g.config.Description,
			Version:     g.config.Version,
		},
		Servers: []Server{
			{
				URL:         g.config.ServerURL,
				Description: "Development server",
			},
		},
		Paths: make(map[string]PathItem),
		Components: Components{
			Schemas: make(map[string]*Schema),
		},
	}

	spec.Components.Schemas["ErrorResponse"] = errorResponseSchema()

	tags := make(map[string]bool)
	processedPaths := make(map[string]bool)

	for _, route := range routes {
		openAPIPath := g.convertPathFormat(route.Path)

		pathKey := route.Method + ":" + openAPIPath
		if processedPaths[pathKey] {
			continue
		}
		processedPaths[pathKey] = true

		pathItem := spec.Paths[openAPIPath]
		operation := g.generateOperation(route)

		for _, tag := range operation.Tags {
			tags[tag] = true
		}

		switch strings.ToLower(route.Method) {
		case "get":
			pathItem.Get = operation
		case "post":
			pathItem.Post = operation
		case "put":
			pathItem.Put = operation
		case "delete":
			pathItem.Delete = operation
		case "patch":
			pathItem.Patch = operation
		default:
			continue
		}

		spec.Paths[openAPIPath] = pathItem
	}

	// Component-mode schemas accumulated while compiling route responses.
	for name, schema := range g.components {
		if _, exists := spec.Components.Schemas[name]; !exists {
			spec.Components.Schemas[name] = schema
		}
	}

	tagNames := make([]string, 0, len(tags))
	for tagName := range tags {
		tagNames = append(tagNames, tagName)
	}
	sort.Strings(tagNames)
	for _, tagName := range tagNames {
		spec.Tags = append(spec.Tags, Tag{Name: tagName})
	}

	g.validatePaths(spec)
	g.removeInvalidReferences(spec)

	return spec
}

func errorResponseSchema() *Schema {
	props := NewProperties()
	props.Set("error", &Schema{Type: "string", Description: "Error message"})
	props.Set("code", &Schema{Type: "integer", Description: "Error code"})
	return &Schema{Type: "object", Properties: props}
}
