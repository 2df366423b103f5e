// Package routes loads the YAML manifest binding HTTP endpoints to their
// view templates.
package routes

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Route binds one endpoint to the template that renders its response.
type Route struct {
	Method      string   `yaml:"method"`
	Path        string   `yaml:"path"`
	Template    string   `yaml:"template"`
	Tags        []string `yaml:"tags,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

// Manifest is the on-disk manifest document.
type Manifest struct {
	Routes []Route `yaml:"routes"`
}

var validMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
	"PATCH":  true,
}

// Load reads and parses the manifest. Entries that cannot produce an
// operation (unknown method, missing path or template) are dropped with a
// warning rather than failing the whole run.
func Load(path string) ([]Route, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read routes manifest: %w", err)
	}
	return Parse(data)
}

// Parse parses manifest bytes; see Load.
func Parse(data []byte) ([]Route, []string, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, nil, fmt.Errorf("parse routes manifest: %w", err)
	}

	var valid []Route
	var warnings []string
	for i, route := range manifest.Routes {
		route.Method = strings.ToUpper(strings.TrimSpace(route.Method))
		switch {
		case !validMethods[route.Method]:
			warnings = append(warnings, fmt.Sprintf("route %d: unknown method %q, skipped", i+1, route.Method))
		case route.Path == "":
			warnings = append(warnings, fmt.Sprintf("route %d: missing path, skipped", i+1))
		case route.Template == "":
			warnings = append(warnings, fmt.Sprintf("route %d (%s %s): missing template, skipped", i+1, route.Method, route.Path))
		default:
			valid = append(valid, route)
		}
	}
	return valid, warnings, nil
}
