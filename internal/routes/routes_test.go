package routes

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseManifest(t *testing.T) {
	manifest := []byte(`
routes:
  - method: GET
    path: /users
    template: users/index.json.jbuilder
    tags: [users]
  - method: get
    path: /users/:id
    template: users/show.json.jbuilder
    description: Fetch one user
  - method: TRACE
    path: /debug
    template: debug.json.jbuilder
  - method: POST
    path: ""
    template: users/create.json.jbuilder
  - method: DELETE
    path: /users/:id
    template: ""
`)

	valid, warnings, err := Parse(manifest)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []Route{
		{Method: "GET", Path: "/users", Template: "users/index.json.jbuilder", Tags: []string{"users"}},
		{Method: "GET", Path: "/users/:id", Template: "users/show.json.jbuilder", Description: "Fetch one user"},
	}
	if diff := cmp.Diff(want, valid); diff != "" {
		t.Fatalf("valid routes mismatch (-want +got):\n%s", diff)
	}

	if len(warnings) != 3 {
		t.Fatalf("warnings = %v, want 3 entries", warnings)
	}
}

func TestParseManifestInvalidYAML(t *testing.T) {
	if _, _, err := Parse([]byte("routes: [\n")); err == nil {
		t.Fatal("malformed YAML should be an error")
	}
}

func TestParseManifestEmpty(t *testing.T) {
	valid, warnings, err := Parse([]byte("routes: []\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(valid) != 0 || len(warnings) != 0 {
		t.Fatalf("empty manifest should yield nothing, got %v / %v", valid, warnings)
	}
}
