package analyzer

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/template"
)

// mapLoader serves hand-built parse trees keyed by file path.
type mapLoader map[string]*template.File

func (m mapLoader) Load(path string) (*template.File, error) {
	if f, ok := m[path]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("template not found: %s", path)
}

func prop(line int, name string) *template.Call {
	return &template.Call{StartLine: line, Receiver: "json", Name: name}
}

func comment(line int, text string) template.Comment {
	return template.Comment{CommentLine: line, Text: text}
}

func compileFile(t *testing.T, file *template.File, loader Loader) *Result {
	t.Helper()
	c := New(loader, "views")
	res, err := c.CompileParsed(file)
	if err != nil {
		t.Fatalf("CompileParsed: %v", err)
	}
	return res
}

func rootObject(t *testing.T, res *Result) *ObjectNode {
	t.Helper()
	obj, ok := res.Root.(*ObjectNode)
	if !ok {
		t.Fatalf("root = %T, want *ObjectNode", res.Root)
	}
	return obj
}

func TestCompileAnnotatedProperties(t *testing.T) {
	file := &template.File{
		Path: "views/users/show.json.jbuilder",
		Statements: []template.Stmt{
			prop(2, "id"),
			prop(4, "name"),
		},
		Comments: []template.Comment{
			comment(1, `# @field id:integer description:"User id"`),
			comment(3, "# @field name:string required:false"),
		},
	}

	res := compileFile(t, file, mapLoader{})
	obj := rootObject(t, res)
	if len(obj.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(obj.Children))
	}

	id := obj.Children[0].(*PropertyNode)
	if id.PropName != "id" || id.Data.Type != "integer" || id.Data.Description != "User id" {
		t.Fatalf("unexpected id node: %+v", id)
	}
	if !EffectiveRequired(id) {
		t.Fatal("id should be required by default")
	}

	name := obj.Children[1].(*PropertyNode)
	if EffectiveRequired(name) {
		t.Fatal("name with required:false should not be required")
	}
	if len(res.Missing) != 0 {
		t.Fatalf("missing = %v, want none", res.Missing)
	}
}

func TestCompileMissingAnnotation(t *testing.T) {
	file := &template.File{
		Path:       "views/users/show.json.jbuilder",
		Statements: []template.Stmt{prop(1, "email")},
	}

	res := compileFile(t, file, mapLoader{})
	obj := rootObject(t, res)

	email := obj.Children[0].(*PropertyNode)
	if !email.MissingAnnotation {
		t.Fatal("unannotated property should carry the missing marker")
	}
	if email.Data.Type != "string" || email.Data.Description != MissingDescription {
		t.Fatalf("missing fallback = %+v", email.Data)
	}
	if len(res.Missing) != 1 || res.Missing[0] != email {
		t.Fatalf("missing list = %v", res.Missing)
	}
}

func TestCompileAnnotationWindow(t *testing.T) {
	// The directive sits two lines above the call, with a plain comment in
	// between; it still binds. Three lines away it does not.
	file := &template.File{
		Path: "views/t.json.jbuilder",
		Statements: []template.Stmt{
			prop(3, "near"),
			prop(8, "far"),
		},
		Comments: []template.Comment{
			comment(1, "# @field near:integer"),
			comment(2, "# plain note"),
			comment(4, "# @field far:integer"),
		},
	}

	res := compileFile(t, file, mapLoader{})
	obj := rootObject(t, res)

	near := obj.Children[0].(*PropertyNode)
	if near.Data.Type != "integer" {
		t.Fatalf("near.Type = %q, want directive two lines up to bind", near.Data.Type)
	}
	far := obj.Children[1].(*PropertyNode)
	if !far.MissingAnnotation {
		t.Fatal("directive four lines up must not bind")
	}
}

func TestCompileDirectiveBindsOnce(t *testing.T) {
	// Two calls in a row after a single directive: only the first binds
	// it, the second stays unannotated instead of inheriting the type.
	file := &template.File{
		Path: "views/t.json.jbuilder",
		Statements: []template.Stmt{
			prop(2, "id"),
			prop(3, "name"),
		},
		Comments: []template.Comment{
			comment(1, "# @field id:integer"),
		},
	}

	res := compileFile(t, file, mapLoader{})
	obj := rootObject(t, res)

	id := obj.Children[0].(*PropertyNode)
	if id.Data.Type != "integer" || id.MissingAnnotation {
		t.Fatalf("unexpected id node: %+v", id)
	}

	name := obj.Children[1].(*PropertyNode)
	if name.Data.Type == "integer" {
		t.Fatal("name must not inherit id's directive")
	}
	if !name.MissingAnnotation {
		t.Fatal("name should carry the missing marker")
	}
	if len(res.Missing) != 1 || res.Missing[0] != name {
		t.Fatalf("missing list = %v, want just name", res.Missing)
	}
}

func TestCompileConditionalMarkerBindsOnce(t *testing.T) {
	file := &template.File{
		Path: "views/t.json.jbuilder",
		Statements: []template.Stmt{
			prop(2, "token"),
			prop(3, "id"),
		},
		Comments: []template.Comment{
			comment(1, "# @conditional"),
		},
	}

	res := compileFile(t, file, mapLoader{})
	obj := rootObject(t, res)

	if !obj.Children[0].Annotation().Conditional {
		t.Fatal("token should bind the marker")
	}
	if obj.Children[1].Annotation().Conditional {
		t.Fatal("id must not inherit the already-bound marker")
	}
}

func TestCompileConditionalBranch(t *testing.T) {
	file := &template.File{
		Path: "views/t.json.jbuilder",
		Statements: []template.Stmt{
			prop(2, "id"),
			&template.Conditional{
				StartLine: 3,
				Branches: []template.Branch{
					{Statements: []template.Stmt{prop(5, "secret")}},
					{Statements: []template.Stmt{prop(7, "fallback")}},
				},
			},
		},
		Comments: []template.Comment{
			comment(1, "# @field id:integer"),
			comment(4, "# @field secret:string"),
			comment(6, "# @field fallback:string"),
		},
	}

	res := compileFile(t, file, mapLoader{})
	obj := rootObject(t, res)
	if len(obj.Children) != 3 {
		t.Fatalf("children = %d, want 3", len(obj.Children))
	}

	if obj.Children[0].Annotation().Conditional {
		t.Fatal("id outside the conditional must stay unconditional")
	}
	for _, child := range obj.Children[1:] {
		if !child.Annotation().Conditional {
			t.Fatalf("%s inside conditional should be conditional", child.Name())
		}
		if EffectiveRequired(child) {
			t.Fatalf("%s inside conditional should not be required", child.Name())
		}
	}
}

func TestCompileConditionalMarker(t *testing.T) {
	file := &template.File{
		Path:       "views/t.json.jbuilder",
		Statements: []template.Stmt{prop(3, "token")},
		Comments: []template.Comment{
			comment(1, "# @conditional"),
			comment(2, "# @field token:string"),
		},
	}

	res := compileFile(t, file, mapLoader{})
	token := rootObject(t, res).Children[0].(*PropertyNode)
	if !token.Data.Conditional {
		t.Fatal("marker above the field directive should force conditional")
	}
	if token.Data.Type != "string" {
		t.Fatalf("token.Type = %q, want field directive to bind too", token.Data.Type)
	}
}

func TestCompileObjectBlock(t *testing.T) {
	file := &template.File{
		Path: "views/t.json.jbuilder",
		Statements: []template.Stmt{
			&template.Call{
				StartLine: 1, Receiver: "json", Name: "author",
				Block: &template.Block{Statements: []template.Stmt{
					prop(3, "name"),
				}},
			},
		},
		Comments: []template.Comment{comment(2, "# @field name:string")},
	}

	res := compileFile(t, file, mapLoader{})
	author, ok := rootObject(t, res).Children[0].(*ObjectNode)
	if !ok {
		t.Fatalf("author = %T, want *ObjectNode", rootObject(t, res).Children[0])
	}
	if author.PropName != "author" || len(author.Children) != 1 {
		t.Fatalf("unexpected author node: %+v", author)
	}
}

func TestCompileIteration(t *testing.T) {
	file := &template.File{
		Path: "views/t.json.jbuilder",
		Statements: []template.Stmt{
			&template.Call{
				StartLine: 1, Receiver: "json", Name: "comments",
				Block: &template.Block{
					Params:     []string{"comment"},
					Statements: []template.Stmt{prop(3, "body")},
				},
			},
		},
		Comments: []template.Comment{comment(2, "# @field body:string")},
	}

	res := compileFile(t, file, mapLoader{})
	comments, ok := rootObject(t, res).Children[0].(*ArrayNode)
	if !ok {
		t.Fatalf("comments = %T, want *ArrayNode", rootObject(t, res).Children[0])
	}
	if comments.RootArray {
		t.Fatal("a named iteration array is not the root array")
	}
	if len(comments.Items) != 1 || comments.Items[0].Name() != "body" {
		t.Fatalf("unexpected items: %+v", comments.Items)
	}
}

func TestCompileRootArray(t *testing.T) {
	file := &template.File{
		Path: "views/users/index.json.jbuilder",
		Statements: []template.Stmt{
			&template.Call{
				StartLine: 1, Receiver: "json", Name: "array!",
				Block: &template.Block{
					Params:     []string{"user"},
					Statements: []template.Stmt{prop(3, "id")},
				},
			},
		},
		Comments: []template.Comment{comment(2, "# @field id:integer")},
	}

	res := compileFile(t, file, mapLoader{})
	arr, ok := res.Root.(*ArrayNode)
	if !ok {
		t.Fatalf("root = %T, want *ArrayNode", res.Root)
	}
	if !arr.RootArray {
		t.Fatal("lone top-level array declaration should claim the root")
	}
	if len(arr.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(arr.Items))
	}
}

func TestCompileNestedArrayTakesPropertyName(t *testing.T) {
	file := &template.File{
		Path: "views/t.json.jbuilder",
		Statements: []template.Stmt{
			&template.Call{
				StartLine: 1, Receiver: "json", Name: "tags",
				Block: &template.Block{Statements: []template.Stmt{
					&template.Call{
						StartLine: 2, Receiver: "json", Name: "array!",
						Block: &template.Block{
							Params:     []string{"tag"},
							Statements: []template.Stmt{prop(3, "label")},
						},
					},
				}},
			},
		},
	}

	res := compileFile(t, file, mapLoader{})
	tags, ok := rootObject(t, res).Children[0].(*ArrayNode)
	if !ok {
		t.Fatalf("tags = %T, want *ArrayNode", rootObject(t, res).Children[0])
	}
	if tags.PropName != "tags" || tags.RootArray {
		t.Fatalf("unexpected tags node: %+v", tags)
	}
}

func TestCompileExtract(t *testing.T) {
	file := &template.File{
		Path: "views/t.json.jbuilder",
		Statements: []template.Stmt{
			&template.Call{
				StartLine: 1, Receiver: "json", Name: "extract!",
				Args: []template.Arg{
					{Kind: template.ArgExpr, Raw: "@user"},
					{Kind: template.ArgSymbol, Str: "id"},
					{Kind: template.ArgSymbol, Str: "name"},
				},
			},
		},
	}

	res := compileFile(t, file, mapLoader{})
	obj := rootObject(t, res)
	if len(obj.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(obj.Children))
	}
	if obj.Children[0].Name() != "id" || obj.Children[1].Name() != "name" {
		t.Fatalf("unexpected extraction: %v, %v", obj.Children[0].Name(), obj.Children[1].Name())
	}
}

func TestCompileNoopWalksBody(t *testing.T) {
	file := &template.File{
		Path: "views/t.json.jbuilder",
		Statements: []template.Stmt{
			&template.Call{
				StartLine: 1, Receiver: "json", Name: "cache!",
				Args: []template.Arg{{Kind: template.ArgExpr, Raw: "@user"}},
				Block: &template.Block{Statements: []template.Stmt{
					prop(2, "id"),
				}},
			},
		},
	}

	res := compileFile(t, file, mapLoader{})
	obj := rootObject(t, res)
	if len(obj.Children) != 1 || obj.Children[0].Name() != "id" {
		t.Fatalf("cache! body should surface under the parent, got %+v", obj.Children)
	}
}

func TestCompileNonBuilderBlockWalked(t *testing.T) {
	file := &template.File{
		Path: "views/t.json.jbuilder",
		Statements: []template.Stmt{
			&template.Call{
				StartLine: 1, Receiver: "@users", Name: "each",
				Block: &template.Block{
					Params:     []string{"u"},
					Statements: []template.Stmt{prop(2, "visited")},
				},
			},
		},
	}

	res := compileFile(t, file, mapLoader{})
	obj := rootObject(t, res)
	if len(obj.Children) != 1 || obj.Children[0].Name() != "visited" {
		t.Fatalf("nested builder calls should still compile, got %+v", obj.Children)
	}
}

func partialRef(line int, ref string) *template.Call {
	return &template.Call{
		StartLine: line, Receiver: "json", Name: "partial!",
		Args: []template.Arg{{Kind: template.ArgString, Str: ref, Raw: "'" + ref + "'"}},
	}
}

func TestCompilePartialFlattening(t *testing.T) {
	loader := mapLoader{
		"views/users/_user.json.jbuilder": {
			Path:       "views/users/_user.json.jbuilder",
			Statements: []template.Stmt{prop(2, "id"), prop(3, "name")},
			Comments:   []template.Comment{comment(1, "# @field id:integer")},
		},
	}
	file := &template.File{
		Path: "views/users/show.json.jbuilder",
		Statements: []template.Stmt{
			partialRef(1, "users/user"),
			prop(3, "email"),
		},
		Comments: []template.Comment{comment(2, "# @field email:string")},
	}

	res := compileFile(t, file, loader)
	obj := rootObject(t, res)
	var names []string
	for _, child := range obj.Children {
		names = append(names, child.Name())
	}
	want := []string{"id", "name", "email"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("flattened children mismatch (-want +got):\n%s", diff)
	}
	if obj.Children[0].Annotation().Type != "integer" {
		t.Fatal("partial's own annotations should bind inside the partial")
	}
}

func TestCompileMissingPartial(t *testing.T) {
	file := &template.File{
		Path: "views/t.json.jbuilder",
		Statements: []template.Stmt{
			partialRef(1, "users/absent"),
			prop(3, "id"),
		},
		Comments: []template.Comment{comment(2, "# @field id:integer")},
	}

	res := compileFile(t, file, mapLoader{})
	obj := rootObject(t, res)
	if len(obj.Children) != 1 || obj.Children[0].Name() != "id" {
		t.Fatalf("missing partial should contribute nothing, got %+v", obj.Children)
	}
}

func TestCompilePartialCycle(t *testing.T) {
	loader := mapLoader{
		"views/shared/_a.json.jbuilder": {
			Path: "views/shared/_a.json.jbuilder",
			Statements: []template.Stmt{
				prop(1, "a_field"),
				partialRef(2, "shared/b"),
			},
		},
		"views/shared/_b.json.jbuilder": {
			Path: "views/shared/_b.json.jbuilder",
			Statements: []template.Stmt{
				prop(1, "b_field"),
				partialRef(2, "shared/a"),
			},
		},
	}
	file := &template.File{
		Path:       "views/t.json.jbuilder",
		Statements: []template.Stmt{partialRef(1, "shared/a")},
	}

	res := compileFile(t, file, loader)
	obj := rootObject(t, res)
	var names []string
	for _, child := range obj.Children {
		names = append(names, child.Name())
	}
	want := []string{"a_field", "b_field"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("cycle should terminate after one round (-want +got):\n%s", diff)
	}
}

func TestCompilePartialReusedAsSiblings(t *testing.T) {
	loader := mapLoader{
		"views/shared/_addr.json.jbuilder": {
			Path:       "views/shared/_addr.json.jbuilder",
			Statements: []template.Stmt{prop(1, "city")},
		},
	}
	file := &template.File{
		Path: "views/t.json.jbuilder",
		Statements: []template.Stmt{
			&template.Call{
				StartLine: 1, Receiver: "json", Name: "home",
				Block: &template.Block{Statements: []template.Stmt{partialRef(2, "shared/addr")}},
			},
			&template.Call{
				StartLine: 4, Receiver: "json", Name: "work",
				Block: &template.Block{Statements: []template.Stmt{partialRef(5, "shared/addr")}},
			},
		},
	}

	res := compileFile(t, file, loader)
	obj := rootObject(t, res)
	if len(obj.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(obj.Children))
	}
	for _, child := range obj.Children {
		nested := child.(*ObjectNode)
		if len(nested.Children) != 1 || nested.Children[0].Name() != "city" {
			t.Fatalf("%s should contain the partial's field, got %+v", nested.PropName, nested.Children)
		}
	}
}

func TestCompileArrayWithPartialItems(t *testing.T) {
	loader := mapLoader{
		"views/users/_user.json.jbuilder": {
			Path:       "views/users/_user.json.jbuilder",
			Statements: []template.Stmt{prop(1, "id")},
		},
	}
	file := &template.File{
		Path: "views/users/index.json.jbuilder",
		Statements: []template.Stmt{
			&template.Call{
				StartLine: 1, Receiver: "json", Name: "array!",
				Args: []template.Arg{
					{Kind: template.ArgExpr, Raw: "@users"},
					{Kind: template.ArgHash, Pairs: []template.HashPair{
						{Key: "partial", Value: template.Arg{Kind: template.ArgString, Str: "users/user"}},
						{Key: "as", Value: template.Arg{Kind: template.ArgSymbol, Str: "user"}},
					}},
				},
			},
		},
	}

	res := compileFile(t, file, loader)
	arr, ok := res.Root.(*ArrayNode)
	if !ok {
		t.Fatalf("root = %T, want *ArrayNode", res.Root)
	}
	if len(arr.Items) != 1 || arr.Items[0].Name() != "id" {
		t.Fatalf("partial item template should supply items, got %+v", arr.Items)
	}
}

func TestCompilePartialDepthLimit(t *testing.T) {
	// 40 distinct partials chained without a cycle: expansion stops at the
	// depth limit and contributes nothing further, without failing.
	loader := mapLoader{}
	for i := 1; i <= 40; i++ {
		stmts := []template.Stmt{prop(1, fmt.Sprintf("f%02d", i))}
		if i < 40 {
			stmts = append(stmts, partialRef(2, fmt.Sprintf("chain/p%02d", i+1)))
		}
		path := fmt.Sprintf("views/chain/_p%02d.json.jbuilder", i)
		loader[path] = &template.File{Path: path, Statements: stmts}
	}
	file := &template.File{
		Path:       "views/t.json.jbuilder",
		Statements: []template.Stmt{partialRef(1, "chain/p01")},
	}

	res := compileFile(t, file, loader)
	obj := rootObject(t, res)
	if len(obj.Children) != maxPartialDepth {
		t.Fatalf("children = %d, want %d (one per level up to the limit)", len(obj.Children), maxPartialDepth)
	}
	last := obj.Children[len(obj.Children)-1]
	if last.Name() != fmt.Sprintf("f%02d", maxPartialDepth) {
		t.Fatalf("deepest field = %q, want f%02d", last.Name(), maxPartialDepth)
	}
}

func TestCompileKeepPartials(t *testing.T) {
	loader := mapLoader{
		"views/users/_user.json.jbuilder": {
			Path:       "views/users/_user.json.jbuilder",
			Statements: []template.Stmt{prop(1, "id")},
		},
	}
	file := &template.File{
		Path:       "views/users/show.json.jbuilder",
		Statements: []template.Stmt{partialRef(1, "users/user")},
	}

	c := New(loader, "views")
	c.KeepPartials = true
	res, err := c.CompileParsed(file)
	if err != nil {
		t.Fatalf("CompileParsed: %v", err)
	}

	obj := rootObject(t, res)
	partial, ok := obj.Children[0].(*PartialNode)
	if !ok {
		t.Fatalf("child = %T, want *PartialNode", obj.Children[0])
	}
	if partial.Path != "users/user" || len(partial.Children) != 1 {
		t.Fatalf("unexpected partial wrapper: %+v", partial)
	}
}

func TestCompileDirectives(t *testing.T) {
	file := &template.File{
		Path:       "views/users/index.json.jbuilder",
		Statements: []template.Stmt{prop(5, "id")},
		Comments: []template.Comment{
			comment(1, `# @operation summary:"List users" operationId:listUsers tags:[users] status:200`),
			comment(2, "# @query page:integer required:false"),
			comment(3, `# @path org_id:integer description:"Organization"`),
			comment(4, "# @field id:integer"),
		},
	}

	res := compileFile(t, file, mapLoader{})
	if res.Operation == nil || res.Operation.Summary != "List users" || res.Operation.OperationID != "listUsers" {
		t.Fatalf("operation directive = %+v", res.Operation)
	}
	if len(res.Parameters) != 2 {
		t.Fatalf("parameters = %d, want 2", len(res.Parameters))
	}
	if res.Parameters[0].In != "query" || res.Parameters[1].In != "path" {
		t.Fatalf("parameter order mismatch: %+v", res.Parameters)
	}
}

func TestCompileIdempotent(t *testing.T) {
	loader := mapLoader{
		"views/users/_user.json.jbuilder": {
			Path:       "views/users/_user.json.jbuilder",
			Statements: []template.Stmt{prop(1, "id")},
		},
	}
	file := &template.File{
		Path: "views/users/show.json.jbuilder",
		Statements: []template.Stmt{
			partialRef(1, "users/user"),
			prop(3, "email"),
		},
		Comments: []template.Comment{comment(2, "# @field email:string")},
	}

	c := New(loader, "views")
	first, err := c.CompileParsed(file)
	if err != nil {
		t.Fatalf("first compile: %v", err)
	}
	second, err := c.CompileParsed(file)
	if err != nil {
		t.Fatalf("second compile: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("recompilation should be identical (-first +second):\n%s", diff)
	}
}
