package analyzer

import (
	"fmt"
	"path/filepath"

	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/annotation"
	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/template"
)

// maxPartialDepth bounds partial inclusion alongside the visited-file cycle
// guard. Templates never nest anywhere near this deep; hitting the limit
// contributes zero nodes rather than failing the compile.
const maxPartialDepth = 32

// Compiler turns parsed templates into node trees. The same compiler may
// compile many templates; each Compile call is independent.
type Compiler struct {
	loader    Loader
	viewsRoot string

	// KeepPartials retains PartialNode wrappers instead of flattening
	// partial contents into the including template, so the document
	// generator can emit component references.
	KeepPartials bool
}

func New(loader Loader, viewsRoot string) *Compiler {
	return &Compiler{loader: loader, viewsRoot: viewsRoot}
}

// Compile compiles one top-level template. Anomalies inside the template
// (missing partials, cycles, unannotated calls) degrade to partial output;
// only a top-level template that cannot be loaded is an error.
func (c *Compiler) Compile(path string) (*Result, error) {
	file, err := c.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", path, err)
	}
	return c.CompileParsed(file)
}

// CompileParsed compiles an already-parsed template.
func (c *Compiler) CompileParsed(file *template.File) (*Result, error) {
	res := &Result{Path: file.Path}
	st := &walkState{
		ann:     indexAnnotations(file.Comments),
		dir:     filepath.Dir(file.Path),
		visited: map[string]bool{filepath.Clean(file.Path): true},
		res:     res,
	}
	collectDirectives(file.Comments, res)

	nodes := c.walkStmts(file.Statements, st, true)
	res.Root = assembleRoot(nodes)
	return res, nil
}

// assembleRoot picks the tree root: a lone root-level array declaration means
// the whole response is an array; everything else wraps into the root object.
func assembleRoot(nodes []Node) Node {
	if len(nodes) == 1 {
		if arr, ok := nodes[0].(*ArrayNode); ok && arr.RootArray {
			return arr
		}
	}
	for _, n := range nodes {
		if arr, ok := n.(*ArrayNode); ok && arr.RootArray {
			arr.RootArray = false
			if arr.PropName == "" {
				arr.PropName = "items"
			}
		}
	}
	return &ObjectNode{Children: nodes}
}

// walkState is the per-compile context threaded through the tree walk.
type walkState struct {
	ann       annotationIndex
	dir       string
	visited   map[string]bool
	depth     int
	condDepth int
	res       *Result
}

// annotationIndex holds the per-line directives of one file. Directives bind
// at most once; bound tracks the lines already claimed by an earlier call.
type annotationIndex struct {
	fields       map[int]annotation.FieldDirective
	conditionals map[int]bool
	bound        map[int]bool
}

func indexAnnotations(comments []template.Comment) annotationIndex {
	idx := annotationIndex{
		fields:       make(map[int]annotation.FieldDirective),
		conditionals: make(map[int]bool),
		bound:        make(map[int]bool),
	}
	for _, comment := range comments {
		switch d := annotation.Parse(comment.Text).(type) {
		case annotation.FieldDirective:
			idx.fields[comment.CommentLine] = d
		case annotation.ConditionalDirective:
			idx.conditionals[comment.CommentLine] = true
		}
	}
	return idx
}

// lookup finds the annotation for a call at the given line. The window is
// the two lines immediately above; the nearer field directive wins, and a
// bare conditional marker anywhere in the window combines in. Each directive
// is consumed by the first call that binds it, so a later call whose window
// also reaches the line does not inherit it.
func (idx annotationIndex) lookup(line int) (annotation.Data, bool) {
	var data annotation.Data
	found := false
	for _, l := range []int{line - 1, line - 2} {
		if fd, ok := idx.fields[l]; ok && !idx.bound[l] {
			idx.bound[l] = true
			data = fd.Data
			found = true
			break
		}
	}
	for _, l := range []int{line - 1, line - 2} {
		if idx.conditionals[l] && !idx.bound[l] {
			idx.bound[l] = true
			data.Conditional = true
			found = true
		}
	}
	return data, found
}

// collectDirectives gathers operation and parameter directives, which apply
// to the template as a whole. Only top-level templates contribute them;
// partials describe fragments, not endpoints.
func collectDirectives(comments []template.Comment, res *Result) {
	for _, comment := range comments {
		switch d := annotation.Parse(comment.Text).(type) {
		case annotation.OperationDirective:
			if res.Operation == nil {
				op := d
				res.Operation = &op
			}
		case annotation.ParameterDirective:
			res.Parameters = append(res.Parameters, d)
		}
	}
}

// walkStmts compiles a statement list into nodes. topLevel is true only for
// a file's own statement list, where an array declaration can claim the root.
func (c *Compiler) walkStmts(stmts []template.Stmt, st *walkState, topLevel bool) []Node {
	var nodes []Node
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *template.Conditional:
			st.condDepth++
			for _, branch := range s.Branches {
				nodes = append(nodes, c.walkStmts(branch.Statements, st, false)...)
			}
			st.condDepth--
		case *template.Call:
			nodes = append(nodes, c.walkCall(s, st, topLevel)...)
		}
	}
	return nodes
}

func (c *Compiler) walkCall(call *template.Call, st *walkState, topLevel bool) []Node {
	switch Classify(call) {
	case ArrayDeclaration:
		return c.compileArrayDecl(call, st, topLevel)
	case PartialReference:
		return c.compilePartialRef(call, st)
	case PropertyExtraction:
		return c.compileExtraction(call, st)
	case ObjectBlock:
		return c.compileObjectBlock(call, st)
	case PropertyCall:
		if call.Block != nil {
			return c.compileIteration(call, st)
		}
		return []Node{c.compileProperty(call, st)}
	case NoOpDirective:
		if call.Block != nil {
			return c.walkStmts(call.Block.Statements, st, false)
		}
		return nil
	default:
		// Not a builder call; anything it wraps may still emit.
		if call.Block != nil {
			return c.walkStmts(call.Block.Statements, st, topLevel)
		}
		return nil
	}
}

// annotate resolves the call's annotation window and applies the conditional
// context. The missing flag is only meaningful for property leaves.
func (c *Compiler) annotate(call *template.Call, st *walkState) (annotation.Data, bool) {
	data, found := st.ann.lookup(call.StartLine)
	if st.condDepth > 0 {
		data.Conditional = true
	}
	return data, found
}

func (c *Compiler) compileProperty(call *template.Call, st *walkState) Node {
	data, found := c.annotate(call, st)
	node := &PropertyNode{PropName: call.Name, Data: data, Line: call.StartLine}
	if !found {
		node.MissingAnnotation = true
		node.Data.Type = "string"
		node.Data.Description = MissingDescription
		node.Data.Conditional = st.condDepth > 0
		st.res.Missing = append(st.res.Missing, node)
	}
	return node
}

func (c *Compiler) compileExtraction(call *template.Call, st *walkState) []Node {
	data, found := c.annotate(call, st)
	syms := call.SymbolArgs()
	nodes := make([]Node, 0, len(syms))
	for _, sym := range syms {
		node := &PropertyNode{PropName: sym, Data: data, Line: call.StartLine}
		if !found {
			node.MissingAnnotation = true
			node.Data.Type = "string"
			node.Data.Description = MissingDescription
			node.Data.Conditional = st.condDepth > 0
			st.res.Missing = append(st.res.Missing, node)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func (c *Compiler) compileObjectBlock(call *template.Call, st *walkState) []Node {
	data, _ := c.annotate(call, st)
	children := c.walkStmts(call.Block.Statements, st, false)

	// A block whose body is a single bare array declaration names that
	// array: `json.tags do; json.array! ...; end` makes tags an array.
	if len(children) == 1 {
		if arr, ok := children[0].(*ArrayNode); ok && arr.PropName == "" {
			arr.PropName = call.Name
			arr.RootArray = false
			arr.Data = arr.Data.Merge(data)
			return []Node{arr}
		}
	}
	return []Node{&ObjectNode{PropName: call.Name, Data: data, Children: children}}
}

// compileIteration handles `json.comments @post.comments do |comment| ... end`:
// an array whose item shape is the block body.
func (c *Compiler) compileIteration(call *template.Call, st *walkState) []Node {
	data, _ := c.annotate(call, st)
	items := c.walkStmts(call.Block.Statements, st, false)
	return []Node{&ArrayNode{PropName: call.Name, Data: data, Items: items}}
}

func (c *Compiler) compileArrayDecl(call *template.Call, st *walkState, topLevel bool) []Node {
	data, _ := c.annotate(call, st)
	node := &ArrayNode{Data: data, RootArray: topLevel}

	switch {
	case call.Block != nil:
		node.Items = c.walkStmts(call.Block.Statements, st, false)
	default:
		// `json.array! @users, partial: 'users/user', as: :user`
		if ref, ok := call.HashValue("partial"); ok && ref.Kind == template.ArgString {
			node.Items = c.expandPartial(ref.Str, st, data)
		}
	}
	return []Node{node}
}

func (c *Compiler) compilePartialRef(call *template.Call, st *walkState) []Node {
	ref, ok := call.FirstString()
	if !ok {
		if v, hit := call.HashValue("partial"); hit && v.Kind == template.ArgString {
			ref = v.Str
			ok = true
		}
	}
	if !ok {
		// Dynamic partial path; nothing can be resolved statically.
		return nil
	}
	data, _ := c.annotate(call, st)
	return c.expandPartial(ref, st, data)
}

// expandPartial resolves, loads and compiles a partial, splicing its nodes in
// (or wrapping them when KeepPartials is set). Unresolvable references,
// revisited files and excessive depth all contribute zero nodes.
func (c *Compiler) expandPartial(ref string, st *walkState, data annotation.Data) []Node {
	if st.depth >= maxPartialDepth {
		return nil
	}

	var file *template.File
	var key string
	for _, candidate := range partialCandidates(ref, c.viewsRoot, st.dir) {
		key = filepath.Clean(candidate)
		if st.visited[key] {
			return nil
		}
		f, err := c.loader.Load(candidate)
		if err != nil {
			continue
		}
		file = f
		break
	}
	if file == nil {
		return nil
	}

	// Guard the current inclusion chain only: the same partial may appear
	// several times as siblings, but never inside itself.
	st.visited[key] = true
	defer delete(st.visited, key)

	sub := &walkState{
		ann:       indexAnnotations(file.Comments),
		dir:       filepath.Dir(file.Path),
		visited:   st.visited,
		depth:     st.depth + 1,
		condDepth: st.condDepth,
		res:       st.res,
	}
	children := c.walkStmts(file.Statements, sub, false)

	if c.KeepPartials {
		return []Node{&PartialNode{Path: ref, Data: data, Children: children}}
	}
	return children
}
