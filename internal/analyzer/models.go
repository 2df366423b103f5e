package analyzer

import (
	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/annotation"
)

// MissingDescription marks properties whose template call had no annotation
// comment. They still compile (as strings) so the document stays valid, and
// they are collected on Result.Missing for coverage reporting.
const MissingDescription = "No description provided"

// Node is one piece of the JSON shape a template emits. Exactly four variants
// exist: PropertyNode, ObjectNode, ArrayNode and PartialNode.
type Node interface {
	Name() string
	Annotation() annotation.Data
}

// PropertyNode is a leaf: one emitted value.
type PropertyNode struct {
	PropName          string
	Data              annotation.Data
	MissingAnnotation bool
	Line              int
}

func (n *PropertyNode) Name() string                { return n.PropName }
func (n *PropertyNode) Annotation() annotation.Data { return n.Data }

// ObjectNode is a nested JSON object. PropName is empty only at the tree root.
type ObjectNode struct {
	PropName string
	Data     annotation.Data
	Children []Node
}

func (n *ObjectNode) Name() string                { return n.PropName }
func (n *ObjectNode) Annotation() annotation.Data { return n.Data }

// ArrayNode is a JSON array. RootArray distinguishes "the entire response is
// an array" from "this property is an array".
type ArrayNode struct {
	PropName  string
	Data      annotation.Data
	Items     []Node
	RootArray bool
}

func (n *ArrayNode) Name() string                { return n.PropName }
func (n *ArrayNode) Annotation() annotation.Data { return n.Data }

// PartialNode wraps the nodes contributed by a reusable sub-template. The
// compiler normally flattens partials away; with KeepPartials set the wrapper
// survives so the schema compiler can emit a $ref instead of inlining.
type PartialNode struct {
	Path     string
	Data     annotation.Data
	Children []Node
}

func (n *PartialNode) Name() string                { return n.Path }
func (n *PartialNode) Annotation() annotation.Data { return n.Data }

// EffectiveRequired reports whether a node counts toward its parent's
// required list. A conditional node is never required, whatever its literal
// required flag says.
func EffectiveRequired(n Node) bool {
	ann := n.Annotation()
	return ann.IsRequired() && !ann.Conditional
}

// Result is the output of compiling one top-level template.
type Result struct {
	Path       string
	Root       Node
	Operation  *annotation.OperationDirective
	Parameters []annotation.ParameterDirective
	Missing    []*PropertyNode
}
