package analyzer

import (
	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/template"
)

// rootReceiver is the implicit builder object every schema-shaping call is
// made on.
const rootReceiver = "json"

// Primitive is the schema meaning assigned to one template call.
type Primitive int

const (
	// Unclassified calls (helpers, locals, anything not on the builder)
	// produce no node; their blocks are still walked for nested calls.
	Unclassified Primitive = iota
	// PropertyCall covers scalar properties and, when the call carries a
	// block with parameters, array iteration over a collection.
	PropertyCall
	// ObjectBlock is a builder call with a parameterless block: a nested
	// object whose shape is the block body.
	ObjectBlock
	// ArrayDeclaration is `array!`: the enclosing value is an array.
	ArrayDeclaration
	// PartialReference pulls in a reusable sub-template.
	PartialReference
	// PropertyExtraction is `extract!`: one property per symbol argument.
	PropertyExtraction
	// NoOpDirective configures the builder without emitting anything;
	// an attached block is walked transparently.
	NoOpDirective
)

func (p Primitive) String() string {
	switch p {
	case PropertyCall:
		return "property"
	case ObjectBlock:
		return "object"
	case ArrayDeclaration:
		return "array"
	case PartialReference:
		return "partial"
	case PropertyExtraction:
		return "extract"
	case NoOpDirective:
		return "noop"
	default:
		return "unclassified"
	}
}

// noopNames are builder directives that configure output (caching, key
// formatting, nil handling, merging) without introducing a property of their
// own.
var noopNames = map[string]bool{
	"cache!":            true,
	"cache_if!":         true,
	"cache_root!":       true,
	"key_format!":       true,
	"deep_format_keys!": true,
	"ignore_nil!":       true,
	"nil!":              true,
	"null!":             true,
	"merge!":            true,
	"set!":              true,
	"child!":            true,
}

type matcher func(c *template.Call) (Primitive, bool)

// matchers run in priority order; the first match wins. The catch-all
// property matcher must come last: every builder call that is not a special
// directive names a property.
var matchers = []matcher{
	matchArray,
	matchPartial,
	matchNoop,
	matchExtract,
	matchProperty,
}

// Classify assigns a schema primitive to one call.
func Classify(c *template.Call) Primitive {
	for _, m := range matchers {
		if p, ok := m(c); ok {
			return p
		}
	}
	return Unclassified
}

func matchArray(c *template.Call) (Primitive, bool) {
	if c.Receiver == rootReceiver && c.Name == "array!" {
		return ArrayDeclaration, true
	}
	return Unclassified, false
}

func matchPartial(c *template.Call) (Primitive, bool) {
	if c.Receiver == rootReceiver && c.Name == "partial!" {
		return PartialReference, true
	}
	return Unclassified, false
}

func matchNoop(c *template.Call) (Primitive, bool) {
	if c.Receiver == rootReceiver && noopNames[c.Name] {
		return NoOpDirective, true
	}
	return Unclassified, false
}

func matchExtract(c *template.Call) (Primitive, bool) {
	if c.Receiver == rootReceiver && c.Name == "extract!" {
		return PropertyExtraction, true
	}
	return Unclassified, false
}

func matchProperty(c *template.Call) (Primitive, bool) {
	if c.Receiver != rootReceiver {
		return Unclassified, false
	}
	if c.Block != nil && len(c.Block.Params) == 0 {
		return ObjectBlock, true
	}
	return PropertyCall, true
}
