package generator

import (
	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/analyzer"
	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/annotation"
)

// CompileSchema builds the response schema for a compiled template tree. The
// second return is false for degenerate schemas (an object that gained no
// properties, an array with no item information); callers skip those rather
// than emit an empty body.
func (g *Generator) CompileSchema(root analyzer.Node) (*Schema, bool) {
	if root == nil {
		return nil, false
	}
	schema := g.schemaFor(root)
	return schema, !degenerate(schema)
}

func degenerate(s *Schema) bool {
	switch {
	case s == nil:
		return true
	case s.Ref != "":
		return false
	case s.Type == "object":
		return (s.Properties == nil || s.Properties.Len() == 0) && s.AdditionalProperties == nil
	case s.Type == "array":
		// An array of featureless objects says nothing about the body.
		return s.Items == nil || degenerate(s.Items)
	default:
		return false
	}
}

func (g *Generator) schemaFor(node analyzer.Node) *Schema {
	switch n := node.(type) {
	case *analyzer.PropertyNode:
		return propertySchema(n.Data)
	case *analyzer.ObjectNode:
		return g.objectSchema(n.Data, n.Children)
	case *analyzer.ArrayNode:
		return g.arraySchema(n)
	case *analyzer.PartialNode:
		return g.partialSchema(n)
	default:
		return &Schema{Type: "object"}
	}
}

func propertySchema(data annotation.Data) *Schema {
	typ, format := data.EffectiveType()
	schema := &Schema{
		Type:        typ,
		Format:      format,
		Description: data.Description,
		Enum:        data.Enum,
	}
	if data.Example != "" {
		schema.Example = data.Example
	}
	switch typ {
	case "array":
		// Leaf arrays carry their element type on the annotation.
		schema.Items = itemTypeSchema(data.Items)
	case "object":
		schema.AdditionalProperties = true
	}
	return schema
}

// itemTypeSchema maps an annotated items type name to a schema, defaulting
// to string.
func itemTypeSchema(items string) *Schema {
	data := annotation.Data{Type: items}
	typ, format := data.EffectiveType()
	return &Schema{Type: typ, Format: format}
}

func (g *Generator) objectSchema(data annotation.Data, children []analyzer.Node) *Schema {
	schema := &Schema{Type: "object", Description: data.Description}
	if len(children) == 0 {
		return schema
	}

	schema.Properties = NewProperties()
	var required []string
	for _, child := range children {
		if partial, ok := child.(*analyzer.PartialNode); ok {
			// A partial at property position merges its fields into
			// the enclosing object; only array items reference the
			// shared component.
			sub := g.objectSchema(partial.Data, partial.Children)
			if sub.Properties != nil {
				for pair := sub.Properties.Oldest(); pair != nil; pair = pair.Next() {
					schema.Properties.Set(pair.Key, pair.Value)
				}
			}
			required = append(required, sub.Required...)
			continue
		}
		name := child.Name()
		if name == "" {
			continue
		}
		schema.Properties.Set(name, g.schemaFor(child))
		if analyzer.EffectiveRequired(child) {
			required = append(required, name)
		}
	}
	if schema.Properties.Len() == 0 {
		schema.Properties = nil
	}
	schema.Required = required
	return schema
}

func (g *Generator) arraySchema(n *analyzer.ArrayNode) *Schema {
	schema := &Schema{Type: "array", Description: n.Data.Description}

	switch {
	case len(n.Items) == 1:
		if partial, ok := n.Items[0].(*analyzer.PartialNode); ok {
			schema.Items = g.partialSchema(partial)
			return schema
		}
		fallthrough
	case len(n.Items) > 1:
		// The item nodes are the properties of each element.
		schema.Items = g.objectSchema(annotation.Data{}, n.Items)
	case n.Data.Items != "":
		schema.Items = itemTypeSchema(n.Data.Items)
	default:
		schema.Items = &Schema{Type: "object"}
	}
	return schema
}

// partialSchema compiles a kept partial wrapper. In component mode the
// partial becomes a named component compiled once and referenced; otherwise
// its contents inline as an object.
func (g *Generator) partialSchema(n *analyzer.PartialNode) *Schema {
	inline := g.objectSchema(n.Data, n.Children)
	if !g.config.UseComponents {
		return inline
	}

	name := analyzer.ComponentName(n.Path)
	if name == "" {
		return inline
	}
	if g.components == nil {
		g.components = make(map[string]*Schema)
	}
	if _, exists := g.components[name]; !exists {
		g.components[name] = inline
	}
	return &Schema{Ref: "#/components/schemas/" + name}
}
