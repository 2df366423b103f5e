package generator

import (
	"strings"
)

// removeInvalidReferences degrades $ref schemas whose target component does
// not exist (a partial that compiled to nothing, for example) to a plain
// object, so the emitted document always validates.
func (g *Generator) removeInvalidReferences(spec *OpenAPISpec) {
	validSchemas := make(map[string]bool)
	for name := range spec.Components.Schemas {
		validSchemas[name] = true
	}

	for name, schema := range spec.Components.Schemas {
		spec.Components.Schemas[name] = g.removeInvalidRefsFromSchema(schema, validSchemas)
	}

	for path, pathItem := range spec.Paths {
		pathItem.Get = g.removeInvalidRefsFromOperation(pathItem.Get, validSchemas)
		pathItem.Post = g.removeInvalidRefsFromOperation(pathItem.Post, validSchemas)
		pathItem.Put = g.removeInvalidRefsFromOperation(pathItem.Put, validSchemas)
		pathItem.Delete = g.removeInvalidRefsFromOperation(pathItem.Delete, validSchemas)
		pathItem.Patch = g.removeInvalidRefsFromOperation(pathItem.Patch, validSchemas)
		spec.Paths[path] = pathItem
	}
}

func (g *Generator) removeInvalidRefsFromSchema(schema *Schema, validSchemas map[string]bool) *Schema {
	if schema == nil {
		return nil
	}

	if schema.Ref != "" {
		schemaName := strings.TrimPrefix(schema.Ref, "#/components/schemas/")
		if !validSchemas[schemaName] {
			return &Schema{Type: "object"}
		}
	}

	if schema.Properties != nil {
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			schema.Properties.Set(pair.Key, g.removeInvalidRefsFromSchema(pair.Value, validSchemas))
		}
	}

	if schema.Items != nil {
		schema.Items = g.removeInvalidRefsFromSchema(schema.Items, validSchemas)
	}

	if additional, ok := schema.AdditionalProperties.(*Schema); ok {
		schema.AdditionalProperties = g.removeInvalidRefsFromSchema(additional, validSchemas)
	}

	return schema
}

func (g *Generator) removeInvalidRefsFromOperation(operation *Operation, validSchemas map[string]bool) *Operation {
	if operation == nil {
		return nil
	}

	if operation.RequestBody != nil {
		for mediaType, content := range operation.RequestBody.Content {
			content.Schema = g.removeInvalidRefsFromSchema(content.Schema, validSchemas)
			operation.RequestBody.Content[mediaType] = content
		}
	}

	for statusCode, response := range operation.Responses {
		for mediaType, content := range response.Content {
			content.Schema = g.removeInvalidRefsFromSchema(content.Schema, validSchemas)
			response.Content[mediaType] = content
		}
		operation.Responses[statusCode] = response
	}

	return operation
}
