package generator

import (
	"strings"

	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/annotation"
)

func (g *Generator) generateOperation(route CompiledRoute) *Operation {
	operation := &Operation{
		Tags:        route.Tags,
		Summary:     g.generateSummary(route),
		Description: route.Description,
		OperationID: g.generateOperationID(route),
		Responses:   make(map[string]Response),
	}

	status := "200"
	if route.Result != nil && route.Result.Operation != nil {
		dir := route.Result.Operation
		if dir.Summary != "" {
			operation.Summary = dir.Summary
		}
		if dir.Description != "" {
			operation.Description = dir.Description
		}
		if dir.OperationID != "" {
			operation.OperationID = dir.OperationID
		}
		if len(dir.Tags) > 0 {
			operation.Tags = dir.Tags
		}
		if dir.Status != "" {
			status = dir.Status
		}
	}

	if route.Result != nil {
		for _, param := range route.Result.Parameters {
			if param.In == "body" {
				operation.RequestBody = g.generateRequestBody(param)
				continue
			}
			operation.Parameters = append(operation.Parameters, Parameter{
				Name:        param.Name,
				In:          param.In,
				Required:    param.Data.IsRequired(),
				Description: param.Data.Description,
				Schema:      parameterSchema(param.Data),
				Example:     exampleValue(param.Data),
			})
		}
	}

	response := Response{Description: responseDescription(status)}
	if route.Result != nil {
		if schema, ok := g.CompileSchema(route.Result.Root); ok {
			response.Content = map[string]MediaType{
				"application/json": {Schema: schema},
			}
		}
	}
	operation.Responses[status] = response

	operation.Responses["400"] = Response{
		Description: "Bad request",
		Content: map[string]MediaType{
			"application/json": {
				Schema: &Schema{Ref: "#/components/schemas/ErrorResponse"},
			},
		},
	}
	operation.Responses["500"] = Response{
		Description: "Internal server error",
		Content: map[string]MediaType{
			"application/json": {
				Schema: &Schema{Ref: "#/components/schemas/ErrorResponse"},
			},
		},
	}

	return operation
}

func (g *Generator) generateRequestBody(param annotation.ParameterDirective) *RequestBody {
	return &RequestBody{
		Description: param.Data.Description,
		Required:    param.Data.IsRequired(),
		Content: map[string]MediaType{
			"application/json": {Schema: parameterSchema(param.Data)},
		},
	}
}

func parameterSchema(data annotation.Data) *Schema {
	typ, format := data.EffectiveType()
	schema := &Schema{Type: typ, Format: format, Enum: data.Enum}
	if typ == "array" {
		schema.Items = itemTypeSchema(data.Items)
	}
	if typ == "object" {
		schema.AdditionalProperties = true
	}
	return schema
}

func exampleValue(data annotation.Data) interface{} {
	if data.Example == "" {
		return nil
	}
	return data.Example
}

func responseDescription(status string) string {
	switch status {
	case "200":
		return "Successful operation"
	case "201":
		return "Resource created"
	case "202":
		return "Request accepted"
	case "204":
		return "No content"
	default:
		return "Response"
	}
}

func (g *Generator) generateOperationID(route CompiledRoute) string {
	method := strings.ToLower(route.Method)
	path := g.convertPathFormat(route.Path)

	path = strings.ReplaceAll(path, "/", "_")
	path = strings.ReplaceAll(path, "{", "")
	path = strings.ReplaceAll(path, "}", "")
	path = strings.ReplaceAll(path, "-", "_")
	path = strings.TrimPrefix(path, "_")

	return method + "_" + path
}

func (g *Generator) generateSummary(route CompiledRoute) string {
	action := g.getActionFromMethod(strings.ToUpper(route.Method))
	resource := g.getResourceFromPath(route.Path)
	return action + " " + resource
}

func (g *Generator) getActionFromMethod(method string) string {
	actions := map[string]string{
		"GET":    "Get",
		"POST":   "Create",
		"PUT":    "Update",
		"DELETE": "Delete",
		"PATCH":  "Patch",
	}

	if action, exists := actions[method]; exists {
		return action
	}
	return method
}

func (g *Generator) getResourceFromPath(path string) string {
	parts := strings.Split(path, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" && !strings.HasPrefix(parts[i], ":") && !strings.HasPrefix(parts[i], "{") {
			return strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return "Resource"
}
