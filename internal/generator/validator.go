package generator

import (
	"regexp"
)

var pathTemplateRe = regexp.MustCompile(`\{([^}]+)\}`)

// validatePaths reconciles each operation's declared parameters with the
// parameters its path template actually names: stray path parameters are
// dropped, missing ones are added with a string schema.
func (g *Generator) validatePaths(spec *OpenAPISpec) {
	for path, pathItem := range spec.Paths {
		pathParams := pathTemplateRe.FindAllStringSubmatch(path, -1)

		g.validateOperationParameters(pathItem.Get, pathParams)
		g.validateOperationParameters(pathItem.Post, pathParams)
		g.validateOperationParameters(pathItem.Put, pathParams)
		g.validateOperationParameters(pathItem.Delete, pathParams)
		g.validateOperationParameters(pathItem.Patch, pathParams)

		spec.Paths[path] = pathItem
	}
}

func (g *Generator) validateOperationParameters(operation *Operation, pathParams [][]string) {
	if operation == nil {
		return
	}

	expectedParams := make(map[string]bool)
	for _, param := range pathParams {
		if len(param) > 1 {
			expectedParams[param[1]] = true
		}
	}

	validParams := []Parameter{}
	for _, param := range operation.Parameters {
		if param.In == "path" {
			if expectedParams[param.Name] {
				validParams = append(validParams, param)
			}
		} else {
			validParams = append(validParams, param)
		}
	}

	for paramName := range expectedParams {
		found := false
		for _, param := range validParams {
			if param.In == "path" && param.Name == paramName {
				found = true
				break
			}
		}
		if !found {
			validParams = append(validParams, Parameter{
				Name:     paramName,
				In:       "path",
				Required: true,
				Schema:   &Schema{Type: "string"},
			})
		}
	}

	operation.Parameters = validParams
}
