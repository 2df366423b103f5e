package generator

import (
	"regexp"
	"strings"
)

var pathParamRe = regexp.MustCompile(`:([a-zA-Z][a-zA-Z0-9_]*)`)

// convertPathFormat rewrites router-style :param segments to {param}.
func (g *Generator) convertPathFormat(path string) string {
	converted := pathParamRe.ReplaceAllString(path, "{$1}")

	if !strings.HasPrefix(converted, "/") {
		converted = "/" + converted
	}

	return converted
}
