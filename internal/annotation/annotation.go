// Package annotation parses the structured comment lines that carry schema
// metadata for template calls. One line yields at most one directive; lines
// that do not match the grammar are ignored rather than rejected, since
// templates are full of ordinary comments.
package annotation

import (
	"regexp"
	"strconv"
	"strings"
)

// Data is the schema metadata attached to one emitted value.
// The zero value means "annotated with nothing": type defaults to string and
// required defaults to true through the accessor methods.
type Data struct {
	Type        string
	Description string
	Required    *bool
	Enum        []string
	Items       string
	Format      string
	Example     string
	Conditional bool
	Extra       map[string]string
}

// IsRequired reports the literal required flag, defaulting to true.
// Conditional handling is layered on top by the analyzer (a conditional
// value is never required, whatever this returns).
func (d Data) IsRequired() bool {
	return d.Required == nil || *d.Required
}

// EffectiveType normalizes the date/time aliases, which are not valid schema
// types, to "string" plus the matching format. An explicit format wins.
func (d Data) EffectiveType() (typ, format string) {
	typ = d.Type
	if typ == "" {
		typ = "string"
	}
	format = d.Format
	switch typ {
	case "date-time", "datetime":
		typ = "string"
		if format == "" {
			format = "date-time"
		}
	case "date":
		typ = "string"
		if format == "" {
			format = "date"
		}
	case "time":
		typ = "string"
		if format == "" {
			format = "time"
		}
	}
	return typ, format
}

// Merge combines two annotations, fields set on other winning.
func (d Data) Merge(other Data) Data {
	merged := d
	if other.Type != "" {
		merged.Type = other.Type
	}
	if other.Description != "" {
		merged.Description = other.Description
	}
	if other.Required != nil {
		merged.Required = other.Required
	}
	if len(other.Enum) > 0 {
		merged.Enum = other.Enum
	}
	if other.Items != "" {
		merged.Items = other.Items
	}
	if other.Format != "" {
		merged.Format = other.Format
	}
	if other.Example != "" {
		merged.Example = other.Example
	}
	if other.Conditional {
		merged.Conditional = true
	}
	if len(other.Extra) > 0 {
		if merged.Extra == nil {
			merged.Extra = make(map[string]string, len(other.Extra))
		}
		for k, v := range other.Extra {
			merged.Extra[k] = v
		}
	}
	return merged
}

// Directive is the discriminated result of parsing one line.
type Directive interface{ directive() }

// FieldDirective annotates the property emitted by the next call.
type FieldDirective struct {
	Name string
	Data Data
}

// OperationDirective carries operation-level metadata for the whole template.
type OperationDirective struct {
	Summary     string
	Description string
	OperationID string
	Tags        []string
	Status      string
}

// ParameterDirective declares a request parameter (path, query or body).
type ParameterDirective struct {
	In   string
	Name string
	Data Data
}

// ConditionalDirective is the bare `@conditional` marker.
type ConditionalDirective struct{}

func (FieldDirective) directive()       {}
func (OperationDirective) directive()   {}
func (ParameterDirective) directive()   {}
func (ConditionalDirective) directive() {}

var directiveRe = regexp.MustCompile(`^\s*#+\s*@([A-Za-z_][A-Za-z0-9_-]*)\s*(.*)$`)

// Parse parses one comment line. It returns nil when the line carries no
// recognized directive; malformed lines are never an error.
func Parse(line string) Directive {
	m := directiveRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	keyword, rest := m[1], strings.TrimSpace(m[2])

	switch keyword {
	case "conditional":
		return ConditionalDirective{}
	case "field":
		name, data, ok := parseSubject(rest)
		if !ok {
			return nil
		}
		return FieldDirective{Name: name, Data: data}
	case "path", "query", "body":
		name, data, ok := parseSubject(rest)
		if !ok {
			return nil
		}
		return ParameterDirective{In: keyword, Name: name, Data: data}
	case "operation":
		return parseOperation(rest)
	default:
		return nil
	}
}

// parseSubject reads the leading name:type pair and the trailing attributes.
func parseSubject(rest string) (string, Data, bool) {
	tokens := splitTokens(rest)
	if len(tokens) == 0 {
		return "", Data{}, false
	}
	name, typ, ok := splitPair(tokens[0])
	if !ok || name == "" {
		return "", Data{}, false
	}
	data := Data{Type: unquote(typ)}
	applyAttributes(&data, tokens[1:])
	return name, data, true
}

func parseOperation(rest string) Directive {
	op := OperationDirective{}
	for _, tok := range splitTokens(rest) {
		key, value, ok := splitPair(tok)
		if !ok {
			continue
		}
		switch key {
		case "summary":
			op.Summary = unquote(value)
		case "description":
			op.Description = unquote(value)
		case "operationId":
			op.OperationID = unquote(value)
		case "tags":
			op.Tags = parseList(value)
		case "status":
			op.Status = unquote(value)
		}
	}
	return op
}

func applyAttributes(data *Data, tokens []string) {
	for _, tok := range tokens {
		key, value, ok := splitPair(tok)
		if !ok {
			continue
		}
		switch key {
		case "required":
			if b, err := strconv.ParseBool(unquote(value)); err == nil {
				data.Required = &b
			}
		case "description":
			data.Description = unquote(value)
		case "enum":
			data.Enum = parseList(value)
		case "items":
			data.Items = unquote(value)
		case "format":
			data.Format = unquote(value)
		case "example":
			data.Example = unquote(value)
		case "conditional":
			if b, err := strconv.ParseBool(unquote(value)); err == nil {
				data.Conditional = b
			}
		default:
			// Unknown attributes ride along untouched.
			if data.Extra == nil {
				data.Extra = make(map[string]string)
			}
			data.Extra[key] = unquote(value)
		}
	}
}

// splitTokens splits on whitespace, keeping double-quoted strings and
// bracketed lists intact within a token.
func splitTokens(s string) []string {
	var tokens []string
	var b strings.Builder
	inQuote := false
	depth := 0
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '[' && !inQuote:
			depth++
			b.WriteRune(r)
		case r == ']' && !inQuote && depth > 0:
			depth--
			b.WriteRune(r)
		case (r == ' ' || r == '\t') && !inQuote && depth == 0:
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// splitPair splits key:value at the first colon outside the value.
func splitPair(token string) (string, string, bool) {
	idx := strings.Index(token, ":")
	if idx <= 0 {
		return "", "", false
	}
	return token[:idx], token[idx+1:], true
}

func parseList(value string) []string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		value = value[1 : len(value)-1]
	}
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = unquote(strings.TrimSpace(p))
		if p != "" {
			items = append(items, p)
		}
	}
	return items
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
