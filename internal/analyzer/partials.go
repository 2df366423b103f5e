package analyzer

import (
	"path/filepath"
	"strings"

	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/template"
)

// Loader supplies parsed templates to the compiler. The disk loader is the
// production implementation; tests substitute an in-memory map.
type Loader interface {
	Load(path string) (*template.File, error)
}

// FSLoader reads templates from disk.
type FSLoader struct{}

func (FSLoader) Load(path string) (*template.File, error) {
	return template.ParseFile(path)
}

// FuncLoader adapts a function to the Loader interface.
type FuncLoader func(path string) (*template.File, error)

func (f FuncLoader) Load(path string) (*template.File, error) { return f(path) }

// partialSuffixes are tried in order when resolving a partial reference that
// does not already name a concrete file.
var partialSuffixes = []string{".json.jbuilder", ".jbuilder"}

// partialCandidates maps a partial reference to the file paths it may live
// at. A slash-qualified reference ("users/user") resolves under the views
// root; a bare reference resolves beside the including file. The partial
// file name carries the conventional leading underscore.
func partialCandidates(ref, viewsRoot, currentDir string) []string {
	if ref == "" {
		return nil
	}

	var dir, name string
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		dir = filepath.Join(viewsRoot, filepath.FromSlash(ref[:i]))
		name = ref[i+1:]
	} else {
		dir = currentDir
		name = ref
	}
	if name == "" {
		return nil
	}
	if !strings.HasPrefix(name, "_") {
		name = "_" + name
	}

	if strings.Contains(name, ".") {
		return []string{filepath.Join(dir, name)}
	}
	candidates := make([]string, 0, len(partialSuffixes))
	for _, suffix := range partialSuffixes {
		candidates = append(candidates, filepath.Join(dir, name+suffix))
	}
	return candidates
}

// ComponentName derives a schema component name from a partial reference:
// "users/user" becomes "UsersUser".
func ComponentName(ref string) string {
	ref = strings.TrimSuffix(ref, ".json.jbuilder")
	ref = strings.TrimSuffix(ref, ".jbuilder")
	var b strings.Builder
	for _, part := range strings.FieldsFunc(ref, func(r rune) bool {
		return r == '/' || r == '_' || r == '-' || r == '.'
	}) {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
