package template

// The types in this file are the language-agnostic parse tree consumed by the
// analyzer. The tree-sitter adapter in parser.go produces them from jbuilder
// source; tests build them by hand.

type File struct {
	Path       string
	Statements []Stmt
	Comments   []Comment
}

// Stmt is either *Call or *Conditional.
type Stmt interface {
	Line() int
}

// Call is one method call statement, e.g. `json.id @user.id` or
// `json.comments @post.comments do |c| ... end`.
type Call struct {
	StartLine int
	Receiver  string // "json" for templating calls, "" for bare calls
	Name      string
	Args      []Arg
	Block     *Block
}

func (c *Call) Line() int { return c.StartLine }

// Block is a do/end or brace block attached to a call. Params holds block
// parameter names (`|comment|`); an iteration block has at least one.
type Block struct {
	Params     []string
	Statements []Stmt
}

// Conditional is an if/unless/elsif/else chain. Each branch's statements are
// kept; the condition expressions themselves are not schema-relevant.
type Conditional struct {
	StartLine int
	Branches  []Branch
}

func (c *Conditional) Line() int { return c.StartLine }

type Branch struct {
	Statements []Stmt
}

// Comment is one comment line with its 1-based source line.
type Comment struct {
	CommentLine int
	Text        string
}

type ArgKind int

const (
	ArgExpr ArgKind = iota // arbitrary expression, Raw holds source text
	ArgString
	ArgSymbol
	ArgHash
)

// Arg is one call argument. String literals and symbols are decoded because
// partial paths and extract! attribute names arrive through them; everything
// else stays raw.
type Arg struct {
	Kind  ArgKind
	Str   string // ArgString: literal content without quotes; ArgSymbol: name without colon
	Pairs []HashPair
	Raw   string
}

type HashPair struct {
	Key   string
	Value Arg
}

// HashValue returns the value for key among the call's trailing hash
// arguments, if present.
func (c *Call) HashValue(key string) (Arg, bool) {
	for _, a := range c.Args {
		if a.Kind != ArgHash {
			continue
		}
		for _, p := range a.Pairs {
			if p.Key == key {
				return p.Value, true
			}
		}
	}
	return Arg{}, false
}

// FirstString returns the first string-literal argument.
func (c *Call) FirstString() (string, bool) {
	for _, a := range c.Args {
		if a.Kind == ArgString {
			return a.Str, true
		}
	}
	return "", false
}

// SymbolArgs returns all symbol arguments in order.
func (c *Call) SymbolArgs() []string {
	var syms []string
	for _, a := range c.Args {
		if a.Kind == ArgSymbol {
			syms = append(syms, a.Str)
		}
	}
	return syms
}

// PositionalCount counts the non-hash arguments.
func (c *Call) PositionalCount() int {
	n := 0
	for _, a := range c.Args {
		if a.Kind != ArgHash {
			n++
		}
	}
	return n
}
