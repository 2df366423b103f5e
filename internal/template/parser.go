// Package template reduces jbuilder source to the parse tree the analyzer
// consumes. It walks the tree-sitter concrete syntax tree and keeps only the
// statements that can shape JSON output: calls, blocks, and conditionals,
// plus every comment line so annotations can be matched up later.
package template

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"
)

// Parse parses jbuilder source into a File. Constructs the reducer does not
// model (loops other than blocks, case statements, assignments) contribute
// whatever calls they contain and nothing else.
func Parse(path string, source []byte) (*File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(ruby.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	file := &File{Path: path}
	for _, child := range namedChildren(root) {
		file.Statements = append(file.Statements, reduceStmt(child, source)...)
	}
	collectComments(root, source, file)
	return file, nil
}

// ParseFile reads and parses one template file from disk.
func ParseFile(path string) (*File, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, source)
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	result := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, n.NamedChild(i))
	}
	return result
}

func content(n *sitter.Node, source []byte) string {
	return n.Content(source)
}

func lineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// reduceStmt converts one CST node into zero or more statements.
func reduceStmt(n *sitter.Node, source []byte) []Stmt {
	if n == nil {
		return nil
	}

	switch n.Type() {
	case "comment":
		return nil

	case "call":
		if call := reduceCall(n, source); call != nil {
			return []Stmt{call}
		}
		return nil

	case "if", "unless":
		if cond := reduceConditional(n, source); cond != nil {
			return []Stmt{cond}
		}
		return nil

	case "if_modifier", "unless_modifier":
		// `json.foo x if cond` — the guarded statement becomes a
		// single-branch conditional.
		body := n.ChildByFieldName("body")
		if body == nil && n.NamedChildCount() > 0 {
			body = n.NamedChild(0)
		}
		inner := reduceStmt(body, source)
		if len(inner) == 0 {
			return nil
		}
		return []Stmt{&Conditional{
			StartLine: lineOf(n),
			Branches:  []Branch{{Statements: inner}},
		}}

	case "then", "else", "begin", "body_statement", "parenthesized_statements":
		var stmts []Stmt
		for _, child := range namedChildren(n) {
			stmts = append(stmts, reduceStmt(child, source)...)
		}
		return stmts

	default:
		// Walk unknown constructs for the calls they contain.
		var stmts []Stmt
		for _, child := range namedChildren(n) {
			stmts = append(stmts, reduceStmt(child, source)...)
		}
		return stmts
	}
}

// reduceConditional flattens an if/elsif/else chain into one Conditional
// whose branches hold the statements of each arm. Condition expressions are
// dropped; only the shape of what each arm emits matters.
func reduceConditional(n *sitter.Node, source []byte) *Conditional {
	cond := &Conditional{StartLine: lineOf(n)}
	for cur := n; cur != nil; {
		if body := cur.ChildByFieldName("consequence"); body != nil {
			cond.Branches = append(cond.Branches, Branch{Statements: reduceStmt(body, source)})
		}
		alt := cur.ChildByFieldName("alternative")
		if alt == nil {
			break
		}
		switch alt.Type() {
		case "elsif":
			cur = alt
		default: // "else"
			if stmts := reduceStmt(alt, source); len(stmts) > 0 {
				cond.Branches = append(cond.Branches, Branch{Statements: stmts})
			}
			cur = nil
		}
	}
	if len(cond.Branches) == 0 {
		return nil
	}
	return cond
}

func reduceCall(n *sitter.Node, source []byte) *Call {
	methodNode := n.ChildByFieldName("method")
	if methodNode == nil {
		return nil
	}

	call := &Call{
		StartLine: lineOf(n),
		Name:      content(methodNode, source),
	}
	if recv := n.ChildByFieldName("receiver"); recv != nil {
		call.Receiver = content(recv, source)
	}
	if args := n.ChildByFieldName("arguments"); args != nil {
		call.Args = reduceArgs(args, source)
	}
	if block := n.ChildByFieldName("block"); block != nil {
		call.Block = reduceBlock(block, source)
	}
	return call
}

func reduceBlock(n *sitter.Node, source []byte) *Block {
	block := &Block{}
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "block_parameters":
			for _, param := range namedChildren(child) {
				if param.Type() == "identifier" {
					block.Params = append(block.Params, content(param, source))
				}
			}
		case "body_statement", "block_body":
			for _, stmt := range namedChildren(child) {
				block.Statements = append(block.Statements, reduceStmt(stmt, source)...)
			}
		default:
			block.Statements = append(block.Statements, reduceStmt(child, source)...)
		}
	}
	return block
}

// reduceArgs flattens an argument_list. Loose keyword pairs (`partial: 'x'`)
// are gathered into a single trailing hash argument, matching Ruby semantics.
func reduceArgs(n *sitter.Node, source []byte) []Arg {
	var args []Arg
	var pairs []HashPair
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "pair":
			if p, ok := reducePair(child, source); ok {
				pairs = append(pairs, p)
			}
		case "hash":
			var hp []HashPair
			for _, pc := range namedChildren(child) {
				if pc.Type() == "pair" {
					if p, ok := reducePair(pc, source); ok {
						hp = append(hp, p)
					}
				}
			}
			args = append(args, Arg{Kind: ArgHash, Pairs: hp, Raw: content(child, source)})
		default:
			args = append(args, reduceValue(child, source))
		}
	}
	if len(pairs) > 0 {
		args = append(args, Arg{Kind: ArgHash, Pairs: pairs})
	}
	return args
}

func reducePair(n *sitter.Node, source []byte) (HashPair, bool) {
	keyNode := n.ChildByFieldName("key")
	valNode := n.ChildByFieldName("value")
	if keyNode == nil || valNode == nil {
		return HashPair{}, false
	}
	key := content(keyNode, source)
	switch keyNode.Type() {
	case "simple_symbol":
		key = strings.TrimPrefix(key, ":")
	case "string":
		key = stringContent(keyNode, source)
	}
	return HashPair{Key: key, Value: reduceValue(valNode, source)}, true
}

func reduceValue(n *sitter.Node, source []byte) Arg {
	switch n.Type() {
	case "string":
		return Arg{Kind: ArgString, Str: stringContent(n, source), Raw: content(n, source)}
	case "simple_symbol":
		return Arg{Kind: ArgSymbol, Str: strings.TrimPrefix(content(n, source), ":"), Raw: content(n, source)}
	default:
		return Arg{Kind: ArgExpr, Raw: content(n, source)}
	}
}

func stringContent(n *sitter.Node, source []byte) string {
	for _, child := range namedChildren(n) {
		if child.Type() == "string_content" {
			return content(child, source)
		}
	}
	text := content(n, source)
	if len(text) >= 2 {
		return text[1 : len(text)-1]
	}
	return text
}

func collectComments(n *sitter.Node, source []byte, file *File) {
	if n.Type() == "comment" {
		file.Comments = append(file.Comments, Comment{
			CommentLine: lineOf(n),
			Text:        content(n, source),
		})
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectComments(n.Child(i), source, file)
	}
}
