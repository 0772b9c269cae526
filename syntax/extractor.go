// Package syntax provides a tree-sitter based extraction backend for
// JavaScript and TypeScript. Instead of counting braces it finds the object
// literal bound to the registry name and the call expressions that reference
// prompts in the parsed syntax tree.
package syntax

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/c360studio/promptcheck/extract"
	"github.com/c360studio/promptcheck/reference"
	"github.com/c360studio/promptcheck/registry"
	"github.com/c360studio/promptcheck/source"
)

// Name is the backend name registered with extract.DefaultBackends.
const Name = "syntax"

var bindingRe = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*`)

func init() {
	extract.DefaultBackends.Register(Name,
		[]string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"},
		func() extract.Extractor {
			return NewExtractor()
		})
}

// Extractor extracts declarations and references using tree-sitter.
type Extractor struct{}

// NewExtractor creates a new tree-sitter extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Declarations implements extract.Extractor. The registry is the object
// literal assigned to the last identifier of the anchor, so the anchor
// "export const DEFAULT_PROMPTS" selects `DEFAULT_PROMPTS = { ... }`.
func (e *Extractor) Declarations(ctx context.Context, text source.Text, opts registry.ParseOptions) (*registry.Registry, error) {
	anchor := opts.Anchor
	if anchor == "" {
		anchor = registry.DefaultAnchor
	}
	binding := bindingName(anchor)
	if binding == "" {
		return registry.New(), fmt.Errorf("%w: %w: no identifier in %q", registry.ErrMalformedDeclaration, registry.ErrAnchorNotFound, anchor)
	}

	content := []byte(text.Content)
	tree, err := parse(ctx, text.Path, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	obj := findBinding(tree.RootNode(), content, binding)
	if obj == nil {
		return registry.New(), fmt.Errorf("%w: %w: %q", registry.ErrMalformedDeclaration, registry.ErrAnchorNotFound, binding)
	}
	if obj.HasError() {
		return registry.New(), fmt.Errorf("%w: %w: syntax error inside %s (line %d)",
			registry.ErrMalformedDeclaration, registry.ErrUnbalanced, binding, obj.StartPoint().Row+1)
	}

	var templates []registry.Template
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		child := obj.NamedChild(i)
		if child.Type() != "pair" {
			continue
		}
		tpl, ok := templateFromPair(child, content)
		if ok {
			templates = append(templates, tpl)
		}
	}
	return registry.New(templates...), nil
}

// References implements extract.Extractor.
func (e *Extractor) References(ctx context.Context, text source.Text, verbs reference.Verbs) ([]reference.Site, error) {
	if err := verbs.Validate(); err != nil {
		return nil, err
	}

	content := []byte(text.Content)
	tree, err := parse(ctx, text.Path, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &referenceWalker{
		path:       text.Path,
		source:     content,
		accumulate: toSet(verbs.Accumulate),
		lookup:     toSet(verbs.Lookup),
	}

	cursor := sitter.NewTreeCursor(tree.RootNode())
	defer cursor.Close()
	w.walk(cursor)

	return w.sites, nil
}

// parse parses content with the grammar matching path's extension.
func parse(ctx context.Context, path string, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(languageFor(path))

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return tree, nil
}

// languageFor returns the tree-sitter language for the file type
func languageFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		return tsx.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// bindingName returns the last identifier in anchor.
func bindingName(anchor string) string {
	ids := bindingRe.FindAllString(anchor, -1)
	if len(ids) == 0 {
		return ""
	}
	return ids[len(ids)-1]
}

// findBinding returns the first object literal assigned to name, searching
// variable declarators and plain assignments in document order.
func findBinding(root *sitter.Node, src []byte, name string) *sitter.Node {
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()

	var found *sitter.Node
	var visit func() bool
	visit = func() bool {
		node := cursor.CurrentNode()

		var nameNode, valueNode *sitter.Node
		switch node.Type() {
		case "variable_declarator":
			nameNode = node.ChildByFieldName("name")
			valueNode = node.ChildByFieldName("value")
		case "assignment_expression":
			nameNode = node.ChildByFieldName("left")
			valueNode = node.ChildByFieldName("right")
		}
		if nameNode != nil && valueNode != nil && nodeText(nameNode, src) == name {
			if obj := unwrapObject(valueNode); obj != nil {
				found = obj
				return false
			}
		}

		if cursor.GoToFirstChild() {
			for {
				if !visit() {
					return false
				}
				if !cursor.GoToNextSibling() {
					break
				}
			}
			cursor.GoToParent()
		}
		return true
	}
	visit()
	return found
}

// unwrapObject returns the object literal behind value, looking through
// TypeScript `as` / `satisfies` expressions and parentheses.
func unwrapObject(value *sitter.Node) *sitter.Node {
	for value != nil {
		switch value.Type() {
		case "object":
			return value
		case "as_expression", "satisfies_expression", "parenthesized_expression":
			if value.NamedChildCount() == 0 {
				return nil
			}
			value = value.NamedChild(0)
		default:
			return nil
		}
	}
	return nil
}

// templateFromPair converts an object pair with an identifier-shaped key and
// a string value into a template.
func templateFromPair(pair *sitter.Node, src []byte) (registry.Template, bool) {
	keyNode := pair.ChildByFieldName("key")
	valueNode := pair.ChildByFieldName("value")
	if keyNode == nil || valueNode == nil {
		return registry.Template{}, false
	}

	var key string
	switch keyNode.Type() {
	case "property_identifier":
		key = nodeText(keyNode, src)
	case "string":
		key = unquote(nodeText(keyNode, src))
	default:
		return registry.Template{}, false
	}
	if !registry.ValidIdentifier(key) {
		return registry.Template{}, false
	}

	switch valueNode.Type() {
	case "string", "template_string":
	default:
		return registry.Template{}, false
	}

	return registry.Template{
		ID:   registry.Identifier(key),
		Body: registry.DecodeString(unquote(nodeText(valueNode, src))),
		Line: int(keyNode.StartPoint().Row) + 1,
	}, true
}

type referenceWalker struct {
	path       string
	source     []byte
	accumulate map[string]bool
	lookup     map[string]bool
	sites      []reference.Site
}

// walk recursively visits call expressions in document order.
func (w *referenceWalker) walk(cursor *sitter.TreeCursor) {
	node := cursor.CurrentNode()
	if node.Type() == "call_expression" {
		w.visitCall(node)
	}

	if cursor.GoToFirstChild() {
		for {
			w.walk(cursor)
			if !cursor.GoToNextSibling() {
				break
			}
		}
		cursor.GoToParent()
	}
}

func (w *referenceWalker) visitCall(call *sitter.Node) {
	verb := calleeName(call.ChildByFieldName("function"), w.source)
	if verb == "" || (!w.accumulate[verb] && !w.lookup[verb]) {
		return
	}

	args := arguments(call.ChildByFieldName("arguments"))
	if len(args) == 0 || args[0].Type() != "string" {
		return
	}
	id := unquote(nodeText(args[0], w.source))
	if !registry.ValidIdentifier(id) {
		return
	}

	site := reference.Site{
		ID:   registry.Identifier(id),
		Path: w.path,
		Line: int(args[0].StartPoint().Row) + 1,
	}
	if w.accumulate[verb] && len(args) == 1 {
		site.Form = reference.FormAccumulate
		w.sites = append(w.sites, site)
	}
	if w.lookup[verb] {
		site.Form = reference.FormLookup
		w.sites = append(w.sites, site)
	}
}

// calleeName returns the called function's name: the identifier itself, or
// the property of a member expression (queue.push → push).
func calleeName(fn *sitter.Node, src []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return nodeText(fn, src)
	case "member_expression":
		if prop := fn.ChildByFieldName("property"); prop != nil {
			return nodeText(prop, src)
		}
	}
	return ""
}

// arguments returns the argument nodes of a call, skipping comments.
func arguments(args *sitter.Node) []*sitter.Node {
	if args == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// unquote strips the delimiters of a string or template literal.
func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

// nodeText returns the source text for a node
func nodeText(node *sitter.Node, source []byte) string {
	return node.Content(source)
}
