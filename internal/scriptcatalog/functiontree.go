package scriptcatalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	"github.com/brennhill/revagent/internal/errs"
)

// FunctionInfo is one function discovered while walking a script's AST.
type FunctionInfo struct {
	Name    string
	Source  string
	Deps    []string // identifier callees referenced from this function's body
	StartLn int
	EndLn   int
}

// FunctionTreeOptions parameterizes extractFunctionTree (spec §4.F).
type FunctionTreeOptions struct {
	MaxDepth        int
	MaxSizeKB       int
	IncludeComments bool
}

func (o *FunctionTreeOptions) defaults() {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 3
	}
	if o.MaxSizeKB <= 0 {
		o.MaxSizeKB = 256
	}
}

// FunctionTree is the result of ExtractFunctionTree: the BFS-collected
// functions (root first) plus the full name->deps call graph discovered
// across the whole script.
type FunctionTree struct {
	Functions  []FunctionInfo
	CallGraph  map[string][]string
	TotalBytes int
	Oversized  bool
}

// ExtractFunctionTree parses the named script's source as JavaScript,
// collects every function declaration / function-valued variable
// declarator, and BFS-walks the call graph from functionName up to
// opts.MaxDepth layers (spec §4.F). Parsing uses goja's real JS
// parser/AST rather than a hand-rolled regex scan — obfuscated or
// syntactically unusual sources can still fail to parse; that surfaces
// as an error, not a panic, so callers see a precondition-shaped failure
// instead of crashing the process.
func (c *Catalog) ExtractFunctionTree(scriptID, url, functionName string, opts FunctionTreeOptions) (result *FunctionTree, err error) {
	opts.defaults()

	ps, rerr := c.resolve(scriptID, url)
	if rerr != nil {
		return nil, rerr
	}
	ps, rerr = c.GetScriptSource(ps.ScriptID, "")
	if rerr != nil {
		return nil, rerr
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scriptcatalog: extractFunctionTree panic walking %s: %v", ps.ScriptID, r)
		}
	}()

	prog, perr := parser.ParseFile(nil, ps.URL, ps.Source, 0)
	if perr != nil {
		return nil, fmt.Errorf("scriptcatalog: parse %s: %w", ps.ScriptID, perr)
	}

	all := map[string]*FunctionInfo{}
	deps := map[string][]string{}

	var walk func(n ast.Node)
	recordFn := func(name string, lit *ast.FunctionLiteral) {
		if name == "" {
			return
		}
		src := sliceSource(ps.Source, int(lit.Idx0()), int(lit.Idx1()))
		if !opts.IncludeComments {
			src = stripComments(src)
		}
		info := &FunctionInfo{
			Name:   name,
			Source: src,
		}
		all[name] = info
		var callees []string
		collectCallees(lit.Body, &callees)
		dedup := dedupStrings(callees)
		deps[name] = dedup
	}

	walk = func(n ast.Node) {
		switch node := n.(type) {
		case *ast.Program:
			for _, s := range node.Body {
				walk(s)
			}
		case *ast.FunctionDeclaration:
			if node.Function != nil && node.Function.Name != nil {
				recordFn(string(node.Function.Name.Name), node.Function)
			}
		case *ast.VariableDeclaration:
			for _, b := range node.List {
				if b.Initializer == nil {
					continue
				}
				name := bindingName(b.Target)
				switch fn := b.Initializer.(type) {
				case *ast.FunctionLiteral:
					recordFn(name, fn)
				case *ast.ArrowFunctionLiteral:
					if bs, ok := fn.Body.(*ast.BlockStatement); ok {
						src := sliceSource(ps.Source, int(fn.Idx0()), int(fn.Idx1()))
						if !opts.IncludeComments {
							src = stripComments(src)
						}
						var callees []string
						collectCallees(bs, &callees)
						all[name] = &FunctionInfo{Name: name, Source: src}
						deps[name] = dedupStrings(callees)
					}
				}
			}
		case *ast.BlockStatement:
			for _, s := range node.List {
				walk(s)
			}
		case *ast.ExpressionStatement:
			// function expressions nested in expression position aren't
			// named declarations; nothing to record here.
		}
	}
	walk(prog)

	if _, ok := all[functionName]; !ok {
		return nil, &errs.NotFound{Kind: "function", ID: functionName, Listing: "script_search"}
	}

	tree := &FunctionTree{CallGraph: deps}
	visited := map[string]bool{}
	queue := []struct {
		name  string
		depth int
	}{{functionName, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur.name] {
			continue
		}
		visited[cur.name] = true
		info, ok := all[cur.name]
		if !ok {
			continue
		}
		tree.Functions = append(tree.Functions, *info)
		tree.TotalBytes += len(info.Source)
		if cur.depth >= opts.MaxDepth {
			continue
		}
		for _, dep := range deps[cur.name] {
			if !visited[dep] {
				queue = append(queue, struct {
					name  string
					depth int
				}{dep, cur.depth + 1})
			}
		}
	}

	if tree.TotalBytes > opts.MaxSizeKB*1024 {
		tree.Oversized = true // warn, per spec: do not truncate
	}

	return tree, nil
}

// stripComments removes // line comments and /* */ block comments from a
// function source slice, leaving string and template literals untouched
// so a "//" or "/*" inside quotes isn't mistaken for a comment start.
// goja's parser/ast doesn't retain comment nodes, so this runs over the
// raw text rather than the AST.
func stripComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	n := len(src)
	for i := 0; i < n; {
		c := src[i]
		switch {
		case c == '/' && i+1 < n && src[i+1] == '/':
			i += 2
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && src[i+1] == '*':
			i += 2
			for i+1 < n && !(src[i] == '*' && src[i+1] == '/') {
				i++
			}
			if i+1 < n {
				i += 2
			} else {
				i = n
			}
		case c == '\'' || c == '"' || c == '`':
			quote := c
			b.WriteByte(c)
			i++
			for i < n {
				b.WriteByte(src[i])
				if src[i] == '\\' && i+1 < n {
					i++
					b.WriteByte(src[i])
					i++
					continue
				}
				if src[i] == quote {
					i++
					break
				}
				i++
			}
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func sliceSource(src string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(src) {
		end = len(src)
	}
	if start >= end {
		return ""
	}
	return src[start:end]
}

func bindingName(t ast.BindingTarget) string {
	if id, ok := t.(*ast.Identifier); ok {
		return string(id.Name)
	}
	return ""
}

// collectCallees walks n for CallExpression nodes whose callee is a bare
// Identifier, appending each callee name to out.
func collectCallees(n ast.Node, out *[]string) {
	if n == nil {
		return
	}
	switch node := n.(type) {
	case *ast.BlockStatement:
		for _, s := range node.List {
			collectCallees(s, out)
		}
	case *ast.ExpressionStatement:
		collectCallees(node.Expression, out)
	case *ast.CallExpression:
		if id, ok := node.Callee.(*ast.Identifier); ok {
			*out = append(*out, string(id.Name))
		}
		for _, a := range node.ArgumentList {
			collectCallees(a, out)
		}
	case *ast.IfStatement:
		collectCallees(node.Consequent, out)
		collectCallees(node.Alternate, out)
	case *ast.ForStatement:
		collectCallees(node.Body, out)
	case *ast.WhileStatement:
		collectCallees(node.Body, out)
	case *ast.ReturnStatement:
		collectCallees(node.Argument, out)
	case *ast.VariableDeclaration:
		for _, b := range node.List {
			collectCallees(b.Initializer, out)
		}
	case *ast.BinaryExpression:
		collectCallees(node.Left, out)
		collectCallees(node.Right, out)
	case *ast.AssignExpression:
		collectCallees(node.Right, out)
	}
}

func dedupStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
