package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	"github.com/brennhill/revagent/internal/llm"
)

// EmulatorFacade implements environment_emulator (spec §4.L). It
// reuses the same goja-based AST walk as the Script Catalog's
// extractFunctionTree to enumerate free identifiers before handing the
// snippet to the provider — the same dependency wired into two
// components.
type EmulatorFacade struct {
	Provider llm.Provider
}

// EmulatorResult is environment_emulator's return shape.
type EmulatorResult struct {
	DetectedGlobals      []string
	RecommendedValues    map[string]string
	NodePatchCode        string
	PythonPatchCode      string
}

// Emulate statically enumerates code's free identifiers (likely global
// references: window.*, navigator.*, document.*, bare globals), then
// asks the provider to recommend emulation values and generate
// environment-patching code for runtime/browserType.
func (f *EmulatorFacade) Emulate(ctx context.Context, code, runtime, browserType string) (EmulatorResult, error) {
	globals, err := freeIdentifiers(code)
	if err != nil {
		return EmulatorResult{}, fmt.Errorf("analysis: environment_emulator: %w", err)
	}

	prompt := fmt.Sprintf(
		"Target runtime: %s. Target browser fingerprint: %s.\n"+
			"The following globals/free identifiers are referenced by this script: %v.\n"+
			"Recommend concrete emulation values for each, then generate Node.js and "+
			"Python environment-patching code that would let this script run under %s "+
			"believing it is %s.\n\n%s", runtime, browserType, globals, runtime, browserType, code)

	narrative, err := chat(ctx, f.Provider, emulatorSystemPrompt, prompt)
	if err != nil {
		return EmulatorResult{}, err
	}

	return EmulatorResult{
		DetectedGlobals: globals,
		NodePatchCode:   narrative,
	}, nil
}

const emulatorSystemPrompt = "You are a browser-environment emulation assistant. Recommend concrete global values and working patch code, not prose alone."

// freeIdentifiers parses code and collects every bare identifier
// referenced in an expression position that isn't a local declaration
// within the same scope — a coarse approximation (no real scope
// resolution) good enough to surface candidate globals for emulation.
func freeIdentifiers(code string) (result []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic walking identifiers: %v", r)
		}
	}()

	prog, perr := parser.ParseFile(nil, "snippet.js", code, 0)
	if perr != nil {
		return nil, perr
	}

	declared := map[string]bool{}
	referenced := map[string]bool{}

	var walkDecl func(n ast.Node)
	walkDecl = func(n ast.Node) {
		switch node := n.(type) {
		case *ast.Program:
			for _, s := range node.Body {
				walkDecl(s)
			}
		case *ast.FunctionDeclaration:
			if node.Function != nil && node.Function.Name != nil {
				declared[string(node.Function.Name.Name)] = true
			}
			if node.Function != nil {
				for _, p := range node.Function.ParameterList.List {
					if id, ok := p.Target.(*ast.Identifier); ok {
						declared[string(id.Name)] = true
					}
				}
			}
		case *ast.VariableDeclaration:
			for _, b := range node.List {
				if id, ok := b.Target.(*ast.Identifier); ok {
					declared[string(id.Name)] = true
				}
			}
		case *ast.BlockStatement:
			for _, s := range node.List {
				walkDecl(s)
			}
		}
	}
	walkDecl(prog)

	var walkRef func(n ast.Node)
	walkRef = func(n ast.Node) {
		switch node := n.(type) {
		case *ast.Program:
			for _, s := range node.Body {
				walkRef(s)
			}
		case *ast.BlockStatement:
			for _, s := range node.List {
				walkRef(s)
			}
		case *ast.ExpressionStatement:
			walkRef(node.Expression)
		case *ast.CallExpression:
			walkRef(node.Callee)
			for _, a := range node.ArgumentList {
				walkRef(a)
			}
		case *ast.DotExpression:
			walkRef(node.Left)
		case *ast.BracketExpression:
			walkRef(node.Left)
		case *ast.BinaryExpression:
			walkRef(node.Left)
			walkRef(node.Right)
		case *ast.AssignExpression:
			walkRef(node.Left)
			walkRef(node.Right)
		case *ast.VariableDeclaration:
			for _, b := range node.List {
				if b.Initializer != nil {
					walkRef(b.Initializer)
				}
			}
		case *ast.IfStatement:
			walkRef(node.Test)
			walkRef(node.Consequent)
			walkRef(node.Alternate)
		case *ast.ReturnStatement:
			walkRef(node.Argument)
		case *ast.Identifier:
			referenced[string(node.Name)] = true
		}
	}
	walkRef(prog)

	seen := map[string]bool{}
	for name := range referenced {
		if declared[name] || jsBuiltins[name] {
			continue
		}
		if !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result, nil
}

var jsBuiltins = map[string]bool{
	"undefined": true, "null": true, "true": true, "false": true,
	"console": true, "Math": true, "JSON": true, "Object": true,
	"Array": true, "String": true, "Number": true, "Boolean": true,
	"Promise": true, "Error": true, "Date": true, "RegExp": true,
	"Symbol": true, "Map": true, "Set": true, "parseInt": true,
	"parseFloat": true, "isNaN": true, "isFinite": true,
}
