package scriptcatalog

import "testing"

func TestStripCommentsRemovesLineComments(t *testing.T) {
	src := "function f() {\n  // a comment\n  return 1; // trailing\n}"
	got := stripComments(src)
	want := "function f() {\n  \n  return 1; \n}"
	if got != want {
		t.Fatalf("stripComments =\n%q\nwant\n%q", got, want)
	}
}

func TestStripCommentsRemovesBlockComments(t *testing.T) {
	src := "function f(/* arg */ a) {\n  /* multi\n   line */\n  return a;\n}"
	got := stripComments(src)
	want := "function f( a) {\n  \n  return a;\n}"
	if got != want {
		t.Fatalf("stripComments =\n%q\nwant\n%q", got, want)
	}
}

func TestStripCommentsPreservesStringAndTemplateLiterals(t *testing.T) {
	cases := []string{
		`var x = "not // a comment";`,
		"var y = 'not /* a comment */ either';",
		"var z = `template // with /* markers */ inside`;",
	}
	for _, src := range cases {
		if got := stripComments(src); got != src {
			t.Errorf("stripComments(%q) = %q, want unchanged", src, got)
		}
	}
}

func TestStripCommentsHandlesEscapedQuotesInsideStrings(t *testing.T) {
	src := `var x = "she said \"hi\" // not a comment";`
	if got := stripComments(src); got != src {
		t.Fatalf("stripComments(%q) = %q, want unchanged", src, got)
	}
}

func TestExtractFunctionTreeStripsCommentsWhenNotRequested(t *testing.T) {
	c := New()
	src := `function target() {
  // explain the add
  return add(1, 2);
}
function add(a, b) {
  return a + b; // sum
}`
	ps := &ParsedScript{ScriptID: "s1", URL: "http://example.com/a.js", Source: src, SourceLen: len(src), HasSource: true}
	c.mu.Lock()
	c.byID["s1"] = ps
	c.mu.Unlock()

	tree, err := c.ExtractFunctionTree("s1", "", "target", FunctionTreeOptions{IncludeComments: false})
	if err != nil {
		t.Fatalf("ExtractFunctionTree: %v", err)
	}
	for _, fn := range tree.Functions {
		if containsComment(fn.Source) {
			t.Errorf("function %s source still contains a comment:\n%s", fn.Name, fn.Source)
		}
	}

	treeWithComments, err := c.ExtractFunctionTree("s1", "", "target", FunctionTreeOptions{IncludeComments: true})
	if err != nil {
		t.Fatalf("ExtractFunctionTree: %v", err)
	}
	foundComment := false
	for _, fn := range treeWithComments.Functions {
		if containsComment(fn.Source) {
			foundComment = true
		}
	}
	if !foundComment {
		t.Fatal("expected at least one function source to retain its comment when IncludeComments=true")
	}
}

func containsComment(s string) bool {
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '/' && (s[i+1] == '/' || s[i+1] == '*') {
			return true
		}
	}
	return false
}
