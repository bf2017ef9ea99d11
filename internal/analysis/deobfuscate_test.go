package analysis

import (
	"context"
	"reflect"
	"testing"

	"github.com/brennhill/revagent/internal/llm"
)

// fakeChatProvider is a hand-written llm.Provider double that always
// returns a scripted response, regardless of the messages sent.
type fakeChatProvider struct {
	response string
}

func (f fakeChatProvider) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (llm.ChatResponse, error) {
	return llm.ChatResponse{Content: f.response}, nil
}

func TestSplitCodeFromTrailerExtractsFencedBlock(t *testing.T) {
	narrative := "Here is the readable version:\n\n```javascript\nfunction add(a, b) {\n  return a + b;\n}\n```\n\nTransformations:\n- renamed a, b to descriptive names\n- removed dead code\n"

	code, trailer := splitCodeFromTrailer(narrative)
	want := "function add(a, b) {\n  return a + b;\n}"
	if code != want {
		t.Fatalf("code = %q, want %q", code, want)
	}
	if trailer == "" {
		t.Fatal("expected a non-empty trailer after the fenced block")
	}
}

func TestSplitCodeFromTrailerFallsBackWhenUnfenced(t *testing.T) {
	narrative := "function add(a,b){return a+b}"
	code, trailer := splitCodeFromTrailer(narrative)
	if code != narrative {
		t.Fatalf("code = %q, want the whole narrative when there's no fence", code)
	}
	if trailer != "" {
		t.Fatalf("trailer = %q, want empty", trailer)
	}
}

func TestParseTransformationsHandlesBulletsNumbersAndHeader(t *testing.T) {
	trailer := "Transformations:\n- renamed variables\n* simplified literals\n1. inlined a constant\n2) removed a no-op branch\n\nplain line without a marker\n"
	got := parseTransformations(trailer)
	want := []string{
		"renamed variables",
		"simplified literals",
		"inlined a constant",
		"removed a no-op branch",
		"plain line without a marker",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseTransformations = %#v, want %#v", got, want)
	}
}

func TestParseTransformationsEmptyTrailerReturnsNil(t *testing.T) {
	if got := parseTransformations(""); got != nil {
		t.Fatalf("parseTransformations(\"\") = %#v, want nil", got)
	}
}

func TestEstimateReadabilityScoresDescriptiveNamesHigher(t *testing.T) {
	readable := estimateReadability("function calculateTotal(orderItems) { return orderItems.length; }")
	obfuscated := estimateReadability("function a(b) { return b.c; }")
	if readable <= obfuscated {
		t.Fatalf("readable score %v should exceed obfuscated score %v", readable, obfuscated)
	}
}

func TestEstimateReadabilityEmptyCodeReturnsMidpoint(t *testing.T) {
	if got := estimateReadability(""); got != 0.5 {
		t.Fatalf("estimateReadability(\"\") = %v, want 0.5", got)
	}
}

func TestDeobfuscatePopulatesTransformationsAndReadabilityScore(t *testing.T) {
	f := &DeobfuscateFacade{Provider: fakeChatProvider{
		response: "```javascript\nfunction greet(personName) {\n  return \"hi \" + personName;\n}\n```\n\nTransformations:\n- renamed p to personName\n- expanded string concatenation\n",
	}}
	result, err := f.Deobfuscate(context.Background(), `function a(p){return"hi "+p}`, false)
	if err != nil {
		t.Fatalf("Deobfuscate: %v", err)
	}
	if len(result.Transformations) != 2 {
		t.Fatalf("Transformations = %#v, want 2 entries", result.Transformations)
	}
	if result.ReadabilityScore <= 0 {
		t.Fatalf("ReadabilityScore = %v, want > 0 for descriptive identifiers", result.ReadabilityScore)
	}
}
