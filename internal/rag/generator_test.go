package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/goleak"

	"github.com/techmentor-ai/techmentor/internal/knowledge"
	"github.com/techmentor-ai/techmentor/internal/log"
	"github.com/techmentor-ai/techmentor/internal/testutil"
	"github.com/techmentor-ai/techmentor/internal/websearch"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*http2clientConnReadLoop).run"),
		goleak.IgnoreAnyFunction("go.opentelemetry.io/otel/sdk/trace.(*batchSpanProcessor).processQueue"),
	)
}

// extractPage is a canned extraction outcome for one URL.
type extractPage struct {
	text string
	ok   bool
}

// mockSearchEngine implements SearchEngine for testing.
type mockSearchEngine struct {
	results     []websearch.Result
	pages       map[string]extractPage
	searchCalls int
}

func (m *mockSearchEngine) Search(ctx context.Context, query string, numResults int) []websearch.Result {
	m.searchCalls++
	if len(m.results) > numResults {
		return m.results[:numResults]
	}
	return m.results
}

func (m *mockSearchEngine) Extract(ctx context.Context, url string) (string, bool) {
	if page, ok := m.pages[url]; ok {
		return page.text, page.ok
	}
	return "Error extracting content: no route to host", false
}

// newTestGenerator wires a generator around mocks. The returned MockLLM
// records every prompt the generator sends.
func newTestGenerator(t *testing.T, store *mockSearcher, search *mockSearchEngine, dynamicEnabled bool) (*Generator, *testutil.MockLLM) {
	t.Helper()

	g := testutil.NewGenkit(t)
	llm := testutil.NewMockLLM("fallback answer")
	llm.RegisterModel(g)

	retriever := NewRetriever(store, 5, log.NewNop())
	gen := NewGenerator(g, retriever, NewGate(), search, GeneratorConfig{
		ModelName:            "mock/test-model",
		Temperature:          0.7,
		MaxTokens:            512,
		DynamicSearchEnabled: dynamicEnabled,
	}, log.NewNop())

	return gen, llm
}

// lastPrompt returns the prompt from the most recent model call.
func lastPrompt(t *testing.T, llm *testutil.MockLLM) string {
	t.Helper()

	calls := llm.Calls()
	if len(calls) == 0 {
		t.Fatal("model was never called")
	}
	return calls[len(calls)-1].UserMessage
}

func TestGenerator_SufficientLocalContext(t *testing.T) {
	store := &mockSearcher{
		results: []knowledge.Result{
			doc("a", strings.Repeat("Local knowledge about career switching. ", 8),
				map[string]string{"source": "https://example.com/a"}),
			doc("b", strings.Repeat("More local knowledge on interviews. ", 8),
				map[string]string{"source": "https://example.com/b"}),
		},
	}
	search := &mockSearchEngine{}
	gen, llm := newTestGenerator(t, store, search, true)

	resp := gen.Answer(context.Background(), "How do I switch careers?")

	if search.searchCalls != 0 {
		t.Error("sufficient local context must not trigger web search")
	}
	if resp.UsedDynamicSearch {
		t.Error("used_dynamic_search should be false")
	}
	if len(resp.Sources) != 2 || resp.Sources[0] != "https://example.com/a" {
		t.Errorf("sources = %v", resp.Sources)
	}
	if resp.Answer != "fallback answer" {
		t.Errorf("answer = %q", resp.Answer)
	}

	prompt := lastPrompt(t, llm)
	if !strings.Contains(prompt, "RELEVANT INFORMATION:") {
		t.Error("prompt missing local context")
	}
	if !strings.Contains(prompt, "How do I switch careers?") {
		t.Error("prompt missing the question")
	}
}

func TestGenerator_DynamicReplacesEmptyLocalContext(t *testing.T) {
	store := &mockSearcher{} // no local matches
	search := &mockSearchEngine{
		results: []websearch.Result{
			{Title: "Guide", URL: "https://example.org/guide", Snippet: "..."},
		},
		pages: map[string]extractPage{
			"https://example.org/guide": {
				text: "Content from https://example.org/guide:\n\nWeb advice on switching careers.",
				ok:   true,
			},
		},
	}
	gen, llm := newTestGenerator(t, store, search, true)

	resp := gen.Answer(context.Background(), "How do I switch careers?")

	if !resp.UsedDynamicSearch {
		t.Error("used_dynamic_search should be true")
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "Dynamic Web Search" {
		t.Errorf("sources = %v", resp.Sources)
	}

	prompt := lastPrompt(t, llm)
	if !strings.Contains(prompt, "[Source 1: https://example.org/guide]") {
		t.Errorf("prompt missing labeled excerpt:\n%s", prompt)
	}
	// With no local context, dynamic content replaces it entirely.
	if strings.Contains(prompt, "No relevant information found.") {
		t.Error("empty-context sentinel leaked into the prompt")
	}
	if strings.Contains(prompt, "ADDITIONAL WEB SEARCH RESULTS:") {
		t.Error("replacement path must not use the append heading")
	}
}

func TestGenerator_DynamicAppendsToLocalContext(t *testing.T) {
	// One short document: retrieved but insufficient.
	store := &mockSearcher{
		results: []knowledge.Result{
			doc("a", "Short local snippet.", map[string]string{"source": "https://example.com/a"}),
		},
	}
	search := &mockSearchEngine{
		results: []websearch.Result{
			{Title: "Guide", URL: "https://example.org/guide"},
		},
		pages: map[string]extractPage{
			"https://example.org/guide": {text: "Content from https://example.org/guide:\n\nWeb advice.", ok: true},
		},
	}
	gen, llm := newTestGenerator(t, store, search, true)

	resp := gen.Answer(context.Background(), "question")

	if !resp.UsedDynamicSearch {
		t.Error("used_dynamic_search should be true")
	}
	wantSources := []string{"https://example.com/a", "Dynamic Web Search"}
	if len(resp.Sources) != 2 || resp.Sources[0] != wantSources[0] || resp.Sources[1] != wantSources[1] {
		t.Errorf("sources = %v, want %v", resp.Sources, wantSources)
	}

	prompt := lastPrompt(t, llm)
	if !strings.Contains(prompt, "RELEVANT INFORMATION:") {
		t.Error("local context dropped")
	}
	if !strings.Contains(prompt, "ADDITIONAL WEB SEARCH RESULTS:") {
		t.Error("dynamic content not appended under its heading")
	}
}

func TestGenerator_AllExtractionsFail(t *testing.T) {
	store := &mockSearcher{
		results: []knowledge.Result{
			doc("a", "Short local snippet.", map[string]string{"source": "https://example.com/a"}),
		},
	}
	search := &mockSearchEngine{
		results: []websearch.Result{
			{Title: "One", URL: "https://example.org/one"},
			{Title: "Two", URL: "https://example.org/two"},
		},
		// no pages registered: every extraction fails
	}
	gen, llm := newTestGenerator(t, store, search, true)

	resp := gen.Answer(context.Background(), "question")

	if resp.UsedDynamicSearch {
		t.Error("failed extraction must not count as dynamic search use")
	}
	for _, source := range resp.Sources {
		if source == "Dynamic Web Search" {
			t.Error("sources must not include the web tag when nothing merged")
		}
	}

	prompt := lastPrompt(t, llm)
	if strings.Contains(prompt, "ADDITIONAL WEB SEARCH RESULTS:") {
		t.Error("context should fall back to local-only text")
	}
	if !strings.Contains(prompt, "Short local snippet.") {
		t.Error("local context missing from prompt")
	}
}

func TestGenerator_EmptySearchResults(t *testing.T) {
	store := &mockSearcher{}
	search := &mockSearchEngine{} // search returns nothing
	gen, llm := newTestGenerator(t, store, search, true)

	resp := gen.Answer(context.Background(), "question")

	if resp.UsedDynamicSearch {
		t.Error("used_dynamic_search should be false")
	}
	if search.searchCalls != 1 {
		t.Errorf("search calls = %d, want 1", search.searchCalls)
	}
	if !strings.Contains(lastPrompt(t, llm), "No relevant information found.") {
		t.Error("prompt should carry the no-information text")
	}
}

func TestGenerator_DynamicSearchDisabled(t *testing.T) {
	store := &mockSearcher{}
	search := &mockSearchEngine{
		results: []websearch.Result{{Title: "x", URL: "https://example.org/x"}},
	}
	gen, _ := newTestGenerator(t, store, search, false)

	resp := gen.Answer(context.Background(), "question")

	if search.searchCalls != 0 {
		t.Error("disabled dynamic search must never hit the engine")
	}
	if resp.UsedDynamicSearch {
		t.Error("used_dynamic_search should be false")
	}
}

func TestGenerator_DynamicContentTruncation(t *testing.T) {
	longContent := "Content from https://example.org/long:\n\n" +
		strings.Repeat("A", 4990) + "ENDTOKEN"
	store := &mockSearcher{}
	search := &mockSearchEngine{
		results: []websearch.Result{{Title: "Long", URL: "https://example.org/long"}},
		pages: map[string]extractPage{
			"https://example.org/long": {text: longContent, ok: true},
		},
	}
	gen, llm := newTestGenerator(t, store, search, true)

	gen.Answer(context.Background(), "question")

	prompt := lastPrompt(t, llm)
	if got := strings.Count(prompt, truncationMarker); got != 1 {
		t.Errorf("truncation marker count = %d, want 1", got)
	}
	if strings.Contains(prompt, "ENDTOKEN") {
		t.Error("content beyond the cap should have been cut")
	}
}

func TestGenerator_TruncationKeepsValidUTF8(t *testing.T) {
	// Multibyte content puts the byte cap in the middle of a rune for most
	// alignments; the cut must back up to a rune boundary.
	longContent := "Content from https://example.org/cjk:\n\n" +
		strings.Repeat("日", 2000)
	store := &mockSearcher{}
	search := &mockSearchEngine{
		results: []websearch.Result{{Title: "CJK", URL: "https://example.org/cjk"}},
		pages: map[string]extractPage{
			"https://example.org/cjk": {text: longContent, ok: true},
		},
	}
	gen, llm := newTestGenerator(t, store, search, true)

	gen.Answer(context.Background(), "question")

	prompt := lastPrompt(t, llm)
	if !utf8.ValidString(prompt) {
		t.Error("prompt contains invalid UTF-8 after truncation")
	}
	if got := strings.Count(prompt, truncationMarker); got != 1 {
		t.Errorf("truncation marker count = %d, want 1", got)
	}
}

func TestGenerator_ResultWithoutURLSkipped(t *testing.T) {
	store := &mockSearcher{}
	search := &mockSearchEngine{
		results: []websearch.Result{
			{Title: "No link"},
			{Title: "Linked", URL: "https://example.org/linked"},
		},
		pages: map[string]extractPage{
			"https://example.org/linked": {text: "Content from https://example.org/linked:\n\nText.", ok: true},
		},
	}
	gen, llm := newTestGenerator(t, store, search, true)

	resp := gen.Answer(context.Background(), "question")

	if !resp.UsedDynamicSearch {
		t.Error("usable second result should still be merged")
	}
	prompt := lastPrompt(t, llm)
	if !strings.Contains(prompt, "[Source 2: https://example.org/linked]") {
		t.Errorf("excerpt label should keep the result ordinal:\n%s", prompt)
	}
}

func TestGenerator_ModelError(t *testing.T) {
	store := &mockSearcher{
		results: []knowledge.Result{
			doc("a", strings.Repeat("x", 300), map[string]string{"source": "https://example.com/a"}),
			doc("b", strings.Repeat("y", 300), map[string]string{"source": "https://example.com/b"}),
		},
	}
	gen, llm := newTestGenerator(t, store, &mockSearchEngine{}, true)
	llm.FailWith(errors.New("model overloaded"))

	resp := gen.Answer(context.Background(), "question")

	if !strings.Contains(resp.Answer, "model overloaded") {
		t.Errorf("answer should describe the failure: %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Errorf("sources must survive a model failure: %v", resp.Sources)
	}
}

func TestGenerator_CustomPromptTemplate(t *testing.T) {
	g := testutil.NewGenkit(t)
	llm := testutil.NewMockLLM("ok")
	llm.RegisterModel(g)

	store := &mockSearcher{}
	retriever := NewRetriever(store, 5, log.NewNop())
	gen := NewGenerator(g, retriever, NewGate(), &mockSearchEngine{}, GeneratorConfig{
		ModelName:      "mock/test-model",
		PromptTemplate: "CTX={context} Q={question}",
	}, log.NewNop())

	gen.Answer(context.Background(), "my question")

	prompt := lastPrompt(t, llm)
	if !strings.HasPrefix(prompt, "CTX=") || !strings.Contains(prompt, "Q=my question") {
		t.Errorf("template not applied: %q", prompt)
	}
}

func TestFormatWithSources(t *testing.T) {
	resp := &Response{
		Question: "q",
		Answer:   "The answer.",
		Sources: []string{
			"https://example.com/a",
			"Unknown",
			"https://example.com/a", // duplicate
			"",
			"Dynamic Web Search",
		},
		UsedDynamicSearch: true,
	}

	formatted := FormatWithSources(resp)

	if !strings.HasPrefix(formatted, "The answer.") {
		t.Errorf("answer must come first: %q", formatted)
	}
	if !strings.Contains(formatted, "[Note: This response includes information from a real-time web search]") {
		t.Error("missing dynamic search note")
	}
	if !strings.Contains(formatted, "1. https://example.com/a\n") {
		t.Error("missing first source")
	}
	if !strings.Contains(formatted, "2. Dynamic Web Search\n") {
		t.Error("missing web search tag")
	}
	if strings.Contains(formatted, "Unknown") {
		t.Error("Unknown sentinel must be dropped")
	}
	if strings.Count(formatted, "https://example.com/a") != 1 {
		t.Error("duplicate source not deduplicated")
	}
}

func TestFormatWithSources_NoSources(t *testing.T) {
	formatted := FormatWithSources(&Response{Answer: "Answer only."})

	if formatted != "Answer only." {
		t.Errorf("got %q", formatted)
	}
}
