package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/techmentor-ai/techmentor/internal/config"
	"github.com/techmentor-ai/techmentor/internal/log"
)

// allowAll is a permissive validator so tests can fetch httptest servers on
// loopback.
type allowAll struct{}

func (allowAll) Validate(string) error { return nil }

func (allowAll) NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func newTestEngine(baseURL string) *Engine {
	return New(config.SearchConfig{
		BaseURL:          baseURL,
		TimeoutMs:        5000,
		ExtractTimeoutMs: 5000,
	}, allowAll{}, log.NewNop())
}

const searchResultsPage = `<html><body>
<div class="results">
  <div class="result">
    <h2 class="result__title">
      <a href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fcareers">Switching careers</a>
    </h2>
    <a class="result__snippet">How to switch into software engineering.</a>
  </div>
  <div class="result">
    <h2 class="result__title"><a href="https://example.org/direct">Direct link result</a></h2>
    <div class="result__snippet">A result whose link is not wrapped.</div>
  </div>
  <div class="result">
    <h2 class="result__title"><a href="https://example.net/nosnippet">Missing snippet</a></h2>
  </div>
  <div class="result">
    <h2 class="result__title"><a href="https://example.net/third">Third valid</a></h2>
    <div class="result__snippet">Snippet three.</div>
  </div>
</div>
</body></html>`

func TestEngine_Search(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(searchResultsPage))
	}))
	defer server.Close()

	engine := newTestEngine(server.URL)
	results := engine.Search(context.Background(), "career change advice", 3)

	if gotQuery != "career change advice" {
		t.Errorf("query sent = %q", gotQuery)
	}

	// Block three has no snippet and must be skipped.
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3: %+v", len(results), results)
	}

	if results[0].URL != "https://example.com/careers" {
		t.Errorf("redirect not unwrapped: %q", results[0].URL)
	}
	if results[0].Title != "Switching careers" {
		t.Errorf("title = %q", results[0].Title)
	}
	if results[1].URL != "https://example.org/direct" {
		t.Errorf("direct URL mangled: %q", results[1].URL)
	}
	if results[2].URL != "https://example.net/third" {
		t.Errorf("third result = %q", results[2].URL)
	}
}

func TestEngine_Search_LimitsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(searchResultsPage))
	}))
	defer server.Close()

	engine := newTestEngine(server.URL)
	results := engine.Search(context.Background(), "query", 1)

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}

func TestEngine_Search_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	engine := newTestEngine(server.URL)
	results := engine.Search(context.Background(), "query", 3)

	if results == nil {
		t.Fatal("failed search must return an empty slice, not nil")
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestEngine_Search_Unreachable(t *testing.T) {
	// Closed server: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	engine := newTestEngine(server.URL)
	results := engine.Search(context.Background(), "query", 3)

	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestUnwrapRedirect(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{
			"uddg wrapped",
			"//duckduckgo.com/l/?uddg=" + url.QueryEscape("https://example.com/page?a=1"),
			"https://example.com/page?a=1",
		},
		{"plain absolute", "https://example.com/x", "https://example.com/x"},
		{"protocol relative without uddg", "//example.com/x", "https://example.com/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unwrapRedirect(tt.href); got != tt.want {
				t.Errorf("unwrapRedirect(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}

const articlePage = `<html><body>
<nav><a href="/">Home</a><a href="/about">About</a></nav>
<div class="menu">Site menu items</div>
<article>
  <h1>Becoming a Software Engineer</h1>
  <p>Start with fundamentals.</p>
  <script>trackPageView();</script>
  <ul><li>Learn a language</li><li>Build projects</li></ul>
</article>
<footer>Copyright notice</footer>
</body></html>`

func TestEngine_ExtractContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articlePage))
	}))
	defer server.Close()

	engine := newTestEngine(server.URL)
	content := engine.ExtractContent(context.Background(), server.URL)

	wantPrefix := "Content from " + server.URL + ":"
	if !strings.HasPrefix(content, wantPrefix) {
		t.Fatalf("content missing attribution prefix: %q", content)
	}
	for _, want := range []string{"Becoming a Software Engineer", "Start with fundamentals.", "Learn a language"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q", want)
		}
	}
	for _, banned := range []string{"trackPageView", "Copyright notice", "Site menu items", "About"} {
		if strings.Contains(content, banned) {
			t.Errorf("content leaked stripped element text %q", banned)
		}
	}
}

func TestEngine_ExtractContent_BodyFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>Loose paragraph outside any container.</p></body></html>`))
	}))
	defer server.Close()

	engine := newTestEngine(server.URL)
	content := engine.ExtractContent(context.Background(), server.URL)

	if !strings.Contains(content, "Loose paragraph outside any container.") {
		t.Errorf("body fallback failed: %q", content)
	}
}

func TestEngine_ExtractContent_FetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	engine := newTestEngine(server.URL)
	content := engine.ExtractContent(context.Background(), server.URL)

	// Failures surface as readable text, never as an error value.
	if !strings.HasPrefix(content, "Error extracting content:") {
		t.Errorf("unexpected failure text: %q", content)
	}

	// Extraction is repeatable: the same dead URL yields the same class of
	// failure text on every call.
	again := engine.ExtractContent(context.Background(), server.URL)
	if !strings.HasPrefix(again, "Error extracting content:") {
		t.Errorf("second call failure text changed class: %q", again)
	}
}

func TestEngine_ExtractContent_NoText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div>bare div text only</div></body></html>`))
	}))
	defer server.Close()

	engine := newTestEngine(server.URL)
	content := engine.ExtractContent(context.Background(), server.URL)

	if !strings.HasPrefix(content, "Could not extract meaningful content from") {
		t.Errorf("unexpected text: %q", content)
	}
}

type blockEverything struct{}

func (blockEverything) Validate(string) error {
	return context.Canceled // any error will do
}

func (blockEverything) NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func TestEngine_ExtractContent_BlockedURL(t *testing.T) {
	engine := New(config.SearchConfig{
		BaseURL:          "https://html.duckduckgo.com/html",
		TimeoutMs:        1000,
		ExtractTimeoutMs: 1000,
	}, blockEverything{}, log.NewNop())

	content := engine.ExtractContent(context.Background(), "http://169.254.169.254/latest/meta-data/")
	if !strings.HasPrefix(content, "Error extracting content:") {
		t.Errorf("blocked URL should produce an error string, got %q", content)
	}
}
