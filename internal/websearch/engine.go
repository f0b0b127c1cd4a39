// Package websearch performs live web searches and content extraction for
// questions the local knowledge base cannot answer.
package websearch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/techmentor-ai/techmentor/internal/config"
	"github.com/techmentor-ai/techmentor/internal/security"
)

// defaultUserAgent is sent on search and extraction requests. Some engines
// return a degraded page to unknown clients.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/94.0.4606.81 Safari/537.36"

// maxResponseSize caps how much of a fetched page is read.
const maxResponseSize = 5 * 1024 * 1024 // 5MB

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Validator guards outbound fetches. *security.URL is the production
// implementation; the interface lives here so tests can substitute a
// permissive double.
type Validator interface {
	Validate(rawURL string) error
	NewClient(timeout time.Duration) *http.Client
}

// Engine performs web searches against the DuckDuckGo HTML endpoint and
// extracts readable content from result pages. All outbound requests go
// through the SSRF validator.
//
// Engine is safe for concurrent use.
type Engine struct {
	searchClient  *http.Client
	extractClient *http.Client
	validator     Validator
	logger        *slog.Logger
	baseURL       string
	userAgent     string
}

// New creates a search engine from the search configuration.
func New(cfg config.SearchConfig, validator Validator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = security.NewURL()
	}

	return &Engine{
		searchClient:  validator.NewClient(time.Duration(cfg.TimeoutMs) * time.Millisecond),
		extractClient: validator.NewClient(time.Duration(cfg.ExtractTimeoutMs) * time.Millisecond),
		validator:     validator,
		logger:        logger,
		baseURL:       cfg.BaseURL,
		userAgent:     defaultUserAgent,
	}
}

// Search queries the web and returns up to numResults hits.
//
// Search never fails loudly: any transport or parse error is logged and an
// empty slice is returned, so a broken search engine degrades the answer
// instead of aborting it. Malformed result blocks are skipped individually.
func (e *Engine) Search(ctx context.Context, query string, numResults int) []Result {
	e.logger.Info("performing dynamic search", "query", query)

	searchURL := e.baseURL + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		e.logger.Error("building search request failed", "error", err)
		return []Result{}
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.searchClient.Do(req)
	if err != nil {
		e.logger.Error("web search failed", "query", query, "error", err)
		return []Result{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Error("web search returned non-OK status",
			"query", query, "status", resp.StatusCode)
		return []Result{}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		e.logger.Error("parsing search results failed", "error", err)
		return []Result{}
	}

	results := e.parseResults(doc, numResults)
	e.logger.Info("found search results", "count", len(results))
	return results
}

// parseResults walks the DuckDuckGo HTML result blocks. Blocks missing a
// title, link or snippet are skipped rather than failing the whole page.
func (e *Engine) parseResults(doc *goquery.Document, numResults int) []Result {
	results := []Result{}

	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		titleElem := sel.Find(".result__title a").First()
		snippetElem := sel.Find(".result__snippet").First()

		href, ok := titleElem.Attr("href")
		if !ok || titleElem.Length() == 0 || snippetElem.Length() == 0 {
			return true
		}

		link := unwrapRedirect(href)
		title := strings.TrimSpace(titleElem.Text())
		snippet := strings.TrimSpace(snippetElem.Text())
		if link == "" || title == "" {
			return true
		}

		results = append(results, Result{
			Title:   title,
			URL:     link,
			Snippet: snippet,
		})
		return len(results) < numResults
	})

	return results
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg=<target> indirection so the
// stored source URL points at the actual page.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	if target := u.Query().Get("uddg"); target != "" {
		return target
	}

	// Protocol-relative links come back from the HTML endpoint.
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}

	return href
}

// fetch retrieves a page body with the engine's user agent.
func (e *Engine) fetch(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}
