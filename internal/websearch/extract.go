package websearch

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// chromeSelectors match page furniture stripped before extraction.
const chromeSelectors = `script, style, nav, header, footer, [class*="nav"], [id*="nav"], [class*="menu"], [id*="menu"]`

// contentSelectors are tried in order to locate the main content container.
var contentSelectors = []string{
	"article", "main", ".content", "#content", ".post", ".entry", ".article",
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// ExtractContent fetches a page and returns its readable text prefixed with
// "Content from <url>:". The result is always a human-readable string, never
// an error value: fetch and parse failures come back as an error description
// that flows into the model prompt like any other excerpt.
func (e *Engine) ExtractContent(ctx context.Context, rawURL string) string {
	text, _ := e.Extract(ctx, rawURL)
	return text
}

// Extract is ExtractContent with an explicit success report, so callers can
// decide whether any usable content came back without matching on the text.
func (e *Engine) Extract(ctx context.Context, rawURL string) (string, bool) {
	e.logger.Info("extracting content", "url", rawURL)

	if err := e.validator.Validate(rawURL); err != nil {
		e.logger.Error("content extraction blocked", "url", rawURL, "error", err)
		return fmt.Sprintf("Error extracting content: %v", err), false
	}

	body, err := e.fetch(ctx, e.extractClient, rawURL)
	if err != nil {
		e.logger.Error("content extraction failed", "url", rawURL, "error", err)
		return fmt.Sprintf("Error extracting content: %v", err), false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		e.logger.Error("parsing page failed", "url", rawURL, "error", err)
		return fmt.Sprintf("Error extracting content: %v", err), false
	}

	doc.Find(chromeSelectors).Remove()

	main := findMainContent(doc)
	if main == nil {
		return fmt.Sprintf("Could not extract meaningful content from %s", rawURL), false
	}

	var parts []string
	main.Find("p, h1, h2, h3, h4, h5, h6, li").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	text := strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.Join(parts, "\n\n"), " "))
	if text == "" {
		return fmt.Sprintf("Could not extract meaningful content from %s", rawURL), false
	}

	content := fmt.Sprintf("Content from %s:\n\n%s", rawURL, text)
	e.logger.Info("extracted content", "url", rawURL, "characters", len(content))
	return content, true
}

// findMainContent tries the common content containers in order and falls
// back to body.
func findMainContent(doc *goquery.Document) *goquery.Selection {
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return sel
		}
	}

	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return nil
}
