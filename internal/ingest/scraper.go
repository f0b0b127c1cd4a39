// Package ingest collects raw knowledge material - scraped web articles,
// extracted PDF text and video transcripts - into labeled text files under
// the raw-data root, ready for chunking and indexing.
//
// Every adapter writes the same file shape: a "Source: <uri>" provenance
// line, a blank line, then the plain text body. Per-item failures are
// logged and skipped; an adapter only fails as a whole when it cannot write
// its output folder.
package ingest

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/techmentor-ai/techmentor/internal/config"
	"github.com/techmentor-ai/techmentor/internal/security"
)

// scrapeUserAgent is sent on scraping requests.
const scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// ScrapeResult describes one scraped page.
type ScrapeResult struct {
	URL           string
	Path          string
	ContentLength int
}

// Validator guards scraped URLs. *security.URL is the production
// implementation.
type Validator interface {
	Validate(rawURL string) error
	SafeTransport() *http.Transport
}

// Scraper fetches configured web pages and stores their readable text.
type Scraper struct {
	outputDir string
	cfg       config.ScraperConfig
	validator Validator
	logger    *slog.Logger
}

// NewScraper creates a scraper writing into <dataDir>/web.
func NewScraper(dataDir string, cfg config.ScraperConfig, validator Validator, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = security.NewURL()
	}

	return &Scraper{
		outputDir: filepath.Join(dataDir, "web"),
		cfg:       cfg,
		validator: validator,
		logger:    logger,
	}
}

// Scrape fetches every URL and writes one labeled text file per page.
// Unsafe and unreachable URLs are logged and skipped.
func (s *Scraper) Scrape(urls []string) ([]ScrapeResult, error) {
	if err := os.MkdirAll(s.outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	c := colly.NewCollector(
		colly.UserAgent(scrapeUserAgent),
		colly.Async(true),
	)
	c.WithTransport(s.validator.SafeTransport())
	c.SetRequestTimeout(time.Duration(s.cfg.TimeoutMs) * time.Millisecond)

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: s.cfg.Parallelism,
		Delay:       time.Duration(s.cfg.DelayMs) * time.Millisecond,
	}); err != nil {
		return nil, fmt.Errorf("configuring rate limit: %w", err)
	}

	// OnResponse runs on collector goroutines when async.
	var mu sync.Mutex
	var results []ScrapeResult

	c.OnResponse(func(r *colly.Response) {
		pageURL := r.Request.URL.String()

		article, err := readability.FromReader(bytes.NewReader(r.Body), r.Request.URL)
		if err != nil {
			s.logger.Error("extracting readable content failed", "url", pageURL, "error", err)
			return
		}

		content := strings.TrimSpace(article.TextContent)
		if content == "" {
			s.logger.Warn("page produced no readable text, skipping", "url", pageURL)
			return
		}

		path := filepath.Join(s.outputDir, fileNameForURL(pageURL))
		if err := writeLabeled(path, pageURL, content); err != nil {
			s.logger.Error("writing scraped page failed", "url", pageURL, "error", err)
			return
		}

		mu.Lock()
		results = append(results, ScrapeResult{
			URL:           pageURL,
			Path:          path,
			ContentLength: len(content),
		})
		mu.Unlock()
		s.logger.Info("scraped page", "url", pageURL, "characters", len(content))
	})

	c.OnError(func(r *colly.Response, err error) {
		s.logger.Error("scraping failed", "url", r.Request.URL.String(), "error", err)
	})

	for _, rawURL := range urls {
		if err := s.validator.Validate(rawURL); err != nil {
			s.logger.Error("scraping blocked", "url", rawURL, "error", err)
			continue
		}
		if err := c.Visit(rawURL); err != nil {
			s.logger.Error("visiting url failed", "url", rawURL, "error", err)
		}
	}
	c.Wait()

	return results, nil
}

// fileNameForURL derives a stable output filename from the last path
// segment of the page URL.
func fileNameForURL(pageURL string) string {
	name := ""
	if u, err := url.Parse(pageURL); err == nil {
		path := strings.TrimRight(u.Path, "/")
		name = path[strings.LastIndex(path, "/")+1:]
	}

	name = strings.ReplaceAll(name, "-", "_")
	if name == "" {
		name = "index"
	}
	return name + ".txt"
}

// writeLabeled writes a provenance-labeled text file.
func writeLabeled(path, source, body string) error {
	content := fmt.Sprintf("Source: %s\n\n%s", source, body)
	return os.WriteFile(path, []byte(content), 0o600)
}
