package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/techmentor-ai/techmentor/internal/config"
	"github.com/techmentor-ai/techmentor/internal/log"
)

const channelPage = `<html><body>
<a href="/watch?v=abcdefghij1">First</a>
<a href="/watch?v=abcdefghij1">First again</a>
<a href="/watch?v=abcdefghij2">Second</a>
<a href="/watch?v=abcdefghij3">Third</a>
</body></html>`

const captionXML = `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.0" dur="2.5">Hello &amp; welcome</text>
  <text start="2.5" dur="3.0">to the career talk</text>
</transcript>`

func newTestFetcher(t *testing.T, channelURL, captionURL string, maxVideos int) (*TranscriptFetcher, string) {
	t.Helper()

	dataDir := t.TempDir()
	fetcher := NewTranscriptFetcher(dataDir, config.IngestConfig{
		MaxVideosPerChannel: maxVideos,
	}, log.NewNop())
	fetcher.channelBase = channelURL
	fetcher.captionBase = captionURL
	return fetcher, dataDir
}

func TestTranscriptFetcher_Fetch(t *testing.T) {
	channelServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(channelPage))
	}))
	defer channelServer.Close()

	var captionRequests []string
	captionServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captionRequests = append(captionRequests, r.URL.Query().Get("v"))
		_, _ = w.Write([]byte(captionXML))
	}))
	defer captionServer.Close()

	fetcher, dataDir := newTestFetcher(t, channelServer.URL, captionServer.URL, 2)

	results, err := fetcher.Fetch(context.Background(), []string{"techchannel"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	// Three IDs on the page, one duplicated, capped at two.
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if captionRequests[0] != "abcdefghij1" || captionRequests[1] != "abcdefghij2" {
		t.Errorf("caption requests = %v", captionRequests)
	}

	content, err := os.ReadFile(filepath.Join(dataDir, "youtube", "Video_abcdefghij1.txt"))
	if err != nil {
		t.Fatalf("reading transcript file: %v", err)
	}

	text := string(content)
	if !strings.HasPrefix(text, "Source: https://www.youtube.com/watch?v=abcdefghij1\n\n") {
		t.Errorf("missing provenance line:\n%s", text)
	}
	if !strings.Contains(text, "Channel: techchannel") {
		t.Errorf("missing channel line:\n%s", text)
	}
	if !strings.Contains(text, "Hello & welcome to the career talk") {
		t.Errorf("caption text not flattened or unescaped:\n%s", text)
	}
}

func TestTranscriptFetcher_NoCaptions(t *testing.T) {
	channelServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(channelPage))
	}))
	defer channelServer.Close()

	// Empty body: the video has no caption track.
	captionServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer captionServer.Close()

	fetcher, _ := newTestFetcher(t, channelServer.URL, captionServer.URL, 3)

	results, err := fetcher.Fetch(context.Background(), []string{"techchannel"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("captionless videos must be skipped, got %d results", len(results))
	}
}

func TestTranscriptFetcher_ChannelUnreachable(t *testing.T) {
	channelServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	channelServer.Close()

	fetcher, _ := newTestFetcher(t, channelServer.URL, channelServer.URL, 3)

	results, err := fetcher.Fetch(context.Background(), []string{"gone"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("unreachable channel must yield no results, got %d", len(results))
	}
}
