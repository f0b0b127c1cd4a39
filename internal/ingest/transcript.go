package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/techmentor-ai/techmentor/internal/config"
)

// videoIDRe matches video IDs in a channel's /videos page markup.
var videoIDRe = regexp.MustCompile(`watch\?v=([a-zA-Z0-9_-]{11})`)

// TranscriptResult describes one fetched transcript.
type TranscriptResult struct {
	VideoID       string
	Channel       string
	OutputPath    string
	ContentLength int
}

// TranscriptFetcher pulls video transcripts for configured channels using
// the public timed-text endpoint. Requests are rate limited to stay polite.
type TranscriptFetcher struct {
	outputDir   string
	client      *http.Client
	limiter     *rate.Limiter
	channelBase string
	captionBase string
	maxVideos   int
	logger      *slog.Logger
}

// NewTranscriptFetcher creates a fetcher writing into <dataDir>/youtube.
func NewTranscriptFetcher(dataDir string, cfg config.IngestConfig, logger *slog.Logger) *TranscriptFetcher {
	if logger == nil {
		logger = slog.Default()
	}

	maxVideos := cfg.MaxVideosPerChannel
	if maxVideos <= 0 {
		maxVideos = 10
	}

	return &TranscriptFetcher{
		outputDir:   filepath.Join(dataDir, "youtube"),
		client:      &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
		channelBase: "https://www.youtube.com",
		captionBase: "https://video.google.com/timedtext",
		maxVideos:   maxVideos,
		logger:      logger,
	}
}

// Fetch collects transcripts for every configured channel. Channel and
// per-video failures are logged and skipped.
func (f *TranscriptFetcher) Fetch(ctx context.Context, channels []string) ([]TranscriptResult, error) {
	if err := os.MkdirAll(f.outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	var results []TranscriptResult

	for _, channel := range channels {
		f.logger.Info("listing channel videos", "channel", channel)

		videoIDs, err := f.videoIDs(ctx, channel)
		if err != nil {
			f.logger.Error("listing channel failed, skipping", "channel", channel, "error", err)
			continue
		}

		for _, videoID := range videoIDs {
			transcript, err := f.transcript(ctx, videoID)
			if err != nil {
				f.logger.Error("fetching transcript failed, skipping",
					"video_id", videoID, "error", err)
				continue
			}

			outputPath := filepath.Join(f.outputDir, "Video_"+videoID+".txt")
			source := "https://www.youtube.com/watch?v=" + videoID
			body := fmt.Sprintf("Channel: %s\n\n%s", channel, transcript)
			if err := writeLabeled(outputPath, source, body); err != nil {
				f.logger.Error("writing transcript failed, skipping",
					"video_id", videoID, "error", err)
				continue
			}

			results = append(results, TranscriptResult{
				VideoID:       videoID,
				Channel:       channel,
				OutputPath:    outputPath,
				ContentLength: len(transcript),
			})
		}
	}

	return results, nil
}

// videoIDs scrapes a channel's videos page for up to maxVideos unique IDs,
// preserving page order.
func (f *TranscriptFetcher) videoIDs(ctx context.Context, channel string) ([]string, error) {
	page, err := f.get(ctx, f.channelBase+"/@"+url.PathEscape(channel)+"/videos")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, match := range videoIDRe.FindAllStringSubmatch(string(page), -1) {
		id := match[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) == f.maxVideos {
			break
		}
	}

	return ids, nil
}

// timedText mirrors the timed-text XML document.
type timedText struct {
	Texts []string `xml:"text"`
}

// transcript fetches and flattens a video's caption track.
func (f *TranscriptFetcher) transcript(ctx context.Context, videoID string) (string, error) {
	f.logger.Info("fetching transcript", "video_id", videoID)

	body, err := f.get(ctx, f.captionBase+"?lang=en&v="+url.QueryEscape(videoID))
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", fmt.Errorf("no captions available")
	}

	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("parsing captions: %w", err)
	}
	if len(doc.Texts) == 0 {
		return "", fmt.Errorf("empty caption track")
	}

	var sb strings.Builder
	for _, text := range doc.Texts {
		sb.WriteString(html.UnescapeString(text))
		sb.WriteString(" ")
	}

	return strings.TrimSpace(sb.String()), nil
}

// get performs a rate-limited GET and returns the body.
func (f *TranscriptFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
}

// maxFetchSize caps channel page and caption downloads.
const maxFetchSize = 10 * 1024 * 1024 // 10MB
