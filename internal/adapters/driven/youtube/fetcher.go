package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.TranscriptFetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout   = 30 * time.Second
	maxPlayerBytes   = 3 * 1024 * 1024
	maxTimedTextSize = 4 * 1024 * 1024
)

// Config holds configuration for the transcript fetcher.
type Config struct {
	// PlayerURL overrides the Innertube /player endpoint (tests).
	PlayerURL string

	// UserAgent overrides the ANDROID client user agent.
	UserAgent string

	// RequestsPerSecond paces all requests made by this fetcher.
	RequestsPerSecond float64

	// MaxBackoff caps a Retry-After hint from a throttled response.
	MaxBackoff time.Duration

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// HTTPClient replaces the default client.
	HTTPClient *http.Client
}

// Fetcher retrieves transcripts through the Innertube player API.
type Fetcher struct {
	client     *http.Client
	playerURL  string
	userAgent  string
	maxBackoff time.Duration
	limiter    *RateLimiter
}

// NewFetcher creates a transcript fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.PlayerURL == "" {
		cfg.PlayerURL = defaultPlayerURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = androidUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Fetcher{
		client:     client,
		playerURL:  cfg.PlayerURL,
		userAgent:  cfg.UserAgent,
		maxBackoff: cfg.MaxBackoff,
		limiter:    NewRateLimiter(cfg.RequestsPerSecond),
	}
}

// Fetch returns the transcript of videoID in the first available language
// from preferred, then fallback.
func (f *Fetcher) Fetch(ctx context.Context, videoID string, preferred, fallback []string) (*domain.Transcript, error) {
	player, err := f.player(ctx, videoID)
	if err != nil {
		return nil, err
	}

	tracks := player.tracks()
	if len(tracks) == 0 {
		if player.botCheck() {
			return nil, fmt.Errorf("%w: %s", domain.ErrFetchRateLimited, player.reason())
		}
		reason := player.reason()
		if reason == "" {
			reason = "no caption tracks"
		}
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrFetchUnavailable, videoID, reason)
	}

	track, ok := pickTrack(tracks, preferred, fallback)
	if !ok {
		return nil, fmt.Errorf("%w: %s: no track in %v or %v", domain.ErrFetchUnavailable, videoID, preferred, fallback)
	}
	logger.Debug("youtube: %s using %s track (kind=%q)", videoID, track.LanguageCode, track.Kind)

	body, err := f.do(ctx, http.MethodGet, track.BaseURL, nil, maxTimedTextSize)
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	segments, err := parseTimedText(body)
	if err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s: empty %s transcript", domain.ErrFetchUnavailable, videoID, track.LanguageCode)
	}

	source := domain.Source{ID: videoID, URL: domain.WatchURL(videoID)}
	if d := player.VideoDetails; d != nil {
		source.Title = d.Title
		source.Uploader = d.Author
		source.Duration = d.duration()
	}
	if source.Title == "" {
		source.Title = videoID
	}

	return &domain.Transcript{
		Source:   source,
		Language: track.LanguageCode,
		Segments: segments,
	}, nil
}

func (f *Fetcher) player(ctx context.Context, videoID string) (*playerResponse, error) {
	reqBody, err := json.Marshal(newPlayerRequest(videoID))
	if err != nil {
		return nil, err
	}

	data, err := f.do(ctx, http.MethodPost, f.playerURL+"?prettyPrint=false", reqBody, maxPlayerBytes)
	if err != nil {
		return nil, fmt.Errorf("innertube player: %w", err)
	}

	player, err := decodePlayer(data)
	if err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return player, nil
}

// do performs one paced request and returns the body of a 200 response.
func (f *Fetcher) do(ctx context.Context, method, url string, body []byte, limit int64) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", androidVersion)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		f.limiter.RecordRateLimit(resp.Header, f.maxBackoff)
		return nil, fmt.Errorf("%w: HTTP 429", domain.ErrFetchRateLimited)
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet)
	}

	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
