package meteocat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
)

const (
	episodesPath    = "/pronostic/v2/smp/episodis-oberts"
	apiKeyHeader    = "x-api-key"
	maxResponseSize = 8 << 20
	maxErrorBody    = 512
)

// Client implements domain.EpisodeSource using the Meteocat SMP API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Meteocat client. An empty apiKey sends no key header.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// OpenEpisodes fetches the episodes open on date.
func (c *Client) OpenEpisodes(ctx context.Context, date domain.Date) ([]domain.Episode, error) {
	params := url.Values{"data": {date.String() + "Z"}}
	fullURL := c.baseURL + episodesPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("episodes request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("meteocat API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var episodes []domain.Episode
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&episodes); err != nil {
		return nil, fmt.Errorf("decode episodes: %w", err)
	}

	c.logger.Debug("episodes fetched",
		"date", date.String(),
		"episodes", len(episodes),
		"duration", time.Since(start),
	)
	return episodes, nil
}
