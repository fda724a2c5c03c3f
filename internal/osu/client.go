package osu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/rankwatch/internal/config"
)

// Client talks to the osu! v2 API. It owns the transport concerns the page
// types delegate to: OAuth client-credentials tokens, URL construction, the
// single round trip per call, and status handling. It is safe for concurrent
// use; each call is independent and carries its own context.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates an API client from configuration. Tokens are fetched
// lazily on first use and refreshed transparently when they expire.
func NewClient(cfg *config.OsuConfig, logger *slog.Logger) *Client {
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       []string{"public"},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	httpClient := creds.Client(context.Background())
	httpClient.Timeout = cfg.Timeout

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// Rankings fetches the first page of the global performance or score
// ranking for a mode. Further pages are reached through Rankings.GetNext.
func (c *Client) Rankings(ctx context.Context, mode GameMode, kind RankingKind) (*Rankings, error) {
	return fetchRankings(ctx, c, mode, kind, nil)
}

// CountryRankings fetches the first page of the per-country ranking for a
// mode.
func (c *Client) CountryRankings(ctx context.Context, mode GameMode) (*CountryRankings, error) {
	return fetchCountryRankings(ctx, c, mode, nil)
}

// ChartRankings fetches the latest spotlight chart for a mode.
func (c *Client) ChartRankings(ctx context.Context, mode GameMode) (*ChartRankings, error) {
	req := Request{Route: chartRankingsRoute(mode)}

	var chart ChartRankings
	if err := c.Fetch(ctx, req, &chart); err != nil {
		return nil, err
	}
	return &chart, nil
}

// News fetches the first page of the news listing.
func (c *Client) News(ctx context.Context) (*News, error) {
	return fetchNews(ctx, c, Cursor{})
}

// Fetch implements Requester: one round trip, decoded straight into v.
// Non-2xx responses come back as *APIError; decode failures surface the
// underlying error unchanged.
func (c *Client) Fetch(ctx context.Context, req Request, v any) error {
	query := url.Values{}
	for key, vals := range req.Query {
		query[key] = vals
	}
	if err := req.Cursor.appendQuery(query); err != nil {
		return err
	}

	endpoint := c.baseURL + "/" + req.Route.Path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Route.Method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("api request", "method", req.Route.Method, "path", req.Route.Path)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", req.Route.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.Route.Path, err)
	}
	return nil
}
