package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"log/slog"

	"github.com/icco/kodflex/lib/metrics"
	"github.com/icco/kodflex/models"
	jsoniter "github.com/json-iterator/go"
)

const (
	DefaultBaseURL   = "https://api.themoviedb.org/3"
	DefaultImageHost = "https://image.tmdb.org"
	DefaultImageSize = "w500"
)

// ErrFetch wraps every failure to get a usable response from the service.
var ErrFetch = errors.New("tmdb: fetch failed")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Client struct {
	apiKey     string
	baseURL    string
	imageHost  string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

// WithBaseURL points the client at a different API root, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithImageHost(host string) Option {
	return func(c *Client) {
		c.imageHost = host
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// listResult is the envelope shared by the list and search endpoints.
type listResult struct {
	Results []models.Movie `json:"results"`
}

func NewClient(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:    apiKey,
		baseURL:   DefaultBaseURL,
		imageHost: DefaultImageHost,
		// No timeout: requests live as long as the caller's context.
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Trending(ctx context.Context) ([]models.Movie, error) {
	return c.list(ctx, "trending", "/trending/movie/week")
}

func (c *Client) Popular(ctx context.Context) ([]models.Movie, error) {
	return c.list(ctx, "popular", "/movie/popular")
}

func (c *Client) TopRated(ctx context.Context) ([]models.Movie, error) {
	return c.list(ctx, "top_rated", "/movie/top_rated")
}

func (c *Client) Upcoming(ctx context.Context) ([]models.Movie, error) {
	return c.list(ctx, "upcoming", "/movie/upcoming")
}

// Search returns results in the service's relevance order.
func (c *Client) Search(ctx context.Context, query string) ([]models.Movie, error) {
	var result listResult
	if err := c.get(ctx, "search", "/search/movie", url.Values{"query": {query}}, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func (c *Client) Details(ctx context.Context, id int) (*models.MovieDetails, error) {
	var details models.MovieDetails
	if err := c.get(ctx, "details", "/movie/"+strconv.Itoa(id), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// ImageURL builds an image link on the image host. An empty size means w500; an
// empty path leaves the URL without a path suffix.
func (c *Client) ImageURL(path, size string) string {
	return ImageURL(c.imageHost, path, size)
}

func ImageURL(host, path, size string) string {
	if size == "" {
		size = DefaultImageSize
	}
	return fmt.Sprintf("%s/t/p/%s%s", host, size, path)
}

func (c *Client) list(ctx context.Context, endpoint, path string) ([]models.Movie, error) {
	var result listResult
	if err := c.get(ctx, endpoint, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	u := c.baseURL + path + "?" + params.Encode()

	start := time.Now()
	status := "error"
	defer func() {
		metrics.UpstreamRequests.WithLabelValues(endpoint, status).Inc()
		metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Catalog request failed", slog.String("endpoint", endpoint), slog.Any("error", err))
		return fmt.Errorf("%w: failed to make request: %w", ErrFetch, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	status = strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Catalog request returned bad status",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: bad status %d from %s", ErrFetch, resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("Failed to decode catalog response", slog.String("endpoint", endpoint), slog.Any("error", err))
		return fmt.Errorf("%w: failed to decode response: %w", ErrFetch, err)
	}

	c.logger.Debug("Catalog request done",
		slog.String("endpoint", endpoint),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
