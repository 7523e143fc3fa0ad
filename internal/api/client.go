package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matsen/citegraph/internal/graph"
)

const (
	// DefaultBaseURL is where the backend listens by default.
	DefaultBaseURL = "http://localhost:5000"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit caps requests per second so a held-down key cannot flood the backend.
	DefaultRateLimit = 20.0

	// MaxResponseSize bounds how much of a response body is read.
	MaxResponseSize = 64 * 1024 * 1024

	// RequestIDHeader carries a per-request id for backend log correlation.
	RequestIDHeader = "X-Request-ID"
)

// Endpoint paths.
const (
	PathGraph       = "/api/graph"
	PathPapers      = "/api/papers"
	PathUpload      = "/api/upload"
	PathAuthor      = "/api/query/author/"
	PathCitations   = "/api/query/citations/"
	PathInfluential = "/api/influential"
)

// Client is a rate-limited HTTP client for the citation graph backend.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit sets the maximum requests per second. Zero or less disables limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the backend at baseURL (DefaultBaseURL if empty).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), int(DefaultRateLimit)),
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Graph fetches the complete node/link set.
func (c *Client) Graph(ctx context.Context) (*graph.Data, error) {
	var data graph.Data
	if err := c.do(ctx, http.MethodGet, PathGraph, nil, "", &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// AddPaper submits a new paper.
func (c *Client) AddPaper(ctx context.Context, req PaperRequest) (*MessageResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding paper: %w", err)
	}
	var resp MessageResponse
	if err := c.do(ctx, http.MethodPost, PathPapers, bytes.NewReader(body), "application/json", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upload posts a CSV or JSON file as multipart form data under the field "file".
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*MessageResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("reading upload %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var resp MessageResponse
	if err := c.do(ctx, http.MethodPost, PathUpload, &buf, mw.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PapersByAuthor lists the papers written by an author.
func (c *Client) PapersByAuthor(ctx context.Context, name string) (*AuthorResult, error) {
	var res AuthorResult
	if err := c.do(ctx, http.MethodGet, PathAuthor+url.PathEscape(name), nil, "", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Citations lists the papers a paper cites and the papers citing it.
func (c *Client) Citations(ctx context.Context, title string) (*CitationResult, error) {
	var res CitationResult
	if err := c.do(ctx, http.MethodGet, PathCitations+url.PathEscape(title), nil, "", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Influential returns the most cited papers in rank order.
func (c *Client) Influential(ctx context.Context) ([]InfluentialPaper, error) {
	var res []InfluentialPaper
	if err := c.do(ctx, http.MethodGet, PathInfluential, nil, "", &res); err != nil {
		return nil, err
	}
	return res, nil
}

// do performs a request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("requestID", reqID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("requestID", reqID),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		return &APIError{StatusCode: resp.StatusCode, Message: eb.Error, Path: path}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
