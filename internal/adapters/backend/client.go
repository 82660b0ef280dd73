// Package backend talks to the analysis, fact-check and authentication
// services over HTTP.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/okian/fakemeh/pkg/logger"
	"github.com/okian/fakemeh/pkg/metrics"
)

const (
	defaultBaseURL = "http://localhost:5000"
	defaultTimeout = 30 * time.Second
	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// Client issues requests to the three backends. The zero configuration
// targets a local development server on port 5000.
type Client struct {
	analysisURL  string
	factCheckURL string
	authURL      string
	http         *http.Client
	logger       logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL points every endpoint at base using the default paths.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimRight(base, "/")
		if base == "" {
			return
		}
		c.analysisURL = base + "/analyze"
		c.factCheckURL = base + "/fact-check"
		c.authURL = base + "/login"
	}
}

// WithAnalysisURL overrides the analysis endpoint.
func WithAnalysisURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.analysisURL = u
		}
	}
}

// WithFactCheckURL overrides the fact-check endpoint.
func WithFactCheckURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.factCheckURL = u
		}
	}
}

// WithAuthURL overrides the login endpoint.
func WithAuthURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.authURL = u
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client with configuration options.
func NewClient(opts ...Option) *Client {
	c := &Client{http: &http.Client{Timeout: defaultTimeout}}
	WithBaseURL(defaultBaseURL)(c)
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("backend")
	}
	return c
}

// errorBody is the shape every backend uses to report failures.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// postJSON sends body as JSON and returns the status code and raw response.
func (c *Client) postJSON(ctx context.Context, url string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, eris.Wrap(err, "marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, eris.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordErrorByComponent("backend", "transport")
		return 0, nil, eris.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.RecordErrorByComponent("backend", "read_body")
		return resp.StatusCode, nil, eris.Wrapf(err, "read %s response", req.URL.Path)
	}
	return resp.StatusCode, data, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
