// Package opendata talks to the public decision archive server: it lists the
// bundle links of the index page and streams bundles down.
package opendata

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Defaults for Config.
const (
	DefaultArchiveSuffix = ".tar.gz"
	DefaultFetchTimeout  = 10 * time.Minute
	DefaultListTimeout   = 30 * time.Second
	DefaultUserAgent     = "jurisdoc-ingest"
)

// Config configures a Client.
type Config struct {
	IndexURL      string
	ArchiveSuffix string
	UserAgent     string
	// FetchTimeout bounds one archive download including the body read.
	FetchTimeout time.Duration
	ListTimeout  time.Duration
	// RatePerSec throttles outgoing requests; 0 disables throttling.
	RatePerSec float64
}

// Client lists and fetches archives. Safe for concurrent use.
type Client struct {
	index         *url.URL
	suffix        string
	userAgent     string
	fetchTimeout  time.Duration
	listTimeout   time.Duration
	http          *http.Client
	limiter       *rate.Limiter
	downloadBytes prometheus.Counter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests, proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithDownloadCounter counts archive bytes read.
func WithDownloadCounter(c prometheus.Counter) Option {
	return func(cl *Client) { cl.downloadBytes = c }
}

// New validates cfg and creates a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.IndexURL == "" {
		return nil, fmt.Errorf("index URL is required")
	}
	index, err := url.Parse(cfg.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("parse index URL: %w", err)
	}
	if index.Scheme != "http" && index.Scheme != "https" {
		return nil, fmt.Errorf("index URL must be http(s), got %q", cfg.IndexURL)
	}

	c := &Client{
		index:        index,
		suffix:       cfg.ArchiveSuffix,
		userAgent:    cfg.UserAgent,
		fetchTimeout: cfg.FetchTimeout,
		listTimeout:  cfg.ListTimeout,
		http:         &http.Client{},
		limiter:      rate.NewLimiter(rate.Inf, 1),
	}
	if c.suffix == "" {
		c.suffix = DefaultArchiveSuffix
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = DefaultFetchTimeout
	}
	if c.listTimeout <= 0 {
		c.listTimeout = DefaultListTimeout
	}
	if cfg.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) newRequest(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.userAgent)
	return req
}
