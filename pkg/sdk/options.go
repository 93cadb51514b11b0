package jurisdoc

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver      string // "redis" or "memory"
	addrs       []string
	password    string
	dialTimeout time.Duration

	keyPrefix string
	scorer    string
	language  string

	indexURL   string
	workers    int
	httpClient *http.Client

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance with RediSearch.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithDialTimeout bounds each Redis connection attempt. Default: 5s.
func WithDialTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.dialTimeout = d
	})
}

// WithMemory keeps decisions in process memory. Nothing survives Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.addrs = nil
	})
}

// WithKeyPrefix sets the namespace for hash keys and the index name. Default: "jurisdoc:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithScorer selects the relevance function: TFIDF (default), BM25 or BM25STD.
func WithScorer(scorer string) Option {
	return optionFunc(func(c *clientConfig) {
		c.scorer = scorer
	})
}

// WithLanguage sets the stemming language of the text index.
func WithLanguage(lang string) Option {
	return optionFunc(func(c *clientConfig) {
		c.language = lang
	})
}

// WithIndexURL sets the archive index page used by Ingest.
// Defaults to the Cour de cassation open data directory.
func WithIndexURL(u string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexURL = u
	})
}

// WithWorkers sets the number of archives processed concurrently. Default: 4.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithHTTPClient replaces the HTTP client used to download archives.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
