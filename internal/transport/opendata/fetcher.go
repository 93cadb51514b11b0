package opendata

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/jurisdoc/internal/domain"
	"github.com/kailas-cloud/jurisdoc/internal/domain/source"
)

// Fetch opens a streaming download of one archive. The fetch timeout covers the
// whole body read; the caller must Close the returned reader.
func (c *Client) Fetch(ctx context.Context, loc source.Location) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)

	fail := func(status int, err error) (io.ReadCloser, error) {
		cancel()
		return nil, &domain.FetchError{URL: loc.URL, Status: status, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.URL, http.NoBody)
	if err != nil {
		return fail(0, fmt.Errorf("new request: %w", err))
	}

	resp, err := c.http.Do(c.newRequest(req))
	if err != nil {
		return fail(0, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return fail(resp.StatusCode, fmt.Errorf("unexpected response"))
	}

	return &body{
		ReadCloser: resp.Body,
		cancel:     cancel,
		url:        loc.URL,
		counter:    c.downloadBytes,
	}, nil
}

// body releases the request context on Close and counts bytes read.
type body struct {
	io.ReadCloser
	cancel  context.CancelFunc
	url     string
	counter prometheus.Counter
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if b.counter != nil && n > 0 {
		b.counter.Add(float64(n))
	}
	if err != nil && err != io.EOF { //nolint:errorlint // io.EOF is returned unwrapped by contract
		return n, &domain.FetchError{URL: b.url, Err: err}
	}
	return n, err
}

func (b *body) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
