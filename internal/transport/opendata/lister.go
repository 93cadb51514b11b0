package opendata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/kailas-cloud/jurisdoc/internal/domain"
	"github.com/kailas-cloud/jurisdoc/internal/domain/source"
)

// List fetches the index page and returns every linked archive in page order.
// Relative links resolve against the index URL; duplicates are dropped.
func (c *Client) List(ctx context.Context) ([]source.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	indexURL := c.index.String()
	fail := func(status int, err error) error {
		return &domain.DiscoveryError{URL: indexURL, Status: status, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fail(0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, http.NoBody)
	if err != nil {
		return nil, fail(0, fmt.Errorf("new request: %w", err))
	}

	resp, err := c.http.Do(c.newRequest(req))
	if err != nil {
		return nil, fail(0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("parse index: %w", err))
	}

	return c.collectLinks(doc), nil
}

func (c *Client) collectLinks(doc *html.Node) []source.Location {
	var out []source.Location
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if loc, ok := c.resolve(attr(n, "href")); ok && !seen[loc.URL] {
				seen[loc.URL] = true
				out = append(out, loc)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return out
}

func (c *Client) resolve(href string) (source.Location, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return source.Location{}, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return source.Location{}, false
	}
	abs := c.index.ResolveReference(ref)
	if !strings.HasSuffix(abs.Path, c.suffix) {
		return source.Location{}, false
	}
	return source.NewLocation(abs.String()), true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
