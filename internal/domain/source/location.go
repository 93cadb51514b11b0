package source

import (
	"net/url"
	"path"
)

// Location addresses one compressed bundle on the publishing server.
type Location struct {
	URL  string
	Name string
}

// NewLocation builds a Location, deriving the display name from the URL path.
func NewLocation(rawURL string) Location {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		name = path.Base(u.Path)
	}
	return Location{URL: rawURL, Name: name}
}
