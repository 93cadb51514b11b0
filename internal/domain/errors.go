package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDecisionNotFound signals a missing decision.
	ErrDecisionNotFound = errors.New("decision not found")
	// ErrInvalidQuery signals an empty or malformed query parameter.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrMissingID signals a record without an identifier. Such records are never stored.
	ErrMissingID = errors.New("decision has no id")
	// ErrIDTooLong signals an identifier longer than decision.MaxIDLength.
	ErrIDTooLong = errors.New("decision id too long")

	// ErrDiscovery signals that the archive index could not be listed.
	ErrDiscovery = errors.New("source discovery failed")
	// ErrFetch signals that an archive could not be downloaded.
	ErrFetch = errors.New("archive fetch failed")
	// ErrArchive signals an unreadable compressed bundle.
	ErrArchive = errors.New("invalid archive")
	// ErrParse signals a malformed record.
	ErrParse = errors.New("malformed record")
	// ErrStore signals a failed store write or read.
	ErrStore = errors.New("store failure")

	// ErrInvalidCredentials signals a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized signals a missing, expired or forged bearer token.
	ErrUnauthorized = errors.New("unauthorized")
)

// DiscoveryError wraps ErrDiscovery with the index location and HTTP status (0 when no response).
type DiscoveryError struct {
	URL    string
	Status int
	Err    error
}

func (e *DiscoveryError) Error() string {
	return describe(ErrDiscovery, e.URL, e.Status, e.Err)
}

func (e *DiscoveryError) Unwrap() []error { return []error{ErrDiscovery, e.Err} }

// FetchError wraps ErrFetch with the archive location and HTTP status (0 when no response).
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	return describe(ErrFetch, e.URL, e.Status, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// StoreError wraps ErrStore with the decision id being written or read.
type StoreError struct {
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: decision %q: %v", ErrStore, e.ID, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

func describe(kind error, url string, status int, err error) string {
	msg := kind.Error() + ": " + url
	if status != 0 {
		msg += fmt.Sprintf(": status %d", status)
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	return msg
}
