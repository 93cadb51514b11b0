package db

import (
	"strings"
	"unicode"
)

// Scorer names a full-text relevance function understood by FT.SEARCH.
type Scorer string

const (
	// ScorerTFIDF is the classic term frequency / inverse document frequency scorer.
	ScorerTFIDF Scorer = "TFIDF"
	// ScorerBM25 is Okapi BM25.
	ScorerBM25 Scorer = "BM25"
	// ScorerBM25Std is the normalized BM25 variant of Redis 8.
	ScorerBM25Std Scorer = "BM25STD"
)

// Valid reports whether s is a known scorer.
func (s Scorer) Valid() bool {
	switch s {
	case ScorerTFIDF, ScorerBM25, ScorerBM25Std:
		return true
	}
	return false
}

// TagFilter restricts a query to documents whose TAG field equals Value exactly.
type TagFilter struct {
	Field string
	Value string
}

// TextQuery is the input for ranked full-text search.
// Query is free text; any of its terms may match Field.
type TextQuery struct {
	IndexName    string
	Field        string
	Query        string
	Scorer       Scorer
	Tags         []TagFilter
	TopK         int
	ReturnFields []string
}

// ListQuery is the input for unranked paginated listing.
type ListQuery struct {
	IndexName    string
	Tags         []TagFilter
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// termSeparators are the characters the full-text tokenizer splits on, besides whitespace.
const termSeparators = ",.<>{}[]\"':;!@#$%^&*()-+=~|/\\?`"

// Tokenize splits s into lowercase terms the way a TEXT field is indexed.
// Separator characters never survive, so the terms need no query escaping.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(termSeparators, r)
	})
}
