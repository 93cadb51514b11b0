// Package memory is an in-process db.Store for tests and single-node local runs.
// Text ranking is a plain TF-IDF over the indexed TEXT fields.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/jurisdoc/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store keeps hashes and index definitions in maps guarded by one RWMutex.
type Store struct {
	mu      sync.RWMutex
	hashes  map[string]map[string]string
	indexes map[string]*db.IndexDefinition
	closed  bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		hashes:  make(map[string]map[string]string),
		indexes: make(map[string]*db.IndexDefinition),
	}
}

// Ping fails once the store is closed.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("ping: store closed")
	}
	return nil
}

// Close marks the store closed. Data is kept for inspection.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// WaitForReady returns immediately unless the store is closed.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// --- hashes ---

// HReplace swaps the hash at key for a copy of fields.
func (s *Store) HReplace(_ context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return &db.Error{Op: db.OpHSet, Key: key, Err: errors.New("no fields")}
	}
	h := make(map[string]string, len(fields))
	for k, v := range fields {
		h[k] = v
	}
	s.mu.Lock()
	s.hashes[key] = h
	s.mu.Unlock()
	return nil
}

// HGetAll returns a copy of the hash. A missing key yields an empty map.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

// HMGetMulti returns the named fields of each key; missing hashes yield nil.
func (s *Store) HMGetMulti(_ context.Context, keys []string, fields []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		out[i] = project(s.hashes[key], fields)
	}
	return out, nil
}

// Scan returns keys matching a glob pattern, sorted.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, &db.Error{Op: db.OpScan, Key: pattern, Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// --- indexes ---

// CreateIndex registers an index definition.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Key: def.Name, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	cp := *def
	cp.Prefixes = append([]string(nil), def.Prefixes...)
	cp.Fields = append([]db.IndexField(nil), def.Fields...)
	s.indexes[def.Name] = &cp
	return nil
}

// DropIndex forgets an index definition. Documents are kept.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(s.indexes, name)
	return nil
}

// IndexExists reports whether the index is registered.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

// --- search ---

// SearchText ranks indexed documents by TF-IDF over q.Field. Any query term may match.
func (s *Store) SearchText(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}
	terms := db.Tokenize(q.Query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, err := s.index(q.IndexName)
	if err != nil {
		return nil, err
	}
	if f := idx.Field(q.Field); f == nil || f.Type != db.IndexFieldText {
		return nil, &db.Error{Op: db.OpSearch, Key: q.IndexName, Err: fmt.Errorf("%s is not a TEXT field", q.Field)}
	}

	keys := s.matching(idx, q.Tags)
	tf := make(map[string]map[string]int, len(keys))
	df := make(map[string]int, len(terms))
	for _, k := range keys {
		counts := make(map[string]int)
		for _, tok := range db.Tokenize(s.hashes[k][q.Field]) {
			counts[tok]++
		}
		tf[k] = counts
		for _, t := range terms {
			if counts[t] > 0 {
				df[t]++
			}
		}
	}

	n := float64(len(keys))
	var entries []db.SearchEntry
	for _, k := range keys {
		var score float64
		for _, t := range terms {
			if c := tf[k][t]; c > 0 {
				score += float64(c) * (1 + math.Log(n/float64(df[t])))
			}
		}
		if score == 0 {
			continue
		}
		entries = append(entries, db.SearchEntry{
			Key:    k,
			Score:  score,
			Fields: project(s.hashes[k], q.ReturnFields),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	total := len(entries)
	if len(entries) > q.TopK {
		entries = entries[:q.TopK]
	}
	return &db.SearchResult{Total: total, Entries: entries}, nil
}

// SearchList pages through indexed documents in key order.
func (s *Store) SearchList(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, err := s.index(q.IndexName)
	if err != nil {
		return nil, err
	}
	keys := s.matching(idx, q.Tags)

	res := &db.SearchResult{Total: len(keys)}
	if q.Offset >= len(keys) {
		return res, nil
	}
	end := min(q.Offset+q.Limit, len(keys))
	for _, k := range keys[q.Offset:end] {
		res.Entries = append(res.Entries, db.SearchEntry{Key: k, Fields: project(s.hashes[k], q.ReturnFields)})
	}
	return res, nil
}

// SearchCount counts indexed documents matching tags.
func (s *Store) SearchCount(_ context.Context, index string, tags []db.TagFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, err := s.index(index)
	if err != nil {
		return 0, err
	}
	return len(s.matching(idx, tags)), nil
}

func (s *Store) index(name string) (*db.IndexDefinition, error) {
	idx, ok := s.indexes[name]
	if !ok {
		return nil, &db.Error{Op: db.OpSearch, Key: name, Err: db.ErrIndexNotFound}
	}
	return idx, nil
}

// matching returns sorted keys covered by idx whose tags all match. Caller holds mu.
func (s *Store) matching(idx *db.IndexDefinition, tags []db.TagFilter) []string {
	var keys []string
	for k, h := range s.hashes {
		if !covered(idx, k) || !tagsMatch(idx, h, tags) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func covered(idx *db.IndexDefinition, key string) bool {
	if len(idx.Prefixes) == 0 {
		return true
	}
	for _, p := range idx.Prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func tagsMatch(idx *db.IndexDefinition, h map[string]string, tags []db.TagFilter) bool {
	for _, t := range tags {
		f := idx.Field(t.Field)
		if f == nil || f.Type != db.IndexFieldTag {
			return false
		}
		if !tagMatch(f, h[t.Field], t.Value) {
			return false
		}
	}
	return true
}

func tagMatch(f *db.IndexField, stored, want string) bool {
	sep := f.TagSeparator
	if sep == "" {
		sep = ","
	}
	for _, v := range strings.Split(stored, sep) {
		v = strings.TrimSpace(v)
		if f.TagCaseSensitive && v == want {
			return true
		}
		if !f.TagCaseSensitive && strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func project(h map[string]string, fields []string) map[string]string {
	if h == nil {
		return nil
	}
	if len(fields) == 0 {
		out := make(map[string]string, len(h))
		for k, v := range h {
			out[k] = v
		}
		return out
	}
	var out map[string]string
	for _, f := range fields {
		if v, ok := h[f]; ok {
			if out == nil {
				out = make(map[string]string, len(fields))
			}
			out[f] = v
		}
	}
	return out
}
