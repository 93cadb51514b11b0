package decision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/jurisdoc/internal/db"
	"github.com/kailas-cloud/jurisdoc/internal/domain"
	domdec "github.com/kailas-cloud/jurisdoc/internal/domain/decision"
	"github.com/kailas-cloud/jurisdoc/internal/domain/search/result"
)

// Hash field names. Only content is full-text indexed; formation is an exact-match tag.
const (
	FieldID        = "id"
	FieldTitle     = "title"
	FieldFormation = "formation"
	FieldContent   = "content"
)

// Defaults for Config.
const (
	DefaultKeyPrefix = "jurisdoc:"
	DefaultPageSize  = 500
	tagSeparator     = "|"
)

// store is the consumer interface for decisions (ISP).
type store interface {
	HReplace(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HMGetMulti(ctx context.Context, keys []string, fields []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string, tags []db.TagFilter) (int, error)
}

// Config holds key naming and query tuning.
type Config struct {
	KeyPrefix string
	Scorer    db.Scorer
	Language  string
	PageSize  int
}

// Repo implements usecase/decision.Repository and usecase/ingest.Repository.
type Repo struct {
	store    store
	prefix   string
	scorer   db.Scorer
	language string
	pageSize int
}

// New creates a decision repository.
func New(s store, cfg Config) *Repo {
	r := &Repo{
		store:    s,
		prefix:   cfg.KeyPrefix,
		scorer:   cfg.Scorer,
		language: cfg.Language,
		pageSize: cfg.PageSize,
	}
	if r.prefix == "" {
		r.prefix = DefaultKeyPrefix
	}
	if r.pageSize <= 0 {
		r.pageSize = DefaultPageSize
	}
	return r
}

// IndexName returns the text index name.
func (r *Repo) IndexName() string { return r.prefix + "decisions:idx" }

func (r *Repo) keyPrefix() string { return r.prefix + "decision:" }

func (r *Repo) key(id string) string { return r.keyPrefix() + id }

func (r *Repo) idFromKey(key string) string { return strings.TrimPrefix(key, r.keyPrefix()) }

// EnsureIndex creates the text index when missing. Safe to call repeatedly.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := r.indexDefinition()
	if err != nil {
		return err
	}
	err = r.store.CreateIndex(ctx, def)
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w: %w", def.Name, domain.ErrStore, err)
	}
	return nil
}

// DropIndex removes the text index. Stored decisions are kept.
// A missing index is not an error.
func (r *Repo) DropIndex(ctx context.Context) error {
	err := r.store.DropIndex(ctx, r.IndexName())
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w: %w", r.IndexName(), domain.ErrStore, err)
	}
	return nil
}

// RebuildIndex drops and recreates the text index so stored decisions are
// re-indexed under the current definition (language, tag options).
func (r *Repo) RebuildIndex(ctx context.Context) error {
	if err := r.DropIndex(ctx); err != nil {
		return err
	}
	return r.EnsureIndex(ctx)
}

func (r *Repo) indexDefinition() (*db.IndexDefinition, error) {
	b := db.NewIndex(r.IndexName()).
		Prefix(r.keyPrefix()).
		Text(FieldContent).
		TagWithOpts(FieldFormation, tagSeparator, true)
	if r.language != "" {
		b = b.Language(r.language)
	}
	return b.Build()
}

// IndexExists reports whether the text index is present.
func (r *Repo) IndexExists(ctx context.Context) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.IndexName())
	if err != nil {
		return false, fmt.Errorf("index info: %w", err)
	}
	return ok, nil
}

// Upsert replaces the stored decision with d. Fields absent in d are removed.
func (r *Repo) Upsert(ctx context.Context, d *domdec.Decision) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := r.store.HReplace(ctx, r.key(d.ID()), buildHashFields(d)); err != nil {
		return &domain.StoreError{ID: d.ID(), Err: err}
	}
	return nil
}

// Get returns one decision.
func (r *Repo) Get(ctx context.Context, id string) (domdec.Decision, error) {
	m, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdec.Decision{}, domain.ErrDecisionNotFound
		}
		return domdec.Decision{}, &domain.StoreError{ID: id, Err: err}
	}
	if len(m) == 0 {
		return domdec.Decision{}, domain.ErrDecisionNotFound
	}
	return parseHashFields(id, m), nil
}

// List returns {id, title} for every stored decision.
func (r *Repo) List(ctx context.Context) ([]domdec.Summary, error) {
	keys, err := r.store.Scan(ctx, r.keyPrefix()+"*")
	if err != nil {
		return nil, fmt.Errorf("scan decisions: %w: %w", domain.ErrStore, err)
	}

	out := make([]domdec.Summary, 0, len(keys))
	for start := 0; start < len(keys); start += r.pageSize {
		chunk := keys[start:min(start+r.pageSize, len(keys))]
		rows, err := r.store.HMGetMulti(ctx, chunk, []string{FieldID, FieldTitle})
		if err != nil {
			return nil, fmt.Errorf("read decisions: %w: %w", domain.ErrStore, err)
		}
		for i, row := range rows {
			if row == nil {
				continue // deleted between SCAN and HMGET
			}
			out = append(out, summaryFromFields(r.idFromKey(chunk[i]), row))
		}
	}
	return out, nil
}

// ListByFormation returns {id, title} of decisions whose formation equals value exactly.
func (r *Repo) ListByFormation(ctx context.Context, formation string) ([]domdec.Summary, error) {
	q := &db.ListQuery{
		IndexName:    r.IndexName(),
		Tags:         []db.TagFilter{{Field: FieldFormation, Value: formation}},
		Limit:        r.pageSize,
		ReturnFields: []string{FieldID, FieldTitle},
	}

	var out []domdec.Summary
	for {
		res, err := r.store.SearchList(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("filter by formation: %w: %w", domain.ErrStore, err)
		}
		for _, e := range res.Entries {
			out = append(out, summaryFromFields(r.idFromKey(e.Key), e.Fields))
		}
		q.Offset += len(res.Entries)
		if len(res.Entries) < q.Limit || q.Offset >= res.Total {
			break
		}
	}
	if out == nil {
		out = []domdec.Summary{}
	}
	return out, nil
}

// Search ranks decisions by relevance of content to query; at most limit hits.
func (r *Repo) Search(ctx context.Context, query string, limit int) ([]result.Result, error) {
	res, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.IndexName(),
		Field:        FieldContent,
		Query:        query,
		Scorer:       r.scorer,
		TopK:         limit,
		ReturnFields: []string{FieldID, FieldTitle, FieldContent},
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w: %w", domain.ErrStore, err)
	}

	out := make([]result.Result, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := e.Fields[FieldID]
		if id == "" {
			id = r.idFromKey(e.Key)
		}
		out = append(out, result.New(id, e.Score, optional(e.Fields, FieldTitle), optional(e.Fields, FieldContent)))
	}
	return out, nil
}

// Count returns the number of indexed decisions.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.IndexName(), nil)
	if err != nil {
		return 0, fmt.Errorf("count: %w: %w", domain.ErrStore, err)
	}
	return n, nil
}
