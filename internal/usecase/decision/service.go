package decision

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/jurisdoc/internal/domain"
	domdec "github.com/kailas-cloud/jurisdoc/internal/domain/decision"
	"github.com/kailas-cloud/jurisdoc/internal/domain/search/result"
)

// DefaultSearchLimit applies when the caller gives no positive limit.
const DefaultSearchLimit = 10

// Service answers read queries over stored decisions.
type Service struct {
	repo         Repository
	defaultLimit int
	maxLimit     int
}

// New creates a decision query service.
func New(repo Repository) *Service {
	return &Service{repo: repo, defaultLimit: DefaultSearchLimit, maxLimit: 100}
}

// WithSearchLimits configures the limit used when none is given and the cap.
func (s *Service) WithSearchLimits(defaultLimit, maxLimit int) *Service {
	if defaultLimit > 0 {
		s.defaultLimit = defaultLimit
	}
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	return s
}

// ListAll returns {id, title} of every stored decision.
func (s *Service) ListAll(ctx context.Context) ([]domdec.Summary, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	return out, nil
}

// FilterByFormation returns decisions whose formation equals formation exactly.
func (s *Service) FilterByFormation(ctx context.Context, formation string) ([]domdec.Summary, error) {
	if formation == "" {
		return nil, fmt.Errorf("formation is required: %w", domain.ErrInvalidQuery)
	}
	out, err := s.repo.ListByFormation(ctx, formation)
	if err != nil {
		return nil, fmt.Errorf("filter by formation: %w", err)
	}
	return out, nil
}

// GetByID returns one decision or domain.ErrDecisionNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (domdec.Full, error) {
	if id == "" {
		return domdec.Full{}, fmt.Errorf("id is required: %w", domain.ErrInvalidQuery)
	}
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return domdec.Full{}, fmt.Errorf("get decision: %w", err)
	}
	return d.Full(), nil
}

// Search ranks decisions by content relevance. Results are ordered by
// non-increasing score and never exceed the effective limit.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]result.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidQuery)
	}
	limit = s.effectiveLimit(limit)

	hits, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search decisions: %w", err)
	}

	// The backend already ranks; re-sorting keeps the ordering contract for every driver.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score() > hits[j].Score() })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Service) effectiveLimit(limit int) int {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	return min(limit, s.maxLimit)
}
