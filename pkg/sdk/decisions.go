package jurisdoc

import (
	"context"
	"time"

	domdec "github.com/kailas-cloud/jurisdoc/internal/domain/decision"
)

// DecisionService queries stored decisions.
type DecisionService struct {
	svc decisionUseCase
	obs *observer
}

// List returns every stored decision.
func (s *DecisionService) List(ctx context.Context) (_ []DecisionSummary, err error) {
	start := time.Now()
	defer func() { s.obs.observe("decisions.list", start, err) }()

	items, err := s.svc.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return toSummaries(items), nil
}

// ByFormation returns decisions rendered by the given chamber.
func (s *DecisionService) ByFormation(ctx context.Context, formation string) (_ []DecisionSummary, err error) {
	start := time.Now()
	defer func() { s.obs.observe("decisions.by_formation", start, err) }()

	items, err := s.svc.FilterByFormation(ctx, formation)
	if err != nil {
		return nil, err
	}
	return toSummaries(items), nil
}

// Get returns one decision with its full text.
func (s *DecisionService) Get(ctx context.Context, id string) (_ Decision, err error) {
	start := time.Now()
	defer func() { s.obs.observe("decisions.get", start, err) }()

	d, err := s.svc.GetByID(ctx, id)
	if err != nil {
		return Decision{}, err
	}
	return Decision{ID: d.ID, Title: d.Title, Content: d.Content}, nil
}

// Search runs a ranked full-text query. limit <= 0 selects the default.
func (s *DecisionService) Search(ctx context.Context, query string, limit int) (_ []SearchHit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("decisions.search", start, err) }()

	results, err := s.svc.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, len(results))
	for i := range results {
		h := results[i].Hit()
		hits[i] = SearchHit{ID: h.ID, Title: h.Title, Content: h.Content, Score: h.Score}
	}
	return hits, nil
}

func toSummaries(items []domdec.Summary) []DecisionSummary {
	out := make([]DecisionSummary, len(items))
	for i, it := range items {
		out[i] = DecisionSummary{ID: it.ID, Title: it.Title}
	}
	return out
}
