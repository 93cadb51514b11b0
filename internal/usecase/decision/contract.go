package decision

import (
	"context"

	domdec "github.com/kailas-cloud/jurisdoc/internal/domain/decision"
	"github.com/kailas-cloud/jurisdoc/internal/domain/search/result"
)

// Repository defines the read contract for stored decisions.
type Repository interface {
	Get(ctx context.Context, id string) (domdec.Decision, error)
	List(ctx context.Context) ([]domdec.Summary, error)
	ListByFormation(ctx context.Context, formation string) ([]domdec.Summary, error)
	Search(ctx context.Context, query string, limit int) ([]result.Result, error)
}
