package jurisdoc

import "github.com/kailas-cloud/jurisdoc/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDecisionNotFound = domain.ErrDecisionNotFound
	ErrInvalidQuery     = domain.ErrInvalidQuery
	ErrDiscovery        = domain.ErrDiscovery
	ErrStore            = domain.ErrStore
)
