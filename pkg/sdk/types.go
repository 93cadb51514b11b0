package jurisdoc

import "time"

// DecisionSummary is a decision as returned by listing and filtering.
// Nil fields were absent from the source record.
type DecisionSummary struct {
	ID    string
	Title *string
}

// Decision is a full decision record.
type Decision struct {
	ID      string
	Title   *string
	Content *string
}

// SearchHit is one ranked full-text match.
type SearchHit struct {
	ID      string
	Title   *string
	Content *string
	Score   float64
}

// IngestFailure describes one archive or record skipped during a pass.
type IngestFailure struct {
	Stage   string // fetch, archive, parse, store
	Archive string
	Member  string // empty for archive-level failures
	Err     string
}

// IngestSummary reports the outcome of one ingestion pass.
type IngestSummary struct {
	RunID          string
	Archives       int64
	ArchivesFailed int64
	Records        int64
	RecordsStored  int64
	RecordsSkipped int64
	Failures       []IngestFailure
	Duration       time.Duration
}
