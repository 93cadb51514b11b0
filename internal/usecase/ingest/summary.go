package ingest

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stage names the pipeline step a failure happened in.
type Stage string

// Pipeline stages.
const (
	StageFetch   Stage = "fetch"
	StageArchive Stage = "archive"
	StageParse   Stage = "parse"
	StageStore   Stage = "store"
)

// Outcome labels passed to Recorder.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusStored    = "stored"
	StatusSkipped   = "skipped"
)

// MaxFailures bounds Summary.Failures; counters keep counting past it.
const MaxFailures = 100

// Failure describes one skipped unit. Member is empty for archive-level failures.
type Failure struct {
	Stage   Stage  `json:"stage"`
	Archive string `json:"archive"`
	Member  string `json:"member,omitempty"`
	Err     string `json:"error"`
}

// Summary reports the outcome of one pass.
type Summary struct {
	RunID          string        `json:"run_id"`
	Archives       int64         `json:"archives"`
	ArchivesFailed int64         `json:"archives_failed"`
	Records        int64         `json:"records"`
	RecordsStored  int64         `json:"records_stored"`
	RecordsSkipped int64         `json:"records_skipped"`
	Failures       []Failure     `json:"failures,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
}

// collector accumulates counters shared by workers.
type collector struct {
	runID          string
	start          time.Time
	archives       atomic.Int64
	archivesFailed atomic.Int64
	records        atomic.Int64
	stored         atomic.Int64
	skipped        atomic.Int64

	mu       sync.Mutex
	failures []Failure
}

func newCollector(runID string) *collector {
	return &collector{runID: runID, start: time.Now()}
}

func (c *collector) fail(f Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.failures) < MaxFailures {
		c.failures = append(c.failures, f)
	}
}

func (c *collector) summary() Summary {
	c.mu.Lock()
	failures := append([]Failure(nil), c.failures...)
	c.mu.Unlock()

	return Summary{
		RunID:          c.runID,
		Archives:       c.archives.Load(),
		ArchivesFailed: c.archivesFailed.Load(),
		Records:        c.records.Load(),
		RecordsStored:  c.stored.Load(),
		RecordsSkipped: c.skipped.Load(),
		Failures:       failures,
		Duration:       time.Since(c.start),
	}
}
