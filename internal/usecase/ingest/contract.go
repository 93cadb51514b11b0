package ingest

import (
	"context"
	"io"
	"time"

	domdec "github.com/kailas-cloud/jurisdoc/internal/domain/decision"
	"github.com/kailas-cloud/jurisdoc/internal/domain/source"
)

// Lister discovers the archives of one ingestion pass.
type Lister interface {
	List(ctx context.Context) ([]source.Location, error)
}

// Fetcher opens a byte stream for one archive.
type Fetcher interface {
	Fetch(ctx context.Context, loc source.Location) (io.ReadCloser, error)
}

// Parser converts one record blob into a decision.
type Parser interface {
	Parse(blob []byte) (domdec.Decision, error)
}

// Repository is the write side of the decision store.
type Repository interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, d *domdec.Decision) error
}

// Recorder receives ingestion counters. Implementations must be goroutine-safe.
type Recorder interface {
	ArchiveDone(status string, elapsed time.Duration)
	RecordDone(status string)
	Failure(stage string)
}

type nopRecorder struct{}

func (nopRecorder) ArchiveDone(string, time.Duration) {}
func (nopRecorder) RecordDone(string)                 {}
func (nopRecorder) Failure(string)                    {}
