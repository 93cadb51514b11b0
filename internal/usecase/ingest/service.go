package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/jurisdoc/internal/archive"
	"github.com/kailas-cloud/jurisdoc/internal/domain"
	"github.com/kailas-cloud/jurisdoc/internal/domain/source"
	"github.com/kailas-cloud/jurisdoc/internal/logger"
)

// Defaults for Config.
const (
	DefaultWorkers      = 4
	DefaultStoreTimeout = 10 * time.Second
)

// Config tunes one ingestion pass.
type Config struct {
	Workers       int
	StoreTimeout  time.Duration
	MaxArchives   int // 0 = all
	MemberSuffix  string
	MaxMemberSize int64
}

// Service runs ingestion passes: list, fetch, unpack, parse, upsert.
type Service struct {
	lister  Lister
	fetcher Fetcher
	parser  Parser
	repo    Repository
	rec     Recorder
	cfg     Config
}

// New creates an ingestion service.
func New(lister Lister, fetcher Fetcher, parser Parser, repo Repository, cfg Config) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	return &Service{
		lister:  lister,
		fetcher: fetcher,
		parser:  parser,
		repo:    repo,
		rec:     nopRecorder{},
		cfg:     cfg,
	}
}

// WithRecorder attaches a metrics recorder.
func (s *Service) WithRecorder(r Recorder) *Service {
	if r != nil {
		s.rec = r
	}
	return s
}

// Run executes one pass. Only index creation, discovery failures and
// cancellation are returned as errors; everything else lands in the Summary.
// On cancellation the partial Summary is returned with ctx.Err().
func (s *Service) Run(ctx context.Context) (Summary, error) {
	col := newCollector(uuid.NewString())
	ctx, log := logger.WithFields(ctx, zap.String("run_id", col.runID))

	if err := s.repo.EnsureIndex(ctx); err != nil {
		return col.summary(), fmt.Errorf("ensure index: %w", err)
	}

	locs, err := s.lister.List(ctx)
	if err != nil {
		log.Error("archive discovery failed", zap.Error(err))
		return col.summary(), err
	}
	if s.cfg.MaxArchives > 0 && len(locs) > s.cfg.MaxArchives {
		locs = locs[:s.cfg.MaxArchives]
	}
	log.Info("ingestion started", zap.Int("archives", len(locs)), zap.Int("workers", s.cfg.Workers))

	jobs := make(chan source.Location)
	var g errgroup.Group
	for range s.cfg.Workers {
		g.Go(func() error {
			for loc := range jobs {
				s.processArchive(ctx, log, col, loc)
			}
			return nil
		})
	}

feed:
	for _, loc := range locs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- loc:
		}
	}
	close(jobs)
	_ = g.Wait()

	sum := col.summary()
	log.Info("ingestion finished",
		zap.Int64("archives", sum.Archives),
		zap.Int64("archives_failed", sum.ArchivesFailed),
		zap.Int64("records", sum.Records),
		zap.Int64("records_stored", sum.RecordsStored),
		zap.Int64("records_skipped", sum.RecordsSkipped),
		zap.Duration("duration", sum.Duration),
	)
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

// processArchive owns one archive end to end. It abandons the archive at the
// next record boundary once ctx is done.
func (s *Service) processArchive(ctx context.Context, log *zap.Logger, col *collector, loc source.Location) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	col.archives.Add(1)
	log = log.With(zap.String("archive", loc.Name))

	body, err := s.fetcher.Fetch(ctx, loc)
	if err != nil {
		s.archiveFailed(log, col, loc, StageFetch, err, start)
		return
	}
	defer body.Close()

	r, err := archive.NewReader(body, s.archiveOptions()...)
	if err != nil {
		s.archiveFailed(log, col, loc, stageOf(err), err, start)
		return
	}
	defer r.Close()

	for m, err := range r.All() {
		if ctx.Err() != nil {
			s.rec.ArchiveDone(StatusCancelled, time.Since(start))
			return
		}
		if err != nil {
			var merr *archive.MemberError
			if errors.As(err, &merr) {
				col.records.Add(1)
				s.recordFailed(log, col, loc, merr.Name, StageArchive, err)
				continue
			}
			s.archiveFailed(log, col, loc, stageOf(err), err, start)
			return
		}
		col.records.Add(1)
		s.processRecord(ctx, log, col, loc, m)
	}

	s.rec.ArchiveDone(StatusOK, time.Since(start))
	log.Debug("archive done", zap.Duration("elapsed", time.Since(start)))
}

func (s *Service) processRecord(
	ctx context.Context, log *zap.Logger, col *collector, loc source.Location, m archive.Member,
) {
	d, err := s.parser.Parse(m.Data)
	if err != nil {
		s.recordFailed(log, col, loc, m.Name, StageParse, err)
		return
	}
	if err := d.Validate(); err != nil {
		s.recordFailed(log, col, loc, m.Name, StageParse, err)
		return
	}

	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	err = s.repo.Upsert(sctx, &d)
	cancel()
	if err != nil {
		s.recordFailed(log, col, loc, m.Name, StageStore, err)
		return
	}

	col.stored.Add(1)
	s.rec.RecordDone(StatusStored)
}

func (s *Service) archiveFailed(
	log *zap.Logger, col *collector, loc source.Location, stage Stage, err error, start time.Time,
) {
	col.archivesFailed.Add(1)
	col.fail(Failure{Stage: stage, Archive: loc.Name, Err: err.Error()})
	s.rec.Failure(string(stage))
	s.rec.ArchiveDone(StatusFailed, time.Since(start))
	log.Warn("archive skipped", zap.String("stage", string(stage)), zap.Error(err))
}

func (s *Service) recordFailed(
	log *zap.Logger, col *collector, loc source.Location, member string, stage Stage, err error,
) {
	col.skipped.Add(1)
	col.fail(Failure{Stage: stage, Archive: loc.Name, Member: member, Err: err.Error()})
	s.rec.Failure(string(stage))
	s.rec.RecordDone(StatusSkipped)
	log.Warn("record skipped",
		zap.String("member", member),
		zap.String("stage", string(stage)),
		zap.Error(err),
	)
}

func (s *Service) archiveOptions() []archive.Option {
	var opts []archive.Option
	if s.cfg.MemberSuffix != "" {
		opts = append(opts, archive.WithSuffix(s.cfg.MemberSuffix))
	}
	if s.cfg.MaxMemberSize > 0 {
		opts = append(opts, archive.WithMaxMemberSize(s.cfg.MaxMemberSize))
	}
	return opts
}

// stageOf attributes a stream error: a body read that failed mid-download is a
// fetch failure even when it surfaces through the decompressor.
func stageOf(err error) Stage {
	if errors.Is(err, domain.ErrFetch) {
		return StageFetch
	}
	return StageArchive
}
