package jurisdoc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/jurisdoc/internal/db"
	"github.com/kailas-cloud/jurisdoc/internal/db/memory"
	dbRedis "github.com/kailas-cloud/jurisdoc/internal/db/redis"
	domdec "github.com/kailas-cloud/jurisdoc/internal/domain/decision"
	"github.com/kailas-cloud/jurisdoc/internal/domain/search/result"
	"github.com/kailas-cloud/jurisdoc/internal/parser"
	decisionrepo "github.com/kailas-cloud/jurisdoc/internal/repository/decision"
	"github.com/kailas-cloud/jurisdoc/internal/transport/opendata"
	decisionuc "github.com/kailas-cloud/jurisdoc/internal/usecase/decision"
	healthuc "github.com/kailas-cloud/jurisdoc/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/jurisdoc/internal/usecase/ingest"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultDialTimeout      = 5 * time.Second

	// DefaultIndexURL is the Cour de cassation open data directory.
	DefaultIndexURL = "https://echanges.dila.gouv.fr/OPENDATA/CASS/"
)

// Internal interfaces, swapped out in tests.
type decisionUseCase interface {
	ListAll(ctx context.Context) ([]domdec.Summary, error)
	FilterByFormation(ctx context.Context, formation string) ([]domdec.Summary, error)
	GetByID(ctx context.Context, id string) (domdec.Full, error)
	Search(ctx context.Context, query string, limit int) ([]result.Result, error)
}

type ingestUseCase interface {
	Run(ctx context.Context) (ingestuc.Summary, error)
}

// Client is the jurisdoc SDK entry point.
type Client struct {
	store     db.Store
	repo      *decisionrepo.Repo
	decSvc    decisionUseCase
	ingestSvc ingestUseCase
	healthSvc healthUseCase
	obs       *observer
}

// Open creates a Client, connects to the store and makes sure the text index exists.
// The provided context is used for the readiness check and index creation.
func Open(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		indexURL:    DefaultIndexURL,
		dialTimeout: defaultDialTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("jurisdoc: store required (use WithRedis or WithMemory)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("jurisdoc: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	if err := c.repo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("jurisdoc: ensure index: %w", err)
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "redis":
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, errors.New("jurisdoc: redis address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:       cfg.addrs,
			Password:    cfg.password,
			DialTimeout: cfg.dialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("jurisdoc: create redis store: %w", err)
		}
		return s, nil
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("jurisdoc: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	repo := decisionrepo.New(store, decisionrepo.Config{
		KeyPrefix: cfg.keyPrefix,
		Scorer:    db.Scorer(strings.ToUpper(cfg.scorer)),
		Language:  cfg.language,
	})

	var fetchOpts []opendata.Option
	if cfg.httpClient != nil {
		fetchOpts = append(fetchOpts, opendata.WithHTTPClient(cfg.httpClient))
	}
	source, err := opendata.New(opendata.Config{IndexURL: cfg.indexURL}, fetchOpts...)
	if err != nil {
		return nil, fmt.Errorf("jurisdoc: configure source: %w", err)
	}

	return &Client{
		store:     store,
		repo:      repo,
		decSvc:    decisionuc.New(repo),
		ingestSvc: ingestuc.New(source, source, parser.New(), repo, ingestuc.Config{Workers: cfg.workers}),
		healthSvc: healthuc.New(store, repo),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Decisions returns the query service.
func (c *Client) Decisions() *DecisionService {
	return &DecisionService{svc: c.decSvc, obs: c.obs}
}

// Ingest runs one ingestion pass over the archive index. Archives and records
// that fail are skipped and listed in the summary; the error is non-nil only
// when discovery fails, the index cannot be created or ctx is cancelled.
func (c *Client) Ingest(ctx context.Context) (_ IngestSummary, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err) }()

	raw, err := c.ingestSvc.Run(ctx)
	sum := toIngestSummary(raw)
	c.obs.observeIngest(sum, err)
	return sum, err
}

func toIngestSummary(s ingestuc.Summary) IngestSummary {
	out := IngestSummary{
		RunID:          s.RunID,
		Archives:       s.Archives,
		ArchivesFailed: s.ArchivesFailed,
		Records:        s.Records,
		RecordsStored:  s.RecordsStored,
		RecordsSkipped: s.RecordsSkipped,
		Duration:       s.Duration,
	}
	if len(s.Failures) > 0 {
		out.Failures = make([]IngestFailure, len(s.Failures))
		for i, f := range s.Failures {
			out.Failures[i] = IngestFailure{
				Stage:   string(f.Stage),
				Archive: f.Archive,
				Member:  f.Member,
				Err:     f.Err,
			}
		}
	}
	return out
}
