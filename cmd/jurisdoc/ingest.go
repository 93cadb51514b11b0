package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	logpkg "github.com/kailas-cloud/jurisdoc/internal/logger"
	"github.com/kailas-cloud/jurisdoc/internal/metrics"
	"github.com/kailas-cloud/jurisdoc/internal/parser"
	"github.com/kailas-cloud/jurisdoc/internal/transport/opendata"
	ingestuc "github.com/kailas-cloud/jurisdoc/internal/usecase/ingest"
)

func ingestCmd(flags *globalFlags) *cobra.Command {
	var (
		maxArchives int
		workers     int
		indexURL    string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass over the archive index and print its summary",
		Long: `Lists every bundle on the archive index page, downloads and unpacks each,
parses its records and upserts them. Bundles or records that fail are skipped
and reported in the summary; only discovery and store set-up errors fail the run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("max-archives") {
				a.cfg.Ingest.MaxArchives = maxArchives
			}
			if workers > 0 {
				a.cfg.Ingest.Workers = workers
			}
			if indexURL != "" {
				a.cfg.Ingest.IndexURL = indexURL
			}

			sum, runErr := a.ingest(ctx)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(sum); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			return runErr
		},
	}

	cmd.Flags().IntVar(&maxArchives, "max-archives", 0, "Process at most N archives (0 = all)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Override ingest.workers")
	cmd.Flags().StringVar(&indexURL, "index-url", "", "Override ingest.index_url")
	return cmd
}

func (a *app) ingest(ctx context.Context) (ingestuc.Summary, error) {
	cfg := a.cfg.Ingest

	metrics.RegisterIngestMetrics()

	source, err := opendata.New(opendata.Config{
		IndexURL:      cfg.IndexURL,
		ArchiveSuffix: cfg.ArchiveSuffix,
		UserAgent:     cfg.UserAgent,
		FetchTimeout:  cfg.FetchTimeout(),
		ListTimeout:   cfg.ListTimeout(),
		RatePerSec:    cfg.FetchRatePerSec,
	}, opendata.WithDownloadCounter(metrics.IngestDownloadBytes))
	if err != nil {
		return ingestuc.Summary{}, fmt.Errorf("configure source: %w", err)
	}

	svc := ingestuc.New(source, source, parser.New(), a.repo, ingestuc.Config{
		Workers:       cfg.Workers,
		StoreTimeout:  cfg.StoreTimeout(),
		MaxArchives:   cfg.MaxArchives,
		MemberSuffix:  cfg.MemberSuffix,
		MaxMemberSize: int64(cfg.MaxMemberMB) << 20,
	}).WithRecorder(metrics.IngestRecorder{})

	return svc.Run(logpkg.ContextWithLogger(ctx, a.logger))
}
