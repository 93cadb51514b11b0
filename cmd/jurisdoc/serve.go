package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	logpkg "github.com/kailas-cloud/jurisdoc/internal/logger"
	"github.com/kailas-cloud/jurisdoc/internal/metrics"
	chiTransport "github.com/kailas-cloud/jurisdoc/internal/transport/chi"
	authuc "github.com/kailas-cloud/jurisdoc/internal/usecase/auth"
	decisionuc "github.com/kailas-cloud/jurisdoc/internal/usecase/decision"
	healthuc "github.com/kailas-cloud/jurisdoc/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/jurisdoc/internal/usecase/ingest"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var ingestOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the decision search HTTP API",
		Long: `Serves the decision search API. With --ingest-on-start one ingestion pass
runs alongside the server. The memory driver keeps nothing between processes,
so it enables the pass unless --ingest-on-start=false is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			run := shouldIngestOnStart(a.cfg.Database.Driver, ingestOnStart, cmd.Flags().Changed("ingest-on-start"))
			if !run && a.cfg.Database.Driver == "memory" {
				a.logger.Warn("Serving an empty memory store; decisions are only loaded by --ingest-on-start")
			}
			return a.serve(ctx, run)
		},
	}
	cmd.Flags().BoolVar(&ingestOnStart, "ingest-on-start", false,
		"Run one ingestion pass in the background while serving (default on for the memory driver)")
	return cmd
}

// shouldIngestOnStart resolves --ingest-on-start. An explicit flag wins;
// otherwise only the memory driver ingests, since it starts empty.
func shouldIngestOnStart(driver string, flagValue, flagSet bool) bool {
	if flagSet {
		return flagValue
	}
	return driver == "memory"
}

func (a *app) serve(ctx context.Context, ingestOnStart bool) error {
	cfg, logger := a.cfg, a.logger

	if err := a.repo.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	auth, err := authuc.New(authuc.Config{
		Username:     cfg.Auth.Username,
		PasswordHash: cfg.Auth.PasswordHash,
		Password:     cfg.Auth.Password,
		Secret:       cfg.Auth.JWTSecret,
		TokenTTL:     time.Duration(cfg.Auth.TokenTTLMin) * time.Minute,
		Issuer:       cfg.Auth.Issuer,
	})
	if err != nil {
		return fmt.Errorf("configure auth: %w", err)
	}

	decisions := decisionuc.New(a.repo).
		WithSearchLimits(cfg.Index.DefaultSearchLimit, cfg.Index.MaxSearchLimit)
	health := healthuc.New(a.store, a.repo)
	server := chiTransport.NewServer(decisions, auth, health, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(auth))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ChiServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
				Code:    chiTransport.ErrorCodeBadRequest,
				Message: err.Error(),
			})
		},
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if ingestOnStart {
		g.Go(func() error {
			a.backgroundIngest(gctx, a.ingest)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// backgroundIngest runs one ingestion pass next to the server. A failed pass
// is logged and the API keeps answering from what was stored.
func (a *app) backgroundIngest(ctx context.Context, run func(context.Context) (ingestuc.Summary, error)) {
	a.logger.Info("Starting ingestion pass")
	sum, err := run(ctx)
	if err != nil {
		a.logger.Error("Ingestion pass failed", zap.Error(err))
		return
	}
	a.logger.Info("Ingestion pass finished",
		zap.String("run_id", sum.RunID),
		zap.Int64("archives", sum.Archives),
		zap.Int64("records_stored", sum.RecordsStored),
		zap.Int64("records_skipped", sum.RecordsSkipped),
	)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line: one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
