package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jurisdoc/internal/config"
	"github.com/kailas-cloud/jurisdoc/internal/db"
	"github.com/kailas-cloud/jurisdoc/internal/db/memory"
	dbRedis "github.com/kailas-cloud/jurisdoc/internal/db/redis"
	logpkg "github.com/kailas-cloud/jurisdoc/internal/logger"
	decisionrepo "github.com/kailas-cloud/jurisdoc/internal/repository/decision"
	"github.com/kailas-cloud/jurisdoc/internal/version"
)

// app is the composition root shared by the subcommands.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	store  db.Store
	repo   *decisionrepo.Repo
}

func newApp(ctx context.Context, flags *globalFlags) (*app, error) {
	var (
		cfg config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load(flags.env)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logger, err := logpkg.NewLogger(flags.env, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting jurisdoc",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", flags.env),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := openStore(cfg.Database)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("create database store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	repo := decisionrepo.New(store, decisionrepo.Config{
		KeyPrefix: cfg.Database.KeyPrefix,
		Scorer:    db.Scorer(strings.ToUpper(cfg.Index.Scorer)),
		Language:  cfg.Index.Language,
		PageSize:  cfg.Index.ListPageSize,
	})

	return &app{env: flags.env, cfg: cfg, logger: logger, store: store, repo: repo}, nil
}

func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "redis":
		s, err := dbRedis.NewStore(redisConfig(cfg))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func redisConfig(cfg config.DatabaseConfig) dbRedis.Config {
	return dbRedis.Config{
		Addrs:       cfg.Addrs,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout(),
	}
}

func (a *app) Close() {
	a.store.Close()
	_ = a.logger.Sync()
}
