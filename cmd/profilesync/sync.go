package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"profilesync/pkg/audit"
	"profilesync/pkg/auth"
	"profilesync/pkg/config"
	"profilesync/pkg/engine"
	errs "profilesync/pkg/errors"
	"profilesync/pkg/fetcher"
	"profilesync/pkg/logger"
	"profilesync/pkg/ratelimit"
	"profilesync/pkg/runner"
	"profilesync/pkg/sheets"
	"profilesync/pkg/snapshot"
	"profilesync/pkg/ui"
)

// app bundles the wired components one run needs
type app struct {
	cfg     *config.Config
	writer  *sheets.Writer
	client  *sheets.Client
	engine  *engine.SyncContext
	sink    *audit.Sink
	fetcher *fetcher.Fetcher
	tags    map[string]string
	log     logger.Logger
}

// buildApp loads config, authenticates, and wires every component of the
// pipeline. Any error here is a fatal setup failure: nothing has been
// written yet and the process should exit non-zero.
func buildApp(ctx context.Context) (*app, error) {
	flags := map[string]interface{}{}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if quiet {
		flags["log-level"] = "error"
	}
	if spreadsheetID != "" {
		flags["spreadsheet-id"] = spreadsheetID
	}
	if maxPerRun >= 0 {
		flags["max-per-run"] = maxPerRun
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	log := logger.GetLogger()

	// Fill site credentials from the credential manager when the config
	// carries none
	if cfg.Site.Username == "" || cfg.Site.Password == "" {
		if manager, err := auth.NewManager(); err == nil {
			if account, err := manager.RetrieveDefault(); err == nil {
				cfg.Site.Username = account.Username
				cfg.Site.Password = account.Password
			}
		}
	}

	client := sheets.NewClient(cfg.Sheets.BaseURL, cfg.Sheets.SpreadsheetID, cfg.Sheets.Token, cfg.Sheets.CallTimeout, log)
	writer := sheets.NewWriter(client, sheets.WriterConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BackoffBase: cfg.Retry.BackoffBase,
		WriteDelay:  cfg.Sheets.WriteDelay,
		Context:     ctx,
	}, log)

	store := snapshot.NewStore(client, cfg.Sheets.ProfilesTab, cfg.Sheets.TagsTab, log)
	index, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	ui.PrintInfo("known profiles", fmt.Sprintf("%d", index.Len()))

	sink := audit.NewSink(writer, client, cfg.Sheets.LogTab, cfg.Sheets.DashboardTab, log)
	eng := engine.NewSyncContext(index, writer, sink, cfg.Sheets.ProfilesTab, log)

	sessions, err := fetcher.NewSessionStore("")
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute)
	f, err := fetcher.New(cfg.Site.BaseURL, cfg.Site.UserAgent, cfg.Site.PageTimeout, limiter, sessions, log)
	if err != nil {
		return nil, fmt.Errorf("building fetcher: %w", err)
	}
	if err := f.EnsureSession(cfg.Site.Username, cfg.Site.Password); err != nil {
		return nil, fmt.Errorf("site login: %w", err)
	}

	return &app{
		cfg:     cfg,
		writer:  writer,
		client:  client,
		engine:  eng,
		sink:    sink,
		fetcher: f,
		tags:    store.LoadTags(),
		log:     log,
	}, nil
}

// runSync executes one run over the given source builder and maps errors
// to exit codes: fatal setup failures exit non-zero, record-level failures
// do not.
func runSync(mode string, build func(a *app) (runner.Source, runner.StatusUpdater)) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		ui.PrintError("setup failed", err)
		return err
	}

	source, queue := build(a)
	r := runner.New(a.cfg, a.fetcher, a.engine, a.sink, queue, a.tags, a.log)

	result, err := r.Run(ctx, source, mode)
	if err != nil {
		var apiErr *errs.Error
		if errors.As(err, &apiErr) && !errs.IsFatal(apiErr.Type) {
			a.log.WithError(err).Warn("run degraded")
			return nil
		}
		ui.PrintError("run failed", err)
		return err
	}

	a.log.WithField("processed", result.Processed).Info("done")
	return nil
}
