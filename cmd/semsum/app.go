package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/semstreams/natsclient"

	"github.com/c360studio/semsum/config"
	"github.com/c360studio/semsum/export"
	"github.com/c360studio/semsum/pattern"
	"github.com/c360studio/semsum/pipeline"
	"github.com/c360studio/semsum/publish"
	"github.com/c360studio/semsum/storage"
)

// App wires configuration to the pipeline and its optional NATS services.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	nc   *natsclient.Client
	runs *storage.RunStore
}

// NewApp creates an application for a validated configuration. NATS is
// connected lazily, only when publishing or the run archive is used.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}
}

// Close releases the NATS connection, if any.
func (a *App) Close(ctx context.Context) {
	if a.nc != nil {
		if err := a.nc.Close(ctx); err != nil {
			a.logger.Debug("Error closing NATS connection", "error", err)
		}
		a.nc = nil
	}
}

// PatternSource picks where patterns come from: a pattern file when
// patternsPath is set, otherwise the configured miner command.
func (a *App) PatternSource(patternsPath string) (pattern.Source, error) {
	if patternsPath != "" {
		return pattern.FileSource{Path: patternsPath}, nil
	}
	if len(a.cfg.Mining.Miner) > 0 {
		return &pattern.ExecSource{
			Command: a.cfg.Mining.Miner,
			Timeout: a.cfg.Mining.Timeout,
			Logger:  a.logger,
		}, nil
	}
	return nil, fmt.Errorf("no pattern source: pass --patterns or set mining.miner")
}

// Summarizer builds a summarizer from the configuration.
func (a *App) Summarizer(ctx context.Context, source pattern.Source, stdout io.Writer) (*pipeline.Summarizer, error) {
	format, err := export.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithParams(a.cfg.Params()),
		pipeline.WithBaseIRI(a.cfg.Summary.BaseIRI),
		pipeline.WithFormat(format),
		pipeline.WithDumpDir(a.cfg.Output.DumpDir),
		pipeline.WithStdout(stdout),
		pipeline.WithLogger(a.logger),
	}

	if a.cfg.NATS.Publish {
		nc, err := a.connect(ctx)
		if err != nil {
			return nil, err
		}
		js, err := nc.JetStream()
		if err != nil {
			return nil, fmt.Errorf("get jetstream: %w", err)
		}
		if err := publish.EnsureStream(ctx, js); err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithPublisher(publish.NewPublisher(nc, publish.WithLogger(a.logger))))
	}

	if a.cfg.NATS.Archive {
		runs, err := a.RunStore(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithArchive(runs))
	}

	return pipeline.NewSummarizer(source, opts...)
}

// RunStore opens the run archive.
func (a *App) RunStore(ctx context.Context) (*storage.RunStore, error) {
	if a.runs != nil {
		return a.runs, nil
	}
	nc, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}
	runs, err := storage.NewRunStore(ctx, js)
	if err != nil {
		return nil, err
	}
	a.runs = runs
	return runs, nil
}

func (a *App) connect(ctx context.Context) (*natsclient.Client, error) {
	if a.nc != nil {
		return a.nc, nil
	}
	if a.cfg.NATS.URL == "" {
		return nil, fmt.Errorf("nats.url is not configured")
	}
	nc, err := connectToNATS(ctx, a.cfg.NATS.URL, a.logger)
	if err != nil {
		return nil, err
	}
	a.nc = nc
	return nc, nil
}

func connectToNATS(ctx context.Context, url string, logger *slog.Logger) (*natsclient.Client, error) {
	logger.Info("Connecting to NATS", "url", url)

	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	logger.Info("Connected to NATS", "url", url)
	return client, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

Start a server with JetStream enabled:
  docker run -p 4222:4222 nats -js

Or set nats.url in semsum.yaml to point to your NATS server.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}
