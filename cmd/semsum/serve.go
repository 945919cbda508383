package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semsum/config"
	"github.com/c360studio/semsum/pipeline"
	graphsummarizer "github.com/c360studio/semsum/processor/graph-summarizer"
	"github.com/c360studio/semsum/publish"
)

type serveFlags struct {
	natsURL       string
	patterns      string
	org           string
	flushInterval time.Duration
	maxEntities   int
	metricsAddr   string
}

func serveCmd(g *globalFlags) *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Summarize the live entity stream over NATS",
		Long: `Serve runs the graph-summarizer processor. It consumes entity ingest
messages from the GRAPH stream, collects them in a tumbling window and
publishes a summary of each window on graph.export.summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("nats-url") {
				cfg.NATS.URL = f.natsURL
			}
			if !cmd.Flags().Changed("metrics-addr") {
				f.metricsAddr = cfg.Metrics.Addr
			}

			raw, err := componentConfig(cfg, &f)
			if err != nil {
				return err
			}

			app := NewApp(cfg, slog.Default())
			defer app.Close(context.Background())
			return app.Serve(cmd.Context(), raw, f.metricsAddr)
		},
	}

	cmd.Flags().StringVar(&f.natsURL, "nats-url", "", "NATS server URL")
	cmd.Flags().StringVar(&f.patterns, "patterns", "", "Read patterns from this file instead of running a miner")
	cmd.Flags().StringVar(&f.org, "org", "local", "Organization segment of published entity IDs")
	cmd.Flags().DurationVar(&f.flushInterval, "flush-interval", time.Minute, "How often the entity window is summarized")
	cmd.Flags().IntVar(&f.maxEntities, "max-entities", 10000, "Entity count that triggers an early flush (0 = none)")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (default metrics.addr)")
	return cmd
}

// componentConfig maps the CLI configuration onto the processor's JSON
// config.
func componentConfig(cfg *config.Config, f *serveFlags) (json.RawMessage, error) {
	c := graphsummarizer.DefaultConfig()
	c.Format = cfg.Output.Format
	c.BaseIRI = cfg.Summary.BaseIRI
	c.Org = f.org
	c.K = cfg.Mining.K
	c.EpsilonRow = cfg.Mining.EpsilonRow
	c.EpsilonCol = cfg.Mining.EpsilonCol
	c.Miner = cfg.Mining.Miner
	c.Patterns = f.patterns
	c.MinerTimeout = cfg.Mining.Timeout.String()
	c.FlushInterval = f.flushInterval.String()
	c.MaxEntities = f.maxEntities

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return json.Marshal(c)
}

// Serve runs the graph-summarizer processor until ctx is cancelled.
func (a *App) Serve(ctx context.Context, rawConfig json.RawMessage, metricsAddr string) error {
	nc, err := a.connect(ctx)
	if err != nil {
		return err
	}
	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream: %w", err)
	}
	if err := publish.EnsureStream(ctx, js); err != nil {
		return err
	}

	comp, err := graphsummarizer.NewComponent(rawConfig, component.Dependencies{
		NATSClient: nc,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}
	if err := comp.Initialize(); err != nil {
		return fmt.Errorf("initialize %s: %w", comp.Meta().Name, err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	if metricsAddr != "" {
		eg.Go(func() error { return pipeline.ServeMetrics(ctx, metricsAddr, a.logger) })
	}
	eg.Go(func() error {
		if err := comp.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", comp.Meta().Name, err)
		}
		<-ctx.Done()
		return comp.Stop(5 * time.Second)
	})
	return eg.Wait()
}
