package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semsum/config"
	"github.com/c360studio/semsum/encoder"
	"github.com/c360studio/semsum/export"
	"github.com/c360studio/semsum/pipeline"
	"github.com/c360studio/semsum/rdf"
	"github.com/c360studio/semsum/storage"
)

// runFlags are the summarization flags shared by summarize, batch and watch.
// A flag only overrides the config when it was set on the command line.
type runFlags struct {
	format     string
	patterns   string
	miner      string
	dumpDir    string
	baseIRI    string
	natsURL    string
	k          int
	epsilonRow float64
	epsilonCol float64
	timeout    time.Duration
	publish    bool
	archive    bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "", "Output format (turtle, ntriples, jsonld)")
	flags.StringVar(&f.patterns, "patterns", "", "Read mined patterns from this file instead of running a miner")
	flags.StringVar(&f.miner, "miner", "", "Miner command; {k}, {epsilon_row} and {epsilon_col} are substituted")
	flags.StringVar(&f.dumpDir, "dump-dir", "", "Write matrix, feature, subject and pattern dumps here")
	flags.StringVar(&f.baseIRI, "base-iri", "", "Namespace for summary IRIs")
	flags.StringVar(&f.natsURL, "nats-url", "", "NATS server URL")
	flags.IntVarP(&f.k, "k", "k", 0, "Number of patterns to mine")
	flags.Float64Var(&f.epsilonRow, "epsilon-row", 0, "Row noise tolerance (0-1)")
	flags.Float64Var(&f.epsilonCol, "epsilon-col", 0, "Column noise tolerance (0-1)")
	flags.DurationVar(&f.timeout, "timeout", 0, "Miner timeout")
	flags.BoolVar(&f.publish, "publish", false, "Publish the summary to the knowledge graph over NATS")
	flags.BoolVar(&f.archive, "archive", false, "Record the run in the NATS KV run archive")
}

// apply copies the flags that were set onto cfg and validates the result.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = f.format
	}
	if flags.Changed("miner") {
		cfg.Mining.Miner = strings.Fields(f.miner)
	}
	if flags.Changed("dump-dir") {
		cfg.Output.DumpDir = f.dumpDir
	}
	if flags.Changed("base-iri") {
		cfg.Summary.BaseIRI = f.baseIRI
	}
	if flags.Changed("nats-url") {
		cfg.NATS.URL = f.natsURL
	}
	if flags.Changed("k") {
		cfg.Mining.K = f.k
	}
	if flags.Changed("epsilon-row") {
		cfg.Mining.EpsilonRow = f.epsilonRow
	}
	if flags.Changed("epsilon-col") {
		cfg.Mining.EpsilonCol = f.epsilonCol
	}
	if flags.Changed("timeout") {
		cfg.Mining.Timeout = f.timeout
	}
	if flags.Changed("publish") {
		cfg.NATS.Publish = f.publish
	}
	if flags.Changed("archive") {
		cfg.NATS.Archive = f.archive
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// setup loads the config, applies flags and builds a summarizer. The
// returned App must be closed.
func (f *runFlags) setup(cmd *cobra.Command, g *globalFlags) (*App, *pipeline.Summarizer, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := f.apply(cmd, cfg); err != nil {
		return nil, nil, err
	}

	app := NewApp(cfg, slog.Default())
	source, err := app.PatternSource(f.patterns)
	if err != nil {
		return nil, nil, err
	}
	s, err := app.Summarizer(cmd.Context(), source, cmd.OutOrStdout())
	if err != nil {
		app.Close(cmd.Context())
		return nil, nil, err
	}
	return app, s, nil
}

func summarizeCmd(g *globalFlags) *cobra.Command {
	var (
		f      runFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "summarize <input>",
		Short: "Summarize an N-Triples or N-Quads graph",
		Long: `Load a graph, encode it, mine patterns and write the summary graph.

Without -o the summary is written to stdout. When -o is given and --format
is not, the format follows the output file extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && !cmd.Flags().Changed("format") {
				if format := export.FormatForPath(output, ""); format != "" {
					_ = cmd.Flags().Set("format", string(format))
				}
			}

			app, s, err := f.setup(cmd, g)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			_, err = s.Run(cmd.Context(), pipeline.Job{Input: args[0], Output: output})
			return err
		},
	}

	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func encodeCmd(g *globalFlags) *cobra.Command {
	var dumpDir string

	cmd := &cobra.Command{
		Use:   "encode <input>",
		Short: "Encode a graph and write the matrix, feature and subject dumps",
		Long: `Encode a graph into its boolean matrix without mining.

The dumps are the miner's input (matrix.txt, one line of 1-based active
columns per row), the column labels (features.txt) and the row labels
(subjects.txt). The dump directory defaults to output.dump_dir, or
<input>.dump next to the input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if dumpDir == "" {
				dumpDir = cfg.Output.DumpDir
			}
			if dumpDir == "" {
				base := filepath.Base(args[0])
				dumpDir = filepath.Join(filepath.Dir(args[0]), strings.TrimSuffix(base, filepath.Ext(base))+".dump")
			}

			triples, err := rdf.LoadFile(args[0])
			if err != nil {
				return err
			}
			res, err := encoder.Encode(triples)
			if err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			if err := export.DumpAll(dumpDir, res, nil); err != nil {
				return err
			}

			m := res.Matrix()
			fmt.Fprintf(cmd.OutOrStdout(), "rows=%d columns=%d ones=%d density=%.4f dir=%s\n",
				m.Rows(), m.Cols(), m.Ones(), m.Density(), dumpDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dumpDir, "dump-dir", "", "Directory for the dumps")
	return cmd
}

func batchCmd(g *globalFlags) *cobra.Command {
	var (
		f       runFlags
		outDir  string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "batch <glob>...",
		Short: "Summarize every graph matching the glob patterns",
		Long: `Summarize many graphs in parallel. Patterns support ** for recursive
matching. Each summary is written as <name>.summary.<ext> in --out-dir, or
next to its input. One failing input does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := pipeline.ResolveInputs(args)
			if err != nil {
				return err
			}

			app, s, err := f.setup(cmd, g)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			if !cmd.Flags().Changed("workers") {
				workers = app.cfg.Mining.Workers
			}

			results := s.Batch(cmd.Context(), inputs, outDir, workers)
			return printBatch(cmd.OutOrStdout(), results)
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for summaries (default next to each input)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent summarizations (default mining.workers)")
	return cmd
}

func printBatch(w io.Writer, results []pipeline.BatchResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %s: %v\n", r.Job.Input, r.Err)
			continue
		}
		fmt.Fprintf(w, "ok   %s -> %s (%d patterns)\n", r.Job.Input, r.Job.Output, r.Report.Patterns)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(results))
	}
	return nil
}

func watchCmd(g *globalFlags) *cobra.Command {
	var (
		f           runFlags
		output      string
		debounce    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch <input>",
		Short: "Re-summarize a graph whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, s, err := f.setup(cmd, g)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			if !cmd.Flags().Changed("debounce") {
				debounce = app.cfg.Watch.Debounce
			}
			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = app.cfg.Metrics.Addr
			}

			watcher, err := pipeline.NewWatcher(s, pipeline.Job{Input: args[0], Output: output}, debounce, slog.Default())
			if err != nil {
				return err
			}

			eg, ctx := errgroup.WithContext(cmd.Context())
			if metricsAddr != "" {
				eg.Go(func() error { return pipeline.ServeMetrics(ctx, metricsAddr, slog.Default()) })
			}
			eg.Go(func() error { return watcher.Run(ctx) })
			eg.Go(func() error {
				out := cmd.ErrOrStderr()
				for r := range watcher.Results() {
					if r.Err != nil {
						fmt.Fprintf(out, "summarize failed: %v\n", r.Err)
						continue
					}
					fmt.Fprintf(out, "summarized %s: %d rows, %d patterns\n", r.Report.Input, r.Report.Rows, r.Report.Patterns)
				}
				return nil
			})
			return eg.Wait()
		},
	}

	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before re-running (default watch.debounce)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (default metrics.addr)")
	return cmd
}

func runsCmd(g *globalFlags) *cobra.Command {
	var natsURL string

	open := func(cmd *cobra.Command) (*App, *storage.RunStore, error) {
		cfg, err := g.loadConfig()
		if err != nil {
			return nil, nil, err
		}
		if natsURL != "" {
			cfg.NATS.URL = natsURL
		}
		app := NewApp(cfg, slog.Default())
		runs, err := app.RunStore(cmd.Context())
		if err != nil {
			app.Close(cmd.Context())
			return nil, nil, err
		}
		return app, runs, nil
	}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived summarization runs",
	}
	cmd.PersistentFlags().StringVar(&natsURL, "nats-url", "", "NATS server URL (default nats.url)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, runs, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			records, err := runs.List(cmd.Context())
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), records)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Print one archived run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, runs, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			record, err := runs.Get(cmd.Context(), args[0])
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(record)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, runs, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			return runs.Delete(cmd.Context(), args[0])
		},
	})

	return cmd
}

func printRuns(w io.Writer, records []*storage.RunRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tINPUT\tROWS\tCOLUMNS\tPATTERNS\tSKIPPED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Input, r.Rows, r.Columns, r.Patterns, r.Stats.Skipped())
	}
	return tw.Flush()
}
