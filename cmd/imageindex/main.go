// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/imageindex"
	"github.com/poiesic/imageindex/chunker"
	"github.com/poiesic/imageindex/config"
	"github.com/poiesic/imageindex/core"
	"github.com/poiesic/imageindex/index"
	"github.com/poiesic/imageindex/ingestion"
	"github.com/poiesic/imageindex/metrics"
	"github.com/poiesic/imageindex/storage/badger"
)

const configKey = "config"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	runFlags := []cli.Flag{
		&cli.IntFlag{
			Name:  "max-workers",
			Usage: "Number of chunk files processed concurrently",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Documents per upload batch",
		},
		&cli.StringFlag{
			Name:  "ledger",
			Usage: "Path to the run ledger directory (enables checkpoints and failure history)",
		},
		&cli.BoolFlag{
			Name:  "resume",
			Usage: "Skip chunk files a previous run completed (requires --ledger)",
		},
		&cli.BoolFlag{
			Name:  "remove-chunks",
			Usage: "Delete chunk files that were processed successfully",
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run identifier (generated when empty)",
		},
		&cli.BoolFlag{
			Name:  "ensure-index",
			Usage: "Create the index before processing when it does not exist",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "Print file progress to stderr",
			Value: true,
		},
	}
	chunkFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "temp-dir",
			Usage: "Directory that receives chunk files",
		},
		&cli.IntFlag{
			Name:  "lines-per-chunk",
			Usage: "Records per chunk file",
		},
	}

	return &cli.App{
		Name:  "imageindex",
		Usage: "Enrich image records with captions, OCR and embeddings and index them for search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"IMAGEINDEX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address during a run (e.g. :9090)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Split input files into chunks and index every chunk",
				ArgsUsage: "<file>...",
				Action:    ingestCommand,
				Flags:     append(append([]cli.Flag{}, chunkFlags...), runFlags...),
			},
			{
				Name:      "process",
				Usage:     "Index every chunk file of a directory",
				ArgsUsage: "[dir]",
				Action:    processCommand,
				Flags:     runFlags,
			},
			{
				Name:      "split",
				Usage:     "Split input files into chunk files without indexing them",
				ArgsUsage: "<file>...",
				Action:    splitCommand,
				Flags:     chunkFlags,
			},
			{
				Name:   "ensure-index",
				Usage:  "Create the configured index when it does not exist",
				Action: ensureIndexCommand,
			},
			{
				Name:   "validate",
				Usage:  "Report the document count of the index",
				Action: validateCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:  "expect",
						Usage: "Fail unless the index holds at least this many documents",
					},
				},
			},
			{
				Name:   "runs",
				Usage:  "List recorded runs",
				Action: runsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "ledger", Usage: "Path to the run ledger directory"},
				},
			},
			{
				Name:   "failures",
				Usage:  "List the records that failed in a run",
				Action: failuresCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "ledger", Usage: "Path to the run ledger directory"},
					&cli.StringFlag{Name: "run", Usage: "Run identifier (defaults to the latest run)"},
				},
			},
		},
	}
}

// setup loads the configuration and installs the logger.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg

	return setupLogger(c.App.ErrWriter, cfg.LogLevel)
}

func setupLogger(w io.Writer, levelStr string) error {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func loadedConfig(c *cli.Context) *config.Config {
	return c.App.Metadata[configKey].(*config.Config)
}

// applyFlags copies explicitly set command flags over the loaded configuration.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("temp-dir") {
		cfg.TempDir = c.String("temp-dir")
	}
	if c.IsSet("lines-per-chunk") {
		cfg.LinesPerChunk = c.Int("lines-per-chunk")
	}
	if c.IsSet("max-workers") {
		cfg.MaxWorkers = c.Int("max-workers")
	}
	if c.IsSet("batch-size") {
		cfg.UploadBatchSize = c.Int("batch-size")
	}
	if c.IsSet("ledger") {
		cfg.LedgerPath = c.String("ledger")
	}
	if c.IsSet("remove-chunks") {
		cfg.RemoveChunks = c.Bool("remove-chunks")
	}
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one input file is required", 2)
	}
	return run(c, func(ctx context.Context, p *ingestion.Pipeline, cfg *config.Config) (*core.RunReport, error) {
		return p.Ingest(ctx, c.Args().Slice(), cfg.TempDir, cfg.LinesPerChunk)
	})
}

func processCommand(c *cli.Context) error {
	return run(c, func(ctx context.Context, p *ingestion.Pipeline, cfg *config.Config) (*core.RunReport, error) {
		dir := cfg.TempDir
		if c.NArg() > 0 {
			dir = c.Args().First()
		}
		return p.ProcessDirectory(ctx, dir)
	})
}

type runFunc func(ctx context.Context, p *ingestion.Pipeline, cfg *config.Config) (*core.RunReport, error)

func run(c *cli.Context, fn runFunc) error {
	ctx := c.Context
	cfg := loadedConfig(c)
	applyFlags(c, cfg)

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				slog.Error("metrics server failed", "addr", cfg.MetricsAddr, "err", err)
			}
		}()
	}

	ix, err := imageindex.NewIndexer(cfg, imageindex.WithMetrics(m), imageindex.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer ix.Close()

	if c.Bool("ensure-index") {
		if err := ix.EnsureIndex(ctx); err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}

	opts := []ingestion.Option{
		ingestion.WithResume(c.Bool("resume")),
		ingestion.WithRunID(c.String("run-id")),
	}
	if c.Bool("progress") {
		opts = append(opts, ingestion.WithProgress(c.App.ErrWriter))
	}
	pipeline, err := ix.NewPipeline(opts...)
	if err != nil {
		return err
	}

	report, runErr := fn(ctx, pipeline, cfg)
	if report != nil {
		printReport(c.App.Writer, report)
	}
	if runErr != nil {
		return cli.Exit(fmt.Sprintf("run failed: %v", runErr), 1)
	}
	return nil
}

func splitCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one input file is required", 2)
	}
	cfg := loadedConfig(c)
	applyFlags(c, cfg)

	for _, input := range c.Args().Slice() {
		paths, err := chunker.Split(c.Context, input, cfg.TempDir, cfg.LinesPerChunk)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(c.App.Writer, p)
		}
	}
	return nil
}

func ensureIndexCommand(c *cli.Context) error {
	cfg := loadedConfig(c)
	backend, err := imageindex.OpenIndex(cfg.Index, slog.Default())
	if err != nil {
		return err
	}
	defer backend.Close()

	return backend.EnsureIndex(c.Context, index.DefaultSchema(cfg.Index.Name))
}

func validateCommand(c *cli.Context) error {
	cfg := loadedConfig(c)
	backend, err := imageindex.OpenIndex(cfg.Index, slog.Default())
	if err != nil {
		return err
	}
	defer backend.Close()

	stats, err := backend.Stats(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "index %s: %d documents\n", cfg.Index.Name, stats.DocumentCount)

	if expect := c.Uint64("expect"); stats.DocumentCount < expect {
		return cli.Exit(fmt.Sprintf("index holds %d documents, expected at least %d", stats.DocumentCount, expect), 1)
	}
	return nil
}

func runsCommand(c *cli.Context) error {
	ledger, err := openLedger(c)
	if err != nil {
		return err
	}
	defer ledger.Close()

	runs, err := ledger.ListRuns(c.Context)
	if err != nil {
		return err
	}
	for _, r := range runs {
		status := "ok"
		if !r.Succeeded() {
			status = "failed"
		}
		fmt.Fprintf(c.App.Writer, "%s  %s  %-6s files=%d documents=%d failedRecords=%d uploadFailures=%d\n",
			r.RunID, r.StartedAt.Format("2006-01-02T15:04:05Z07:00"), status,
			r.Files, r.Documents, r.FailedRecords, r.UploadFailures)
	}
	return nil
}

func failuresCommand(c *cli.Context) error {
	ledger, err := openLedger(c)
	if err != nil {
		return err
	}
	defer ledger.Close()

	runID := c.String("run")
	if runID == "" {
		runs, err := ledger.ListRuns(c.Context)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return cli.Exit("no runs recorded", 1)
		}
		runID = runs[0].RunID
	}

	entries, err := ledger.ListFailures(c.Context, runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "run %s: %d failed records\n", runID, len(entries))
	for _, e := range entries {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", e.Failure.RecordID, e.Failure.Source, e.Failure.Cause)
	}
	return nil
}

func openLedger(c *cli.Context) (*badger.Ledger, error) {
	cfg := loadedConfig(c)
	path := cfg.LedgerPath
	if c.IsSet("ledger") {
		path = c.String("ledger")
	}
	if path == "" {
		return nil, errors.New("ledger path is required (--ledger or ledger_path)")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return badger.OpenLedger(path, slog.Default())
}

func printReport(w io.Writer, r *core.RunReport) {
	fmt.Fprintf(w, "run %s finished in %s\n", r.RunID, r.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "  files:           %d (%d skipped, %d failed)\n", r.Files, r.SkippedFiles, r.FailedFiles)
	fmt.Fprintf(w, "  records:         %d (%d failed)\n", r.Records, r.FailedRecords)
	fmt.Fprintf(w, "  documents:       %d\n", r.Documents)
	fmt.Fprintf(w, "  uploaded:        %d (%d failed)\n", r.Uploaded, r.UploadFailures)
	for _, f := range r.ZeroYieldFiles {
		fmt.Fprintf(w, "  no documents:    %s\n", f)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error:           %s\n", e)
	}
}
