package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/ats-checker/internal/apperr"
	"github.com/jonathan/ats-checker/internal/ingestion"
	"github.com/jonathan/ats-checker/internal/observability"
	"github.com/jonathan/ats-checker/internal/pipeline"
	"github.com/jonathan/ats-checker/internal/types"
)

// batchExtensions lists the file types picked up from a batch directory.
var batchExtensions = []string{".txt", ".md", ".html", ".htm"}

type batchFlags struct {
	keywords     []string
	keywordsFile string
	job          string
	useBrowser   bool
	role         string
	ai           bool
	format       string
	workers      int
	metricsFile  string
}

func newBatchCmd(g *globalFlags) *cobra.Command {
	f := &batchFlags{}
	cmd := &cobra.Command{
		Use:   "batch <directory>",
		Short: "Score every resume in a directory",
		Long: `Analyzes every .txt, .md and .html file in a directory with one shared engine,
so identical resumes are scored once. Prints a summary table, or every result
with --format json|yaml. --metrics-file writes the run's Prometheus metrics in
the node_exporter textfile format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, g, f, args[0])
		},
	}

	cmd.Flags().StringSliceVarP(&f.keywords, "keywords", "k", nil, "Job keywords to match (comma separated)")
	cmd.Flags().StringVar(&f.keywordsFile, "keywords-file", "", "File with job keywords, one per line or comma separated")
	cmd.Flags().StringVarP(&f.job, "job", "j", "", "Job posting file or URL to take keywords from")
	cmd.Flags().BoolVar(&f.useBrowser, "use-browser", false, "Render script-heavy job pages in headless Chrome")
	cmd.Flags().StringVar(&f.role, "role", "", "Keyword preset used when no keywords are given")
	cmd.Flags().BoolVar(&f.ai, "ai", false, "Add AI feedback for weak sections")
	cmd.Flags().StringVarP(&f.format, "format", "f", "human", "Output format (human, json, yaml)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 4, "Files analyzed concurrently")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this .prom file")
	return cmd
}

func runBatch(cmd *cobra.Command, g *globalFlags, f *batchFlags, dir string) error {
	ctx := cmd.Context()

	format, err := observability.ParseFormat(f.format)
	if err != nil {
		return &apperr.InputError{Message: err.Error()}
	}
	if f.workers < 1 {
		return &apperr.InputError{Message: fmt.Sprintf("--workers must be at least 1, got %d", f.workers)}
	}
	keywords, err := collectKeywords(f.keywords, f.keywordsFile)
	if err != nil {
		return err
	}
	files, err := listResumes(dir)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	a, err := newApp(ctx, g, appOptions{role: f.role, ai: f.ai, registry: registry})
	if err != nil {
		return err
	}
	defer a.Close()

	if f.job != "" {
		jobKeywords, err := a.jobKeywords(ctx, f.job, f.useBrowser)
		if err != nil {
			return err
		}
		keywords = append(keywords, jobKeywords...)
	}

	rows, results := analyzeAll(ctx, a, files, f.workers, pipeline.Request{Keywords: keywords, AI: f.ai})

	out := cmd.OutOrStdout()
	if format == observability.FormatHuman {
		observability.NewPrinter(out).PrintBatchSummary(rows)
	} else {
		for _, result := range results {
			if result == nil {
				continue
			}
			if err := observability.Write(out, format, result); err != nil {
				return err
			}
		}
	}

	if f.metricsFile != "" {
		if err := prometheus.WriteToTextfile(f.metricsFile, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	stats := a.engine.CacheStats()
	a.logger.Info("batch complete",
		zap.Int("files", len(files)),
		zap.Int64("cache_hits", stats.Hits),
		zap.Int64("computations", stats.Computations))

	if n := countFailed(rows); n > 0 {
		return fmt.Errorf("%d of %d files failed", n, len(rows))
	}
	return nil
}

// analyzeAll scores files with at most workers in flight. Per-file failures
// are recorded in the rows; they do not stop the batch.
func analyzeAll(ctx context.Context, a *app, files []string, workers int, req pipeline.Request) ([]observability.BatchRow, []*types.AnalysisResult) {
	rows := make([]observability.BatchRow, len(files))
	results := make([]*types.AnalysisResult, len(files))
	extractor := ingestion.NewDocumentExtractor()

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			name := filepath.Base(path)
			rows[i].Filename = name

			data, err := os.ReadFile(path)
			if err != nil {
				rows[i].Err = err
				return nil
			}
			result, err := a.engine.AnalyzeDocument(ctx, extractor, name, data, req)
			if err != nil {
				a.logger.Warn("analysis failed", zap.String("filename", name), zap.Error(err))
				rows[i].Err = err
				return nil
			}
			rows[i].Score = result.OverallScore.Score
			rows[i].Grade = result.OverallScore.Grade
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()
	return rows, results
}

// listResumes returns the supported files directly inside dir, sorted by name.
func listResumes(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &apperr.InputError{Message: "failed to read directory", Cause: err}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(batchExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, &apperr.InputError{Message: fmt.Sprintf("no resumes found in %s", dir)}
	}
	slices.Sort(files)
	return files, nil
}

func countFailed(rows []observability.BatchRow) int {
	n := 0
	for _, r := range rows {
		if r.Err != nil {
			n++
		}
	}
	return n
}
