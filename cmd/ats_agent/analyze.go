package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/jonathan/ats-checker/internal/apperr"
	"github.com/jonathan/ats-checker/internal/ingestion"
	"github.com/jonathan/ats-checker/internal/observability"
	"github.com/jonathan/ats-checker/internal/pipeline"
	"github.com/jonathan/ats-checker/internal/sections"
	"github.com/jonathan/ats-checker/internal/types"
)

type analyzeFlags struct {
	keywords     []string
	keywordsFile string
	job          string
	useBrowser   bool
	role         string
	ai           bool
	sections     []string
	format       string
	out          string
	details      bool
	verbose      bool
}

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze <resume-file>",
		Short: "Score a resume file",
		Long: `Extracts the text of a resume (plain text, Markdown or HTML), runs every section
check and prints the overall score, grade and prioritized advice.

With --ai, sections scoring below the configured threshold also get generated
feedback. AI failures never fail the command; the result is marked degraded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, g, f, args[0])
		},
	}

	cmd.Flags().StringSliceVarP(&f.keywords, "keywords", "k", nil, "Job keywords to match (comma separated)")
	cmd.Flags().StringVar(&f.keywordsFile, "keywords-file", "", "File with job keywords, one per line or comma separated")
	cmd.Flags().StringVarP(&f.job, "job", "j", "", "Job posting file or URL to take keywords from")
	cmd.Flags().BoolVar(&f.useBrowser, "use-browser", false, "Render script-heavy job pages in headless Chrome")
	cmd.Flags().StringVar(&f.role, "role", "", "Keyword preset used when no keywords are given (general, software_developer, data_scientist, project_manager)")
	cmd.Flags().BoolVar(&f.ai, "ai", false, "Add AI feedback for weak sections")
	cmd.Flags().StringSliceVarP(&f.sections, "section", "s", nil, "Analyze only these sections (repeatable)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "human", "Output format (human, json, yaml)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write the result to this file instead of stdout")
	cmd.Flags().BoolVar(&f.details, "details", false, "Print the findings of every section")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print analysis state changes")
	return cmd
}

func runAnalyze(cmd *cobra.Command, g *globalFlags, f *analyzeFlags, path string) error {
	ctx := cmd.Context()

	format, err := observability.ParseFormat(f.format)
	if err != nil {
		return &apperr.InputError{Message: err.Error()}
	}
	kinds, err := sections.ParseList(f.sections)
	if err != nil {
		return err
	}
	keywords, err := collectKeywords(f.keywords, f.keywordsFile)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &apperr.InputError{Message: "failed to read resume", Cause: err}
	}

	opts := appOptions{role: f.role, ai: f.ai}
	if f.verbose {
		printer := observability.NewPrinter(cmd.ErrOrStderr())
		opts.onTransition = printer.PrintTransition
	}
	a, err := newApp(ctx, g, opts)
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

	var s *spinner.Spinner
	if f.ai && format == observability.FormatHuman && !f.verbose {
		s = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = " Analyzing resume..."
		s.Start()
	}
	result, err := a.engine.AnalyzeDocument(ctx, ingestion.NewDocumentExtractor(), filepath.Base(path), data, pipeline.Request{
		Keywords: keywords,
		AI:       f.ai,
		Sections: kinds,
	})
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return err
	}

	return writeResult(cmd.OutOrStdout(), f, format, result)
}

// writeResult renders result to --out or w.
func writeResult(w io.Writer, f *analyzeFlags, format observability.Format, result *types.AnalysisResult) error {
	var buf bytes.Buffer
	if err := observability.Write(&buf, format, result); err != nil {
		return err
	}
	if format == observability.FormatHuman && f.details {
		printer := observability.NewPrinter(&buf)
		for _, s := range result.OrderedSections() {
			printer.PrintSectionDetail(s)
		}
	}

	if f.out == "" {
		_, err := w.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(f.out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Result written to %s\n", f.out)
	return nil
}

// collectKeywords merges --keywords with the contents of --keywords-file.
func collectKeywords(flagValues []string, path string) ([]string, error) {
	keywords := append([]string(nil), flagValues...)
	if path == "" {
		return keywords, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &apperr.InputError{Message: "failed to read keywords file", Cause: err}
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, kw := range strings.Split(line, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &apperr.InputError{Message: "failed to read keywords file", Cause: err}
	}
	return keywords, nil
}
