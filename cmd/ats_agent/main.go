// Package main provides the ats_agent command line interface.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/ats-checker/internal/apperr"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	apiKey     string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "ats_agent",
		Short: "ATS resume checker",
		Long: `Scores a resume against the rules an applicant tracking system applies: fifteen
section checks, a weighted overall score and grade, prioritized advice and an
optional AI feedback pass for the weakest sections.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Path to a YAML or JSON config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format (console or json)")
	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	root.PersistentFlags().StringVar(&g.apiKey, "api-key", "", "Gemini API key (defaults to GEMINI_API_KEY env var)")

	root.AddCommand(newAnalyzeCmd(g), newSectionsCmd(g), newBatchCmd(g))
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(apperr.ExitCode(err))
	}
}
