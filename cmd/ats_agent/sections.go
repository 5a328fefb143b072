package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/ats-checker/internal/detectors"
	"github.com/jonathan/ats-checker/internal/observability"
	"github.com/jonathan/ats-checker/internal/scoring"
)

func newSectionsCmd(g *globalFlags) *cobra.Command {
	var roles bool
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "List the analyzed sections and their weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g, appOptions{})
			if err != nil {
				return err
			}
			weights, err := cfg.SectionWeights()
			if err != nil {
				return err
			}

			printer := observability.NewPrinter(cmd.OutOrStdout())
			printer.PrintSections(scoring.Weights(weights))

			if roles {
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintln(out)
				for _, role := range detectors.Roles() {
					keywords, _ := detectors.RoleKeywords(role)
					_, _ = fmt.Fprintf(out, "%-20s %s\n", role, strings.Join(keywords, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&roles, "roles", false, "Also list the role keyword presets")
	return cmd
}
