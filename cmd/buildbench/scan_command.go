package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"buildbench/internal/workspace"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the programs discovered in the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(cmd, func(env *environment) error {
				programs := env.session.Programs()
				if jsonOut {
					return writeJSONList(cmd, programs)
				}
				out := cmd.OutOrStdout()
				if len(programs) == 0 {
					fmt.Fprintf(out, "No programs found under %s\n", env.scanner.Root())
					return nil
				}
				rows := make([][]string, 0, len(programs))
				for _, p := range programs {
					rows = append(rows, []string{p.Name, featureSummary(p.Features), p.Path})
				}
				fmt.Fprintln(out, renderTable([]string{"Program", "Features", "Path"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// featureSummary lists feature names, with sub-features in brackets.
func featureSummary(features []workspace.Feature) string {
	if len(features) == 0 {
		return "-"
	}
	parts := make([]string, len(features))
	for i, f := range features {
		parts[i] = f.Name
		if len(f.SubFeatures) > 0 {
			parts[i] += " [" + strings.Join(f.SubFeatures, ", ") + "]"
		}
	}
	return strings.Join(parts, ", ")
}
