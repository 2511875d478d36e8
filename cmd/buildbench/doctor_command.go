package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"buildbench/internal/deps"
	"buildbench/internal/preflight"
	"buildbench/internal/workspace"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, tools and workspace discovery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			problems := 0

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(stdout, line)
			}
			configDetail := ctx.configPath
			if !ctx.configExists {
				configDetail = fmt.Sprintf("%s (not found, defaults in use)", ctx.configPath)
			}
			fmt.Fprintln(stdout, renderStatusLine("Config file", statusInfo, configDetail, colorize))
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					problems++
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			lines, missing := dependencyLines(statuses, colorize)
			for _, line := range lines {
				fmt.Fprintln(stdout, line)
			}
			problems += missing
			for _, result := range preflight.ToolVersions(cmd.Context(), cfg) {
				kind := statusInfo
				if !result.Passed {
					kind = statusWarn
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name+" version", kind, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Workspace", colorize) {
				fmt.Fprintln(stdout, line)
			}
			scanner, err := workspace.NewScanner(cfg.Workspace, workspace.WithLogger(ctx.loggerFor(cfg)))
			if err == nil {
				var programs []workspace.Program
				programs, err = scanner.Scan(cmd.Context())
				if err == nil {
					fmt.Fprintln(stdout, renderStatusLine("Programs", statusOK, programSummary(programs), colorize))
				}
			}
			if err != nil {
				problems++
				fmt.Fprintln(stdout, renderStatusLine("Programs", statusError, err.Error(), colorize))
			}

			if problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			return nil
		},
	}
}

// dependencyLines renders one line per binary and counts missing required ones.
func dependencyLines(statuses []deps.Status, colorize bool) ([]string, int) {
	lines := make([]string, 0, len(statuses)+1)
	for _, dep := range statuses {
		switch {
		case dep.Available:
			lines = append(lines, renderStatusLine(dep.Name, statusOK, fmt.Sprintf("Ready (%s)", dep.Detail), colorize))
		case dep.Optional:
			lines = append(lines, renderStatusLine(dep.Name, statusWarn, unavailableDetail(dep), colorize))
		default:
			lines = append(lines, renderStatusLine(dep.Name, statusError, unavailableDetail(dep), colorize))
		}
	}
	missing := deps.MissingRequired(statuses)
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusError, strings.Join(missing, ", "), colorize))
	}
	return lines, len(missing)
}

func unavailableDetail(dep deps.Status) string {
	if detail := strings.TrimSpace(dep.Detail); detail != "" {
		return detail
	}
	return "not available"
}

func programSummary(programs []workspace.Program) string {
	if len(programs) == 0 {
		return "none found"
	}
	names := make([]string, len(programs))
	for i, p := range programs {
		names[i] = p.Name
	}
	return fmt.Sprintf("%d found (%s)", len(programs), strings.Join(names, ", "))
}
