package main

import (
	"context"

	"github.com/spf13/cobra"

	"buildbench/internal/deps"
	"buildbench/internal/tui"
)

func newTUICommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive feature selector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(cmd, func(env *environment) error {
				opts := []tui.Option{tui.WithRoot(env.scanner.Root())}
				if binary := env.cfg.Tools.VersionBinary; binary != "" {
					opts = append(opts, tui.WithVersion(func(ctx context.Context) (string, error) {
						return deps.ToolVersion(ctx, binary)
					}))
				}
				return tui.Run(cmd.Context(), env.session, opts...)
			})
		},
	}
}
