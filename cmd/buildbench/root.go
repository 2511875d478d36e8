package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var rootFlag string
	var outputFlag string

	ctx := newCommandContext(&configFlag, &rootFlag, &outputFlag)

	rootCmd := &cobra.Command{
		Use:           "buildbench",
		Short:         "Select program features and drive workspace builds",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&rootFlag, "root", "C", "", "Workspace root (overrides workspace.root)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output-dir", "t", "", "Extra output directory passed to every build")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newBuildCommand(ctx))
	rootCmd.AddCommand(newBuildAllCommand(ctx))
	rootCmd.AddCommand(newPresetCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newTUICommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
