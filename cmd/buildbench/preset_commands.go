package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"buildbench/internal/presets"
)

func newPresetCommand(ctx *commandContext) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage saved feature selections",
	}

	presetCmd.AddCommand(newPresetListCommand(ctx))
	presetCmd.AddCommand(newPresetShowCommand(ctx))
	presetCmd.AddCommand(newPresetSaveCommand(ctx))
	presetCmd.AddCommand(newPresetRunCommand(ctx))

	return presetCmd
}

func newPresetListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.presetStore()
			if err != nil {
				return err
			}
			list := store.Presets()
			if jsonOut {
				return writeJSONList(cmd, list)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No presets saved")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for i, p := range list {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					p.Name,
					presets.Describe(p),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Name", "Entries"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newPresetShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name|#index>",
		Short: "Show the entries of a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.presetStore()
			if err != nil {
				return err
			}
			p, err := resolvePreset(store, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", p.Name)
			for _, line := range strings.Split(presets.Describe(p), "\n") {
				fmt.Fprintf(out, "  %s\n", line)
			}
			return nil
		},
	}
}

func newPresetSaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save <name> program=feature[,feature...]...",
		Short: "Save a feature selection as a preset",
		Long: `Save the given selection under a name. Names need not be unique;
saving an existing name adds another preset with that name.`,
		Example: "  buildbench preset save mainnet vault=prod oracle=prod,pyth",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(cmd, func(env *environment) error {
				if err := applyAssignments(env, args[1:]); err != nil {
					return err
				}
				_, _, err := env.session.SavePreset(args[0])
				if err != nil {
					env.session.Poll()
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, msg := range env.session.Poll() {
					fmt.Fprintln(out, renderProgressLine(msg, colorize))
				}
				return nil
			})
		},
	}
}

func newPresetRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <name|#index>",
		Short: "Build the programs of a saved preset",
		Long: `Build each preset entry with its stored features. Entries whose program
is no longer in the workspace are reported as skipped.

A name that was saved more than once resolves to the most recent preset;
use #index from 'buildbench preset list' to pick an older one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(cmd, func(env *environment) error {
				p, err := resolvePreset(env.presets, args[0])
				if err != nil {
					return err
				}
				return runBatch(cmd, env, func() (string, error) {
					return env.session.RunPreset(p)
				})
			})
		},
	}
}

// resolvePreset finds a preset by "#N" (1-based list position) or by name.
func resolvePreset(store *presets.Store, ref string) (presets.Preset, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return presets.Preset{}, errors.New("preset name required")
	}
	if rest, ok := strings.CutPrefix(ref, "#"); ok {
		idx, err := strconv.Atoi(rest)
		if err != nil {
			return presets.Preset{}, fmt.Errorf("invalid preset index %q", ref)
		}
		list := store.Presets()
		if len(list) == 0 {
			return presets.Preset{}, errors.New("no presets saved")
		}
		if idx < 1 || idx > len(list) {
			return presets.Preset{}, fmt.Errorf("preset index %d out of range (1-%d)", idx, len(list))
		}
		return list[idx-1], nil
	}
	p, ok := store.Lookup(ref)
	if !ok {
		return presets.Preset{}, fmt.Errorf("no preset named %q", ref)
	}
	return p, nil
}
