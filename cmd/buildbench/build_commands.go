package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"buildbench/internal/build"
	"buildbench/internal/progress"
	"buildbench/internal/selection"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "build [program=feature[,feature...]]...",
		Short: "Build programs with the given features",
		Long: `Build each named program once with exactly the listed features.

Programs are built one at a time in workspace order, not argument order.
A program that is not named is not built.`,
		Example: "  buildbench build vault=prod,staking oracle=devnet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(cmd, func(env *environment) error {
				if err := applyAssignments(env, args); err != nil {
					return err
				}
				return runBatch(cmd, env, func() (string, error) {
					return env.session.Build(build.ModeSelective)
				})
			})
		},
	}
}

func newBuildAllCommand(ctx *commandContext) *cobra.Command {
	var forced bool
	cmd := &cobra.Command{
		Use:   "build-all",
		Short: "Build every program in the workspace",
		Long: `Build every discovered program with no features.

With --forced every program is built with the configured forced feature
(build.forced_feature, "prod" by default) instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := build.ModeAll
			if forced {
				mode = build.ModeAllForced
			}
			return ctx.withEnvironment(cmd, func(env *environment) error {
				return runBatch(cmd, env, func() (string, error) {
					return env.session.Build(mode)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&forced, "forced", false, "Build every program with the forced feature")
	return cmd
}

func applyAssignments(env *environment, args []string) error {
	for _, arg := range args {
		name, features, err := selection.ParseAssignment(arg)
		if err != nil {
			return err
		}
		if err := env.session.Select(name, features...); err != nil {
			return err
		}
	}
	return nil
}

type batchSummary struct {
	Built   int
	Failed  int
	Skipped int
}

// runBatch starts a batch and streams its progress to stdout until the batch
// completes. Failed programs turn into a non-nil error once the batch is done.
func runBatch(cmd *cobra.Command, env *environment, start func() (string, error)) error {
	id, err := start()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	summary, err := streamBatch(cmd.Context(), out, env.session.Channel(), id, shouldColorize(out))
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d builds failed", summary.Failed, summary.Built)
	}
	return nil
}

func streamBatch(ctx context.Context, w io.Writer, ch *progress.Channel, batchID string, colorize bool) (batchSummary, error) {
	var summary batchSummary
	for {
		msg, err := ch.Recv(ctx)
		if err != nil {
			return summary, err
		}
		fmt.Fprintln(w, renderProgressLine(msg, colorize))
		if msg.Batch != batchID {
			continue
		}
		switch {
		case msg.Kind.IsStatus():
			summary.Built++
			if msg.Kind != progress.KindSucceeded {
				summary.Failed++
			}
		case msg.Kind == progress.KindSkipped:
			summary.Skipped++
		case msg.Kind == progress.KindComplete:
			return summary, nil
		}
	}
}
