package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"buildbench/internal/build"
	"buildbench/internal/history"
)

const shortIDLength = 8

type batchView struct {
	ID         string       `json:"id"`
	Mode       string       `json:"mode"`
	Preset     string       `json:"preset,omitempty"`
	OutputDir  string       `json:"output_dir,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Skipped    []string     `json:"skipped"`
	Aborted    bool         `json:"aborted,omitempty"`
	Results    []resultView `json:"results"`
}

type resultView struct {
	Program    string   `json:"program"`
	Features   []string `json:"features"`
	Command    string   `json:"command"`
	Status     string   `json:"status"`
	ExitCode   *int     `json:"exit_code,omitempty"`
	Signal     string   `json:"signal,omitempty"`
	Detail     string   `json:"detail,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

func newBatchView(rec build.BatchRecord) batchView {
	view := batchView{
		ID:         rec.ID,
		Mode:       rec.Mode.String(),
		Preset:     rec.Preset,
		OutputDir:  rec.OutputDir,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
		Succeeded:  rec.Succeeded(),
		Failed:     rec.Failed(),
		Skipped:    append([]string{}, rec.Skipped...),
		Aborted:    rec.Aborted,
		Results:    make([]resultView, 0, len(rec.Results)),
	}
	for _, res := range rec.Results {
		view.Results = append(view.Results, resultView{
			Program:    res.Program,
			Features:   append([]string{}, res.Features...),
			Command:    res.Command,
			Status:     string(res.Status),
			ExitCode:   res.ExitCode,
			Signal:     res.Signal,
			Detail:     res.Detail,
			DurationMS: res.Duration.Milliseconds(),
		})
	}
	return view
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent build batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				records, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					var views []batchView
					for _, rec := range records {
						views = append(views, newBatchView(rec))
					}
					return writeJSONList(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No builds recorded")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						shortID(rec.ID),
						rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
						modeLabel(rec),
						strconv.Itoa(rec.Succeeded()),
						strconv.Itoa(rec.Failed()),
						strconv.Itoa(len(rec.Skipped)),
						formatElapsed(rec.FinishedAt.Sub(rec.StartedAt)),
					})
				}
				headers := []string{"ID", "Started", "Mode", "OK", "Failed", "Skipped", "Elapsed"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of batches to show")
	historyCmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the per-program results of a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				rec, err := findBatch(cmd, store, args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, newBatchView(rec))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Batch %s (%s)\n", rec.ID, modeLabel(rec))
				if rec.OutputDir != "" {
					fmt.Fprintf(out, "Output directory: %s\n", rec.OutputDir)
				}
				if rec.Aborted {
					fmt.Fprintln(out, "Stopped early: the progress consumer went away")
				}
				rows := make([][]string, 0, len(rec.Results)+len(rec.Skipped))
				for _, res := range rec.Results {
					rows = append(rows, []string{
						res.Program,
						strings.Join(res.Features, ", "),
						resultStatus(res),
						formatElapsed(res.Duration),
					})
				}
				for _, name := range rec.Skipped {
					rows = append(rows, []string{name, "", "skipped"})
				}
				headers := []string{"Program", "Features", "Status", "Elapsed"}
				fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d batch(es) from history\n", removed)
				return nil
			})
		},
	}
}

// findBatch accepts a full batch id or a unique prefix of a recent one.
func findBatch(cmd *cobra.Command, store *history.Store, ref string) (build.BatchRecord, error) {
	ref = strings.TrimSpace(ref)
	rec, err := store.Get(cmd.Context(), ref)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, history.ErrNotFound) {
		return build.BatchRecord{}, err
	}
	recent, err := store.Recent(cmd.Context(), 200)
	if err != nil {
		return build.BatchRecord{}, err
	}
	var match *build.BatchRecord
	for i := range recent {
		if !strings.HasPrefix(recent[i].ID, ref) {
			continue
		}
		if match != nil {
			return build.BatchRecord{}, fmt.Errorf("batch id %q is ambiguous", ref)
		}
		match = &recent[i]
	}
	if match == nil {
		return build.BatchRecord{}, fmt.Errorf("batch %q: %w", ref, history.ErrNotFound)
	}
	return *match, nil
}

func modeLabel(rec build.BatchRecord) string {
	if rec.Mode == build.ModePreset && rec.Preset != "" {
		return fmt.Sprintf("%s %q", rec.Mode.Label(), rec.Preset)
	}
	return rec.Mode.Label()
}

func resultStatus(res build.ProgramResult) string {
	switch {
	case res.Status == build.StatusSucceeded:
		return "ok"
	case res.ExitCode != nil:
		return fmt.Sprintf("failed (exit %d)", *res.ExitCode)
	case res.Signal != "":
		return fmt.Sprintf("failed (%s)", res.Signal)
	case res.Status == build.StatusSpawnFailed:
		return "spawn failed"
	default:
		return string(res.Status)
	}
}

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
