package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"signscribe/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded pipeline runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if runs == nil {
					runs = []history.Run{}
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.SourceKind,
						run.SourceName,
						string(run.Status),
						runOutcome(run),
						strconv.Itoa(run.SegmentCount),
						humanize.Time(run.StartedAt),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Kind", "Source", "Status", "Outcome", "Segments", "Started"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run with its transcript and segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				run, err := store.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if errors.Is(err, history.ErrNotFound) {
					return fmt.Errorf("run %s not found", args[0])
				}
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, run)
				}
				printRun(cmd, *run)
				return nil
			})
		},
	}
}

func printRun(cmd *cobra.Command, run history.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:        %s\n", run.ID)
	fmt.Fprintf(out, "Source:     %s (%s)\n", run.SourceName, run.SourceKind)
	if run.VideoID != "" {
		fmt.Fprintf(out, "Video ID:   %s\n", run.VideoID)
	}
	fmt.Fprintf(out, "Status:     %s\n", run.Status)
	fmt.Fprintf(out, "Started:    %s (%s)\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt))
	if d := run.Duration(); d > 0 {
		fmt.Fprintf(out, "Duration:   %s\n", d.Round(100*time.Millisecond))
	}
	if run.Provenance != "" {
		fmt.Fprintf(out, "Transcript: %s\n", run.Provenance)
	}
	if run.PublicURL != "" {
		fmt.Fprintf(out, "Stored at:  %s\n", run.PublicURL)
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      [%s] %s\n", run.ErrorKind, run.ErrorMessage)
	}
	if len(run.Segments) == 0 {
		return
	}
	fmt.Fprintln(out)
	rows := make([][]string, 0, len(run.Segments))
	for i, seg := range run.Segments {
		rows = append(rows, []string{strconv.Itoa(i + 1), seg})
	}
	fmt.Fprint(out, renderTable([]string{"#", "Segment"}, rows, []columnAlignment{alignRight, alignLeft}))
}

func runOutcome(run history.Run) string {
	if run.ErrorKind != "" {
		return run.ErrorKind
	}
	return run.Provenance
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
