package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"subflow/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded translation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryDBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limitFlag)
			if err != nil {
				return err
			}
			if statusFlag != "" {
				want := history.Status(strings.ToLower(strings.TrimSpace(statusFlag)))
				filtered := records[:0]
				for _, rec := range records {
					if rec.Status == want {
						filtered = append(filtered, rec)
					}
				}
				records = filtered
			}

			summary, err := store.Summarize(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printRecords(out, records)
			fmt.Fprintf(out, "%d total, %d active, %d completed, %d failed, %d skipped\n",
				summary.Total, summary.Active, summary.Completed, summary.Failed, summary.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show jobs with this status")
	cmd.Flags().IntVar(&limitFlag, "limit", 50, "Maximum number of jobs to show")

	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryDBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
}

func printRecords(out io.Writer, records []history.Record) {
	headers := []string{"ID", "VIDEO", "SUBTITLE", "STATUS", "UPDATED", "ERROR"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			fmt.Sprintf("%d", rec.ID),
			filepath.Base(rec.VideoPath),
			filepath.Base(rec.SubtitlePath),
			string(rec.Status),
			rec.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.ErrorMessage,
		})
	}

	if stdoutIsTerminal() {
		fmt.Fprintln(out, renderTable(headers, rows, 1))
		return
	}
	fmt.Fprintln(out, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(out, strings.Join(row, "\t"))
	}
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
