package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/segdl/internal/history"
	"github.com/tanq16/segdl/internal/output"
	"github.com/tanq16/segdl/internal/utils"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [--limit N]",
		Short: "Show recently finished downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.HistoryDB == "" {
				return errors.New("history is disabled (empty --history-db)")
			}
			store, err := history.Open(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()
			entries, err := store.Recent(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				output.PrintInfo("No downloads recorded yet")
				return nil
			}
			output.PrintHeader(fmt.Sprintf("Last %d downloads", len(entries)))
			for _, e := range entries {
				fmt.Println(formatEntry(e))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func formatEntry(e history.Entry) string {
	when := output.FDebug(e.FinishedAt.Local().Format("2006-01-02 15:04"))
	if e.Status == history.StatusFailed {
		return fmt.Sprintf("  %s %s %s\n      %s", output.FError("✗"), when, e.SourceURL, output.FError(e.Error))
	}
	return fmt.Sprintf("  %s %s %s %s\n      %s", output.FSuccess("✓"), when, e.OutputPath,
		output.FDebug(fmt.Sprintf("(%s, %d segments, %s)", utils.FormatBytes(uint64(e.TotalSize)), e.Segments, e.Duration().Round(time.Second))),
		output.FStream(e.SourceURL))
}
