package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"intake/internal/ledger"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded batch outcomes from past sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := ledger.Open(cfg.Paths.LedgerDir)
			if err != nil {
				return fmt.Errorf("open outcome ledger: %w", err)
			}
			defer store.Close()

			outcomes, err := store.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(outcomes) == 0 {
				fmt.Fprintln(out, "No outcomes recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(outcomes))
			for _, o := range outcomes {
				rows = append(rows, []string{
					o.CreatedAt.Local().Format(time.DateTime),
					filepath.Base(o.Path),
					o.State.Label(),
					o.InterviewCode,
					shortBatchID(o.BatchID),
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"When", "File", "Outcome", "Interview", "Batch"},
				rows,
				nil,
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries to show (0 for all)")
	return cmd
}

func shortBatchID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
