package bondstress

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/bondstress/pkg/series"
)

var historyOpts struct {
	limit  int
	symbol string
	since  string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored stress and trading signals",
	Long: `List the newest stored stress signals and, with --symbol, the trading
signals stored for that symbol. Reads the configured store, so the memory
backend only shows what this process saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		db, err := newStore(ctx)
		if err != nil {
			return err
		}

		recent, err := db.RecentStress(ctx, historyOpts.limit)
		if err != nil {
			return fmt.Errorf("error reading stress history: %w", err)
		}
		if len(recent) == 0 {
			fmt.Fprintln(out, "No stored stress signals")
		} else {
			table := tablewriter.NewWriter(out)
			table.Header("Date", "Level", "Confidence", "Spread", "Spread Z", "Action")
			for _, r := range recent {
				sig := r.Signal()
				table.Append(sig.Timestamp.Format(series.DateLayout),
					string(sig.Level),
					fmt.Sprintf("%.1f", sig.Confidence),
					num(sig.Spread, 2),
					num(sig.SpreadZShort, 2),
					sig.Action)
			}
			table.Render()
		}

		if historyOpts.symbol == "" {
			return nil
		}

		since, err := parseDate("since", historyOpts.since, series.Day(time.Now()).AddDate(0, 0, -30))
		if err != nil {
			return err
		}
		trading, err := db.TradingSince(ctx, historyOpts.symbol, since)
		if err != nil {
			return fmt.Errorf("error reading trading history: %w", err)
		}
		fmt.Fprintf(out, "\n%s trading signals since %s\n", historyOpts.symbol, since.Format(series.DateLayout))
		table := tablewriter.NewWriter(out)
		table.Header("Date", "Action", "Level", "Confidence", "Size", "Reasoning")
		for _, r := range trading {
			table.Append(r.Timestamp.Format(series.DateLayout),
				string(r.Action),
				string(r.Level),
				fmt.Sprintf("%.1f", r.Confidence),
				fmt.Sprintf("%.2f%%", r.PositionSize*100),
				r.Reasoning)
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyOpts.limit, "limit", 20, "Number of stress signals to list")
	historyCmd.Flags().StringVar(&historyOpts.symbol, "symbol", "", "Also list trading signals for this symbol")
	historyCmd.Flags().StringVar(&historyOpts.since, "since", "", "Earliest trading signal date (YYYY-MM-DD), default 30 days ago")
}
