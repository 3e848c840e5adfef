package bondstress

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/bondstress/pkg/pipeline"
	"github.com/vignesh-goutham/bondstress/pkg/regime"
	"github.com/vignesh-goutham/bondstress/pkg/series"
)

var signalOpts struct {
	date    string
	persist bool
	alert   bool
	similar int
}

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Compute the current bond stress reading and trading signals",
	Long: `Compute the bond stress signal and per symbol trading signals for one day
(today by default), optionally saving them to the configured store and sending
alerts when confidence reaches the configured threshold.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		day, err := parseDate("date", signalOpts.date, series.Day(time.Now()))
		if err != nil {
			return err
		}

		bars, yields, err := newSources()
		if err != nil {
			return err
		}
		lookback := day.AddDate(0, 0, -cfg.Pipeline.LookbackDays)
		md, err := pipeline.Load(ctx, bars, yields, cfg.Symbols, lookback, day, logger)
		if err != nil {
			return fmt.Errorf("error loading market data: %w", err)
		}
		md = md.Until(day)

		gen, err := cfg.NewGenerator(logger)
		if err != nil {
			return err
		}
		snap, err := gen.Tick(md)
		if err != nil {
			return fmt.Errorf("error generating signals: %w", err)
		}
		printSnapshot(out, snap)

		if signalOpts.similar > 0 && !snap.Stress.InsufficientData {
			history, _, err := gen.History(md, lookback, day.AddDate(0, 0, -1))
			if err != nil {
				return fmt.Errorf("error generating history: %w", err)
			}
			printSimilar(out, regime.SimilarPeriods(snap.Stress, history, signalOpts.similar))
		}

		if signalOpts.persist {
			db, err := newStore(ctx)
			if err != nil {
				return err
			}
			if _, err := db.SaveStress(ctx, snap.Stress); err != nil {
				return fmt.Errorf("error saving stress signal: %w", err)
			}
			if _, err := db.SaveTrading(ctx, snap.Signals); err != nil {
				return fmt.Errorf("error saving trading signals: %w", err)
			}
		}

		if signalOpts.alert {
			dispatcher, _, err := cfg.NewDispatcher(logger)
			if err != nil {
				return err
			}
			sent, err := dispatcher.Offer(ctx, snap.Stress, dispatcher.Threshold())
			if err != nil {
				logger.Warn().Err(err).Msg("Stress alert partially failed")
			}
			n, err := dispatcher.OfferTrading(ctx, snap.Signals, dispatcher.Threshold())
			if err != nil {
				logger.Warn().Err(err).Msg("Trading alerts partially failed")
			}
			fmt.Fprintf(out, "Alerts sent: stress=%t trading=%d\n", sent, n)
		}
		return nil
	},
}

func printSnapshot(w io.Writer, snap pipeline.Snapshot) {
	s := snap.Stress
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "BOND STRESS %s  (%s)\n", s.Level, s.Timestamp.Format(series.DateLayout))
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "Confidence: %.1f/10 (score %d)\n", s.Confidence, s.Score)
	fmt.Fprintf(w, "Yield Curve Spread: %s bps (z20 %s, z60 %s)\n", num(s.Spread, 2), num(s.SpreadZShort, 2), num(s.SpreadZLong, 2))
	fmt.Fprintf(w, "Bond Volatility: %s (z %s)\n", num(s.Volatility, 4), num(s.VolatilityZ, 2))
	fmt.Fprintf(w, "Credit Spreads: %s (z %s)\n", num(s.Credit, 4), num(s.CreditZ, 2))
	if len(s.Factors) > 0 {
		fmt.Fprintf(w, "Factors: %s\n", strings.Join(s.Factors, "; "))
	}
	fmt.Fprintf(w, "Action: %s\n", s.Action)
	fmt.Fprintf(w, "VIX: %.2f | Exposure: %.2f%%\n", snap.VIX, snap.Exposure*100)

	table := tablewriter.NewWriter(w)
	table.Header("Symbol", "Action", "Confidence", "Size", "Horizon", "Correlation", "Entry", "Stop", "Target")
	for _, ts := range snap.Signals {
		table.Append(ts.Symbol,
			string(ts.Action),
			fmt.Sprintf("%.1f", ts.Confidence),
			fmt.Sprintf("%.2f%%", ts.PositionSize*100),
			fmt.Sprintf("%dd", ts.HorizonDays),
			num(ts.Correlation, 3),
			fmt.Sprintf("%.2f", ts.EntryPrice),
			fmt.Sprintf("%.2f", ts.StopLoss),
			fmt.Sprintf("%.2f", ts.TakeProfit))
	}
	table.Render()
}

func printSimilar(w io.Writer, periods []regime.SimilarPeriod) {
	fmt.Fprintln(w, "\nMOST SIMILAR MONTHS")
	table := tablewriter.NewWriter(w)
	table.Header("Month", "Similarity", "Avg Spread", "Avg Volatility", "Avg Confidence")
	for _, p := range periods {
		table.Append(p.Month,
			fmt.Sprintf("%.3f", p.Similarity),
			fmt.Sprintf("%.2f", p.AvgSpread),
			fmt.Sprintf("%.4f", p.AvgVolatility),
			fmt.Sprintf("%.1f", p.AvgConfidence))
	}
	table.Render()
}

// num prints n/a for undefined readings
func num(v float64, prec int) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

func init() {
	rootCmd.AddCommand(signalCmd)

	signalCmd.Flags().StringVar(&signalOpts.date, "date", "", "Day to compute (YYYY-MM-DD), default today")
	signalCmd.Flags().BoolVar(&signalOpts.persist, "persist", false, "Save the signals to the configured store")
	signalCmd.Flags().BoolVar(&signalOpts.alert, "alert", false, "Send alerts for signals at or above the confidence threshold")
	signalCmd.Flags().IntVar(&signalOpts.similar, "similar", 3, "Show the N most similar past months, 0 to skip")
}
