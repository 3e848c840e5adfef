package bondstress

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/bondstress/pkg/backtest"
	"github.com/vignesh-goutham/bondstress/pkg/config"
	"github.com/vignesh-goutham/bondstress/pkg/pipeline"
	"github.com/vignesh-goutham/bondstress/pkg/regime"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/sizing"
)

var backtestOpts struct {
	from        string
	to          string
	csvDir      string
	walkForward bool
	quality     bool
	regimes     bool
	persist     bool
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical bond stress signals against semiconductor prices",
	Long: `Generate the stress and trading signals each trading day in the requested
range would have produced, then replay them through a single position
simulated account.

Market data comes from Alpaca and FRED, or from a directory of CSV files
(one <SYMBOL>.csv or <SERIES>.csv per input, e.g. DGS10.csv, TLT.csv) when
--csv-dir is given.

Example:
  bondstress backtest --from 2023-01-01 --to 2024-06-30 --walk-forward --regimes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		to, err := parseDate("to", backtestOpts.to, series.Day(time.Now()))
		if err != nil {
			return err
		}
		from, err := parseDate("from", backtestOpts.from, to.AddDate(-1, 0, 0))
		if err != nil {
			return err
		}
		if to.Before(from) {
			return fmt.Errorf("--to %s is before --from %s", to.Format(series.DateLayout), from.Format(series.DateLayout))
		}
		if backtestOpts.csvDir != "" {
			cfg.Data.Source = config.SourceCSV
			cfg.Data.CSVDir = backtestOpts.csvDir
		}

		bars, yields, err := newSources()
		if err != nil {
			return err
		}
		md, err := pipeline.Load(ctx, bars, yields, cfg.Symbols, from.AddDate(0, 0, -warmupDays), to, logger)
		if err != nil {
			return fmt.Errorf("error loading market data: %w", err)
		}

		gen, err := cfg.NewGenerator(logger)
		if err != nil {
			return err
		}
		stressHistory, stream, err := gen.History(md, from, to)
		if err != nil {
			return fmt.Errorf("error generating signals: %w", err)
		}
		fmt.Fprintf(out, "Generated %d stress readings and %d trading signals from %s to %s\n",
			len(stressHistory), len(stream), from.Format(series.DateLayout), to.Format(series.DateLayout))

		if backtestOpts.persist {
			db, err := newStore(ctx)
			if err != nil {
				return err
			}
			for _, sig := range stressHistory {
				if _, err := db.SaveStress(ctx, sig); err != nil {
					return fmt.Errorf("error saving stress history: %w", err)
				}
			}
			if _, err := db.SaveTrading(ctx, stream); err != nil {
				return fmt.Errorf("error saving trading history: %w", err)
			}
			logger.Info().Int("stress", len(stressHistory)).Int("trading", len(stream)).Msg("Signal history persisted")
		}

		backtester, err := backtest.NewBacktester(cfg.BacktestConfig(), logger)
		if err != nil {
			return err
		}
		result, err := backtester.RunFresh(stream, md.Bars, from, to)
		if err != nil {
			return fmt.Errorf("error running backtest: %w", err)
		}

		// Print the backtest results
		backtest.PrintResults(out, result)
		sizer, err := sizing.New(cfg.SizingConfig())
		if err != nil {
			return err
		}
		backtest.PrintKelly(out, result, sizer)

		if backtestOpts.walkForward {
			wf, err := backtester.WalkForward(stream, md.Bars)
			if err != nil {
				return fmt.Errorf("error running walk-forward analysis: %w", err)
			}
			if len(wf.Windows) == 0 {
				fmt.Fprintf(out, "\nNot enough signal days for walk-forward analysis (train %d, test %d)\n",
					cfg.Backtest.TrainWindow, cfg.Backtest.TestWindow)
			} else {
				backtest.PrintWalkForward(out, wf)
			}
		}

		if backtestOpts.quality {
			backtest.PrintQuality(out, backtest.SignalQuality(stream, md.Bars, backtest.DefaultHorizons))
		}

		if backtestOpts.regimes {
			classifier := regime.NewDefault()
			regime.PrintPerformance(out, classifier.Performance(result.Trades))
			regime.PrintPatterns(out, classifier.SignalPatterns(stream))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestOpts.from, "from", "", "First signal date (YYYY-MM-DD), default one year before --to")
	backtestCmd.Flags().StringVar(&backtestOpts.to, "to", "", "Last signal date (YYYY-MM-DD), default today")
	backtestCmd.Flags().StringVar(&backtestOpts.csvDir, "csv-dir", "", "Read market data from CSV files in this directory")
	backtestCmd.Flags().BoolVar(&backtestOpts.walkForward, "walk-forward", false, "Run walk-forward analysis")
	backtestCmd.Flags().BoolVar(&backtestOpts.quality, "quality", false, "Report forward returns per stress level")
	backtestCmd.Flags().BoolVar(&backtestOpts.regimes, "regimes", false, "Break results down by market regime")
	backtestCmd.Flags().BoolVar(&backtestOpts.persist, "persist", false, "Save the generated signal history to the configured store")
}
