package backtest

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/sizing"
)

// FormatProfitFactor renders the profit factor, spelling out the no-loss case
func FormatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf (no losing trades)"
	}
	return fmt.Sprintf("%.2f", pf)
}

// PrintResults writes the trade log and summary statistics of r
func PrintResults(w io.Writer, r *Result) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(w, "BACKTEST RESULTS")

	table := tablewriter.NewWriter(w)
	table.Header("Symbol", "Entry Date", "Exit Date", "Entry Price", "Exit Price", "Investment", "Proceeds", "P/L Amount", "P/L %", "Days")

	trades := append(r.Trades[:0:0], r.Trades...)
	sort.Slice(trades, func(i, j int) bool { return trades[i].Return > trades[j].Return })

	for _, t := range trades {
		table.Append(t.Symbol,
			t.EntryDate.Format(series.DateLayout),
			t.ExitDate.Format(series.DateLayout),
			"$"+t.EntryPrice.StringFixed(2),
			"$"+t.ExitPrice.StringFixed(2),
			"$"+t.Cost.StringFixed(2),
			"$"+t.Proceeds.StringFixed(2),
			"$"+t.ProfitLoss.StringFixed(2),
			fmt.Sprintf("%.2f%%", t.Return*100),
			fmt.Sprintf("%d", t.HoldingDays))
	}
	table.Render()

	fmt.Fprintln(w, "\nPERFORMANCE SUMMARY:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	if r.TotalTrades == 0 {
		fmt.Fprintln(w, "No completed trades")
		return
	}
	fmt.Fprintf(w, "Period: %s to %s\n", r.StartDate.Format(series.DateLayout), r.EndDate.Format(series.DateLayout))
	fmt.Fprintf(w, "Initial Value: $%.2f\n", r.InitialValue)
	fmt.Fprintf(w, "Final Value: $%.2f\n", r.FinalValue)
	fmt.Fprintf(w, "Total Return: %.2f%%\n", r.TotalReturn*100)
	fmt.Fprintf(w, "Annual Return: %.2f%%\n", r.AnnualReturn*100)
	fmt.Fprintf(w, "Volatility: %.2f%%\n", r.Volatility*100)
	fmt.Fprintf(w, "Sharpe Ratio: %.2f\n", r.SharpeRatio)
	fmt.Fprintf(w, "Max Drawdown: %.2f%%\n", r.MaxDrawdown*100)
	fmt.Fprintf(w, "Trades: %d\n", r.TotalTrades)
	fmt.Fprintf(w, "Win Rate: %.2f%%\n", r.WinRate*100)
	fmt.Fprintf(w, "Avg Holding Days: %.1f\n", r.AvgHoldingDays)
	fmt.Fprintf(w, "Best Trade: %.2f%%\n", r.BestTrade*100)
	fmt.Fprintf(w, "Worst Trade: %.2f%%\n", r.WorstTrade*100)
	fmt.Fprintf(w, "Profit Factor: %s\n", FormatProfitFactor(r.ProfitFactor))
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

// PrintWalkForward writes one row per fold and the fold averages
func PrintWalkForward(w io.Writer, wf *WalkForwardResult) {
	fmt.Fprintln(w, "\nWALK-FORWARD ANALYSIS")

	table := tablewriter.NewWriter(w)
	table.Header("Train", "Test", "Trades", "Return", "Sharpe", "Max DD", "Win Rate")
	for _, fold := range wf.Windows {
		table.Append(
			fold.TrainStart.Format(series.DateLayout)+" - "+fold.TrainEnd.Format(series.DateLayout),
			fold.TestStart.Format(series.DateLayout)+" - "+fold.TestEnd.Format(series.DateLayout),
			fmt.Sprintf("%d", fold.Result.TotalTrades),
			fmt.Sprintf("%.2f%%", fold.Result.TotalReturn*100),
			fmt.Sprintf("%.2f", fold.Result.SharpeRatio),
			fmt.Sprintf("%.2f%%", fold.Result.MaxDrawdown*100),
			fmt.Sprintf("%.2f%%", fold.Result.WinRate*100))
	}
	table.Render()

	fmt.Fprintf(w, "Folds: %d (%d positive)\n", len(wf.Windows), wf.PositiveWindows)
	fmt.Fprintf(w, "Mean Annual Return: %.2f%% | Mean Sharpe: %.2f | Mean Max DD: %.2f%% | Mean Win Rate: %.2f%%\n",
		wf.MeanAnnualReturn*100, wf.MeanSharpe, wf.MeanMaxDrawdown*100, wf.MeanWinRate*100)
}

// PrintKelly writes the fractional Kelly size implied by the run's closed trades
func PrintKelly(w io.Writer, r *Result, sizer *sizing.Sizer) {
	if r.TotalTrades == 0 {
		fmt.Fprintln(w, "Suggested Kelly Size: n/a (no completed trades)")
		return
	}
	avgWin, avgLoss := AvgWinLoss(r.Trades)
	fmt.Fprintf(w, "Suggested Kelly Size: %.2f%% (win rate %.2f%%, avg win %.2f%%, avg loss %.2f%%)\n",
		sizer.Kelly(r.WinRate, avgWin, avgLoss)*100, r.WinRate*100, avgWin*100, avgLoss*100)
}

// PrintQuality writes the forward return statistics per stress level
func PrintQuality(w io.Writer, stats []QualityStat) {
	fmt.Fprintln(w, "\nSIGNAL QUALITY (forward returns)")

	table := tablewriter.NewWriter(w)
	table.Header("Level", "Horizon", "Samples", "Mean", "Hit Rate", "Std")
	for _, s := range stats {
		table.Append(string(s.Level),
			fmt.Sprintf("%dd", s.Horizon),
			fmt.Sprintf("%d", s.SampleSize),
			fmt.Sprintf("%.2f%%", s.MeanReturn*100),
			fmt.Sprintf("%.2f%%", s.HitRate*100),
			fmt.Sprintf("%.2f%%", s.StdReturn*100))
	}
	table.Render()
}
