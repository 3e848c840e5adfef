package regime

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
)

// PrintPeriods writes the classifier's periods in priority order
func PrintPeriods(w io.Writer, c *Classifier) {
	table := tablewriter.NewWriter(w)
	table.Header("Regime", "Start", "End", "Months", "Description")
	for _, p := range c.Periods() {
		table.Append(p.Name,
			p.Start.Format(series.DateLayout),
			p.End.Format(series.DateLayout),
			fmt.Sprintf("%d", p.Months()),
			p.Description)
	}
	table.Render()
}

func PrintPerformance(w io.Writer, perf []Performance) {
	fmt.Fprintln(w, "\nPERFORMANCE BY REGIME")

	table := tablewriter.NewWriter(w)
	table.Header("Regime", "Trades", "Win Rate", "Avg Return", "Volatility", "Total P/L", "Best", "Worst")
	for _, p := range perf {
		table.Append(p.Regime,
			fmt.Sprintf("%d", p.TotalTrades),
			fmt.Sprintf("%.2f%%", p.WinRate*100),
			fmt.Sprintf("%.2f%%", p.AvgReturn*100),
			fmt.Sprintf("%.2f%%", p.ReturnVolatility*100),
			"$"+p.TotalPnL.StringFixed(2),
			fmt.Sprintf("%.2f%%", p.BestTrade*100),
			fmt.Sprintf("%.2f%%", p.WorstTrade*100))
	}
	table.Render()
}

func PrintPatterns(w io.Writer, patterns []Pattern) {
	fmt.Fprintln(w, "\nSIGNAL PATTERNS BY REGIME")

	table := tablewriter.NewWriter(w)
	table.Header("Regime", "Signals", "Per Month", "Buy/Sell/Hold/Watch", "Avg Confidence", "Top Symbols")
	for _, p := range patterns {
		top := make([]string, 0, len(p.TopSymbols))
		for _, s := range p.TopSymbols {
			top = append(top, fmt.Sprintf("%s(%d)", s.Symbol, s.Count))
		}
		table.Append(p.Regime,
			fmt.Sprintf("%d", p.TotalSignals),
			fmt.Sprintf("%.1f", p.SignalsPerMonth),
			fmt.Sprintf("%d/%d/%d/%d",
				p.ActionDistribution[signals.ActionBuy],
				p.ActionDistribution[signals.ActionSell],
				p.ActionDistribution[signals.ActionHold],
				p.ActionDistribution[signals.ActionWatch]),
			fmt.Sprintf("%.1f", p.AvgConfidence),
			strings.Join(top, " "))
	}
	table.Render()
}
