package bondstress

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/bondstress/pkg/regime"
	"github.com/vignesh-goutham/bondstress/pkg/series"
)

var regimesDate string

var regimesCmd = &cobra.Command{
	Use:   "regimes",
	Short: "List market regimes and the regime a day falls in",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		day, err := parseDate("date", regimesDate, series.Day(time.Now()))
		if err != nil {
			return err
		}

		classifier := regime.NewDefault()
		regime.PrintPeriods(out, classifier)

		a := classifier.Current(day)
		fmt.Fprintf(out, "\n%s: %s", a.AssessedAt.Format(series.DateLayout), a.Regime)
		if a.Regime != regime.Unknown {
			fmt.Fprintf(out, " (%d days in)\n%s\nCharacteristics: %s", a.DaysInRegime, a.Description, a.Characteristics)
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(regimesCmd)
	regimesCmd.Flags().StringVar(&regimesDate, "date", "", "Day to classify (YYYY-MM-DD), default today")
}
