package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/viktsys/stockcollect/collect"
	"github.com/viktsys/stockcollect/database"
	"github.com/viktsys/stockcollect/provider"
)

var (
	backfillStart   string
	backfillEnd     string
	backfillSymbols []string
	backfillType    string
	backfillPeriod  string
)

var backfillCMD = &cobra.Command{
	Use:   "backfill",
	Short: "Collect historical data from a start date",
	Long: `Collect historical data from the given start date (or the configured
default) up to the end date. Backfill ignores stored watermarks and
re-collects the full span; existing rows are overwritten in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := collect.Request{Mode: collect.ModeBackfill, Symbols: backfillSymbols}

		var err error
		if req.Start, err = parseDateFlag("start", backfillStart); err != nil {
			return err
		}
		if req.End, err = parseDateFlag("end", backfillEnd); err != nil {
			return err
		}
		switch backfillPeriod {
		case "", "quarter":
			req.Period = provider.PeriodQuarter
		case "year":
			req.Period = provider.PeriodYear
		default:
			return fmt.Errorf("unknown period %q (want quarter or year)", backfillPeriod)
		}

		sup := database.NewSupervisor(cfg.DB, log)
		collectors, err := buildCollectors(sup, backfillType)
		if err != nil {
			return err
		}

		coord := collect.NewCoordinator(sup, collectors, log)
		out, err := coord.Run(cmd.Context(), req)
		if err != nil {
			return err
		}
		exitForOutcome(out)
		return nil
	},
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: use YYYY-MM-DD", name, value)
	}
	return t, nil
}

func init() {
	backfillCMD.Flags().StringVar(&backfillStart, "start", "", "start date (YYYY-MM-DD), defaults to the configured floor")
	backfillCMD.Flags().StringVar(&backfillEnd, "end", "", "end date (YYYY-MM-DD), defaults to today")
	backfillCMD.Flags().StringSliceVar(&backfillSymbols, "symbols", nil, "restrict to these symbols (comma separated)")
	backfillCMD.Flags().StringVar(&backfillType, "type", "", "collect a single entity type (listing, price, index, financial)")
	backfillCMD.Flags().StringVar(&backfillPeriod, "period", "quarter", "financial report period (quarter or year)")
	rootCMD.AddCommand(backfillCMD)
}
