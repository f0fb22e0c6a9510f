package cmd

import (
	"github.com/spf13/cobra"

	"github.com/viktsys/stockcollect/collect"
	"github.com/viktsys/stockcollect/database"
)

var dailyType string

var dailyCMD = &cobra.Command{
	Use:   "collect-daily",
	Short: "Collect everything newer than the stored watermarks",
	Long: `Collect data from the day after each entity's watermark up to today.
Entities that are already up to date fetch nothing, so the command is
safe to run from cron as often as needed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sup := database.NewSupervisor(cfg.DB, log)
		collectors, err := buildCollectors(sup, dailyType)
		if err != nil {
			return err
		}

		coord := collect.NewCoordinator(sup, collectors, log)
		out, err := coord.Run(cmd.Context(), collect.Request{Mode: collect.ModeDaily})
		if err != nil {
			return err
		}
		exitForOutcome(out)
		return nil
	},
}

func init() {
	dailyCMD.Flags().StringVar(&dailyType, "type", "", "collect a single entity type (listing, price, index, financial)")
	rootCMD.AddCommand(dailyCMD)
}
