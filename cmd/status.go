package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/viktsys/stockcollect/collect"
	"github.com/viktsys/stockcollect/database"
)

var statusLimit int

var statusCMD = &cobra.Command{
	Use:   "status",
	Short: "Show stored data and recent collection runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup := database.NewSupervisor(cfg.DB, log)
		db, err := sup.Acquire(cmd.Context())
		if err != nil {
			return err
		}

		summaries, err := collect.Summarize(cmd.Context(), db)
		if err != nil {
			return err
		}
		logs, err := collect.RecentLogs(cmd.Context(), db, statusLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ENTITY\tROWS\tWATERMARK")
		for _, s := range summaries {
			wm := "-"
			if s.Watermark != nil {
				wm = s.Watermark.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", s.Entity, s.Rows, wm)
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, "STARTED\tENTITY\tSTATUS\tRECORDS\tERROR")
		for _, l := range logs {
			errText := l.Error
			if len(errText) > 60 {
				errText = errText[:57] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				l.StartedAt.Format("2006-01-02 15:04:05"), l.EntityType, l.Status, l.Records, errText)
		}
		return w.Flush()
	},
}

func init() {
	statusCMD.Flags().IntVar(&statusLimit, "limit", 20, "number of recent log entries to show")
	rootCMD.AddCommand(statusCMD)
}
