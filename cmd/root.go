// Package cmd wires the CLI: schema setup, backfill, daily collection,
// status reporting and the read-only API server.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/viktsys/stockcollect/collect"
	"github.com/viktsys/stockcollect/config"
	"github.com/viktsys/stockcollect/database"
	"github.com/viktsys/stockcollect/provider/vci"
)

var (
	cfgPath string
	verbose bool

	cfg config.Config
	log = logrus.New()
)

var rootCMD = &cobra.Command{
	Use:   "stockcollect",
	Short: "Market data collection engine",
	Long: `stockcollect collects listings, daily prices, market indices and
financial statements from the upstream market data provider into Postgres.
Collection is resumable: each entity keeps a durable watermark and daily
runs only fetch what is missing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func Execute() {
	if err := rootCMD.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCMD.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to the YAML config file")
	rootCMD.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// buildCollectors assembles the collectors for a run, optionally
// restricted to a single entity type.
func buildCollectors(sup *database.Supervisor, only string) ([]collect.Collector, error) {
	market := vci.NewClient(cfg.Provider, nil)

	byEntity := map[collect.EntityType]collect.Collector{
		collect.EntityListing:   collect.NewListingCollector(sup, market, cfg.Collection, log),
		collect.EntityPrice:     collect.NewPriceCollector(sup, market, cfg.Collection, log),
		collect.EntityIndex:     collect.NewIndexCollector(sup, market, cfg.Collection, cfg.Indices, log),
		collect.EntityFinancial: collect.NewFinancialCollector(sup, market, cfg.Collection, log),
	}

	if only != "" {
		c, ok := byEntity[collect.EntityType(only)]
		if !ok {
			return nil, fmt.Errorf("unknown entity type %q (want one of: %s)", only, entityNames())
		}
		return []collect.Collector{c}, nil
	}

	out := make([]collect.Collector, 0, len(byEntity))
	for _, e := range collect.AllEntities() {
		out = append(out, byEntity[e])
	}
	return out, nil
}

func entityNames() string {
	names := make([]string, 0, len(collect.AllEntities()))
	for _, e := range collect.AllEntities() {
		names = append(names, string(e))
	}
	return strings.Join(names, ", ")
}

// exitForOutcome terminates the process with the run's exit code so cron
// and systemd can tell a partial run (2) from a failed one (1).
func exitForOutcome(out collect.Outcome) {
	if code := out.ExitCode(); code != 0 {
		os.Exit(code)
	}
}
