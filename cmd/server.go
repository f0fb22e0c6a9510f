package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viktsys/stockcollect/api"
	"github.com/viktsys/stockcollect/database"
)

var serverPort int

var serverCMD = &cobra.Command{
	Use:   "server",
	Short: "Start the read-only status API server",
	Long:  `Serve collection status, per-entity summaries and price queries over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sup := database.NewSupervisor(cfg.DB, log)
		if _, err := sup.Acquire(cmd.Context()); err != nil {
			return err
		}

		port := serverPort
		if port == 0 {
			port = cfg.Server.Port
		}
		if port == 0 {
			port = 8080
		}

		r := api.NewHandler(sup, log).SetupRoutes()
		log.WithField("port", port).Info("starting API server")
		return r.Run(fmt.Sprintf(":%d", port))
	},
}

func init() {
	serverCMD.Flags().IntVar(&serverPort, "port", 0, "listen port (defaults to the configured server port)")
	rootCMD.AddCommand(serverCMD)
}
