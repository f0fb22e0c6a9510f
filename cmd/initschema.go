package cmd

import (
	"github.com/spf13/cobra"

	"github.com/viktsys/stockcollect/database"
)

var initSchemaCMD = &cobra.Command{
	Use:   "init-schema",
	Short: "Create or migrate the database schema",
	Long:  `Create all tables and indexes, or bring an existing schema up to date. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sup := database.NewSupervisor(cfg.DB, log)
		if err := sup.InitSchema(cmd.Context()); err != nil {
			return err
		}
		log.Info("schema is up to date")
		return nil
	},
}

func init() {
	rootCMD.AddCommand(initSchemaCMD)
}
