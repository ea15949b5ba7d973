/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/satoshi/internal/bootstrap"
	"github.com/krobus00/satoshi/internal/constant"
	"github.com/spf13/cobra"
)

// migrateCmd manages the trade history schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "perform trade history database migration",
	Long:  `perform trade history database migration with goose, using database.<databaseName>.dsn from the config`,
	Args:  cobra.NoArgs,
	Run:   bootstrap.StartMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.PersistentFlags().String("action", "up", "action create|up|up-by-one|up-to|down|down-to|reset|status")
	migrateCmd.PersistentFlags().Int64("version", 1, "version")
	migrateCmd.PersistentFlags().String("name", "", "migration name")
	migrateCmd.PersistentFlags().String("databaseName", constant.TradeHistoryDatabase, "database name")
}
