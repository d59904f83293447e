package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/risklab/internal/logger"
	"github.com/newthinker/risklab/internal/storage/postgres"
)

var migrateDSN string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  `Applies the embedded schema migrations to the PostgreSQL database.`,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&migrateDSN, "dsn", "", "database DSN (overrides database.dsn)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	dsn := cfg.Database.DSN
	if migrateDSN != "" {
		dsn = migrateDSN
	}
	if dsn == "" {
		return fmt.Errorf("no database dsn: set database.dsn or pass --dsn")
	}

	return postgres.Migrate(commandContext(cmd), dsn, log)
}
