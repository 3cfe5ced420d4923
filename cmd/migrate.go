package cmd

import (
	"example.com/pacific/relief/internal/database"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Runs database migrations to ensure the database schema
is up-to-date. This is useful for CI/CD pipelines or initial setup.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := connectDatabase(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info().Msg("Running database migrations")
	if err := database.AutoMigrate(db); err != nil {
		return errors.Wrap(err, "failed to run database migrations")
	}

	log.Info().Msg("Database migrations completed successfully")
	return nil
}
