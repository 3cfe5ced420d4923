package cmd

import (
	"example.com/pacific/relief/internal/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo data into an empty database",
	Long: `Migrates the schema and inserts the demo events and requests when no
event exists yet. Running it again is a no-op.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	seeded, err := services.NewSeeder(a.store, a.cache).SeedIfEmpty(cmd.Context())
	if err != nil {
		return err
	}

	log.Info().Bool("seeded", seeded).Msg("Seed finished")
	return nil
}
