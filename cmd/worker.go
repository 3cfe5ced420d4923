package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/pacific/relief/internal/messaging"
	"example.com/pacific/relief/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long: `Start the background worker. It applies field updates received on the
Azure Service Bus field updates queue and periodically rebuilds the
Elasticsearch request index.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	consumer, err := messaging.NewConsumer(a.bus, cfg.Azure.FieldUpdatesQueue)
	if err != nil {
		return err
	}
	processor := services.NewFieldUpdateProcessor(a.service, a.tracer)

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Start the field update consumer
	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.FieldUpdatesQueue).Msg("Starting field update consumer")
		return consumer.Run(ctx, processor.ProcessMessage)
	})

	// Start the reindex job
	g.Go(func() error {
		if cfg.Worker.ReindexInterval <= 0 || !a.search.Enabled() {
			log.Info().Msg("Search reindexing disabled")
			<-ctx.Done()
			return nil
		}

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.ReindexInterval),
			gocron.NewTask(func() {
				if _, err := a.service.ReindexRequests(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to reindex requests")
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return err
		}

		log.Info().Dur("interval", cfg.Worker.ReindexInterval).Msg("Starting reindex job")
		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
