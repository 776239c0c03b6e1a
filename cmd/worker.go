package cmd

import (
	"tourism-booking/internal/data/repository"
	"tourism-booking/internal/sideeffect"
	"tourism-booking/pkg/database"
	"tourism-booking/pkg/mq"
	"tourism-booking/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume side-effect tasks from RabbitMQ",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if err := utils.InitIDNode(config.App.NodeID); err != nil {
			return err
		}

		db, err := database.InitDB(config.Database)
		if err != nil {
			logger.Error("Failed to connect to database", zap.Error(err))
			return err
		}
		defer db.Close()

		workers := config.Worker.PoolSize
		if workers <= 0 {
			workers = 1
		}

		consumer, err := mq.NewConsumer(mq.ConsumerConfig{
			URL:      config.Worker.RabbitURL,
			Exchange: config.Worker.Exchange,
			Queue:    config.Worker.Queue,
			Bindings: sideeffect.RoutingKeys,
			Prefetch: workers,
			DLXName:  config.Worker.Exchange + ".dlx",
			DLXQueue: config.Worker.Queue + ".dlq",
		})
		if err != nil {
			logger.Error("Failed to connect to broker", zap.Error(err))
			return err
		}
		defer consumer.Close()

		deliveries, err := consumer.Deliveries(cmd.Context(), config.App.Name+"-worker")
		if err != nil {
			return err
		}

		runner := sideeffect.NewRunner(repository.NewRepository(db, logger), logger)
		handler := sideeffect.NewConsumer(runner, logger)

		logger.Info("Side effect worker started",
			zap.String("queue", config.Worker.Queue),
			zap.Int("workers", workers),
		)

		g, ctx := errgroup.WithContext(cmd.Context())
		for i := 0; i < workers; i++ {
			g.Go(func() error {
				return handler.Run(ctx, deliveries)
			})
		}
		err = g.Wait()

		logger.Info("Side effect worker stopped")
		return err
	},
}
