package cmd

import (
	"context"
	"fmt"

	"tourism-booking/internal/data/repository"
	"tourism-booking/internal/sideeffect"
	"tourism-booking/internal/wire"
	"tourism-booking/pkg/database"
	"tourism-booking/pkg/gateway"
	"tourism-booking/pkg/mq"
	"tourism-booking/pkg/obs"
	"tourism-booking/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (checkout and webhook)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	config, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("worker_mode", config.Worker.Mode),
	)

	if err := utils.InitIDNode(config.App.NodeID); err != nil {
		return err
	}

	if config.Tracing.Enabled {
		shutdown, err := obs.InitTracer(ctx, obs.Config{
			ServiceName: config.App.Name,
			Endpoint:    config.Tracing.Endpoint,
			Environment: config.Tracing.Environment,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("Failed to flush traces", zap.Error(err))
			}
		}()
		logger.Info("Tracing enabled", zap.String("endpoint", config.Tracing.Endpoint))
	}

	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	repos := repository.NewRepository(db, logger)

	dispatcher, closeDispatcher, err := newDispatcher(config, repos, logger)
	if err != nil {
		return err
	}
	// runs after the server stops so queued effects of the last requests finish
	defer closeDispatcher()

	gw := gateway.NewStripe(config.Stripe.SecretKey, config.Stripe.WebhookSecret, nil)
	app := wire.Wiring(repos, gw, dispatcher, config, logger)

	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))
	return APIServer(ctx, app.Router, config.App.Port, logger)
}

// newDispatcher picks where side effects run. In "amqp" mode the worker
// command must be running to consume them.
func newDispatcher(config *utils.Config, repos *repository.Repository, logger *zap.Logger) (sideeffect.Dispatcher, func(), error) {
	switch config.Worker.Mode {
	case "amqp":
		pub, err := mq.NewPublisher(config.Worker.RabbitURL, config.Worker.Exchange)
		if err != nil {
			return nil, nil, fmt.Errorf("side effect publisher: %w", err)
		}
		logger.Info("Side effects published to broker", zap.String("exchange", config.Worker.Exchange))
		return sideeffect.NewAMQPDispatcher(pub), func() {
			if err := pub.Close(); err != nil {
				logger.Warn("Failed to close publisher", zap.Error(err))
			}
		}, nil

	case "inline", "":
		runner := sideeffect.NewRunner(repos, logger)
		pool := sideeffect.NewWorkerPool(runner, config.Worker.PoolSize, config.Worker.QueueSize, logger)
		logger.Info("Side effects run in process",
			zap.Int("workers", config.Worker.PoolSize),
			zap.Int("queue", config.Worker.QueueSize),
		)
		return pool, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown worker mode %q", config.Worker.Mode)
	}
}
