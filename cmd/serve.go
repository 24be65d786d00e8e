package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"venuebot/pkg/channel/telegram"
	"venuebot/pkg/config"
	"venuebot/pkg/gateway"
	"venuebot/pkg/logger"
	"venuebot/pkg/queue"
	"venuebot/pkg/router"
	"venuebot/pkg/session"
	"venuebot/pkg/venue"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var workerMode bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram ingress or the queue worker",
	Long:  "Runs venuebot in ingress mode (Telegram long polling into the queue) or, with --worker, drains the queue and answers venue queries.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.serve")

		if err := cfg.Validate(); err != nil {
			log.Error("Configuration invalid", "error", err)
			return
		}

		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Error("Invalid redis url", "error", err)
			return
		}
		client := redis.NewClient(opts)
		defer client.Close()

		components, err := buildComponents(cfg, client, log)
		if err != nil {
			log.Error("Failed to initialize components", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := gateway.NewService(cfg, components, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}, log)
		if err != nil {
			log.Error("Failed to initialize service", "error", err)
			return
		}

		log.Info("venuebot started", "mode", modeName(cfg), "components", componentNames(components), "queue", cfg.Redis.QueueKey)
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Service failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&workerMode, "worker", false, "drain the queue instead of receiving Telegram updates")
}

// buildComponents wires exactly one of the two process roles.
func buildComponents(cfg *config.Config, client redis.Cmdable, log *slog.Logger) ([]gateway.Component, error) {
	q, err := queue.NewRedisQueue(client, cfg.Redis.QueueKey)
	if err != nil {
		return nil, fmt.Errorf("configure queue: %w", err)
	}

	if !cfg.Worker.Enabled {
		adapter, err := telegram.NewAdapter(cfg.Telegram, log)
		if err != nil {
			return nil, fmt.Errorf("configure telegram ingress: %w", err)
		}
		return []gateway.Component{gateway.Ingress(adapter, q)}, nil
	}

	venues, err := venue.NewClient(cfg.Foursquare, log)
	if err != nil {
		return nil, fmt.Errorf("configure venue client: %w", err)
	}

	sender, err := telegram.NewSender(cfg.Telegram, log)
	if err != nil {
		return nil, fmt.Errorf("configure telegram sender: %w", err)
	}

	rt, err := router.New(venues, venues, session.NewRedisStore(client), sender, log)
	if err != nil {
		return nil, err
	}

	worker, err := router.NewWorker(q, rt, cfg.Worker, log)
	if err != nil {
		return nil, err
	}

	return []gateway.Component{worker}, nil
}

// loadConfig lets an explicit --worker flag win over config and WORKER.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if cmd.Flags().Changed("worker") {
		return config.LoadConfigForMode(workerMode)
	}

	return config.LoadConfig()
}

func modeName(cfg *config.Config) string {
	if cfg.Worker.Enabled {
		return "worker"
	}

	return "ingress"
}

func componentNames(components []gateway.Component) string {
	names := make([]string, 0, len(components))
	for _, component := range components {
		names = append(names, component.Name())
	}

	return strings.Join(names, ",")
}
