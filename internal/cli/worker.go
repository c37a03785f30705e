package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pkordes/showing-tours/internal/config"
	"github.com/pkordes/showing-tours/internal/events"
)

// NewWorkerCmd drains the shared Redis notification queue. Run any number of
// workers next to any number of servers.
func NewWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Deliver queued notifications (push, SMS, email)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.RedisURL == "" {
				return errNoRedis
			}
			log := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, rdb, err := connect(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer pool.Close()
			defer func() { _ = rdb.Close() }()

			queue := events.NewRedisQueue(rdb, events.DefaultKey, 0)
			err = newSubscriber(cfg, pool, queue, log).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
