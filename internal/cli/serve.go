package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/pkordes/showing-tours/internal/config"
	"github.com/pkordes/showing-tours/internal/handler"
	"github.com/pkordes/showing-tours/internal/middleware"
	"github.com/pkordes/showing-tours/internal/tracing"
)

const serviceName = "showing-tours"

// NewServeCmd starts the HTTP API.
func NewServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger, migrate bool) error {
	if cfg.EnableTracing {
		if err := tracing.Configure(cfg.XRayDaemonAddr, version); err != nil {
			return err
		}
	}
	if migrate {
		if err := migrateUp(ctx, cfg.DatabaseURL, log); err != nil {
			return err
		}
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	// Without Redis nobody else can drain the queue.
	subDone := make(chan struct{})
	subCtx, cancelSub := context.WithCancel(context.Background())
	defer cancelSub()
	if a.localQueue() {
		go func() {
			defer close(subDone)
			_ = a.subscriber.Run(subCtx)
		}()
	} else {
		close(subDone)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, handler.NewServer(a.tours, a.stops, a.showings), log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// No request can enqueue anymore. Events still buffered in memory are
	// dropped with the process.
	cancelSub()
	<-subDone
	log.Info("server stopped")
	return nil
}

// newRouter applies the middleware chain in order: RequestID → RealIP →
// tracing (optional) → SlogLogger → Recoverer → CORS → MaxBodySize, then
// mounts the API.
func newRouter(cfg config.Config, api *handler.Server, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if cfg.EnableTracing {
		r.Use(tracing.Middleware(serviceName))
	}
	r.Use(middleware.NewSlogLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Mount("/", api.Routes())
	return r
}
