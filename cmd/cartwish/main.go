package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/abgdnv/cartwish/internal/app"
	"github.com/abgdnv/cartwish/internal/config"
	"github.com/abgdnv/cartwish/migrations"
	"github.com/abgdnv/cartwish/pkg/bootstrap"
	"github.com/abgdnv/cartwish/pkg/config/configloader"
	"github.com/abgdnv/cartwish/pkg/messaging"
	natsclient "github.com/abgdnv/cartwish/pkg/nats"
	"github.com/abgdnv/cartwish/pkg/server"
	"github.com/abgdnv/cartwish/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

const serviceName = "cartwish"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

func run(ctx context.Context) error {
	cfg, err := configloader.Load[*config.Config](serviceName)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	var closers closeStack
	defer closers.closeAll(logger, cfg)

	infra, err := openInfrastructure(ctx, cfg, logger, &closers)
	if err != nil {
		return err
	}
	deps, err := app.SetupDependencies(infra, cfg, logger)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	serve(gCtx, g, logger, cfg, "HTTP", app.SetupHttpServer(deps, cfg))
	if cfg.PProf.Enabled {
		serve(gCtx, g, logger, cfg, "pprof", server.NewPprofServer(cfg.PProf.Addr))
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// openInfrastructure connects to every backend the configuration enables. Each opened resource
// registers its release on closers.
func openInfrastructure(ctx context.Context, cfg *config.Config, logger *slog.Logger, closers *closeStack) (app.Infrastructure, error) {
	var infra app.Infrastructure

	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return infra, fmt.Errorf("failed to create tracer provider: %w", err)
		}
		closers.push("tracer provider", tp.Shutdown)
	}
	if cfg.Telemetry.Metrics.Enabled {
		mp, handler, err := telemetry.NewMeterProvider(serviceName)
		if err != nil {
			return infra, err
		}
		closers.push("meter provider", mp.Shutdown)
		infra.Metrics = handler
	}

	dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
	if err != nil {
		return infra, err
	}
	closers.push("database pool", func(context.Context) error {
		dbPool.Close()
		return nil
	})
	infra.DB = dbPool
	logger.Info("Successfully connected to the database!")

	if cfg.Database.Migrate {
		if err := bootstrap.RunMigrations(migrations.FS, cfg.Database.URL); err != nil {
			return infra, err
		}
		logger.Info("Database migrations applied")
	}

	if cfg.Cart.Store == config.CartStoreRedis {
		client, err := bootstrap.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.Timeout)
		if err != nil {
			return infra, err
		}
		closers.push("redis client", func(context.Context) error { return client.Close() })
		infra.Redis = client
	}

	if cfg.Nats.Enabled {
		nc, err := natsclient.NewClient(cfg.Nats.URL, cfg.Nats.Timeout, logger)
		if err != nil {
			return infra, err
		}
		closers.push("nats connection", func(context.Context) error { return nc.Drain() })
		js, err := natsclient.NewJetStreamContext(nc)
		if err != nil {
			return infra, err
		}
		if err := natsclient.EnsureStream(ctx, js, cfg.Nats.Stream, messaging.CartsUpdatedSubject); err != nil {
			return infra, err
		}
		infra.Publisher = natsclient.NewNatsPublisher(js)
		logger.Info("Publishing cart events to NATS", slog.String("stream", cfg.Nats.Stream))
	}

	infra.Verifier, infra.Issuer, err = app.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		return infra, fmt.Errorf("failed to create token verifier: %w", err)
	}
	return infra, nil
}

// serve runs srv until ctx is cancelled, then shuts it down within the configured timeout.
func serve(ctx context.Context, g *errgroup.Group, logger *slog.Logger, cfg *config.Config, name string, srv *http.Server) {
	g.Go(func() error {
		logger.Info(name+" server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server failed: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down " + name + " server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

type closer struct {
	name  string
	close func(context.Context) error
}

// closeStack releases resources in reverse order of opening.
type closeStack []closer

func (s *closeStack) push(name string, fn func(context.Context) error) {
	*s = append(*s, closer{name: name, close: fn})
}

func (s *closeStack) closeAll(logger *slog.Logger, cfg *config.Config) {
	for _, c := range slices.Backward(*s) {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		if err := c.close(ctx); err != nil {
			logger.Error("Failed to close "+c.name, slog.Any("error", err))
		}
		cancel()
	}
}
