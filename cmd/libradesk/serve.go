// cmd/libradesk/serve.go
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"libradesk/internal/config"
	"libradesk/internal/library"
	"libradesk/internal/server"
	"libradesk/internal/store/memstore"
	"libradesk/internal/store/sqlstore"
	"libradesk/internal/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	shutdownTracing, err := telemetry.SetupTracing(ctx, a.cfg.ServiceName, version, a.cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			a.logger.Error("failed to flush traces", slog.String("error", err.Error()))
		}
	}()

	store, err := openStore(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := server.NewServices(store, a.logger)
	if err != nil {
		return err
	}
	router := server.NewRouter(store, svc, server.Options{
		Logger:         a.logger,
		RateLimitRPS:   a.cfg.RateLimitRPS,
		RateLimitBurst: a.cfg.RateLimitBurst,
	})

	a.logger.Info("starting libradesk",
		slog.String("version", version),
		slog.String("store", a.cfg.StoreDriver),
	)
	return server.Run(ctx, a.cfg.HTTPAddr, router, a.cfg.ShutdownTimeout, a.logger)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (library.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using the in-memory store; data is lost on exit")
		return memstore.New()
	}

	flavor, err := sqlstore.ParseFlavor(cfg.StoreDriver)
	if err != nil {
		return nil, err
	}
	dsn := cfg.DatabaseURL
	if flavor == sqlstore.FlavorSQLite {
		dsn = sqlstore.SQLiteDSN(cfg.SQLitePath)
	}

	store, err := sqlstore.Open(ctx, sqlstore.Config{Flavor: flavor, DSN: dsn, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", flavor, err)
	}
	return store, nil
}
