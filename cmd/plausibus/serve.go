package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/megadur/plausibus/abda"
	"github.com/megadur/plausibus/config"
	"github.com/megadur/plausibus/engine"
	"github.com/megadur/plausibus/refdata"
	"github.com/megadur/plausibus/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the validation HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg.Log)

	articles, codes, pool, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	eng, err := engine.New(articles, codes, engine.WithLogger(log))
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes)}
	if pool != nil {
		opts = append(opts, server.WithDatabase(pool))
	}
	srv := server.New(eng, log, opts...)

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("listening")
		errc <- srv.Start(cfg.Server.Address)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-sigc:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildStores connects the article master and reference data stores.
// Without a database URL both run in-memory, which is only suitable for
// development.
func buildStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (abda.Provider, refdata.Service, *pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		log.Warn().Msg("no database configured, using in-memory reference data")
		return abda.NewInMemoryProvider(), refdata.NewSeededService(), nil, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns

	connCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connCtx, poolCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}

	articles := abda.NewCachedProviderWithConfig(
		abda.NewPostgresProvider(pool, log),
		cfg.Cache.ArticleSize,
		cfg.Cache.ArticleTTL,
	)
	codes := refdata.NewCachedServiceWithConfig(
		refdata.NewPostgresService(pool, log),
		cfg.Cache.ReferenceSize,
		cfg.Cache.ReferenceTTL,
	)
	return articles, codes, pool, nil
}
