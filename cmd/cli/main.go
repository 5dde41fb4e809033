// Command stockledger is the operational CLI: it records movements and
// runs queries directly against the store, bypassing any HTTP surface.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	postgresRepo "github.com/warely/stockledger/internal/adapter/repository/postgres"
	redisRepo "github.com/warely/stockledger/internal/adapter/repository/redis"
	"github.com/warely/stockledger/internal/infrastructure/config"
	"github.com/warely/stockledger/internal/infrastructure/logger"
	"github.com/warely/stockledger/internal/infrastructure/postgres"
	"github.com/warely/stockledger/internal/infrastructure/redis"
	"github.com/warely/stockledger/internal/usecase"
)

// app wires the use cases the subcommands run against.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	pool      *pgxpool.Pool
	movements *usecase.MovementUseCase
	queries   *usecase.QueryUseCase
	recon     *usecase.ReconciliationUseCase
	retrier   *postgresRepo.Retrier
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	txManager := postgresRepo.NewTxManager(pool)
	movementRepo := postgresRepo.NewMovementRepository(pool)
	balanceRepo := postgresRepo.NewBalanceRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()

	var catalog usecase.CatalogRepository = postgresRepo.NewCatalogRepository(pool)

	// Redis is optional here: a missing cache only costs catalog lookups.
	if client, err := redis.NewClient(ctx, cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, catalog lookups uncached")
	} else {
		catalog = redisRepo.NewCachedCatalog(catalog, redisRepo.NewCache(client), cfg.ReferenceCacheTTL, log, nil)
	}

	return &app{
		cfg:       cfg,
		log:       log,
		pool:      pool,
		movements: usecase.NewMovementUseCase(txManager, movementRepo, balanceRepo, catalog, idGen, nil),
		queries:   usecase.NewQueryUseCase(movementRepo, balanceRepo, catalog),
		recon:     usecase.NewReconciliationUseCase(txManager, movementRepo, balanceRepo, nil),
		retrier:   postgresRepo.NewRetrier(log),
	}, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// printJSON renders command output for both humans and scripts.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Apply or roll back database migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

			switch args[0] {
			case "up":
				return postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log)
			case "down":
				return postgres.RunMigrationsDown(cfg.DatabaseURL, cfg.MigrationsPath, log)
			default:
				return fmt.Errorf("unknown direction %q, want up or down", args[0])
			}
		},
	}

	return cmd
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "stockledger",
		Short:         "Warehouse stock ledger",
		Long:          "Records entries, exits, transfers and adjustments against the stock ledger and answers queries over it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newEntryCmd(),
		newExitCmd(),
		newTransferCmd(),
		newAdjustCmd(),
		newGetCmd(),
		newListCmd(),
		newKardexCmd(),
		newBalanceCmd(),
		newSummaryCmd(),
		newSnapshotCmd(),
		newReconcileCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
