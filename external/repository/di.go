package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/pwbot/internal/config"
	"github.com/foxseedlab/pwbot/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
)

const (
	storeInitTimeout   = 15 * time.Second
	maxPoolConns       = 8
	poolHealthInterval = time.Minute
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (repository.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), storeInitTimeout)
		defer cancel()

		pool, err := openTicketStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("ticket store ready", "max_conns", maxPoolConns)
		return NewPostgresRepository(pool), nil
	})
}

// openTicketStore connects, verifies the connection and brings the schema up to date.
func openTicketStore(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = maxPoolConns
	poolCfg.HealthCheckPeriod = poolHealthInterval

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open ticket store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ticket store unreachable: %w", err)
	}
	if err := RunMigration(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ticket store migration failed: %w", err)
	}
	return pool, nil
}
