package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/config"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/logger"
)

func ConnectPostgres(cfg *config.Config) (*pgxpool.Pool, error) {
	return Connect(context.Background(), cfg.DSN())
}

// Connect ouvre un pool et vérifie la connexion
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Success("Connected to PostgreSQL successfully")

	return pool, nil
}
