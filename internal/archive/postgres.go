package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) FindByBucket(ctx context.Context, bucketKey string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT requested_time, filename, encrypted_key, iv, created_at
		FROM archived_bundles
		WHERE requested_time = $1
	`

	var rec Record
	err := r.pool.QueryRow(ctx, query, bucketKey).Scan(
		&rec.RequestedTime, &rec.Filename, &rec.EncryptedKey, &rec.IV, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find archive record: %w", err)
	}

	return &rec, nil
}

func (r *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO archived_bundles (requested_time, filename, encrypted_key, iv)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, rec.RequestedTime, rec.Filename, rec.EncryptedKey, rec.IV)
	if err != nil {
		// Unique constraint violation (23505)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrExists
		}
		return fmt.Errorf("failed to create archive record: %w", err)
	}

	return nil
}
