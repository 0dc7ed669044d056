package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/poiesic/gamescout/storage"
)

const (
	appIDTable      = "app_id"
	gameTable       = "detail"
	embeddingTable  = "details_embedding"
	checkpointTable = "stage_checkpoint"
	defaultMaxConns = 4
)

// Config holds the connection settings.
type Config struct {
	DSN        string
	Dimensions int
	MaxConns   int32
	Logger     *slog.Logger
}

// Open connects to PostgreSQL, provisions the schema and wires every
// repository to one pool.
func Open(ctx context.Context, cfg Config) (*storage.Store, error) {
	if _, err := newVectorLayout(cfg.Dimensions, ""); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	if poolCfg.MaxConns <= 0 {
		poolCfg.MaxConns = defaultMaxConns
	}

	// The extension must exist before the vector type can be registered.
	extVersion, err := ensureExtension(ctx, poolCfg.ConnConfig)
	if err != nil {
		return nil, err
	}
	layout, err := newVectorLayout(cfg.Dimensions, extVersion)
	if err != nil {
		return nil, err
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := migrate(ctx, pool, layout); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres",
		"dimensions", cfg.Dimensions,
		"pgvector", extVersion,
		"halfvec_index", layout.half(),
		"iterative_scan", layout.iterativeScan)
	db := &database{pool: pool, logger: logger.With("component", "postgres")}
	return storage.NewStore(
		&AppIDRepository{db: db},
		&GameRepository{db: db},
		&EmbeddingRepository{db: db, layout: layout},
		&CheckpointRepository{db: db},
		func() error {
			pool.Close()
			return nil
		},
	), nil
}

// ensureExtension creates the vector extension if needed and returns its
// installed version.
func ensureExtension(ctx context.Context, connCfg *pgx.ConnConfig) (string, error) {
	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return "", fmt.Errorf("postgres: connect: %w", err)
	}
	defer conn.Close(ctx)
	if _, err := conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return "", fmt.Errorf("postgres: create extension: %w", err)
	}
	var version string
	err = conn.QueryRow(ctx, `SELECT extversion FROM pg_extension WHERE extname = 'vector'`).Scan(&version)
	if err != nil {
		return "", fmt.Errorf("postgres: extension version: %w", err)
	}
	return version, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool, layout vectorLayout) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + appIDTable + ` (
			id   BIGINT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS ` + gameTable + ` (
			id         BIGINT PRIMARY KEY,
			name       TEXT NOT NULL,
			price      DOUBLE PRECISION,
			categories TEXT[] NOT NULL DEFAULT '{}',
			genres     TEXT[] NOT NULL DEFAULT '{}',
			data       JSONB NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         BIGINT PRIMARY KEY,
			name       TEXT NOT NULL,
			text       TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, embeddingTable, layout.dimensions),
		layout.indexStatement(),
		`CREATE TABLE IF NOT EXISTS ` + checkpointTable + ` (
			stage      TEXT PRIMARY KEY,
			processed  INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

// database is the pool shared by the repositories of one store.
type database struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// inTx runs fn in one transaction, committing when fn returns nil.
func (d *database) inTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, d.pool, opts, fn)
}
