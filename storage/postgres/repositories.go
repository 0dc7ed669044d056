package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/storage"
)

const insertBatchSize = 500

// AppIDRepository implements storage.AppIDRepository for PostgreSQL.
type AppIDRepository struct {
	db *database
}

var _ storage.AppIDRepository = (*AppIDRepository)(nil)

// Close is a no-op; the store owns the pool.
func (r *AppIDRepository) Close() error { return nil }

// AddAppIDs inserts entries that are not already present.
func (r *AppIDRepository) AddAppIDs(ctx context.Context, entries ...core.CatalogEntry) (int, error) {
	total := 0
	for i := 0; i < len(entries); i += insertBatchSize {
		j := min(i+insertBatchSize, len(entries))
		b := &pgx.Batch{}
		for _, e := range entries[i:j] {
			b.Queue(`INSERT INTO `+appIDTable+` (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
				int64(e.AppID), e.Name)
		}
		br := r.db.pool.SendBatch(ctx, b)
		for k := i; k < j; k++ {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return total, err
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, err
		}
	}
	return total, nil
}

// ListAppIDs returns every known identifier in ascending order.
func (r *AppIDRepository) ListAppIDs(ctx context.Context) ([]core.AppID, error) {
	return queryIDs(ctx, r.db, `SELECT id FROM `+appIDTable+` ORDER BY id`)
}

// CountAppIDs returns the number of known identifiers.
func (r *AppIDRepository) CountAppIDs(ctx context.Context) (int, error) {
	var n int
	err := r.db.pool.QueryRow(ctx, `SELECT count(*) FROM `+appIDTable).Scan(&n)
	return n, err
}

// GameRepository implements storage.GameRepository for PostgreSQL.
// Filterable fields are columns; the full record is kept as JSONB.
type GameRepository struct {
	db *database
}

var _ storage.GameRepository = (*GameRepository)(nil)

// Close is a no-op; the store owns the pool.
func (r *GameRepository) Close() error { return nil }

// ReplaceGames truncates the gold table and bulk-loads games in one transaction.
func (r *GameRepository) ReplaceGames(ctx context.Context, games []*core.Game) error {
	rows := make([][]any, 0, len(games))
	for _, g := range games {
		if err := core.ValidateGame(g); err != nil {
			return err
		}
		data, err := storage.MarshalGame(g)
		if err != nil {
			return err
		}
		rows = append(rows, []any{int64(g.AppID), g.Name, g.Price, nonNil(g.Categories), nonNil(g.Genres), data})
	}

	return r.db.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE `+gameTable); err != nil {
			return err
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{gameTable},
			[]string{"id", "name", "price", "categories", "genres", "data"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("postgres: load gold: %w", err)
		}
		return nil
	})
}

// GetGame retrieves one gold record.
func (r *GameRepository) GetGame(ctx context.Context, id core.AppID) (*core.Game, error) {
	var data []byte
	err := r.db.pool.QueryRow(ctx, `SELECT data FROM `+gameTable+` WHERE id = $1`, int64(id)).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalGame(data)
}

// GetGames retrieves gold records by identifier, in request order.
func (r *GameRepository) GetGames(ctx context.Context, ids ...core.AppID) ([]*core.Game, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT d.data FROM unnest($1::bigint[]) WITH ORDINALITY AS q(id, ord)
		 JOIN `+gameTable+` d ON d.id = q.id ORDER BY q.ord`, toInt64s(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []*core.Game
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		g, err := storage.UnmarshalGame(data)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// ListGameIDs returns every gold identifier in ascending order.
func (r *GameRepository) ListGameIDs(ctx context.Context) ([]core.AppID, error) {
	return queryIDs(ctx, r.db, `SELECT id FROM `+gameTable+` ORDER BY id`)
}

// Categories returns the distinct category labels, sorted.
func (r *GameRepository) Categories(ctx context.Context) ([]string, error) {
	return r.labels(ctx, "categories")
}

// Genres returns the distinct genre labels, sorted.
func (r *GameRepository) Genres(ctx context.Context) ([]string, error) {
	return r.labels(ctx, "genres")
}

func (r *GameRepository) labels(ctx context.Context, column string) ([]string, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT DISTINCT l FROM `+gameTable+`, unnest(`+column+`) AS l ORDER BY l`)
	if err != nil {
		return nil, err
	}
	labels, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = []string{}
	}
	return labels, nil
}

// EmbeddingRepository implements storage.EmbeddingRepository for PostgreSQL
// with pgvector. Nearest-neighbor ranking uses the HNSW index on the
// embedding column, or on its halfvec cast for wide embeddings.
type EmbeddingRepository struct {
	db     *database
	layout vectorLayout
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// Close is a no-op; the store owns the pool.
func (r *EmbeddingRepository) Close() error { return nil }

// AddEmbeddings inserts records; identifiers already indexed are skipped.
func (r *EmbeddingRepository) AddEmbeddings(ctx context.Context, records ...*core.EmbeddingRecord) error {
	b := &pgx.Batch{}
	for _, rec := range records {
		if len(rec.Vector) != r.layout.dimensions {
			return fmt.Errorf("%w: id %d has %d, store expects %d", storage.ErrDimensionMismatch, rec.AppID, len(rec.Vector), r.layout.dimensions)
		}
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		b.Queue(`INSERT INTO `+embeddingTable+` (id, name, text, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
			int64(rec.AppID), rec.Name, rec.Text, pgvector.NewVector(rec.Vector), createdAt)
	}
	if b.Len() == 0 {
		return nil
	}
	return r.db.pool.SendBatch(ctx, b).Close()
}

// MissingEmbeddings returns the ids with no stored vector, in input order.
func (r *EmbeddingRepository) MissingEmbeddings(ctx context.Context, ids []core.AppID) ([]core.AppID, error) {
	present, err := queryIDs(ctx, r.db, `SELECT id FROM `+embeddingTable+` WHERE id = ANY($1)`, toInt64s(ids))
	if err != nil {
		return nil, err
	}
	have := make(map[core.AppID]struct{}, len(present))
	for _, id := range present {
		have[id] = struct{}{}
	}
	var missing []core.AppID
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// CountEmbeddings returns the number of stored vectors.
func (r *EmbeddingRepository) CountEmbeddings(ctx context.Context) (int, error) {
	var n int
	err := r.db.pool.QueryRow(ctx, `SELECT count(*) FROM `+embeddingTable).Scan(&n)
	return n, err
}

// SearchNearest returns the k nearest gold records passing filter.
func (r *EmbeddingRepository) SearchNearest(ctx context.Context, vector []float32, filter core.SearchFilter, k int) ([]*core.SearchResult, error) {
	if len(vector) != r.layout.dimensions {
		return nil, fmt.Errorf("%w: query has %d, store expects %d", storage.ErrDimensionMismatch, len(vector), r.layout.dimensions)
	}
	filtered := filter.PriceMin > 0 || filter.PriceMax > 0 || len(filter.Categories) > 0 || len(filter.Genres) > 0

	var results []*core.SearchResult
	err := r.db.inTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		for _, stmt := range r.layout.searchSettings(k, filtered) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("postgres: %s: %w", stmt, err)
			}
		}

		rows, err := tx.Query(ctx, r.layout.searchSQL(),
			r.layout.queryArg(vector), filter.PriceMin, filter.PriceMax,
			nonNil(filter.Categories), nonNil(filter.Genres), k)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				data     []byte
				distance float64
			)
			if err := rows.Scan(&data, &distance); err != nil {
				return err
			}
			g, err := storage.UnmarshalGame(data)
			if err != nil {
				return err
			}
			results = append(results, &core.SearchResult{Game: g, Distance: float32(distance)})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CheckpointRepository implements storage.CheckpointRepository for PostgreSQL.
type CheckpointRepository struct {
	db *database
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// SaveCheckpoint upserts the checkpoint of a pipeline stage.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	checkpoint.UpdatedAt = time.Now().UTC()
	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO `+checkpointTable+` (stage, processed, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (stage) DO UPDATE SET processed = EXCLUDED.processed, updated_at = EXCLUDED.updated_at`,
		checkpoint.Stage, checkpoint.Processed, checkpoint.UpdatedAt)
	return err
}

// LoadCheckpoint returns the checkpoint of a stage, or nil if none exists.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, stage string) (*core.Checkpoint, error) {
	cp := &core.Checkpoint{Stage: stage}
	err := r.db.pool.QueryRow(ctx,
		`SELECT processed, updated_at FROM `+checkpointTable+` WHERE stage = $1`, stage).
		Scan(&cp.Processed, &cp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cp, nil
}

func queryIDs(ctx context.Context, db *database, sql string, args ...any) ([]core.AppID, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	raw, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	ids := make([]core.AppID, len(raw))
	for i, id := range raw {
		ids[i] = core.AppID(id)
	}
	return ids, nil
}

func toInt64s(ids []core.AppID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
