package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	return openTestStoreWithDimensions(t, 2)
}

// openTestStoreWithDimensions connects to the database named by
// GAMESCOUT_TEST_PG_DSN. The embedding table is recreated at the given
// width and the other tables are emptied.
func openTestStoreWithDimensions(t *testing.T, dimensions int) *storage.Store {
	t.Helper()
	dsn := os.Getenv("GAMESCOUT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("GAMESCOUT_TEST_PG_DSN not set")
	}
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, `DROP TABLE IF EXISTS `+embeddingTable)
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	store, err := Open(ctx, Config{DSN: dsn, Dimensions: dimensions})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	repo := store.AppIDs.(*AppIDRepository)
	_, err = repo.db.pool.Exec(ctx,
		`TRUNCATE `+appIDTable+`, `+gameTable+`, `+embeddingTable+`, `+checkpointTable)
	require.NoError(t, err)
	return store
}

func TestOpen_RejectsZeroDimensions(t *testing.T) {
	_, err := Open(context.Background(), Config{DSN: "postgres://localhost/none"})
	assert.Error(t, err)
}

func TestOpen_RejectsUnindexableDimensions(t *testing.T) {
	_, err := Open(context.Background(), Config{DSN: "postgres://localhost/none", Dimensions: 4001})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the indexable maximum")
}

func TestVectorLayout_Index(t *testing.T) {
	tests := []struct {
		name       string
		dimensions int
		wantIndex  string
		wantDist   string
		halfArg    bool
	}{
		{
			name:       "small model",
			dimensions: 1536,
			wantIndex:  "USING hnsw (embedding vector_l2_ops)",
			wantDist:   "e.embedding <-> $1",
		},
		{
			name:       "widest vector index",
			dimensions: 2000,
			wantIndex:  "USING hnsw (embedding vector_l2_ops)",
			wantDist:   "e.embedding <-> $1",
		},
		{
			name:       "large model",
			dimensions: 3072,
			wantIndex:  "USING hnsw ((embedding::halfvec(3072)) halfvec_l2_ops)",
			wantDist:   "e.embedding::halfvec(3072) <-> $1::halfvec(3072)",
			halfArg:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := newVectorLayout(tt.dimensions, "0.7.4")
			require.NoError(t, err)
			assert.Contains(t, layout.indexStatement(), tt.wantIndex)
			assert.Equal(t, tt.wantDist, layout.distanceExpr("$1"))
			assert.Contains(t, layout.searchSQL(), tt.wantDist)

			arg := layout.queryArg(make([]float32, tt.dimensions))
			if tt.halfArg {
				assert.IsType(t, pgvector.HalfVector{}, arg)
			} else {
				assert.IsType(t, pgvector.Vector{}, arg)
			}
		})
	}

	_, err := newVectorLayout(4001, "0.8.0")
	assert.Error(t, err)
	_, err = newVectorLayout(0, "0.8.0")
	assert.Error(t, err)
}

func TestVectorLayout_SearchSettings(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		k        int
		filtered bool
		want     []string
	}{
		{
			name:    "unfiltered keeps default candidates",
			version: "0.7.4",
			k:       20,
			want:    []string{"SET LOCAL hnsw.ef_search = 40"},
		},
		{
			name:    "large k widens candidates",
			version: "0.7.4",
			k:       100,
			want:    []string{"SET LOCAL hnsw.ef_search = 100"},
		},
		{
			name:     "filtered without iterative scan uses the maximum",
			version:  "0.7.4",
			k:        20,
			filtered: true,
			want:     []string{"SET LOCAL hnsw.ef_search = 1000"},
		},
		{
			name:     "filtered with iterative scan",
			version:  "0.8.0",
			k:        20,
			filtered: true,
			want: []string{
				"SET LOCAL hnsw.iterative_scan = relaxed_order",
				"SET LOCAL hnsw.ef_search = 40",
			},
		},
		{
			name:    "k above the cap",
			version: "0.8.1",
			k:       5000,
			want: []string{
				"SET LOCAL hnsw.iterative_scan = relaxed_order",
				"SET LOCAL hnsw.ef_search = 1000",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := newVectorLayout(2, tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.want, layout.searchSettings(tt.k, tt.filtered))
		})
	}
}

func TestSupportsIterativeScan(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"0.8.0", true},
		{"0.8.1", true},
		{"0.10.0", true},
		{"1.0.0", true},
		{"0.7.4", false},
		{"0.5", false},
		{"", false},
		{"dev", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, supportsIterativeScan(tt.version))
		})
	}
}

func TestPostgres_AppIDs(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	added, err := store.AppIDs.AddAppIDs(ctx,
		core.CatalogEntry{AppID: 20, Name: "b"},
		core.CatalogEntry{AppID: 10, Name: "a"},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = store.AppIDs.AddAppIDs(ctx, core.CatalogEntry{AppID: 10, Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	ids, err := store.AppIDs.ListAppIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.AppID{10, 20}, ids)
}

func TestPostgres_SearchNearest(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Games.ReplaceGames(ctx, []*core.Game{
		{AppID: 1, Name: "Cheap Shooter", Price: 4.99, Categories: []string{"Single-player"}, Genres: []string{"Action"}},
		{AppID: 2, Name: "Pricey Puzzle", Price: 29.99, Categories: []string{"Multi-player"}, Genres: []string{"Puzzle"}},
	}))
	require.NoError(t, store.Embeddings.AddEmbeddings(ctx,
		&core.EmbeddingRecord{AppID: 1, Name: "Cheap Shooter", Vector: []float32{1, 0}},
		&core.EmbeddingRecord{AppID: 2, Name: "Pricey Puzzle", Vector: []float32{0, 1}},
	))

	results, err := store.Embeddings.SearchNearest(ctx, []float32{1, 0}, core.SearchFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, core.AppID(1), results[0].Game.AppID)

	results, err = store.Embeddings.SearchNearest(ctx, []float32{1, 0}, core.SearchFilter{PriceMin: 10}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.AppID(2), results[0].Game.AppID)

	genres, err := store.Games.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Action", "Puzzle"}, genres)

	missing, err := store.Embeddings.MissingEmbeddings(ctx, []core.AppID{1, 3})
	require.NoError(t, err)
	assert.Equal(t, []core.AppID{3}, missing)
}

func TestPostgres_ReplaceGamesRollsBackOnFailedLoad(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Games.ReplaceGames(ctx, []*core.Game{{AppID: 1, Name: "Kept"}}))

	// The duplicate key fails the copy after the truncate has run.
	err := store.Games.ReplaceGames(ctx, []*core.Game{{AppID: 2, Name: "A"}, {AppID: 2, Name: "B"}})
	require.Error(t, err)

	ids, err := store.Games.ListGameIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.AppID{1}, ids)
}

func TestPostgres_Checkpoint(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	cp, err := store.Checkpoints.LoadCheckpoint(ctx, "embed")
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, store.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Stage: "embed", Processed: 3}))
	require.NoError(t, store.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Stage: "embed", Processed: 4}))
	cp, err = store.Checkpoints.LoadCheckpoint(ctx, "embed")
	require.NoError(t, err)
	assert.Equal(t, 4, cp.Processed)
}

func TestPostgres_WideEmbeddings(t *testing.T) {
	ctx := context.Background()
	store := openTestStoreWithDimensions(t, 3072)

	unit := func(i int) []float32 {
		v := make([]float32, 3072)
		v[i] = 1
		return v
	}

	require.NoError(t, store.Games.ReplaceGames(ctx, []*core.Game{
		{AppID: 1, Name: "First"},
		{AppID: 2, Name: "Second"},
	}))
	require.NoError(t, store.Embeddings.AddEmbeddings(ctx,
		&core.EmbeddingRecord{AppID: 1, Vector: unit(0)},
		&core.EmbeddingRecord{AppID: 2, Vector: unit(3071)},
	))

	results, err := store.Embeddings.SearchNearest(ctx, unit(3071), core.SearchFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, core.AppID(2), results[0].Game.AppID)
	assert.InDelta(t, 0, results[0].Distance, 1e-3)
}

func TestPostgres_SelectiveFilterFindsRareMatch(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	var games []*core.Game
	var records []*core.EmbeddingRecord
	for i := 1; i <= 300; i++ {
		games = append(games, &core.Game{AppID: core.AppID(i), Name: "Common", Genres: []string{"Action"}})
		records = append(records, &core.EmbeddingRecord{AppID: core.AppID(i), Vector: []float32{1, float32(i) / 1000}})
	}
	games = append(games, &core.Game{AppID: 999, Name: "Rare", Genres: []string{"Sports"}})
	records = append(records, &core.EmbeddingRecord{AppID: 999, Vector: []float32{0, 1}})
	require.NoError(t, store.Games.ReplaceGames(ctx, games))
	require.NoError(t, store.Embeddings.AddEmbeddings(ctx, records...))

	results, err := store.Embeddings.SearchNearest(ctx, []float32{1, 0}, core.SearchFilter{Genres: []string{"Sports"}}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.AppID(999), results[0].Game.AppID)
}
