package lake

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/poiesic/gamescout/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDetail(id core.AppID, name string) core.StagedDetail {
	return core.NewStagedDetail(id, &core.AppDetail{
		Type:             "game",
		Name:             name,
		SteamAppID:       id,
		ShortDescription: "<b>short</b>",
		PCRequirements:   core.FlexRequirements{Minimum: "<ul><li>OS: Windows 10</li></ul>"},
		PriceOverview:    &core.PriceOverview{Currency: "USD", Final: 999},
		Categories:       []core.Label{{Description: "Single-player"}},
		Genres:           []core.Label{{Description: "Action"}},
		Developers:       []string{"Valve"},
	})
}

func newTestBronze(t *testing.T) *Bronze {
	t.Helper()
	b, err := NewBronze(filepath.Join(t.TempDir(), "bronze"))
	require.NoError(t, err)
	return b
}

func TestDetailRow_RoundTrip(t *testing.T) {
	in := testDetail(10, "Counter-Strike")
	row, err := NewDetailRow(in)
	require.NoError(t, err)

	out, err := row.Staged()
	require.NoError(t, err)
	assert.Equal(t, core.StatusFound, out.Status)
	require.NotNil(t, out.Detail)
	assert.Equal(t, "Counter-Strike", out.Detail.Name)
	assert.Equal(t, "<ul><li>OS: Windows 10</li></ul>", out.Detail.PCRequirements.Minimum)
	require.NotNil(t, out.Detail.PriceOverview)
	assert.Equal(t, int64(999), out.Detail.PriceOverview.Final)
	assert.Equal(t, []string{"Valve"}, out.Detail.Developers)
}

func TestDetailRow_Tombstone(t *testing.T) {
	row, err := NewDetailRow(core.NewStagedDetail(2, nil))
	require.NoError(t, err)
	assert.Equal(t, string(core.StatusNotFound), row.Status)

	out, err := row.Staged()
	require.NoError(t, err)
	assert.Equal(t, core.StatusNotFound, out.Status)
	assert.Nil(t, out.Detail)
}

func TestBronze_WriteBatchAndStagedIDs(t *testing.T) {
	ctx := context.Background()
	b := newTestBronze(t)

	key, err := b.WriteBatch(ctx, []core.StagedDetail{testDetail(1, "One"), core.NewStagedDetail(2, nil)})
	require.NoError(t, err)
	assert.NotEmpty(t, key)

	_, err = b.WriteBatch(ctx, []core.StagedDetail{core.NewStagedDetail(3, core.NewPlaceholder(3))})
	require.NoError(t, err)

	paths, err := b.Batches()
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	staged, err := b.StagedIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, staged, 3)
	for _, id := range []core.AppID{1, 2, 3} {
		assert.Contains(t, staged, id)
	}
}

func TestBronze_WriteBatchEmpty(t *testing.T) {
	b := newTestBronze(t)
	_, err := b.WriteBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestBronze_WriteBatchPersistFailure(t *testing.T) {
	b := newTestBronze(t)
	require.NoError(t, os.RemoveAll(b.Dir()))
	// A regular file where the directory should be makes every write fail.
	require.NoError(t, os.WriteFile(b.Dir(), []byte("x"), 0644))

	_, err := b.WriteBatch(context.Background(), []core.StagedDetail{testDetail(1, "One")})
	assert.ErrorIs(t, err, ErrPersistFailed)
}

func TestBronze_HealRemovesCorruptFiles(t *testing.T) {
	ctx := context.Background()
	b := newTestBronze(t)

	_, err := b.WriteBatch(ctx, []core.StagedDetail{testDetail(1, "One")})
	require.NoError(t, err)

	zero := filepath.Join(b.Dir(), "batch-zero.parquet")
	require.NoError(t, os.WriteFile(zero, nil, 0644))
	garbage := filepath.Join(b.Dir(), "batch-garbage.parquet")
	require.NoError(t, os.WriteFile(garbage, []byte("not a parquet file"), 0644))
	tmp := filepath.Join(b.Dir(), ".batch-x.parquet-123.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0644))

	removed, err := b.Heal(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{zero, garbage, tmp}, removed)

	assert.NoFileExists(t, zero)
	assert.NoFileExists(t, garbage)
	assert.NoFileExists(t, tmp)

	paths, err := b.Batches()
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestBronze_StagedIDsExcludesZeroByteBatch(t *testing.T) {
	ctx := context.Background()
	b := newTestBronze(t)

	_, err := b.WriteBatch(ctx, []core.StagedDetail{testDetail(1, "One")})
	require.NoError(t, err)
	zero := filepath.Join(b.Dir(), "batch-crashed.parquet")
	require.NoError(t, os.WriteFile(zero, nil, 0644))

	staged, err := b.StagedIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, staged, 1)
	assert.NoFileExists(t, zero)
}

// corruptFirstPage overwrites the bytes after the leading magic, where the
// first page header lives, leaving the footer intact.
func corruptFirstPage(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 40)
	for i := 4; i < 40; i++ {
		data[i] = 0xFF
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestBronze_StagedIDsRemovesBatchWithCorruptPages(t *testing.T) {
	ctx := context.Background()
	b := newTestBronze(t)

	_, err := b.WriteBatch(ctx, []core.StagedDetail{testDetail(1, "One")})
	require.NoError(t, err)
	key, err := b.WriteBatch(ctx, []core.StagedDetail{testDetail(2, "Two")})
	require.NoError(t, err)
	broken := filepath.Join(b.Dir(), batchPrefix+key+batchExt)
	corruptFirstPage(t, broken)

	// The footer still parses; only the rows are unreadable.
	_, err = columnNames(broken)
	require.NoError(t, err)

	staged, err := b.StagedIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, staged, 1)
	assert.Contains(t, staged, core.AppID(1))
	assert.NotContains(t, staged, core.AppID(2))
	assert.NoFileExists(t, broken)
}

func TestCanonicalizer_RemovesBatchWithCorruptPages(t *testing.T) {
	ctx := context.Background()
	b := newTestBronze(t)

	_, err := b.WriteBatch(ctx, []core.StagedDetail{testDetail(1, "One")})
	require.NoError(t, err)
	key, err := b.WriteBatch(ctx, []core.StagedDetail{testDetail(2, "Two")})
	require.NoError(t, err)
	broken := filepath.Join(b.Dir(), batchPrefix+key+batchExt)
	corruptFirstPage(t, broken)

	report, err := NewCanonicalizer(b, filepath.Join(t.TempDir(), "silver.parquet"), nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Batches)
	assert.Equal(t, 1, report.Unique)
	assert.Zero(t, report.Skipped)
	assert.NoFileExists(t, broken)
}

func TestCanonicalizer_Dedup(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	layout := Layout{Root: root}
	b, err := NewBronze(layout.BronzeDir())
	require.NoError(t, err)

	_, err = b.WriteBatch(ctx, []core.StagedDetail{testDetail(42, "Answer"), testDetail(7, "Seven")})
	require.NoError(t, err)
	_, err = b.WriteBatch(ctx, []core.StagedDetail{testDetail(42, "Answer")})
	require.NoError(t, err)

	report, err := NewCanonicalizer(b, layout.SilverPath(), nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 2, report.Unique)
	assert.Equal(t, 1, report.Duplicates)

	details, err := ReadSilver(layout.SilverPath())
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, core.AppID(7), details[0].AppID)
	assert.Equal(t, core.AppID(42), details[1].AppID)

	count := 0
	for _, d := range details {
		if d.AppID == 42 {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCanonicalizer_ReplacesPriorSilver(t *testing.T) {
	ctx := context.Background()
	layout := Layout{Root: t.TempDir()}
	b, err := NewBronze(layout.BronzeDir())
	require.NoError(t, err)
	c := NewCanonicalizer(b, layout.SilverPath(), nil)

	_, err = b.WriteBatch(ctx, []core.StagedDetail{testDetail(1, "One")})
	require.NoError(t, err)
	_, err = c.Run(ctx)
	require.NoError(t, err)

	_, err = b.WriteBatch(ctx, []core.StagedDetail{testDetail(2, "Two")})
	require.NoError(t, err)
	_, err = c.Run(ctx)
	require.NoError(t, err)

	details, err := ReadSilver(layout.SilverPath())
	require.NoError(t, err)
	assert.Len(t, details, 2)
}

// legacyRow is a batch schema from before status and nested columns existed.
type legacyRow struct {
	AppID int64  `parquet:"appid"`
	Type  string `parquet:"type"`
	Name  string `parquet:"name"`
}

func TestCanonicalizer_SchemaDrift(t *testing.T) {
	ctx := context.Background()
	layout := Layout{Root: t.TempDir()}
	b, err := NewBronze(layout.BronzeDir())
	require.NoError(t, err)

	legacy := filepath.Join(b.Dir(), "batch-0000-legacy.parquet")
	require.NoError(t, parquet.WriteFile(legacy, []legacyRow{{AppID: 5, Type: "game", Name: "Old"}}))
	_, err = b.WriteBatch(ctx, []core.StagedDetail{testDetail(6, "New")})
	require.NoError(t, err)

	report, err := NewCanonicalizer(b, layout.SilverPath(), nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Unique)
	assert.Equal(t, 1, report.MissingColumns["status"])

	details, err := ReadSilver(layout.SilverPath())
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, core.StatusFound, details[0].Status)
	assert.Equal(t, "Old", details[0].Detail.Name)
	assert.Nil(t, details[0].Detail.PriceOverview)
}

func TestGold_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gold", "details.parquet")
	games := []*core.Game{
		{
			AppID: 1,
			Name:  "One",
			Price: 9.99,
			Requirements: []core.Requirement{
				{Platform: core.PlatformWindows, Level: core.LevelMinimum, Text: "OS: Windows 10", Fields: map[string]string{"OS": "Windows 10"}},
			},
			Categories: []string{"Single-player"},
			Genres:     []string{"Action"},
		},
	}
	require.NoError(t, WriteGold(path, games))

	got, err := ReadGold(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.AppID(1), got[0].AppID)
	assert.InDelta(t, 9.99, got[0].Price, 1e-9)
	assert.Equal(t, []string{"Action"}, got[0].Genres)
	assert.Equal(t, "Windows 10", got[0].Requirement(core.PlatformWindows, core.LevelMinimum).Fields["OS"])
}
