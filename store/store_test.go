package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/latent/repo"
	"github.com/meenmo/latent/utils"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "curves.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testCurve(t *testing.T, shift float64) repo.RepoCurve {
	t.Helper()
	c, err := repo.NewFlatForwardRepoCurve(d(2025, 1, 2),
		[]time.Time{d(2025, 2, 3), d(2025, 4, 2), d(2026, 1, 2)},
		[]float64{0.031 + shift, 0.032 + shift, 0.0335 + shift},
		utils.Act360)
	require.NoError(t, err)
	return c
}

func TestRebind(t *testing.T) {
	t.Parallel()

	q := "SELECT a FROM t WHERE b = ? AND c = ?"
	assert.Equal(t, q, rebind(DriverSQLite, q))
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", rebind(DriverPostgres, q))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := Open("oracle", "x", zerolog.Nop())
	assert.Error(t, err)
}

func TestStore_SaveLatestList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Migrate(ctx), "migrate is idempotent")

	_, err := s.Latest(ctx, "UST-GC")
	assert.ErrorIs(t, err, ErrNotFound)

	created := time.Date(2025, 1, 2, 18, 0, 0, 0, time.UTC)
	first := SnapshotOf("UST-GC", testCurve(t, 0))
	first.CreatedAt = created
	id1, err := s.Save(ctx, first)
	require.NoError(t, err)

	second := SnapshotOf("UST-GC", testCurve(t, 0.001))
	id2, err := s.Save(ctx, second)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	_, err = s.Save(ctx, SnapshotOf("BUND-GC", testCurve(t, -0.01)))
	require.NoError(t, err)

	latest, err := s.Latest(ctx, "UST-GC")
	require.NoError(t, err)
	assert.Equal(t, id2, latest.ID)
	assert.Equal(t, repo.KindFlatForward, latest.Kind)
	assert.True(t, latest.Settlement.Equal(d(2025, 1, 2)))
	assert.Equal(t, utils.Act360, latest.DayCount)
	require.Len(t, latest.Nodes, 3)
	assert.True(t, latest.Nodes[2].Date.Equal(d(2026, 1, 2)))
	assert.InDelta(t, 0.0345, latest.Nodes[2].Rate, 1e-15)

	c, err := latest.Curve()
	require.NoError(t, err)
	probe := d(2025, 8, 1)
	assert.InDelta(t, testCurve(t, 0.001).DF(probe), c.DF(probe), 1e-14)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "BUND-GC", list[0].Name)
	assert.Equal(t, "UST-GC", list[1].Name)
	assert.Equal(t, id2, list[1].ID)

	hist, err := s.History(ctx, "UST-GC", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, id1, hist[1].ID)
	assert.True(t, hist[1].CreatedAt.Equal(created))
}

func TestStore_SaveValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Save(ctx, Snapshot{Kind: repo.KindFlatForward, Nodes: []repo.Node{{Rate: 0.01}}})
	assert.Error(t, err)
	_, err = s.Save(ctx, Snapshot{Name: "EMPTY"})
	assert.Error(t, err)
}
