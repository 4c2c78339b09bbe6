package jobs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/latent/repo"
	"github.com/meenmo/latent/store"
)

func TestRecalibrator_Run(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "jobs.db"), zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))

	job := NewRecalibrator(filepath.Join("testdata", "quotes.json"), s, zerolog.Nop())
	assert.Equal(t, "recalibrate", job.Name())

	err = job.Run(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "BROKEN")

	snap, err := s.Latest(ctx, "UST-GC")
	require.NoError(t, err)
	assert.Equal(t, repo.KindFlatForward, snap.Kind)
	assert.Len(t, snap.Nodes, 3)

	_, err = s.Latest(ctx, "BROKEN")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecalibrator_MissingFile(t *testing.T) {
	t.Parallel()

	job := NewRecalibrator(filepath.Join(t.TempDir(), "none.json"), nil, zerolog.Nop())
	assert.Error(t, job.Run(context.Background()))
}

func TestRecalibrator_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := NewRecalibrator(filepath.Join("testdata", "quotes.json"), nil, zerolog.Nop())
	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
}
