// Package jobs holds the background tasks run by the curve daemon.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/meenmo/latent/internal/quotes"
	"github.com/meenmo/latent/store"
)

// SnapshotWriter persists calibrated curves.
type SnapshotWriter interface {
	Save(ctx context.Context, snap store.Snapshot) (int64, error)
}

// Recalibrator rebuilds every curve in a quotes file and stores a snapshot
// of each. A curve that fails to build does not stop the others.
type Recalibrator struct {
	quotesPath string
	store      SnapshotWriter
	log        zerolog.Logger
}

// NewRecalibrator creates the job.
func NewRecalibrator(quotesPath string, w SnapshotWriter, log zerolog.Logger) *Recalibrator {
	return &Recalibrator{
		quotesPath: quotesPath,
		store:      w,
		log:        log.With().Str("job", "recalibrate").Logger(),
	}
}

// Name identifies the job in logs.
func (r *Recalibrator) Name() string { return "recalibrate" }

// Run is a daemon.Task.
func (r *Recalibrator) Run(ctx context.Context) error {
	qs, err := quotes.LoadFile(r.quotesPath)
	if err != nil {
		return err
	}

	var errs []error
	saved := 0
	for _, q := range qs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if q.Name == "" {
			errs = append(errs, fmt.Errorf("curve without name in %s", r.quotesPath))
			continue
		}
		c, err := quotes.Build(q)
		if err != nil {
			r.log.Warn().Err(err).Str("curve", q.Name).Msg("Calibration failed")
			errs = append(errs, fmt.Errorf("%s: %w", q.Name, err))
			continue
		}
		id, err := r.store.Save(ctx, store.SnapshotOf(q.Name, c))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", q.Name, err))
			continue
		}
		saved++
		r.log.Debug().
			Str("curve", q.Name).
			Str("kind", string(c.Kind())).
			Int64("snapshot_id", id).
			Msg("Curve recalibrated")
	}

	r.log.Info().Int("saved", saved).Int("failed", len(errs)).Msg("Recalibration finished")
	return errors.Join(errs...)
}
