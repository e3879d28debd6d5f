package progress

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ReconcileWorker periodically rebuilds lifetime counters of recently active
// learners from their stored attempts and refreshes the Redis cache.
type ReconcileWorker struct {
	svc       *Service
	logger    zerolog.Logger
	interval  time.Duration
	batchSize int
}

func NewReconcileWorker(svc *Service, interval time.Duration, batchSize int, logger zerolog.Logger) *ReconcileWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReconcileWorker{
		svc:       svc,
		logger:    logger.With().Str("component", "progress_reconcile_worker").Logger(),
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run blocks until context cancellation.
func (w *ReconcileWorker) Run(ctx context.Context) error {
	if w.svc == nil || w.svc.aggregates == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// run immediately
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ReconcileWorker) tick(ctx context.Context) {
	learners, err := w.svc.aggregates.DrainActive(ctx, w.batchSize)
	if err != nil {
		w.logger.Warn().Err(err).Msg("active learner drain failed")
		return
	}
	if len(learners) == 0 {
		return
	}

	rebuilt := 0
	for _, id := range learners {
		n, err := w.svc.reconcile(ctx, id)
		if err != nil {
			w.logger.Warn().Err(err).Str("learner_id", id.String()).Msg("progress reconcile failed")
			continue
		}
		rebuilt += n
	}

	w.logger.Info().
		Int("learners", len(learners)).
		Int("categories", rebuilt).
		Msg("progress reconciled")
}
