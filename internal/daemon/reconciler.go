// Package daemon runs the background loops of the rewindd process: a drift
// reconciler that keeps the replay buffer in its desired state.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"rewindd/internal/metrics"
	"rewindd/internal/replay"
)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically checks for state drift and corrects it. The engine
// can drop the buffer on its own (encoder crash, session change); when the
// desired state is "recording" and the user has not paused, the reconciler
// resumes it.
type Reconciler struct {
	interval   time.Duration
	controller *replay.Controller
	stats      *metrics.Metrics
	logger     *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, controller *replay.Controller, stats *metrics.Metrics) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &Reconciler{
		interval:   interval,
		controller: controller,
		stats:      stats,
		logger:     cfg.Logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile(ctx context.Context) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	st := r.controller.Status()
	if st.State != replay.StateRunning.String() {
		// Uninitialized, mid-restart or mid-stop; nothing to repair.
		return
	}
	if st.Paused || st.BufferRunning {
		return
	}

	r.logger.Warn("replay buffer stopped unexpectedly, resuming")
	if err := r.controller.Resume(ctx); err != nil {
		r.logger.Error("reconciler: failed to resume buffer", "error", err)
		return
	}
	r.stats.DriftRepairsTotal.Inc()
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow(ctx context.Context) {
	r.reconcile(ctx)
}
