package verify

import (
	"context"
	"log/slog"

	"krishichain/internal/platform/metrics"
)

// Worker drains verification events from the assembler's queue and persists
// them. Persistence failures are logged and dropped; the verify read path
// must never feel them.
type Worker struct {
	store   EventStore
	inbox   <-chan VerificationEvent
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewWorker(store EventStore, inbox <-chan VerificationEvent, logger *slog.Logger, m *metrics.Metrics) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger, metrics: m}
}

// Run consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "persist verification event",
					"error", err,
					"product_id", event.ProductID.String(),
				)
				continue
			}
			w.metrics.VerificationEventsRecorded.Inc()
		}
	}
}
