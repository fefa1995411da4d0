package worker

import (
	"context"
	"log/slog"

	audit "claimdesk/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. A failed
// append is logged and the worker moves on; audit never blocks claim handling.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run processes events until the inbox is closed or ctx is cancelled. Events
// already buffered when the inbox closes are still written.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.append(ctx, event)
		}
	}
}

func (w *Worker) append(ctx context.Context, event audit.Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to persist audit event",
			"action", event.Action,
			"claim_id", event.ClaimID.String(),
			"error", err,
		)
	}
}
