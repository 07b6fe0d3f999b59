package jobs

import (
	"context"

	"rentshare-backend/internal/logger"
)

// DispatchOutbox delivers pending notification events over every channel.
func (jr *JobRunner) DispatchOutbox() bool {
	return jr.runWithRecovery("dispatch_outbox", func(ctx context.Context) error {
		stats, err := jr.services.Dispatcher.DispatchPending(ctx)
		if jr.metrics != nil {
			jr.metrics.RecordOutbox("dispatched", stats.Dispatched)
			jr.metrics.RecordOutbox("failed", stats.Failed)
		}
		if err != nil {
			return err
		}
		if stats.Claimed > 0 {
			logger.Info("Outbox dispatched", "claimed", stats.Claimed, "dispatched", stats.Dispatched, "failed", stats.Failed)
		}
		return nil
	})
}
