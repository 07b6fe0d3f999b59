package jobs

import (
	"context"

	"rentshare-backend/internal/logger"
)

// SendRentalReminders queues reminders for pickups and returns due tomorrow.
func (jr *JobRunner) SendRentalReminders() bool {
	return jr.runWithRecovery("send_rental_reminders", func(ctx context.Context) error {
		count, err := jr.services.Rental.SendReminders(ctx)
		if err != nil {
			return err
		}
		logger.Info("Rental reminders queued", "count", count)
		return nil
	})
}

// SendOverdueReminders notifies both parties of every active rental past its
// end date, with the late fee accrued so far.
func (jr *JobRunner) SendOverdueReminders() bool {
	return jr.runWithRecovery("send_overdue_reminders", func(ctx context.Context) error {
		overdue, err := jr.services.Rental.NotifyOverdue(ctx)
		if err != nil {
			return err
		}
		for _, o := range overdue {
			logger.Debug("Overdue rental", "rentalID", o.Rental.ID, "lateDays", o.LateDays, "lateFeeCents", o.LateFeeAmountCents)
		}
		logger.Info("Overdue reminders queued", "count", len(overdue))
		return nil
	})
}
