package service

import (
	"fmt"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/utils"
)

// rentalEvent builds the notification for a rental transition. Both
// participants are notified unless only is given.
func rentalEvent(t domain.EventType, r *domain.Rental, only ...string) *domain.OutboxEvent {
	recipients := only
	if len(recipients) == 0 {
		recipients = []string{r.RenterID, r.OwnerID}
	}
	title, body := rentalEventText(t, r)
	return &domain.OutboxEvent{
		Type:       t,
		RentalID:   r.ID,
		Recipients: recipients,
		Title:      title,
		Body:       body,
		Payload: map[string]string{
			"status":     string(r.Status),
			"start_date": r.StartDate.String(),
			"end_date":   r.EndDate.String(),
		},
	}
}

func rentalEventText(t domain.EventType, r *domain.Rental) (string, string) {
	dates := fmt.Sprintf("%s to %s", r.StartDate, r.EndDate)
	switch t {
	case domain.EventRentalRequested:
		return "New rental request", fmt.Sprintf("A rental was requested for %s. It is confirmed once payment completes.", dates)
	case domain.EventRentalPaid:
		return "Rental confirmed", fmt.Sprintf("Payment of %s received. The rental for %s is awaiting pickup.", utils.FormatCents(r.TotalAmountCents), dates)
	case domain.EventPaymentFailed:
		return "Payment failed", fmt.Sprintf("Payment for the rental on %s failed and the booking was cancelled.", dates)
	case domain.EventRentalCancelled:
		return "Rental cancelled", fmt.Sprintf("The rental for %s was cancelled.", dates)
	case domain.EventRentalRefunded:
		return "Rental refunded", fmt.Sprintf("The dates %s are no longer available. Your payment has been refunded.", dates)
	case domain.EventPickupConfirmed:
		return "Pickup confirmed", fmt.Sprintf("The item was picked up. Please return it by %s.", r.EndDate)
	case domain.EventReturnInitiated:
		body := "The renter has started the return. Please confirm once you have the item back."
		if r.LateDays > 0 {
			body += fmt.Sprintf(" The return is %d day(s) late.", r.LateDays)
		}
		return "Return started", body
	case domain.EventReturnConfirmed:
		return "Rental completed", fmt.Sprintf("The return was confirmed. Deposit returned: %s. Late fee: %s.",
			utils.FormatCents(r.SecurityDepositReturnedCents), utils.FormatCents(r.LateFeeAmountCents))
	case domain.EventAgreementReady:
		return "Agreement ready", "The rental agreement is ready for both parties to review and accept."
	case domain.EventAgreementAccepted:
		return "Agreement accepted", "The other party accepted the rental agreement. Your acceptance is still needed."
	case domain.EventAgreementSigned:
		return "Agreement signed", "Both parties accepted the rental agreement."
	case domain.EventReviewReceived:
		return "New review", "You received a review for a completed rental."
	case domain.EventPickupReminder:
		return "Pickup tomorrow", fmt.Sprintf("The rental starting %s is scheduled for pickup tomorrow.", r.StartDate)
	case domain.EventReturnReminder:
		return "Return due tomorrow", fmt.Sprintf("The rental ending %s is due back tomorrow.", r.EndDate)
	case domain.EventRentalOverdue:
		return "Rental overdue", fmt.Sprintf("The rental that ended %s has not been returned.", r.EndDate)
	}
	return "Rental update", fmt.Sprintf("Rental for %s is now %s.", dates, r.Phase())
}
