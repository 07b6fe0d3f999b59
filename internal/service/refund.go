package service

import (
	"context"
	"errors"
	"fmt"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/repository"
)

var errPaymentsDisabled = errors.New("payments are not configured")

// refunder returns a rental's payment in full and records it.
type refunder struct {
	gateway    PaymentGateway
	rentalRepo repository.RentalRepository
}

func (f refunder) refund(ctx context.Context, r *domain.Rental) error {
	if f.gateway == nil {
		return errPaymentsDisabled
	}
	if r.StripePaymentIntentID == "" {
		return fmt.Errorf("rental %s has no payment to refund", r.ID)
	}
	if err := f.gateway.Refund(ctx, r.StripePaymentIntentID, 0); err != nil {
		return err
	}
	if err := f.rentalRepo.SetPaymentStatus(ctx, r.ID, domain.PaymentStatusRefunded); err != nil {
		return fmt.Errorf("refund issued but status not recorded: %w", err)
	}
	r.PaymentStatus = domain.PaymentStatusRefunded
	return nil
}
