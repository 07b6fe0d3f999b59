package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/payments"
	"rentshare-backend/internal/repository"
)

const reasonDatesTaken = "dates no longer available at payment time"

type checkoutService struct {
	rentalRepo  repository.RentalRepository
	itemRepo    repository.ItemRepository
	profileRepo repository.ProfileRepository
	gateway     PaymentGateway
	deduper     EventDeduper
	publisher   EventPublisher
	refunds     refunder
	currency    string
	baseURL     string
	now         func() time.Time
}

// NewCheckoutService wires payment collection and webhook handling. deduper
// may be nil, in which case idempotence rests on the conditional updates alone.
func NewCheckoutService(
	rentalRepo repository.RentalRepository,
	itemRepo repository.ItemRepository,
	profileRepo repository.ProfileRepository,
	gateway PaymentGateway,
	deduper EventDeduper,
	publisher EventPublisher,
	currency, baseURL string,
) CheckoutService {
	return &checkoutService{
		rentalRepo:  rentalRepo,
		itemRepo:    itemRepo,
		profileRepo: profileRepo,
		gateway:     gateway,
		deduper:     deduper,
		publisher:   publisher,
		refunds:     refunder{gateway: gateway, rentalRepo: rentalRepo},
		currency:    currency,
		baseURL:     strings.TrimRight(baseURL, "/"),
		now:         time.Now,
	}
}

func (s *checkoutService) CreateCheckoutSession(ctx context.Context, renterID, rentalID string) (*payments.CheckoutSession, error) {
	if s.gateway == nil {
		return nil, errPaymentsDisabled
	}
	r, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	if r.PartyOf(renterID) != domain.PartyRenter {
		return nil, fmt.Errorf("only the renter can pay for a rental: %w", domain.ErrForbidden)
	}
	if r.Status != domain.RentalStatusPending {
		return nil, &domain.StateConflictError{RentalID: r.ID, Action: "pay for", Current: r.Status}
	}
	if r.PaymentStatus == domain.PaymentStatusPaid {
		return nil, &domain.StateConflictError{RentalID: r.ID, Action: "pay for", Current: r.Status, Reason: "already paid"}
	}

	item, err := s.itemRepo.GetByID(ctx, r.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	owner, err := s.profileRepo.GetByID(ctx, r.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get owner profile: %w", err)
	}

	params := payments.CheckoutParams{
		RentalID:   r.ID,
		Currency:   s.currency,
		SuccessURL: fmt.Sprintf("%s/rentals/%s?checkout=success", s.baseURL, r.ID),
		CancelURL:  fmt.Sprintf("%s/rentals/%s?checkout=cancelled", s.baseURL, r.ID),
		LineItems:  checkoutLineItems(item.Title, r),
	}
	if renter, err := s.profileRepo.GetByID(ctx, r.RenterID); err == nil {
		params.CustomerEmail = renter.Email
	}
	if owner.StripeAccountID != "" && owner.StripeOnboardingComplete {
		params.DestinationAccount = owner.StripeAccountID
		params.ApplicationFeeCents = r.ServiceFeeCents
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := s.rentalRepo.SetCheckoutSession(ctx, r.ID, session.ID); err != nil {
		return nil, fmt.Errorf("failed to store checkout session: %w", err)
	}
	logger.WithRental(ctx, r.ID).Info("Checkout session created", "sessionID", session.ID, "destination", params.DestinationAccount != "")
	return session, nil
}

func checkoutLineItems(title string, r *domain.Rental) []payments.LineItem {
	items := []payments.LineItem{
		{Name: fmt.Sprintf("%s (%d day rental)", title, r.TotalDays), AmountCents: r.SubtotalCents},
		{Name: "Service fee", AmountCents: r.ServiceFeeCents},
		{Name: "Insurance", AmountCents: r.InsuranceFeeCents},
	}
	if r.DeliveryFeeCents > 0 {
		items = append(items, payments.LineItem{Name: "Delivery", AmountCents: r.DeliveryFeeCents})
	}
	return items
}

func (s *checkoutService) CreateConnectOnboarding(ctx context.Context, ownerID string) (string, error) {
	if s.gateway == nil {
		return "", errPaymentsDisabled
	}
	profile, err := s.profileRepo.GetByID(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}

	accountID := profile.StripeAccountID
	if accountID == "" {
		accountID, err = s.gateway.CreateConnectAccount(ctx, profile.Email)
		if err != nil {
			return "", err
		}
		if err := s.profileRepo.SetStripeAccount(ctx, ownerID, accountID); err != nil {
			return "", fmt.Errorf("failed to store connect account: %w", err)
		}
	}

	return s.gateway.CreateAccountLink(ctx, accountID,
		s.baseURL+"/dashboard/payouts?refresh=1",
		s.baseURL+"/dashboard/payouts?onboarded=1")
}

// HandleWebhook verifies and applies one gateway event. Returning an error
// makes the gateway redeliver, so errors are reserved for retryable failures.
func (s *checkoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return errPaymentsDisabled
	}
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			return &domain.ValidationError{Message: "invalid webhook signature"}
		}
		return domain.NewValidationError("invalid webhook payload")
	}

	if s.deduper != nil {
		first, err := s.deduper.FirstSeen(ctx, ev.ID)
		if err != nil {
			logger.Warn("Webhook de-duplication unavailable", "eventID", ev.ID, "error", err)
		} else if !first {
			logger.Info("Duplicate webhook event ignored", "eventID", ev.ID, "type", ev.Type)
			return nil
		}
	}

	if err := s.apply(ctx, ev); err != nil {
		if s.deduper != nil {
			if ferr := s.deduper.Forget(ctx, ev.ID); ferr != nil {
				logger.Warn("Failed to release webhook event for retry", "eventID", ev.ID, "error", ferr)
			}
		}
		return err
	}
	return nil
}

func (s *checkoutService) apply(ctx context.Context, ev *payments.Event) error {
	switch ev.Type {
	case payments.EventCheckoutCompleted, payments.EventPaymentSucceeded:
		if ev.RentalID == "" {
			logger.Warn("Payment event without rental id", "eventID", ev.ID, "type", ev.Type)
			return nil
		}
		return s.paymentSucceeded(ctx, ev.RentalID, ev.PaymentIntentID)
	case payments.EventPaymentFailed:
		if ev.RentalID == "" {
			logger.Warn("Payment event without rental id", "eventID", ev.ID, "type", ev.Type)
			return nil
		}
		return s.paymentFailed(ctx, ev.RentalID, ev.FailureMessage)
	case payments.EventAccountUpdated:
		if err := s.profileRepo.SetStripeOnboarding(ctx, ev.AccountID, ev.ChargesEnabled); err != nil {
			return fmt.Errorf("failed to update onboarding status: %w", err)
		}
		return nil
	}
	logger.Debug("Ignoring webhook event", "eventID", ev.ID, "type", ev.Type)
	return nil
}

// loadForWebhook treats an unknown rental as handled so the gateway stops retrying.
func (s *checkoutService) loadForWebhook(ctx context.Context, rentalID string) (*domain.Rental, error) {
	r, err := s.rentalRepo.GetByID(ctx, rentalID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("Webhook references unknown rental", "rentalID", rentalID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	return r, nil
}

func (s *checkoutService) paymentSucceeded(ctx context.Context, rentalID, paymentIntentID string) error {
	r, err := s.loadForWebhook(ctx, rentalID)
	if err != nil || r == nil {
		return err
	}
	log := logger.WithRental(ctx, r.ID)

	if r.PaymentStatus == domain.PaymentStatusPaid || r.PaymentStatus == domain.PaymentStatusRefunded {
		log.Debug("Payment already applied", "paymentStatus", r.PaymentStatus)
		return nil
	}

	if r.Status == domain.RentalStatusPending {
		ok, err := s.rentalRepo.MarkPaid(ctx, r.ID, paymentIntentID, s.now().UTC())
		switch {
		case errors.Is(err, domain.ErrUnavailable):
			return s.cancelAndRefund(ctx, r, paymentIntentID)
		case err != nil:
			return fmt.Errorf("failed to mark rental paid: %w", err)
		case ok:
			updated, err := s.rentalRepo.GetByID(ctx, r.ID)
			if err != nil {
				return fmt.Errorf("failed to get rental: %w", err)
			}
			log.Info("Rental paid", "paymentIntent", paymentIntentID)
			s.publisher.Publish(ctx, rentalEvent(domain.EventRentalPaid, updated))
			return nil
		}
		// Lost a race with another delivery or a cancellation; look again.
		if r, err = s.rentalRepo.GetByID(ctx, r.ID); err != nil {
			return fmt.Errorf("failed to get rental: %w", err)
		}
		if r.PaymentStatus == domain.PaymentStatusPaid {
			return nil
		}
	}

	if r.Status == domain.RentalStatusCancelled {
		// Money arrived for a booking that no longer exists.
		if r.StripePaymentIntentID == "" {
			r.StripePaymentIntentID = paymentIntentID
		}
		if err := s.refunds.refund(ctx, r); err != nil {
			return fmt.Errorf("failed to refund cancelled rental: %w", err)
		}
		log.Info("Payment for cancelled rental refunded")
		s.publisher.Publish(ctx, rentalEvent(domain.EventRentalRefunded, r, r.RenterID))
		return nil
	}

	log.Warn("Payment event for rental in unexpected state", "status", r.Status, "paymentStatus", r.PaymentStatus)
	return nil
}

// cancelAndRefund handles a payment that completed after the dates were taken.
func (s *checkoutService) cancelAndRefund(ctx context.Context, r *domain.Rental, paymentIntentID string) error {
	log := logger.WithRental(ctx, r.ID)
	ok, err := s.rentalRepo.Cancel(ctx, r.ID, []domain.RentalStatus{domain.RentalStatusPending},
		reasonDatesTaken, domain.PaymentStatusRefundPending)
	if err != nil {
		return fmt.Errorf("failed to cancel rental: %w", err)
	}
	if !ok {
		log.Warn("Rental changed before it could be cancelled for unavailability")
	}
	r.Status = domain.RentalStatusCancelled
	if paymentIntentID != "" {
		r.StripePaymentIntentID = paymentIntentID
	}
	if err := s.refunds.refund(ctx, r); err != nil {
		return fmt.Errorf("failed to refund unavailable rental: %w", err)
	}
	log.Info("Paid rental cancelled and refunded: dates no longer available")
	s.publisher.Publish(ctx, rentalEvent(domain.EventRentalRefunded, r, r.RenterID))
	return nil
}

func (s *checkoutService) paymentFailed(ctx context.Context, rentalID, failure string) error {
	r, err := s.loadForWebhook(ctx, rentalID)
	if err != nil || r == nil {
		return err
	}
	// Events arrive unordered: a failed attempt can be reported after a retry
	// already paid. Only an unpaid pending rental is cancelled.
	if r.Status != domain.RentalStatusPending || r.PaymentStatus != domain.PaymentStatusUnpaid {
		logger.WithRental(ctx, r.ID).Info("Payment failure ignored", "status", r.Status, "paymentStatus", r.PaymentStatus)
		return nil
	}

	reason := "payment failed"
	if failure != "" {
		reason += ": " + failure
	}
	ok, err := s.rentalRepo.Cancel(ctx, r.ID, []domain.RentalStatus{domain.RentalStatusPending}, reason, domain.PaymentStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to cancel rental: %w", err)
	}
	if !ok {
		return nil
	}
	r.Status = domain.RentalStatusCancelled
	r.PaymentStatus = domain.PaymentStatusFailed
	s.publisher.Publish(ctx, rentalEvent(domain.EventPaymentFailed, r))
	return nil
}
