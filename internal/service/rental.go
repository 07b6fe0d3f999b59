package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/repository"
	"rentshare-backend/internal/utils"
)

const (
	actionConfirmPickup  = "confirm pickup"
	actionInitiateReturn = "initiate return"
	actionConfirmReturn  = "confirm return"
	actionCancel         = "cancel"
)

var cancellableStatuses = []domain.RentalStatus{domain.RentalStatusPending, domain.RentalStatusPendingPickup}

type rentalService struct {
	rentalRepo repository.RentalRepository
	itemRepo   repository.ItemRepository
	blockRepo  repository.AvailabilityBlockRepository
	publisher  EventPublisher
	refunds    refunder
	fees       utils.FeePolicy
	now        func() time.Time
}

func NewRentalService(
	rentalRepo repository.RentalRepository,
	itemRepo repository.ItemRepository,
	blockRepo repository.AvailabilityBlockRepository,
	publisher EventPublisher,
	gateway PaymentGateway,
	fees utils.FeePolicy,
) RentalService {
	return &rentalService{
		rentalRepo: rentalRepo,
		itemRepo:   itemRepo,
		blockRepo:  blockRepo,
		publisher:  publisher,
		refunds:    refunder{gateway: gateway, rentalRepo: rentalRepo},
		fees:       fees,
		now:        time.Now,
	}
}

func (s *rentalService) CreateRental(ctx context.Context, renterID string, req domain.NewRentalRequest) (*domain.Rental, error) {
	if !req.DeliveryMethod.Valid() {
		return nil, domain.NewValidationError("delivery_method must be pickup or delivery")
	}
	if req.DeliveryMethod == domain.DeliveryMethodDelivery && req.DeliveryAddress == "" {
		return nil, domain.NewValidationError("delivery_address is required for delivery")
	}
	if err := validateRange(req.StartDate, req.EndDate, utils.Today(s.now())); err != nil {
		return nil, err
	}

	item, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item.Status != domain.ItemStatusActive {
		return nil, domain.NewValidationError("item is not available for rent")
	}
	if item.OwnerID == renterID {
		return nil, domain.NewValidationError("you cannot rent your own item")
	}
	if req.DeliveryMethod == domain.DeliveryMethodDelivery && !item.DeliveryAvailable {
		return nil, domain.NewValidationError("the owner does not offer delivery for this item")
	}

	days, err := utils.RentalDays(req.StartDate, req.EndDate)
	if err != nil {
		return nil, domain.NewValidationError("%s", err.Error())
	}
	fees, err := utils.CalculateFees(item.PricePerDayCents, days, req.DeliveryMethod, s.fees)
	if err != nil {
		return nil, domain.NewValidationError("%s", err.Error())
	}

	if err := s.ensureAvailable(ctx, item.ID, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	rental := &domain.Rental{
		ItemID:               item.ID,
		RenterID:             renterID,
		OwnerID:              item.OwnerID,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		PricePerDayCents:     item.PricePerDayCents,
		SecurityDepositCents: item.SecurityDepositCents,
		LateFeePerDayCents:   item.LateFeePerDayCents,
		Status:               domain.RentalStatusPending,
		PaymentStatus:        domain.PaymentStatusUnpaid,
		DeliveryMethod:       req.DeliveryMethod,
		DeliveryAddress:      req.DeliveryAddress,
		SpecialInstructions:  req.SpecialInstructions,
	}
	utils.ApplyFees(rental, fees)

	// Create re-checks the range under the item's booking lock.
	if err := s.rentalRepo.Create(ctx, rental); err != nil {
		if errors.Is(err, domain.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create rental: %w", err)
	}

	logger.WithRental(ctx, rental.ID).Info("Rental requested", "itemID", item.ID, "renterID", renterID, "totalCents", rental.TotalAmountCents)
	s.publisher.Publish(ctx, rentalEvent(domain.EventRentalRequested, rental, rental.OwnerID))
	return rental, nil
}

// ensureAvailable reports conflicts with details before the locked insert,
// so the common case gets a useful error.
func (s *rentalService) ensureAvailable(ctx context.Context, itemID string, start, end domain.Date) error {
	rentals, err := s.rentalRepo.ListBlocking(ctx, itemID, start)
	if err != nil {
		return fmt.Errorf("failed to list rentals: %w", err)
	}
	blocks, err := s.blockRepo.ListByItem(ctx, itemID, &start)
	if err != nil {
		return fmt.Errorf("failed to list availability blocks: %w", err)
	}
	if conflicts := findConflicts(start, end, rentals, blocks, ""); len(conflicts) > 0 {
		return &domain.UnavailableError{
			Conflicts:         conflicts,
			NextAvailableDate: nextAvailableStart(start, start.DaysUntil(end), rentals, blocks, ""),
		}
	}
	return nil
}

func (s *rentalService) GetRental(ctx context.Context, userID, rentalID string) (*domain.Rental, error) {
	r, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	if !r.IsParticipant(userID) {
		return nil, fmt.Errorf("not a participant of this rental: %w", domain.ErrForbidden)
	}
	return r, nil
}

func (s *rentalService) ListRentals(ctx context.Context, userID string, role domain.RentalRole, status domain.RentalStatus) ([]domain.Rental, error) {
	if role != "" && role != domain.RentalRoleRenter && role != domain.RentalRoleOwner {
		return nil, domain.NewValidationError("role must be renter or owner")
	}
	if status != "" && !status.Valid() {
		return nil, domain.NewValidationError("unknown rental status %q", status)
	}
	rentals, err := s.rentalRepo.List(ctx, domain.RentalFilter{UserID: userID, Role: role, Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list rentals: %w", err)
	}
	return rentals, nil
}

// loadAs re-fetches the rental and checks the caller is on the required side.
// PartyNone accepts either participant.
func (s *rentalService) loadAs(ctx context.Context, userID, rentalID string, party domain.Party) (*domain.Rental, error) {
	r, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	got := r.PartyOf(userID)
	if got == domain.PartyNone || (party != domain.PartyNone && got != party) {
		return nil, fmt.Errorf("only the %s can do this: %w", partyLabel(party), domain.ErrForbidden)
	}
	return r, nil
}

func partyLabel(p domain.Party) string {
	if p == domain.PartyNone {
		return "renter or owner"
	}
	return string(p)
}

// lostRace is called when a guarded update changed nothing: someone else
// moved the rental first. It reports the state that won.
func (s *rentalService) lostRace(ctx context.Context, rentalID, action string) error {
	r, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return fmt.Errorf("failed to get rental: %w", err)
	}
	return &domain.StateConflictError{RentalID: rentalID, Action: action, Current: r.Status, Reason: "rental changed concurrently"}
}

func (s *rentalService) reload(ctx context.Context, rentalID string) (*domain.Rental, error) {
	r, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	return r, nil
}

func (s *rentalService) ConfirmPickup(ctx context.Context, renterID, rentalID string) (*domain.Rental, error) {
	r, err := s.loadAs(ctx, renterID, rentalID, domain.PartyRenter)
	if err != nil {
		return nil, err
	}
	if r.Status != domain.RentalStatusPendingPickup {
		return nil, &domain.StateConflictError{RentalID: r.ID, Action: actionConfirmPickup, Current: r.Status}
	}
	if r.PickupConfirmedAt != nil {
		return nil, &domain.StateConflictError{RentalID: r.ID, Action: actionConfirmPickup, Current: r.Status, Reason: "pickup already confirmed"}
	}

	ok, err := s.rentalRepo.ConfirmPickup(ctx, r.ID, renterID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to confirm pickup: %w", err)
	}
	if !ok {
		return nil, s.lostRace(ctx, r.ID, actionConfirmPickup)
	}

	updated, err := s.reload(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, rentalEvent(domain.EventPickupConfirmed, updated))
	return updated, nil
}

func (s *rentalService) InitiateReturn(ctx context.Context, renterID, rentalID string) (*domain.Rental, error) {
	r, err := s.loadAs(ctx, renterID, rentalID, domain.PartyRenter)
	if err != nil {
		return nil, err
	}
	if r.Status != domain.RentalStatusActive {
		return nil, &domain.StateConflictError{RentalID: r.ID, Action: actionInitiateReturn, Current: r.Status}
	}
	if r.ReturnInitiatedAt != nil {
		return nil, &domain.StateConflictError{RentalID: r.ID, Action: actionInitiateReturn, Current: r.Status, Reason: "return already initiated"}
	}

	now := s.now().UTC()
	lateDays := utils.LateDays(utils.Today(now), r.EndDate)
	ok, err := s.rentalRepo.InitiateReturn(ctx, r.ID, renterID, now, lateDays)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate return: %w", err)
	}
	if !ok {
		return nil, s.lostRace(ctx, r.ID, actionInitiateReturn)
	}

	updated, err := s.reload(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, rentalEvent(domain.EventReturnInitiated, updated, updated.OwnerID))
	return updated, nil
}

func (s *rentalService) ConfirmReturn(ctx context.Context, ownerID, rentalID string, in domain.ReturnConfirmation) (*domain.Rental, error) {
	if in.DeductionCents < 0 {
		return nil, domain.NewValidationError("security_deposit_deduction_cents must not be negative")
	}
	if in.DamageReported && in.DamageDescription == "" {
		return nil, domain.NewValidationError("damage_description is required when damage is reported")
	}

	r, err := s.loadAs(ctx, ownerID, rentalID, domain.PartyOwner)
	if err != nil {
		return nil, err
	}
	if r.Status != domain.RentalStatusActive {
		return nil, &domain.StateConflictError{RentalID: r.ID, Action: actionConfirmReturn, Current: r.Status}
	}
	if r.ReturnInitiatedAt == nil {
		return nil, &domain.StateConflictError{RentalID: r.ID, Action: actionConfirmReturn, Current: r.Status, Reason: "return has not been initiated"}
	}
	if r.ReturnConfirmedAt != nil {
		return nil, &domain.StateConflictError{RentalID: r.ID, Action: actionConfirmReturn, Current: r.Status, Reason: "return already confirmed"}
	}

	now := s.now().UTC()
	today := utils.Today(now)
	// Lateness stops at the renter's handover; the owner's confirmation delay
	// is not charged.
	lateDays := utils.LateDays(utils.Today(*r.ReturnInitiatedAt), r.EndDate)
	lateFee := utils.LateFee(lateDays, r.LateFeePerDayCents)
	settlement := domain.ReturnSettlement{
		ConfirmedBy:          ownerID,
		ConfirmedAt:          now,
		ActualReturnDate:     today,
		LateDays:             lateDays,
		LateFeeAmountCents:   lateFee,
		DeductionCents:       in.DeductionCents,
		DepositReturnedCents: utils.DepositReturn(r.SecurityDepositCents, in.DeductionCents, lateFee),
		DeductionReason:      in.DeductionReason,
		DamageReported:       in.DamageReported,
		DamageDescription:    in.DamageDescription,
	}

	ok, err := s.rentalRepo.ConfirmReturn(ctx, r.ID, settlement)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm return: %w", err)
	}
	if !ok {
		return nil, s.lostRace(ctx, r.ID, actionConfirmReturn)
	}

	updated, err := s.reload(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	logger.WithRental(ctx, r.ID).Info("Rental completed", "lateDays", lateDays, "lateFeeCents", lateFee,
		"depositReturnedCents", settlement.DepositReturnedCents)
	s.publisher.Publish(ctx, rentalEvent(domain.EventReturnConfirmed, updated))
	return updated, nil
}

func (s *rentalService) Cancel(ctx context.Context, userID, rentalID, reason string) (*domain.Rental, error) {
	r, err := s.loadAs(ctx, userID, rentalID, domain.PartyNone)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransitionTo(domain.RentalStatusCancelled) {
		return nil, &domain.StateConflictError{RentalID: r.ID, Action: actionCancel, Current: r.Status}
	}

	var payment domain.PaymentStatus
	if r.PaymentStatus == domain.PaymentStatusPaid {
		payment = domain.PaymentStatusRefundPending
	}
	if reason == "" {
		reason = fmt.Sprintf("cancelled by %s", r.PartyOf(userID))
	}

	ok, err := s.rentalRepo.Cancel(ctx, r.ID, cancellableStatuses, reason, payment)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel rental: %w", err)
	}
	if !ok {
		return nil, s.lostRace(ctx, r.ID, actionCancel)
	}

	updated, err := s.reload(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if payment == domain.PaymentStatusRefundPending {
		if err := s.refunds.refund(ctx, updated); err != nil {
			// Left as refund_pending for follow-up; the cancellation itself stands.
			logger.WithRental(ctx, r.ID).Error("Refund after cancellation failed", "error", err)
		}
	}
	s.publisher.Publish(ctx, rentalEvent(domain.EventRentalCancelled, updated))
	return updated, nil
}

func (s *rentalService) ListOverdue(ctx context.Context) ([]domain.OverdueRental, error) {
	today := utils.Today(s.now())
	overdue, err := s.rentalRepo.ListOverdue(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue rentals: %w", err)
	}
	for i := range overdue {
		o := &overdue[i]
		o.LateDays = utils.LateDays(today, o.Rental.EndDate)
		o.LateFeeAmountCents = utils.LateFee(o.LateDays, o.Rental.LateFeePerDayCents)
	}
	return overdue, nil
}

func (s *rentalService) NotifyOverdue(ctx context.Context) ([]domain.OverdueRental, error) {
	overdue, err := s.ListOverdue(ctx)
	if err != nil {
		return nil, err
	}
	for i := range overdue {
		o := &overdue[i]
		ev := rentalEvent(domain.EventRentalOverdue, &o.Rental)
		ev.Body = fmt.Sprintf("%s was due back on %s and is %d day(s) late. Late fees so far: %s.",
			o.ItemTitle, o.Rental.EndDate, o.LateDays, utils.FormatCents(o.LateFeeAmountCents))
		ev.Payload["late_days"] = fmt.Sprint(o.LateDays)
		s.publisher.Publish(ctx, ev)
	}
	logger.Info("Overdue rentals processed", "count", len(overdue))
	return overdue, nil
}

func (s *rentalService) SendReminders(ctx context.Context) (int, error) {
	tomorrow := utils.Today(s.now()).AddDays(1)

	pickups, err := s.rentalRepo.ListPickupsOn(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("failed to list upcoming pickups: %w", err)
	}
	returns, err := s.rentalRepo.ListReturnsDueOn(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("failed to list upcoming returns: %w", err)
	}

	for i := range pickups {
		s.publisher.Publish(ctx, rentalEvent(domain.EventPickupReminder, &pickups[i]))
	}
	for i := range returns {
		s.publisher.Publish(ctx, rentalEvent(domain.EventReturnReminder, &returns[i]))
	}
	sent := len(pickups) + len(returns)
	logger.Info("Rental reminders queued", "pickups", len(pickups), "returns", len(returns))
	return sent, nil
}
