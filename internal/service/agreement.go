package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentshare-backend/internal/ai"
	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/repository"
)

var errAgreementsDisabled = errors.New("agreement generation is not configured")

type agreementService struct {
	rentalRepo  repository.RentalRepository
	itemRepo    repository.ItemRepository
	profileRepo repository.ProfileRepository
	generator   AgreementGenerator
	publisher   EventPublisher
	now         func() time.Time
}

func NewAgreementService(
	rentalRepo repository.RentalRepository,
	itemRepo repository.ItemRepository,
	profileRepo repository.ProfileRepository,
	generator AgreementGenerator,
	publisher EventPublisher,
) AgreementService {
	return &agreementService{
		rentalRepo:  rentalRepo,
		itemRepo:    itemRepo,
		profileRepo: profileRepo,
		generator:   generator,
		publisher:   publisher,
		now:         time.Now,
	}
}

// Generate produces the agreement text once. Later calls return the stored text.
func (s *agreementService) Generate(ctx context.Context, userID, rentalID string) (*domain.Rental, error) {
	r, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	if !r.IsParticipant(userID) {
		return nil, fmt.Errorf("not a participant of this rental: %w", domain.ErrForbidden)
	}
	if r.AgreementText != nil {
		return r, nil
	}
	if r.Status == domain.RentalStatusCancelled {
		return nil, &domain.StateConflictError{RentalID: r.ID, Action: "generate an agreement for", Current: r.Status}
	}
	if s.generator == nil {
		return nil, errAgreementsDisabled
	}

	in, err := s.agreementInput(ctx, r)
	if err != nil {
		return nil, err
	}
	text, err := s.generator.Generate(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to generate agreement: %w", err)
	}

	stored, err := s.rentalRepo.SaveAgreement(ctx, r.ID, text, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to store agreement: %w", err)
	}
	updated, err := s.rentalRepo.GetByID(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	if stored {
		logger.WithRental(ctx, r.ID).Info("Agreement generated", "requestedBy", userID)
		s.publisher.Publish(ctx, rentalEvent(domain.EventAgreementReady, updated))
	}
	return updated, nil
}

func (s *agreementService) agreementInput(ctx context.Context, r *domain.Rental) (ai.AgreementInput, error) {
	item, err := s.itemRepo.GetByID(ctx, r.ItemID)
	if err != nil {
		return ai.AgreementInput{}, fmt.Errorf("failed to get item: %w", err)
	}
	owner, err := s.profileRepo.GetByID(ctx, r.OwnerID)
	if err != nil {
		return ai.AgreementInput{}, fmt.Errorf("failed to get owner profile: %w", err)
	}
	renter, err := s.profileRepo.GetByID(ctx, r.RenterID)
	if err != nil {
		return ai.AgreementInput{}, fmt.Errorf("failed to get renter profile: %w", err)
	}
	return ai.AgreementInput{
		Rental:          *r,
		ItemTitle:       item.Title,
		ItemDescription: item.Description,
		OwnerName:       owner.DisplayName(),
		RenterName:      renter.DisplayName(),
	}, nil
}

// Accept records the caller's acceptance. The signed timestamp is set by the
// same statement that records the second acceptance.
func (s *agreementService) Accept(ctx context.Context, userID, rentalID string) (*domain.Rental, error) {
	r, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	party := r.PartyOf(userID)
	if party == domain.PartyNone {
		return nil, fmt.Errorf("not a participant of this rental: %w", domain.ErrForbidden)
	}
	if r.AgreementText == nil {
		return nil, domain.NewValidationError("no agreement has been generated for this rental yet")
	}
	if acceptedBy(r, party) {
		return nil, domain.NewValidationError("you have already accepted this agreement")
	}

	accepted, signedAt, err := s.rentalRepo.AcceptAgreement(ctx, r.ID, party, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to accept agreement: %w", err)
	}
	if !accepted {
		return nil, domain.NewValidationError("you have already accepted this agreement")
	}

	updated, err := s.rentalRepo.GetByID(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	if signedAt != nil {
		logger.WithRental(ctx, r.ID).Info("Agreement signed by both parties")
		s.publisher.Publish(ctx, rentalEvent(domain.EventAgreementSigned, updated))
	} else {
		s.publisher.Publish(ctx, rentalEvent(domain.EventAgreementAccepted, updated, updated.Counterparty(userID)))
	}
	return updated, nil
}

func acceptedBy(r *domain.Rental, party domain.Party) bool {
	if party == domain.PartyOwner {
		return r.AgreementAcceptedByOwner
	}
	return r.AgreementAcceptedByRenter
}
