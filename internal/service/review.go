package service

import (
	"context"
	"errors"
	"fmt"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/repository"
)

type reviewService struct {
	reviewRepo repository.ReviewRepository
	rentalRepo repository.RentalRepository
	publisher  EventPublisher
}

func NewReviewService(reviewRepo repository.ReviewRepository, rentalRepo repository.RentalRepository, publisher EventPublisher) ReviewService {
	return &reviewService{reviewRepo: reviewRepo, rentalRepo: rentalRepo, publisher: publisher}
}

func (s *reviewService) Create(ctx context.Context, reviewerID string, in domain.ReviewInput) (*domain.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, domain.NewValidationError("rating must be between 1 and 5")
	}
	r, err := s.rentalRepo.GetByID(ctx, in.RentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	if !r.IsParticipant(reviewerID) {
		return nil, fmt.Errorf("only rental participants can leave a review: %w", domain.ErrForbidden)
	}
	if r.Status != domain.RentalStatusCompleted {
		return nil, &domain.StateConflictError{RentalID: r.ID, Action: "review", Current: r.Status}
	}

	review := &domain.Review{
		RentalID:   r.ID,
		ReviewerID: reviewerID,
		RevieweeID: r.Counterparty(reviewerID),
		ItemID:     r.ItemID,
		Rating:     in.Rating,
		Comment:    in.Comment,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, domain.NewValidationError("you have already reviewed this rental")
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.publisher.Publish(ctx, rentalEvent(domain.EventReviewReceived, r, review.RevieweeID))
	return review, nil
}

func (s *reviewService) List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error) {
	reviews, err := s.reviewRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (s *reviewService) Stats(ctx context.Context, filter domain.ReviewFilter) (*domain.ReviewStats, error) {
	if filter.RevieweeID == "" && filter.ItemID == "" {
		return nil, domain.NewValidationError("user_id or item_id is required")
	}
	stats, err := s.reviewRepo.Stats(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get review stats: %w", err)
	}
	return stats, nil
}
