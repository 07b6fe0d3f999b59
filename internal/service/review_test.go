package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentshare-backend/internal/domain"
)

func TestReviewService_Create(t *testing.T) {
	ctx := context.Background()

	setup := func(status domain.RentalStatus) (ReviewService, *MockReviewRepo, *MockPublisher) {
		reviewRepo := new(MockReviewRepo)
		rentalRepo := new(MockRentalRepo)
		publisher := new(MockPublisher)
		publisher.On("Publish", mock.Anything, mock.Anything).Return()
		rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(status), nil)
		return NewReviewService(reviewRepo, rentalRepo, publisher), reviewRepo, publisher
	}

	t.Run("Renter reviews the owner", func(t *testing.T) {
		svc, reviewRepo, publisher := setup(domain.RentalStatusCompleted)
		reviewRepo.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)

		review, err := svc.Create(ctx, "renter-1", domain.ReviewInput{RentalID: "rental-1", Rating: 5, Comment: "Great camera"})
		require.NoError(t, err)
		assert.Equal(t, "owner-1", review.RevieweeID)
		assert.Equal(t, "item-1", review.ItemID)
		ev := publisher.Calls[0].Arguments.Get(1).(*domain.OutboxEvent)
		assert.Equal(t, []string{"owner-1"}, ev.Recipients)
	})

	t.Run("Rating out of range", func(t *testing.T) {
		svc, _, _ := setup(domain.RentalStatusCompleted)
		_, err := svc.Create(ctx, "renter-1", domain.ReviewInput{RentalID: "rental-1", Rating: 6})
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = svc.Create(ctx, "renter-1", domain.ReviewInput{RentalID: "rental-1", Rating: 0})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Rental not completed", func(t *testing.T) {
		svc, _, _ := setup(domain.RentalStatusActive)
		_, err := svc.Create(ctx, "renter-1", domain.ReviewInput{RentalID: "rental-1", Rating: 4})
		assert.ErrorIs(t, err, domain.ErrStateConflict)
	})

	t.Run("Stranger cannot review", func(t *testing.T) {
		svc, _, _ := setup(domain.RentalStatusCompleted)
		_, err := svc.Create(ctx, "someone", domain.ReviewInput{RentalID: "rental-1", Rating: 4})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("Second review by the same reviewer", func(t *testing.T) {
		svc, reviewRepo, _ := setup(domain.RentalStatusCompleted)
		reviewRepo.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(domain.NewValidationError("review already exists"))

		_, err := svc.Create(ctx, "owner-1", domain.ReviewInput{RentalID: "rental-1", Rating: 3})
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "you have already reviewed this rental", vErr.Message)
	})
}

func TestReviewService_Stats(t *testing.T) {
	ctx := context.Background()
	reviewRepo := new(MockReviewRepo)
	svc := NewReviewService(reviewRepo, new(MockRentalRepo), new(MockPublisher))

	t.Run("Needs a subject", func(t *testing.T) {
		_, err := svc.Stats(ctx, domain.ReviewFilter{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("By reviewee", func(t *testing.T) {
		filter := domain.ReviewFilter{RevieweeID: "owner-1"}
		reviewRepo.On("Stats", ctx, filter).Return(&domain.ReviewStats{Count: 2, Average: 4.5, Distribution: map[int]int{4: 1, 5: 1}}, nil)

		stats, err := svc.Stats(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, 4.5, stats.Average)
	})
}
