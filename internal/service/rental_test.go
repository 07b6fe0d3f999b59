package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/utils"
)

type rentalFixture struct {
	svc        *rentalService
	rentalRepo *MockRentalRepo
	itemRepo   *MockItemRepo
	blockRepo  *MockBlockRepo
	publisher  *MockPublisher
	gateway    *MockGateway
}

func newRentalFixture(now time.Time) *rentalFixture {
	f := &rentalFixture{
		rentalRepo: new(MockRentalRepo),
		itemRepo:   new(MockItemRepo),
		blockRepo:  new(MockBlockRepo),
		publisher:  new(MockPublisher),
		gateway:    new(MockGateway),
	}
	f.svc = NewRentalService(f.rentalRepo, f.itemRepo, f.blockRepo, f.publisher, f.gateway, utils.DefaultFeePolicy()).(*rentalService)
	f.svc.now = fixedNow(now)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return()
	return f
}

func day(d int) domain.Date { return domain.NewDate(2024, 1, d) }

func testItem() *domain.Item {
	return &domain.Item{
		ID:                   "item-1",
		OwnerID:              "owner-1",
		Title:                "Camera",
		PricePerDayCents:     10000,
		SecurityDepositCents: 20000,
		LateFeePerDayCents:   1000,
		DeliveryAvailable:    true,
		Status:               domain.ItemStatusActive,
	}
}

func testRental(status domain.RentalStatus) *domain.Rental {
	return &domain.Rental{
		ID:                   "rental-1",
		ItemID:               "item-1",
		RenterID:             "renter-1",
		OwnerID:              "owner-1",
		StartDate:            day(5),
		EndDate:              day(10),
		PricePerDayCents:     10000,
		TotalDays:            5,
		SubtotalCents:        50000,
		ServiceFeeCents:      5000,
		InsuranceFeeCents:    2500,
		TotalAmountCents:     57500,
		SecurityDepositCents: 20000,
		LateFeePerDayCents:   1000,
		Status:               status,
		PaymentStatus:        domain.PaymentStatusUnpaid,
		DeliveryMethod:       domain.DeliveryMethodPickup,
	}
}

func TestRentalService_CreateRental(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Pickup booking totals 345.00", func(t *testing.T) {
		f := newRentalFixture(now)
		f.itemRepo.On("GetByID", ctx, "item-1").Return(testItem(), nil)
		f.rentalRepo.On("ListBlocking", ctx, "item-1", day(2)).Return([]domain.Rental{}, nil)
		f.blockRepo.On("ListByItem", ctx, "item-1", mock.Anything).Return([]domain.AvailabilityBlock{}, nil)
		f.rentalRepo.On("Create", ctx, mock.AnythingOfType("*domain.Rental")).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Rental).ID = "rental-new"
		}).Return(nil)

		r, err := f.svc.CreateRental(ctx, "renter-1", domain.NewRentalRequest{
			ItemID:         "item-1",
			StartDate:      day(2),
			EndDate:        day(5),
			DeliveryMethod: domain.DeliveryMethodPickup,
		})
		require.NoError(t, err)
		assert.Equal(t, "rental-new", r.ID)
		assert.Equal(t, 3, r.TotalDays)
		assert.Equal(t, int64(30000), r.SubtotalCents)
		assert.Equal(t, int64(3000), r.ServiceFeeCents)
		assert.Equal(t, int64(1500), r.InsuranceFeeCents)
		assert.Equal(t, int64(34500), r.TotalAmountCents)
		assert.Equal(t, domain.RentalStatusPending, r.Status)
		assert.Equal(t, domain.PaymentStatusUnpaid, r.PaymentStatus)
		assert.Equal(t, "owner-1", r.OwnerID)
		assert.Equal(t, int64(20000), r.SecurityDepositCents)
		assert.Equal(t, []domain.EventType{domain.EventRentalRequested}, f.publisher.published())
	})

	t.Run("Delivery booking totals 370.00", func(t *testing.T) {
		f := newRentalFixture(now)
		f.itemRepo.On("GetByID", ctx, "item-1").Return(testItem(), nil)
		f.rentalRepo.On("ListBlocking", ctx, "item-1", day(2)).Return([]domain.Rental{}, nil)
		f.blockRepo.On("ListByItem", ctx, "item-1", mock.Anything).Return([]domain.AvailabilityBlock{}, nil)
		f.rentalRepo.On("Create", ctx, mock.AnythingOfType("*domain.Rental")).Return(nil)

		r, err := f.svc.CreateRental(ctx, "renter-1", domain.NewRentalRequest{
			ItemID:          "item-1",
			StartDate:       day(2),
			EndDate:         day(5),
			DeliveryMethod:  domain.DeliveryMethodDelivery,
			DeliveryAddress: "1 Main St",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2500), r.DeliveryFeeCents)
		assert.Equal(t, int64(37000), r.TotalAmountCents)
	})

	t.Run("Owner cannot rent own item", func(t *testing.T) {
		f := newRentalFixture(now)
		f.itemRepo.On("GetByID", ctx, "item-1").Return(testItem(), nil)

		_, err := f.svc.CreateRental(ctx, "owner-1", domain.NewRentalRequest{
			ItemID: "item-1", StartDate: day(2), EndDate: day(5), DeliveryMethod: domain.DeliveryMethodPickup,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
		f.rentalRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Past start date rejected", func(t *testing.T) {
		f := newRentalFixture(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
		_, err := f.svc.CreateRental(ctx, "renter-1", domain.NewRentalRequest{
			ItemID: "item-1", StartDate: day(2), EndDate: day(5), DeliveryMethod: domain.DeliveryMethodPickup,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
		f.itemRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("Inverted range rejected", func(t *testing.T) {
		f := newRentalFixture(now)
		_, err := f.svc.CreateRental(ctx, "renter-1", domain.NewRentalRequest{
			ItemID: "item-1", StartDate: day(5), EndDate: day(5), DeliveryMethod: domain.DeliveryMethodPickup,
		})
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Message, "end_date must be after start_date")
	})

	t.Run("Delivery needs an address", func(t *testing.T) {
		f := newRentalFixture(now)
		_, err := f.svc.CreateRental(ctx, "renter-1", domain.NewRentalRequest{
			ItemID: "item-1", StartDate: day(2), EndDate: day(5), DeliveryMethod: domain.DeliveryMethodDelivery,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Overlapping confirmed rental is reported with next date", func(t *testing.T) {
		f := newRentalFixture(now)
		taken := *testRental(domain.RentalStatusPendingPickup)
		taken.ID = "rental-taken"
		taken.StartDate, taken.EndDate = day(3), day(6)
		f.itemRepo.On("GetByID", ctx, "item-1").Return(testItem(), nil)
		f.rentalRepo.On("ListBlocking", ctx, "item-1", day(2)).Return([]domain.Rental{taken}, nil)
		f.blockRepo.On("ListByItem", ctx, "item-1", mock.Anything).Return([]domain.AvailabilityBlock{}, nil)

		_, err := f.svc.CreateRental(ctx, "renter-1", domain.NewRentalRequest{
			ItemID: "item-1", StartDate: day(2), EndDate: day(5), DeliveryMethod: domain.DeliveryMethodPickup,
		})
		var uErr *domain.UnavailableError
		require.ErrorAs(t, err, &uErr)
		require.Len(t, uErr.Conflicts, 1)
		assert.Equal(t, "rental-taken", uErr.Conflicts[0].ID)
		assert.Equal(t, day(3), uErr.Conflicts[0].OverlapStart)
		assert.Equal(t, day(5), uErr.Conflicts[0].OverlapEnd)
		require.NotNil(t, uErr.NextAvailableDate)
		assert.Equal(t, day(6), *uErr.NextAvailableDate)
		f.rentalRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Pending rentals do not block", func(t *testing.T) {
		f := newRentalFixture(now)
		other := *testRental(domain.RentalStatusPending)
		other.StartDate, other.EndDate = day(2), day(5)
		f.itemRepo.On("GetByID", ctx, "item-1").Return(testItem(), nil)
		f.rentalRepo.On("ListBlocking", ctx, "item-1", day(2)).Return([]domain.Rental{other}, nil)
		f.blockRepo.On("ListByItem", ctx, "item-1", mock.Anything).Return([]domain.AvailabilityBlock{}, nil)
		f.rentalRepo.On("Create", ctx, mock.AnythingOfType("*domain.Rental")).Return(nil)

		_, err := f.svc.CreateRental(ctx, "renter-1", domain.NewRentalRequest{
			ItemID: "item-1", StartDate: day(2), EndDate: day(5), DeliveryMethod: domain.DeliveryMethodPickup,
		})
		assert.NoError(t, err)
	})

	t.Run("Locked insert losing the race surfaces unavailable", func(t *testing.T) {
		f := newRentalFixture(now)
		f.itemRepo.On("GetByID", ctx, "item-1").Return(testItem(), nil)
		f.rentalRepo.On("ListBlocking", ctx, "item-1", day(2)).Return([]domain.Rental{}, nil)
		f.blockRepo.On("ListByItem", ctx, "item-1", mock.Anything).Return([]domain.AvailabilityBlock{}, nil)
		f.rentalRepo.On("Create", ctx, mock.AnythingOfType("*domain.Rental")).Return(&domain.UnavailableError{})

		_, err := f.svc.CreateRental(ctx, "renter-1", domain.NewRentalRequest{
			ItemID: "item-1", StartDate: day(2), EndDate: day(5), DeliveryMethod: domain.DeliveryMethodPickup,
		})
		assert.ErrorIs(t, err, domain.ErrUnavailable)
		assert.Empty(t, f.publisher.published())
	})
}

func TestRentalService_GetRental(t *testing.T) {
	ctx := context.Background()
	f := newRentalFixture(time.Now())
	f.rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(domain.RentalStatusPending), nil)

	t.Run("Participant", func(t *testing.T) {
		r, err := f.svc.GetRental(ctx, "owner-1", "rental-1")
		require.NoError(t, err)
		assert.Equal(t, "rental-1", r.ID)
	})

	t.Run("Stranger", func(t *testing.T) {
		_, err := f.svc.GetRental(ctx, "someone", "rental-1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestRentalService_ConfirmPickup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		f := newRentalFixture(now)
		before := testRental(domain.RentalStatusPendingPickup)
		after := testRental(domain.RentalStatusActive)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(before, nil).Once()
		f.rentalRepo.On("ConfirmPickup", ctx, "rental-1", "renter-1", now).Return(true, nil)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(after, nil).Once()

		r, err := f.svc.ConfirmPickup(ctx, "renter-1", "rental-1")
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusActive, r.Status)
		assert.Equal(t, []domain.EventType{domain.EventPickupConfirmed}, f.publisher.published())
	})

	t.Run("Already active is rejected and nothing changes", func(t *testing.T) {
		f := newRentalFixture(now)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(domain.RentalStatusActive), nil)

		_, err := f.svc.ConfirmPickup(ctx, "renter-1", "rental-1")
		var sErr *domain.StateConflictError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, domain.RentalStatusActive, sErr.Current)
		f.rentalRepo.AssertNotCalled(t, "ConfirmPickup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, f.publisher.published())
	})

	t.Run("Owner cannot confirm pickup", func(t *testing.T) {
		f := newRentalFixture(now)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(domain.RentalStatusPendingPickup), nil)

		_, err := f.svc.ConfirmPickup(ctx, "owner-1", "rental-1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("Concurrent change reports the winning state", func(t *testing.T) {
		f := newRentalFixture(now)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(domain.RentalStatusPendingPickup), nil).Once()
		f.rentalRepo.On("ConfirmPickup", ctx, "rental-1", "renter-1", now).Return(false, nil)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(domain.RentalStatusCancelled), nil).Once()

		_, err := f.svc.ConfirmPickup(ctx, "renter-1", "rental-1")
		var sErr *domain.StateConflictError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, domain.RentalStatusCancelled, sErr.Current)
		assert.Equal(t, "rental changed concurrently", sErr.Reason)
	})
}

func TestRentalService_Return(t *testing.T) {
	ctx := context.Background()
	// Three days after the rental's end date of Jan 10.
	now := time.Date(2024, 1, 13, 15, 0, 0, 0, time.UTC)

	t.Run("Initiate return records late days", func(t *testing.T) {
		f := newRentalFixture(now)
		after := testRental(domain.RentalStatusActive)
		after.ReturnInitiatedAt = &now
		after.LateDays = 3
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(domain.RentalStatusActive), nil).Once()
		f.rentalRepo.On("InitiateReturn", ctx, "rental-1", "renter-1", now, 3).Return(true, nil)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(after, nil).Once()

		r, err := f.svc.InitiateReturn(ctx, "renter-1", "rental-1")
		require.NoError(t, err)
		assert.Equal(t, "return_initiated", r.Phase())
		assert.Equal(t, []domain.EventType{domain.EventReturnInitiated}, f.publisher.published())
	})

	t.Run("Initiate twice is rejected", func(t *testing.T) {
		f := newRentalFixture(now)
		r := testRental(domain.RentalStatusActive)
		r.ReturnInitiatedAt = &now
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(r, nil)

		_, err := f.svc.InitiateReturn(ctx, "renter-1", "rental-1")
		assert.ErrorIs(t, err, domain.ErrStateConflict)
	})

	t.Run("Confirm return charges three late days", func(t *testing.T) {
		f := newRentalFixture(now)
		initiated := testRental(domain.RentalStatusActive)
		initiated.ReturnInitiatedAt = &now
		completed := testRental(domain.RentalStatusCompleted)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(initiated, nil).Once()
		f.rentalRepo.On("ConfirmReturn", ctx, "rental-1", mock.MatchedBy(func(s domain.ReturnSettlement) bool {
			return s.LateDays == 3 &&
				s.LateFeeAmountCents == 3000 &&
				s.DeductionCents == 2000 &&
				s.DepositReturnedCents == 15000 &&
				s.ActualReturnDate.Equal(day(13)) &&
				s.ConfirmedBy == "owner-1"
		})).Return(true, nil)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(completed, nil).Once()

		r, err := f.svc.ConfirmReturn(ctx, "owner-1", "rental-1", domain.ReturnConfirmation{
			DeductionCents:  2000,
			DeductionReason: "scratched lens cap",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusCompleted, r.Status)
		f.rentalRepo.AssertExpectations(t)
	})

	t.Run("Owner delay after handover is not charged", func(t *testing.T) {
		f := newRentalFixture(now)
		handedOver := time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC)
		initiated := testRental(domain.RentalStatusActive)
		initiated.ReturnInitiatedAt = &handedOver
		initiated.LateDays = 1
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(initiated, nil).Once()
		f.rentalRepo.On("ConfirmReturn", ctx, "rental-1", mock.MatchedBy(func(s domain.ReturnSettlement) bool {
			return s.LateDays == 1 &&
				s.LateFeeAmountCents == 1000 &&
				s.ActualReturnDate.Equal(day(13))
		})).Return(true, nil)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(domain.RentalStatusCompleted), nil).Once()

		_, err := f.svc.ConfirmReturn(ctx, "owner-1", "rental-1", domain.ReturnConfirmation{})
		require.NoError(t, err)
		f.rentalRepo.AssertExpectations(t)
	})

	t.Run("Confirm before initiation is rejected", func(t *testing.T) {
		f := newRentalFixture(now)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(domain.RentalStatusActive), nil)

		_, err := f.svc.ConfirmReturn(ctx, "owner-1", "rental-1", domain.ReturnConfirmation{})
		var sErr *domain.StateConflictError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, "return has not been initiated", sErr.Reason)
	})

	t.Run("Renter cannot confirm return", func(t *testing.T) {
		f := newRentalFixture(now)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(domain.RentalStatusActive), nil)

		_, err := f.svc.ConfirmReturn(ctx, "renter-1", "rental-1", domain.ReturnConfirmation{})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("Damage needs a description", func(t *testing.T) {
		f := newRentalFixture(now)
		_, err := f.svc.ConfirmReturn(ctx, "owner-1", "rental-1", domain.ReturnConfirmation{DamageReported: true})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestRentalService_Cancel(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("Unpaid pending rental", func(t *testing.T) {
		f := newRentalFixture(now)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(domain.RentalStatusPending), nil).Once()
		f.rentalRepo.On("Cancel", ctx, "rental-1", cancellableStatuses, "changed plans", domain.PaymentStatus("")).Return(true, nil)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(domain.RentalStatusCancelled), nil).Once()

		r, err := f.svc.Cancel(ctx, "renter-1", "rental-1", "changed plans")
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusCancelled, r.Status)
		f.gateway.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, []domain.EventType{domain.EventRentalCancelled}, f.publisher.published())
	})

	t.Run("Paid rental is refunded", func(t *testing.T) {
		f := newRentalFixture(now)
		paid := testRental(domain.RentalStatusPendingPickup)
		paid.PaymentStatus = domain.PaymentStatusPaid
		paid.StripePaymentIntentID = "pi_1"
		cancelled := testRental(domain.RentalStatusCancelled)
		cancelled.PaymentStatus = domain.PaymentStatusRefundPending
		cancelled.StripePaymentIntentID = "pi_1"
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(paid, nil).Once()
		f.rentalRepo.On("Cancel", ctx, "rental-1", cancellableStatuses, "cancelled by owner", domain.PaymentStatusRefundPending).Return(true, nil)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(cancelled, nil).Once()
		f.gateway.On("Refund", ctx, "pi_1", int64(0)).Return(nil)
		f.rentalRepo.On("SetPaymentStatus", ctx, "rental-1", domain.PaymentStatusRefunded).Return(nil)

		r, err := f.svc.Cancel(ctx, "owner-1", "rental-1", "")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusRefunded, r.PaymentStatus)
		f.gateway.AssertExpectations(t)
	})

	t.Run("Failed refund leaves cancellation in place", func(t *testing.T) {
		f := newRentalFixture(now)
		paid := testRental(domain.RentalStatusPendingPickup)
		paid.PaymentStatus = domain.PaymentStatusPaid
		paid.StripePaymentIntentID = "pi_1"
		cancelled := testRental(domain.RentalStatusCancelled)
		cancelled.PaymentStatus = domain.PaymentStatusRefundPending
		cancelled.StripePaymentIntentID = "pi_1"
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(paid, nil).Once()
		f.rentalRepo.On("Cancel", ctx, "rental-1", cancellableStatuses, mock.Anything, domain.PaymentStatusRefundPending).Return(true, nil)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(cancelled, nil).Once()
		f.gateway.On("Refund", ctx, "pi_1", int64(0)).Return(errors.New("stripe down"))

		r, err := f.svc.Cancel(ctx, "renter-1", "rental-1", "")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusRefundPending, r.PaymentStatus)
		f.rentalRepo.AssertNotCalled(t, "SetPaymentStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Active rental cannot be cancelled", func(t *testing.T) {
		f := newRentalFixture(now)
		f.rentalRepo.On("GetByID", ctx, "rental-1").Return(testRental(domain.RentalStatusActive), nil)

		_, err := f.svc.Cancel(ctx, "renter-1", "rental-1", "")
		assert.ErrorIs(t, err, domain.ErrStateConflict)
		f.rentalRepo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRentalService_ListRentals(t *testing.T) {
	ctx := context.Background()
	f := newRentalFixture(time.Now())

	t.Run("Filters are passed through", func(t *testing.T) {
		filter := domain.RentalFilter{UserID: "owner-1", Role: domain.RentalRoleOwner, Status: domain.RentalStatusActive}
		f.rentalRepo.On("List", ctx, filter).Return([]domain.Rental{*testRental(domain.RentalStatusActive)}, nil)

		rentals, err := f.svc.ListRentals(ctx, "owner-1", domain.RentalRoleOwner, domain.RentalStatusActive)
		require.NoError(t, err)
		assert.Len(t, rentals, 1)
	})

	t.Run("Unknown role", func(t *testing.T) {
		_, err := f.svc.ListRentals(ctx, "owner-1", "lender", "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Unknown status", func(t *testing.T) {
		_, err := f.svc.ListRentals(ctx, "owner-1", "", "lost")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestRentalService_OverdueAndReminders(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 13, 6, 0, 0, 0, time.UTC)

	t.Run("Overdue rentals carry late charges", func(t *testing.T) {
		f := newRentalFixture(now)
		f.rentalRepo.On("ListOverdue", ctx, day(13)).Return([]domain.OverdueRental{
			{Rental: *testRental(domain.RentalStatusActive), ItemTitle: "Camera"},
		}, nil)

		overdue, err := f.svc.NotifyOverdue(ctx)
		require.NoError(t, err)
		require.Len(t, overdue, 1)
		assert.Equal(t, 3, overdue[0].LateDays)
		assert.Equal(t, int64(3000), overdue[0].LateFeeAmountCents)

		ev := f.publisher.Calls[0].Arguments.Get(1).(*domain.OutboxEvent)
		assert.Equal(t, domain.EventRentalOverdue, ev.Type)
		assert.ElementsMatch(t, []string{"renter-1", "owner-1"}, ev.Recipients)
		assert.Contains(t, ev.Body, "3 day(s) late")
		assert.Equal(t, "3", ev.Payload["late_days"])
	})

	t.Run("Reminders for tomorrow", func(t *testing.T) {
		f := newRentalFixture(now)
		f.rentalRepo.On("ListPickupsOn", ctx, day(14)).Return([]domain.Rental{*testRental(domain.RentalStatusPendingPickup)}, nil)
		f.rentalRepo.On("ListReturnsDueOn", ctx, day(14)).Return([]domain.Rental{
			*testRental(domain.RentalStatusActive), *testRental(domain.RentalStatusActive),
		}, nil)

		n, err := f.svc.SendReminders(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []domain.EventType{
			domain.EventPickupReminder, domain.EventReturnReminder, domain.EventReturnReminder,
		}, f.publisher.published())
	})
}
