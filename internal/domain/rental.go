package domain

import "time"

type RentalStatus string

const (
	RentalStatusPending       RentalStatus = "pending"
	RentalStatusPendingPickup RentalStatus = "pending_pickup"
	RentalStatusActive        RentalStatus = "active"
	RentalStatusCompleted     RentalStatus = "completed"
	RentalStatusCancelled     RentalStatus = "cancelled"
)

// rentalTransitions lists every allowed status edge. Anything not listed,
// including staying in the same status, is rejected.
var rentalTransitions = map[RentalStatus][]RentalStatus{
	RentalStatusPending:       {RentalStatusPendingPickup, RentalStatusCancelled},
	RentalStatusPendingPickup: {RentalStatusActive, RentalStatusCancelled},
	RentalStatusActive:        {RentalStatusCompleted},
}

func (s RentalStatus) Valid() bool {
	switch s {
	case RentalStatusPending, RentalStatusPendingPickup, RentalStatusActive, RentalStatusCompleted, RentalStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s RentalStatus) CanTransitionTo(next RentalStatus) bool {
	for _, allowed := range rentalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s RentalStatus) Terminal() bool {
	return len(rentalTransitions[s]) == 0
}

// BlocksAvailability reports whether a rental in this status occupies its dates.
func (s RentalStatus) BlocksAvailability() bool {
	return s == RentalStatusPendingPickup || s == RentalStatusActive
}

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusRefundPending PaymentStatus = "refund_pending"
)

type DeliveryMethod string

const (
	DeliveryMethodPickup   DeliveryMethod = "pickup"
	DeliveryMethodDelivery DeliveryMethod = "delivery"
)

func (m DeliveryMethod) Valid() bool {
	return m == DeliveryMethodPickup || m == DeliveryMethodDelivery
}

// Party identifies which side of a rental a user is on.
type Party string

const (
	PartyNone   Party = ""
	PartyRenter Party = "renter"
	PartyOwner  Party = "owner"
)

type Rental struct {
	ID       string `json:"id"`
	ItemID   string `json:"item_id"`
	RenterID string `json:"renter_id"`
	OwnerID  string `json:"owner_id"`

	// [StartDate, EndDate) as calendar dates.
	StartDate Date `json:"start_date"`
	EndDate   Date `json:"end_date"`

	// Money is in cents. Price fields are snapshots taken from the item at
	// booking time so every amount can be recomputed from the row alone.
	PricePerDayCents     int64 `json:"price_per_day_cents"`
	TotalDays            int   `json:"total_days"`
	SubtotalCents        int64 `json:"subtotal_cents"`
	ServiceFeeCents      int64 `json:"service_fee_cents"`
	InsuranceFeeCents    int64 `json:"insurance_fee_cents"`
	DeliveryFeeCents     int64 `json:"delivery_fee_cents"`
	TotalAmountCents     int64 `json:"total_amount_cents"`
	SecurityDepositCents int64 `json:"security_deposit_cents"`
	LateFeePerDayCents   int64 `json:"late_fee_per_day_cents"`

	LateDays                      int    `json:"late_days"`
	LateFeeAmountCents            int64  `json:"late_fee_amount_cents"`
	SecurityDepositDeductionCents int64  `json:"security_deposit_deduction_cents"`
	SecurityDepositReturnedCents  int64  `json:"security_deposit_returned_cents"`
	SecurityDepositReason         string `json:"security_deposit_reason,omitempty"`
	DamageReported                bool   `json:"damage_reported"`
	DamageDescription             string `json:"damage_description,omitempty"`

	Status        RentalStatus  `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	PickupConfirmedAt *time.Time `json:"pickup_confirmed_at,omitempty"`
	PickupConfirmedBy *string    `json:"pickup_confirmed_by,omitempty"`
	ReturnInitiatedAt *time.Time `json:"return_initiated_at,omitempty"`
	ReturnInitiatedBy *string    `json:"return_initiated_by,omitempty"`
	ReturnConfirmedAt *time.Time `json:"return_confirmed_at,omitempty"`
	ReturnConfirmedBy *string    `json:"return_confirmed_by,omitempty"`
	ActualReturnDate  *Date      `json:"actual_return_date,omitempty"`

	AgreementText             *string    `json:"agreement_text,omitempty"`
	AgreementGeneratedAt      *time.Time `json:"agreement_generated_at,omitempty"`
	AgreementAcceptedByOwner  bool       `json:"agreement_accepted_by_owner"`
	AgreementAcceptedByRenter bool       `json:"agreement_accepted_by_renter"`
	AgreementSignedAt         *time.Time `json:"agreement_signed_at,omitempty"`

	DeliveryMethod      DeliveryMethod `json:"delivery_method"`
	DeliveryAddress     string         `json:"delivery_address,omitempty"`
	SpecialInstructions string         `json:"special_instructions,omitempty"`

	StripeSessionID       string `json:"stripe_session_id,omitempty"`
	StripePaymentIntentID string `json:"stripe_payment_intent_id,omitempty"`
	CancellationReason    string `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PartyOf returns which side of the rental userID is on.
func (r *Rental) PartyOf(userID string) Party {
	switch userID {
	case "":
		return PartyNone
	case r.RenterID:
		return PartyRenter
	case r.OwnerID:
		return PartyOwner
	}
	return PartyNone
}

func (r *Rental) IsParticipant(userID string) bool {
	return r.PartyOf(userID) != PartyNone
}

// Counterparty returns the other participant's id.
func (r *Rental) Counterparty(userID string) string {
	if userID == r.RenterID {
		return r.OwnerID
	}
	return r.RenterID
}

// Phase is a display-only refinement of Status: an active rental whose
// return has been initiated reports "return_initiated".
func (r *Rental) Phase() string {
	if r.Status == RentalStatusActive && r.ReturnInitiatedAt != nil {
		return "return_initiated"
	}
	return string(r.Status)
}

// RentalRole filters rental listings by the caller's side.
type RentalRole string

const (
	RentalRoleRenter RentalRole = "renter"
	RentalRoleOwner  RentalRole = "owner"
)

// NewRentalRequest is the input to a booking.
type NewRentalRequest struct {
	ItemID              string         `json:"item_id" validate:"required"`
	StartDate           Date           `json:"start_date" validate:"required"`
	EndDate             Date           `json:"end_date" validate:"required"`
	DeliveryMethod      DeliveryMethod `json:"delivery_method" validate:"required,oneof=pickup delivery"`
	DeliveryAddress     string         `json:"delivery_address" validate:"required_if=DeliveryMethod delivery,max=500"`
	SpecialInstructions string         `json:"special_instructions" validate:"max=1000"`
}

// ReturnConfirmation is the owner's input when closing a rental.
type ReturnConfirmation struct {
	DeductionCents    int64  `json:"security_deposit_deduction_cents" validate:"gte=0"`
	DeductionReason   string `json:"security_deposit_reason" validate:"max=1000"`
	DamageReported    bool   `json:"damage_reported"`
	DamageDescription string `json:"damage_description" validate:"max=2000"`
}

// OverdueRental is an active rental past its end date with derived late charges.
type OverdueRental struct {
	Rental             Rental `json:"rental"`
	ItemTitle          string `json:"item_title"`
	LateDays           int    `json:"late_days"`
	LateFeeAmountCents int64  `json:"late_fee_amount_cents"`
}

// RentalFilter narrows rental listings. Empty fields match everything.
type RentalFilter struct {
	UserID string
	Role   RentalRole
	Status RentalStatus
	ItemID string
}

// ReturnSettlement is everything written when an owner confirms a return.
type ReturnSettlement struct {
	ConfirmedBy          string
	ConfirmedAt          time.Time
	ActualReturnDate     Date
	LateDays             int
	LateFeeAmountCents   int64
	DeductionCents       int64
	DepositReturnedCents int64
	DeductionReason      string
	DamageReported       bool
	DamageDescription    string
}
