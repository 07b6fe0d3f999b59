package utils

import (
	"fmt"

	"rentshare-backend/internal/domain"
)

// FeePolicy holds the platform's fee parameters. Percentages are expressed in
// basis points so all arithmetic stays in integer cents.
type FeePolicy struct {
	ServiceFeeBps    int64
	InsuranceFeeBps  int64
	DeliveryFeeCents int64
}

// DefaultFeePolicy is 10% service, 5% insurance and a flat 25.00 delivery surcharge.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		ServiceFeeBps:    1000,
		InsuranceFeeBps:  500,
		DeliveryFeeCents: 2500,
	}
}

// FeeBreakdown is the financial snapshot stored on a rental at booking time.
type FeeBreakdown struct {
	TotalDays         int   `json:"total_days"`
	SubtotalCents     int64 `json:"subtotal_cents"`
	ServiceFeeCents   int64 `json:"service_fee_cents"`
	InsuranceFeeCents int64 `json:"insurance_fee_cents"`
	DeliveryFeeCents  int64 `json:"delivery_fee_cents"`
	TotalCents        int64 `json:"total_cents"`
}

// RentalDays returns the number of billable days in [start, end).
func RentalDays(start, end domain.Date) (int, error) {
	days := start.DaysUntil(end)
	if days <= 0 {
		return 0, fmt.Errorf("end date must be after start date")
	}
	return days, nil
}

// CalculateFees computes the booking breakdown. The total is always the exact
// sum of its parts.
func CalculateFees(pricePerDayCents int64, days int, method domain.DeliveryMethod, policy FeePolicy) (FeeBreakdown, error) {
	if pricePerDayCents < 0 {
		return FeeBreakdown{}, fmt.Errorf("price per day must not be negative")
	}
	if days <= 0 {
		return FeeBreakdown{}, fmt.Errorf("rental must be at least one day")
	}

	subtotal := pricePerDayCents * int64(days)
	b := FeeBreakdown{
		TotalDays:         days,
		SubtotalCents:     subtotal,
		ServiceFeeCents:   percentOf(subtotal, policy.ServiceFeeBps),
		InsuranceFeeCents: percentOf(subtotal, policy.InsuranceFeeBps),
	}
	if method == domain.DeliveryMethodDelivery {
		b.DeliveryFeeCents = policy.DeliveryFeeCents
	}
	b.TotalCents = b.SubtotalCents + b.ServiceFeeCents + b.InsuranceFeeCents + b.DeliveryFeeCents
	return b, nil
}

// percentOf returns amount*bps/10000 rounded half up.
func percentOf(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}

// LateDays is the number of whole days today is past endDate, never negative.
func LateDays(today, endDate domain.Date) int {
	days := endDate.DaysUntil(today)
	if days < 0 {
		return 0
	}
	return days
}

func LateFee(lateDays int, perDayCents int64) int64 {
	if lateDays <= 0 || perDayCents <= 0 {
		return 0
	}
	return int64(lateDays) * perDayCents
}

// DepositReturn is what goes back to the renter after deductions. It is never negative.
func DepositReturn(depositCents, manualDeductionCents, lateFeeCents int64) int64 {
	remaining := depositCents - (manualDeductionCents + lateFeeCents)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ApplyFees copies a breakdown onto a rental.
func ApplyFees(r *domain.Rental, b FeeBreakdown) {
	r.TotalDays = b.TotalDays
	r.SubtotalCents = b.SubtotalCents
	r.ServiceFeeCents = b.ServiceFeeCents
	r.InsuranceFeeCents = b.InsuranceFeeCents
	r.DeliveryFeeCents = b.DeliveryFeeCents
	r.TotalAmountCents = b.TotalCents
}

// FormatCents renders an amount such as 34500 as "345.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
