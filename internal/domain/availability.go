package domain

import "time"

type AvailabilityBlock struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	OwnerID   string    `json:"owner_id"`
	StartDate Date      `json:"start_date"`
	EndDate   Date      `json:"end_date"`
	Reason    string    `json:"reason,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ConflictKind string

const (
	ConflictKindRental ConflictKind = "rental"
	ConflictKindBlock  ConflictKind = "block"
)

// Conflict explains why part of a requested range cannot be booked.
type Conflict struct {
	Kind         ConflictKind `json:"kind"`
	ID           string       `json:"id"`
	StartDate    Date         `json:"start_date"`
	EndDate      Date         `json:"end_date"`
	Status       RentalStatus `json:"status,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	OverlapStart Date         `json:"overlap_start"`
	OverlapEnd   Date         `json:"overlap_end"`
}

type AvailabilityResult struct {
	ItemID            string     `json:"item_id"`
	StartDate         Date       `json:"start_date"`
	EndDate           Date       `json:"end_date"`
	Available         bool       `json:"available"`
	Conflicts         []Conflict `json:"conflicts"`
	NextAvailableDate *Date      `json:"next_available_date,omitempty"`
}

type AvailabilityBlockInput struct {
	ItemID    string `json:"item_id" validate:"required"`
	StartDate Date   `json:"start_date" validate:"required"`
	EndDate   Date   `json:"end_date" validate:"required"`
	Reason    string `json:"reason" validate:"max=200"`
	Notes     string `json:"notes" validate:"max=1000"`
}
