package domain

import "time"

type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusInactive ItemStatus = "inactive"
	ItemStatusDeleted  ItemStatus = "deleted"
)

type Item struct {
	ID                   string     `json:"id"`
	OwnerID              string     `json:"owner_id"`
	Owner                *Profile   `json:"owner,omitempty"` // Populated when fetching item details
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Category             string     `json:"category"`
	Location             string     `json:"location"`
	PricePerDayCents     int64      `json:"price_per_day_cents"`
	SecurityDepositCents int64      `json:"security_deposit_cents"`
	LateFeePerDayCents   int64      `json:"late_fee_per_day_cents"`
	DeliveryAvailable    bool       `json:"delivery_available"`
	Images               []string   `json:"images"`
	Status               ItemStatus `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// ItemInput carries the writable listing fields.
type ItemInput struct {
	Title                string   `json:"title" validate:"required,min=3,max=120"`
	Description          string   `json:"description" validate:"max=5000"`
	Category             string   `json:"category" validate:"required,max=60"`
	Location             string   `json:"location" validate:"max=200"`
	PricePerDayCents     int64    `json:"price_per_day_cents" validate:"gt=0"`
	SecurityDepositCents int64    `json:"security_deposit_cents" validate:"gte=0"`
	LateFeePerDayCents   int64    `json:"late_fee_per_day_cents" validate:"gte=0"`
	DeliveryAvailable    bool     `json:"delivery_available"`
	Images               []string `json:"images" validate:"max=10,dive,url"`
}

type ItemSearch struct {
	Query         string
	Category      string
	Location      string
	MinPriceCents int64
	MaxPriceCents int64
	OwnerID       string
	Page          int
	PageSize      int
}
