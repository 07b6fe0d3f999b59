package domain

import "time"

// AdminDashboard is the moderation overview. Its content is static sample data.
type AdminDashboard struct {
	Stats            PlatformStats     `json:"stats"`
	ReportedListings []ReportedListing `json:"reported_listings"`
	FlaggedUsers     []FlaggedUser     `json:"flagged_users"`
	Disputes         []Dispute         `json:"disputes"`
	GeneratedAt      time.Time         `json:"generated_at"`
}

type PlatformStats struct {
	TotalUsers     int   `json:"total_users"`
	ActiveListings int   `json:"active_listings"`
	ActiveRentals  int   `json:"active_rentals"`
	GMVCents       int64 `json:"gmv_cents"`
	OpenDisputes   int   `json:"open_disputes"`
	PendingReports int   `json:"pending_reports"`
}

type ReportedListing struct {
	ItemID     string    `json:"item_id"`
	Title      string    `json:"title"`
	Reason     string    `json:"reason"`
	Reports    int       `json:"reports"`
	ReportedAt time.Time `json:"reported_at"`
}

type FlaggedUser struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Reason    string    `json:"reason"`
	FlaggedAt time.Time `json:"flagged_at"`
}

type Dispute struct {
	RentalID    string    `json:"rental_id"`
	OpenedBy    string    `json:"opened_by"`
	Summary     string    `json:"summary"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	OpenedAt    time.Time `json:"opened_at"`
}
