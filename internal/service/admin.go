package service

import (
	"context"
	"time"

	"rentshare-backend/internal/domain"
)

type adminService struct {
	now func() time.Time
}

func NewAdminService() AdminService {
	return &adminService{now: time.Now}
}

// Dashboard returns fixed moderation data. There is no moderation store yet.
func (s *adminService) Dashboard(ctx context.Context) (*domain.AdminDashboard, error) {
	now := s.now().UTC()
	return &domain.AdminDashboard{
		Stats: domain.PlatformStats{
			TotalUsers:     1284,
			ActiveListings: 342,
			ActiveRentals:  57,
			GMVCents:       4821500,
			OpenDisputes:   2,
			PendingReports: 3,
		},
		ReportedListings: []domain.ReportedListing{
			{ItemID: "item-1041", Title: "Professional DSLR camera", Reason: "Suspected counterfeit", Reports: 2, ReportedAt: now.Add(-26 * time.Hour)},
			{ItemID: "item-0977", Title: "Pressure washer", Reason: "Misleading photos", Reports: 1, ReportedAt: now.Add(-50 * time.Hour)},
			{ItemID: "item-1102", Title: "Camping tent (4 person)", Reason: "Price gouging", Reports: 1, ReportedAt: now.Add(-5 * time.Hour)},
		},
		FlaggedUsers: []domain.FlaggedUser{
			{UserID: "user-311", Name: "J. Doe", Reason: "Multiple late returns", FlaggedAt: now.Add(-72 * time.Hour)},
			{UserID: "user-528", Name: "A. Smith", Reason: "Off-platform payment request", FlaggedAt: now.Add(-8 * time.Hour)},
		},
		Disputes: []domain.Dispute{
			{RentalID: "rental-2290", OpenedBy: "owner", Summary: "Lens returned scratched", AmountCents: 15000, Status: "open", OpenedAt: now.Add(-30 * time.Hour)},
			{RentalID: "rental-2315", OpenedBy: "renter", Summary: "Item not available at pickup", AmountCents: 8500, Status: "open", OpenedAt: now.Add(-12 * time.Hour)},
		},
		GeneratedAt: now,
	}, nil
}
