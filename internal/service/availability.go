package service

import (
	"context"
	"fmt"
	"time"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/repository"
	"rentshare-backend/internal/utils"
)

// nextAvailableHorizonDays bounds the search for an alternative start date.
const nextAvailableHorizonDays = 365

type availabilityService struct {
	rentalRepo repository.RentalRepository
	blockRepo  repository.AvailabilityBlockRepository
	itemRepo   repository.ItemRepository
	now        func() time.Time
}

func NewAvailabilityService(
	rentalRepo repository.RentalRepository,
	blockRepo repository.AvailabilityBlockRepository,
	itemRepo repository.ItemRepository,
) AvailabilityService {
	return &availabilityService{
		rentalRepo: rentalRepo,
		blockRepo:  blockRepo,
		itemRepo:   itemRepo,
		now:        time.Now,
	}
}

// validateRange rejects empty, inverted and past ranges before any lookup.
func validateRange(start, end, today domain.Date) error {
	if start.IsZero() || end.IsZero() {
		return domain.NewValidationError("start_date and end_date are required")
	}
	if !end.After(start) {
		return domain.NewValidationError("end_date must be after start_date")
	}
	if start.Before(today) {
		return domain.NewValidationError("start_date must not be in the past")
	}
	return nil
}

func (s *availabilityService) Check(ctx context.Context, itemID string, start, end domain.Date, excludeRentalID string) (*domain.AvailabilityResult, error) {
	if err := validateRange(start, end, utils.Today(s.now())); err != nil {
		return nil, err
	}
	if _, err := s.itemRepo.GetByID(ctx, itemID); err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	rentals, err := s.rentalRepo.ListBlocking(ctx, itemID, start)
	if err != nil {
		return nil, fmt.Errorf("failed to list rentals: %w", err)
	}
	blocks, err := s.blockRepo.ListByItem(ctx, itemID, &start)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability blocks: %w", err)
	}

	res := &domain.AvailabilityResult{
		ItemID:    itemID,
		StartDate: start,
		EndDate:   end,
		Conflicts: findConflicts(start, end, rentals, blocks, excludeRentalID),
	}
	res.Available = len(res.Conflicts) == 0
	if !res.Available {
		res.NextAvailableDate = nextAvailableStart(start, start.DaysUntil(end), rentals, blocks, excludeRentalID)
		if res.NextAvailableDate == nil {
			// Nothing fits the requested length within the horizon; fall back
			// to the first free day at all.
			next, err := s.rentalRepo.NextAvailableDate(ctx, itemID)
			if err != nil {
				logger.Warn("Next available date lookup failed", "itemID", itemID, "error", err)
			} else {
				res.NextAvailableDate = next
			}
		}
	}
	return res, nil
}

// findConflicts returns every blocking rental and block overlapping [start, end).
// The result is never nil.
func findConflicts(start, end domain.Date, rentals []domain.Rental, blocks []domain.AvailabilityBlock, excludeRentalID string) []domain.Conflict {
	conflicts := []domain.Conflict{}
	for _, r := range rentals {
		if r.ID == excludeRentalID || !r.Status.BlocksAvailability() {
			continue
		}
		if !utils.Overlaps(start, end, r.StartDate, r.EndDate) {
			continue
		}
		ovStart, ovEnd := utils.Intersection(start, end, r.StartDate, r.EndDate)
		conflicts = append(conflicts, domain.Conflict{
			Kind:         domain.ConflictKindRental,
			ID:           r.ID,
			StartDate:    r.StartDate,
			EndDate:      r.EndDate,
			Status:       r.Status,
			OverlapStart: ovStart,
			OverlapEnd:   ovEnd,
		})
	}
	for _, b := range blocks {
		if !utils.Overlaps(start, end, b.StartDate, b.EndDate) {
			continue
		}
		ovStart, ovEnd := utils.Intersection(start, end, b.StartDate, b.EndDate)
		conflicts = append(conflicts, domain.Conflict{
			Kind:         domain.ConflictKindBlock,
			ID:           b.ID,
			StartDate:    b.StartDate,
			EndDate:      b.EndDate,
			Reason:       b.Reason,
			OverlapStart: ovStart,
			OverlapEnd:   ovEnd,
		})
	}
	return conflicts
}

// nextAvailableStart finds the earliest date on or after from where a range
// of the same length is free, jumping past the latest conflict each round.
func nextAvailableStart(from domain.Date, days int, rentals []domain.Rental, blocks []domain.AvailabilityBlock, excludeRentalID string) *domain.Date {
	limit := from.AddDays(nextAvailableHorizonDays)
	candidate := from
	for !candidate.After(limit) {
		conflicts := findConflicts(candidate, candidate.AddDays(days), rentals, blocks, excludeRentalID)
		if len(conflicts) == 0 {
			return &candidate
		}
		next := candidate.AddDays(1)
		for _, c := range conflicts {
			if c.EndDate.After(next) {
				next = c.EndDate
			}
		}
		candidate = next
	}
	return nil
}

func (s *availabilityService) ListBlocks(ctx context.Context, itemID string) ([]domain.AvailabilityBlock, error) {
	blocks, err := s.blockRepo.ListByItem(ctx, itemID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability blocks: %w", err)
	}
	return blocks, nil
}

func (s *availabilityService) CreateBlock(ctx context.Context, ownerID string, in domain.AvailabilityBlockInput) (*domain.AvailabilityBlock, error) {
	if err := validateRange(in.StartDate, in.EndDate, utils.Today(s.now())); err != nil {
		return nil, err
	}
	item, err := s.itemRepo.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item.OwnerID != ownerID {
		return nil, fmt.Errorf("only the item owner can block dates: %w", domain.ErrForbidden)
	}

	rentals, err := s.rentalRepo.ListBlocking(ctx, in.ItemID, in.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list rentals: %w", err)
	}
	if conflicts := findConflicts(in.StartDate, in.EndDate, rentals, nil, ""); len(conflicts) > 0 {
		return nil, &domain.UnavailableError{Conflicts: conflicts}
	}

	block := &domain.AvailabilityBlock{
		ItemID:    in.ItemID,
		OwnerID:   ownerID,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Reason:    in.Reason,
		Notes:     in.Notes,
	}
	// The repository re-checks under the item lock; a rental paid in between
	// surfaces as ErrUnavailable.
	if err := s.blockRepo.Create(ctx, block); err != nil {
		return nil, err
	}
	return block, nil
}

func (s *availabilityService) DeleteBlock(ctx context.Context, ownerID, blockID string) error {
	block, err := s.blockRepo.GetByID(ctx, blockID)
	if err != nil {
		return fmt.Errorf("failed to get availability block: %w", err)
	}
	if block.OwnerID != ownerID {
		return fmt.Errorf("only the item owner can remove a block: %w", domain.ErrForbidden)
	}
	if err := s.blockRepo.Delete(ctx, blockID); err != nil {
		return fmt.Errorf("failed to delete availability block: %w", err)
	}
	return nil
}
