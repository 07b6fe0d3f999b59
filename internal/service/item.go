package service

import (
	"context"
	"fmt"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/repository"
)

const (
	defaultItemPageSize = 20
	maxItemPageSize     = 100
)

type itemService struct {
	itemRepo repository.ItemRepository
}

func NewItemService(itemRepo repository.ItemRepository) ItemService {
	return &itemService{itemRepo: itemRepo}
}

func (s *itemService) Create(ctx context.Context, ownerID string, in domain.ItemInput) (*domain.Item, error) {
	if in.PricePerDayCents <= 0 {
		return nil, domain.NewValidationError("price_per_day_cents must be greater than 0")
	}
	item := &domain.Item{OwnerID: ownerID, Status: domain.ItemStatusActive}
	applyItemInput(item, in)
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return item, nil
}

func (s *itemService) Get(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item.Status == domain.ItemStatusDeleted {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return item, nil
}

func (s *itemService) Update(ctx context.Context, ownerID, id string, in domain.ItemInput) (*domain.Item, error) {
	item, err := s.ownedItem(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if in.PricePerDayCents <= 0 {
		return nil, domain.NewValidationError("price_per_day_cents must be greater than 0")
	}
	applyItemInput(item, in)
	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

// Delete hides the listing. Existing rentals keep referencing it.
func (s *itemService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.ownedItem(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.itemRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (s *itemService) Search(ctx context.Context, search domain.ItemSearch) ([]domain.Item, int, error) {
	if search.MinPriceCents < 0 || search.MaxPriceCents < 0 {
		return nil, 0, domain.NewValidationError("price filters must not be negative")
	}
	if search.MaxPriceCents > 0 && search.MinPriceCents > search.MaxPriceCents {
		return nil, 0, domain.NewValidationError("min_price must not exceed max_price")
	}
	if search.Page < 1 {
		search.Page = 1
	}
	if search.PageSize < 1 {
		search.PageSize = defaultItemPageSize
	}
	if search.PageSize > maxItemPageSize {
		search.PageSize = maxItemPageSize
	}
	items, total, err := s.itemRepo.Search(ctx, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search items: %w", err)
	}
	return items, total, nil
}

func (s *itemService) ownedItem(ctx context.Context, ownerID, id string) (*domain.Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, fmt.Errorf("only the owner can change this listing: %w", domain.ErrForbidden)
	}
	return item, nil
}

func applyItemInput(item *domain.Item, in domain.ItemInput) {
	item.Title = in.Title
	item.Description = in.Description
	item.Category = in.Category
	item.Location = in.Location
	item.PricePerDayCents = in.PricePerDayCents
	item.SecurityDepositCents = in.SecurityDepositCents
	item.LateFeePerDayCents = in.LateFeePerDayCents
	item.DeliveryAvailable = in.DeliveryAvailable
	item.Images = in.Images
	if item.Images == nil {
		item.Images = []string{}
	}
}
