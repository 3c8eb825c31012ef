// internal/application/menu_service.go
package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/ports"
)

const menuCachePrefix = "menu:"

type MenuItemInput struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description string  `json:"description" binding:"max=500"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Category    string  `json:"category" binding:"required,max=50"`
	Image       string  `json:"image" binding:"max=500"`
	Stock       int     `json:"stock" binding:"gte=0"`
	IsAvailable *bool   `json:"isAvailable"`
}

type MenuItemUpdate struct {
	Name        *string  `json:"name" binding:"omitempty,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=500"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Category    *string  `json:"category" binding:"omitempty,max=50"`
	Image       *string  `json:"image" binding:"omitempty,max=500"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
	IsAvailable *bool    `json:"isAvailable"`
}

type StockOperation string

const (
	StockSet      StockOperation = "set"
	StockAdd      StockOperation = "add"
	StockSubtract StockOperation = "subtract"
)

type StockUpdate struct {
	Operation StockOperation `json:"operation" binding:"required,oneof=set add subtract"`
	Quantity  int            `json:"quantity" binding:"gte=0"`
}

type menuPage struct {
	Items []*domain.MenuItem `json:"items"`
	Total int64              `json:"total"`
}

type MenuService struct {
	repo  ports.MenuRepository
	cache ports.CachePort
}

func NewMenuService(repo ports.MenuRepository, cache ports.CachePort) *MenuService {
	return &MenuService{repo: repo, cache: cache}
}

func (s *MenuService) List(ctx context.Context, filter domain.MenuFilter) ([]*domain.MenuItem, domain.Pagination, error) {
	filter.Page = filter.Page.Normalize()
	key := fmt.Sprintf("%slist:%s:%s:%t:%d:%d", menuCachePrefix,
		strings.ToLower(filter.Category), strings.ToLower(filter.Search), filter.AvailableOnly, filter.Page.Page, filter.Page.Limit)

	var cached menuPage
	if cacheGet(ctx, s.cache, key, &cached) {
		logger.Debugf("menu cache hit %s", key)
		return cached.Items, domain.NewPagination(filter.Page, cached.Total), nil
	}

	items, total, err := s.repo.ListMenuItems(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, errors.Trace(err)
	}
	if items == nil {
		items = []*domain.MenuItem{}
	}
	cacheSet(ctx, s.cache, key, menuPage{Items: items, Total: total}, 0)
	return items, domain.NewPagination(filter.Page, total), nil
}

func (s *MenuService) Get(ctx context.Context, id int64) (*domain.MenuItem, error) {
	key := fmt.Sprintf("%sitem:%d", menuCachePrefix, id)
	var cached domain.MenuItem
	if cacheGet(ctx, s.cache, key, &cached) {
		return &cached, nil
	}
	item, err := s.repo.FindMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}
	cacheSet(ctx, s.cache, key, item, 0)
	return item, nil
}

func (s *MenuService) Categories(ctx context.Context) ([]string, error) {
	key := menuCachePrefix + "categories"
	var cached []string
	if cacheGet(ctx, s.cache, key, &cached) {
		return cached, nil
	}
	cats, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if cats == nil {
		cats = []string{}
	}
	cacheSet(ctx, s.cache, key, cats, 0)
	return cats, nil
}

func (s *MenuService) LowStock(ctx context.Context) ([]*domain.MenuItem, error) {
	return s.repo.LowStockItems(ctx, domain.LowStockThreshold)
}

func (s *MenuService) Create(ctx context.Context, in MenuItemInput) (*domain.MenuItem, error) {
	item := &domain.MenuItem{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       domain.Amount(domain.Cents(in.Price)),
		Category:    strings.TrimSpace(in.Category),
		Image:       in.Image,
		Stock:       in.Stock,
		IsAvailable: true,
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
	if err := validateMenuItem(item); err != nil {
		return nil, err
	}
	if err := s.repo.CreateMenuItem(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return item, nil
}

func (s *MenuService) Update(ctx context.Context, id int64, in MenuItemUpdate) (*domain.MenuItem, error) {
	item, err := s.repo.FindMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		item.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		item.Price = domain.Amount(domain.Cents(*in.Price))
	}
	if in.Category != nil {
		item.Category = strings.TrimSpace(*in.Category)
	}
	if in.Image != nil {
		item.Image = *in.Image
	}
	if in.Stock != nil {
		item.Stock = *in.Stock
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
	if err := validateMenuItem(item); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateMenuItem(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return item, nil
}

// Delete removes a menu item. Items that appear on past orders are marked
// unavailable instead and hidden reports true.
func (s *MenuService) Delete(ctx context.Context, id int64) (hidden bool, err error) {
	err = s.repo.DeleteMenuItem(ctx, id)
	if errors.Is(err, errors.NotValid) {
		item, findErr := s.repo.FindMenuItem(ctx, id)
		if findErr != nil {
			return false, findErr
		}
		item.IsAvailable = false
		if err := s.repo.UpdateMenuItem(ctx, item); err != nil {
			return false, err
		}
		hidden = true
	} else if err != nil {
		return false, err
	}
	s.invalidate(ctx)
	return hidden, nil
}

func (s *MenuService) UpdateStock(ctx context.Context, id int64, op StockOperation, qty int) (*domain.MenuItem, error) {
	if qty < 0 {
		return nil, errors.NewNotValid(nil, "Quantity cannot be negative")
	}
	var (
		item *domain.MenuItem
		err  error
	)
	switch op {
	case StockSet:
		item, err = s.repo.SetStock(ctx, id, qty)
	case StockAdd:
		item, err = s.repo.AdjustStock(ctx, id, qty)
	case StockSubtract:
		item, err = s.repo.AdjustStock(ctx, id, -qty)
	default:
		return nil, errors.NewNotValid(nil, "Operation must be set, add or subtract")
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	if item.LowStock() {
		logger.Warningf("menu item %d (%s) is low on stock: %d left", item.ID, item.Name, item.Stock)
	}
	return item, nil
}

func (s *MenuService) invalidate(ctx context.Context) {
	cacheInvalidate(ctx, s.cache, menuCachePrefix)
}

func validateMenuItem(item *domain.MenuItem) error {
	switch {
	case item.Name == "":
		return errors.NewNotValid(nil, "Name is required")
	case item.Category == "":
		return errors.NewNotValid(nil, "Category is required")
	case item.Price <= 0:
		return errors.NewNotValid(nil, "Price must be greater than 0")
	case item.Stock < 0:
		return errors.NewNotValid(nil, "Stock cannot be negative")
	}
	return nil
}
