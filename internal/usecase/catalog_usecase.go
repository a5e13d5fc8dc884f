package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"krume-backend/config"
	"krume-backend/internal/domain"
	"krume-backend/internal/pricing"
	"krume-backend/pkg/cache"
	"krume-backend/pkg/utils"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type CatalogUsecase struct {
	repo      domain.ProductRepository
	txManager domain.TransactionManager
	cache     cache.CacheService
	cfg       *config.Config
}

func NewCatalogUsecase(repo domain.ProductRepository, txManager domain.TransactionManager, cache cache.CacheService, cfg *config.Config) *CatalogUsecase {
	return &CatalogUsecase{
		repo:      repo,
		txManager: txManager,
		cache:     cache,
		cfg:       cfg,
	}
}

func productCacheKey(id string) string {
	return "product:" + id
}

// ProductInput is the admin payload. Price and discount are decoded leniently: anything
// that is not a finite number counts as 0.
type ProductInput struct {
	Name            string             `json:"name"`
	Slug            string             `json:"slug"`
	Description     string             `json:"description"`
	Category        string             `json:"category"`
	Price           json.RawMessage    `json:"price"`
	DiscountPercent json.RawMessage    `json:"discountPercent"`
	Sizes           []domain.SizeStock `json:"sizes"`
	Colors          []string           `json:"colors"`
	Images          []string           `json:"images"`
	IsActive        *bool              `json:"isActive"`
}

// amount accepts a JSON number or a numeric string.
func amount(raw json.RawMessage) float64 {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	return pricing.ParseAmount(s)
}

func (in ProductInput) apply(p *domain.Product) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.NewValidationError("product name is required")
	}

	price := amount(in.Price)
	if price < 0 {
		return domain.NewValidationError("price cannot be negative")
	}
	discount := amount(in.DiscountPercent)
	if discount < 0 || discount > 100 {
		return domain.NewValidationError("discountPercent must be between 0 and 100")
	}

	if len(in.Sizes) == 0 {
		return domain.NewValidationError("at least one size is required")
	}
	seen := make(map[string]bool, len(in.Sizes))
	sizes := make([]domain.SizeStock, 0, len(in.Sizes))
	for _, s := range in.Sizes {
		label := strings.TrimSpace(s.Size)
		if label == "" {
			return domain.NewValidationError("size label is required")
		}
		if seen[label] {
			return domain.NewValidationError("duplicate size %q", label)
		}
		if s.Stock < 0 {
			return domain.NewValidationError("stock for size %q cannot be negative", label)
		}
		seen[label] = true
		sizes = append(sizes, domain.SizeStock{Size: label, Stock: s.Stock})
	}

	p.Name = name
	p.Slug = strings.TrimSpace(in.Slug)
	if p.Slug == "" {
		p.Slug = utils.GenerateSlug(name)
	}
	p.Description = in.Description
	p.Category = in.Category
	p.BasePrice = pricing.Round(price)
	p.DiscountPercent = discount
	p.Sizes = sizes
	p.Colors = in.Colors
	p.Images = in.Images
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	// Persist the denormalized pricing with the product.
	p.ApplyPricing(pricing.ForProduct(p))
	p.SyncStock()
	return nil
}

func (uc *CatalogUsecase) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	product := &domain.Product{
		ID:       uuid.NewString(),
		IsActive: true,
	}
	if err := in.apply(product); err != nil {
		return nil, err
	}

	err := uc.txManager.Do(ctx, func(txCtx context.Context) error {
		return uc.repo.Create(txCtx, product)
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

func (uc *CatalogUsecase) UpdateProduct(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewNotFoundError("product not found")
	}
	if err != nil {
		return nil, err
	}

	if err := in.apply(product); err != nil {
		return nil, err
	}

	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		return uc.repo.Update(txCtx, product)
	})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	// Invalidate cache
	uc.cache.Delete(productCacheKey(id))
	return product, nil
}

// ListProducts prices every product on the fly, so list prices follow the current rules
// even for rows written before a rule change.
func (uc *CatalogUsecase) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, domain.Pagination, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, total, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	for i := range products {
		products[i].ApplyPricing(pricing.ForProduct(&products[i]))
	}

	page := filter.Offset/filter.Limit + 1
	return products, domain.NewPagination(page, filter.Limit, total), nil
}

// GetProduct reads through the product cache. Inactive products are only visible to admins.
func (uc *CatalogUsecase) GetProduct(ctx context.Context, id string, includeInactive bool) (*domain.Product, error) {
	key := productCacheKey(id)
	var product *domain.Product
	if val, found := uc.cache.Get(key); found {
		product = val.(*domain.Product)
	} else {
		p, err := uc.repo.GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("product not found")
		}
		if err != nil {
			return nil, err
		}
		p.ApplyPricing(pricing.ForProduct(p))
		uc.cache.Set(key, p, uc.cfg.CacheProductTTL)
		product = p
	}

	if !product.IsActive && !includeInactive {
		return nil, domain.NewNotFoundError("product not found")
	}
	// Callers get a copy; the cached value stays untouched.
	out := *product
	return &out, nil
}
