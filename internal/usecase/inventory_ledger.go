package usecase

import (
	"context"
	"errors"
	"fmt"

	"krume-backend/internal/domain"
	"krume-backend/internal/infrastructure/metrics"
	"krume-backend/pkg/cache"
	"krume-backend/pkg/logger"
)

// InventoryLedger moves per-size stock. There is no lower bound: a debit may drive stock
// negative, and the AddItem check is the only guard.
type InventoryLedger struct {
	productRepo domain.ProductRepository
	cache       cache.CacheService
	metrics     *metrics.Metrics
}

func NewInventoryLedger(productRepo domain.ProductRepository, c cache.CacheService, m *metrics.Metrics) *InventoryLedger {
	return &InventoryLedger{productRepo: productRepo, cache: c, metrics: m}
}

// Debit removes quantity units sold under orderID.
func (l *InventoryLedger) Debit(ctx context.Context, productID, size string, quantity int, orderID string) error {
	if quantity <= 0 {
		return domain.NewValidationError("stock movement quantity must be positive")
	}
	return l.move(ctx, productID, size, -quantity, domain.StockReasonOrderPlaced, orderID)
}

// Credit puts quantity units back, e.g. on cancellation or refund.
func (l *InventoryLedger) Credit(ctx context.Context, productID, size string, quantity int, reason, orderID string) error {
	if quantity <= 0 {
		return domain.NewValidationError("stock movement quantity must be positive")
	}
	return l.move(ctx, productID, size, quantity, reason, orderID)
}

func (l *InventoryLedger) move(ctx context.Context, productID, size string, delta int, reason, ref string) (err error) {
	defer func() { l.metrics.StockMovement(reason, err) }()

	touched, err := l.productRepo.AdjustSizeStock(ctx, productID, size, delta)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewNotFoundError("product %s has no stock record", productID)
	}
	if err != nil {
		return fmt.Errorf("adjust stock of %s/%s: %w", productID, size, err)
	}
	l.cache.Delete(productCacheKey(productID))

	entry := &domain.InventoryLog{
		ProductID:    productID,
		Size:         touched,
		ChangeAmount: delta,
		Reason:       reason,
		ReferenceID:  ref,
	}
	if logErr := l.productRepo.CreateInventoryLog(ctx, entry); logErr != nil {
		// The counter already moved; a missing log row is only an audit gap.
		logger.WithContext(ctx).Warn().Err(logErr).
			Str("product_id", productID).
			Str("size", touched).
			Int("delta", delta).
			Msg("Failed to write inventory log")
	}
	return nil
}
