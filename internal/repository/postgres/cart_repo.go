package pgrepo

import (
	"context"
	"fmt"
	"time"

	"krume-backend/internal/domain"

	"github.com/goccy/go-json"
)

// The cart is one row per user with its items kept as a JSONB document.
type cartRepository struct {
	db DBTX
}

func NewCartRepository(db DBTX) domain.CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	var items []byte
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT user_id, items, applied_coupon, created_at, updated_at
		FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.UserID, &items, &cart.AppliedCoupon, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	if err := json.Unmarshal(items, &cart.Items); err != nil {
		return nil, fmt.Errorf("decode cart of user %s: %w", userID, err)
	}
	return &cart, nil
}

func (r *cartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	items := cart.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}

	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	_, err = conn(ctx, r.db).Exec(ctx, `
		INSERT INTO carts (user_id, items, applied_coupon, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			items = EXCLUDED.items,
			applied_coupon = EXCLUDED.applied_coupon,
			updated_at = EXCLUDED.updated_at`,
		cart.UserID, payload, cart.AppliedCoupon, cart.CreatedAt, cart.UpdatedAt)
	return err
}

func (r *cartRepository) Delete(ctx context.Context, userID string) error {
	_, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	return err
}
