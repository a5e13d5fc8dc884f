package pgrepo

import (
	"context"

	"krume-backend/internal/domain"

	"github.com/google/uuid"
)

type couponRepository struct {
	db DBTX
}

func NewCouponRepository(db DBTX) domain.CouponRepository {
	return &couponRepository{db: db}
}

const couponColumns = `id, code, discount_type, discount_amount, min_order_amount, usage_limit,
	used_count, users_used, expires_at, is_active, created_at`

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	var c domain.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountAmount, &c.MinOrderAmount, &c.UsageLimit,
		&c.UsedCount, &c.UsersUsed, &c.ExpiresAt, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *couponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO coupons (id, code, discount_type, discount_amount, min_order_amount, usage_limit, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		c.ID, c.Code, c.DiscountType, c.DiscountAmount, c.MinOrderAmount, c.UsageLimit, c.ExpiresAt, c.IsActive,
	).Scan(&c.CreatedAt)
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c, err := scanCoupon(conn(ctx, r.db).QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *couponRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	c, err := scanCoupon(conn(ctx, r.db).QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *couponRepository) List(ctx context.Context, limit, offset int) ([]domain.Coupon, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *couponRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&total)
	return total, err
}

// Update leaves the usage counters alone; only RecordUsage moves them.
func (r *couponRepository) Update(ctx context.Context, c *domain.Coupon) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE coupons SET
			code = $2, discount_type = $3, discount_amount = $4, min_order_amount = $5,
			usage_limit = $6, expires_at = $7, is_active = $8
		WHERE id = $1`,
		c.ID, c.Code, c.DiscountType, c.DiscountAmount, c.MinOrderAmount, c.UsageLimit, c.ExpiresAt, c.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *couponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *couponRepository) RecordUsage(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1, users_used = array_append(users_used, $2)
		WHERE id = $1`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
