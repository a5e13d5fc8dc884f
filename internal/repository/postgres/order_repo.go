package pgrepo

import (
	"context"
	"fmt"

	"krume-backend/internal/domain"

	"github.com/goccy/go-json"
)

type orderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) domain.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, order_items, shipping_address, payment_method,
	items_price, tax_price, shipping_price, total_price, coupon_code,
	order_status, is_paid, is_delivered, delivered_at, external_order_id, external_shipment_id,
	return_info, created_at, updated_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var items, address, returnInfo []byte
	err := row.Scan(
		&o.ID, &o.UserID, &items, &address, &o.PaymentMethod,
		&o.ItemsPrice, &o.TaxPrice, &o.ShippingPrice, &o.TotalPrice, &o.CouponCode,
		&o.OrderStatus, &o.IsPaid, &o.IsDelivered, &o.DeliveredAt, &o.ExternalOrderID, &o.ExternalShipmentID,
		&returnInfo, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode address of order %s: %w", o.ID, err)
	}
	if len(returnInfo) > 0 {
		if err := json.Unmarshal(returnInfo, &o.ReturnInfo); err != nil {
			return nil, fmt.Errorf("decode return info of order %s: %w", o.ID, err)
		}
	}
	return &o, nil
}

func encodeReturnInfo(ri *domain.ReturnInfo) ([]byte, error) {
	if ri == nil {
		return nil, nil
	}
	return json.Marshal(ri)
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encode shipping address: %w", err)
	}
	returnInfo, err := encodeReturnInfo(o.ReturnInfo)
	if err != nil {
		return fmt.Errorf("encode return info: %w", err)
	}

	return conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO orders (
			id, user_id, order_items, shipping_address, payment_method,
			items_price, tax_price, shipping_price, total_price, coupon_code,
			order_status, is_paid, is_delivered, delivered_at, return_info
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, items, address, o.PaymentMethod,
		o.ItemsPrice, o.TaxPrice, o.ShippingPrice, o.TotalPrice, o.CouponCode,
		o.OrderStatus, o.IsPaid, o.IsDelivered, o.DeliveredAt, returnInfo,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(conn(ctx, r.db).QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (r *orderRepository) GetByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *orderRepository) GetAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int64
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE ($1 = '' OR order_status = $1)`, filter.Status,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	orders, err := r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1 = '' OR order_status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, filter.Status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// Update is a compare-and-set on order_status: of two concurrent transitions from the same
// status exactly one succeeds. A stored externalReturnId survives an incoming return_info
// that lacks one, so a decision loaded before SetReturnExternalID committed keeps it.
func (r *orderRepository) Update(ctx context.Context, o *domain.Order, expectedStatus string) error {
	returnInfo, err := encodeReturnInfo(o.ReturnInfo)
	if err != nil {
		return fmt.Errorf("encode return info: %w", err)
	}

	err = conn(ctx, r.db).QueryRow(ctx, `
		UPDATE orders SET
			order_status = $2, is_paid = $3, is_delivered = $4, delivered_at = $5,
			return_info = CASE
				WHEN $6::jsonb ? 'externalReturnId' OR orders.return_info->'externalReturnId' IS NULL THEN $6::jsonb
				ELSE $6::jsonb || jsonb_build_object('externalReturnId', orders.return_info->'externalReturnId')
			END,
			updated_at = NOW()
		WHERE id = $1 AND order_status = $7
		RETURNING updated_at`,
		o.ID, o.OrderStatus, o.IsPaid, o.IsDelivered, o.DeliveredAt, returnInfo, expectedStatus,
	).Scan(&o.UpdatedAt)
	return notFound(err)
}

func (r *orderRepository) SetShipment(ctx context.Context, id string, ref domain.ShipmentRef) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE orders SET external_order_id = $2, external_shipment_id = $3, updated_at = NOW()
		WHERE id = $1`, id, ref.ExternalOrderID, ref.ExternalShipmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetReturnExternalID only patches the nested field so it cannot clobber a concurrent
// status change.
func (r *orderRepository) SetReturnExternalID(ctx context.Context, id, externalReturnID string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE orders
		SET return_info = jsonb_set(return_info, '{externalReturnId}', to_jsonb($2::text)), updated_at = NOW()
		WHERE id = $1 AND return_info IS NOT NULL`, id, externalReturnID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
