package pgrepo

import (
	"context"
	"fmt"
	"strings"

	"krume-backend/internal/domain"

	"github.com/goccy/go-json"
)

type productRepository struct {
	db DBTX
}

func NewProductRepository(db DBTX) domain.ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `
	p.id, p.name, p.slug, p.description, p.category, p.base_price, p.discount_percent,
	p.colors, p.images, p.is_active,
	p.discount_price, p.discount_amount, p.gst_rate, p.gst_amount, p.final_price_with_tax,
	p.created_at, p.updated_at,
	COALESCE((
		SELECT json_agg(json_build_object('size', s.size, 'stock', s.stock) ORDER BY s.position)
		FROM product_sizes s WHERE s.product_id = p.id
	), '[]'::json)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var sizes []byte
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Category, &p.BasePrice, &p.DiscountPercent,
		&p.Colors, &p.Images, &p.IsActive,
		&p.DiscountPrice, &p.DiscountAmount, &p.GSTRate, &p.GSTAmount, &p.FinalPriceWithTax,
		&p.CreatedAt, &p.UpdatedAt,
		&sizes,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sizes, &p.Sizes); err != nil {
		return nil, fmt.Errorf("decode sizes of product %s: %w", p.ID, err)
	}
	p.SyncStock()
	return &p, nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	var where []string
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("p.category = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		where = append(where, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where = append(where, fmt.Sprintf("p.is_active = $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	db := conn(ctx, r.db)

	var total int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM products p%s ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`,
		productColumns, clause, len(args)-1, len(args))

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

// Create and Update touch two tables; callers run them inside TransactionManager.Do.
func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	db := conn(ctx, r.db)
	err := db.QueryRow(ctx, `
		INSERT INTO products (
			id, name, slug, description, category, base_price, discount_percent, colors, images, is_active,
			discount_price, discount_amount, gst_rate, gst_amount, final_price_with_tax
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Slug, p.Description, p.Category, p.BasePrice, p.DiscountPercent,
		nonNil(p.Colors), nonNil(p.Images), p.IsActive,
		p.DiscountPrice, p.DiscountAmount, p.GSTRate, p.GSTAmount, p.FinalPriceWithTax,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	return r.replaceSizes(ctx, p)
}

func (r *productRepository) Update(ctx context.Context, p *domain.Product) error {
	db := conn(ctx, r.db)
	err := db.QueryRow(ctx, `
		UPDATE products SET
			name = $2, slug = $3, description = $4, category = $5, base_price = $6, discount_percent = $7,
			colors = $8, images = $9, is_active = $10,
			discount_price = $11, discount_amount = $12, gst_rate = $13, gst_amount = $14,
			final_price_with_tax = $15, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Slug, p.Description, p.Category, p.BasePrice, p.DiscountPercent,
		nonNil(p.Colors), nonNil(p.Images), p.IsActive,
		p.DiscountPrice, p.DiscountAmount, p.GSTRate, p.GSTAmount, p.FinalPriceWithTax,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return notFound(err)
	}
	return r.replaceSizes(ctx, p)
}

func (r *productRepository) replaceSizes(ctx context.Context, p *domain.Product) error {
	db := conn(ctx, r.db)
	if _, err := db.Exec(ctx, `DELETE FROM product_sizes WHERE product_id = $1`, p.ID); err != nil {
		return err
	}

	sizes := make([]string, len(p.Sizes))
	stocks := make([]int32, len(p.Sizes))
	for i, s := range p.Sizes {
		sizes[i] = s.Size
		stocks[i] = int32(s.Stock)
	}

	_, err := db.Exec(ctx, `
		INSERT INTO product_sizes (product_id, size, stock, position)
		SELECT $1, s.size, s.stock, s.ord
		FROM unnest($2::text[], $3::int[]) WITH ORDINALITY AS s(size, stock, ord)`,
		p.ID, sizes, stocks)
	if err != nil {
		return fmt.Errorf("write sizes of product %s: %w", p.ID, err)
	}
	p.SyncStock()
	return nil
}

// AdjustSizeStock is a single UPDATE so concurrent debits and credits never lose updates.
// The requested size wins; otherwise the first size by position is used.
func (r *productRepository) AdjustSizeStock(ctx context.Context, productID, size string, delta int) (string, error) {
	var touched string
	err := conn(ctx, r.db).QueryRow(ctx, `
		WITH target AS (
			SELECT size FROM product_sizes
			WHERE product_id = $1
			ORDER BY (size = $2) DESC, position ASC
			LIMIT 1
		)
		UPDATE product_sizes ps
		SET stock = ps.stock + $3
		FROM target
		WHERE ps.product_id = $1 AND ps.size = target.size
		RETURNING ps.size`,
		productID, size, delta,
	).Scan(&touched)
	if err != nil {
		return "", notFound(err)
	}
	return touched, nil
}

func (r *productRepository) CreateInventoryLog(ctx context.Context, log *domain.InventoryLog) error {
	return conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO inventory_logs (product_id, size, change_amount, reason, reference_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		log.ProductID, log.Size, log.ChangeAmount, log.Reason, log.ReferenceID,
	).Scan(&log.ID, &log.CreatedAt)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
