package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
	"github.com/utafrali/EcommerceGo/catalog/internal/repository"
	"github.com/utafrali/EcommerceGo/catalog/pkg/database"
	apperrors "github.com/utafrali/EcommerceGo/catalog/pkg/errors"
	"github.com/utafrali/EcommerceGo/catalog/pkg/pagination"
)

const (
	productColumns = `id, name, slug, description, status, category_id, version, created_at, updated_at`
	variantColumns = `id, product_id, price, sku, stock, attribute_value_ids`
	imageColumns   = `id, product_id, storage_key, url, alt_text, is_thumbnail, sort_order`
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID retrieves a product with its variants and images.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	ctx, end := database.TraceQuery(ctx, "GetProduct", query)
	defer func() { end(err) }()

	var p domain.Product
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Status,
		&p.CategoryID,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	if p.Variants, err = r.listVariants(ctx, id); err != nil {
		return nil, err
	}
	if p.Images, err = r.listImages(ctx, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) listVariants(ctx context.Context, productID string) ([]domain.Variant, error) {
	query := fmt.Sprintf(`SELECT %s FROM product_variants WHERE product_id = $1 ORDER BY id`, variantColumns)
	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	variants := []domain.Variant{}
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Price, &v.SKU, &v.Stock, &v.AttributeValueIDs); err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}
		if v.AttributeValueIDs == nil {
			v.AttributeValueIDs = []string{}
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}
	return variants, nil
}

func (r *ProductRepository) listImages(ctx context.Context, productID string) ([]domain.Image, error) {
	query := fmt.Sprintf(`SELECT %s FROM product_images WHERE product_id = $1 ORDER BY sort_order, id`, imageColumns)
	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	images := []domain.Image{}
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.ProductID, &img.Key, &img.URL, &img.AltText, &img.IsThumbnail, &img.SortOrder); err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image rows: %w", err)
	}
	return images, nil
}

// List returns product summaries matching the filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (_ []domain.ProductSummary, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.slug, p.status, p.category_id, p.version,
		       (SELECT count(*) FROM product_variants v WHERE v.product_id = p.id),
		       t.url, p.updated_at, count(*) OVER() AS total_count
		FROM products p
		LEFT JOIN product_images t ON t.product_id = p.id AND t.is_thumbnail
		%s
		ORDER BY p.created_at DESC, p.id
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	page := pagination.New(filter.Page, filter.PerPage)
	args = append(args, page.PerPage, page.Offset)

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   = []domain.ProductSummary{}
		totalCount int
	)
	for rows.Next() {
		var p domain.ProductSummary
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Slug,
			&p.Status,
			&p.CategoryID,
			&p.Version,
			&p.VariantCount,
			&p.ThumbnailURL,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, totalCount, nil
}

// Persist writes the product row and replaces its variant and image sets in
// one transaction. Updates compare-and-swap on the version column.
func (r *ProductRepository) Persist(ctx context.Context, w *repository.ProductWrite) (err error) {
	p := w.Product
	op := "UpdateProduct"
	if w.IsCreate() {
		op = "InsertProduct"
	}
	ctx, end := database.TraceQuery(ctx, op, "products+variants+images")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if w.IsCreate() {
		err = insertProduct(ctx, tx, p)
	} else {
		err = updateProduct(ctx, tx, p, w.ExpectedVersion)
	}
	if err != nil {
		return err
	}

	if err := replaceVariants(ctx, tx, p); err != nil {
		return err
	}
	if err := replaceImages(ctx, tx, p); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertProduct(ctx context.Context, tx pgx.Tx, p *domain.Product) error {
	query := `
		INSERT INTO products (id, name, slug, description, status, category_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.Status,
		p.CategoryID,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func updateProduct(ctx context.Context, tx pgx.Tx, p *domain.Product, expected int) error {
	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, status = $4, category_id = $5,
		    version = version + 1, updated_at = $6
		WHERE id = $7 AND version = $8`

	ct, err := tx.Exec(ctx, query,
		p.Name,
		p.Slug,
		p.Description,
		p.Status,
		p.CategoryID,
		p.UpdatedAt,
		p.ID,
		expected,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrStaleVersion
	}
	return nil
}

func replaceVariants(ctx context.Context, tx pgx.Tx, p *domain.Product) error {
	ids := make([]string, len(p.Variants))
	for i, v := range p.Variants {
		ids[i] = v.ID
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM product_variants WHERE product_id = $1 AND NOT (id = ANY($2))`,
		p.ID, ids,
	); err != nil {
		return fmt.Errorf("delete removed variants: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO product_variants (%s)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET price = EXCLUDED.price, sku = EXCLUDED.sku, stock = EXCLUDED.stock,
		    attribute_value_ids = EXCLUDED.attribute_value_ids`, variantColumns)

	for _, v := range p.Variants {
		if _, err := tx.Exec(ctx, query, v.ID, p.ID, v.Price, v.SKU, v.Stock, v.AttributeValueIDs); err != nil {
			return fmt.Errorf("upsert variant %s: %w", v.ID, err)
		}
	}
	return nil
}

func replaceImages(ctx context.Context, tx pgx.Tx, p *domain.Product) error {
	ids := make([]string, len(p.Images))
	for i, img := range p.Images {
		ids[i] = img.ID
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM product_images WHERE product_id = $1 AND NOT (id = ANY($2))`,
		p.ID, ids,
	); err != nil {
		return fmt.Errorf("delete removed images: %w", err)
	}

	// The partial unique index allows one thumbnail per product at any time,
	// so the flag is cleared before the new set is written.
	if _, err := tx.Exec(ctx,
		`UPDATE product_images SET is_thumbnail = FALSE WHERE product_id = $1 AND is_thumbnail`,
		p.ID,
	); err != nil {
		return fmt.Errorf("clear thumbnail: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO product_images (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET storage_key = EXCLUDED.storage_key, url = EXCLUDED.url, alt_text = EXCLUDED.alt_text,
		    is_thumbnail = EXCLUDED.is_thumbnail, sort_order = EXCLUDED.sort_order`, imageColumns)

	for _, img := range p.Images {
		if _, err := tx.Exec(ctx, query,
			img.ID, p.ID, img.Key, img.URL, img.AltText, img.IsThumbnail, img.SortOrder,
		); err != nil {
			return fmt.Errorf("upsert image %s: %w", img.ID, err)
		}
	}
	return nil
}

// Delete removes the product at the given version; variants and images
// cascade.
func (r *ProductRepository) Delete(ctx context.Context, id string, version int) (err error) {
	query := `DELETE FROM products WHERE id = $1 AND version = $2`

	ctx, end := database.TraceQuery(ctx, "DeleteProduct", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id, version)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check product existence: %w", err)
	}
	if !exists {
		return apperrors.ErrNotFound
	}
	return repository.ErrStaleVersion
}

// isUniqueViolation reports a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
