package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
	"github.com/utafrali/EcommerceGo/catalog/pkg/database"
	apperrors "github.com/utafrali/EcommerceGo/catalog/pkg/errors"
)

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	pool database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// GetByID loads the category and its attribute schema, ordered by position.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (_ *domain.Category, err error) {
	const categoryQuery = `SELECT id, name, slug FROM categories WHERE id = $1`
	const attributeQuery = `
		SELECT a.id, a.name, v.id, v.value
		FROM category_attributes a
		LEFT JOIN category_attribute_values v ON v.attribute_id = a.id
		WHERE a.category_id = $1
		ORDER BY a.position, a.id, v.position, v.id`

	ctx, end := database.TraceQuery(ctx, "GetCategory", categoryQuery)
	defer func() { end(err) }()

	var c domain.Category
	if err := r.pool.QueryRow(ctx, categoryQuery, id).Scan(&c.ID, &c.Name, &c.Slug); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}

	rows, err := r.pool.Query(ctx, attributeQuery, id)
	if err != nil {
		return nil, fmt.Errorf("query category attributes: %w", err)
	}
	defer rows.Close()

	c.Attributes = []domain.Attribute{}
	for rows.Next() {
		var (
			attrID, attrName string
			valueID, value   *string
		)
		if err := rows.Scan(&attrID, &attrName, &valueID, &value); err != nil {
			return nil, fmt.Errorf("scan category attribute: %w", err)
		}
		n := len(c.Attributes)
		if n == 0 || c.Attributes[n-1].ID != attrID {
			c.Attributes = append(c.Attributes, domain.Attribute{ID: attrID, Name: attrName, Values: []domain.AttributeValue{}})
			n++
		}
		if valueID != nil {
			attr := &c.Attributes[n-1]
			attr.Values = append(attr.Values, domain.AttributeValue{ID: *valueID, Value: strings.TrimSpace(deref(value))})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category attributes: %w", err)
	}

	return &c, nil
}

// isInvalidText reports a value PostgreSQL could not cast, such as a
// malformed UUID (SQLSTATE 22P02).
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
