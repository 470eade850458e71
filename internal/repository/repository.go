package repository

import (
	"context"
	"errors"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
	"github.com/utafrali/EcommerceGo/catalog/pkg/pagination"
)

// ErrStaleVersion is returned by writes whose expected version no longer
// matches the stored one.
var ErrStaleVersion = errors.New("stale product version")

// CategoryRepository reads categories together with their attribute schema.
type CategoryRepository interface {
	// GetByID returns the category with its attributes and values, or
	// apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Category, error)
}

// ProductWrite is the complete new state of one product. The variant and
// image sets replace the stored ones: rows missing from them are deleted.
type ProductWrite struct {
	Product *domain.Product
	// ExpectedVersion is the version the write was derived from. Zero
	// inserts a new product.
	ExpectedVersion int
}

// IsCreate reports whether the write inserts a new product.
func (w *ProductWrite) IsCreate() bool {
	return w.ExpectedVersion == 0
}

// ProductFilter narrows a product listing. Nil fields do not filter.
type ProductFilter struct {
	CategoryID *string
	Status     *domain.ProductStatus
	pagination.Params
}

// ProductRepository persists products with their variants and images.
type ProductRepository interface {
	// GetByID returns the product with its variants and images, or
	// apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// Persist atomically writes the product row, its variant set and its
	// image set. Updates are applied only when the stored version equals
	// ExpectedVersion, otherwise ErrStaleVersion is returned and nothing is
	// written. A duplicate slug yields an apperrors.AlreadyExists error.
	Persist(ctx context.Context, w *ProductWrite) error

	// List returns one page of product summaries, newest first, together
	// with the number of products matching the filter.
	List(ctx context.Context, filter ProductFilter) ([]domain.ProductSummary, int, error)

	// Delete removes the product at the given version. It returns
	// apperrors.ErrNotFound or ErrStaleVersion when it cannot.
	Delete(ctx context.Context, id string, version int) error
}
