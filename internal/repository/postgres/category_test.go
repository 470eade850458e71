package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/catalog/pkg/errors"
)

func TestCategoryRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery("SELECT id, name, slug FROM categories").
		WithArgs("cat-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug"}).AddRow("cat-1", "Shirts", "shirts"))
	mock.ExpectQuery("FROM category_attributes").
		WithArgs("cat-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "id", "value"}).
			AddRow("attr-size", "Size", strPtr("size-s"), strPtr("S")).
			AddRow("attr-size", "Size", strPtr("size-m"), strPtr("M")).
			AddRow("attr-color", "Color", strPtr("color-red"), strPtr("Red")).
			AddRow("attr-fit", "Fit", (*string)(nil), (*string)(nil)))

	got, err := repo.GetByID(context.Background(), "cat-1")
	require.NoError(t, err)

	want := &domain.Category{
		ID:   "cat-1",
		Name: "Shirts",
		Slug: "shirts",
		Attributes: []domain.Attribute{
			{ID: "attr-size", Name: "Size", Values: []domain.AttributeValue{{ID: "size-s", Value: "S"}, {ID: "size-m", Value: "M"}}},
			{ID: "attr-color", Name: "Color", Values: []domain.AttributeValue{{ID: "color-red", Value: "Red"}}},
			{ID: "attr-fit", Name: "Fit", Values: []domain.AttributeValue{}},
		},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 2, got.MaxCombinations())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_GetByID_WithoutAttributes(t *testing.T) {
	mock := newMock(t)
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery("SELECT id, name, slug FROM categories").
		WithArgs("cat-2").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug"}).AddRow("cat-2", "Gift Cards", "gift-cards"))
	mock.ExpectQuery("FROM category_attributes").
		WithArgs("cat-2").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "id", "value"}))

	got, err := repo.GetByID(context.Background(), "cat-2")
	require.NoError(t, err)
	assert.False(t, got.HasAttributes())
	assert.NotNil(t, got.Attributes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_GetByID_NotFound(t *testing.T) {
	tests := []struct {
		name string
		id   string
		err  error
	}{
		{"no rows", "0b7e2c1a-5d3f-4e6a-9b8c-7d6e5f4a3b2c", pgx.ErrNoRows},
		{"malformed uuid", "cat-1", &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "cat-1"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			repo := NewCategoryRepository(mock)

			mock.ExpectQuery("SELECT id, name, slug FROM categories").
				WithArgs(tt.id).
				WillReturnError(tt.err)

			_, err := repo.GetByID(context.Background(), tt.id)
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCategoryRepository_GetByID_QueryError(t *testing.T) {
	mock := newMock(t)
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery("SELECT id, name, slug FROM categories").
		WithArgs("cat-1").
		WillReturnError(&pgconn.PgError{Code: "57P01", Message: "terminating connection"})

	_, err := repo.GetByID(context.Background(), "cat-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
