package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
)

func TestDeterminePublishStatus(t *testing.T) {
	published := domain.ProductStatusPublished
	archived := domain.ProductStatusArchived

	tests := []struct {
		name         string
		input        PublishInput
		wantStatus   domain.ProductStatus
		wantWarnings []string
	}{
		{
			name:       "nil request keeps current status",
			input:      PublishInput{CurrentStatus: domain.ProductStatusPublished},
			wantStatus: domain.ProductStatusPublished,
		},
		{
			name:       "nil request on new product defaults to draft",
			input:      PublishInput{},
			wantStatus: domain.ProductStatusDraft,
		},
		{
			name:       "non-publish request passes through",
			input:      PublishInput{RequestedStatus: &archived, CurrentStatus: domain.ProductStatusPublished},
			wantStatus: domain.ProductStatusArchived,
		},
		{
			name: "unpriced variant degrades to draft",
			input: PublishInput{
				RequestedStatus:       &published,
				Variants:              &domain.VariantOps{Create: []domain.VariantInput{{Price: 0, AttributeValueIDs: []string{}}}},
				CategoryHasAttributes: true,
			},
			wantStatus:   domain.ProductStatusDraft,
			wantWarnings: []string{CodeNoPricedVariant, CodeNoAttributedVariant},
		},
		{
			name: "missing attributes degrades to draft",
			input: PublishInput{
				RequestedStatus:       &published,
				Variants:              &domain.VariantOps{Create: []domain.VariantInput{{Price: 1500}}},
				CategoryHasAttributes: true,
			},
			wantStatus:   domain.ProductStatusDraft,
			wantWarnings: []string{CodeNoAttributedVariant},
		},
		{
			name: "category without attributes only needs a price",
			input: PublishInput{
				RequestedStatus: &published,
				Variants:        &domain.VariantOps{Create: []domain.VariantInput{{Price: 1500}}},
			},
			wantStatus: domain.ProductStatusPublished,
		},
		{
			name: "eligibility uses the resulting variant set",
			input: PublishInput{
				RequestedStatus: &published,
				CurrentVariants: []domain.Variant{
					{ID: "v1", Price: 0, AttributeValueIDs: []string{"size-s"}},
					{ID: "v2", Price: 900, AttributeValueIDs: []string{"size-m"}},
				},
				Variants:              &domain.VariantOps{Delete: []string{"v2"}},
				CategoryHasAttributes: true,
			},
			wantStatus:   domain.ProductStatusDraft,
			wantWarnings: []string{CodeNoPricedVariant},
		},
		{
			name: "priced update makes product eligible",
			input: PublishInput{
				RequestedStatus: &published,
				CurrentStatus:   domain.ProductStatusDraft,
				CurrentVariants: []domain.Variant{{ID: "v1", AttributeValueIDs: []string{"size-s"}}},
				Variants: &domain.VariantOps{Update: []domain.VariantUpdate{
					{ID: "v1", Price: ptr(int64(2500))},
				}},
				CategoryHasAttributes: true,
			},
			wantStatus: domain.ProductStatusPublished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeterminePublishStatus(tt.input)
			assert.Equal(t, tt.wantStatus, got.FinalStatus)
			assert.Equal(t, tt.wantWarnings, got.Warnings)
		})
	}
}

func TestDeterminePublishStatus_UnpricedCreateInAttributedCategory(t *testing.T) {
	published := domain.ProductStatusPublished
	got := DeterminePublishStatus(PublishInput{
		RequestedStatus:       &published,
		Variants:              &domain.VariantOps{Create: []domain.VariantInput{{Price: 0, AttributeValueIDs: []string{}}}},
		CategoryHasAttributes: sizeCategory().HasAttributes(),
	})

	assert.Equal(t, domain.ProductStatusDraft, got.FinalStatus)
	assert.Contains(t, got.Warnings, CodeNoPricedVariant)
}
