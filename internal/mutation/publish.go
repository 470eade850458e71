package mutation

import (
	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
)

// PublishInput carries what the publish decision depends on. CurrentVariants
// must already exclude variants dropped by a category change.
type PublishInput struct {
	RequestedStatus       *domain.ProductStatus
	CurrentStatus         domain.ProductStatus
	CurrentVariants       []domain.Variant
	Variants              *domain.VariantOps
	CategoryHasAttributes bool
}

// PublishDecision is the status that will be persisted. Warnings lists the
// eligibility codes that failed when a publish request was downgraded.
type PublishDecision struct {
	FinalStatus domain.ProductStatus
	Warnings    []string
}

// DeterminePublishStatus resolves the status to persist. Requests other than
// PUBLISHED pass through; a PUBLISHED request for an ineligible product
// degrades to DRAFT instead of failing.
func DeterminePublishStatus(in PublishInput) PublishDecision {
	if in.RequestedStatus == nil {
		status := in.CurrentStatus
		if status == "" {
			status = domain.ProductStatusDraft
		}
		return PublishDecision{FinalStatus: status}
	}
	if *in.RequestedStatus != domain.ProductStatusPublished {
		return PublishDecision{FinalStatus: *in.RequestedStatus}
	}

	var priced, attributed bool
	for _, rv := range ResultingVariants(in.CurrentVariants, in.Variants) {
		if rv.Price > 0 {
			priced = true
		}
		if len(rv.AttributeValueIDs) > 0 {
			attributed = true
		}
	}

	var warnings []string
	if !priced {
		warnings = append(warnings, CodeNoPricedVariant)
	}
	if in.CategoryHasAttributes && !attributed {
		warnings = append(warnings, CodeNoAttributedVariant)
	}
	if len(warnings) > 0 {
		return PublishDecision{FinalStatus: domain.ProductStatusDraft, Warnings: warnings}
	}
	return PublishDecision{FinalStatus: domain.ProductStatusPublished}
}
