package mutation

import (
	"slices"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
)

// HasProductChanges reports whether any patched scalar field differs from
// the current product.
func HasProductChanges(current *domain.Product, patch domain.ProductPatch) bool {
	switch {
	case patch.Name != nil && *patch.Name != current.Name:
		return true
	case patch.Description != nil && *patch.Description != current.Description:
		return true
	case patch.Status != nil && *patch.Status != current.Status:
		return true
	case patch.CategoryID != nil && *patch.CategoryID != current.CategoryID:
		return true
	}
	return false
}

// HasVariantChanges reports whether the batch would alter the current
// variants. Creates and deletes always count; an update counts when it
// targets an unknown variant or sets a field to a different value.
func HasVariantChanges(current []domain.Variant, ops *domain.VariantOps) bool {
	if ops.IsEmpty() {
		return false
	}
	if len(ops.Create) > 0 || len(ops.Delete) > 0 {
		return true
	}
	byID := make(map[string]domain.Variant, len(current))
	for _, v := range current {
		byID[v.ID] = v
	}
	for _, u := range ops.Update {
		cur, ok := byID[u.ID]
		if !ok {
			return true
		}
		if u.Price != nil && *u.Price != cur.Price {
			return true
		}
		if u.Stock != nil && *u.Stock != cur.Stock {
			return true
		}
		if u.SKU != nil && (cur.SKU == nil || *u.SKU != *cur.SKU) {
			return true
		}
		if u.AttributeValueIDs != nil && combinationKey(u.AttributeValueIDs) != combinationKey(cur.AttributeValueIDs) {
			return true
		}
	}
	return false
}

// HasImageChanges reports whether the batch would alter the current images.
// A file replacement always counts.
func HasImageChanges(current []domain.Image, ops *domain.ImageOps) bool {
	if ops.IsEmpty() {
		return false
	}
	if len(ops.Create) > 0 || len(ops.Delete) > 0 {
		return true
	}
	for _, u := range ops.Update {
		i := slices.IndexFunc(current, func(img domain.Image) bool { return img.ID == u.ID })
		if i < 0 || u.FileIndex != nil {
			return true
		}
		cur := current[i]
		if u.AltText != nil && (cur.AltText == nil || *u.AltText != *cur.AltText) {
			return true
		}
		if u.IsThumbnail != nil && *u.IsThumbnail != cur.IsThumbnail {
			return true
		}
	}
	return false
}
