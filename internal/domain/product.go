package domain

import (
	"slices"
	"time"
)

// ProductStatus is the publication state of a product.
type ProductStatus string

// Product status constants.
const (
	ProductStatusDraft     ProductStatus = "DRAFT"
	ProductStatusPublished ProductStatus = "PUBLISHED"
	ProductStatusArchived  ProductStatus = "ARCHIVED"
)

// Image count bounds for a persisted product.
const (
	MinProductImages = 1
	MaxProductImages = 5
)

// Product represents a product in the catalog together with its variants and
// images. Version is the optimistic concurrency token and is incremented on
// every successful mutation.
type Product struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description string        `json:"description"`
	Status      ProductStatus `json:"status"`
	CategoryID  string        `json:"category_id"`
	Version     int           `json:"version"`
	Variants    []Variant     `json:"variants"`
	Images      []Image       `json:"images"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ProductSummary is the listing view of a product.
type ProductSummary struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Slug         string        `json:"slug"`
	Status       ProductStatus `json:"status"`
	CategoryID   string        `json:"category_id"`
	Version      int           `json:"version"`
	VariantCount int           `json:"variant_count"`
	ThumbnailURL *string       `json:"thumbnail_url,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Variant is a purchasable combination of attribute values.
type Variant struct {
	ID                string   `json:"id"`
	ProductID         string   `json:"product_id"`
	Price             int64    `json:"price"`
	SKU               *string  `json:"sku,omitempty"`
	Stock             int      `json:"stock"`
	AttributeValueIDs []string `json:"attribute_value_ids"`
}

// Image is a stored product image. At most one image per product is the thumbnail.
type Image struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	Key         string  `json:"key"`
	URL         string  `json:"url"`
	AltText     *string `json:"alt_text,omitempty"`
	IsThumbnail bool    `json:"is_thumbnail"`
	SortOrder   int     `json:"sort_order"`
}

// Thumbnail returns the image flagged as thumbnail, if any.
func (p *Product) Thumbnail() (Image, bool) {
	for _, img := range p.Images {
		if img.IsThumbnail {
			return img, true
		}
	}
	return Image{}, false
}

// Clone returns a deep copy of the product so callers can derive new state
// without aliasing slices owned by the repository.
func (p *Product) Clone() *Product {
	cp := *p
	cp.Variants = make([]Variant, len(p.Variants))
	for i, v := range p.Variants {
		cp.Variants[i] = v.Clone()
	}
	cp.Images = make([]Image, len(p.Images))
	for i, img := range p.Images {
		cp.Images[i] = img.Clone()
	}
	return &cp
}

// Clone returns a deep copy of the variant.
func (v Variant) Clone() Variant {
	cp := v
	cp.AttributeValueIDs = slices.Clone(v.AttributeValueIDs)
	if v.SKU != nil {
		sku := *v.SKU
		cp.SKU = &sku
	}
	return cp
}

// Clone returns a deep copy of the image.
func (img Image) Clone() Image {
	cp := img
	if img.AltText != nil {
		alt := *img.AltText
		cp.AltText = &alt
	}
	return cp
}

// ValidStatuses returns the set of valid product statuses.
func ValidStatuses() []ProductStatus {
	return []ProductStatus{ProductStatusDraft, ProductStatusPublished, ProductStatusArchived}
}

// IsValidStatus checks whether the given status is a valid product status.
func IsValidStatus(status ProductStatus) bool {
	return slices.Contains(ValidStatuses(), status)
}
