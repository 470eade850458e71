package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
	"github.com/utafrali/EcommerceGo/catalog/internal/mutation"
	apperrors "github.com/utafrali/EcommerceGo/catalog/pkg/errors"
	"github.com/utafrali/EcommerceGo/catalog/pkg/tracing"
)

// MutationInput is a create or patch request before validation. ProductID is
// empty for a create.
type MutationInput struct {
	ProductID  string
	CategoryID *string
	Status     *domain.ProductStatus
	Variants   *domain.VariantOps
	Images     *domain.ImageOps
	Uploads    []domain.Upload
}

// ResolvedMutation is a mutation that passed validation, with its variant
// set, thumbnail and status decided. Nothing has been written yet.
type ResolvedMutation struct {
	// Current is the stored product, nil for a create.
	Current         *domain.Product
	Category        *domain.Category
	CategoryChanged bool
	// BaseVariants are the current variants the batch was applied to. After
	// a category change only the updated ones are carried over.
	BaseVariants []domain.Variant
	Variants     []mutation.ResultingVariant
	Thumbnail    mutation.ThumbnailResolution
	Publish      mutation.PublishDecision
	ImageCount   int
}

// ValidateAndResolve loads the state a mutation depends on, validates the
// operation batches and resolves thumbnail and publish status. It never
// writes.
func (s *ProductService) ValidateAndResolve(ctx context.Context, in MutationInput) (_ *ResolvedMutation, err error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ValidateAndResolve")
	defer func() { tracing.End(span, err) }()

	var current *domain.Product
	if in.ProductID != "" {
		if current, err = s.loadProduct(ctx, in.ProductID); err != nil {
			return nil, err
		}
	}
	return s.resolve(ctx, current, in)
}

func (s *ProductService) resolve(ctx context.Context, current *domain.Product, in MutationInput) (*ResolvedMutation, error) {
	var (
		categoryID      string
		currentVariants []domain.Variant
		currentImages   []domain.Image
		currentStatus   domain.ProductStatus
	)
	if current != nil {
		categoryID = current.CategoryID
		currentVariants, currentImages, currentStatus = current.Variants, current.Images, current.Status
	}
	if in.CategoryID != nil {
		categoryID = *in.CategoryID
	}
	if categoryID == "" {
		return nil, apperrors.InvalidInput("categoryId is required")
	}

	category, err := s.loadCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if err := checkReferences(currentVariants, currentImages, in.Variants, in.Images); err != nil {
		return nil, err
	}

	res := &ResolvedMutation{
		Current:      current,
		Category:     category,
		BaseVariants: currentVariants,
	}
	if current != nil && categoryID != current.CategoryID {
		res.CategoryChanged = true
		res.BaseVariants = carriedVariants(currentVariants, in.Variants)
	}

	if err := mergeViolations(
		mutation.ValidateVariants(category, in.Variants, res.BaseVariants),
		mutation.ValidateImages(in.Uploads, in.Images, currentImages),
	); err != nil {
		return nil, err
	}

	res.ImageCount = resultingImageCount(currentImages, in.Images)
	if current == nil || !in.Images.IsEmpty() {
		if res.ImageCount < domain.MinProductImages || res.ImageCount > domain.MaxProductImages {
			return nil, apperrors.Unprocessable(fmt.Sprintf(
				"a product must have between %d and %d images, the request leaves %d",
				domain.MinProductImages, domain.MaxProductImages, res.ImageCount))
		}
	}

	res.Variants = mutation.ResultingVariants(res.BaseVariants, in.Variants)
	res.Thumbnail = mutation.ResolveThumbnail(in.Images, currentImages)
	res.Publish = mutation.DeterminePublishStatus(mutation.PublishInput{
		RequestedStatus:       in.Status,
		CurrentStatus:         currentStatus,
		CurrentVariants:       res.BaseVariants,
		Variants:              in.Variants,
		CategoryHasAttributes: category.HasAttributes(),
	})
	return res, nil
}

func (s *ProductService) loadProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (s *ProductService) loadCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("category", id)
		}
		return nil, fmt.Errorf("get category %s: %w", id, err)
	}
	return c, nil
}

// checkReferences reports the first update or delete entry naming a variant
// or image the product does not have.
func checkReferences(variants []domain.Variant, images []domain.Image, vops *domain.VariantOps, iops *domain.ImageOps) error {
	known := make(map[string]bool, len(variants))
	for _, v := range variants {
		known[v.ID] = true
	}
	for _, cmd := range vops.Commands() {
		if cmd.Kind != domain.OpCreate && !known[cmd.TargetID] {
			return apperrors.NotFound("variant", cmd.TargetID)
		}
	}

	known = make(map[string]bool, len(images))
	for _, img := range images {
		known[img.ID] = true
	}
	for _, cmd := range iops.Commands() {
		if cmd.Kind != domain.OpCreate && !known[cmd.TargetID] {
			return apperrors.NotFound("image", cmd.TargetID)
		}
	}
	return nil
}

// carriedVariants keeps the current variants targeted by an update entry.
func carriedVariants(current []domain.Variant, ops *domain.VariantOps) []domain.Variant {
	if ops == nil {
		return nil
	}
	updated := make(map[string]bool, len(ops.Update))
	for _, u := range ops.Update {
		updated[u.ID] = true
	}
	var out []domain.Variant
	for _, v := range current {
		if updated[v.ID] {
			out = append(out, v)
		}
	}
	return out
}

func resultingImageCount(current []domain.Image, ops *domain.ImageOps) int {
	if ops == nil {
		return len(current)
	}
	deleted := make(map[string]bool, len(ops.Delete))
	for _, id := range ops.Delete {
		deleted[id] = true
	}
	n := len(ops.Create)
	for _, img := range current {
		if !deleted[img.ID] {
			n++
		}
	}
	return n
}

// mergeViolations returns whichever validation failed. When both did, the
// image violations are appended to the variant failure so the client sees
// every violation at once.
func mergeViolations(variantErr, imageErr error) error {
	switch {
	case variantErr == nil:
		return imageErr
	case imageErr == nil:
		return variantErr
	}
	var v, i *apperrors.AppError
	if !errors.As(variantErr, &v) || !errors.As(imageErr, &i) {
		return errors.Join(variantErr, imageErr)
	}
	subs := append(append([]apperrors.SubError{}, v.SubErrors()...), i.SubErrors()...)
	return apperrors.ValidationFailed(v.Code,
		fmt.Sprintf("variant and image operations are invalid: %d violation(s)", len(subs)),
		subs)
}
