package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
	"github.com/utafrali/EcommerceGo/catalog/internal/mutation"
	"github.com/utafrali/EcommerceGo/catalog/internal/repository"
	"github.com/utafrali/EcommerceGo/catalog/internal/storage"
	apperrors "github.com/utafrali/EcommerceGo/catalog/pkg/errors"
	"github.com/utafrali/EcommerceGo/catalog/pkg/logger"
	"github.com/utafrali/EcommerceGo/catalog/pkg/slug"
	"github.com/utafrali/EcommerceGo/catalog/pkg/tracing"
)

// EventPublisher announces committed product changes.
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, product *domain.Product, autoThumbnail bool) error
	PublishProductUpdated(ctx context.Context, product *domain.Product, autoThumbnail bool) error
	PublishProductDeleted(ctx context.Context, id string, version int) error
}

// ProductService validates and applies product mutations.
type ProductService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	blobs      storage.Storage
	events     EventPublisher
	metrics    *Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	newID      func() string
	now        func() time.Time
}

// Option customises a ProductService.
type Option func(*ProductService)

// WithIDGenerator replaces the uuid generator used for new entities.
func WithIDGenerator(fn func() string) Option {
	return func(s *ProductService) { s.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *ProductService) { s.now = fn }
}

// WithMetrics records mutation metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *ProductService) { s.metrics = m }
}

// NewProductService creates a new product service.
func NewProductService(
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	blobs storage.Storage,
	events EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) *ProductService {
	s := &ProductService{
		categories: categories,
		products:   products,
		blobs:      blobs,
		events:     events,
		logger:     logger,
		tracer:     tracing.Tracer("catalog/service"),
		newID:      uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Description string
	CategoryID  string
	Status      *domain.ProductStatus
	Variants    *domain.VariantOps
	Images      *domain.ImageOps
	Uploads     []domain.Upload
}

// UpdateProductInput holds the parameters for patching a product. Version is
// the version the client last read.
type UpdateProductInput struct {
	Version  int
	Patch    domain.ProductPatch
	Variants *domain.VariantOps
	Images   *domain.ImageOps
	Uploads  []domain.Upload
}

// MutationResult is the outcome of a create or update. NoOp is set when the
// patch matched the stored state and nothing was written.
type MutationResult struct {
	Product               *domain.Product `json:"product"`
	Warnings              []string        `json:"warnings,omitempty"`
	AutoAssignedThumbnail bool            `json:"autoAssignedThumbnail"`
	NoOp                  bool            `json:"noOp"`
}

// GetProduct retrieves a product with its variants and images.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.loadProduct(ctx, id)
}

// ListProducts returns one page of product summaries and the total count.
func (s *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.ProductSummary, int, error) {
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// CreateProduct validates the request, uploads the referenced files and
// stores the new product at version 1.
func (s *ProductService) CreateProduct(ctx context.Context, in CreateProductInput) (_ *MutationResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ProductService.CreateProduct")
	defer func() {
		tracing.End(span, err)
		s.metrics.observe("create", start, err, false)
	}()

	if in.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	categoryID := in.CategoryID
	resolved, err := s.resolve(ctx, nil, MutationInput{
		CategoryID: &categoryID,
		Status:     in.Status,
		Variants:   in.Variants,
		Images:     in.Images,
		Uploads:    in.Uploads,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	product := &domain.Product{
		ID:          s.newID(),
		Name:        in.Name,
		Slug:        slug.Generate(in.Name),
		Description: in.Description,
		Status:      resolved.Publish.FinalStatus,
		CategoryID:  categoryID,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ctx = logger.WithProductID(ctx, product.ID)
	span.SetAttributes(attribute.String("product.id", product.ID))

	product.Variants = s.materializeVariants(product.ID, resolved.Variants)
	plan, uploaded, err := s.applyImages(ctx, product.ID, nil, resolved, in.Uploads)
	if err != nil {
		return nil, err
	}
	product.Images = plan.Images

	if err := s.persist(ctx, &repository.ProductWrite{Product: product}, uploaded); err != nil {
		return nil, err
	}

	if err := s.events.PublishProductCreated(ctx, product, resolved.Thumbnail.AutoAssigned); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish product.created event",
			slog.String("error", err.Error()),
		)
	}
	s.log(ctx).InfoContext(ctx, "product created",
		slog.String("status", string(product.Status)),
		slog.Int("variants", len(product.Variants)),
		slog.Int("images", len(product.Images)),
	)

	return &MutationResult{
		Product:               product,
		Warnings:              resolved.Publish.Warnings,
		AutoAssignedThumbnail: resolved.Thumbnail.AutoAssigned,
	}, nil
}

// UpdateProduct applies a patch atomically. A stale version is rejected
// before anything else; a patch that changes nothing returns the stored
// product without writing or bumping the version.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, in UpdateProductInput) (_ *MutationResult, err error) {
	start := time.Now()
	var noop bool
	ctx = logger.WithProductID(ctx, id)
	ctx, span := s.tracer.Start(ctx, "ProductService.UpdateProduct",
		trace.WithAttributes(attribute.String("product.id", id)))
	defer func() {
		tracing.End(span, err)
		s.metrics.observe("update", start, err, noop)
	}()

	current, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutation.CheckVersion(in.Version, current.Version); err != nil {
		s.log(ctx).InfoContext(ctx, "rejected stale product update",
			slog.Int("declared_version", in.Version),
		)
		return nil, err
	}

	if !mutation.HasProductChanges(current, in.Patch) &&
		!mutation.HasVariantChanges(current.Variants, in.Variants) &&
		!mutation.HasImageChanges(current.Images, in.Images) {
		noop = true
		span.SetAttributes(attribute.Bool("mutation.noop", true))
		return &MutationResult{Product: current, NoOp: true}, nil
	}

	resolved, err := s.resolve(ctx, current, MutationInput{
		ProductID:  id,
		CategoryID: in.Patch.CategoryID,
		Status:     in.Patch.Status,
		Variants:   in.Variants,
		Images:     in.Images,
		Uploads:    in.Uploads,
	})
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	applyPatch(next, in.Patch)
	next.Status = resolved.Publish.FinalStatus
	next.Version = current.Version + 1
	next.UpdatedAt = s.now()
	next.Variants = s.materializeVariants(next.ID, resolved.Variants)

	plan, uploaded, err := s.applyImages(ctx, next.ID, current.Images, resolved, in.Uploads)
	if err != nil {
		return nil, err
	}
	next.Images = plan.Images

	write := &repository.ProductWrite{Product: next, ExpectedVersion: current.Version}
	if err := s.persist(ctx, write, uploaded); err != nil {
		return nil, err
	}

	s.removeBlobs(ctx, supersededKeys(plan))

	if err := s.events.PublishProductUpdated(ctx, next, resolved.Thumbnail.AutoAssigned); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("error", err.Error()),
		)
	}
	s.log(ctx).InfoContext(ctx, "product updated",
		slog.Int("version", next.Version),
		slog.String("status", string(next.Status)),
		slog.Bool("category_changed", resolved.CategoryChanged),
	)

	return &MutationResult{
		Product:               next,
		Warnings:              resolved.Publish.Warnings,
		AutoAssignedThumbnail: resolved.Thumbnail.AutoAssigned,
	}, nil
}

// DeleteProduct removes the product at the given version, then its blobs.
func (s *ProductService) DeleteProduct(ctx context.Context, id string, version int) (err error) {
	start := time.Now()
	ctx = logger.WithProductID(ctx, id)
	ctx, span := s.tracer.Start(ctx, "ProductService.DeleteProduct",
		trace.WithAttributes(attribute.String("product.id", id)))
	defer func() {
		tracing.End(span, err)
		s.metrics.observe("delete", start, err, false)
	}()

	current, err := s.loadProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := mutation.CheckVersion(version, current.Version); err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id, version); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleVersion):
			return mutation.VersionConflict()
		case errors.Is(err, apperrors.ErrNotFound):
			return apperrors.NotFound("product", id)
		}
		return fmt.Errorf("delete product: %w", err)
	}

	keys := make([]string, 0, len(current.Images))
	for _, img := range current.Images {
		keys = append(keys, img.Key)
	}
	s.removeBlobs(ctx, keys)

	if err := s.events.PublishProductDeleted(ctx, id, version); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("error", err.Error()),
		)
	}
	s.log(ctx).InfoContext(ctx, "product deleted", slog.Int("version", version))
	return nil
}

// persist writes w and maps repository failures. On failure every blob
// uploaded for the request is deleted again.
func (s *ProductService) persist(ctx context.Context, w *repository.ProductWrite, uploaded []string) error {
	err := s.products.Persist(ctx, w)
	if err == nil {
		return nil
	}
	s.compensate(ctx, uploaded)

	switch {
	case errors.Is(err, repository.ErrStaleVersion):
		return mutation.VersionConflict()
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return err
	}
	return apperrors.PersistenceFailed(fmt.Errorf("persist product %s: %w", w.Product.ID, err))
}

func (s *ProductService) materializeVariants(productID string, resulting []mutation.ResultingVariant) []domain.Variant {
	out := make([]domain.Variant, 0, len(resulting))
	for _, rv := range resulting {
		v := rv.Variant
		if v.ID == "" {
			v.ID = s.newID()
		}
		v.ProductID = productID
		out = append(out, v)
	}
	return out
}

func applyPatch(p *domain.Product, patch domain.ProductPatch) {
	if patch.Name != nil && *patch.Name != p.Name {
		p.Name = *patch.Name
		p.Slug = slug.Generate(p.Name)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
}

func (s *ProductService) log(ctx context.Context) *slog.Logger {
	return logger.WithContext(ctx, s.logger)
}
