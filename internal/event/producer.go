package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
	pkgkafka "github.com/utafrali/EcommerceGo/catalog/pkg/kafka"
	"github.com/utafrali/EcommerceGo/catalog/pkg/logger"
)

// Kafka topics of product domain events.
const (
	TopicProductCreated = "ecommerce.product.created"
	TopicProductUpdated = "ecommerce.product.updated"
	TopicProductDeleted = "ecommerce.product.deleted"
)

const (
	aggregateProduct = "product"
	source           = "catalog-service"
)

// ProductData is the payload of product.created and product.updated events.
type ProductData struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Slug          string               `json:"slug"`
	Status        domain.ProductStatus `json:"status"`
	CategoryID    string               `json:"category_id"`
	Version       int                  `json:"version"`
	VariantCount  int                  `json:"variant_count"`
	MinPrice      int64                `json:"min_price"`
	ThumbnailURL  string               `json:"thumbnail_url,omitempty"`
	ImageCount    int                  `json:"image_count"`
	AutoThumbnail bool                 `json:"auto_thumbnail,omitempty"`
}

// ProductDeletedData is the payload of product.deleted events.
type ProductDeletedData struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
}

// publisher is satisfied by *pkgkafka.Producer.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes product domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a product event producer.
func NewProducer(kafka publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product, autoThumbnail bool) error {
	return p.publish(ctx, TopicProductCreated, product.ID, product.Version, productData(product, autoThumbnail))
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product, autoThumbnail bool) error {
	return p.publish(ctx, TopicProductUpdated, product.ID, product.Version, productData(product, autoThumbnail))
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string, version int) error {
	return p.publish(ctx, TopicProductDeleted, id, version, ProductDeletedData{ID: id, Version: version})
}

func (p *Producer) publish(ctx context.Context, topic, id string, version int, data any) error {
	evt, err := pkgkafka.NewEvent(topic, aggregateProduct, id, version, source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published product event",
		slog.String("topic", topic),
		slog.String("product_id", id),
		slog.Int("version", version),
	)
	return nil
}

func productData(p *domain.Product, autoThumbnail bool) ProductData {
	data := ProductData{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Status:        p.Status,
		CategoryID:    p.CategoryID,
		Version:       p.Version,
		VariantCount:  len(p.Variants),
		ImageCount:    len(p.Images),
		AutoThumbnail: autoThumbnail,
	}
	for i, v := range p.Variants {
		if i == 0 || v.Price < data.MinPrice {
			data.MinPrice = v.Price
		}
	}
	if thumb, ok := p.Thumbnail(); ok {
		data.ThumbnailURL = thumb.URL
	}
	return data
}

// Discard drops every event. It stands in for the producer when Kafka is
// disabled.
type Discard struct{}

func (Discard) PublishProductCreated(context.Context, *domain.Product, bool) error { return nil }
func (Discard) PublishProductUpdated(context.Context, *domain.Product, bool) error { return nil }
func (Discard) PublishProductDeleted(context.Context, string, int) error           { return nil }
