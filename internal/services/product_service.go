package services

import (
	"context"
	"io"

	"katalog/internal/apperrors"
	"katalog/internal/models"
	"katalog/internal/repositories"

	"go.uber.org/zap"
)

const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// ImageStore persists product images.
type ImageStore interface {
	Save(originalName string, content io.Reader) (string, error)
	Remove(name string) error
}

// EventPublisher publishes product lifecycle events.
type EventPublisher interface {
	PublishProductEvent(event string, payload interface{}) error
}

// ImageUpload is an image received with a create or update request.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// ProductInput carries the editable product fields.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Unit        string
	Stock       int
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Unit = in.Unit
	p.Stock = in.Stock
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo   repositories.ProductRepository
	images ImageStore
	events EventPublisher
	logger *zap.Logger
}

// NewProductService creates a new ProductService. events may be nil.
func NewProductService(repo repositories.ProductRepository, images ImageStore, events EventPublisher, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		repo:   repo,
		images: images,
		events: events,
		logger: logger,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct stores the image and then the product record. The image is
// mandatory.
func (s *ProductService) CreateProduct(ctx context.Context, input ProductInput, image *ImageUpload) (*models.Product, error) {
	if image == nil {
		return nil, apperrors.Validation("Image is required")
	}

	filename, err := s.images.Save(image.Filename, image.Content)
	if err != nil {
		return nil, apperrors.Storage(err, "failed to store product image")
	}

	product := &models.Product{Image: filename}
	input.apply(product)
	if err := s.repo.Create(ctx, product); err != nil {
		s.removeImage(filename, "")
		return nil, err
	}

	s.publish(EventProductCreated, product)
	return product, nil
}

// UpdateProduct applies input to the product. With a new image the old file
// is removed after the record is updated; without one the stored filename
// is kept.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input ProductInput, image *ImageUpload) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldImage := product.Image
	input.apply(product)

	if image != nil {
		filename, err := s.images.Save(image.Filename, image.Content)
		if err != nil {
			return nil, apperrors.Storage(err, "failed to store product image")
		}
		product.Image = filename
	}

	if err := s.repo.Update(ctx, product); err != nil {
		if product.Image != oldImage {
			s.removeImage(product.Image, id)
		}
		return nil, err
	}

	if product.Image != oldImage && oldImage != "" {
		s.removeImage(oldImage, id)
	}

	s.publish(EventProductUpdated, product)
	return product, nil
}

// DeleteProduct deletes the record and then its image, if any.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if product.Image != "" {
		s.removeImage(product.Image, id)
	}

	s.publish(EventProductDeleted, map[string]string{"id": product.ID})
	return nil
}

// removeImage is best effort: failures are logged and swallowed.
func (s *ProductService) removeImage(name, productID string) {
	if err := s.images.Remove(name); err != nil {
		s.logger.Warn("failed to remove product image",
			zap.String("product_id", productID),
			zap.String("image", name),
			zap.Error(err),
		)
	}
}

func (s *ProductService) publish(event string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishProductEvent(event, payload); err != nil {
		s.logger.Warn("failed to publish product event", zap.String("event", event), zap.Error(err))
	}
}
