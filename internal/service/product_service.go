package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"vapestore/internal/imagestore"
	"vapestore/internal/model"
	"vapestore/internal/repository"

	"github.com/rs/zerolog"
)

const catalogUnavailable = "The catalog is not available right now, please try again later"

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	images      imagestore.Store
	now         func() time.Time
	logger      zerolog.Logger
}

// NewProductService creates a new product service. images may be nil when
// image uploads are not configured.
func NewProductService(productRepo repository.ProductRepository, images imagestore.Store, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		images:      images,
		now:         time.Now,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// List retrieves the products matching the filter.
func (s *productService) List(ctx context.Context, f Filter) ([]model.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list products")
		return nil, model.Upstream("list products", catalogUnavailable, err)
	}

	filtered := make([]model.Product, 0, len(products))
	brand := strings.ToLower(strings.TrimSpace(f.Brand))
	for _, p := range products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if brand != "" && !strings.Contains(strings.ToLower(p.Name), brand) {
			continue
		}
		if f.MaxPrice > 0 && p.Price > f.MaxPrice {
			continue
		}
		filtered = append(filtered, p)
	}

	switch f.Sort {
	case SortByPriceAsc:
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Price < filtered[j].Price })
	case SortByPriceDesc:
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Price > filtered[j].Price })
	case SortByName:
		sort.SliceStable(filtered, func(i, j int) bool {
			return strings.ToLower(filtered[i].Name) < strings.ToLower(filtered[j].Name)
		})
	}

	s.logger.Debug().
		Int("total", len(products)).
		Int("matched", len(filtered)).
		Msg("retrieved products")

	return filtered, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id int) (*model.Product, error) {
	if id <= 0 {
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int("product_id", id).Msg("failed to get product by ID")
		return nil, model.Upstream("get product", catalogUnavailable, err)
	}

	if product == nil {
		s.logger.Debug().Int("product_id", id).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// Create adds a product.
func (s *productService) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("name", p.Name).Msg("failed to create product")
		return nil, model.Upstream("create product", "Could not save the product", err)
	}

	s.logger.Info().Int("product_id", p.ID).Str("name", p.Name).Msg("product created")
	return p, nil
}

// Update overwrites an existing product.
func (s *productService) Update(ctx context.Context, p *model.Product) (*model.Product, error) {
	if p.ID <= 0 {
		return nil, model.ErrProductNotFound
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.productRepo.Update(ctx, p)
	if err != nil {
		s.logger.Error().Err(err).Int("product_id", p.ID).Msg("failed to update product")
		return nil, model.Upstream("update product", "Could not save the product", err)
	}
	if !ok {
		return nil, model.ErrProductNotFound
	}

	s.logger.Info().Int("product_id", p.ID).Msg("product updated")
	return p, nil
}

// Delete removes a product.
func (s *productService) Delete(ctx context.Context, id int) error {
	ok, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int("product_id", id).Msg("failed to delete product")
		return model.Upstream("delete product", "Could not delete the product", err)
	}
	if !ok {
		return model.ErrProductNotFound
	}

	s.logger.Info().Int("product_id", id).Msg("product deleted")
	return nil
}

// SetImage uploads a new product image and stores its URL.
func (s *productService) SetImage(ctx context.Context, id int, upload ImageUpload) (*model.Product, error) {
	if s.images == nil {
		return nil, model.ErrImageStoreDisabled
	}

	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Upload(ctx, id, upload.Filename, upload.ContentType, upload.Body)
	if err != nil {
		return nil, err
	}

	ok, err := s.productRepo.SetImageURL(ctx, id, url)
	if err != nil {
		s.logger.Error().Err(err).Int("product_id", id).Msg("failed to store image URL")
		return nil, model.Upstream("set product image", "Could not save the product", err)
	}
	if !ok {
		return nil, model.ErrProductNotFound
	}

	product.ImageURL = url
	return product, nil
}

// AddReview prepends a review written by the logged in user.
func (s *productService) AddReview(ctx context.Context, productID int, user *model.User, rating int, comment string) (*model.Product, error) {
	if user == nil {
		return nil, model.ErrUnauthenticated
	}
	if rating < 1 || rating > 5 {
		return nil, model.ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, model.InvalidRequest("Review comment is required")
	}

	review := model.NewReview(user.Name, user.Avatar, rating, comment, s.now())

	product, err := s.productRepo.PrependReview(ctx, productID, review)
	if err != nil {
		s.logger.Error().Err(err).Int("product_id", productID).Msg("failed to add review")
		return nil, model.Upstream("add review", "Could not save your review, please try again", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	s.logger.Info().
		Int("product_id", productID).
		Str("review_id", review.ID).
		Int("rating", rating).
		Msg("review added")
	return product, nil
}

// SeedIfEmpty loads the initial catalog once per database.
func (s *productService) SeedIfEmpty(ctx context.Context, products []model.Product) (bool, error) {
	for _, p := range products {
		if p.ID <= 0 {
			return false, model.InvalidProduct("seed products need an explicit id")
		}
		if err := p.Validate(); err != nil {
			return false, err
		}
	}

	seeded, err := s.productRepo.SeedIfEmpty(ctx, products)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to seed catalog")
		return false, model.Upstream("seed catalog", catalogUnavailable, err)
	}

	if seeded {
		s.logger.Info().Int("count", len(products)).Msg("catalog seeded")
	} else {
		s.logger.Info().Msg("catalog already seeded, skipping")
	}
	return seeded, nil
}
