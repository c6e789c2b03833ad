package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/chowpati-api/internal/obs"
)

// ErrProductNotFound indicates the requested product does not exist.
var ErrProductNotFound = errors.New("product not found")

// ErrSizeNotFound is returned when a size label is not a variant of the product.
var ErrSizeNotFound = errors.New("size not offered for product")

// Service orchestrates product fetching, fallback data, and caching.
type Service struct {
	remote   Source
	fallback Source
	cache    *Cache
	logger   zerolog.Logger

	mu         sync.Mutex
	categories []string
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Remote   Source
	Fallback Source
	Cache    *Cache
	Logger   *zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	fallback := cfg.Fallback
	if fallback == nil {
		fallback = StaticSource{}
	}
	if cfg.Remote == nil && fallback == nil {
		return nil, errors.New("catalog: no product source configured")
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Service{
		remote:   cfg.Remote,
		fallback: fallback,
		cache:    cfg.Cache,
		logger:   logger,
	}, nil
}

// Products returns the product list from the first source that has one: the
// cache, the remote API, the last good remote copy, then the bundled list.
func (s *Service) Products(ctx context.Context) ([]Product, error) {
	if cached, err := s.cache.Products(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache read")
	} else if len(cached) > 0 {
		return cached, nil
	}

	if s.remote != nil {
		products, err := s.remote.FetchProducts(ctx)
		if err == nil {
			if err := s.cache.Store(ctx, products); err != nil {
				s.logger.Warn().Err(err).Msg("catalog cache write")
			}
			return products, nil
		}
		s.logger.Warn().Err(err).Msg("catalog remote failed")
	}

	if stale, err := s.cache.LastGood(ctx); err == nil && len(stale) > 0 {
		s.logger.Info().Int("products", len(stale)).Msg("serving last good catalog")
		return stale, nil
	}
	if obs.CatalogFallbackTotal != nil {
		obs.CatalogFallbackTotal.Inc()
	}
	products, err := s.fallback.FetchProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fallback catalog: %w", err)
	}
	return products, nil
}

// ListProducts filters products by category when one is given.
func (s *Service) ListProducts(ctx context.Context, category string) ([]Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return products, nil
	}
	filtered := make([]Product, 0, len(products))
	for _, p := range products {
		if strings.EqualFold(p.Category, category) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// Product looks a product up by id.
func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

// ResolveSize returns the product together with its size variant.
func (s *Service) ResolveSize(ctx context.Context, productID, size string) (Product, ProductSize, error) {
	product, err := s.Product(ctx, productID)
	if err != nil {
		return Product{}, ProductSize{}, err
	}
	variant, ok := product.SizeByLabel(size)
	if !ok {
		return Product{}, ProductSize{}, fmt.Errorf("%q for product %s: %w", size, productID, ErrSizeNotFound)
	}
	return product, variant, nil
}

// ConeCandy returns the count-based cone and kulfi products.
func (s *Service) ConeCandy(ctx context.Context) ([]Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0)
	for _, p := range products {
		if p.Category == CategoryConeCandy {
			out = append(out, p)
		}
	}
	return out, nil
}

// Categories returns distinct categories in first-seen order. The result is
// memoised until InvalidateCategories is called.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	if len(s.categories) > 0 {
		out := append([]string(nil), s.categories...)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(products))
	categories := make([]string, 0)
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}

	s.mu.Lock()
	s.categories = categories
	s.mu.Unlock()
	return append([]string(nil), categories...), nil
}

// InvalidateCategories drops the memoised category list.
func (s *Service) InvalidateCategories() {
	s.mu.Lock()
	s.categories = nil
	s.mu.Unlock()
}

// Refresh drops the cached product list and the category memo.
func (s *Service) Refresh(ctx context.Context) error {
	s.InvalidateCategories()
	return s.cache.Invalidate(ctx)
}

// FindByNameAndSize matches a product by name and offered size, ignoring case.
func (s *Service) FindByNameAndSize(ctx context.Context, name, size string) (Product, bool, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return Product{}, false, err
	}
	for _, p := range products {
		if strings.EqualFold(p.Name, name) && p.hasSizeFold(size) {
			return p, true, nil
		}
	}
	return Product{}, false, nil
}
