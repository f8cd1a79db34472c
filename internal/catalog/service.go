package catalog

import (
	"context"

	"catalog-admin/internal/client"
	"catalog-admin/internal/domain"

	"go.uber.org/zap"
)

// Service is the product resource bound to one session. Reads go through
// the session's QueryCache; successful writes invalidate it.
type Service struct {
	api    *ProductAPI
	tokens client.TokenSource
	cache  *QueryCache
	logger *zap.Logger
}

// NewService binds api to a session
func NewService(api *ProductAPI, tokens client.TokenSource, cache *QueryCache, logger *zap.Logger) *Service {
	if cache == nil {
		cache = NewQueryCache(0)
	}
	return &Service{
		api:    api,
		tokens: tokens,
		cache:  cache,
		logger: logger,
	}
}

// ServerSort reports whether the backend sorts the list
func (s *Service) ServerSort() bool {
	return s.api.ServerSort()
}

// Cache exposes the session's query cache
func (s *Service) Cache() *QueryCache {
	return s.cache
}

// List returns one page of products
func (s *Service) List(ctx context.Context, q domain.ListQuery) (*domain.ListResult, error) {
	return s.cache.List(ctx, q, func(ctx context.Context) (*domain.ListResult, error) {
		return s.api.List(ctx, s.tokens, q)
	})
}

// Detail returns one product, or nil when id is empty
func (s *Service) Detail(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, nil
	}
	return s.cache.Detail(ctx, id, func(ctx context.Context) (*domain.Product, error) {
		return s.api.Detail(ctx, s.tokens, id)
	})
}

// Create adds a product and invalidates every cached list
func (s *Service) Create(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	product, err := s.api.Create(ctx, s.tokens, in)
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateLists()
	s.cache.InvalidateDetail(product.Key())

	s.logger.Info("Product created", zap.String("key", product.Key()))
	return product, nil
}

// Update changes a product and invalidates the lists and its detail
func (s *Service) Update(ctx context.Context, id string, in domain.ProductInput) (*domain.Product, error) {
	product, err := s.api.Update(ctx, s.tokens, id, in)
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateLists()
	s.cache.InvalidateProduct(id)
	s.cache.InvalidateDetail(product.Key())

	s.logger.Info("Product updated", zap.String("key", id))
	return product, nil
}

// Delete removes a product and invalidates the lists and its details under
// both id and slug
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.api.Delete(ctx, s.tokens, id); err != nil {
		return err
	}

	s.cache.InvalidateLists()
	s.cache.InvalidateProduct(id)

	s.logger.Info("Product deleted", zap.String("key", id))
	return nil
}

// Reset drops the session's cached reads
func (s *Service) Reset() {
	s.cache.Reset()
}
