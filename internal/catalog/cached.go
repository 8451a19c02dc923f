package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/pkg/cache"
	"github.com/farehub/card-service/internal/pkg/logger"
	"go.uber.org/zap"
)

const productCacheTTL = 5 * time.Minute

// cachedRepository puts a Redis read-through cache in front of product
// lookups. Directory lookups stay uncached: activity flags must be fresh.
type cachedRepository struct {
	inner  Repository
	cache  *cache.RedisClient
	logger logger.ZapLogger
}

func NewCachedRepository(inner Repository, c *cache.RedisClient, log logger.ZapLogger) Repository {
	return &cachedRepository{inner: inner, cache: c, logger: log}
}

func (r *cachedRepository) GetProduct(ctx context.Context, categoryID, typeID string) (*model.CardProduct, error) {
	key := fmt.Sprintf("catalog:product:%s:%s", categoryID, typeID)

	var cached model.CardProduct
	hit, err := r.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		r.logger.Warn("product cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	p, err := r.inner.GetProduct(ctx, categoryID, typeID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetJSON(ctx, key, p, productCacheTTL); err != nil {
		r.logger.Warn("product cache write failed", zap.String("key", key), zap.Error(err))
	}
	return p, nil
}

func (r *cachedRepository) GetMember(ctx context.Context, id string) (*model.Member, error) {
	return r.inner.GetMember(ctx, id)
}

func (r *cachedRepository) GetOperator(ctx context.Context, id string) (*model.Operator, error) {
	return r.inner.GetOperator(ctx, id)
}

func (r *cachedRepository) GetStation(ctx context.Context, id string) (*model.Station, error) {
	return r.inner.GetStation(ctx, id)
}
