package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"crmgateway/internal/domain"
)

type Repository interface {
	FindActiveByName(ctx context.Context, name string) (*domain.Template, error)
}

// CachedRepository is a read-through Redis cache in front of a template
// repository. Redis failures degrade to reading the repository directly.
type CachedRepository struct {
	next   Repository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedRepository(next Repository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

type cachedTemplate struct {
	ID                        string `json:"id"`
	Name                      string `json:"name"`
	Content                   string `json:"content"`
	IsActive                  bool   `json:"isActive"`
	RequiresAdditionalInfo    bool   `json:"requiresAdditionalInfo"`
	AdditionalInfoLabel       string `json:"additionalInfoLabel"`
	AdditionalInfoPlaceholder string `json:"additionalInfoPlaceholder"`
}

func (c *CachedRepository) FindActiveByName(ctx context.Context, name string) (*domain.Template, error) {
	key := cacheKey(name)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ct cachedTemplate
		if jerr := json.Unmarshal(data, &ct); jerr == nil {
			t := domain.Template(ct)
			return &t, nil
		}
		c.logger.Warn("discarding undecodable cached template", zap.String("name", name))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("template cache read failed", zap.String("name", name), zap.Error(err))
	}

	t, err := c.next.FindActiveByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if payload, jerr := json.Marshal(cachedTemplate(*t)); jerr == nil {
		if serr := c.client.Set(ctx, key, payload, c.ttl).Err(); serr != nil {
			c.logger.Warn("template cache write failed", zap.String("name", name), zap.Error(serr))
		}
	}

	return t, nil
}

func cacheKey(name string) string {
	return fmt.Sprintf("template:%s", name)
}
