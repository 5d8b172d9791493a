package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gamecontent-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	contentKeyPrefix = "gamecontent:content:"
	categoryStatsKey = "gamecontent:stats:categories"
	defaultCacheTTL  = 30 * time.Second
)

var _ ContentRepository = (*CachedContentRepository)(nil)

// CachedContentRepository кэширует чтения в Redis поверх любого ContentRepository.
// Записи неизменяемы, поэтому GetByID безопасно кэшировать до удаления.
// Ошибки Redis логируются и обходятся: источником истины остаётся next.
type CachedContentRepository struct {
	next   ContentRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedContentRepository(next ContentRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedContentRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedContentRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.Named("CachedContentRepo"),
	}
}

func contentKey(id uuid.UUID) string {
	return contentKeyPrefix + id.String()
}

func (r *CachedContentRepository) Create(ctx context.Context, content *models.GeneratedContent) error {
	if err := r.next.Create(ctx, content); err != nil {
		return err
	}
	r.invalidate(ctx, categoryStatsKey)
	return nil
}

func (r *CachedContentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error) {
	key := contentKey(id)
	var cached models.GeneratedContent
	if r.readJSON(ctx, key, &cached) {
		return &cached, nil
	}

	content, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.writeJSON(ctx, key, content)
	return content, nil
}

func (r *CachedContentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, contentKey(id), categoryStatsKey)
	return nil
}

// List не кэшируется.
func (r *CachedContentRepository) List(ctx context.Context, filter models.ContentFilter) ([]*models.GeneratedContent, error) {
	return r.next.List(ctx, filter)
}

func (r *CachedContentRepository) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	var cached []models.CategoryCount
	if r.readJSON(ctx, categoryStatsKey, &cached) {
		return cached, nil
	}

	counts, err := r.next.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}
	r.writeJSON(ctx, categoryStatsKey, counts)
	return counts, nil
}

func (r *CachedContentRepository) Count(ctx context.Context) (int64, error) {
	return r.next.Count(ctx)
}

func (r *CachedContentRepository) readJSON(ctx context.Context, key string, dest any) bool {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("Redis read failed, falling back to database", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Warn("Corrupted cache entry, dropping", zap.String("key", key), zap.Error(err))
		r.invalidate(ctx, key)
		return false
	}
	return true
}

func (r *CachedContentRepository) writeJSON(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("Failed to marshal cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("Redis write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachedContentRepository) invalidate(ctx context.Context, keys ...string) {
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("Redis invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// NewRedisClient создаёт клиента и проверяет соединение.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
