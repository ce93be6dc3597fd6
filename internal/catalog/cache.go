// AngelaMos | 2026
// cache.go

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "catalog:"

var ErrCacheMiss = errors.New("cache miss")

// KV is the byte store behind Cache.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type redisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) KV {
	return &redisKV{client: client}
}

func (r *redisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (r *redisKV) Set(
	ctx context.Context,
	key string,
	value []byte,
	ttl time.Duration,
) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisKV) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// Reader is the read side generation depends on.
type Reader interface {
	Category(ctx context.Context, id, lang string) (*Category, error)
	Prompt(ctx context.Context, categoryID, lang string) (*Prompt, error)
	Tone(ctx context.Context, id string) (*Tone, error)
	Inputs(ctx context.Context, categoryID, lang string) ([]Input, error)
}

// Cache is a read-through cache over Repository. Concurrent misses on the
// same key share a single load. Cache failures fall through to the
// repository and are only logged.
type Cache struct {
	repo   Repository
	kv     KV
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

func NewCache(repo Repository, kv KV, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		repo:   repo,
		kv:     kv,
		ttl:    ttl,
		logger: logger,
	}
}

func categoryKey(id, lang string) string {
	return fmt.Sprintf("%scategory:%s:%s", keyPrefix, id, lang)
}

func categoriesKey(lang string) string {
	return keyPrefix + "categories:" + lang
}

func promptKey(categoryID, lang string) string {
	return fmt.Sprintf("%sprompt:%s:%s", keyPrefix, categoryID, lang)
}

func inputsKey(categoryID, lang string) string {
	return fmt.Sprintf("%sinputs:%s:%s", keyPrefix, categoryID, lang)
}

func toneKey(id string) string {
	return keyPrefix + "tone:" + id
}

const tonesKey = keyPrefix + "tones"

func (c *Cache) Category(ctx context.Context, id, lang string) (*Category, error) {
	return readThrough(ctx, c, categoryKey(id, lang), func(ctx context.Context) (*Category, error) {
		return c.repo.GetCategory(ctx, id, lang)
	})
}

func (c *Cache) Categories(ctx context.Context, lang string) ([]Category, error) {
	return readThrough(ctx, c, categoriesKey(lang), func(ctx context.Context) ([]Category, error) {
		return c.repo.ListCategories(ctx, lang)
	})
}

func (c *Cache) Prompt(ctx context.Context, categoryID, lang string) (*Prompt, error) {
	return readThrough(ctx, c, promptKey(categoryID, lang), func(ctx context.Context) (*Prompt, error) {
		return c.repo.GetPrompt(ctx, categoryID, lang)
	})
}

func (c *Cache) Tone(ctx context.Context, id string) (*Tone, error) {
	return readThrough(ctx, c, toneKey(id), func(ctx context.Context) (*Tone, error) {
		return c.repo.GetTone(ctx, id)
	})
}

func (c *Cache) Tones(ctx context.Context) ([]Tone, error) {
	return readThrough(ctx, c, tonesKey, c.repo.ListTones)
}

// Inputs returns ErrInputsNotFound rather than an empty list, so an empty
// result is never cached.
func (c *Cache) Inputs(ctx context.Context, categoryID, lang string) ([]Input, error) {
	return readThrough(ctx, c, inputsKey(categoryID, lang), func(ctx context.Context) ([]Input, error) {
		inputs, err := c.repo.ListInputs(ctx, categoryID, lang)
		if err != nil {
			return nil, err
		}
		if len(inputs) == 0 {
			return nil, ErrInputsNotFound
		}
		return inputs, nil
	})
}

func (c *Cache) InvalidateCategory(ctx context.Context, id, lang string) {
	c.invalidate(ctx,
		categoryKey(id, lang),
		categoriesKey(lang),
		promptKey(id, lang),
		inputsKey(id, lang),
	)
}

func (c *Cache) InvalidateTones(ctx context.Context) {
	c.invalidate(ctx, tonesKey)
}

func (c *Cache) invalidate(ctx context.Context, keys ...string) {
	if c.kv == nil {
		return
	}
	for _, key := range keys {
		c.group.Forget(key)
	}
	if err := c.kv.Del(ctx, keys...); err != nil {
		c.logger.WarnContext(ctx, "catalog cache invalidation failed",
			"keys", keys,
			"error", err,
		)
	}
}

const loadTimeout = 5 * time.Second

func readThrough[T any](
	ctx context.Context,
	c *Cache,
	key string,
	load func(context.Context) (T, error),
) (T, error) {
	var zero T

	if c.kv != nil {
		raw, err := c.kv.Get(ctx, key)
		switch {
		case err == nil:
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			c.logger.WarnContext(ctx, "discarding corrupt catalog cache entry", "key", key)
		case !errors.Is(err, ErrCacheMiss):
			c.logger.WarnContext(ctx, "catalog cache read failed",
				"key", key,
				"error", err,
			)
		}
	}

	// The shared load outlives any single caller's cancellation.
	v, err, _ := c.group.Do(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		loaded, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.store(loadCtx, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("catalog cache: unexpected type for %s", key)
	}
	return out, nil
}

func (c *Cache) store(ctx context.Context, key string, value any) {
	if c.kv == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "catalog cache encode failed", "key", key, "error", err)
		return
	}

	if err := c.kv.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed",
			"key", key,
			"error", err,
		)
	}
}
