package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/heimaolst/shortlink/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	shortcodeHashKey = "shortlink:shortcode"
	accountKeyPrefix = "shortlink:account:"
	accountTTL       = time.Hour
)

// ErrCacheMiss 缓存中没有对应的条目
var ErrCacheMiss = redis.Nil

// NewRedisClient 解析 redis:// 地址并确认可以连通
func NewRedisClient(ctx context.Context, redisURL string, logger *zap.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cannot connect to redis: %w", err)
	}

	logger.Info("已连接Redis", zap.String("addr", opt.Addr), zap.String("pong", pong))
	return rdb, nil
}

// Cache 短码到重定向信息的哈希缓存，以及认证用户缓存
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// GetLink 从哈希中读取，未命中返回 ErrCacheMiss
func (c *Cache) GetLink(ctx context.Context, shortCode string) (*model.CachedLink, error) {
	payload, err := c.rdb.HGet(ctx, shortcodeHashKey, shortCode).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to execute HGet from redis: %w", err)
	}

	var cached model.CachedLink
	if err := json.Unmarshal(payload, &cached); err != nil {
		// 脏数据直接丢弃，按未命中处理
		c.rdb.HDel(ctx, shortcodeHashKey, shortCode)
		return nil, ErrCacheMiss
	}
	return &cached, nil
}

func (c *Cache) SetLink(ctx context.Context, shortCode string, link model.CachedLink) error {
	if shortCode == "" {
		return fmt.Errorf("invalid short code provided")
	}
	payload, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal cached link: %w", err)
	}
	if err := c.rdb.HSet(ctx, shortcodeHashKey, shortCode, payload).Err(); err != nil {
		return fmt.Errorf("failed to execute HSet on redis: %w", err)
	}
	return nil
}

func (c *Cache) DeleteLink(ctx context.Context, shortCodes ...string) error {
	if len(shortCodes) == 0 {
		return nil
	}
	return c.rdb.HDel(ctx, shortcodeHashKey, shortCodes...).Err()
}

func (c *Cache) GetAccount(ctx context.Context, id string) (*model.Principal, error) {
	payload, err := c.rdb.Get(ctx, accountKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account from redis: %w", err)
	}
	var principal model.Principal
	if err := json.Unmarshal(payload, &principal); err != nil {
		c.rdb.Del(ctx, accountKeyPrefix+id)
		return nil, ErrCacheMiss
	}
	return &principal, nil
}

// SetAccount 只缓存身份信息，不含密码哈希
func (c *Cache) SetAccount(ctx context.Context, principal model.Principal) error {
	payload, err := json.Marshal(principal)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, accountKeyPrefix+principal.ID, payload, accountTTL).Err()
}

func (c *Cache) DeleteAccount(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, accountKeyPrefix+id).Err()
}
