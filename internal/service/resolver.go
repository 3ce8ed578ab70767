package service

import (
	"context"
	"time"

	"github.com/heimaolst/shortlink/internal/model"
	"github.com/heimaolst/shortlink/internal/util"
	"go.uber.org/zap"
)

// Resolver 把短码解析为原始链接并记录一次点击
type Resolver struct {
	store  LinkStore
	cache  Cache
	logger *zap.Logger
	now    func() time.Time
}

func NewResolver(store LinkStore, cache Cache, logger *zap.Logger) *Resolver {
	if cache == nil {
		cache = NopCache{}
	}
	return &Resolver{store: store, cache: cache, logger: logger, now: utcNow}
}

// Resolve 不存在返回 NotFound；停用或已过期返回 Gone；
// 成功时原子地 clicks+1、更新 lastClicked，再返回原始链接。
// 缓存只用来找到链接，能否跳转以数据库里的条件更新为准。
func (r *Resolver) Resolve(ctx context.Context, shortCode string) (string, error) {
	if !util.IsShortCode(shortCode) {
		return "", util.NotFound("short link not found")
	}

	link, cached, err := r.lookup(ctx, shortCode)
	if err != nil {
		return "", err
	}

	now := r.now()
	if cached && unavailable(link, now) != nil {
		// 缓存可能落后于数据库，重新读取
		r.evict(ctx, shortCode)
		if link, err = r.load(ctx, shortCode); err != nil {
			return "", err
		}
	}
	if err := unavailable(link, now); err != nil {
		return "", err
	}

	counted, err := r.store.IncrementClicks(ctx, link.ID, now)
	if err != nil {
		return "", util.Internal(err)
	}
	if counted {
		return link.OriginalURL, nil
	}

	// 数据库里的记录已被删除、停用或修改了过期时间
	r.evict(ctx, shortCode)
	link, err = r.load(ctx, shortCode)
	if err != nil {
		return "", err
	}
	if err := unavailable(link, now); err != nil {
		return "", err
	}
	if counted, err = r.store.IncrementClicks(ctx, link.ID, now); err != nil {
		return "", util.Internal(err)
	}
	if !counted {
		return "", util.Gone("short link is no longer available")
	}
	return link.OriginalURL, nil
}

func unavailable(link *model.CachedLink, now time.Time) error {
	if !link.IsActive {
		return util.Gone("short link is inactive")
	}
	if link.IsExpired(now) {
		return util.Gone("short link has expired")
	}
	return nil
}

// lookup 先查 Redis 哈希，未命中再查数据库并回填；cached 表示结果来自缓存
func (r *Resolver) lookup(ctx context.Context, shortCode string) (link *model.CachedLink, cached bool, err error) {
	link, err = r.cache.GetLink(ctx, shortCode)
	if err == nil {
		return link, true, nil
	}
	if !isCacheMiss(err) {
		r.logger.Warn("redis error while resolving short code", zap.String("short_code", shortCode), zap.Error(err))
	}

	link, err = r.load(ctx, shortCode)
	return link, false, err
}

func (r *Resolver) load(ctx context.Context, shortCode string) (*model.CachedLink, error) {
	link, err := r.store.GetLinkByCode(ctx, shortCode)
	if err != nil {
		if isNotFound(err) {
			return nil, util.NotFound("short link not found")
		}
		return nil, util.Internal(err)
	}

	entry := link.Cached()
	if err := r.cache.SetLink(ctx, shortCode, entry); err != nil {
		r.logger.Warn("failed to cache link", zap.String("short_code", shortCode), zap.Error(err))
	}
	return &entry, nil
}

func (r *Resolver) evict(ctx context.Context, shortCode string) {
	if err := r.cache.DeleteLink(ctx, shortCode); err != nil {
		r.logger.Warn("failed to evict cached link", zap.String("short_code", shortCode), zap.Error(err))
	}
}
