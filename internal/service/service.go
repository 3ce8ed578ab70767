package service

import (
	"context"
	"errors"
	"time"

	redisclient "github.com/heimaolst/shortlink/db/redis"
	db "github.com/heimaolst/shortlink/db/store"
	"github.com/heimaolst/shortlink/internal/model"
	"github.com/heimaolst/shortlink/internal/util"
)

// LinkStore 链接持久化，*db.Store 实现了它
type LinkStore interface {
	CreateLink(ctx context.Context, link *model.Link) error
	GetLinkByCode(ctx context.Context, code string) (*model.Link, error)
	GetLink(ctx context.Context, ownerID, id string) (*model.Link, error)
	IncrementClicks(ctx context.Context, id string, at time.Time) (bool, error)
	ListLinks(ctx context.Context, ownerID, search string, offset, limit int) ([]model.Link, int64, error)
	UpdateLink(ctx context.Context, ownerID, id string, fields map[string]any) (*model.Link, error)
	DeleteLink(ctx context.Context, ownerID, id string) (*model.Link, error)
	Stats(ctx context.Context, ownerID string, n int) (*db.LinkStats, error)
}

// AccountStore 用户持久化，*db.Store 实现了它
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	UpdateAccount(ctx context.Context, id string, fields map[string]any) (*model.Account, error)
	DeleteAccount(ctx context.Context, id string) ([]string, error)
}

// Cache 读穿缓存。未命中时返回 redisclient.ErrCacheMiss
type Cache interface {
	GetLink(ctx context.Context, shortCode string) (*model.CachedLink, error)
	SetLink(ctx context.Context, shortCode string, link model.CachedLink) error
	DeleteLink(ctx context.Context, shortCodes ...string) error
	GetAccount(ctx context.Context, id string) (*model.Principal, error)
	SetAccount(ctx context.Context, principal model.Principal) error
	DeleteAccount(ctx context.Context, id string) error
}

// NopCache 未配置 Redis 时使用，所有读取都未命中
type NopCache struct{}

func (NopCache) GetLink(context.Context, string) (*model.CachedLink, error) {
	return nil, redisclient.ErrCacheMiss
}
func (NopCache) SetLink(context.Context, string, model.CachedLink) error { return nil }
func (NopCache) DeleteLink(context.Context, ...string) error             { return nil }
func (NopCache) GetAccount(context.Context, string) (*model.Principal, error) {
	return nil, redisclient.ErrCacheMiss
}
func (NopCache) SetAccount(context.Context, model.Principal) error { return nil }
func (NopCache) DeleteAccount(context.Context, string) error       { return nil }

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, db.ErrDuplicateKey)
}

func isCacheMiss(err error) bool {
	return errors.Is(err, redisclient.ErrCacheMiss)
}

func fieldError(field, message string) error {
	return util.Validation("validation failed", util.FieldError{Field: field, Message: message})
}
