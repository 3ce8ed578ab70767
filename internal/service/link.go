package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/heimaolst/shortlink/internal/model"
	"github.com/heimaolst/shortlink/internal/util"
	"go.uber.org/zap"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 500
	maxTags              = 20
	maxTagLength         = 50
)

type LinkOptions struct {
	BaseURL    string
	CodeLength int
	MaxRetries int
}

// LinkService 链接的增删改查，所有操作都限定在调用方自己的链接内
type LinkService struct {
	store      LinkStore
	cache      Cache
	logger     *zap.Logger
	baseURL    string
	codeLength int
	maxRetries int
	now        func() time.Time
	generate   func(length int) (string, error)
}

func NewLinkService(store LinkStore, cache Cache, logger *zap.Logger, opts LinkOptions) *LinkService {
	if cache == nil {
		cache = NopCache{}
	}
	if opts.CodeLength == 0 {
		opts.CodeLength = util.DefaultShortCodeLength
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 5
	}
	return &LinkService{
		store:      store,
		cache:      cache,
		logger:     logger,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		codeLength: opts.CodeLength,
		maxRetries: opts.MaxRetries,
		now:        utcNow,
		generate:   util.GenerateShortCode,
	}
}

// ShortURL 短码对应的对外访问地址
func (s *LinkService) ShortURL(code string) string {
	return s.baseURL + "/r/" + code
}

// Create 生成短码并插入，唯一约束冲突时换一个短码重试，重试耗尽返回 Conflict
func (s *LinkService) Create(ctx context.Context, ownerID string, req model.CreateLinkRequest) (*model.Link, error) {
	if err := validateOriginalURL(req.OriginalURL); err != nil {
		return nil, err
	}
	if err := validateText("title", req.Title, maxTitleLength); err != nil {
		return nil, err
	}
	if err := validateText("description", req.Description, maxDescriptionLength); err != nil {
		return nil, err
	}
	tags := model.NormalizeTags(req.Tags)
	if err := validateTags(tags); err != nil {
		return nil, err
	}

	now := s.now()
	link := &model.Link{
		OriginalURL: strings.TrimSpace(req.OriginalURL),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Tags:        tags,
		IsActive:    true,
		CreatedAt:   now,
	}
	if req.ExpiresAt != nil {
		expiresAt := req.ExpiresAt.UTC()
		link.ExpiresAt = &expiresAt
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		code, err := s.generate(s.codeLength)
		if err != nil {
			return nil, util.Internal(fmt.Errorf("generate short code: %w", err))
		}
		link.ID = uuid.NewString()
		link.ShortCode = code

		err = s.store.CreateLink(ctx, link)
		if err == nil {
			if cacheErr := s.cache.SetLink(ctx, code, link.Cached()); cacheErr != nil {
				s.logger.Warn("failed to cache new link", zap.String("short_code", code), zap.Error(cacheErr))
			}
			link.ShortURL = s.ShortURL(code)
			return link, nil
		}
		if !isDuplicate(err) {
			return nil, util.Internal(err)
		}
		s.logger.Warn("short code collision, retrying",
			zap.String("short_code", code), zap.Int("attempt", attempt))
	}
	return nil, util.Conflict("could not allocate a unique short code, please retry")
}

// List 分页返回调用方的链接，按创建时间倒序
func (s *LinkService) List(ctx context.Context, ownerID string, query model.ListLinksQuery) (*model.LinkPage, error) {
	if query.Page < 1 {
		return nil, fieldError("page", "must be at least 1")
	}
	if query.Limit < 1 || query.Limit > 100 {
		return nil, fieldError("limit", "must be between 1 and 100")
	}

	search := strings.TrimSpace(query.Search)
	links, total, err := s.store.ListLinks(ctx, ownerID, search, (query.Page-1)*query.Limit, query.Limit)
	if err != nil {
		return nil, util.Internal(err)
	}
	for i := range links {
		links[i].ShortURL = s.ShortURL(links[i].ShortCode)
	}

	return &model.LinkPage{
		Items:      links,
		Total:      total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: int((total + int64(query.Limit) - 1) / int64(query.Limit)),
	}, nil
}

// Get 不属于调用方的链接与不存在的链接返回同样的 NotFound
func (s *LinkService) Get(ctx context.Context, ownerID, id string) (*model.Link, error) {
	link, err := s.store.GetLink(ctx, ownerID, id)
	if err != nil {
		return nil, linkError(err)
	}
	link.ShortURL = s.ShortURL(link.ShortCode)
	return link, nil
}

// Update 只修改请求中出现的字段，originalUrl、shortCode 等不可变字段不会被触及
func (s *LinkService) Update(ctx context.Context, ownerID, id string, req model.UpdateLinkRequest) (*model.Link, error) {
	fields := make(map[string]any)
	if req.Title != nil {
		if err := validateText("title", *req.Title, maxTitleLength); err != nil {
			return nil, err
		}
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		if err := validateText("description", *req.Description, maxDescriptionLength); err != nil {
			return nil, err
		}
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Tags != nil {
		tags := model.NormalizeTags(*req.Tags)
		if err := validateTags(tags); err != nil {
			return nil, err
		}
		fields["tags"] = tags
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if req.ExpiresAt.Set {
		if req.ExpiresAt.Value == nil {
			fields["expires_at"] = nil
		} else {
			fields["expires_at"] = req.ExpiresAt.Value.UTC()
		}
	}

	link, err := s.store.UpdateLink(ctx, ownerID, id, fields)
	if err != nil {
		return nil, linkError(err)
	}
	if len(fields) > 0 {
		s.evict(ctx, link.ShortCode)
	}
	link.ShortURL = s.ShortURL(link.ShortCode)
	return link, nil
}

// Delete 硬删除，重复删除返回 NotFound
func (s *LinkService) Delete(ctx context.Context, ownerID, id string) error {
	link, err := s.store.DeleteLink(ctx, ownerID, id)
	if err != nil {
		return linkError(err)
	}
	s.evict(ctx, link.ShortCode)
	return nil
}

func (s *LinkService) evict(ctx context.Context, codes ...string) {
	if err := s.cache.DeleteLink(ctx, codes...); err != nil {
		s.logger.Warn("failed to evict cached link", zap.Strings("short_codes", codes), zap.Error(err))
	}
}

func linkError(err error) error {
	if isNotFound(err) {
		return util.NotFound("link not found")
	}
	return util.Internal(err)
}

func validateOriginalURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fieldError("originalUrl", "is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fieldError("originalUrl", "must be a valid http or https URL")
	}
	return nil
}

func validateText(field, value string, limit int) error {
	if utf8.RuneCountInString(strings.TrimSpace(value)) > limit {
		return fieldError(field, fmt.Sprintf("must be at most %d characters", limit))
	}
	return nil
}

func validateTags(tags model.TagList) error {
	if len(tags) > maxTags {
		return fieldError("tags", fmt.Sprintf("at most %d tags are allowed", maxTags))
	}
	for _, tag := range tags {
		if len(tag) > maxTagLength {
			return fieldError("tags", fmt.Sprintf("each tag must be at most %d characters", maxTagLength))
		}
	}
	return nil
}
