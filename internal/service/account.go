package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/heimaolst/shortlink/internal/auth"
	"github.com/heimaolst/shortlink/internal/model"
	"github.com/heimaolst/shortlink/internal/util"
	"go.uber.org/zap"
)

type AccountService struct {
	store  AccountStore
	cache  Cache
	tokens *auth.TokenMaker
	logger *zap.Logger
	now    func() time.Time
}

func NewAccountService(store AccountStore, cache Cache, tokens *auth.TokenMaker, logger *zap.Logger) *AccountService {
	if cache == nil {
		cache = NopCache{}
	}
	return &AccountService{store: store, cache: cache, tokens: tokens, logger: logger, now: utcNow}
}

// Register 用户名和邮箱都必须唯一
func (s *AccountService) Register(ctx context.Context, req model.RegisterRequest) (*model.Account, error) {
	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fieldError("password", "cannot be hashed")
	}

	now := s.now()
	account := &model.Account{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if isDuplicate(err) {
			return nil, util.Conflict("username or email already exists")
		}
		return nil, util.Internal(err)
	}
	return account, nil
}

// Login 用户名不存在和密码错误返回同一个错误
func (s *AccountService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	account, err := s.store.GetAccountByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if isNotFound(err) {
			return nil, util.Unauthorized("invalid username or password")
		}
		return nil, util.Internal(err)
	}
	if err := auth.CheckPassword(req.Password, account.PasswordHash); err != nil {
		return nil, util.Unauthorized("invalid username or password")
	}

	accessToken, err := s.tokens.GenerateAccessToken(account.ID, account.Username)
	if err != nil {
		return nil, util.Internal(err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(account.ID)
	if err != nil {
		return nil, util.Internal(err)
	}
	return &model.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      *account,
	}, nil
}

// Refresh 用有效的 Refresh Token 换取新的 Access Token，用户必须仍然存在
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", util.Unauthorized("invalid refresh token")
	}
	account, err := s.store.GetAccountByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return "", util.Unauthorized("account no longer exists")
		}
		return "", util.Internal(err)
	}
	accessToken, err := s.tokens.GenerateAccessToken(account.ID, account.Username)
	if err != nil {
		return "", util.Internal(err)
	}
	return accessToken, nil
}

// Authenticate 校验 Access Token，并优先从缓存解析出调用方
func (s *AccountService) Authenticate(ctx context.Context, accessToken string) (*model.Principal, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, util.Unauthorized("invalid or expired token")
	}

	principal, err := s.cache.GetAccount(ctx, claims.UserID)
	if err == nil {
		return principal, nil
	}
	if !isCacheMiss(err) {
		s.logger.Warn("redis error while getting account", zap.String("account_id", claims.UserID), zap.Error(err))
	}

	account, err := s.store.GetAccountByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, util.Unauthorized("account no longer exists")
		}
		return nil, util.Internal(err)
	}

	p := account.Principal()
	if err := s.cache.SetAccount(ctx, p); err != nil {
		s.logger.Warn("failed to cache account", zap.String("account_id", p.ID), zap.Error(err))
	}
	return &p, nil
}

func (s *AccountService) Profile(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.store.GetAccountByID(ctx, id)
	if err != nil {
		return nil, accountError(err)
	}
	return account, nil
}

// UpdateProfile 只修改请求中出现的字段
func (s *AccountService) UpdateProfile(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.Account, error) {
	fields := make(map[string]any)
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Bio != nil {
		fields["bio"] = strings.TrimSpace(*req.Bio)
	}
	if req.Avatar != nil {
		fields["avatar"] = strings.TrimSpace(*req.Avatar)
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.now()
	}

	account, err := s.store.UpdateAccount(ctx, id, fields)
	if err != nil {
		return nil, accountError(err)
	}
	return account, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, id string, req model.ChangePasswordRequest) error {
	account, err := s.store.GetAccountByID(ctx, id)
	if err != nil {
		return accountError(err)
	}
	if err := auth.CheckPassword(req.CurrentPassword, account.PasswordHash); err != nil {
		return fieldError("currentPassword", "is incorrect")
	}
	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fieldError("newPassword", "cannot be hashed")
	}
	_, err = s.store.UpdateAccount(ctx, id, map[string]any{
		"password_hash": hashed,
		"updated_at":    s.now(),
	})
	return accountError(err)
}

// Delete 删除用户及其全部链接，并清理相关缓存
func (s *AccountService) Delete(ctx context.Context, id string) error {
	codes, err := s.store.DeleteAccount(ctx, id)
	if err != nil {
		return accountError(err)
	}
	if err := s.cache.DeleteLink(ctx, codes...); err != nil {
		s.logger.Warn("failed to evict links of deleted account", zap.String("account_id", id), zap.Error(err))
	}
	if err := s.cache.DeleteAccount(ctx, id); err != nil {
		s.logger.Warn("failed to evict deleted account", zap.String("account_id", id), zap.Error(err))
	}
	return nil
}

func accountError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return util.NotFound("account not found")
	}
	return util.Internal(err)
}
