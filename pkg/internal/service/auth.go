package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yeisme/cloudbox/pkg/auth"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/types"
	"github.com/yeisme/cloudbox/pkg/rule"
)

// AuthService 注册、登录与令牌校验.
type AuthService struct {
	*base
	tokens *auth.TokenManager
}

func NewAuthService(c context.Context) *AuthService {
	b := fromContext(c)

	return &AuthService{
		base:   b,
		tokens: auth.NewTokenManager(b.cfg.Auth.JWTSecret, b.cfg.Auth.Issuer, b.cfg.Auth.TokenTTL),
	}
}

// invalid 把校验错误转换为 ValidationError，字段按名称排序.
func invalid(err error) error {
	fields := rule.Errors(err)
	if len(fields) == 0 {
		return errs.Validation("invalid input")
	}

	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, k+" "+v)
	}

	sort.Strings(parts)

	return errs.Validation("%s", strings.Join(parts, "; "))
}

func (s *AuthService) issue(u *model.User, msg string) (*types.AuthResponse, error) {
	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}

	return &types.AuthResponse{Message: msg, Token: token, ExpiresAt: exp, User: types.UserSummaryOf(u)}, nil
}

// Register 创建账户并签发令牌，邮箱已存在时返回 Conflict.
func (s *AuthService) Register(ctx context.Context, req types.RegisterRequest) (*types.AuthResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	req.Name = cleanText(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := rule.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	if err := auth.ValidatePassword(req.Password, s.cfg.Auth.MinPasswordLength); err != nil {
		return nil, errs.Validation("%s", err.Error())
	}

	db := s.db.WithContext(ctx)

	var n int64
	if err := db.Model(&model.User{}).Where("email = ?", req.Email).Count(&n).Error; err != nil {
		return nil, err
	}

	if n > 0 {
		return nil, errs.Conflict("email already registered")
	}

	hash, err := auth.HashPassword(req.Password, s.cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		StorageLimit: s.cfg.Quota.DefaultLimit,
		IsActive:     true,
		Role:         model.RoleUser,
	}

	if err := db.Create(u).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(u, "registration successful")
}

// Login 校验邮箱与密码，成功后记录登录时间.
func (s *AuthService) Login(ctx context.Context, req types.LoginRequest) (*types.AuthResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := rule.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	db := s.db.WithContext(ctx)

	var u model.User
	if err := db.Where("email = ?", req.Email).First(&u).Error; err != nil {
		if errs.CodeOf(notFoundOr(err, "user")) == errs.CodeNotFound {
			return nil, errs.Unauthorized("invalid email or password")
		}

		return nil, err
	}

	if !auth.CheckPassword(req.Password, u.PasswordHash) {
		return nil, errs.Unauthorized("invalid email or password")
	}

	if !u.IsActive {
		return nil, errs.Forbidden("account is disabled")
	}

	t := now()
	u.LastLoginAt = &t

	if err := db.Model(&u).UpdateColumn("last_login_at", t).Error; err != nil {
		return nil, err
	}

	s.record(ctx, u.ID, nil, model.ActionLogin, nil)

	return s.issue(&u, "login successful")
}

// Logout 令牌无状态，只记录活动.
func (s *AuthService) Logout(ctx context.Context, userID string) {
	s.record(ctx, userID, nil, model.ActionLogout, nil)
}

// Profile 当前用户信息.
func (s *AuthService) Profile(ctx context.Context, userID string) (*types.UserSummary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var u model.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}

	sum := types.UserSummaryOf(&u)

	return &sum, nil
}

// Authenticate 校验 Bearer 令牌并返回活跃用户.
// 令牌无效返回 Forbidden，用户不存在或已停用返回 Unauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	uid, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return nil, errs.Forbidden("invalid or expired token")
		}

		return nil, err
	}

	var u model.User
	if err := s.db.WithContext(ctx).Where("id = ?", uid).First(&u).Error; err != nil {
		if errs.CodeOf(notFoundOr(err, "user")) == errs.CodeNotFound {
			return nil, errs.Unauthorized("user not found")
		}

		return nil, err
	}

	if !u.IsActive {
		return nil, errs.Unauthorized("account is disabled")
	}

	return &u, nil
}
