package service

import (
	"context"
	"course_study_backend/internal/config"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"errors"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	Users UserStore
	Clock util.Clock
	Cfg   *config.Config
}

func NewAuthService(users UserStore, clock util.Clock, cfg *config.Config) *AuthService {
	return &AuthService{
		Users: users,
		Clock: clock,
		Cfg:   cfg,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register 配置中的管理员邮箱注册时获得 admin 角色
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	_, err := s.Users.FindByEmail(ctx, addr)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    addr,
		Password: string(hashedPassword),
		Role:     model.RoleStudent,
	}
	if slices.Contains(s.Cfg.Auth.AdminEmails, addr) {
		user.Role = model.RoleAdmin
	}
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (string, *model.User, error) {
	user, err := s.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, util.ErrInvalidLogin
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", nil, util.ErrInvalidLogin
	}
	if user.Disabled {
		return "", nil, util.ErrAccountDisabled
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	now := s.Clock.Now()
	if err := s.Users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return "", nil, err
	}
	user.LastLogin = &now
	return token, user, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}
