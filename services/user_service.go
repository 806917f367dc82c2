package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/kendall-kelly/restaurant-pos-api/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrIdentityProvider wraps failures of the userinfo lookup
var ErrIdentityProvider = errors.New("identity provider request failed")

// UserService manages staff profiles and resolves authenticated callers to principals
type UserService struct {
	store    *store.Store
	userInfo UserInfoProvider
	logger   *zap.Logger
}

// NewUserService creates a user service
func NewUserService(st *store.Store, userInfo UserInfoProvider, logger *zap.Logger) *UserService {
	return &UserService{
		store:    st,
		userInfo: userInfo,
		logger:   logger.Named("users"),
	}
}

// CreateProfile registers the caller behind accessToken with the given role
func (s *UserService) CreateProfile(ctx context.Context, auth0ID, accessToken string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, validationError("invalid role %q", role)
	}

	info, err := s.userInfo.GetUserInfo(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityProvider, err)
	}
	if strings.TrimSpace(info.Email) == "" {
		return nil, validationError("email not provided by identity provider")
	}
	if strings.TrimSpace(info.Name) == "" {
		return nil, validationError("name not provided by identity provider")
	}

	user := models.User{
		Auth0ID: auth0ID,
		Name:    strings.TrimSpace(info.Name),
		Email:   strings.TrimSpace(info.Email),
		Role:    role,
	}
	if err := s.store.DB(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, conflictError("a user with this Auth0 ID or email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created", zap.Uint("user_id", user.ID), zap.String("role", string(role)))
	return &user, nil
}

// GetByAuth0ID returns the profile registered for an Auth0 subject
func (s *UserService) GetByAuth0ID(ctx context.Context, auth0ID string) (*models.User, error) {
	var user models.User
	err := s.store.DB(ctx).Where("auth0_id = ?", auth0ID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("user profile not found, create a profile first")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// ResolvePrincipal maps an Auth0 subject to the principal services authorize against
func (s *UserService) ResolvePrincipal(ctx context.Context, auth0ID string) (Principal, error) {
	user, err := s.GetByAuth0ID(ctx, auth0ID)
	if err != nil {
		return Principal{}, err
	}
	if !user.Role.Valid() {
		return Principal{}, forbiddenError("user has no recognised role")
	}
	return Principal{UserID: user.ID, Role: user.Role}, nil
}
