package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/restaurant-pos-api/middleware"
	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/kendall-kelly/restaurant-pos-api/services"
	"go.uber.org/zap"
)

// UserController serves the staff profile endpoints
type UserController struct {
	users  *services.UserService
	logger *zap.Logger
}

// NewUserController creates a user controller
func NewUserController(users *services.UserService, logger *zap.Logger) *UserController {
	return &UserController{users: users, logger: logger}
}

// CreateUser handles POST /api/v1/users - creates a new user from Auth0 userinfo
func (ctl *UserController) CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token")
		return
	}

	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found")
		return
	}

	// the role is granted by the identity provider, never chosen by the caller
	claimed := middleware.GetClaimedRole(c)
	if claimed == "" {
		respondError(c, http.StatusForbidden, "MISSING_ROLE_CLAIM", "Token carries no staff role")
		return
	}

	user, err := ctl.users.CreateProfile(c.Request.Context(), auth0ID, accessToken, models.Role(claimed))
	if err != nil {
		if errors.Is(err, services.ErrIdentityProvider) {
			ctl.logger.Warn("Failed to fetch user information from Auth0", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "AUTH0_ERROR", "Failed to fetch user information from Auth0")
			return
		}
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondCreated(c, user)
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func (ctl *UserController) GetMyProfile(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	user, err := ctl.users.GetByAuth0ID(c.Request.Context(), auth0ID)
	if err != nil {
		respondServiceError(c, ctl.logger, err)
		return
	}
	respondOK(c, user)
}
