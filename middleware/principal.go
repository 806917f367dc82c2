package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/restaurant-pos-api/services"
)

const principalKey = "principal"

// PrincipalResolver maps an authenticated subject to a principal
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, auth0ID string) (services.Principal, error)
}

// RequirePrincipal resolves the token subject to a registered staff member and
// stores the resulting principal in the context. It must run after EnsureValidToken.
func RequirePrincipal(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth0ID, err := GetUserID(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
			return
		}

		principal, err := resolver.ResolvePrincipal(c.Request.Context(), auth0ID)
		if err != nil {
			switch {
			case services.IsKind(err, services.KindNotFound):
				abortWithError(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
			case services.IsKind(err, services.KindForbidden):
				abortWithError(c, http.StatusForbidden, "FORBIDDEN", err.Error())
			default:
				abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve user")
			}
			return
		}

		SetPrincipal(c, principal)
		c.Next()
	}
}

// SetPrincipal stores p as the caller of the current request
func SetPrincipal(c *gin.Context, p services.Principal) {
	c.Set(principalKey, p)
}

// GetPrincipal returns the principal stored by RequirePrincipal
func GetPrincipal(c *gin.Context) (services.Principal, error) {
	value, exists := c.Get(principalKey)
	if !exists {
		return services.Principal{}, &AuthError{Code: "MISSING_PRINCIPAL", Message: "Principal not found in context"}
	}

	principal, ok := value.(services.Principal)
	if !ok {
		return services.Principal{}, &AuthError{Code: "INVALID_PRINCIPAL", Message: "Principal is not in the expected format"}
	}
	return principal, nil
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
