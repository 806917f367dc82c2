package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/restaurant-pos-api/middleware"
	"github.com/kendall-kelly/restaurant-pos-api/services"
	"go.uber.org/zap"
)

// errorStatus maps service error kinds to HTTP status and response code
var errorStatus = map[services.ErrorKind]struct {
	status int
	code   string
}{
	services.KindValidation:  {http.StatusBadRequest, "VALIDATION_ERROR"},
	services.KindState:       {http.StatusBadRequest, "INVALID_STATE"},
	services.KindConflict:    {http.StatusBadRequest, "CONFLICT"},
	services.KindForbidden:   {http.StatusForbidden, "FORBIDDEN"},
	services.KindNotFound:    {http.StatusNotFound, "NOT_FOUND"},
	services.KindConcurrency: {http.StatusConflict, "CONCURRENT_MODIFICATION"},
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// respondServiceError writes err with the status its kind maps to. Errors
// without a kind are infrastructure failures and are not echoed to the client.
func respondServiceError(c *gin.Context, logger *zap.Logger, err error) {
	if kind, ok := services.KindOf(err); ok {
		if mapped, found := errorStatus[kind]; found {
			respondError(c, mapped.status, mapped.code, err.Error())
			return
		}
	}

	_ = c.Error(err)
	logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}

// principal returns the caller, writing a 401 when the request has none
func principal(c *gin.Context) (services.Principal, bool) {
	p, err := middleware.GetPrincipal(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return services.Principal{}, false
	}
	return p, true
}

// idParam parses a positive numeric path parameter, writing a 400 when it is malformed
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name+" format")
		return 0, false
	}
	return uint(id), true
}
