package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go-saas-backend/internal/delivery/http/response"
	"go-saas-backend/internal/domain"
	"go-saas-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware resolves the bearer token into an EffectiveUser and stores
// it on the request context. The token is read from the Authorization header
// first, then the auth_token cookie.
func AuthMiddleware(authUC domain.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			cookie, err := c.Cookie("auth_token")
			if err == nil && cookie != "" {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			response.Error(c, http.StatusUnauthorized, "Not authenticated", nil)
			c.Abort()
			return
		}

		user, err := authUC.Resolve(c.Request.Context(), tokenString)
		if err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				response.Error(c, appErr.Code, appErr.Message, nil)
			} else {
				response.Error(c, http.StatusUnauthorized, "Invalid authentication credentials", nil)
			}
			c.Abort()
			return
		}

		c.Set(string(domain.KeyUser), user)
		c.Set(string(domain.KeyUserID), user.ID)
		c.Set(string(domain.KeyUserEmail), user.Email)

		c.Next()
	}
}

// AdminOnly rejects non-admin users. Must run after AuthMiddleware.
func AdminOnly(authUC domain.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "Not authenticated", nil)
			c.Abort()
			return
		}

		if err := authUC.RequireAdmin(user); err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				response.Error(c, appErr.Code, appErr.Message, nil)
			} else {
				response.Error(c, http.StatusForbidden, "Not enough permissions", nil)
			}
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentUser returns the resolved user placed on the context by AuthMiddleware.
func CurrentUser(c *gin.Context) (domain.EffectiveUser, bool) {
	v, exists := c.Get(string(domain.KeyUser))
	if !exists {
		return domain.EffectiveUser{}, false
	}
	user, ok := v.(domain.EffectiveUser)
	return user, ok
}
