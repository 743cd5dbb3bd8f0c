package v1

import (
	"net/http"

	"go-saas-backend/internal/delivery/http/middleware"
	"go-saas-backend/internal/delivery/http/response"
	"go-saas-backend/internal/domain"
	"go-saas-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userUC domain.UserUsecase
}

func NewUserHandler(protected *gin.RouterGroup, userUC domain.UserUsecase) {
	handler := &UserHandler{userUC: userUC}

	users := protected.Group("/users")
	{
		users.GET("/me", handler.Me)
		users.PUT("/me", handler.UpdateMe)
		users.DELETE("/me", handler.DeleteMe)
		// open to any authenticated user, not admin-gated
		users.GET("/stats", handler.Stats)
	}
}

func (h *UserHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}

	updated, err := h.userUC.UpdateMe(c.Request.Context(), user, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *UserHandler) DeleteMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	if err := h.userUC.DeleteMe(c.Request.Context(), user); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

func (h *UserHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.userUC.Stats(c.Request.Context()))
}
