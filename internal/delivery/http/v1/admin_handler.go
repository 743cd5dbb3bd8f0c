package v1

import (
	"fmt"
	"net/http"
	"strconv"

	"go-saas-backend/internal/delivery/http/middleware"
	"go-saas-backend/internal/delivery/http/response"
	"go-saas-backend/internal/domain"
	"go-saas-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminUC domain.AdminUsecase
}

func NewAdminHandler(protected *gin.RouterGroup, adminUC domain.AdminUsecase, adminOnly gin.HandlerFunc) {
	handler := &AdminHandler{adminUC: adminUC}

	admin := protected.Group("/admin")
	admin.Use(adminOnly)
	{
		admin.GET("/stats", handler.GetStats)

		admin.GET("/users", handler.ListUsers)
		admin.GET("/users/export", handler.ExportUsers)
		admin.PUT("/users/:id/admin", handler.SetAdmin)
		admin.DELETE("/users/:id", handler.DeleteUser)
	}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.Error(apperror.BadRequest("page must be an integer"))
		return
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if err != nil {
		c.Error(apperror.BadRequest("per_page must be an integer"))
		return
	}

	result, err := h.adminUC.ListUsers(c.Request.Context(), domain.ListUsersQuery{
		Page:    page,
		PerPage: perPage,
		Search:  c.Query("search"),
		Role:    c.Query("role"),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) SetAdmin(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	targetID := c.Param("id")
	isAdmin, err := strconv.ParseBool(c.Query("is_admin"))
	if err != nil {
		c.Error(apperror.BadRequest("is_admin must be true or false"))
		return
	}

	if err := h.adminUC.SetAdmin(c.Request.Context(), actor, targetID, isAdmin); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User admin status updated to %v", isAdmin)})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	if err := h.adminUC.DeleteUser(c.Request.Context(), actor, c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (h *AdminHandler) ExportUsers(c *gin.Context) {
	data, err := h.adminUC.ExportCSV(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="users.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.adminUC.Stats(c.Request.Context()))
}
