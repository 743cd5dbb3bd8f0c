package v1

import (
	"net/http"

	"go-saas-backend/internal/usecase"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	healthUC *usecase.HealthUsecase
}

func NewHealthHandler(public *gin.RouterGroup, healthUC *usecase.HealthUsecase) {
	handler := &HealthHandler{healthUC: healthUC}

	public.GET("/health", handler.Check)
	public.GET("/health/detailed", handler.Detailed)
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, h.healthUC.Check())
}

func (h *HealthHandler) Detailed(c *gin.Context) {
	c.JSON(http.StatusOK, h.healthUC.Detailed(c.Request.Context()))
}
