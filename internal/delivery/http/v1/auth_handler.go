package v1

import (
	"net/http"
	"strings"

	"go-saas-backend/internal/domain"
	"go-saas-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUC domain.AuthUsecase
}

func NewAuthHandler(public *gin.RouterGroup, authUC domain.AuthUsecase, strictLimit gin.HandlerFunc) {
	handler := &AuthHandler{authUC: authUC}

	auth := public.Group("/auth")
	auth.Use(strictLimit)
	{
		auth.POST("/login", handler.Login)
		auth.POST("/signup", handler.Signup)
		auth.POST("/reset-password", handler.ResetPassword)
		auth.POST("/logout", handler.Logout)
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}

	session, err := h.authUC.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}

	session, err := h.authUC.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ResetPassword answers identically whether or not the email exists.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}

	h.authUC.SendPasswordReset(c.Request.Context(), req.Email)

	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent"})
}

// Logout revokes the session at the provider when a token is supplied and
// reports success either way.
func (h *AuthHandler) Logout(c *gin.Context) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		token := strings.TrimPrefix(authHeader, "Bearer ")
		h.authUC.Logout(c.Request.Context(), token)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
