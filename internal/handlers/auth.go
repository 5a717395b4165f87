package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"arena/internal/handlers/response"
	"arena/internal/logger"
	"arena/internal/models"
	"arena/internal/repositories"
	"arena/internal/services"
	"arena/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	userRepo     repositories.UserRepository
	tokenService *services.TokenService
}

func NewAuthHandler(userRepo repositories.UserRepository, tokenService *services.TokenService) *AuthHandler {
	return &AuthHandler{
		userRepo:     userRepo,
		tokenService: tokenService,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}

	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		logger.Log.Error("Failed to hash password", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	if _, err := h.userRepo.CreateUser(context.Background(), req.Username, req.Email, hashed, req.Role); err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			response.Error(c, http.StatusConflict, response.CodeInvalidRequest)
			return
		}
		logger.Log.Error("Failed to create user", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	response.OK(c, http.StatusCreated, gin.H{"registered": true})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}

	user, err := h.userRepo.GetUserByEmail(context.Background(), req.Email)
	if err != nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized)
		return
	}

	accessToken, refreshToken, err := h.tokenService.GenerateTokens(user.ID, user.Username, user.Role)
	if err != nil {
		logger.Log.Error("Failed to generate tokens", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	refreshExpiresAt := time.Now().Add(time.Hour * 24 * 14)
	if err := h.userRepo.StoreRefreshToken(context.Background(), user.ID, refreshToken, refreshExpiresAt); err != nil {
		logger.Log.Error("Failed to store refresh token", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	c.SetCookie("access_token", accessToken, 3600, "/", "", false, true)
	c.SetCookie("refresh_token", refreshToken, 3600*24*14, "/", "", false, true)

	response.OK(c, http.StatusOK, gin.H{
		"userId": user.ID,
		"role":   user.Role,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, err := c.Cookie("refresh_token")
	if err == nil && refreshToken != "" {
		if err := h.userRepo.RevokeToken(context.Background(), refreshToken); err != nil {
			logger.Log.Warn("Failed to revoke token on logout", zap.Error(err))
		}
	}

	c.SetCookie("access_token", "", -1, "/", "", false, true)
	c.SetCookie("refresh_token", "", -1, "/", "", false, true)

	response.OK(c, http.StatusOK, gin.H{"loggedOut": true})
}

func (h *AuthHandler) Verify(c *gin.Context) {
	accessToken, err := c.Cookie("access_token")
	if err == nil {
		claims, err := h.tokenService.ValidateToken(accessToken)
		if err == nil {
			response.OK(c, http.StatusOK, gin.H{
				"isAuthenticated": true,
				"userId":          claims.UserID,
				"role":            claims.Role,
			})
			return
		}
	}

	refreshToken, err := c.Cookie("refresh_token")
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized)
		return
	}

	// A refresh token is only good while it is still stored server-side.
	if _, err := h.userRepo.GetRefreshToken(context.Background(), refreshToken); err != nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized)
		return
	}

	claims, err := h.tokenService.ValidateToken(refreshToken)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized)
		return
	}

	newAccessToken, _, err := h.tokenService.GenerateTokens(claims.UserID, claims.Username, claims.Role)
	if err != nil {
		logger.Log.Error("Failed to generate new access token during verify", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	c.SetCookie("access_token", newAccessToken, 3600, "/", "", false, true)
	response.OK(c, http.StatusOK, gin.H{
		"isAuthenticated": true,
		"userId":          claims.UserID,
		"role":            claims.Role,
	})
}

func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/verify", h.Verify)
	}
}
