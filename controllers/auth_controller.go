package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trading_journal/pkg/auth"
	"trading_journal/pkg/middleware"
)

type AuthController struct {
	tokens *auth.Manager
}

func NewAuthController(tokens *auth.Manager) *AuthController {
	return &AuthController{tokens: tokens}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// Login POST /api/v1/auth/login
func (a *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("invalid login payload")
		respondError(ctx, http.StatusBadRequest, "invalid request body", "INVALID_PARAMS")
		return
	}

	if !a.tokens.PasswordConfigured() {
		respondError(ctx, http.StatusServiceUnavailable, "admin password is not configured", "PASSWORD_NOT_CONFIGURED")
		return
	}

	if !a.tokens.ValidateCredentials(req.Username, req.Password) {
		logrus.WithField("username", req.Username).Warn("login failed")
		respondError(ctx, http.StatusUnauthorized, "invalid username or password", "INVALID_CREDENTIALS")
		return
	}

	token, err := a.tokens.GenerateToken(req.Username)
	if err != nil {
		logrus.WithError(err).Error("generate token")
		respondError(ctx, http.StatusInternalServerError, "failed to issue token", "TOKEN_GENERATION_FAILED")
		return
	}

	logrus.WithField("username", req.Username).Info("login succeeded")
	ctx.JSON(http.StatusOK, gin.H{
		"message": "ok",
		"data": LoginResponse{
			Token:     token,
			Username:  req.Username,
			ExpiresIn: int(a.tokens.TTL().Seconds()),
		},
	})
}

// GetProfile GET /api/v1/user/profile
func (a *AuthController) GetProfile(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"username": middleware.GetCurrentUser(ctx),
		},
	})
}
