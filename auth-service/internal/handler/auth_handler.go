package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/eaglebank/account-registry/auth-service/internal/query"
	"github.com/eaglebank/account-registry/shared/cqrs"
	"github.com/eaglebank/account-registry/shared/middleware"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AuthQuerier defines the operations used by AuthHandler.
type AuthQuerier interface {
	Challenge(context.Context, cqrs.ChallengeCommand) (*query.Challenge, error)
	Login(context.Context, cqrs.LoginCommand) (string, error)
	RefreshToken(context.Context, cqrs.RefreshTokenCommand) (string, error)
}

// AuthHandler handles challenge, login and token refresh.
type AuthHandler struct {
	queries AuthQuerier
}

type ChallengeRequest struct {
	Address string `json:"address" validate:"required,eth_addr"`
}

type LoginRequest struct {
	Address   string `json:"address" validate:"required,eth_addr"`
	Signature string `json:"signature" validate:"required,startswith=0x,len=132"`
}

type RefreshTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

func NewAuthHandler(queries AuthQuerier) *AuthHandler {
	return &AuthHandler{queries: queries}
}

func (h *AuthHandler) Challenge(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	challenge, err := h.queries.Challenge(c.Request.Context(), cqrs.ChallengeCommand{Address: req.Address})
	if err != nil {
		if errors.Is(err, query.ErrInvalidAddress) {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid address")
			return
		}
		log.WithError(err).Error("Failed to issue challenge")
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to issue challenge")
		return
	}

	c.JSON(http.StatusOK, challenge)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	token, err := h.queries.Login(c.Request.Context(), cqrs.LoginCommand{
		Address:   req.Address,
		Signature: req.Signature,
	})
	if err != nil {
		switch {
		case errors.Is(err, query.ErrInvalidAddress):
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid address")
		case errors.Is(err, query.ErrInvalidCredentials):
			middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		default:
			log.WithError(err).Error("Login failed")
			middleware.RespondWithError(c, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	token, err := h.queries.RefreshToken(c.Request.Context(), cqrs.RefreshTokenCommand{
		Token: req.Token,
	})
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid token")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token})
}
