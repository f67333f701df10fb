package http

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/pqauth/core"
	"github.com/layer-3/pqauth/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	DigitalID string `json:"digital_id" binding:"required"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	DigitalID string `json:"digital_id" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// IdentityResponse describes a registered identity
type IdentityResponse struct {
	DigitalID    string    `json:"digital_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ChallengeResponse carries a freshly issued nonce
type ChallengeResponse struct {
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenResponse carries a session token
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// KeyResponse exposes the token verification key
type KeyResponse struct {
	Alg       string `json:"alg"`
	PublicKey string `json:"public_key"`
}

// Register handles identity registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	identity, err := h.authService.Register(c.Request.Context(), req.DigitalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, IdentityResponse{
		DigitalID:    identity.ID,
		RegisteredAt: identity.RegisteredAt,
	})
}

// Challenge handles the challenge request
func (h *AuthHandlers) Challenge(c *gin.Context) {
	challenge, err := h.authService.RequestChallenge(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ChallengeResponse{
		Nonce:     challenge.Nonce(),
		ExpiresAt: challenge.Expiry,
	})
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.DigitalID, req.Nonce, req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.Claim.Expiry,
	})
}

// Logout revokes the bearer token of the request
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		respondError(c, core.ErrMalformedToken)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Key returns the public key that verifies session tokens
func (h *AuthHandlers) Key(c *gin.Context) {
	c.JSON(http.StatusOK, KeyResponse{
		Alg:       "EdDSA",
		PublicKey: base64.StdEncoding.EncodeToString(h.authService.PublicKey()),
	})
}

// Me returns information about the authenticated identity
func (h *AuthHandlers) Me(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity not found in context"})
		return
	}

	c.JSON(http.StatusOK, IdentityResponse{
		DigitalID:    identity.ID,
		RegisteredAt: identity.RegisteredAt,
	})
}

// Authorize confirms the bearer token; the middleware has already resolved it
func (h *AuthHandlers) Authorize(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"digital_id": identity.ID,
	})
}
