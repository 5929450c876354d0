// internal/handler/auth.go
package handler

import (
	"net/http"

	"finance-tracker/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthHandler struct {
	tokens *auth.TokenService
}

func NewAuthHandler(ts *auth.TokenService) *AuthHandler {
	return &AuthHandler{tokens: ts}
}

type LoginRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// Login issues a token for the given user.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}
	token, err := h.tokens.GenerateToken(uuid.MustParse(req.UserID))
	if err != nil {
		writeError(c, "Login", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
