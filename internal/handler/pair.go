package handler

import (
	"net/http"

	"cliprelay/internal/middleware"
	"cliprelay/internal/store"
	"github.com/gin-gonic/gin"
)

type PairHandler struct {
	Store   *store.Store
	Limiter *middleware.RateLimiter
}

type pairBody struct {
	UserID string `json:"userId"`
	Type   string `json:"type"`
}

// Create issues a single-use pairing token for the account.
func (h *PairHandler) Create(c *gin.Context) {
	var body pairBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if body.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing userId"})
		return
	}

	if h.Limiter != nil && !h.Limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
		return
	}

	token, expiresIn, err := h.Store.IssueToken(body.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token creation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pairingToken": token, "expiresIn": expiresIn})
}
