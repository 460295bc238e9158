package handler

import (
	"net/http"

	"cliprelay/internal/hub"
	"cliprelay/internal/middleware"
	"cliprelay/internal/relay"
	"cliprelay/internal/store"
	"github.com/gin-gonic/gin"
)

// DeviceHandler is the REST management surface over the same registry the
// socket path uses. Tokens come from AUTH_OK.
type DeviceHandler struct {
	Hub    *hub.Hub
	Store  *store.Store
	Engine *relay.Engine
}

// List returns the account's presence snapshot.
func (h *DeviceHandler) List(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	devices := h.Hub.Presence(userID, func(deviceID string) bool {
		return h.Store.IsRevoked(userID, deviceID)
	})
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// Revoke marks a device permanently denied and force-closes its live
// session.
func (h *DeviceHandler) Revoke(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	deviceID := c.Param("id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing deviceId"})
		return
	}

	h.Engine.RevokeDevice(userID, deviceID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
