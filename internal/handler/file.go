package handler

import (
	"net/http"
	"strconv"

	"cliprelay/internal/store"
	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	Store *store.Store
}

// Download serves a stored file's raw bytes exactly once. The record is
// deleted on success; a second attempt or a fetch past TTL gets 404.
func (h *FileHandler) Download(c *gin.Context) {
	rec, ok := h.Store.TakeFile(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	mime := rec.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}
	c.Header("Content-Length", strconv.FormatInt(rec.Size, 10))
	c.Data(http.StatusOK, mime, rec.Bytes)
}
