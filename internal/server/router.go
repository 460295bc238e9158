package server

import (
	"time"

	"cliprelay/internal/auth"
	"cliprelay/internal/handler"
	"cliprelay/internal/hub"
	"cliprelay/internal/middleware"
	"cliprelay/internal/relay"
	"cliprelay/internal/store"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Store            *store.Store
	TokenConfig      auth.TokenConfig
	RequireSignature bool
	PairRateLimit    int
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	wsHub := hub.New()
	engine := &relay.Engine{Hub: wsHub, Store: deps.Store}

	pairLimit := deps.PairRateLimit
	if pairLimit <= 0 {
		pairLimit = 10
	}
	pairLimiter := middleware.NewRateLimiter(pairLimit, time.Minute)
	pairHandler := &handler.PairHandler{Store: deps.Store, Limiter: pairLimiter}
	r.POST("/pair", pairHandler.Create)

	fileHandler := &handler.FileHandler{Store: deps.Store}
	r.GET("/file/:id", fileHandler.Download)

	wsHandler := &handler.WebSocketHandler{
		Hub:              wsHub,
		Store:            deps.Store,
		Engine:           engine,
		TokenConfig:      deps.TokenConfig,
		RequireSignature: deps.RequireSignature,
	}
	r.GET("/ws", wsHandler.Serve)

	protected := r.Group("/v1")
	protected.Use(middleware.RequireAuth(deps.TokenConfig))
	deviceHandler := &handler.DeviceHandler{Hub: wsHub, Store: deps.Store, Engine: engine}
	protected.GET("/devices", deviceHandler.List)
	protected.POST("/devices/:id/revoke", deviceHandler.Revoke)

	return r
}
