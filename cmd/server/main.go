package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"cliprelay/internal/auth"
	"cliprelay/internal/config"
	"cliprelay/internal/server"
	"cliprelay/internal/store"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load(os.Getenv("CLIPRELAY_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}

	gin.SetMode(cfg.Server.Mode)
	st := store.NewWithOptions(store.Options{
		PairingTTL:    time.Duration(cfg.Pairing.TTLSeconds) * time.Second,
		SweepInterval: time.Duration(cfg.Pairing.SweepSeconds) * time.Second,
		FileTTL:       time.Duration(cfg.Relay.FileTTLSeconds) * time.Second,
		MaxFileBytes:  cfg.Relay.MaxFileBytes,
	})

	tokenCfg := auth.TokenConfig{
		Secret: cfg.Auth.MasterSecret,
		Expiry: time.Duration(cfg.Auth.TokenExpiryHours) * time.Hour,
		Issuer: "cliprelay",
	}

	router := server.NewRouter(server.Deps{
		Store:            st,
		TokenConfig:      tokenCfg,
		RequireSignature: cfg.Auth.RequireSignature,
		PairRateLimit:    cfg.Pairing.RateLimit,
	})
	log.Printf("listening on %s", fmt.Sprintf(":%d", cfg.Server.Port))
	log.Fatal(server.Run(cfg.Server, router))
}
