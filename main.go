package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cafereview/auth"
	"cafereview/config"
	"cafereview/database"
	"cafereview/route"
	"cafereview/storage"
	"cafereview/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.Log.Fatalf("Failed to load config: %v", err)
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)

	// Set Gin mode
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		utils.Log.Info("Running in debug mode")
	}

	if err := database.InitDatabase(cfg.DBDriver, cfg.DatabaseDSN, utils.Log); err != nil {
		utils.Log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.RedisURL != "" {
		client, err := database.OpenRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			utils.Log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		utils.Denylist = utils.NewRedisDenylist(client)
		utils.Log.Info("Token revocations stored in redis")
	}

	utils.ConfigureTokens(cfg.JWTSecret, cfg.TokenTTL)
	auth.PasswordCost = cfg.BcryptCost

	if err := os.MkdirAll(cfg.StorageRoot, 0755); err != nil {
		utils.Log.Fatalf("Failed to create storage directory: %v", err)
	}
	storage.Public = storage.NewDisk(cfg.StorageRoot, cfg.AppURL)

	router := route.SetupRouter(cfg)
	utils.Log.Info("Routes configured successfully")

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Log.Infof("Starting server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		utils.Log.Errorf("Graceful shutdown failed: %v", err)
	}
}
