package main

import (
	"log"
	"os"
	"time"

	"mindwell/internal/accounts"
	"mindwell/internal/api"
	"mindwell/internal/auth"
	"mindwell/internal/config"
	"mindwell/internal/redis"
	"mindwell/internal/schedule"
	"mindwell/internal/storage"
	"mindwell/internal/video"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("MINDWELL_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("MINDWELL_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create necessary tables: users, sessions, user_tokens
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// The token cache is optional: without redis, auth falls back to the
	// database on every validation.
	rdb, err := redis.NewClient(cfg)
	if err != nil {
		log.Printf("redis unavailable, auth cache disabled: %v", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	accountsService := accounts.NewService(db)
	scheduleService := schedule.NewService(db)
	authService := auth.NewService(db, rdb, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	authService.SetCookieNames(cfg.Auth.CookieName, cfg.Auth.CSRFCookieName, cfg.Auth.CSRFHeaderName)

	tokenTTL := time.Duration(cfg.Video.TokenTTLMinutes) * time.Minute
	issuer := video.NewIssuer(cfg.Video.AppID, cfg.Video.AppCertificate, tokenTTL)

	handlers := api.NewHandler(accountsService, scheduleService, authService, issuer)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
