// Package main API Server 入口
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/apiserver/server"
	cacheredis "freshly-market/internal/cache/redis"
	"freshly-market/internal/config"
	"freshly-market/internal/mailer"
	"freshly-market/internal/objstore"
	"freshly-market/internal/storage/mongostore"
)

func main() {
	// 加载配置（自动加载 .env，根据 APP_ENV 切换 yaml）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	// 初始化 MongoDB（持久化业务数据）
	store, err := mongostore.NewStore(cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer store.Close()
	log.Println("Connected to MongoDB")

	// 初始化 Redis（司机位置缓存 + 登录限流）
	cacheStore, err := cacheredis.NewStoreFromURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cacheStore.Close()
	log.Println("Connected to Redis")

	// 初始化 MinIO（商品/评价图片）
	objects, err := objstore.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := objects.EnsureBucket(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to ensure MinIO bucket: %v", err)
		}
		cancel()
	}
	log.Println("Connected to MinIO")

	// 邮件（SMTP 未配置时退化为日志输出）
	mail := mailer.New(cfg.SMTP)

	authCfg := auth.Config{
		JWTSecret:      cfg.Auth.JWTSecret,
		FarmerTokenTTL: cfg.Auth.FarmerTokenTTL,
		BuyerTokenTTL:  cfg.Auth.BuyerTokenTTL,
		DriverTokenTTL: cfg.Auth.DriverTokenTTL,
		SecureCookie:   cfg.Auth.SecureCookie,
	}

	h := server.NewHandler(store, cacheStore, objects, mail, authCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}
