// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/yourusername/taskdeck/internal/api"
	"github.com/yourusername/taskdeck/internal/auth"
	"github.com/yourusername/taskdeck/internal/config"
	"github.com/yourusername/taskdeck/internal/item"
	"github.com/yourusername/taskdeck/internal/storage/postgres"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// データベースへの接続とスキーマ作成
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Print("Database initialized successfully")

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()
	router.Use(api.RequestID())

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
	}
	corsConfig.ExposeHeaders = []string{api.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	setupRoutes(router, cfg, db)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "taskdeck-api",
		"version": "0.1.0",
	})
}

// setupRoutes は認証とアイテムCRUDの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, db *sqlx.DB) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	userStore := postgres.NewUserStore(db)
	itemStore := postgres.NewItemStore(db)

	hasher := auth.NewHasher(cfg.BcryptCost)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authManager := auth.NewManager(userStore, hasher, tokens, cfg.PasswordMinLength)

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authManager.Register)
		authRoutes.POST("/login", authManager.Login)

		// プロフィール系はトークン必須
		authRoutes.GET("/profile", authManager.RequireAuth(), authManager.Profile)
		authRoutes.DELETE("/profile", authManager.RequireAuth(), authManager.DeleteAccount)
	}

	items := router.Group("/items")
	items.Use(authManager.RequireAuth())
	{
		items.GET("", item.ListHandler(itemStore))
		items.GET("/:id", item.GetHandler(itemStore))
		items.POST("", item.CreateHandler(itemStore))
		items.PUT("/:id", item.UpdateHandler(itemStore))
		items.DELETE("/:id", item.DeleteHandler(itemStore))
	}
}
