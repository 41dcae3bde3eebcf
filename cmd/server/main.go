package main

import (
	"log"

	"whatsapp-deposit-bot/internal/api"
	"whatsapp-deposit-bot/internal/bot"
	"whatsapp-deposit-bot/internal/bridge"
	"whatsapp-deposit-bot/internal/cache"
	"whatsapp-deposit-bot/internal/config"
	"whatsapp-deposit-bot/internal/database"
	"whatsapp-deposit-bot/internal/directory"
	"whatsapp-deposit-bot/internal/identity"
	"whatsapp-deposit-bot/internal/ledger"
	"whatsapp-deposit-bot/internal/payhero"
	"whatsapp-deposit-bot/internal/templates"
	"whatsapp-deposit-bot/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	database.InitDB(cfg)

	superOperator, err := identity.Canonicalize(cfg.AdminNumber)
	if err != nil {
		log.Fatalf("Invalid ADMIN_NUMBER %q: %v", cfg.AdminNumber, err)
	}

	store := directory.NewStore(superOperator)
	tset := templates.NewSet(cfg.ChannelID)
	book := ledger.New()

	bridgeClient := bridge.NewClient(cfg)
	gatewayClient := payhero.NewClient(cfg)

	dispatcher := bot.NewDispatcher(cfg, bridgeClient, gatewayClient, store, tset, book)
	dispatcher.Start()

	var dedup cache.DedupCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		dedup = cache.NewRedisCache(rdb, cfg.DedupTTL)
		log.Println("Webhook dedupe backed by redis")
	} else {
		dedup = cache.NewMemoryCache(cfg.DedupTTL)
	}

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	webhookHandler := webhook.NewHandler(cfg, dispatcher, bridgeClient, dedup)
	dashboardHandler := api.NewDashboardHandler(bridgeClient, book)

	// Webhook Routes
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleEvent)

	// Dashboard API Routes
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/pairing-code", dashboardHandler.GetPairingCode)
		apiGroup.GET("/transactions", dashboardHandler.GetTransactions)
		apiGroup.GET("/messages", dashboardHandler.GetMessages)
		apiGroup.POST("/restart", dashboardHandler.Restart)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
