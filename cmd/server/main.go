package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/qufrids/ad-analyzer-sub000/internal/api/handlers"
	"github.com/qufrids/ad-analyzer-sub000/internal/config"
	"github.com/qufrids/ad-analyzer-sub000/internal/database"
	"github.com/qufrids/ad-analyzer-sub000/internal/metrics"
	"github.com/qufrids/ad-analyzer-sub000/internal/middleware"
	"github.com/qufrids/ad-analyzer-sub000/internal/ratelimit"
	"github.com/qufrids/ad-analyzer-sub000/internal/services"
)

func main() {
	config.Load()

	dbPath := config.GetString("DATABASE_PATH", "./data/adpilot.db")
	if err := database.Initialize(dbPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Rate-limit counters live in-process by default. Point REDIS_ADDR at a
	// shared instance when running more than one replica.
	var limiterStore ratelimit.Store = ratelimit.NewMemoryStore()
	if addr := config.GetString("REDIS_ADDR", ""); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.GetString("REDIS_PASSWORD", ""),
			DB:       config.GetInt("REDIS_DB", 0),
		})
		limiterStore = ratelimit.NewRedisStore(client)
		log.Printf("[RATELIMIT] Using Redis store at %s", addr)
	}
	limiter := ratelimit.New(limiterStore)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go limiter.StartSweeper(ctx, config.GetDuration("RATELIMIT_SWEEP_INTERVAL", 5*time.Minute))

	// Periodic refresh of stored-record gauges.
	go func() {
		metrics.UpdateUsageMetrics(db)
		ticker := time.NewTicker(config.GetDuration("USAGE_METRICS_INTERVAL", time.Minute))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateUsageMetrics(db)
			}
		}
	}()

	entitlements := services.NewEntitlementService(db)
	assets := services.NewAssetStore()
	scraper := services.NewProductScraper()
	invoker := services.NewGeminiService()
	if !invoker.IsEnabled() {
		log.Println("[PIPELINE] GEMINI_API_KEY not set; generation endpoints will fail until it is configured")
	}
	pipeline := services.NewPipeline(db, entitlements, assets, scraper, invoker)

	publicBase := config.GetString("PUBLIC_BASE_URL", "http://localhost:8080")

	pipelineHandler := handlers.NewPipelineHandler(pipeline, limiter)
	accountHandler := handlers.NewAccountHandler(entitlements, config.GetString("BILLING_WEBHOOK_SECRET", ""))
	assetHandler := handlers.NewAssetHandler(assets, publicBase)
	recordHandler := handlers.NewRecordHandler(db)

	if config.GetString("GIN_MODE", "") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(metrics.HTTPMetrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{config.GetString("FRONTEND_ORIGIN", "http://localhost:3000")}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	corsConfig.ExposeHeaders = []string{"X-Credits-Remaining", "X-RateLimit-Remaining", "Retry-After"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Stored creatives are served straight off disk; paths are opaque uuids
	// under a per-user prefix.
	r.Static("/ad-assets", assets.Dir())

	// Billing webhook authenticates with a shared secret, not a user session.
	r.POST("/api/webhooks/billing", accountHandler.BillingWebhook)

	api := r.Group("/api")
	api.Use(middleware.SessionAuth(db))
	{
		api.POST("/analyze", pipelineHandler.Analyze)
		api.POST("/compare", pipelineHandler.Compare)
		api.POST("/spy", pipelineHandler.Spy)
		api.POST("/generate-from-url", pipelineHandler.GenerateFromURL)
		api.POST("/improve", pipelineHandler.Improve)

		api.POST("/assets", assetHandler.Upload)
		api.GET("/me/credits", accountHandler.Credits)
		api.GET("/analyses", recordHandler.ListAnalyses)
		api.GET("/analyses/:id", recordHandler.GetAnalysis)
	}

	port := config.GetString("PORT", "8080")
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
