package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jobtalk/jobtalk-backend/internal/config"
	"github.com/jobtalk/jobtalk-backend/internal/database"
	"github.com/jobtalk/jobtalk-backend/internal/handler"
	"github.com/jobtalk/jobtalk-backend/internal/middleware"
	"github.com/jobtalk/jobtalk-backend/internal/migration"
	"github.com/jobtalk/jobtalk-backend/internal/repository"
	"github.com/jobtalk/jobtalk-backend/internal/routes"
	"github.com/jobtalk/jobtalk-backend/internal/service"
	"github.com/jobtalk/jobtalk-backend/internal/ws"
	pkgcache "github.com/jobtalk/jobtalk-backend/pkg/cache"
	"github.com/jobtalk/jobtalk-backend/pkg/jwt"
	pkglogger "github.com/jobtalk/jobtalk-backend/pkg/logger"
	pkgredis "github.com/jobtalk/jobtalk-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	gormlogger "gorm.io/gorm/logger"
)

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath(env string) string {
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	dotenvFiles := config.LoadDotEnv(env)

	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	configPath := getConfigPath(env)
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	pkglogger.SetLevel(cfg.Log.Level)
	config.LogResolved(cfg)

	gormLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		gormLevel = gormlogger.Info
	}
	db, err := database.Open(cfg.Database, gormLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to %s", cfg.Database.Driver)

	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if cfg.IsDevelopment() {
		if err := migration.Seed(db); err != nil {
			pkglogger.Warn("Seed failed: %v", err)
		}
	}

	// Redis is optional: without it there is no rate limiting and no participant cache
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(context.Background(), pkgredis.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			pkglogger.Warn("Failed to connect to Redis: %v (continuing without Redis)", err)
			redisClient = nil
		} else {
			pkglogger.Info("Connected to Redis")
		}
	}
	cacheService := pkgcache.NewService(redisClient)

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	// Repositories
	memberRepo := repository.NewMemberRepository(db)
	listingRepo := repository.NewListingRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	messageRepo := repository.NewChatMessageRepository(db)
	markerRepo := repository.NewReadMarkerRepository(db)

	// Services
	authenticator := service.NewAuthenticator(jwtManager, memberRepo)
	channelService := service.NewChannelService(channelRepo, cacheService)
	chatService := service.NewChatService(channelService, messageRepo, markerRepo, service.ChatOptions{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		DefaultPageSize:  cfg.Chat.HistoryPageSize,
		MaxPageSize:      cfg.Chat.HistoryMaxPageSize,
	})

	// Real-time delivery
	registry := ws.NewRegistry(cfg.Chat.SendTimeout)
	coordinator := ws.NewCoordinator(channelService, chatService, registry)

	// evict the cache before closing sessions so a reconnect cannot re-authorize
	requestService := service.NewRequestService(requestRepo, listingRepo, channelService, coordinator)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	allowOrigins := cfg.CORS.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "http://localhost:3000"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitAndTrim(allowOrigins, ","),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining"},
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "down"
		}
		c.JSON(status, gin.H{
			"status":   dbStatus,
			"service":  "jobtalk-backend",
			"redis":    cacheService.IsAvailable(),
			"channels": len(registry.Channels()),
			"time":     time.Now().Unix(),
		})
	})

	rateLimit := middleware.DefaultRateLimitConfig()
	rateLimit.RequestsPerMinute = cfg.Chat.RateLimitPerMinute
	routes.Setup(router, routes.Handlers{
		Request: handler.NewRequestHandler(requestService, channelService),
		Channel: handler.NewChannelHandler(channelService, chatService),
		WS:      handler.NewWSHandler(authenticator, coordinator, cfg.CORS.AllowOrigins, cfg.Chat.SendBuffer),
	}, authenticator, redisClient, rateLimit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go reportDBStats(ctx, db)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		pkglogger.Info("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	pkglogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pkglogger.Error("Server forced to shutdown: %v", err)
	}
	// hijacked websocket connections are not covered by Shutdown
	pkglogger.Info("Closed %d chat connections", registry.CloseAll())
	if redisClient != nil {
		redisClient.Close() //nolint:errcheck
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close() //nolint:errcheck
	}
	pkglogger.Info("Server exited")
}

func splitAndTrim(s string, delimiter string) []string {
	parts := strings.Split(s, delimiter)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
