package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Cherry1177/cloudtribe/internal/api"
	"github.com/Cherry1177/cloudtribe/internal/config"
	"github.com/Cherry1177/cloudtribe/internal/driver"
	"github.com/Cherry1177/cloudtribe/internal/handlers"
	"github.com/Cherry1177/cloudtribe/internal/middleware"
	"github.com/Cherry1177/cloudtribe/internal/models"
	"github.com/Cherry1177/cloudtribe/internal/places"
	"github.com/Cherry1177/cloudtribe/internal/services"
	"github.com/Cherry1177/cloudtribe/internal/session"
	"github.com/Cherry1177/cloudtribe/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Session store: Redis when configured, a local file otherwise.
	var store session.Store
	if cfg.Session.RedisURL != "" {
		redisStore, err := session.NewRedisStore(cfg.Session.RedisURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("connecting session store", zap.Error(err))
		}
		defer redisStore.Close()
		store = redisStore
	} else {
		fileStore, err := session.NewFileStore(cfg.Session.File)
		if err != nil {
			zapLogger.Fatal("opening session store", zap.Error(err))
		}
		store = fileStore
	}

	hub := services.NewHub(zapLogger)
	go hub.Run()

	// Every session change reaches every open screen.
	store.Subscribe(func(user *models.User) {
		hub.Broadcast("session_changed", gin.H{"user": user})
	})

	backend := api.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, zapLogger)
	placesClient := places.NewClient(cfg.Places.BaseURL, cfg.Places.APIKey, cfg.Backend.Timeout, zapLogger)

	coordinator := driver.New(backend, hub.Broadcast, zapLogger)
	onboarding := driver.NewOnboarding(store, backend, zapLogger)
	searchSessions := handlers.NewSearchSessions(placesClient, cfg.Places.Debounce, cfg.Places.MinInput, hub, zapLogger)

	r := gin.Default()
	r.Use(middleware.RequestLogger(zapLogger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(corsConfig))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ws", handlers.WebSocketHandler(hub, zapLogger))

		sessionGroup := apiGroup.Group("/session")
		{
			sessionGroup.GET("", handlers.GetSession(store))
			sessionGroup.PUT("", handlers.PutSession(store))
			sessionGroup.DELETE("", handlers.DeleteSession(store))
		}

		driverGroup := apiGroup.Group("/driver")
		{
			driverGroup.GET("", handlers.GetDriver(store, backend, coordinator, zapLogger))
			driverGroup.POST("/apply", handlers.ApplyDriver(onboarding))
			driverGroup.GET("/orders", handlers.GetDriverOrders(coordinator))
			driverGroup.GET("/unaccepted", handlers.GetUnacceptedOrders(coordinator))
			driverGroup.POST("/orders/:orderId/accept", handlers.AcceptOrder(coordinator))
			driverGroup.POST("/orders/:orderId/transfer", handlers.TransferOrder(coordinator))
			driverGroup.POST("/orders/:orderId/complete", handlers.CompleteOrder(coordinator))
			driverGroup.POST("/navigate", handlers.Navigate(coordinator))
		}

		placesGroup := apiGroup.Group("/places")
		{
			placesGroup.POST("/sessions", handlers.OpenSearchSession(searchSessions))
			placesGroup.POST("/sessions/:id/input", handlers.SearchInput(searchSessions))
			placesGroup.POST("/sessions/:id/select", handlers.SearchSelect(searchSessions, coordinator, hub))
			placesGroup.DELETE("/sessions/:id", handlers.CloseSearchSession(searchSessions))
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zapLogger.Info("driver console listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zapLogger.Fatal("server error", zap.Error(err))
	}
}
