package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go_signals_project/config"
	"go_signals_project/routes"
	"go_signals_project/scheduler"
	"go_signals_project/services"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("==============================================")
	log.Println("  Signal Dispatch Backend - Starting...")
	log.Println("==============================================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Config load issue: %v", err)
	}

	profile, err := config.LoadProfile(cfg.ProfileFile)
	if err != nil {
		log.Fatalf("Dispatch profile error: %v", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Timezone error: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Open the signal store: MongoDB when configured, JSON file otherwise
	store := openStore(cfg)

	// Live feed hub
	hub := services.NewEventHub()
	go hub.Run()

	// External collaborators
	prices := services.NewPriceService(cfg.PriceAPIURL)
	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramChatID, profile.WinSticker, profile.LossMessages)
	if !telegram.Enabled() {
		log.Println("Warning: Telegram credentials not configured, announcements will only be logged")
	}

	// Dispatch engine
	dispatcher := scheduler.NewDispatcher(store, prices, telegram, hub, profile, loc)
	dispatcher.Start()

	// Routes
	setupHealthEndpoints(router, store)
	routes.SetupRoutes(router, store, hub)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	gracefulShutdown(server, dispatcher, hub, store)
}

// openStore selects the store backend. A failed Mongo connection falls back
// to the file store so the service still comes up.
func openStore(cfg *config.Config) services.SignalStore {
	if cfg.MongoURI != "" {
		store, err := services.NewMongoStore(cfg.MongoURI)
		if err == nil {
			return store
		}
		log.Printf("ERROR: MongoDB store unavailable: %v", err)
		log.Println("Falling back to file store")
	}

	store, err := services.NewFileStore(cfg.DBFile)
	if err != nil {
		log.Fatalf("Store error: %v", err)
	}
	return store
}

// setupHealthEndpoints sets up liveness and readiness probes
func setupHealthEndpoints(router *gin.Engine, store services.SignalStore) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Signal Dispatch Backend",
			"version": "1.0.0",
		})
	})

	// Liveness probe - always returns OK if server is running
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Readiness probe - checks the store answers
	router.GET("/ready", func(c *gin.Context) {
		if _, err := store.ListAssets(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Store not readable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Only log errors or slow requests
		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(server *http.Server, dispatcher *scheduler.Dispatcher, hub *services.EventHub, store services.SignalStore) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	// Stop the dispatcher first; in-flight tasks are discarded with the
	// process and manual entries re-derive from the store on next start
	dispatcher.Stop()
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if mongoStore, ok := store.(*services.MongoStore); ok {
		mongoStore.Close()
	}

	log.Println("Server shutdown completed")
}
