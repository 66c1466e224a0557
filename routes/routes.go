package routes

import (
	"go_signals_project/controllers"
	"go_signals_project/middleware"
	"go_signals_project/services"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, store services.SignalStore, hub *services.EventHub) {
	signalController := controllers.NewSignalController(store, hub)
	submitLimiter := middleware.NewSubmissionLimiter()

	api := router.Group("/api")
	{
		api.GET("/ativos", signalController.GetAssets)
		api.POST("/ativos", submitLimiter.Middleware(), signalController.AddAsset)
		api.GET("/disparos", signalController.GetEntries)
		api.POST("/disparos", submitLimiter.Middleware(), signalController.AddEntry)
	}

	// Live feed of signal lifecycle events
	router.GET("/ws/signals", signalController.LiveFeed)
}
