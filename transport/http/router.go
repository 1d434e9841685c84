package http

import (
	"github.com/gin-gonic/gin"

	"github.com/tradegate/steamauth"
)

// SetupRouter sets up the Gin router for the sidecar API. An empty
// bearer key disables the auth middleware.
func SetupRouter(client *steamauth.Client, bearerKey string) *gin.Engine {
	router := gin.Default()

	// Create handlers
	handlers := NewHandlers(client)

	api := router.Group("/")
	if bearerKey != "" {
		api.Use(BearerMiddleware(bearerKey))
	}

	// Auth routes
	auth := api.Group("/auth")
	{
		auth.POST("/login", handlers.Login)
		auth.POST("/logout", handlers.Logout)
	}

	// Session surface
	api.GET("/session", handlers.Session)

	// Confirmation routes
	confirmations := api.Group("/confirmations")
	{
		confirmations.POST("/trade/:offer_id", handlers.ConfirmTradeOffer)
		confirmations.POST("/listing/:asset_id", handlers.ConfirmSellListing)
	}

	// Market routes
	api.GET("/market/price", handlers.MarketPrice)

	return router
}
