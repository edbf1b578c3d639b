package router

import (
	"net/http"

	"github.com/fajargold/fajargold-backend/config"
	"github.com/fajargold/fajargold-backend/internal/app/controller"
	"github.com/fajargold/fajargold-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	goldPriceController   *controller.GoldPriceController
	priceStreamController *controller.PriceStreamController
	config                *config.Config
}

func NewRouter(
	goldPriceController *controller.GoldPriceController,
	priceStreamController *controller.PriceStreamController,
	cfg *config.Config,
) *Router {
	return &Router{
		goldPriceController:   goldPriceController,
		priceStreamController: priceStreamController,
		config:                cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Fajar Gold API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		prices := v1.Group("/gold-prices")
		{
			prices.GET("", r.goldPriceController.GetLatestPrice)
			prices.POST("", r.goldPriceController.UpdatePrices)
			prices.POST("/purity/:purity", r.goldPriceController.UpdateFromBase)
			prices.POST("/refresh", r.goldPriceController.RefreshPrices)
			prices.GET("/external", r.goldPriceController.GetExternalPrice)

			prices.GET("/history", r.goldPriceController.GetPriceHistory)
			prices.GET("/history/range", r.goldPriceController.GetPriceByDateRange)
			prices.GET("/history/export", r.goldPriceController.ExportHistory)
			prices.POST("/history/export/archive", r.goldPriceController.ArchiveHistory)
			prices.GET("/comparison", r.goldPriceController.GetComparison)
			prices.GET("/statistics", r.goldPriceController.GetStatistics)

			prices.GET("/changes", r.goldPriceController.GetRecentChanges)
			prices.GET("/changes/latest", r.goldPriceController.GetLatestChanges)
			prices.GET("/changes/:purity", r.goldPriceController.GetChangesByPurity)

			prices.POST("/validate", r.goldPriceController.ValidatePrices)
			prices.GET("/convert", r.goldPriceController.ConvertPrice)

			if r.priceStreamController != nil {
				prices.GET("/ws", r.priceStreamController.Stream)
			}
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
