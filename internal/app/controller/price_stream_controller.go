package controller

import (
	"github.com/fajargold/fajargold-backend/internal/middleware"
	ws "github.com/fajargold/fajargold-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// PriceStreamController pushes committed price updates over websocket
type PriceStreamController struct {
	hub      *ws.Hub
	upgrader *websocket.Upgrader
}

func NewPriceStreamController(hub *ws.Hub, allowedOrigins []string) *PriceStreamController {
	return &PriceStreamController{
		hub:      hub,
		upgrader: ws.NewUpgrader(allowedOrigins),
	}
}

// Stream upgrades the connection and subscribes it to price updates
// @Router /api/v1/gold-prices/ws [get]
func (ctrl *PriceStreamController) Stream(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	// the upgrader writes the HTTP error response itself
	client, err := ctrl.hub.Serve(ctrl.upgrader, c.Writer, c.Request)
	if err != nil {
		log.Error("Failed to upgrade connection", err)
		return
	}

	log.Info("WebSocket client connected", map[string]interface{}{
		"client_id": client.ID,
	})
}
