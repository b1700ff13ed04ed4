package http

import (
	"github.com/gin-gonic/gin"

	"github.com/needahmed/pokemon-pvp-game/internal/api/ws"
	"github.com/needahmed/pokemon-pvp-game/internal/catalog"
	"github.com/needahmed/pokemon-pvp-game/internal/config"
	"github.com/needahmed/pokemon-pvp-game/internal/room"
)

func SetupRouter(mgr *room.Manager, cat *catalog.Client, hub *ws.Hub, cfg config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(cfg.CORSOrigin))

	// WebSocket gateway for the battle protocol
	r.GET("/ws", hub.HandleWS)

	r.GET("/healthz", HealthHandler())

	// --- ROOM ENDPOINTS ---
	r.POST("/api/rooms", CreateRoomHandler())
	r.GET("/api/rooms/:id", RoomHandler(mgr))

	// --- CATALOG ENDPOINTS ---
	r.GET("/api/pokemon/:name", PokemonHandler(cat))
	r.GET("/api/moves/:name", MoveHandler(cat))

	return r
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Header("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
