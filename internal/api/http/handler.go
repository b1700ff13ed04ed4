package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/needahmed/pokemon-pvp-game/internal/catalog"
	"github.com/needahmed/pokemon-pvp-game/internal/room"
)

func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// CreateRoomHandler hands out a room id. Rooms themselves are created
// lazily on the first joinRoom, so this only normalizes or generates
// the code the players will share.
func CreateRoomHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RoomID string `json:"roomId"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		id := req.RoomID
		if id == "" {
			id = room.NewRoomCode()
		}
		c.JSON(http.StatusOK, gin.H{"roomId": room.NormalizeID(id)})
	}
}

func RoomHandler(mgr *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, ok := mgr.RoomSummary(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func PokemonHandler(cat *catalog.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := cat.Pokemon(c.Request.Context(), c.Param("name"))
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func MoveHandler(cat *catalog.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := cat.Move(c.Request.Context(), c.Param("name"))
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, m)
	}
}
