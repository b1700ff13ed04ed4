package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/needahmed/pokemon-pvp-game/internal/game"
	"github.com/needahmed/pokemon-pvp-game/internal/room"
)

// Coordinator is the slice of the room manager the gateway needs.
type Coordinator interface {
	JoinRoom(roomID, playerID string, conn room.Conn)
	PlayerReady(roomID, playerID string)
	StartTeamSelection(roomID string)
	SubmitTeam(roomID, playerID string, team []*game.Pokemon)
	JoinBattleRoom(roomID, playerID string, conn room.Conn)
	MakeMove(roomID, playerID string, move game.Move)
	SwitchPokemon(roomID, playerID string, newIndex int, forced bool)
	Forfeit(roomID, playerID string)
	HandleDisconnect(conn room.Conn)
}

type Hub struct {
	coord Coordinator
}

func NewHub(coord Coordinator) *Hub {
	return &Hub{coord: coord}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced at the HTTP layer
	},
}

// envelope is the wire frame for both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// client wraps a websocket connection with a write lock; gorilla
// permits only one concurrent writer per connection.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) Send(event string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(map[string]interface{}{
		"event": event,
		"data":  data,
	})
}

// HandleWS upgrades the request and runs the read loop until the
// client goes away.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("failed to upgrade connection: %v", err)
		return
	}
	cl := &client{conn: conn}
	log.Printf("client connected: %s", conn.RemoteAddr())

	defer func() {
		h.coord.HandleDisconnect(cl)
		_ = conn.Close()
		log.Printf("client disconnected: %s", conn.RemoteAddr())
	}()

	for {
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("error reading websocket message: %v", err)
			}
			return
		}
		h.dispatch(cl, msg)
	}
}

func (h *Hub) dispatch(cl *client, msg envelope) {
	switch msg.Event {
	case "joinRoom":
		var req struct {
			RoomID   string `json:"roomId"`
			PlayerID string `json:"playerId"`
		}
		if !decode(msg, &req) {
			return
		}
		h.coord.JoinRoom(req.RoomID, req.PlayerID, cl)

	case "playerReady":
		var req struct {
			RoomID   string `json:"roomId"`
			PlayerID string `json:"playerId"`
		}
		if !decode(msg, &req) {
			return
		}
		h.coord.PlayerReady(req.RoomID, req.PlayerID)

	case "startTeamSelection":
		var req struct {
			RoomID string `json:"roomId"`
		}
		if !decode(msg, &req) {
			return
		}
		h.coord.StartTeamSelection(req.RoomID)

	case "submitTeam":
		var req struct {
			RoomID   string          `json:"roomId"`
			PlayerID string          `json:"playerId"`
			Team     []*game.Pokemon `json:"team"`
		}
		if !decode(msg, &req) {
			return
		}
		h.coord.SubmitTeam(req.RoomID, req.PlayerID, req.Team)

	case "joinBattleRoom":
		var req struct {
			RoomID   string `json:"roomId"`
			PlayerID string `json:"playerId"`
		}
		if !decode(msg, &req) {
			return
		}
		h.coord.JoinBattleRoom(req.RoomID, req.PlayerID, cl)

	case "makeMove":
		var req struct {
			RoomID    string    `json:"roomId"`
			PlayerID  string    `json:"playerId"`
			Move      game.Move `json:"move"`
			PokemonID int       `json:"pokemonId"`
		}
		if !decode(msg, &req) {
			return
		}
		h.coord.MakeMove(req.RoomID, req.PlayerID, req.Move)

	case "switchPokemon":
		var req struct {
			RoomID         string `json:"roomId"`
			PlayerID       string `json:"playerId"`
			NewPokemonID   int    `json:"newPokemonId"`
			IsForcedSwitch bool   `json:"isForcedSwitch"`
		}
		if !decode(msg, &req) {
			return
		}
		h.coord.SwitchPokemon(req.RoomID, req.PlayerID, req.NewPokemonID, req.IsForcedSwitch)

	case "forfeitBattle":
		var req struct {
			RoomID   string `json:"roomId"`
			PlayerID string `json:"playerId"`
		}
		if !decode(msg, &req) {
			return
		}
		h.coord.Forfeit(req.RoomID, req.PlayerID)

	default:
		log.Printf("unknown event: %s", msg.Event)
	}
}

func decode(msg envelope, v interface{}) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		log.Printf("invalid %s payload: %v", msg.Event, err)
		return false
	}
	return true
}
