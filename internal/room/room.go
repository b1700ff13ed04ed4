package room

import (
	"math/rand"
	"sync"
	"time"

	"github.com/needahmed/pokemon-pvp-game/internal/game"
)

// PlayerSlot is one player's durable state inside a room. The slot
// outlives its connection so a battle survives a brief disconnect; on
// reconnect only Conn is replaced.
type PlayerSlot struct {
	ID                  string
	Conn                Conn // nil while disconnected
	Connected           bool
	Ready               bool
	Team                []*game.Pokemon // nil until submitted
	TeamSubmitted       bool
	ActiveIndex         int
	ForcedSwitchPending bool

	graceTimer *time.Timer
}

// Active returns the slot's active Pokemon, or nil before team submission.
func (s *PlayerSlot) Active() *game.Pokemon {
	if s.Team == nil || s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Team) {
		return nil
	}
	return s.Team[s.ActiveIndex]
}

// BattleSide is one player's half of a battle snapshot. Team shares the
// slot's Pokemon pointers, so HP changes are visible in the snapshot
// without copying.
type BattleSide struct {
	ID            string          `json:"id"`
	Team          []*game.Pokemon `json:"team"`
	ActivePokemon int             `json:"activePokemon"`
}

// BattleSnapshot is the authoritative battle view. It is the only
// battle representation ever broadcast or replayed to clients.
type BattleSnapshot struct {
	BattleID    string      `json:"battleId"`
	RoomID      string      `json:"roomId"`
	CurrentTurn string      `json:"currentTurn"`
	Player1     *BattleSide `json:"player1"`
	Player2     *BattleSide `json:"player2"`
	Turn        string      `json:"turn"` // "player1" or "player2"
}

// Room is a single-writer domain: every mutation happens under mu,
// which the Manager takes before touching any field.
type Room struct {
	mu sync.Mutex

	ID                   string
	Slots                map[string]*PlayerSlot
	JoinOrder            []string
	TeamSelectionStarted bool
	BattleStarted        bool
	CurrentTurn          string // player id, "" when no battle
	Snapshot             *BattleSnapshot
	FirstMoveDone        bool
	CreatedAt            time.Time
}

func newRoom(id string) *Room {
	return &Room{
		ID:        id,
		Slots:     make(map[string]*PlayerSlot),
		CreatedAt: time.Now(),
	}
}

func (r *Room) slot(playerID string) *PlayerSlot {
	return r.Slots[playerID]
}

// battlePlayers returns the first two joiners, the stable
// player1/player2 assignment for the lifetime of the battle.
func (r *Room) battlePlayers() (string, string, bool) {
	if len(r.JoinOrder) < 2 {
		return "", "", false
	}
	return r.JoinOrder[0], r.JoinOrder[1], true
}

func (r *Room) opponentOf(playerID string) *PlayerSlot {
	p1, p2, ok := r.battlePlayers()
	if !ok {
		return nil
	}
	if playerID == p1 {
		return r.slot(p2)
	}
	if playerID == p2 {
		return r.slot(p1)
	}
	return nil
}

func (r *Room) connectedSlots() []*PlayerSlot {
	var out []*PlayerSlot
	for _, id := range r.JoinOrder {
		if s := r.Slots[id]; s != nil && s.Connected {
			out = append(out, s)
		}
	}
	return out
}

func (r *Room) allTeamsSubmitted() bool {
	if len(r.JoinOrder) < 2 {
		return false
	}
	for _, id := range r.JoinOrder {
		s := r.Slots[id]
		if s == nil || !s.TeamSubmitted || len(s.Team) != game.TeamSize {
			return false
		}
	}
	return true
}

func (r *Room) roster() []PlayerStatus {
	out := make([]PlayerStatus, 0, len(r.JoinOrder))
	for _, id := range r.JoinOrder {
		s := r.Slots[id]
		out = append(out, PlayerStatus{
			ID:            s.ID,
			Connected:     s.Connected,
			Ready:         s.Ready,
			TeamSubmitted: s.TeamSubmitted,
		})
	}
	return out
}

func (r *Room) playerStatuses() map[string]PlayerStatus {
	out := make(map[string]PlayerStatus, len(r.Slots))
	for id, s := range r.Slots {
		out[id] = PlayerStatus{
			ID:            id,
			Connected:     s.Connected,
			Ready:         s.Ready,
			TeamSubmitted: s.TeamSubmitted,
		}
	}
	return out
}

// setTurn updates the room's turn pointer and keeps the snapshot in step.
func (r *Room) setTurn(playerID string) {
	r.CurrentTurn = playerID
	if r.Snapshot != nil {
		r.Snapshot.CurrentTurn = playerID
		if playerID == r.Snapshot.Player1.ID {
			r.Snapshot.Turn = "player1"
		} else {
			r.Snapshot.Turn = "player2"
		}
	}
}

const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewRoomCode generates a short join code for a fresh room.
func NewRoomCode() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	b := make([]byte, 6)
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}
