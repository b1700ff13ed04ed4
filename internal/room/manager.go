package room

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/needahmed/pokemon-pvp-game/internal/config"
	"github.com/needahmed/pokemon-pvp-game/internal/game"
)

// Record is the best-effort note written after a battle ends.
type Record struct {
	ID      string    `json:"id"`
	RoomID  string    `json:"roomId"`
	Winner  string    `json:"winner"`
	Loser   string    `json:"loser"`
	Reason  string    `json:"reason"`
	EndedAt time.Time `json:"endedAt"`
}

// Recorder persists battle records. Failures are logged and swallowed;
// they never block or fail a state transition.
type Recorder interface {
	Record(rec Record) error
}

// Manager drives every room's session and battle state. All mutation
// of a room happens under that room's lock, so per-room operations are
// serialized while distinct rooms proceed in parallel.
type Manager struct {
	registry *Registry
	cfg      config.Config
	recorder Recorder
	binder   *binder

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewManager(reg *Registry, cfg config.Config, rec Recorder) *Manager {
	return &Manager{
		registry: reg,
		cfg:      cfg,
		recorder: rec,
		binder:   newBinder(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Registry exposes the room registry for read-only API handlers.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// JoinRoom adds the player to the room, creating both lazily, or
// rebinds the connection if the player is already known.
func (m *Manager) JoinRoom(roomID, playerID string, conn Conn) {
	roomID = NormalizeID(roomID)
	r := m.registry.GetOrCreate(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	log.Printf("player %s joining room %s", playerID, roomID)
	m.attach(r, playerID, conn)

	m.broadcast(r, EventPlayerJoined, gin.H{
		"playerId": playerID,
		"roomId":   roomID,
		"players":  r.roster(),
	})

	// Late joiners catch up with the current phase.
	if r.TeamSelectionStarted {
		m.sendTo(conn, EventStartTeamSelection, gin.H{"roomId": roomID})
	}
}

// PlayerReady marks the player ready during the lobby phase.
func (m *Manager) PlayerReady(roomID, playerID string) {
	r, ok := m.registry.Get(roomID)
	if !ok {
		log.Printf("playerReady: room %s not found", roomID)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.slot(playerID)
	if s == nil {
		log.Printf("playerReady: player %s not in room %s", playerID, r.ID)
		return
	}
	if r.BattleStarted {
		return
	}
	s.Ready = true
	m.broadcast(r, EventRoomUpdate, gin.H{
		"roomId":  r.ID,
		"players": r.roster(),
	})
}

// StartTeamSelection advances the room out of the lobby. Idempotent.
func (m *Manager) StartTeamSelection(roomID string) {
	r, ok := m.registry.Get(roomID)
	if !ok {
		log.Printf("startTeamSelection: room %s not found", roomID)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.TeamSelectionStarted = true
	m.broadcast(r, EventStartTeamSelection, gin.H{"roomId": r.ID})
}

// SubmitTeam stores the player's team. A team of any size other than
// six is rejected to the requester with no state change. Once every
// joined player has a valid team the battle is scheduled.
func (m *Manager) SubmitTeam(roomID, playerID string, team []*game.Pokemon) {
	roomID = NormalizeID(roomID)
	r := m.registry.GetOrCreate(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.slot(playerID)
	if r.BattleStarted {
		// A live battle keeps the teams it started with.
		log.Printf("submitTeam: room %s battle already started, rejecting %s", r.ID, playerID)
		if s != nil {
			m.sendTo(s.Conn, EventBattleError, gin.H{
				"message": "The battle is already in progress.",
				"code":    CodeBattleInProgress,
			})
		}
		return
	}
	if len(team) != game.TeamSize {
		log.Printf("submitTeam: player %s sent %d pokemon, want %d", playerID, len(team), game.TeamSize)
		if s != nil {
			m.sendTo(s.Conn, EventBattleError, gin.H{
				"message": "Your team is incomplete. Please select 6 Pokemon.",
				"code":    CodeInvalidTeam,
			})
		}
		return
	}
	if s == nil {
		// The player skipped joinRoom (direct navigation); register them.
		s = &PlayerSlot{ID: playerID}
		r.Slots[playerID] = s
		r.JoinOrder = append(r.JoinOrder, playerID)
	}

	s.Team = team
	s.TeamSubmitted = true
	s.Ready = true
	s.ActiveIndex = 0

	m.broadcast(r, EventTeamStatus, gin.H{
		"roomId":  r.ID,
		"players": r.playerStatuses(),
		"message": "Player " + playerID + " submitted their team",
	})

	if !r.allTeamsSubmitted() {
		return
	}

	m.broadcast(r, EventTeamStatus, gin.H{
		"roomId":       r.ID,
		"players":      r.playerStatuses(),
		"allSubmitted": true,
		"message":      "All players have submitted teams. Battle will start soon.",
	})

	if m.cfg.BattleStartDelay <= 0 {
		m.startBattleLocked(r)
		return
	}
	// Short grace so clients can show a "battle starting" screen.
	time.AfterFunc(m.cfg.BattleStartDelay, func() {
		m.StartBattle(r.ID)
	})
}

// JoinBattleRoom is the idempotent reconnection entry point. If the
// battle already started it replays the stored snapshot; if the start
// conditions are met but the battle was never marked started, it
// starts now; otherwise the caller gets a battleError.
func (m *Manager) JoinBattleRoom(roomID, playerID string, conn Conn) {
	roomID = NormalizeID(roomID)
	r := m.registry.GetOrCreate(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	log.Printf("player %s joining battle room %s", playerID, roomID)
	m.attach(r, playerID, conn)

	if r.BattleStarted {
		snap, code := m.ensureSnapshotLocked(r)
		if snap == nil {
			m.sendTo(conn, EventBattleError, gin.H{
				"message": "Battle data is missing. Please return to team selection.",
				"code":    code,
			})
			return
		}
		m.sendTo(conn, EventBattleState, snap)
		return
	}

	if r.allTeamsSubmitted() {
		// Teams came in while nobody was on the battle page.
		m.startBattleLocked(r)
		return
	}

	m.sendTo(conn, EventBattleError, gin.H{
		"message": "Battle not started yet. Please select your team first.",
		"code":    CodeBattleNotStarted,
	})
}

// ensureSnapshotLocked returns the stored snapshot, making a single
// reconstruction pass from slot data when it is missing or incomplete.
func (m *Manager) ensureSnapshotLocked(r *Room) (*BattleSnapshot, string) {
	if r.Snapshot != nil && r.Snapshot.Player1.Team != nil && r.Snapshot.Player2.Team != nil {
		return r.Snapshot, ""
	}

	code := CodeBattleDataMissing
	if r.Snapshot != nil {
		code = CodeBattleDataIncomplete
	}

	p1, p2, ok := r.battlePlayers()
	if !ok || r.slot(p1).Team == nil || r.slot(p2).Team == nil {
		log.Printf("room %s: battle started but snapshot unrecoverable", r.ID)
		return nil, code
	}

	log.Printf("room %s: rebuilding battle snapshot from player data", r.ID)
	turn := r.CurrentTurn
	if turn == "" {
		turn = p1
	}
	r.Snapshot = m.buildSnapshot(r, turn)
	r.CurrentTurn = turn
	return r.Snapshot, ""
}

// RoomSummary returns a roster view of the room for the REST API.
func (m *Manager) RoomSummary(roomID string) (gin.H, bool) {
	r, ok := m.registry.Get(roomID)
	if !ok {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return gin.H{
		"roomId":               r.ID,
		"players":              r.roster(),
		"teamSelectionStarted": r.TeamSelectionStarted,
		"battleStarted":        r.BattleStarted,
		"createdAt":            r.CreatedAt,
	}, true
}

// attach creates or rebinds a slot for the player. Called with the
// room lock held.
func (m *Manager) attach(r *Room, playerID string, conn Conn) *PlayerSlot {
	s := r.slot(playerID)
	if s == nil {
		s = &PlayerSlot{ID: playerID}
		r.Slots[playerID] = s
		r.JoinOrder = append(r.JoinOrder, playerID)
	}
	s.Conn = conn
	s.Connected = true
	if s.graceTimer != nil {
		// Reconnected inside the grace period: defuse the cleanup check.
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	m.binder.bind(conn, r.ID, playerID)
	return s
}

// broadcast sends an event to every connected player in join order.
// Callers hold the room lock, so per-room delivery order matches
// production order.
func (m *Manager) broadcast(r *Room, event string, data interface{}) {
	for _, id := range r.JoinOrder {
		s := r.Slots[id]
		if s == nil || s.Conn == nil {
			continue
		}
		if err := s.Conn.Send(event, data); err != nil {
			log.Printf("room %s: failed to send %s to %s: %v", r.ID, event, id, err)
		}
	}
}

func (m *Manager) sendTo(conn Conn, event string, data interface{}) {
	if conn == nil {
		return
	}
	if err := conn.Send(event, data); err != nil {
		log.Printf("failed to send %s: %v", event, err)
	}
}

func (m *Manager) record(rec Record) {
	if m.recorder == nil {
		return
	}
	rec.ID = uuid.NewString()
	rec.EndedAt = time.Now()
	// Fire and forget: persistence must never delay the battle.
	go func() {
		if err := m.recorder.Record(rec); err != nil {
			log.Printf("failed to record battle for room %s: %v", rec.RoomID, err)
		}
	}()
}

func (m *Manager) roll() float64 {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.Float64()
}

func (m *Manager) intn(n int) int {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.Intn(n)
}
