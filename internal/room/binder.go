package room

import (
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// binder tracks which live connection currently represents which
// (room, player) pair so a disconnect can be traced back to its slot.
type binder struct {
	mu    sync.Mutex
	conns map[Conn]binding
}

type binding struct {
	roomID   string
	playerID string
}

func newBinder() *binder {
	return &binder{conns: make(map[Conn]binding)}
}

func (b *binder) bind(conn Conn, roomID, playerID string) {
	if conn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns[conn] = binding{roomID: roomID, playerID: playerID}
}

func (b *binder) unbind(conn Conn) (binding, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bd, ok := b.conns[conn]
	delete(b.conns, conn)
	return bd, ok
}

// HandleDisconnect marks the owning player disconnected and arms the
// grace-period check. The slot itself survives so an in-progress
// battle can be resumed by reconnecting.
func (m *Manager) HandleDisconnect(conn Conn) {
	bd, ok := m.binder.unbind(conn)
	if !ok {
		return
	}
	r, ok := m.registry.Get(bd.roomID)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.slot(bd.playerID)
	if s == nil || s.Conn != conn {
		// A newer connection already took over this slot.
		return
	}

	log.Printf("player %s disconnected from room %s", bd.playerID, r.ID)
	s.Connected = false
	s.Conn = nil

	m.broadcast(r, EventPlayerDisconnected, gin.H{
		"playerId": bd.playerID,
		"roomId":   r.ID,
		"players":  r.playerStatuses(),
	})

	s.graceTimer = time.AfterFunc(m.cfg.GracePeriod, func() {
		m.graceCheck(bd.roomID)
	})
}

// graceCheck runs once the grace period elapses. It re-reads the room
// state, so a reconnect in the meantime makes it a no-op.
func (m *Manager) graceCheck(roomID string) {
	r, ok := m.registry.Get(roomID)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	connected := r.connectedSlots()
	switch {
	case len(connected) == 0:
		log.Printf("room %s: empty after grace period, deleting", r.ID)
		m.teardownLocked(r)
	case r.BattleStarted && len(connected) < 2:
		winner := connected[0]
		loser := r.opponentOf(winner.ID)
		loserID := ""
		if loser != nil {
			loserID = loser.ID
		}
		log.Printf("room %s: opponent stayed disconnected, %s wins", r.ID, winner.ID)
		m.endBattleLocked(r, winner.ID, loserID, ReasonOpponentDisconnected)
	}
}
