package room

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/needahmed/pokemon-pvp-game/internal/game"
)

// StartBattle initializes the battle once both teams are in. Safe to
// call more than once; only the first call does anything.
func (m *Manager) StartBattle(roomID string) {
	r, ok := m.registry.Get(roomID)
	if !ok {
		log.Printf("startBattle: room %s not found", roomID)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m.startBattleLocked(r)
}

func (m *Manager) startBattleLocked(r *Room) {
	if r.BattleStarted {
		return
	}
	p1, p2, ok := r.battlePlayers()
	if !ok {
		log.Printf("room %s: not enough players to start battle", r.ID)
		return
	}
	if !r.allTeamsSubmitted() {
		log.Printf("room %s: not all teams submitted, battle not started", r.ID)
		return
	}

	// Full heal at level 50 unless a snapshot already set HP.
	for _, id := range []string{p1, p2} {
		for _, p := range r.slot(id).Team {
			if p.CurrentHP == 0 {
				p.CurrentHP = p.Stats.HP
			}
		}
	}

	first := p1
	if m.intn(2) == 1 {
		first = p2
	}

	r.BattleStarted = true
	r.FirstMoveDone = false
	r.Snapshot = m.buildSnapshot(r, first)
	r.CurrentTurn = first

	log.Printf("room %s: battle started, %s moves first", r.ID, first)

	m.broadcast(r, EventBattleUpdate, gin.H{
		"type":        UpdateTurnChange,
		"currentTurn": first,
	})
	m.broadcast(r, EventStartBattle, r.Snapshot)
}

// buildSnapshot assembles the authoritative battle view from slot data.
// Called with the room lock held.
func (m *Manager) buildSnapshot(r *Room, currentTurn string) *BattleSnapshot {
	p1, p2, _ := r.battlePlayers()
	s1, s2 := r.slot(p1), r.slot(p2)
	turn := "player1"
	if currentTurn == p2 {
		turn = "player2"
	}
	return &BattleSnapshot{
		BattleID:    uuid.NewString(),
		RoomID:      r.ID,
		CurrentTurn: currentTurn,
		Player1:     &BattleSide{ID: p1, Team: s1.Team, ActivePokemon: s1.ActiveIndex},
		Player2:     &BattleSide{ID: p2, Team: s2.Team, ActivePokemon: s2.ActiveIndex},
		Turn:        turn,
	}
}

// MakeMove resolves one attack from the requesting player's active
// Pokemon against the opponent's. Out-of-turn requests are answered
// only to the requester and change nothing.
func (m *Manager) MakeMove(roomID, playerID string, mv game.Move) {
	r, ok := m.registry.Get(roomID)
	if !ok {
		log.Printf("makeMove: room %s not found", roomID)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.BattleStarted {
		log.Printf("room %s: move rejected, battle not started", r.ID)
		return
	}
	attacker := r.slot(playerID)
	if attacker == nil {
		log.Printf("room %s: move from unknown player %s", r.ID, playerID)
		return
	}
	if r.CurrentTurn != playerID {
		m.sendTo(attacker.Conn, EventBattleUpdate, gin.H{
			"type":    UpdateMessage,
			"message": "It's not your turn yet!",
		})
		return
	}
	defender := r.opponentOf(playerID)
	if defender == nil {
		log.Printf("room %s: no opponent for player %s", r.ID, playerID)
		return
	}
	if defender.ForcedSwitchPending {
		m.sendTo(attacker.Conn, EventBattleUpdate, gin.H{
			"type":    UpdateMessage,
			"message": "Waiting for your opponent to switch Pokemon.",
		})
		return
	}

	atk, def := attacker.Active(), defender.Active()
	if atk == nil || def == nil {
		log.Printf("room %s: missing active pokemon", r.ID)
		return
	}

	r.FirstMoveDone = true

	if m.roll()*100 > float64(mv.Accuracy) {
		m.broadcast(r, EventBattleUpdate, gin.H{
			"type":       UpdateMoveMissed,
			"attackerId": playerID,
			"attacker":   atk.Name,
			"move":       mv.Name,
		})
		m.handTurnTo(r, defender.ID)
		return
	}

	result := m.resolveAttack(atk, mv, def)
	def.CurrentHP -= result.Damage
	if def.CurrentHP < 0 {
		def.CurrentHP = 0
	}

	m.broadcast(r, EventBattleUpdate, gin.H{
		"type":          UpdateMoveUsed,
		"attackerId":    playerID,
		"defenderId":    defender.ID,
		"attacker":      atk.Name,
		"defender":      def.Name,
		"move":          mv.Name,
		"damage":        result.Damage,
		"critical":      result.Critical,
		"effectiveness": result.Effectiveness,
		"defenderHp":    def.CurrentHP,
	})

	if !def.Fainted() {
		m.handTurnTo(r, defender.ID)
		return
	}

	m.broadcast(r, EventBattleUpdate, gin.H{
		"type":     UpdatePokemonFainted,
		"pokemon":  def.Name,
		"playerId": defender.ID,
	})

	if game.AllFainted(defender.Team) {
		m.endBattleLocked(r, playerID, defender.ID, ReasonVictory)
		return
	}

	// Turn is withheld until the defender switches in a replacement.
	defender.ForcedSwitchPending = true
	m.broadcast(r, EventBattleUpdate, gin.H{
		"type":     UpdateForcedSwitch,
		"playerId": defender.ID,
	})
}

// SwitchPokemon changes the player's active Pokemon to the given team
// index. A forced switch keeps the turn where it was; a voluntary
// switch on one's own turn hands it to the opponent.
func (m *Manager) SwitchPokemon(roomID, playerID string, newIndex int, forced bool) {
	r, ok := m.registry.Get(roomID)
	if !ok {
		log.Printf("switchPokemon: room %s not found", roomID)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.slot(playerID)
	if s == nil || s.Team == nil {
		log.Printf("room %s: switch from unknown or teamless player %s", r.ID, playerID)
		return
	}

	if newIndex < 0 || newIndex >= len(s.Team) {
		m.rejectSwitch(s, "invalid target")
		return
	}
	if newIndex == s.ActiveIndex {
		m.rejectSwitch(s, "already active")
		return
	}
	if s.Team[newIndex].Fainted() {
		m.rejectSwitch(s, "fainted")
		return
	}

	active := s.Active()
	forcedNow := s.ForcedSwitchPending || (active != nil && active.Fainted())
	if forced && !forcedNow {
		// Client claimed a forced switch the server doesn't see; treat
		// it as voluntary.
		forced = false
	}

	if r.BattleStarted && !forcedNow && r.CurrentTurn != playerID && r.FirstMoveDone {
		m.rejectSwitch(s, "It's not your turn to switch!")
		return
	}

	oldName := ""
	if active != nil {
		oldName = active.Name
	}
	s.ActiveIndex = newIndex
	s.ForcedSwitchPending = false
	m.syncActiveIndex(r, playerID, newIndex)

	m.broadcast(r, EventBattleUpdate, gin.H{
		"type":       UpdatePokemonSwitched,
		"playerId":   playerID,
		"oldPokemon": oldName,
		"newPokemon": s.Team[newIndex].Name,
	})

	// Forced switches resume play without a handoff.
	if r.BattleStarted && !forcedNow && r.CurrentTurn == playerID {
		opp := r.opponentOf(playerID)
		if opp != nil {
			m.handTurnTo(r, opp.ID)
		}
	}
}

// Forfeit ends the battle immediately with the requester as loser.
func (m *Manager) Forfeit(roomID, playerID string) {
	r, ok := m.registry.Get(roomID)
	if !ok {
		log.Printf("forfeit: room %s not found", roomID)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.BattleStarted {
		return
	}
	opp := r.opponentOf(playerID)
	if opp == nil {
		return
	}
	log.Printf("room %s: player %s forfeits", r.ID, playerID)
	m.endBattleLocked(r, opp.ID, playerID, ReasonForfeit)
}

func (m *Manager) rejectSwitch(s *PlayerSlot, reason string) {
	m.sendTo(s.Conn, EventBattleUpdate, gin.H{
		"type":    UpdateInvalidSwitch,
		"message": reason,
	})
}

func (m *Manager) syncActiveIndex(r *Room, playerID string, idx int) {
	if r.Snapshot == nil {
		return
	}
	switch playerID {
	case r.Snapshot.Player1.ID:
		r.Snapshot.Player1.ActivePokemon = idx
	case r.Snapshot.Player2.ID:
		r.Snapshot.Player2.ActivePokemon = idx
	}
}

func (m *Manager) handTurnTo(r *Room, playerID string) {
	r.setTurn(playerID)
	m.broadcast(r, EventBattleUpdate, gin.H{
		"type":        UpdateTurnChange,
		"currentTurn": playerID,
	})
}

// endBattleLocked announces the result, kicks off the best-effort
// record write and tears the room down. A rematch is a fresh room.
func (m *Manager) endBattleLocked(r *Room, winnerID, loserID, reason string) {
	log.Printf("room %s: battle ended, winner %s (%s)", r.ID, winnerID, reason)
	m.broadcast(r, EventBattleEnd, gin.H{
		"winner": winnerID,
		"loser":  loserID,
		"reason": reason,
	})
	m.record(Record{RoomID: r.ID, Winner: winnerID, Loser: loserID, Reason: reason})
	m.teardownLocked(r)
}

func (m *Manager) teardownLocked(r *Room) {
	for _, s := range r.Slots {
		if s.graceTimer != nil {
			s.graceTimer.Stop()
			s.graceTimer = nil
		}
	}
	m.registry.Delete(r.ID)
}

func (m *Manager) resolveAttack(atk *game.Pokemon, mv game.Move, def *game.Pokemon) game.AttackResult {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return game.ResolveAttack(m.rng, atk, mv, def)
}
