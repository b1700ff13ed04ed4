package room

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/needahmed/pokemon-pvp-game/internal/config"
	"github.com/needahmed/pokemon-pvp-game/internal/game"
)

type capturedEvent struct {
	Event string
	Data  interface{}
}

// fakeConn records every event sent to it, in order.
type fakeConn struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (f *fakeConn) Send(event string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, capturedEvent{Event: event, Data: data})
	return nil
}

func (f *fakeConn) all() []capturedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]capturedEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// updates returns the battleUpdate payloads of the given type.
func (f *fakeConn) updates(typ string) []gin.H {
	var out []gin.H
	for _, ev := range f.all() {
		if ev.Event != EventBattleUpdate {
			continue
		}
		if h, ok := ev.Data.(gin.H); ok && h["type"] == typ {
			out = append(out, h)
		}
	}
	return out
}

// last returns the most recent payload for the event name.
func (f *fakeConn) last(event string) (interface{}, bool) {
	evs := f.all()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Event == event {
			return evs[i].Data, true
		}
	}
	return nil, false
}

type fakeRecorder struct {
	ch chan Record
}

func (f *fakeRecorder) Record(rec Record) error {
	f.ch <- rec
	return nil
}

func testCfg() config.Config {
	return config.Config{
		GracePeriod:      30 * time.Millisecond,
		BattleStartDelay: 0,
	}
}

func newTestManager(cfg config.Config, rec Recorder) *Manager {
	m := NewManager(NewRegistry(), cfg, rec)
	m.rng = rand.New(rand.NewSource(42))
	return m
}

func intPtr(v int) *int { return &v }

func tackle() game.Move {
	return game.Move{Name: "Tackle", Type: "normal", Power: intPtr(50), Accuracy: 100, DamageClass: game.ClassPhysical}
}

func makeTeam(prefix string) []*game.Pokemon {
	team := make([]*game.Pokemon, game.TeamSize)
	for i := range team {
		team[i] = &game.Pokemon{
			ID:    i + 1,
			Name:  fmt.Sprintf("%s-%d", prefix, i+1),
			Types: []string{"normal"},
			Stats: game.Stats{HP: 100, Attack: 80, Defense: 60, SpecialAttack: 70, SpecialDefense: 60, Speed: 70},
			Moves: []game.Move{tackle(), tackle(), tackle(), tackle()},
		}
	}
	return team
}

// startTestBattle joins two players, submits both teams and returns the
// running battle. BattleStartDelay is zero so the start is synchronous.
func startTestBattle(t *testing.T, m *Manager) (*Room, *fakeConn, *fakeConn) {
	t.Helper()
	c1, c2 := &fakeConn{}, &fakeConn{}
	m.JoinRoom("ROOM1", "ash", c1)
	m.JoinRoom("ROOM1", "gary", c2)
	m.StartTeamSelection("ROOM1")
	m.SubmitTeam("ROOM1", "ash", makeTeam("asha"))
	m.SubmitTeam("ROOM1", "gary", makeTeam("gary"))

	r, ok := m.registry.Get("ROOM1")
	if !ok {
		t.Fatal("room missing after team submission")
	}
	if !r.BattleStarted {
		t.Fatal("battle did not start after both teams submitted")
	}
	return r, c1, c2
}

func turnPair(t *testing.T, r *Room) (attackerID, defenderID string) {
	t.Helper()
	p1, p2, ok := r.battlePlayers()
	if !ok {
		t.Fatal("room has fewer than two players")
	}
	if r.CurrentTurn == p1 {
		return p1, p2
	}
	return p2, p1
}

// stateFingerprint captures everything a rejected action must not touch.
func stateFingerprint(t *testing.T, r *Room) string {
	t.Helper()
	snap, err := json.Marshal(r.Snapshot)
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf("turn=%s started=%v snap=%s", r.CurrentTurn, r.BattleStarted, snap)
}

func TestJoinRoomCreatesLazilyAndNormalizesID(t *testing.T) {
	m := newTestManager(testCfg(), nil)
	c := &fakeConn{}
	m.JoinRoom("room1", "ash", c)

	r, ok := m.registry.Get("ROOM1")
	if !ok {
		t.Fatal("room not created under normalized id")
	}
	if s := r.slot("ash"); s == nil || !s.Connected {
		t.Fatal("player slot missing or disconnected after join")
	}
	if _, ok := c.last(EventPlayerJoined); !ok {
		t.Fatal("joining player did not receive playerJoined")
	}
}

func TestJoinRoomRebindsExistingSlot(t *testing.T) {
	m := newTestManager(testCfg(), nil)
	old, fresh := &fakeConn{}, &fakeConn{}
	m.JoinRoom("ROOM1", "ash", old)
	m.SubmitTeam("ROOM1", "ash", makeTeam("asha"))

	m.JoinRoom("ROOM1", "ash", fresh)

	r, _ := m.registry.Get("ROOM1")
	s := r.slot("ash")
	if s.Conn != Conn(fresh) {
		t.Fatal("slot not rebound to the new connection")
	}
	if !s.TeamSubmitted || len(s.Team) != game.TeamSize {
		t.Fatal("rebinding lost the submitted team")
	}
	if got := len(r.JoinOrder); got != 1 {
		t.Fatalf("rejoin duplicated the slot: join order has %d entries", got)
	}
}

func TestPlayerReadyBroadcastsRoster(t *testing.T) {
	m := newTestManager(testCfg(), nil)
	c1, c2 := &fakeConn{}, &fakeConn{}
	m.JoinRoom("ROOM1", "ash", c1)
	m.JoinRoom("ROOM1", "gary", c2)

	m.PlayerReady("ROOM1", "ash")

	data, ok := c2.last(EventRoomUpdate)
	if !ok {
		t.Fatal("other player did not receive roomUpdate")
	}
	players := data.(gin.H)["players"].([]PlayerStatus)
	for _, p := range players {
		if p.ID == "ash" && !p.Ready {
			t.Fatal("roster does not show ash ready")
		}
	}
}

func TestStartTeamSelectionIsIdempotentAndCatchesUpLateJoiners(t *testing.T) {
	m := newTestManager(testCfg(), nil)
	c1 := &fakeConn{}
	m.JoinRoom("ROOM1", "ash", c1)
	m.StartTeamSelection("ROOM1")
	m.StartTeamSelection("ROOM1")

	r, _ := m.registry.Get("ROOM1")
	if !r.TeamSelectionStarted {
		t.Fatal("team selection not started")
	}

	late := &fakeConn{}
	m.JoinRoom("ROOM1", "gary", late)
	if _, ok := late.last(EventStartTeamSelection); !ok {
		t.Fatal("late joiner was not told team selection started")
	}
}

func TestSubmitShortTeamIsRejectedWithoutStateChange(t *testing.T) {
	m := newTestManager(testCfg(), nil)
	c1, c2 := &fakeConn{}, &fakeConn{}
	m.JoinRoom("ROOM1", "ash", c1)
	m.JoinRoom("ROOM1", "gary", c2)
	m.SubmitTeam("ROOM1", "gary", makeTeam("gary"))

	before := c2.count()
	m.SubmitTeam("ROOM1", "ash", makeTeam("asha")[:5])

	data, ok := c1.last(EventBattleError)
	if !ok {
		t.Fatal("submitter did not receive battleError")
	}
	if code := data.(gin.H)["code"]; code != CodeInvalidTeam {
		t.Fatalf("got code %v, want %s", code, CodeInvalidTeam)
	}
	r, _ := m.registry.Get("ROOM1")
	if r.BattleStarted {
		t.Fatal("battle started despite invalid team")
	}
	if s := r.slot("ash"); s.TeamSubmitted || s.Team != nil {
		t.Fatal("invalid team was stored")
	}
	if c2.count() != before {
		t.Fatal("rejection leaked to the other player")
	}
}

func TestBattleStartsOnceBothTeamsSubmitted(t *testing.T) {
	m := newTestManager(testCfg(), nil)
	r, c1, c2 := startTestBattle(t, m)

	if r.CurrentTurn != "ash" && r.CurrentTurn != "gary" {
		t.Fatalf("currentTurn %q is not a player", r.CurrentTurn)
	}
	if r.Snapshot == nil {
		t.Fatal("no battle snapshot stored")
	}
	if r.Snapshot.Player1.ID != "ash" || r.Snapshot.Player2.ID != "gary" {
		t.Fatalf("player labels not in join order: %s/%s", r.Snapshot.Player1.ID, r.Snapshot.Player2.ID)
	}
	for _, c := range []*fakeConn{c1, c2} {
		data, ok := c.last(EventStartBattle)
		if !ok {
			t.Fatal("player did not receive startBattle")
		}
		snap := data.(*BattleSnapshot)
		for _, p := range snap.Player1.Team {
			if p.CurrentHP != p.Stats.HP {
				t.Fatalf("%s started at %d/%d HP", p.Name, p.CurrentHP, p.Stats.HP)
			}
		}
	}
	ts, ok := c1.last(EventTeamStatus)
	if !ok || ts.(gin.H)["allSubmitted"] != true {
		t.Fatal("allSubmitted teamStatus not broadcast before start")
	}
}

func TestSubmitTeamMidBattleIsRejected(t *testing.T) {
	m := newTestManager(testCfg(), nil)
	r, c1, c2 := startTestBattle(t, m)
	attackerID, defenderID := turnPair(t, r)
	conns := map[string]*fakeConn{"ash": c1, "gary": c2}
	defSlot := r.slot(defenderID)
	teamBefore := defSlot.Team
	before := stateFingerprint(t, r)
	attackerCount := conns[attackerID].count()

	m.SubmitTeam("ROOM1", defenderID, makeTeam("late"))

	data, ok := conns[defenderID].last(EventBattleError)
	if !ok {
		t.Fatal("submitter was not told the battle is in progress")
	}
	if code := data.(gin.H)["code"]; code != CodeBattleInProgress {
		t.Fatalf("got code %v, want %s", code, CodeBattleInProgress)
	}
	if got := stateFingerprint(t, r); got != before {
		t.Fatalf("mid-battle submit mutated state:\nbefore %s\nafter  %s", before, got)
	}
	if defSlot.Team[0] != teamBefore[0] {
		t.Fatal("mid-battle submit replaced the team")
	}
	if conns[attackerID].count() != attackerCount {
		t.Fatal("rejection leaked to the other player")
	}

	// One attack against a full-HP team must not end the battle.
	m.MakeMove("ROOM1", attackerID, tackle())
	if _, ok := m.registry.Get("ROOM1"); !ok {
		t.Fatal("battle ended after a single move")
	}
}

func TestJoinBattleRoomBeforeStartReturnsError(t *testing.T) {
	m := newTestManager(testCfg(), nil)
	c := &fakeConn{}
	m.JoinBattleRoom("ROOM1", "ash", c)

	data, ok := c.last(EventBattleError)
	if !ok {
		t.Fatal("expected battleError")
	}
	if code := data.(gin.H)["code"]; code != CodeBattleNotStarted {
		t.Fatalf("got code %v, want %s", code, CodeBattleNotStarted)
	}
}

func TestJoinBattleRoomReplaysSnapshot(t *testing.T) {
	m := newTestManager(testCfg(), nil)
	r, _, _ := startTestBattle(t, m)

	attackerID, defenderID := turnPair(t, r)
	m.MakeMove("ROOM1", attackerID, tackle())

	// Defender drops and comes back on a fresh connection.
	fresh := &fakeConn{}
	m.JoinBattleRoom("room1", defenderID, fresh)

	data, ok := fresh.last(EventBattleState)
	if !ok {
		t.Fatal("reconnecting player did not receive battleState")
	}
	snap := data.(*BattleSnapshot)
	if snap != r.Snapshot {
		t.Fatal("replayed snapshot is not the stored one")
	}
	if snap.CurrentTurn != r.CurrentTurn {
		t.Fatal("replayed snapshot has stale turn")
	}
}

func TestJoinBattleRoomStartsPendingBattle(t *testing.T) {
	cfg := testCfg()
	cfg.BattleStartDelay = time.Hour // keep the submit path from starting it
	m := newTestManager(cfg, nil)
	c1, c2 := &fakeConn{}, &fakeConn{}
	m.JoinRoom("ROOM1", "ash", c1)
	m.JoinRoom("ROOM1", "gary", c2)
	m.SubmitTeam("ROOM1", "ash", makeTeam("asha"))
	m.SubmitTeam("ROOM1", "gary", makeTeam("gary"))

	r, _ := m.registry.Get("ROOM1")
	if r.BattleStarted {
		t.Fatal("battle started before the delay elapsed")
	}

	m.JoinBattleRoom("ROOM1", "ash", c1)
	if !r.BattleStarted {
		t.Fatal("joinBattleRoom did not start the pending battle")
	}
	if _, ok := c2.last(EventStartBattle); !ok {
		t.Fatal("other player was not told the battle started")
	}
}

func TestJoinBattleRoomRebuildsLostSnapshotOnce(t *testing.T) {
	m := newTestManager(testCfg(), nil)
	r, _, _ := startTestBattle(t, m)

	r.mu.Lock()
	r.Snapshot = nil
	r.mu.Unlock()

	fresh := &fakeConn{}
	m.JoinBattleRoom("ROOM1", "ash", fresh)

	data, ok := fresh.last(EventBattleState)
	if !ok {
		t.Fatal("expected rebuilt battleState")
	}
	snap := data.(*BattleSnapshot)
	if snap.Player1.Team == nil || snap.Player2.Team == nil {
		t.Fatal("rebuilt snapshot is missing teams")
	}
	if r.Snapshot == nil {
		t.Fatal("rebuilt snapshot was not stored")
	}
}

func TestJoinBattleRoomUnrecoverableSnapshot(t *testing.T) {
	m := newTestManager(testCfg(), nil)
	r := m.registry.GetOrCreate("ROOM1")
	r.mu.Lock()
	r.BattleStarted = true
	r.mu.Unlock()

	c := &fakeConn{}
	m.JoinBattleRoom("ROOM1", "ash", c)

	data, ok := c.last(EventBattleError)
	if !ok {
		t.Fatal("expected battleError")
	}
	if code := data.(gin.H)["code"]; code != CodeBattleDataMissing {
		t.Fatalf("got code %v, want %s", code, CodeBattleDataMissing)
	}
}

func TestRoomSummary(t *testing.T) {
	m := newTestManager(testCfg(), nil)
	m.JoinRoom("ROOM1", "ash", &fakeConn{})

	summary, ok := m.RoomSummary("room1")
	if !ok {
		t.Fatal("summary missing for live room")
	}
	if summary["roomId"] != "ROOM1" {
		t.Fatalf("got roomId %v", summary["roomId"])
	}
	if _, ok := m.RoomSummary("NOPE"); ok {
		t.Fatal("summary returned for unknown room")
	}
}
