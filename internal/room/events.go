package room

// Conn is one client connection. The gateway hands one to JoinRoom and
// JoinBattleRoom; the manager never closes it.
type Conn interface {
	Send(event string, data interface{}) error
}

// Outbound event names.
const (
	EventPlayerJoined       = "playerJoined"
	EventRoomUpdate         = "roomUpdate"
	EventStartTeamSelection = "startTeamSelection"
	EventTeamStatus         = "teamStatus"
	EventStartBattle        = "startBattle"
	EventBattleState        = "battleState"
	EventBattleUpdate       = "battleUpdate"
	EventBattleEnd          = "battleEnd"
	EventPlayerDisconnected = "playerDisconnectedUpdate"
	EventBattleError        = "battleError"
)

// battleUpdate payload types.
const (
	UpdateMoveUsed        = "moveUsed"
	UpdateMoveMissed      = "moveMissed"
	UpdatePokemonFainted  = "pokemonFainted"
	UpdatePokemonSwitched = "pokemonSwitched"
	UpdateTurnChange      = "turnChange"
	UpdateForcedSwitch    = "forcedSwitch"
	UpdateInvalidSwitch   = "invalidSwitch"
	UpdateMessage         = "message"
)

// battleError codes.
const (
	CodeBattleNotStarted     = "BATTLE_NOT_STARTED"
	CodeBattleInProgress     = "BATTLE_IN_PROGRESS"
	CodeBattleDataMissing    = "BATTLE_DATA_MISSING"
	CodeBattleDataIncomplete = "BATTLE_DATA_INCOMPLETE"
	CodeInvalidTeam          = "INVALID_TEAM"
)

// battleEnd reasons.
const (
	ReasonVictory              = "victory"
	ReasonForfeit              = "forfeit"
	ReasonOpponentDisconnected = "opponent_disconnected"
)

// PlayerStatus is the per-player entry of roster and teamStatus events.
type PlayerStatus struct {
	ID            string `json:"id"`
	Connected     bool   `json:"connected"`
	Ready         bool   `json:"ready"`
	TeamSubmitted bool   `json:"teamSubmitted"`
}
