package game

// TeamSize is the number of Pokemon a submitted team must contain.
const TeamSize = 6

// BattleLevel is the fixed level every Pokemon battles at.
const BattleLevel = 50

// Stats holds the base stats used by the damage formula.
type Stats struct {
	HP             int `json:"hp"`
	Attack         int `json:"attack"`
	Defense        int `json:"defense"`
	SpecialAttack  int `json:"specialAttack"`
	SpecialDefense int `json:"specialDefense"`
	Speed          int `json:"speed"`
}

// DamageClass selects which attack/defense stat pair a move uses.
type DamageClass string

const (
	ClassPhysical DamageClass = "physical"
	ClassSpecial  DamageClass = "special"
)

// Move is one of the four moves a battle Pokemon carries.
// Power is nil for status moves, which deal no damage.
type Move struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Power       *int        `json:"power"`
	Accuracy    int         `json:"accuracy"`
	DamageClass DamageClass `json:"damageClass"`
}

// Pokemon is a battle-scoped copy of a catalog entry. CurrentHP is the
// only mutable field during a battle.
type Pokemon struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Types     []string `json:"types"`
	Stats     Stats    `json:"stats"`
	CurrentHP int      `json:"currentHp"`
	Moves     []Move   `json:"moves"`
	Sprite    string   `json:"sprite,omitempty"`
}

func (p *Pokemon) Fainted() bool {
	return p.CurrentHP <= 0
}

// HasType reports whether t is one of the Pokemon's types.
func (p *Pokemon) HasType(t string) bool {
	for _, pt := range p.Types {
		if pt == t {
			return true
		}
	}
	return false
}

// AllFainted reports whether every Pokemon on the team is at 0 HP.
func AllFainted(team []*Pokemon) bool {
	for _, p := range team {
		if !p.Fainted() {
			return false
		}
	}
	return true
}
