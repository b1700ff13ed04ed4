package game

import (
	"math"
	"math/rand"
)

// Effectiveness labels how a move's type matched up against the defender.
type Effectiveness string

const (
	SuperEffective   Effectiveness = "super_effective"
	NotVeryEffective Effectiveness = "not_very_effective"
	Neutral          Effectiveness = "effective"
	NoEffect         Effectiveness = "no_effect"
)

const critChance = 1.0 / 16

// AttackResult is the outcome of a move that already passed its
// accuracy check.
type AttackResult struct {
	Damage        int           `json:"damage"`
	Critical      bool          `json:"critical"`
	Effectiveness Effectiveness `json:"effectiveness"`
}

// ResolveAttack computes the damage move deals from attacker to
// defender. The accuracy roll is the caller's job; this assumes the
// move hit. All battles run at level 50.
func ResolveAttack(rng *rand.Rand, attacker *Pokemon, move Move, defender *Pokemon) AttackResult {
	random := 0.85 + rng.Float64()*0.15

	critical := 1.0
	if rng.Float64() < critChance {
		critical = 1.5
	}

	stab := 1.0
	if attacker.HasType(move.Type) {
		stab = 1.5
	}

	typeEff := TypeEffectiveness(move.Type, defender.Types)

	res := AttackResult{
		Critical:      critical > 1,
		Effectiveness: effectivenessLabel(typeEff),
	}
	if typeEff == 0 || move.Power == nil {
		return res
	}

	atk := float64(attacker.Stats.Attack)
	def := float64(defender.Stats.Defense)
	if move.DamageClass == ClassSpecial {
		atk = float64(attacker.Stats.SpecialAttack)
		def = float64(defender.Stats.SpecialDefense)
	}

	base := (2*float64(BattleLevel)/5+2)*float64(*move.Power)*atk/def/50 + 2
	res.Damage = int(math.Floor(base * stab * typeEff * critical * random))
	if res.Damage < 0 {
		// Move payloads come from clients; a negative power must not
		// heal the defender.
		res.Damage = 0
	}
	return res
}

func effectivenessLabel(eff float64) Effectiveness {
	switch {
	case eff == 0:
		return NoEffect
	case eff > 1:
		return SuperEffective
	case eff < 1:
		return NotVeryEffective
	default:
		return Neutral
	}
}
