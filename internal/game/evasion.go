package game

import (
	"math"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var (
	evasionQuery = donburi.NewQuery(filter.Contains(EvasionC, MotionC))
	attackQuery  = donburi.NewQuery(filter.Contains(AttackC, TargetC))
)

// CalculateEvasionRatings refreshes every evasion total from the current
// turn rate and linear speed.
func CalculateEvasionRatings(s *Sim) {
	divisor := s.Tuning.TurnEvasionFactor * s.Tuning.SpeedEvasionFactor
	evasionQuery.Each(s.World, func(entry *donburi.Entry) {
		ev := EvasionC.Get(entry)
		m := MotionC.Get(entry)
		ev.Bonus = movementBonus(*m, divisor)
		ev.Total = ev.Base + ev.Bonus
	})
}

func movementBonus(m Motion, divisor float64) float64 {
	if divisor == 0 {
		return 0
	}
	return (math.Abs(m.TurnRate) + math.Abs(m.MaxTurnRate)) / 2 * m.Speed / divisor
}

// HitChance is the probability an attack of the given accuracy lands on a
// target with the given evasion. Zero evasion always hits.
func HitChance(evasion, accuracy float64) float64 {
	if evasion <= 0 {
		return 1
	}
	if accuracy <= 0 {
		return 0
	}
	return math.Exp(-evasion / accuracy)
}

// DetermineMissedAttacks rolls every attack still in the Hit state against
// its target's evasion. Attacks already resolved are left alone.
func DetermineMissedAttacks(s *Sim) {
	attackQuery.Each(s.World, func(entry *donburi.Entry) {
		attack := AttackC.Get(entry)
		if attack.Result != AttackHit {
			return
		}
		target, ok := TargetC.Get(entry).Get()
		if !ok {
			return
		}
		te, ok := s.Entry(target)
		if !ok || !te.HasComponent(EvasionC) {
			return
		}

		chance := HitChance(EvasionC.Get(te).Total, attack.Accuracy)
		if s.Rand.Float64() > chance {
			attack.Result = AttackMiss
		}
	})
}
