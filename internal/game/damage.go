package game

import (
	"math"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var (
	damageQuery     = donburi.NewQuery(filter.Contains(AttackC, DamageC, TargetC))
	repairQuery     = donburi.NewQuery(filter.Contains(RepairC, TargetC))
	impactQuery     = donburi.NewQuery(filter.Contains(AttackC, ImpactFXC, EffectLocationC))
	lastDamageQuery = donburi.NewQuery(filter.Contains(LastDamageC))
)

// ApplyDamage subtracts the payload of every attack that was not a Miss.
// Blocked attacks still deal whatever the shield did not absorb. Health is
// never raised here.
func ApplyDamage(s *Sim) {
	damageQuery.Each(s.World, func(entry *donburi.Entry) {
		attack := AttackC.Get(entry)
		root := rootOf(entry)

		rec := AttackRecord{Result: attack.Result, Instigator: root}
		if entry.HasComponent(SourceTransformC) {
			rec.Source = SourceTransformC.Get(entry).Position
		}
		if entry.HasComponent(EffectLocationC) {
			rec.HitPoint = EffectLocationC.Get(entry).Point
		}
		rec.Target, _ = TargetC.Get(entry).Get()

		switch attack.Result {
		case AttackMiss:
			s.Stats.Misses++
		case AttackBlocked:
			s.Stats.Blocked++
		default:
			s.Stats.Hits++
		}
		if attack.Result != AttackMiss {
			rec.Damage = damageTarget(s, entry, rec.Target, root)
		}
		s.recordAttack(rec)
	})
}

// damageTarget applies one attack's residual payload and returns the
// amount dealt.
func damageTarget(s *Sim, entry *donburi.Entry, target, root donburi.Entity) float64 {
	te, ok := s.Entry(target)
	if !ok || !te.HasComponent(HealthC) {
		return 0
	}

	amount := DamageC.Get(entry).Amount
	if entry.HasComponent(EffectivenessC) {
		amount *= EffectivenessC.Get(entry).Scalar
	}
	if amount < 0 {
		amount = 0
	}

	health := HealthC.Get(te)
	health.Current -= amount
	if te.HasComponent(LastDamageC) {
		*LastDamageC.Get(te) = LastDamage{By: root, HasBy: true}
	}

	s.Stats.DamageDealt += amount
	s.Ledger.AddDamage(root, amount)
	s.Journal.Record(EventTypeDamage, s.Clock.Tick, root, DamagePayload{
		Target: uint64(target),
		Result: AttackC.Get(entry).Result.String(),
		Damage: amount,
		Health: health.Current,
	})
	return amount
}

// ApplyRepairs restores hit points up to the maximum. Entities in death
// throes cannot be repaired.
func ApplyRepairs(s *Sim) {
	repairQuery.Each(s.World, func(entry *donburi.Entry) {
		target, ok := TargetC.Get(entry).Get()
		if !ok {
			return
		}
		te, ok := s.Entry(target)
		if !ok || !te.HasComponent(HealthC) || te.HasComponent(DieingC) {
			return
		}
		health := HealthC.Get(te)
		amount := min(RepairC.Get(entry).Amount, health.Max-health.Current)
		if amount <= 0 {
			return
		}
		health.Current += amount
		s.Stats.Repaired += amount
	})
}

// EmitImpactEffects requests a hit explosion for every attack that was not
// a Miss, jittered around the hit point.
func EmitImpactEffects(s *Sim) {
	jitter := s.Tuning.HitEffectJitter
	impactQuery.Each(s.World, func(entry *donburi.Entry) {
		if AttackC.Get(entry).Result == AttackMiss {
			return
		}
		p := EffectLocationC.Get(entry).Point
		offset := Vec2{
			X: (s.Rand.Float64()*2 - 1) * jitter,
			Y: (s.Rand.Float64()*2 - 1) * jitter,
		}
		s.FX.Emit(FXRequest{
			Kind:     ImpactFXC.Get(entry).Kind,
			Position: p.Add(offset),
			Rotation: s.Rand.Float64() * 2 * math.Pi,
			Tick:     s.Clock.Tick,
		})
	})
}

// UpdateDamageTimers advances the time-since-last-damage counters that
// drive the damage flash.
func UpdateDamageTimers(s *Sim) {
	dt := s.Clock.Delta
	lastDamageQuery.Each(s.World, func(entry *donburi.Entry) {
		LastDamageC.Get(entry).Seconds += dt
	})
}
