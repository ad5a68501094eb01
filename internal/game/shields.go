package game

import (
	"github.com/yohamta/donburi"
)

// ApplyShields lets shields absorb damage from attacks still in the Hit
// state. Attacks launched from inside the shield bubble bypass it. Any
// absorption marks the attack Blocked and moves its hit point onto the
// shield surface; unabsorbed damage carries on to the damage stage.
func ApplyShields(s *Sim) {
	attackQuery.Each(s.World, func(entry *donburi.Entry) {
		attack := AttackC.Get(entry)
		if attack.Result != AttackHit {
			return
		}
		if !entry.HasComponent(DamageC) || !entry.HasComponent(SourceTransformC) || !entry.HasComponent(EffectLocationC) {
			return
		}
		target, ok := TargetC.Get(entry).Get()
		if !ok {
			return
		}
		te, ok := s.Entry(target)
		if !ok || !te.HasComponent(ShieldC) {
			return
		}

		shield := ShieldC.Get(te)
		loc := EffectLocationC.Get(entry)
		delta := SourceTransformC.Get(entry).Position.Sub(loc.Point)
		if delta.LengthSquared() < shield.Radius*shield.Radius {
			return
		}

		dmg := DamageC.Get(entry)
		absorbed := absorb(shield, dmg)
		if absorbed <= 0 {
			return
		}

		attack.Result = AttackBlocked
		if dir, ok := delta.Normalize(); ok {
			loc.Point = loc.Point.Add(dir.Scale(shield.Radius))
		}
		s.Stats.Absorbed += absorbed
		var facing float64
		if te.HasComponent(GlobalTransformC) {
			facing = HeadingTo(GlobalTransformC.Get(te).Position, loc.Point)
		}
		s.FX.Emit(FXRequest{
			Kind:      FXShieldImpact,
			Position:  loc.Point,
			Rotation:  facing,
			Parent:    target,
			HasParent: true,
			Tick:      s.Clock.Tick,
		})
		s.Journal.Record(EventTypeShieldAbsorb, s.Clock.Tick, rootOf(entry), ShieldPayload{
			Target:   uint64(target),
			Absorbed: absorbed,
			Shield:   shield.Health,
		})
	})
}

// absorb moves min(shield, damage) out of both pools and returns it.
// Neither pool can go negative.
func absorb(shield *Shield, dmg *Damage) float64 {
	absorbed := min(shield.Health, dmg.Amount)
	if absorbed <= 0 {
		return 0
	}
	shield.Health -= absorbed
	dmg.Amount -= absorbed
	return absorbed
}
