package game

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var (
	projectileQuery = donburi.NewQuery(filter.Contains(ProjectileC, TargetC, GlobalTransformC))
	homingQuery     = donburi.NewQuery(filter.Contains(ProjectileC, HomingC, TargetC, SteeringC))
)

// InitialiseProjectiles runs once per projectile, on the tick it was
// launched: it copies team and target from the instigator. A projectile
// whose instigator has no team stays team-less.
func InitialiseProjectiles(s *Sim) {
	var fresh []donburi.Entity
	projectileQuery.Each(s.World, func(entry *donburi.Entry) {
		if !ProjectileC.Get(entry).Initialised {
			fresh = append(fresh, entry.Entity())
		}
	})
	sortEntities(fresh)

	for _, e := range fresh {
		entry := s.World.Entry(e)
		ProjectileC.Get(entry).Initialised = true

		launcher, ok := s.Entry(rootOf(entry))
		if !ok {
			continue
		}
		if launcher.HasComponent(TeamC) && !entry.HasComponent(TeamC) {
			team := *TeamC.Get(launcher)
			entry.AddComponent(TeamC)
			TeamC.SetValue(entry, team)
		}
		if launcher.HasComponent(TargetC) {
			*TargetC.Get(entry) = *TargetC.Get(launcher)
		}
	}
}

// CheckProjectilesReachedTarget flags projectiles that entered their
// target's hit box.
func CheckProjectilesReachedTarget(s *Sim) {
	projectileQuery.Each(s.World, func(entry *donburi.Entry) {
		p := ProjectileC.Get(entry)
		if p.ReachedTarget {
			return
		}
		target, ok := TargetC.Get(entry).Get()
		if !ok {
			return
		}
		te, ok := s.Entry(target)
		if !ok || !te.HasComponent(GlobalTransformC) || !te.HasComponent(HitBoxC) {
			return
		}
		r := HitBoxC.Get(te).Radius
		pos := GlobalTransformC.Get(entry).Position
		if pos.DistanceSquared(GlobalTransformC.Get(te).Position) < r*r {
			p.ReachedTarget = true
		}
	})
}

// UpdateHomingProjectiles steers homing projectiles at their target's
// live position. Once the target is gone the projectile stops steering
// and flies straight on.
func UpdateHomingProjectiles(s *Sim) {
	var lost []donburi.Entity
	homingQuery.Each(s.World, func(entry *donburi.Entry) {
		if _, pos, ok := s.TargetPosition(entry); ok {
			SteeringC.Get(entry).Destination = pos
			return
		}
		lost = append(lost, entry.Entity())
	})
	sortEntities(lost)

	for _, e := range lost {
		entry := s.World.Entry(e)
		entry.RemoveComponent(SteeringC)
		if entry.HasComponent(MotionC) {
			MotionC.Get(entry).TurnRate = 0
		}
	}
}

// ProjectilesApplyEffects arms the effector of every projectile that
// reached its target and materializes the payload before the projectile
// is scheduled for removal.
func ProjectilesApplyEffects(s *Sim) {
	projectileQuery.Each(s.World, func(entry *donburi.Entry) {
		if !ProjectileC.Get(entry).ReachedTarget || s.PendingDespawn(entry.Entity()) {
			return
		}
		if entry.HasComponent(EffectorC) {
			EffectorC.Get(entry).Pending = 1
		}
	})
	ApplyEffects(s)
}

// DespawnProjectiles schedules every projectile that reached its target.
func DespawnProjectiles(s *Sim) {
	projectileQuery.Each(s.World, func(entry *donburi.Entry) {
		if !ProjectileC.Get(entry).ReachedTarget || s.PendingDespawn(entry.Entity()) {
			return
		}
		s.Despawn(entry.Entity())
		s.Stats.Impacts++

		pos := GlobalTransformC.Get(entry).Position
		s.Journal.Record(EventTypeProjectileImpact, s.Clock.Tick, rootOf(entry), ProjectilePayload{
			Projectile: uint64(entry.Entity()),
			Template:   kindName(entry),
			X:          pos.X,
			Y:          pos.Y,
		})
	})
}

func kindName(entry *donburi.Entry) string {
	if entry.HasComponent(KindC) {
		return KindC.Get(entry).Name
	}
	return ""
}
