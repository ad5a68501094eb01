package game

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var (
	lifetimeQuery = donburi.NewQuery(filter.And(
		filter.Contains(LifetimeC),
		filter.Not(filter.Contains(ExpiredC)),
	))
	expiredQuery = donburi.NewQuery(filter.Contains(ExpiredC))
)

// UpdateLifetimes counts every finite lifetime down and tags the entity
// Expired once it goes negative. Expiry never triggers an effector: a
// projectile that runs out of flight time deals no damage.
func UpdateLifetimes(s *Sim) {
	dt := s.Clock.Delta
	var expired []donburi.Entity
	lifetimeQuery.Each(s.World, func(entry *donburi.Entry) {
		lt := LifetimeC.Get(entry)
		lt.Remaining -= dt
		if lt.Remaining < 0 {
			expired = append(expired, entry.Entity())
		}
	})
	sortEntities(expired)

	for _, e := range expired {
		s.World.Entry(e).AddComponent(ExpiredC)
	}
}

// DespawnExpired schedules every expired entity for removal.
func DespawnExpired(s *Sim) {
	expiredQuery.Each(s.World, func(entry *donburi.Entry) {
		if s.PendingDespawn(entry.Entity()) {
			return
		}
		s.Despawn(entry.Entity())
		if entry.HasComponent(ProjectileC) {
			s.Stats.Expired++
			s.Journal.Record(EventTypeProjectileExpired, s.Clock.Tick, rootOf(entry), ProjectilePayload{
				Projectile: uint64(entry.Entity()),
				Template:   kindName(entry),
			})
		}
	})
}

// Cleanup is the last stage of a tick: it schedules finished effects,
// disposed and expired entities, then applies every queued removal so the
// next tick starts from a fully committed world.
func Cleanup(s *Sim) int {
	RemoveOldEffects(s)
	DisposeDieing(s)
	DespawnExpired(s)
	return s.flushDespawns()
}
