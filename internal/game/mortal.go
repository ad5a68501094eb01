package game

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var (
	dieingQuery = donburi.NewQuery(filter.Contains(DieingC))
	mortalQuery = donburi.NewQuery(filter.And(
		filter.Contains(MortalC, HealthC),
		filter.Not(filter.Contains(DieingC)),
	))
	deathFXQuery = donburi.NewQuery(filter.Contains(DieingC, DeathFXC, GlobalTransformC))
	mountQuery   = donburi.NewQuery(filter.Contains(ParentC, ToolC))
)

// UpdateDieing advances the death throes. The tick the countdown goes
// negative the entity becomes dead; the following tick it is marked for
// disposal. Dead and dispose never flip in the same tick.
func UpdateDieing(s *Sim) {
	dt := s.Clock.Delta
	dieingQuery.Each(s.World, func(entry *donburi.Entry) {
		d := DieingC.Get(entry)
		d.Remaining -= dt
		if d.Remaining >= 0 {
			return
		}
		if !d.Dead {
			d.Dead = true
			onDeath(s, entry)
			return
		}
		d.Dispose = true
	})
}

// CheckForDieingEntities moves mortal entities with no health left into
// death throes. The delay is instant with InstantDeathChance, otherwise
// uniform in [DeathThroesMin, DeathThroesMax). An instant death is dead on
// the transition tick and disposed on the next one.
func CheckForDieingEntities(s *Sim) {
	var dying []donburi.Entity
	mortalQuery.Each(s.World, func(entry *donburi.Entry) {
		if HealthC.Get(entry).Current <= 0 {
			dying = append(dying, entry.Entity())
		}
	})
	sortEntities(dying)

	for _, e := range dying {
		entry := s.World.Entry(e)
		d := Dieing{Remaining: rollDeathThroes(s.Rand, s.Tuning.InstantDeathChance, s.Tuning.DeathThroesMin, s.Tuning.DeathThroesMax)}
		d.Dead = d.Remaining == 0

		entry.AddComponent(DieingC)
		DieingC.SetValue(entry, d)
		onDieing(s, entry)
		if d.Dead {
			onDeath(s, entry)
		}
	}
}

// maxMountDepth bounds the parent walk in mountedOn.
const maxMountDepth = 8

// rollDeathThroes draws the death-throes delay in seconds.
func rollDeathThroes(r Rand, instantChance, lo, hi float64) float64 {
	if r.Float64() < instantChance {
		return 0
	}
	return lo + r.Float64()*(hi-lo)
}

// onDieing credits the kill and disarms the hull's tools, including those on
// its mounts.
func onDieing(s *Sim, entry *donburi.Entry) {
	s.Stats.Deaths++

	var killer donburi.Entity
	if entry.HasComponent(LastDamageC) {
		if ld := LastDamageC.Get(entry); ld.HasBy {
			killer = ld.By
			s.Ledger.AddKill(killer)
		}
	}
	if entry.HasComponent(ToolC) {
		ToolC.Get(entry).Armed = false
	}
	hull := entry.Entity()
	mountQuery.Each(s.World, func(mount *donburi.Entry) {
		if mountedOn(s, mount, hull) {
			ToolC.Get(mount).Armed = false
		}
	})

	payload := DeathPayload{Entity: uint64(entry.Entity()), Kind: kindName(entry)}
	if entry.HasComponent(TeamC) {
		payload.Team = TeamC.Get(entry).ID
	}
	if entry.HasComponent(DieingC) {
		payload.Delay = DieingC.Get(entry).Remaining
	}
	s.Journal.Record(EventTypeDieing, s.Clock.Tick, killer, payload)
}

// mountedOn reports whether entry hangs below hull in the hierarchy.
func mountedOn(s *Sim, entry *donburi.Entry, hull donburi.Entity) bool {
	for depth := 0; depth < maxMountDepth && entry.HasComponent(ParentC); depth++ {
		parent := ParentC.Get(entry).Entity
		if parent == hull {
			return true
		}
		next, ok := s.Entry(parent)
		if !ok {
			return false
		}
		entry = next
	}
	return false
}

// onDeath fires the terminal explosion on the tick the entity becomes dead.
func onDeath(s *Sim, entry *donburi.Entry) {
	s.Journal.Record(EventTypeDeath, s.Clock.Tick, 0, DeathPayload{
		Entity: uint64(entry.Entity()),
		Kind:   kindName(entry),
	})
	if !entry.HasComponent(GlobalTransformC) {
		return
	}
	kind := FXSmallExplosion
	if spec, ok := shipSpecOf(s, entry); ok && spec.DeathExplosion != "" {
		kind = ParseFXKind(spec.DeathExplosion)
	}
	pose := GlobalTransformC.Get(entry)
	s.FX.Emit(FXRequest{Kind: kind, Position: pose.Position, Rotation: pose.Rotation, Tick: s.Clock.Tick})
}

// EmitDeathThroes requests small explosions at intervals while a hull is
// dying but not yet dead.
func EmitDeathThroes(s *Sim) {
	dt := s.Clock.Delta
	deathFXQuery.Each(s.World, func(entry *donburi.Entry) {
		if DieingC.Get(entry).Dead {
			return
		}
		fx := DeathFXC.Get(entry)
		fx.Timer -= dt
		if fx.Timer > 0 {
			return
		}
		fx.Timer = fx.Interval

		kind := FXSmallExplosion
		if spec, ok := shipSpecOf(s, entry); ok && spec.DyingExplosion != "" {
			kind = ParseFXKind(spec.DyingExplosion)
		}
		pose := GlobalTransformC.Get(entry)
		jitter := Vec2{X: (s.Rand.Float64()*2 - 1) * 12, Y: (s.Rand.Float64()*2 - 1) * 12}
		s.FX.Emit(FXRequest{
			Kind:      kind,
			Position:  pose.Position.Add(jitter),
			Parent:    entry.Entity(),
			HasParent: true,
			Tick:      s.Clock.Tick,
		})
	})
}

// DisposeDieing schedules every entity whose death throes are over.
func DisposeDieing(s *Sim) {
	dieingQuery.Each(s.World, func(entry *donburi.Entry) {
		if !DieingC.Get(entry).Dispose {
			return
		}
		s.Despawn(entry.Entity())
		s.Stats.Disposed++
		s.Journal.Record(EventTypeDispose, s.Clock.Tick, 0, DeathPayload{
			Entity: uint64(entry.Entity()),
			Kind:   kindName(entry),
		})
	})
}

func shipSpecOf(s *Sim, entry *donburi.Entry) (ShipSpec, bool) {
	if s.Catalog == nil || !entry.HasComponent(KindC) {
		return ShipSpec{}, false
	}
	spec, ok := s.Catalog.Ships[KindC.Get(entry).Name]
	return spec, ok
}
