package game

import (
	"sort"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var (
	activationQuery = donburi.NewQuery(filter.Contains(ToolC, EffectorC))
	effectorQuery   = donburi.NewQuery(filter.Contains(EffectorC, GlobalTransformC))
	effectQuery     = donburi.NewQuery(filter.Contains(EffectInstanceC))
)

// effectContext is everything an effect kind needs to build its instance.
type effectContext struct {
	Target      Target
	Instigator  donburi.Entity
	Source      SourceTransform
	Location    Vec2
	HasLocation bool
}

// ActivateEffectors consumes each tool's firing flag and queues one effect
// application on its effector.
func ActivateEffectors(s *Sim) {
	activationQuery.Each(s.World, func(entry *donburi.Entry) {
		tool := ToolC.Get(entry)
		if !tool.Firing {
			return
		}
		tool.Firing = false
		EffectorC.Get(entry).Pending++
	})
}

// ApplyEffects materializes every pending effect application. This is the
// only place attack-, damage- and repair-bearing entities are created.
func ApplyEffects(s *Sim) {
	var pending []donburi.Entity
	effectorQuery.Each(s.World, func(entry *donburi.Entry) {
		if EffectorC.Get(entry).Pending > 0 {
			pending = append(pending, entry.Entity())
		}
	})
	sortEntities(pending)

	for _, e := range pending {
		entry := s.World.Entry(e)
		ctx := newEffectContext(s, entry)

		eff := EffectorC.Get(entry)
		kind, count := eff.Kind, eff.Pending
		eff.Pending = 0

		for i := 0; i < count; i++ {
			spawnEffect(s, kind, ctx)
		}
	}
}

func newEffectContext(s *Sim, entry *donburi.Entry) effectContext {
	pose := GlobalTransformC.Get(entry)
	ctx := effectContext{
		Instigator: rootOf(entry),
		Source:     SourceTransform{Position: pose.Position, Rotation: pose.Rotation},
	}
	if entry.HasComponent(TargetC) {
		ctx.Target = *TargetC.Get(entry)
		if t, ok := ctx.Target.Get(); ok {
			ctx.Location, ctx.HasLocation = s.PositionOf(t)
		}
	}
	return ctx
}

// spawnEffectInstance creates the common part of an effect instance and
// lets fill add the kind-specific payload.
func spawnEffectInstance(s *Sim, ctx effectContext, fill func(b *blueprint)) *donburi.Entry {
	b := &blueprint{}
	tag(b, EffectInstanceC)
	put(b, TargetC, ctx.Target)
	put(b, InstigatorC, Instigator{Root: ctx.Instigator})
	put(b, SourceTransformC, ctx.Source)
	put(b, EffectivenessC, Effectiveness{Scalar: 1.0})
	if ctx.HasLocation {
		put(b, EffectLocationC, EffectLocation{Point: ctx.Location})
	}
	fill(b)

	s.Stats.Effects++
	return b.spawn(s.World)
}

// RemoveOldEffects schedules every effect instance for removal. Instances
// live for exactly one resolution pass.
func RemoveOldEffects(s *Sim) {
	effectQuery.Each(s.World, func(entry *donburi.Entry) {
		s.Despawn(entry.Entity())
	})
}

func sortEntities(es []donburi.Entity) {
	sort.Slice(es, func(i, j int) bool { return es[i] < es[j] })
}
