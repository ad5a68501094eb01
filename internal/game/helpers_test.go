package game

import (
	"testing"

	"github.com/yohamta/donburi"

	"fleet-combat/internal/config"
)

// fixedRand replays vals in a loop; an empty sequence always returns 0.
type fixedRand struct {
	vals []float64
	i    int
}

func (r *fixedRand) Float64() float64 {
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

// newTestSim creates a sim over an empty world with a fixed random sequence
// and a delta of 0.1s per tick.
func newTestSim(vals ...float64) *Sim {
	s := NewSim(config.Default(), &fixedRand{vals: vals})
	s.Clock.Delta = 0.1
	return s
}

// spawnTargetable creates a bare combatant the target index will offer.
func spawnTargetable(s *Sim, team int, pos Vec2, cat AgentCategory) donburi.Entity {
	b := &blueprint{}
	put(b, TransformC, Transform{Position: pos})
	put(b, GlobalTransformC, GlobalTransform{Position: pos})
	put(b, TeamC, Team{ID: team})
	put(b, CategoryC, cat)
	put(b, HealthC, Health{Current: 100, Max: 100})
	tag(b, MortalC)
	return b.spawn(s.World).Entity()
}

// spawnHunter creates a targetable agent that also runs targeting.
func spawnHunter(s *Sim, team int, pos Vec2, radius float64, orders TargetingOrders) donburi.Entity {
	b := &blueprint{}
	put(b, TransformC, Transform{Position: pos})
	put(b, GlobalTransformC, GlobalTransform{Position: pos})
	put(b, TeamC, Team{ID: team})
	put(b, CategoryC, CategoryFighter)
	put(b, HealthC, Health{Current: 100, Max: 100})
	tag(b, MortalC)
	put(b, AggroC, Aggro{Radius: radius, Location: pos})
	put(b, OrdersC, orders)
	put(b, TargetC, Target{})
	return b.spawn(s.World).Entity()
}

// spawnAttackAt creates a resolved-effect instance aimed at target.
func spawnAttackAt(s *Sim, target donburi.Entity, source, loc Vec2, accuracy, damage float64) donburi.Entity {
	b := &blueprint{}
	tag(b, EffectInstanceC)
	put(b, TargetC, Target{Entity: target, Set: true})
	put(b, InstigatorC, Instigator{})
	put(b, SourceTransformC, SourceTransform{Position: source})
	put(b, EffectLocationC, EffectLocation{Point: loc})
	put(b, EffectivenessC, Effectiveness{Scalar: 1})
	put(b, AttackC, Attack{Accuracy: accuracy, Result: AttackHit})
	put(b, DamageC, Damage{Amount: damage})
	return b.spawn(s.World).Entity()
}

func targetOf(t *testing.T, s *Sim, e donburi.Entity) (donburi.Entity, bool) {
	t.Helper()
	entry, ok := s.Entry(e)
	if !ok {
		t.Fatalf("entity %v does not resolve", e)
	}
	return TargetC.Get(entry).Get()
}

func countEffects(s *Sim) int {
	n := 0
	effectQuery.Each(s.World, func(*donburi.Entry) { n++ })
	return n
}

func runTargeting(s *Sim) {
	UpdateAggroSources(s)
	DoRetargeting(s)
	BuildTargetIndex(s)
	FindTargets(s)
	CopyTargetsFromParents(s)
}

func approxEqual(a, b float64) bool {
	const eps = 1e-9
	d := a - b
	return d < eps && d > -eps
}
