package game

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var (
	steerQuery = donburi.NewQuery(filter.Contains(SteeringC, MotionC, TransformC))
	moverQuery = donburi.NewQuery(filter.And(
		filter.Contains(MotionC, TransformC),
		filter.Not(filter.Contains(ParentC)),
	))
	transformQuery = donburi.NewQuery(filter.Contains(TransformC, GlobalTransformC))
)

// maxHierarchyDepth bounds parent walks; mounts sit one level below a hull.
const maxHierarchyDepth = 8

// SteerToDestinations sets each steered entity's turn rate toward its
// destination, capped by its maximum turn rate. Agents peeling away are
// steered by their behaviour instead.
func SteerToDestinations(s *Sim) {
	dt := s.Clock.Delta
	steerQuery.Each(s.World, func(entry *donburi.Entry) {
		if entry.HasComponent(BehaviorC) && BehaviorC.Get(entry).Mode == BehaviorPeel {
			return
		}
		m := MotionC.Get(entry)
		t := TransformC.Get(entry)
		want := HeadingTo(t.Position, SteeringC.Get(entry).Destination)
		m.TurnRate = turnRateToward(angleDifference(want, t.Rotation), m.MaxTurnRate, dt)
	})
}

// turnRateToward returns the rate that closes diff this tick without
// overshooting, clamped to ±maxRate.
func turnRateToward(diff, maxRate, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	rate := diff / dt
	if rate > maxRate {
		return maxRate
	}
	if rate < -maxRate {
		return -maxRate
	}
	return rate
}

// IntegrateMotion advances heading and position of every free-flying
// entity. Speed follows thrust over mass.
func IntegrateMotion(s *Sim) {
	dt := s.Clock.Delta
	moverQuery.Each(s.World, func(entry *donburi.Entry) {
		m := MotionC.Get(entry)
		if m.Mass > 0 {
			m.Speed = m.Thrust / m.Mass
		}
		t := TransformC.Get(entry)
		t.Rotation = normalizeAngle(t.Rotation + m.TurnRate*dt)
		t.Position = t.Position.Add(Heading(t.Rotation).Scale(m.Speed * dt))
	})
}

// PropagateTransforms refreshes world-space poses. Children compose their
// local pose onto the parent's; a child whose parent no longer resolves
// keeps its last world pose until cleanup removes it.
func PropagateTransforms(s *Sim) {
	transformQuery.Each(s.World, func(entry *donburi.Entry) {
		if g, ok := worldPose(s, entry, 0); ok {
			*GlobalTransformC.Get(entry) = g
		}
	})
}

func worldPose(s *Sim, entry *donburi.Entry, depth int) (GlobalTransform, bool) {
	local := TransformC.Get(entry)
	if !entry.HasComponent(ParentC) {
		return GlobalTransform(*local), true
	}
	if depth >= maxHierarchyDepth {
		return GlobalTransform{}, false
	}
	parent, ok := s.Entry(ParentC.Get(entry).Entity)
	if !ok || !parent.HasComponent(TransformC) {
		return GlobalTransform{}, false
	}
	pg, ok := worldPose(s, parent, depth+1)
	if !ok {
		return GlobalTransform{}, false
	}
	return GlobalTransform{
		Position: pg.Position.Add(local.Position.Rotate(pg.Rotation)),
		Rotation: normalizeAngle(pg.Rotation + local.Rotation),
	}, true
}
