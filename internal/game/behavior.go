package game

import (
	"math"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// peelCone is the half-angle around the target bearing a peeling agent
// turns out of before flying straight.
const peelCone = 0.3 * math.Pi

var behaviorQuery = donburi.NewQuery(filter.Contains(BehaviorC, TargetC, GlobalTransformC, MotionC, SteeringC))

// UpdateBehaviors runs the idle / pursue / peel state machine. Any state
// falls back to idle when the target no longer resolves.
func UpdateBehaviors(s *Sim) {
	behaviorQuery.Each(s.World, func(entry *donburi.Entry) {
		b := BehaviorC.Get(entry)
		pose := GlobalTransformC.Get(entry)
		steer := SteeringC.Get(entry)

		_, targetPos, hasTarget := s.TargetPosition(entry)
		if !hasTarget {
			if b.Mode != BehaviorIdle {
				b.Mode = BehaviorIdle
				steer.Destination = roamPoint(s.Rand, b.RoamCentre, b.RoamRadius)
			}
			roam(s, b, pose.Position, steer)
			return
		}

		dist2 := pose.Position.DistanceSquared(targetPos)
		switch b.Mode {
		case BehaviorIdle:
			b.Mode = BehaviorPursue
			steer.Destination = targetPos
		case BehaviorPursue:
			steer.Destination = targetPos
			if dist2 < s.Tuning.ProximityRadius*s.Tuning.ProximityRadius {
				b.Mode = BehaviorPeel
			}
		case BehaviorPeel:
			if dist2 > s.Tuning.EngagementRadius*s.Tuning.EngagementRadius {
				b.Mode = BehaviorPursue
				steer.Destination = targetPos
				return
			}
			peel(MotionC.Get(entry), *pose, targetPos)
		}
	})
}

// roam picks a new point in the roam circle once the current one is reached.
func roam(s *Sim, b *Behavior, pos Vec2, steer *TurnToDestination) {
	tolerance := math.Max(b.RoamRadius, 5)
	if pos.DistanceSquared(steer.Destination) <= tolerance*tolerance {
		steer.Destination = roamPoint(s.Rand, b.RoamCentre, b.RoamRadius)
	}
}

func roamPoint(r Rand, centre Vec2, radius float64) Vec2 {
	angle := r.Float64() * 2 * math.Pi
	dist := math.Sqrt(r.Float64()) * radius
	return centre.Add(Heading(angle).Scale(dist))
}

// peel turns hard away while the target is ahead, then flies straight.
func peel(m *Motion, pose GlobalTransform, targetPos Vec2) {
	diff := angleDifference(HeadingTo(pose.Position, targetPos), pose.Rotation)
	if math.Abs(diff) >= peelCone {
		m.TurnRate = 0
		return
	}
	if diff >= 0 {
		m.TurnRate = -m.MaxTurnRate
	} else {
		m.TurnRate = m.MaxTurnRate
	}
}
