package game

import (
	"math"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var (
	cooldownQuery = donburi.NewQuery(filter.Contains(CooldownC))
	toolQuery     = donburi.NewQuery(filter.Contains(ToolC, CooldownC, TargetC, GlobalTransformC))
)

// UpdateCooldowns counts every cooldown down by the tick delta. Remaining
// may go negative; the tool is ready while it is <= 0.
func UpdateCooldowns(s *Sim) {
	dt := s.Clock.Delta
	cooldownQuery.Each(s.World, func(entry *donburi.Entry) {
		CooldownC.Get(entry).Remaining -= dt
	})
}

// FireTargettedTools decides which tools fire this tick. The gates are
// checked in order and the first failing one skips the tool silently:
// target held, armed, cooldown ready, target resolvable, in range, in cone.
func FireTargettedTools(s *Sim) {
	toolQuery.Each(s.World, func(entry *donburi.Entry) {
		tool := ToolC.Get(entry)
		if _, ok := TargetC.Get(entry).Get(); !ok {
			return
		}
		if !tool.Armed {
			return
		}
		cd := CooldownC.Get(entry)
		if !cd.Ready() {
			return
		}
		_, targetPos, ok := s.TargetPosition(entry)
		if !ok {
			return
		}

		pose := GlobalTransformC.Get(entry)
		if !canHit(*pose, targetPos, tool.Range, tool.Cone) {
			return
		}

		tool.Firing = true
		cd.Remaining = cd.Duration
		s.Stats.Fired++
	})
}

// canHit tests range and firing cone. A zero-length direction (target on
// top of the muzzle) has no bearing and fails closed.
func canHit(pose GlobalTransform, target Vec2, toolRange, cone float64) bool {
	delta := target.Sub(pose.Position)
	if delta.LengthSquared() > toolRange*toolRange {
		return false
	}
	dir, ok := delta.Normalize()
	if !ok {
		return false
	}
	return pose.Forward().Dot(dir) >= math.Cos(cone/2)
}
