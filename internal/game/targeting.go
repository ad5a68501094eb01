package game

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// targetCandidate is the per-tick snapshot of a targetable entity stored in
// the target index. Queries read it instead of resolving the entity again.
type targetCandidate struct {
	Entity   donburi.Entity
	Position Vec2
	Team     int
	Category AgentCategory
	Health   float64 // fraction of max
}

var (
	candidateQuery = donburi.NewQuery(filter.And(
		filter.Contains(GlobalTransformC, TeamC, CategoryC, HealthC),
		filter.Not(filter.Contains(DieingC)),
	))
	aggroQuery     = donburi.NewQuery(filter.Contains(AggroC, GlobalTransformC))
	retargetQuery  = donburi.NewQuery(filter.Contains(RetargetC, TargetC))
	targeterQuery  = donburi.NewQuery(filter.Contains(AggroC, TeamC, OrdersC, TargetC))
	inheritorQuery = donburi.NewQuery(filter.Contains(InheritTargetC, ParentC, TargetC))
)

// UpdateAggroSources moves each agent's aggro location to the entity it
// guards, or to itself. A guarded entity that no longer resolves leaves
// the previous location in place.
func UpdateAggroSources(s *Sim) {
	aggroQuery.Each(s.World, func(entry *donburi.Entry) {
		aggro := AggroC.Get(entry)
		if entry.HasComponent(GuardC) {
			if pos, ok := s.PositionOf(GuardC.Get(entry).Protected); ok {
				aggro.Location = pos
			}
			return
		}
		aggro.Location = GlobalTransformC.Get(entry).Position
	})
}

// DoRetargeting counts down each retarget timer; on expiry it resets the
// timer and drops the current target so the next targeting pass can pick
// a better one.
func DoRetargeting(s *Sim) {
	dt := s.Clock.Delta
	retargetQuery.Each(s.World, func(entry *donburi.Entry) {
		rt := RetargetC.Get(entry)
		rt.Remaining -= dt
		if rt.Remaining < 0 {
			rt.Remaining = rt.Interval
			*TargetC.Get(entry) = Target{}
		}
	})
}

// BuildTargetIndex rebuilds the spatial index from every live targetable
// entity. Entities in death throes are not offered as candidates.
func BuildTargetIndex(s *Sim) {
	s.Index.Clear()
	candidateQuery.Each(s.World, func(entry *donburi.Entry) {
		pos := GlobalTransformC.Get(entry).Position
		s.Index.Insert(targetCandidate{
			Entity:   entry.Entity(),
			Position: pos,
			Team:     TeamC.Get(entry).ID,
			Category: *CategoryC.Get(entry),
			Health:   HealthC.Get(entry).Fraction(),
		}, pos.X, pos.Y)
	})
	s.Stats.IndexedAgents = s.Index.Len()
}

// FindTargets assigns a target to every agent that does not hold one.
// Targets are sticky: a resolvable target is kept until retargeting or
// some other stage clears it.
func FindTargets(s *Sim) {
	targeterQuery.Each(s.World, func(entry *donburi.Entry) {
		target := TargetC.Get(entry)
		if t, ok := target.Get(); ok {
			if s.World.Valid(t) {
				return
			}
			*target = Target{}
		}

		aggro := AggroC.Get(entry)
		team := TeamC.Get(entry).ID
		orders := OrdersC.Get(entry)

		if best, ok := selectTarget(s, entry.Entity(), aggro, team, orders); ok {
			*target = Target{Entity: best, Set: true}
		}
	})
}

// selectTarget returns the lowest-scoring candidate inside the aggro
// radius. Equal scores resolve to the lowest entity handle.
func selectTarget(s *Sim, self donburi.Entity, aggro *Aggro, team int, orders *TargetingOrders) (donburi.Entity, bool) {
	r2 := aggro.Radius * aggro.Radius
	var (
		best      donburi.Entity
		bestScore float64
		found     bool
	)

	for _, c := range s.Index.Query(aggro.Location.X, aggro.Location.Y, aggro.Radius) {
		if c.Entity == self {
			continue
		}
		if (c.Team == team) != orders.TargetSameTeam {
			continue
		}
		d2 := aggro.Location.DistanceSquared(c.Position)
		if d2 > r2 {
			continue
		}

		score := scoreCandidate(c, d2, orders, s.Tuning.PreferenceFactor)
		if !found || score < bestScore || (score == bestScore && c.Entity < best) {
			best, bestScore, found = c.Entity, score, true
		}
	}

	return best, found
}

// scoreCandidate ranks a candidate; lower is better. Hostile orders rank by
// squared distance, support orders by remaining health fraction. Preferred
// and discouraged categories compose multiplicatively.
func scoreCandidate(c targetCandidate, d2 float64, orders *TargetingOrders, factor float64) float64 {
	score := d2
	if orders.TargetSameTeam {
		score = c.Health
	}
	if c.Category.Intersects(orders.Preferred) {
		score /= factor
	}
	if c.Category.Intersects(orders.Discouraged) {
		score *= factor
	}
	return score
}

// CopyTargetsFromParents makes mounts track their hull's target exactly.
// A parent that no longer resolves leaves the mount without a target.
func CopyTargetsFromParents(s *Sim) {
	inheritorQuery.Each(s.World, func(entry *donburi.Entry) {
		target := TargetC.Get(entry)
		parent, ok := s.Entry(ParentC.Get(entry).Entity)
		if !ok || !parent.HasComponent(TargetC) {
			*target = Target{}
			return
		}
		*target = *TargetC.Get(parent)
	})
}
