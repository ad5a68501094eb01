package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/yohamta/donburi"
)

// ErrInvalidOrder is returned for orders with non-finite or out-of-range
// coordinates or heading.
var ErrInvalidOrder = errors.New("invalid ship order")

// MaxOrderMagnitude bounds order coordinates and heading (radians).
const MaxOrderMagnitude = 1e6

// ShipOrder is a request to place one hull.
type ShipOrder struct {
	Template string  `json:"template"`
	Team     int     `json:"team"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Heading  float64 `json:"heading"`
}

// Validate rejects orders whose position or heading cannot be simulated.
func (o ShipOrder) Validate() error {
	fields := [...]struct {
		name  string
		value float64
	}{{"x", o.X}, {"y", o.Y}, {"heading", o.Heading}}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.Abs(f.value) > MaxOrderMagnitude {
			return fmt.Errorf("%w: %s = %v", ErrInvalidOrder, f.name, f.value)
		}
	}
	return nil
}

// SpawnShip creates a hull from its catalog template, plus one child mount
// per extra tool. Returns the hull handle.
func SpawnShip(s *Sim, order ShipOrder) (donburi.Entity, error) {
	if err := order.Validate(); err != nil {
		return 0, err
	}
	spec, err := s.Catalog.Ship(order.Template)
	if err != nil {
		return 0, err
	}

	pose := Transform{Position: Vec2{order.X, order.Y}, Rotation: normalizeAngle(order.Heading)}

	b := &blueprint{}
	put(b, KindC, Kind{Name: order.Template})
	put(b, TransformC, pose)
	put(b, GlobalTransformC, GlobalTransform(pose))
	put(b, TeamC, Team{ID: order.Team})
	put(b, CategoryC, ParseCategory(spec.Category))
	put(b, HealthC, Health{Current: spec.Health, Max: spec.Health})
	tag(b, MortalC)
	put(b, LastDamageC, LastDamage{Seconds: 1})
	put(b, EvasionC, Evasion{Base: spec.Evasion, Total: spec.Evasion})
	put(b, HitBoxC, CircularHitBox{Radius: spec.HitBox})
	put(b, MotionC, Motion{
		MaxTurnRate: spec.MaxTurnRate,
		Thrust:      spec.Thrust,
		Mass:        spec.Mass,
		Speed:       spec.Thrust / spec.Mass,
	})
	put(b, SteeringC, TurnToDestination{Destination: pose.Position})
	put(b, BehaviorC, Behavior{Mode: BehaviorIdle, RoamCentre: pose.Position, RoamRadius: spec.RoamRadius})
	put(b, AggroC, Aggro{Radius: spec.AggroRadius, Location: pose.Position})
	put(b, OrdersC, TargetingOrders{
		Preferred:      categoryMask(spec.Preferred),
		Discouraged:    categoryMask(spec.Discouraged),
		TargetSameTeam: spec.TargetSameTeam,
	})
	put(b, TargetC, Target{})
	if spec.RetargetInterval > 0 {
		put(b, RetargetC, RetargetBehavior{Interval: spec.RetargetInterval, Remaining: spec.RetargetInterval})
	}
	if spec.Shield > 0 {
		put(b, ShieldC, Shield{Health: spec.Shield, MaxHealth: spec.Shield, Radius: spec.ShieldRadius})
	}
	if spec.DyingExplosion != "" {
		put(b, DeathFXC, DeathFX{Interval: 0.1})
	}
	if len(spec.Tools) > 0 {
		addTool(b, spec.Tools[0])
	}
	hull := b.spawn(s.World).Entity()

	for _, t := range spec.Tools[min(1, len(spec.Tools)):] {
		spawnMount(s, hull, MountSpec{ToolSpec: t})
	}
	for _, m := range spec.Mounts {
		spawnMount(s, hull, m)
	}

	s.Ledger.Register(hull, order.Template, order.Team)
	s.Journal.Record(EventTypeSpawn, s.Clock.Tick, 0, SpawnPayload{
		Entity:   uint64(hull),
		Template: order.Template,
		Team:     order.Team,
		X:        order.X,
		Y:        order.Y,
	})
	return hull, nil
}

func addTool(b *blueprint, t ToolSpec) {
	put(b, ToolC, TargettedTool{Cone: t.Cone, Range: t.Range, Armed: true})
	put(b, CooldownC, Cooldown{Duration: t.Cooldown})
	put(b, EffectorC, Effector{Kind: ParseEffectKind(t.Effect)})
}

// spawnMount attaches a tool-carrying child to hull. The mount tracks the
// hull's target and credits the hull for everything it fires.
func spawnMount(s *Sim, hull donburi.Entity, m MountSpec) donburi.Entity {
	local := Transform{Position: Vec2{m.Offset[0], m.Offset[1]}, Rotation: m.Rotation}
	global := GlobalTransform(local)
	if g, ok := s.PositionOf(hull); ok {
		parentRot := GlobalTransformC.Get(s.World.Entry(hull)).Rotation
		global = GlobalTransform{
			Position: g.Add(local.Position.Rotate(parentRot)),
			Rotation: normalizeAngle(parentRot + local.Rotation),
		}
	}

	b := &blueprint{}
	put(b, TransformC, local)
	put(b, GlobalTransformC, global)
	put(b, ParentC, Parent{Entity: hull})
	put(b, InstigatorC, Instigator{Root: hull})
	put(b, TargetC, Target{})
	tag(b, InheritTargetC)
	addTool(b, m.ToolSpec)
	return b.spawn(s.World).Entity()
}
