package game

import (
	"math"
)

// EffectKind is the closed set of effects an Effector can materialize.
// Tuning for each kind lives in the catalog; behaviour lives in spawnEffect.
type EffectKind uint8

const (
	EffectNone EffectKind = iota
	EffectPulseLaser
	EffectSmallPulseLaser
	EffectSmallRocket
	EffectRocketLaunch
	EffectRepairBeam
)

var effectKindNames = [...]string{
	EffectNone:            "none",
	EffectPulseLaser:      "pulse_laser",
	EffectSmallPulseLaser: "small_pulse_laser",
	EffectSmallRocket:     "small_rocket",
	EffectRocketLaunch:    "rocket_launch",
	EffectRepairBeam:      "repair_beam",
}

func (k EffectKind) String() string {
	if int(k) < len(effectKindNames) {
		return effectKindNames[k]
	}
	return "unknown"
}

// ParseEffectKind maps a catalog key to its kind. Unknown keys return EffectNone.
func ParseEffectKind(name string) EffectKind {
	for i, n := range effectKindNames {
		if i > 0 && n == name {
			return EffectKind(i)
		}
	}
	return EffectNone
}

// spawnEffect is the single dispatch point from effect kind to the
// entities it creates.
func spawnEffect(s *Sim, kind EffectKind, ctx effectContext) {
	spec, ok := s.Catalog.Effect(kind)
	if !ok {
		return
	}

	switch kind {
	case EffectPulseLaser, EffectSmallPulseLaser, EffectSmallRocket:
		spawnAttack(s, spec, ctx)
	case EffectRepairBeam:
		spawnRepair(s, spec, ctx)
	case EffectRocketLaunch:
		spawnProjectile(s, spec.Projectile, ctx)
	}
}

// spawnAttack creates a damaging attack instance and the beam that
// presents it.
func spawnAttack(s *Sim, spec EffectSpec, ctx effectContext) {
	spawnEffectInstance(s, ctx, func(b *blueprint) {
		put(b, AttackC, Attack{Accuracy: spec.Accuracy, Result: AttackHit})
		put(b, DamageC, Damage{Amount: spec.Damage})
		if fx := ParseFXKind(spec.Impact); fx != FXNone {
			put(b, ImpactFXC, ImpactFX{Kind: fx})
		}
	})
	emitBeam(s, spec, ctx)
}

// spawnRepair creates a repair instance. Repairs are never evaded or
// absorbed; they carry no Attack payload.
func spawnRepair(s *Sim, spec EffectSpec, ctx effectContext) {
	spawnEffectInstance(s, ctx, func(b *blueprint) {
		put(b, RepairC, Repair{Amount: spec.Repair})
	})
	emitBeam(s, spec, ctx)
}

func emitBeam(s *Sim, spec EffectSpec, ctx effectContext) {
	if spec.Beam == "" || !ctx.HasLocation {
		return
	}
	s.FX.Emit(FXRequest{
		Kind:     ParseFXKind(spec.Beam),
		Position: ctx.Source.Position,
		To:       ctx.Location,
		Rotation: ctx.Source.Rotation,
		Tick:     s.Clock.Tick,
	})
}

// spawnProjectile launches a projectile from the source pose. Team and
// target are copied from the instigator on the projectile's first
// initialisation pass.
func spawnProjectile(s *Sim, name string, ctx effectContext) {
	spec, ok := s.Catalog.Projectiles[name]
	if !ok {
		return
	}

	pose := Transform{Position: ctx.Source.Position, Rotation: ctx.Source.Rotation}
	dest := ctx.Source.Position.Add(Heading(ctx.Source.Rotation).Scale(100))
	if ctx.HasLocation {
		dest = ctx.Location
	}

	b := &blueprint{}
	put(b, KindC, Kind{Name: name})
	put(b, TransformC, pose)
	put(b, GlobalTransformC, GlobalTransform(pose))
	put(b, ProjectileC, Projectile{})
	put(b, InstigatorC, Instigator{Root: ctx.Instigator})
	put(b, TargetC, Target{})
	put(b, EffectorC, Effector{Kind: ParseEffectKind(spec.Payload)})
	put(b, LifetimeC, Lifetime{Remaining: spec.Lifetime})
	put(b, CategoryC, ParseCategory(spec.Category))
	put(b, HealthC, Health{Current: spec.Health, Max: spec.Health})
	tag(b, MortalC)
	put(b, EvasionC, Evasion{Base: spec.Evasion, Total: spec.Evasion})
	put(b, MotionC, Motion{
		MaxTurnRate: math.Abs(spec.MaxTurnRate),
		Thrust:      spec.Thrust,
		Mass:        spec.Mass,
		Speed:       spec.Thrust / spec.Mass,
	})
	put(b, SteeringC, TurnToDestination{Destination: dest})
	if spec.Homing {
		tag(b, HomingC)
	}
	entry := b.spawn(s.World)

	s.Stats.Launched++
	s.Journal.Record(EventTypeProjectileLaunch, s.Clock.Tick, ctx.Instigator, ProjectilePayload{
		Projectile: uint64(entry.Entity()),
		Template:   name,
		X:          pose.Position.X,
		Y:          pose.Position.Y,
	})
	if fx := ParseFXKind(spec.Trail); fx != FXNone {
		s.FX.Emit(FXRequest{
			Kind:      fx,
			Position:  pose.Position,
			Rotation:  pose.Rotation,
			Parent:    entry.Entity(),
			HasParent: true,
			Tick:      s.Clock.Tick,
		})
	}
}
