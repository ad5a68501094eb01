package game

import (
	"strings"

	"github.com/yohamta/donburi"
)

// =============================================================================
// AGENT CATEGORIES
// =============================================================================

// AgentCategory is a bitset of hull classes used by targeting preferences.
type AgentCategory uint32

const (
	CategoryFighter AgentCategory = 1 << iota
	CategoryFrigate
	CategoryCruiser
	CategoryTurret
	CategoryMissile
)

var categoryNames = []struct {
	bit  AgentCategory
	name string
}{
	{CategoryFighter, "fighter"},
	{CategoryFrigate, "frigate"},
	{CategoryCruiser, "cruiser"},
	{CategoryTurret, "turret"},
	{CategoryMissile, "missile"},
}

// Intersects reports whether any bit of o is set in c.
func (c AgentCategory) Intersects(o AgentCategory) bool {
	return c&o != 0
}

func (c AgentCategory) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, n := range categoryNames {
		if c&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseCategory maps a category name to its bit. Unknown names return 0.
func ParseCategory(name string) AgentCategory {
	for _, n := range categoryNames {
		if n.name == strings.ToLower(name) {
			return n.bit
		}
	}
	return 0
}

// =============================================================================
// SPATIAL
// =============================================================================

// Transform is the entity's pose relative to its parent (or the world when
// it has none). Rotation 0 faces +X.
type Transform struct {
	Position Vec2
	Rotation float64
}

// GlobalTransform is the world-space pose, refreshed once per tick.
type GlobalTransform struct {
	Position Vec2
	Rotation float64
}

// Forward returns the unit forward axis.
func (t GlobalTransform) Forward() Vec2 {
	return Heading(t.Rotation)
}

// Parent links a child (turret mount, launcher) to the hull carrying it.
// The child never owns the parent.
type Parent struct {
	Entity donburi.Entity
}

// =============================================================================
// IDENTITY & HEALTH
// =============================================================================

// Team is the faction id. Team-less entities never carry this component.
type Team struct {
	ID int
}

// Kind names the template an entity was spawned from.
type Kind struct {
	Name string
}

// Health holds hit points.
type Health struct {
	Current float64
	Max     float64
}

// Fraction returns Current/Max, or 0 when Max is not positive.
func (h Health) Fraction() float64 {
	if h.Max <= 0 {
		return 0
	}
	return h.Current / h.Max
}

// Dieing is present between health depletion and removal.
type Dieing struct {
	Remaining float64
	Dead      bool
	Dispose   bool
}

// LastDamage counts seconds since the entity last took damage and who
// caused it (root instigator).
type LastDamage struct {
	Seconds float64
	By      donburi.Entity
	HasBy   bool
}

// Lifetime despawns the entity once Remaining goes negative.
type Lifetime struct {
	Remaining float64
}

// =============================================================================
// TARGETING
// =============================================================================

// Target is an optional weak handle to another entity.
type Target struct {
	Entity donburi.Entity
	Set    bool
}

// Get returns the handle and whether one is held.
func (t Target) Get() (donburi.Entity, bool) {
	return t.Entity, t.Set
}

// TargetingOrders is the immutable targeting policy of an agent.
type TargetingOrders struct {
	Preferred      AgentCategory
	Discouraged    AgentCategory
	TargetSameTeam bool
}

// Aggro is the radius and source point targeting searches from.
type Aggro struct {
	Radius   float64
	Location Vec2
}

// Guard makes an agent measure its aggro radius from a protected entity.
type Guard struct {
	Protected donburi.Entity
}

// RetargetBehavior forces the target to be dropped every Interval seconds.
type RetargetBehavior struct {
	Interval  float64
	Remaining float64
}

// =============================================================================
// TOOLS & EFFECTS
// =============================================================================

// Cooldown gates how often a tool can fire.
type Cooldown struct {
	Duration  float64
	Remaining float64
}

// Ready reports whether the cooldown has elapsed.
func (c Cooldown) Ready() bool {
	return c.Remaining <= 0
}

// TargettedTool fires at the holder's target inside Range and a cone of
// Cone radians centred on the forward axis.
type TargettedTool struct {
	Cone   float64
	Range  float64
	Armed  bool
	Firing bool // set for exactly one downstream read
}

// Effector materializes Pending effect instances of Kind.
type Effector struct {
	Kind    EffectKind
	Pending int
}

// Instigator is the root entity credited for an effect chain.
type Instigator struct {
	Root donburi.Entity
}

// SourceTransform is the firer's pose when the effect was created.
type SourceTransform struct {
	Position Vec2
	Rotation float64
}

// EffectLocation is where the effect lands (the target's position at
// creation, later moved to a shield surface).
type EffectLocation struct {
	Point Vec2
}

// Effectiveness scales the payload of an effect instance.
type Effectiveness struct {
	Scalar float64
}

// AttackResult is the outcome of an attack after resolution.
type AttackResult uint8

const (
	AttackHit AttackResult = iota
	AttackMiss
	AttackBlocked
)

func (r AttackResult) String() string {
	switch r {
	case AttackHit:
		return "hit"
	case AttackMiss:
		return "miss"
	case AttackBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Attack is the to-hit payload of an effect instance.
type Attack struct {
	Accuracy float64
	Result   AttackResult
}

// Damage is the hit-point payload of an effect instance.
type Damage struct {
	Amount float64
}

// Repair restores hit points on friendly targets.
type Repair struct {
	Amount float64
}

// ImpactFX is the presentation request emitted where a resolved effect lands.
type ImpactFX struct {
	Kind FXKind
}

// =============================================================================
// DEFENCE
// =============================================================================

// Shield absorbs damage from attacks launched outside Radius.
type Shield struct {
	Health    float64
	MaxHealth float64
	Radius    float64
}

// Evasion lowers the hit chance of incoming attacks.
type Evasion struct {
	Base  float64
	Bonus float64
	Total float64
}

// CircularHitBox is the impact radius projectiles test against.
type CircularHitBox struct {
	Radius float64
}

// =============================================================================
// PROJECTILES & MOTION
// =============================================================================

// Projectile tracks flight state.
type Projectile struct {
	Initialised   bool
	ReachedTarget bool
}

// Motion is the kinematic state consumed by evasion and steering.
type Motion struct {
	TurnRate    float64 // rad/s, signed
	MaxTurnRate float64 // rad/s
	Speed       float64 // units/s
	Thrust      float64
	Mass        float64
}

// TurnToDestination steers the entity toward a point.
type TurnToDestination struct {
	Destination Vec2
}

// BehaviorMode is the manoeuvring state of an AI agent.
type BehaviorMode uint8

const (
	BehaviorIdle BehaviorMode = iota
	BehaviorPursue
	BehaviorPeel
)

func (m BehaviorMode) String() string {
	switch m {
	case BehaviorIdle:
		return "idle"
	case BehaviorPursue:
		return "pursue"
	case BehaviorPeel:
		return "peel"
	default:
		return "unknown"
	}
}

// Behavior is the AI manoeuvring state plus its roaming area.
type Behavior struct {
	Mode       BehaviorMode
	RoamCentre Vec2
	RoamRadius float64
}

// DeathFX spaces out the small explosions of a dying hull.
type DeathFX struct {
	Interval float64
	Timer    float64
}

// =============================================================================
// COMPONENT TYPES
// =============================================================================

var (
	TransformC       = donburi.NewComponentType[Transform]()
	GlobalTransformC = donburi.NewComponentType[GlobalTransform]()
	ParentC          = donburi.NewComponentType[Parent]()
	TeamC            = donburi.NewComponentType[Team]()
	CategoryC        = donburi.NewComponentType[AgentCategory]()
	KindC            = donburi.NewComponentType[Kind]()
	HealthC          = donburi.NewComponentType[Health]()
	MortalC          = donburi.NewComponentType[struct{}]()
	DieingC          = donburi.NewComponentType[Dieing]()
	LastDamageC      = donburi.NewComponentType[LastDamage]()
	LifetimeC        = donburi.NewComponentType[Lifetime]()
	ExpiredC         = donburi.NewComponentType[struct{}]()

	TargetC        = donburi.NewComponentType[Target]()
	OrdersC        = donburi.NewComponentType[TargetingOrders]()
	AggroC         = donburi.NewComponentType[Aggro]()
	GuardC         = donburi.NewComponentType[Guard]()
	RetargetC      = donburi.NewComponentType[RetargetBehavior]()
	InheritTargetC = donburi.NewComponentType[struct{}]()

	CooldownC        = donburi.NewComponentType[Cooldown]()
	ToolC            = donburi.NewComponentType[TargettedTool]()
	EffectorC        = donburi.NewComponentType[Effector]()
	EffectInstanceC  = donburi.NewComponentType[struct{}]()
	InstigatorC      = donburi.NewComponentType[Instigator]()
	SourceTransformC = donburi.NewComponentType[SourceTransform]()
	EffectLocationC  = donburi.NewComponentType[EffectLocation]()
	EffectivenessC   = donburi.NewComponentType[Effectiveness]()
	AttackC          = donburi.NewComponentType[Attack]()
	DamageC          = donburi.NewComponentType[Damage]()
	RepairC          = donburi.NewComponentType[Repair]()
	ImpactFXC        = donburi.NewComponentType[ImpactFX]()

	ShieldC  = donburi.NewComponentType[Shield]()
	EvasionC = donburi.NewComponentType[Evasion]()
	HitBoxC  = donburi.NewComponentType[CircularHitBox]()

	ProjectileC = donburi.NewComponentType[Projectile]()
	HomingC     = donburi.NewComponentType[struct{}]()
	MotionC     = donburi.NewComponentType[Motion]()
	SteeringC   = donburi.NewComponentType[TurnToDestination]()
	BehaviorC   = donburi.NewComponentType[Behavior]()
	DeathFXC    = donburi.NewComponentType[DeathFX]()
)
