package game

// Stage is one system of the combat pipeline.
type Stage func(s *Sim)

// Pipeline is the fixed per-tick stage order. Each stage observes every
// write of the stages before it in the same tick.
var Pipeline = []Stage{
	// Kinematics
	UpdateBehaviors,
	SteerToDestinations,
	IntegrateMotion,
	PropagateTransforms,

	// Targeting
	UpdateAggroSources,
	DoRetargeting,
	BuildTargetIndex,
	FindTargets,
	CopyTargetsFromParents,

	// Firing
	UpdateCooldowns,
	FireTargettedTools,
	ActivateEffectors,
	ApplyEffects,

	// Projectiles
	InitialiseProjectiles,
	CheckProjectilesReachedTarget,
	UpdateHomingProjectiles,
	ProjectilesApplyEffects,
	DespawnProjectiles,

	// Resolution
	CalculateEvasionRatings,
	DetermineMissedAttacks,
	ApplyShields,
	ApplyDamage,
	ApplyRepairs,
	EmitImpactEffects,

	// Mortality
	UpdateDieing,
	CheckForDieingEntities,
	EmitDeathThroes,

	UpdateLifetimes,
	UpdateDamageTimers,
}

// Step advances the clock and runs one full tick. Returns the number of
// entities removed at cleanup. A paused clock still runs every stage with
// a zero delta so spawns and orders take effect.
func Step(s *Sim) int {
	s.beginTick()
	s.Clock.Advance()
	for _, stage := range Pipeline {
		stage(s)
	}
	return Cleanup(s)
}
