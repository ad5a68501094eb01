package game

import (
	"math"
	"testing"
)

// TestSimClock verifies speed clamping and the game-time delta.
func TestSimClock(t *testing.T) {
	c := NewSimClock(2)
	if !approxEqual(c.Delta, FixedTimeStep) {
		t.Errorf("speed 2 delta = %v, want %v", c.Delta, FixedTimeStep)
	}

	c.SetSpeed(MaxGameSpeed + 2)
	if c.Speed != MaxGameSpeed || !approxEqual(c.Delta, FixedTimeStep*1.5) {
		t.Errorf("clamped clock = speed %d delta %v", c.Speed, c.Delta)
	}

	c.SetSpeed(-4)
	if c.Speed != 0 || c.Delta != 0 {
		t.Errorf("paused clock = speed %d delta %v", c.Speed, c.Delta)
	}

	c.SetSpeed(2)
	c.Advance()
	c.Advance()
	if c.Tick != 2 || !approxEqual(c.Elapsed, 2*FixedTimeStep) {
		t.Errorf("after two ticks = tick %d elapsed %v", c.Tick, c.Elapsed)
	}
}

// TestNormalizeAngleLarge verifies huge angles wrap in constant time and
// stay in range.
func TestNormalizeAngleLarge(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
	}{
		{"1e300", 1e300},
		{"1e15", 1e15},
		{"-1e15", -1e15},
		{"many turns", 1001 * math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeAngle(tt.angle)
			if math.IsNaN(got) || got < -math.Pi || got > math.Pi {
				t.Errorf("normalizeAngle(%g) = %v, want a value in [-π, π]", tt.angle, got)
			}
		})
	}

	if got := normalizeAngle(math.Pi / 3); !approxEqual(got, math.Pi/3) {
		t.Errorf("normalizeAngle(π/3) = %v", got)
	}
	if got := normalizeAngle(-5 * math.Pi / 2); !approxEqual(got, -math.Pi/2) {
		t.Errorf("normalizeAngle(-5π/2) = %v, want -π/2", got)
	}
}

// TestTurnRateToward verifies turn rates close the gap without overshoot.
func TestTurnRateToward(t *testing.T) {
	tests := []struct {
		name    string
		diff    float64
		maxRate float64
		dt      float64
		want    float64
	}{
		{"aligned", 0, 1, 0.1, 0},
		{"closes this tick", 0.05, 1, 0.1, 0.5},
		{"clamped left", 1, 2, 0.1, 2},
		{"clamped right", -1, 2, 0.1, -2},
		{"paused", 1, 2, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := turnRateToward(tt.diff, tt.maxRate, tt.dt); !approxEqual(got, tt.want) {
				t.Errorf("turnRateToward(%v, %v, %v) = %v, want %v", tt.diff, tt.maxRate, tt.dt, got, tt.want)
			}
		})
	}
}

// TestAngleHelpers verifies wrapping and shortest-turn differences.
func TestAngleHelpers(t *testing.T) {
	if got := normalizeAngle(3 * math.Pi); !approxEqual(math.Abs(got), math.Pi) {
		t.Errorf("normalizeAngle(3π) = %v", got)
	}
	if got := angleDifference(-3, 3); !approxEqual(got, 2*math.Pi-6) {
		t.Errorf("angleDifference(-3, 3) = %v, want %v", got, 2*math.Pi-6)
	}
	if got := HeadingTo(Vec2{}, Vec2{Y: 10}); !approxEqual(got, math.Pi/2) {
		t.Errorf("HeadingTo up = %v", got)
	}
	if _, ok := (Vec2{}).Normalize(); ok {
		t.Error("zero vector normalized")
	}
}

// TestIntegrateMotion verifies free flyers move along their heading and
// mounted children are left to the transform pass.
func TestIntegrateMotion(t *testing.T) {
	s := newTestSim()

	b := &blueprint{}
	put(b, TransformC, Transform{Rotation: math.Pi / 2})
	put(b, MotionC, Motion{Thrust: 100, Mass: 2})
	ship := b.spawn(s.World).Entity()

	c := &blueprint{}
	put(c, TransformC, Transform{Position: Vec2{X: 5}})
	put(c, MotionC, Motion{Speed: 100})
	put(c, ParentC, Parent{Entity: ship})
	mount := c.spawn(s.World).Entity()

	IntegrateMotion(s)

	shipEntry, _ := s.Entry(ship)
	pos := TransformC.Get(shipEntry).Position
	if MotionC.Get(shipEntry).Speed != 50 || !approxEqual(pos.X, 0) || !approxEqual(pos.Y, 5) {
		t.Errorf("ship at %+v speed %v, want (0, 5) at 50", pos, MotionC.Get(shipEntry).Speed)
	}

	mountEntry, _ := s.Entry(mount)
	if got := TransformC.Get(mountEntry).Position; got != (Vec2{X: 5}) {
		t.Errorf("mount local position moved to %+v", got)
	}
}

// TestPropagateTransforms verifies children compose onto their parent's
// pose and keep their last pose once the parent is gone.
func TestPropagateTransforms(t *testing.T) {
	s := newTestSim()

	b := &blueprint{}
	put(b, TransformC, Transform{Position: Vec2{X: 10}, Rotation: math.Pi / 2})
	put(b, GlobalTransformC, GlobalTransform{})
	hull := b.spawn(s.World).Entity()

	c := &blueprint{}
	put(c, TransformC, Transform{Position: Vec2{X: 5}, Rotation: 0.1})
	put(c, GlobalTransformC, GlobalTransform{})
	put(c, ParentC, Parent{Entity: hull})
	mount := c.spawn(s.World).Entity()

	PropagateTransforms(s)

	mountEntry, _ := s.Entry(mount)
	g := *GlobalTransformC.Get(mountEntry)
	if !approxEqual(g.Position.X, 10) || !approxEqual(g.Position.Y, 5) || !approxEqual(g.Rotation, math.Pi/2+0.1) {
		t.Errorf("mount world pose = %+v, want (10, 5) at π/2+0.1", g)
	}

	s.World.Remove(hull)
	PropagateTransforms(s)
	if got := *GlobalTransformC.Get(mountEntry); got != g {
		t.Errorf("orphaned mount pose changed to %+v", got)
	}
}

// TestUpdateBehaviors walks an agent through idle, pursue, peel and back.
func TestUpdateBehaviors(t *testing.T) {
	s := newTestSim()
	enemy := spawnTargetable(s, 2, Vec2{X: 200}, CategoryFighter)

	b := &blueprint{}
	put(b, GlobalTransformC, GlobalTransform{})
	put(b, MotionC, Motion{MaxTurnRate: 3})
	put(b, SteeringC, TurnToDestination{})
	put(b, BehaviorC, Behavior{RoamCentre: Vec2{X: -40, Y: 7}, RoamRadius: 20})
	put(b, TargetC, Target{Entity: enemy, Set: true})
	agent := b.spawn(s.World)

	moveEnemy := func(x float64) {
		entry, _ := s.Entry(enemy)
		GlobalTransformC.Get(entry).Position = Vec2{X: x}
	}

	UpdateBehaviors(s)
	if mode := BehaviorC.Get(agent).Mode; mode != BehaviorPursue {
		t.Fatalf("with a target: mode = %v, want pursue", mode)
	}
	if dest := SteeringC.Get(agent).Destination; dest != (Vec2{X: 200}) {
		t.Errorf("pursuit destination = %+v", dest)
	}

	moveEnemy(50)
	UpdateBehaviors(s)
	if mode := BehaviorC.Get(agent).Mode; mode != BehaviorPeel {
		t.Fatalf("inside proximity: mode = %v, want peel", mode)
	}

	UpdateBehaviors(s)
	if rate := MotionC.Get(agent).TurnRate; rate != -3 {
		t.Errorf("peeling with target dead ahead: turn rate = %v, want -3", rate)
	}

	moveEnemy(300)
	UpdateBehaviors(s)
	if mode := BehaviorC.Get(agent).Mode; mode != BehaviorPursue {
		t.Fatalf("beyond engagement: mode = %v, want pursue", mode)
	}

	s.World.Remove(enemy)
	UpdateBehaviors(s)
	if mode := BehaviorC.Get(agent).Mode; mode != BehaviorIdle {
		t.Fatalf("dangling target: mode = %v, want idle", mode)
	}
	// A zero random sequence roams to the centre of the roam circle.
	if dest := SteeringC.Get(agent).Destination; dest != (Vec2{X: -40, Y: 7}) {
		t.Errorf("roam destination = %+v", dest)
	}
}

// TestSteerSkipsPeeling verifies steering leaves peeling agents alone.
func TestSteerSkipsPeeling(t *testing.T) {
	s := newTestSim()

	b := &blueprint{}
	put(b, TransformC, Transform{})
	put(b, MotionC, Motion{MaxTurnRate: 1, TurnRate: 0.25})
	put(b, SteeringC, TurnToDestination{Destination: Vec2{Y: 100}})
	put(b, BehaviorC, Behavior{Mode: BehaviorPeel})
	entry := b.spawn(s.World)

	SteerToDestinations(s)
	if rate := MotionC.Get(entry).TurnRate; rate != 0.25 {
		t.Errorf("peeling turn rate overwritten: %v", rate)
	}

	BehaviorC.Get(entry).Mode = BehaviorPursue
	SteerToDestinations(s)
	if rate := MotionC.Get(entry).TurnRate; rate != 1 {
		t.Errorf("pursuing turn rate = %v, want max 1", rate)
	}
}
