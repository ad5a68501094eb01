package game

import (
	"math"
	"testing"
)

func TestHitChance(t *testing.T) {
	tests := []struct {
		name     string
		evasion  float64
		accuracy float64
		want     float64
	}{
		{"no evasion always hits", 0, 1, 1},
		{"negative evasion always hits", -2, 1, 1},
		{"zero accuracy never hits", 1, 0, 0},
		{"evasion equals accuracy", 2, 2, math.Exp(-1)},
		{"accurate weapon", 1, 10, math.Exp(-0.1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HitChance(tt.evasion, tt.accuracy); !approxEqual(got, tt.want) {
				t.Errorf("HitChance(%v, %v) = %v, want %v", tt.evasion, tt.accuracy, got, tt.want)
			}
		})
	}
}

// TestHitChanceMonotonic verifies more evasion never raises the chance and
// more accuracy never lowers it.
func TestHitChanceMonotonic(t *testing.T) {
	prev := 1.0
	for e := 0.0; e <= 10; e += 0.25 {
		p := HitChance(e, 3)
		if p > prev {
			t.Fatalf("HitChance rose from %v to %v at evasion %v", prev, p, e)
		}
		if p < 0 || p > 1 {
			t.Fatalf("HitChance %v out of [0, 1]", p)
		}
		prev = p
	}

	prev = 0
	for a := 0.0; a <= 10; a += 0.25 {
		p := HitChance(2, a)
		if p < prev {
			t.Fatalf("HitChance fell from %v to %v at accuracy %v", prev, p, a)
		}
		prev = p
	}
}

// TestCalculateEvasionRatings verifies the movement bonus formula.
func TestCalculateEvasionRatings(t *testing.T) {
	s := newTestSim()
	b := &blueprint{}
	put(b, EvasionC, Evasion{Base: 1})
	put(b, MotionC, Motion{TurnRate: -2, MaxTurnRate: 4, Speed: 100})
	e := b.spawn(s.World)

	CalculateEvasionRatings(s)

	// (|-2| + |4|) / 2 * 100 / (2 * 200)
	ev := EvasionC.Get(e)
	if !approxEqual(ev.Bonus, 0.75) {
		t.Errorf("Bonus = %v, want 0.75", ev.Bonus)
	}
	if !approxEqual(ev.Total, 1.75) {
		t.Errorf("Total = %v, want 1.75", ev.Total)
	}
}

// TestDetermineMissedAttacks verifies the roll against the hit chance and
// that already resolved attacks are not rolled again.
func TestDetermineMissedAttacks(t *testing.T) {
	tests := []struct {
		name  string
		roll  float64
		start AttackResult
		want  AttackResult
	}{
		{"low roll hits", 0.1, AttackHit, AttackHit},
		{"high roll misses", 0.9, AttackHit, AttackMiss},
		{"blocked stays blocked", 0.9, AttackBlocked, AttackBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSim(tt.roll)
			target := spawnTargetable(s, 2, Vec2{X: 50}, CategoryFighter)
			te := s.World.Entry(target)
			te.AddComponent(EvasionC)
			EvasionC.SetValue(te, Evasion{Base: 1, Total: 1})

			atk := s.World.Entry(spawnAttackAt(s, target, Vec2{}, Vec2{X: 50}, 1, 10))
			AttackC.Get(atk).Result = tt.start

			DetermineMissedAttacks(s)

			if got := AttackC.Get(atk).Result; got != tt.want {
				t.Errorf("result = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestShieldAbsorbsPartially verifies a 30-point shield takes 30 of a
// 50-point attack and the rest reaches the hull.
func TestShieldAbsorbsPartially(t *testing.T) {
	s := newTestSim()
	target := spawnTargetable(s, 2, Vec2{}, CategoryFrigate)
	te := s.World.Entry(target)
	te.AddComponent(ShieldC)
	ShieldC.SetValue(te, Shield{Health: 30, MaxHealth: 100, Radius: 20})

	atk := s.World.Entry(spawnAttackAt(s, target, Vec2{X: 100}, Vec2{}, 1, 50))

	ApplyShields(s)

	if got := ShieldC.Get(te).Health; got != 0 {
		t.Errorf("shield = %v, want 0", got)
	}
	if got := DamageC.Get(atk).Amount; got != 20 {
		t.Errorf("damage payload = %v, want 20", got)
	}
	if got := AttackC.Get(atk).Result; got != AttackBlocked {
		t.Errorf("result = %v, want blocked", got)
	}
	if got := EffectLocationC.Get(atk).Point; !approxEqual(got.X, 20) || !approxEqual(got.Y, 0) {
		t.Errorf("hit point = %v, want moved to the shield surface (20, 0)", got)
	}

	ApplyDamage(s)

	if got := HealthC.Get(te).Current; got != 80 {
		t.Errorf("health = %v, want 80", got)
	}
	if s.Stats.Blocked != 1 || s.Stats.Absorbed != 30 {
		t.Errorf("stats blocked=%d absorbed=%v, want 1 and 30", s.Stats.Blocked, s.Stats.Absorbed)
	}
}

// TestShieldEdgeCases covers the bubble bypass and the shield pools.
func TestShieldEdgeCases(t *testing.T) {
	tests := []struct {
		name       string
		source     Vec2
		shield     float64
		damage     float64
		wantShield float64
		wantDamage float64
		wantResult AttackResult
	}{
		{"inside bubble bypasses", Vec2{X: 5}, 30, 50, 30, 50, AttackHit},
		{"full absorb", Vec2{X: 100}, 80, 50, 30, 0, AttackBlocked},
		{"depleted shield", Vec2{X: 100}, 0, 50, 0, 50, AttackHit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSim()
			target := spawnTargetable(s, 2, Vec2{}, CategoryFrigate)
			te := s.World.Entry(target)
			te.AddComponent(ShieldC)
			ShieldC.SetValue(te, Shield{Health: tt.shield, MaxHealth: 100, Radius: 20})

			atk := s.World.Entry(spawnAttackAt(s, target, tt.source, Vec2{}, 1, tt.damage))
			ApplyShields(s)

			if got := ShieldC.Get(te).Health; got != tt.wantShield {
				t.Errorf("shield = %v, want %v", got, tt.wantShield)
			}
			if got := DamageC.Get(atk).Amount; got != tt.wantDamage {
				t.Errorf("damage = %v, want %v", got, tt.wantDamage)
			}
			if got := AttackC.Get(atk).Result; got != tt.wantResult {
				t.Errorf("result = %v, want %v", got, tt.wantResult)
			}
		})
	}
}

// TestApplyDamage verifies misses deal nothing, effectiveness scales the
// payload and health is never raised.
func TestApplyDamage(t *testing.T) {
	tests := []struct {
		name          string
		result        AttackResult
		damage        float64
		effectiveness float64
		wantHealth    float64
	}{
		{"hit", AttackHit, 30, 1, 70},
		{"miss", AttackMiss, 30, 1, 100},
		{"blocked residual", AttackBlocked, 10, 1, 90},
		{"half effective", AttackHit, 30, 0.5, 85},
		{"negative payload", AttackHit, -40, 1, 100},
		{"overkill", AttackHit, 500, 1, -400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSim()
			hull := spawnTargetable(s, 1, Vec2{X: -50}, CategoryFighter)
			target := spawnTargetable(s, 2, Vec2{}, CategoryFighter)
			te := s.World.Entry(target)
			te.AddComponent(LastDamageC)

			atk := s.World.Entry(spawnAttackAt(s, target, Vec2{X: -50}, Vec2{}, 1, tt.damage))
			AttackC.Get(atk).Result = tt.result
			EffectivenessC.Get(atk).Scalar = tt.effectiveness
			InstigatorC.Get(atk).Root = hull

			ApplyDamage(s)

			if got := HealthC.Get(te).Current; got != tt.wantHealth {
				t.Errorf("health = %v, want %v", got, tt.wantHealth)
			}
			if s.Stats.DamageDealt < 0 {
				t.Errorf("DamageDealt = %v, want >= 0", s.Stats.DamageDealt)
			}
			if len(s.Attacks()) != 1 {
				t.Fatalf("attack records = %d, want 1", len(s.Attacks()))
			}
			dealt := 100 - tt.wantHealth
			if tt.result != AttackMiss && dealt > 0 {
				ld := LastDamageC.Get(te)
				if !ld.HasBy || ld.By != hull {
					t.Errorf("last damage = %+v, want credited to %v", ld, hull)
				}
				if e, _ := s.Ledger.Get(hull); e.Damage != dealt {
					t.Errorf("ledger damage = %v, want %v", e.Damage, dealt)
				}
			}
		})
	}
}

// TestApplyRepairs verifies repairs clamp at max and skip the dying.
func TestApplyRepairs(t *testing.T) {
	tests := []struct {
		name   string
		health float64
		amount float64
		dying  bool
		want   float64
	}{
		{"partial", 50, 6, false, 56},
		{"clamped", 98, 6, false, 100},
		{"full health", 100, 6, false, 100},
		{"dying", 0, 6, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSim()
			target := spawnTargetable(s, 1, Vec2{}, CategoryFighter)
			te := s.World.Entry(target)
			HealthC.Get(te).Current = tt.health
			if tt.dying {
				te.AddComponent(DieingC)
			}

			b := &blueprint{}
			tag(b, EffectInstanceC)
			put(b, TargetC, Target{Entity: target, Set: true})
			put(b, RepairC, Repair{Amount: tt.amount})
			b.spawn(s.World)

			ApplyRepairs(s)

			if got := HealthC.Get(te).Current; got != tt.want {
				t.Errorf("health = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestEmitImpactEffects verifies impacts are requested for hits and
// blocks only.
func TestEmitImpactEffects(t *testing.T) {
	s := newTestSim(0.5)
	target := spawnTargetable(s, 2, Vec2{}, CategoryFighter)
	for _, r := range []AttackResult{AttackHit, AttackMiss, AttackBlocked} {
		atk := s.World.Entry(spawnAttackAt(s, target, Vec2{X: 50}, Vec2{}, 1, 1))
		AttackC.Get(atk).Result = r
		atk.AddComponent(ImpactFXC)
		ImpactFXC.SetValue(atk, ImpactFX{Kind: FXSmallExplosion})
	}

	EmitImpactEffects(s)

	if got := s.FX.Len(); got != 2 {
		t.Errorf("FX requests = %d, want 2", got)
	}
}
