package game

import (
	"sync/atomic"
	"time"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// FXRetainTicks is how long an FX request stays in published snapshots,
// so clients polling slower than the tick rate still see it.
const FXRetainTicks = 30

// CombatantSnapshot is an immutable copy of one hull for presentation.
type CombatantSnapshot struct {
	ID          uint64  `json:"id" msgpack:"id"`
	Template    string  `json:"template" msgpack:"template"`
	Team        int     `json:"team" msgpack:"team"`
	HasTeam     bool    `json:"hasTeam" msgpack:"hasTeam"`
	Category    string  `json:"category" msgpack:"category"`
	X           float64 `json:"x" msgpack:"x"`
	Y           float64 `json:"y" msgpack:"y"`
	Heading     float64 `json:"heading" msgpack:"heading"`
	Health      float64 `json:"health" msgpack:"health"`
	MaxHealth   float64 `json:"maxHealth" msgpack:"maxHealth"`
	Shield      float64 `json:"shield" msgpack:"shield"`
	MaxShield   float64 `json:"maxShield" msgpack:"maxShield"`
	Dieing      bool    `json:"dieing" msgpack:"dieing"`
	Dead        bool    `json:"dead" msgpack:"dead"`
	Behavior    string  `json:"behavior,omitempty" msgpack:"behavior,omitempty"`
	Target      uint64  `json:"target,omitempty" msgpack:"target,omitempty"`
	DamageFlash float64 `json:"damageFlash" msgpack:"damageFlash"` // seconds since last hit
}

// ProjectileSnapshot is an immutable in-flight projectile.
type ProjectileSnapshot struct {
	ID       uint64  `json:"id" msgpack:"id"`
	Template string  `json:"template" msgpack:"template"`
	Team     int     `json:"team" msgpack:"team"`
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	Heading  float64 `json:"heading" msgpack:"heading"`
	Homing   bool    `json:"homing" msgpack:"homing"`
}

// AttackSnapshot is one attack resolved during the snapshot's tick.
type AttackSnapshot struct {
	Result     string  `json:"result" msgpack:"result"`
	SX         float64 `json:"sx" msgpack:"sx"`
	SY         float64 `json:"sy" msgpack:"sy"`
	HX         float64 `json:"hx" msgpack:"hx"`
	HY         float64 `json:"hy" msgpack:"hy"`
	Damage     float64 `json:"damage" msgpack:"damage"`
	Target     uint64  `json:"target" msgpack:"target"`
	Instigator uint64  `json:"instigator" msgpack:"instigator"`
}

// FXSnapshot is a presentation request retained for a few ticks.
type FXSnapshot struct {
	Kind     string  `json:"kind" msgpack:"kind"`
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	TX       float64 `json:"tx,omitempty" msgpack:"tx,omitempty"`
	TY       float64 `json:"ty,omitempty" msgpack:"ty,omitempty"`
	Rotation float64 `json:"rotation" msgpack:"rotation"`
	Parent   uint64  `json:"parent,omitempty" msgpack:"parent,omitempty"`
	Tick     uint64  `json:"tick" msgpack:"tick"`
}

// CombatSnapshot is a complete immutable battle state. Once published it
// is never written again, so readers need no lock.
type CombatSnapshot struct {
	Sequence  uint64  `json:"sequence" msgpack:"sequence"`
	Timestamp int64   `json:"timestamp" msgpack:"timestamp"` // Unix milli
	Tick      uint64  `json:"tick" msgpack:"tick"`
	Elapsed   float64 `json:"elapsed" msgpack:"elapsed"`
	Speed     int     `json:"speed" msgpack:"speed"`
	RNGSeed   int64   `json:"rngSeed" msgpack:"rngSeed"`

	Combatants  []CombatantSnapshot  `json:"combatants" msgpack:"combatants"`
	Projectiles []ProjectileSnapshot `json:"projectiles" msgpack:"projectiles"`
	Attacks     []AttackSnapshot     `json:"attacks" msgpack:"attacks"`
	FX          []FXSnapshot         `json:"fx" msgpack:"fx"`

	AliveByTeam map[int]int `json:"aliveByTeam" msgpack:"aliveByTeam"`
	Stats       TickStats   `json:"stats" msgpack:"stats"`
}

// SnapshotLimits caps the variable-length parts of a snapshot.
type SnapshotLimits struct {
	MaxFX          int
	MaxAttacks     int
	MaxProjectiles int
}

var (
	combatantQuery = donburi.NewQuery(filter.And(
		filter.Contains(KindC, GlobalTransformC, HealthC),
		filter.Not(filter.Contains(ProjectileC)),
	))
	flyingQuery = donburi.NewQuery(filter.Contains(ProjectileC, GlobalTransformC))
)

// SnapshotStore publishes snapshots from the tick goroutine to any number
// of readers.
type SnapshotStore struct {
	latest   atomic.Pointer[CombatSnapshot]
	sequence uint64 // atomic

	limits SnapshotLimits
	fx     []FXSnapshot // retained FX, owned by the producer
	drain  []FXRequest
}

// NewSnapshotStore creates a store with an empty snapshot published.
func NewSnapshotStore(limits SnapshotLimits) *SnapshotStore {
	st := &SnapshotStore{
		limits: limits,
		fx:     make([]FXSnapshot, 0, limits.MaxFX),
		drain:  make([]FXRequest, 0, max(limits.MaxFX, 1)),
	}
	st.latest.Store(&CombatSnapshot{AliveByTeam: map[int]int{}})
	return st
}

// Latest returns the most recently published snapshot. Never nil.
func (st *SnapshotStore) Latest() *CombatSnapshot {
	return st.latest.Load()
}

// Produce builds a snapshot of s and publishes it. Producer only: it
// drains the FX queue.
func (st *SnapshotStore) Produce(s *Sim, seed int64) *CombatSnapshot {
	snap := &CombatSnapshot{
		Sequence:    atomic.AddUint64(&st.sequence, 1),
		Timestamp:   time.Now().UnixMilli(),
		Tick:        s.Clock.Tick,
		Elapsed:     s.Clock.Elapsed,
		Speed:       s.Clock.Speed,
		RNGSeed:     seed,
		AliveByTeam: make(map[int]int),
		Stats:       s.Stats,
	}

	combatantQuery.Each(s.World, func(entry *donburi.Entry) {
		c := combatantOf(entry)
		if c.HasTeam && !c.Dieing {
			snap.AliveByTeam[c.Team]++
		}
		snap.Combatants = append(snap.Combatants, c)
	})

	flyingQuery.Each(s.World, func(entry *donburi.Entry) {
		if len(snap.Projectiles) >= st.limits.MaxProjectiles {
			return
		}
		pose := GlobalTransformC.Get(entry)
		p := ProjectileSnapshot{
			ID:       uint64(entry.Entity()),
			Template: kindName(entry),
			X:        pose.Position.X,
			Y:        pose.Position.Y,
			Heading:  pose.Rotation,
			Homing:   entry.HasComponent(HomingC) && entry.HasComponent(SteeringC),
		}
		if entry.HasComponent(TeamC) {
			p.Team = TeamC.Get(entry).ID
		}
		snap.Projectiles = append(snap.Projectiles, p)
	})

	for _, a := range s.Attacks() {
		if len(snap.Attacks) >= st.limits.MaxAttacks {
			break
		}
		snap.Attacks = append(snap.Attacks, AttackSnapshot{
			Result:     a.Result.String(),
			SX:         a.Source.X,
			SY:         a.Source.Y,
			HX:         a.HitPoint.X,
			HY:         a.HitPoint.Y,
			Damage:     a.Damage,
			Target:     uint64(a.Target),
			Instigator: uint64(a.Instigator),
		})
	}

	st.retainFX(s)
	snap.FX = append([]FXSnapshot(nil), st.fx...)

	st.latest.Store(snap)
	return snap
}

// retainFX drops requests older than FXRetainTicks, then appends the
// requests emitted since the last snapshot, keeping the newest MaxFX.
func (st *SnapshotStore) retainFX(s *Sim) {
	kept := st.fx[:0]
	for _, f := range st.fx {
		if s.Clock.Tick-f.Tick < FXRetainTicks {
			kept = append(kept, f)
		}
	}
	st.fx = kept

	for {
		batch := s.FX.Drain(st.drain)
		if len(batch) == 0 {
			break
		}
		for _, req := range batch {
			f := FXSnapshot{
				Kind:     req.Kind.String(),
				X:        req.Position.X,
				Y:        req.Position.Y,
				TX:       req.To.X,
				TY:       req.To.Y,
				Rotation: req.Rotation,
				Tick:     req.Tick,
			}
			if req.HasParent {
				f.Parent = uint64(req.Parent)
			}
			st.fx = append(st.fx, f)
		}
	}
	if over := len(st.fx) - st.limits.MaxFX; over > 0 {
		st.fx = append(st.fx[:0], st.fx[over:]...)
	}
}

func combatantOf(entry *donburi.Entry) CombatantSnapshot {
	pose := GlobalTransformC.Get(entry)
	hp := HealthC.Get(entry)
	c := CombatantSnapshot{
		ID:        uint64(entry.Entity()),
		Template:  kindName(entry),
		X:         pose.Position.X,
		Y:         pose.Position.Y,
		Heading:   pose.Rotation,
		Health:    hp.Current,
		MaxHealth: hp.Max,
	}
	if entry.HasComponent(TeamC) {
		c.Team, c.HasTeam = TeamC.Get(entry).ID, true
	}
	if entry.HasComponent(CategoryC) {
		c.Category = CategoryC.Get(entry).String()
	}
	if entry.HasComponent(ShieldC) {
		sh := ShieldC.Get(entry)
		c.Shield, c.MaxShield = sh.Health, sh.MaxHealth
	}
	if entry.HasComponent(DieingC) {
		d := DieingC.Get(entry)
		c.Dieing, c.Dead = true, d.Dead
	}
	if entry.HasComponent(BehaviorC) {
		c.Behavior = BehaviorC.Get(entry).Mode.String()
	}
	if entry.HasComponent(TargetC) {
		if t, ok := TargetC.Get(entry).Get(); ok {
			c.Target = uint64(t)
		}
	}
	if entry.HasComponent(LastDamageC) {
		c.DamageFlash = LastDamageC.Get(entry).Seconds
	}
	return c
}
