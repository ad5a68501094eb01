package game

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/component"
	"github.com/yohamta/donburi/filter"

	"fleet-combat/internal/config"
	"fleet-combat/internal/game/spatial"
)

// Rand is the random source stages draw from. *rand.Rand satisfies it;
// tests substitute fixed sequences.
type Rand interface {
	Float64() float64
}

// AttackRecord is the presentation-facing result of one resolved attack.
type AttackRecord struct {
	Result     AttackResult
	Source     Vec2
	HitPoint   Vec2
	Damage     float64
	Target     donburi.Entity
	Instigator donburi.Entity
}

// TickStats counts what happened during one tick.
type TickStats struct {
	Fired         int     `json:"fired" msgpack:"fired"`
	Effects       int     `json:"effects" msgpack:"effects"`
	Hits          int     `json:"hits" msgpack:"hits"`
	Misses        int     `json:"misses" msgpack:"misses"`
	Blocked       int     `json:"blocked" msgpack:"blocked"`
	DamageDealt   float64 `json:"damageDealt" msgpack:"damageDealt"`
	Absorbed      float64 `json:"absorbed" msgpack:"absorbed"`
	Repaired      float64 `json:"repaired" msgpack:"repaired"`
	Deaths        int     `json:"deaths" msgpack:"deaths"`
	Disposed      int     `json:"disposed" msgpack:"disposed"`
	Launched      int     `json:"launched" msgpack:"launched"`
	Impacts       int     `json:"impacts" msgpack:"impacts"`
	Expired       int     `json:"expired" msgpack:"expired"`
	IndexedAgents int     `json:"indexedAgents" msgpack:"indexedAgents"`
}

// Add accumulates o into t.
func (t *TickStats) Add(o TickStats) {
	t.Fired += o.Fired
	t.Effects += o.Effects
	t.Hits += o.Hits
	t.Misses += o.Misses
	t.Blocked += o.Blocked
	t.DamageDealt += o.DamageDealt
	t.Absorbed += o.Absorbed
	t.Repaired += o.Repaired
	t.Deaths += o.Deaths
	t.Disposed += o.Disposed
	t.Launched += o.Launched
	t.Impacts += o.Impacts
	t.Expired += o.Expired
	t.IndexedAgents = o.IndexedAgents
}

// Sim is what every pipeline stage operates on: the ECS world, the clock
// (read-only for stages), tuning, randomness and the side channels.
type Sim struct {
	World   donburi.World
	Clock   SimClock
	Tuning  config.CombatConfig
	Rand    Rand
	Index   *spatial.TargetIndex[targetCandidate]
	FX      *FXQueue
	Journal *Journal
	Ledger  *Ledger
	Catalog *Catalog

	Stats TickStats

	despawn    map[donburi.Entity]struct{}
	attacks    []AttackRecord
	maxAttacks int
}

// NewSim creates a simulation over an empty world.
func NewSim(cfg config.AppConfig, rng Rand) *Sim {
	return &Sim{
		World:      donburi.NewWorld(),
		Clock:      NewSimClock(cfg.Sim.Speed),
		Tuning:     cfg.Combat,
		Rand:       rng,
		Index:      spatial.NewTargetIndex[targetCandidate](cfg.Spatial.CellSize),
		FX:         NewFXQueue(cfg.Limits.MaxFX),
		Journal:    NewJournal(cfg.Journal),
		Ledger:     NewLedger(),
		Catalog:    DefaultCatalog(),
		despawn:    make(map[donburi.Entity]struct{}),
		attacks:    make([]AttackRecord, 0, cfg.Limits.MaxAttacks),
		maxAttacks: cfg.Limits.MaxAttacks,
	}
}

// beginTick resets per-tick accumulators.
func (s *Sim) beginTick() {
	s.Stats = TickStats{}
	s.attacks = s.attacks[:0]
}

func (s *Sim) recordAttack(rec AttackRecord) {
	if len(s.attacks) < s.maxAttacks {
		s.attacks = append(s.attacks, rec)
	}
}

// Attacks returns the attacks resolved during the current tick.
func (s *Sim) Attacks() []AttackRecord {
	return s.attacks
}

// =============================================================================
// HANDLE RESOLUTION
// =============================================================================

// Entry resolves a handle, reporting false for dangling handles.
func (s *Sim) Entry(e donburi.Entity) (*donburi.Entry, bool) {
	if !s.World.Valid(e) {
		return nil, false
	}
	return s.World.Entry(e), true
}

// PositionOf returns the world position of e when it resolves.
func (s *Sim) PositionOf(e donburi.Entity) (Vec2, bool) {
	entry, ok := s.Entry(e)
	if !ok || !entry.HasComponent(GlobalTransformC) {
		return Vec2{}, false
	}
	return GlobalTransformC.Get(entry).Position, true
}

// TargetPosition resolves the target held by entry to a position.
func (s *Sim) TargetPosition(entry *donburi.Entry) (donburi.Entity, Vec2, bool) {
	if !entry.HasComponent(TargetC) {
		return 0, Vec2{}, false
	}
	target, ok := TargetC.Get(entry).Get()
	if !ok {
		return 0, Vec2{}, false
	}
	pos, ok := s.PositionOf(target)
	return target, pos, ok
}

// rootOf returns the root instigator credited for actions of entry.
func rootOf(entry *donburi.Entry) donburi.Entity {
	if entry.HasComponent(InstigatorC) {
		return InstigatorC.Get(entry).Root
	}
	return entry.Entity()
}

// collect returns the entities matching q. Stages that add or remove
// components or entities iterate the returned slice instead of the query,
// so storage never changes under an active iteration.
func collect(w donburi.World, q *donburi.Query) []donburi.Entity {
	var out []donburi.Entity
	q.Each(w, func(e *donburi.Entry) {
		out = append(out, e.Entity())
	})
	sortEntities(out)
	return out
}

// =============================================================================
// DEFERRED STRUCTURAL CHANGES
// =============================================================================

// Despawn schedules e (and its children) for removal at cleanup.
func (s *Sim) Despawn(e donburi.Entity) {
	s.despawn[e] = struct{}{}
}

// PendingDespawn reports whether e is scheduled for removal.
func (s *Sim) PendingDespawn(e donburi.Entity) bool {
	_, ok := s.despawn[e]
	return ok
}

var childQuery = donburi.NewQuery(filter.Contains(ParentC))

// flushDespawns removes every scheduled entity and, recursively, its
// children. Returns the number of entities removed.
func (s *Sim) flushDespawns() int {
	if len(s.despawn) == 0 {
		return 0
	}

	children := make(map[donburi.Entity][]donburi.Entity)
	childQuery.Each(s.World, func(e *donburi.Entry) {
		p := ParentC.Get(e).Entity
		children[p] = append(children[p], e.Entity())
	})

	roots := make([]donburi.Entity, 0, len(s.despawn))
	for e := range s.despawn {
		roots = append(roots, e)
	}
	sortEntities(roots)

	removed := 0
	var remove func(e donburi.Entity)
	remove = func(e donburi.Entity) {
		if !s.World.Valid(e) {
			return
		}
		for _, c := range children[e] {
			remove(c)
		}
		s.World.Remove(e)
		removed++
	}
	for _, e := range roots {
		remove(e)
	}

	clear(s.despawn)
	return removed
}

// =============================================================================
// ENTITY CONSTRUCTION
// =============================================================================

// blueprint collects components for a single Create call so an entity
// enters its final archetype in one step.
type blueprint struct {
	types []component.IComponentType
	init  []func(*donburi.Entry)
}

func put[T any](b *blueprint, ct *donburi.ComponentType[T], v T) {
	b.types = append(b.types, ct)
	b.init = append(b.init, func(e *donburi.Entry) { ct.SetValue(e, v) })
}

func tag(b *blueprint, ct *donburi.ComponentType[struct{}]) {
	b.types = append(b.types, ct)
}

func (b *blueprint) spawn(w donburi.World) *donburi.Entry {
	entry := w.Entry(w.Create(b.types...))
	for _, f := range b.init {
		f(entry)
	}
	return entry
}
