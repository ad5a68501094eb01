package game

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"fleet-combat/internal/config"
	"fleet-combat/internal/game/spatial"
)

var (
	ErrEntityLimit  = errors.New("entity limit reached")
	ErrInvalidSpeed = errors.New("invalid game speed")
	ErrBatchTooBig  = errors.New("spawn batch too large")
)

// TickReport is handed to the OnTick hook after every tick.
type TickReport struct {
	Tick     uint64
	Duration time.Duration
	Entities int
	Removed  int
	Stats    TickStats
}

// EngineStats is the monitoring view of the engine.
type EngineStats struct {
	Tick      uint64            `json:"tick"`
	Elapsed   float64           `json:"elapsed"`
	Speed     int               `json:"speed"`
	Running   bool              `json:"running"`
	Entities  int               `json:"entities"`
	Totals    TickStats         `json:"totals"`
	Grid      spatial.GridStats `json:"grid"`
	Journal   JournalStats      `json:"journal"`
	FXDropped uint64            `json:"fxDropped"`
	AvgTickMs float64           `json:"avgTickMs"`
}

// Engine owns the combat simulation and drives it at a fixed tick rate.
// All world access goes through the engine lock; readers that only need
// presentation state use GetSnapshot, which never blocks the tick.
type Engine struct {
	mu  sync.RWMutex
	sim *Sim

	limits    config.ResourceLimits
	snapshots *SnapshotStore

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	// Deterministic RNG for replay consistency
	rng     *rand.Rand
	rngSeed int64

	totals   TickStats
	tickTime time.Duration // EWMA of tick duration

	// OnTick runs on the tick goroutine after the snapshot is published.
	onTick func(TickReport)
}

// NewEngine creates an engine over an empty world. A nil catalog uses the
// embedded templates.
func NewEngine(cfg config.AppConfig, catalog *Catalog) *Engine {
	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	sim := NewSim(cfg, rng)
	if catalog != nil {
		sim.Catalog = catalog
	}

	tickRate := cfg.Sim.TickRate
	if tickRate <= 0 {
		tickRate = 60
	}

	return &Engine{
		sim:    sim,
		limits: cfg.Limits,
		snapshots: NewSnapshotStore(SnapshotLimits{
			MaxFX:          cfg.Limits.MaxSnapshotFX,
			MaxAttacks:     cfg.Limits.MaxAttacks,
			MaxProjectiles: cfg.Limits.MaxProjectiles,
		}),
		tickRate: tickRate,
		stopChan: make(chan struct{}),
		rng:      rng,
		rngSeed:  seed,
	}
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	ticker := e.ticker
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.Step()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🚀 Combat engine started at %d TPS (seed %d)", e.tickRate, e.rngSeed)
}

// Stop stops the game loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Combat engine stopped")
}

// Step runs exactly one tick and publishes its snapshot. The ticker calls
// it; headless runs and tests call it directly.
func (e *Engine) Step() *CombatSnapshot {
	start := time.Now()

	e.mu.Lock()
	s := e.sim

	// Log tick event with RNG seed for deterministic replay
	s.Journal.Record(EventTypeTick, s.Clock.Tick+1, 0, TickPayload{
		RNGSeed:     e.rngSeed,
		EntityCount: s.World.Len(),
		Delta:       s.Clock.Delta,
	})

	removed := Step(s)
	snap := e.snapshots.Produce(s, e.rngSeed)

	// Advance RNG seed deterministically for next tick
	e.rngSeed = e.rng.Int63()
	e.rng.Seed(e.rngSeed)

	e.totals.Add(s.Stats)
	elapsed := time.Since(start)
	e.tickTime = (e.tickTime*9 + elapsed) / 10

	report := TickReport{
		Tick:     s.Clock.Tick,
		Duration: elapsed,
		Entities: s.World.Len(),
		Removed:  removed,
		Stats:    s.Stats,
	}
	onTick := e.onTick
	e.mu.Unlock()

	if onTick != nil {
		onTick(report)
	}
	return snap
}

// SetOnTick installs the per-tick hook (metrics, logging).
func (e *Engine) SetOnTick(fn func(TickReport)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = fn
}

// SpawnShip places one hull from a catalog template.
func (e *Engine) SpawnShip(order ShipOrder) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spawnLocked(order)
}

// SpawnBatch places up to MaxSpawnBatch hulls. It stops at the first
// failure and returns the handles spawned so far.
func (e *Engine) SpawnBatch(orders []ShipOrder) ([]uint64, error) {
	if len(orders) > e.limits.MaxSpawnBatch {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooBig, len(orders), e.limits.MaxSpawnBatch)
	}
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]uint64, 0, len(orders))
	for _, o := range orders {
		id, err := e.spawnLocked(o)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	if len(ids) > 1 {
		log.Printf("🛸 Spawned %d ships", len(ids))
	}
	return ids, nil
}

func (e *Engine) spawnLocked(order ShipOrder) (uint64, error) {
	// HARD CAP: Prevent DoS via spawn flooding
	if n := e.sim.World.Len(); n >= e.limits.MaxEntities {
		log.Printf("⚠️ Entity limit reached (%d), rejecting %s", e.limits.MaxEntities, order.Template)
		return 0, fmt.Errorf("%w (%d)", ErrEntityLimit, e.limits.MaxEntities)
	}
	hull, err := SpawnShip(e.sim, order)
	if err != nil {
		return 0, err
	}
	return uint64(hull), nil
}

// SetSpeed changes the game speed step: 0 pauses, 2 is real time.
func (e *Engine) SetSpeed(speed int) error {
	if speed < 0 || speed > MaxGameSpeed {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidSpeed, speed, MaxGameSpeed)
	}
	e.mu.Lock()
	e.sim.Clock.SetSpeed(speed)
	e.mu.Unlock()

	log.Printf("⏩ Game speed set to %d", speed)
	return nil
}

// GetSnapshot returns the latest published snapshot (lock-free).
func (e *Engine) GetSnapshot() *CombatSnapshot {
	return e.snapshots.Latest()
}

// Stats returns engine metrics.
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := e.sim
	return EngineStats{
		Tick:      s.Clock.Tick,
		Elapsed:   s.Clock.Elapsed,
		Speed:     s.Clock.Speed,
		Running:   e.running,
		Entities:  s.World.Len(),
		Totals:    e.totals,
		Grid:      s.Index.Stats(),
		Journal:   s.Journal.Stats(),
		FXDropped: s.FX.Dropped(),
		AvgTickMs: float64(e.tickTime) / float64(time.Millisecond),
	}
}

// Leaderboard returns the top n ships by score.
func (e *Engine) Leaderboard(n int) []LedgerEntry {
	return e.sim.Ledger.Top(n)
}

// Catalog returns the template catalog. It is immutable.
func (e *Engine) Catalog() *Catalog {
	return e.sim.Catalog
}

// StartJournal starts the combat journal
func (e *Engine) StartJournal(filePath string) error {
	return e.sim.Journal.Start(filePath)
}

// StopJournal stops the combat journal
func (e *Engine) StopJournal() {
	e.sim.Journal.Stop()
}

// WithSim runs fn under the engine lock. Tests and tooling use it to
// inspect or stage the world between ticks.
func (e *Engine) WithSim(fn func(s *Sim)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.sim)
}
