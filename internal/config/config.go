// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for simulation, combat and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// SIMULATION CLOCK
// =============================================================================

// SimConfig holds fixed-tick simulation settings.
type SimConfig struct {
	TickRate int   // Fixed ticks per second
	Speed    int   // Game speed multiplier step (0 = paused, 2 = real time, 3 = 1.5x)
	Seed     int64 // RNG seed; 0 picks one from the wall clock
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate: 60,
		Speed:    2,
	}
}

// SimFromEnv returns simulation configuration with environment variable overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if tr := getEnvInt("SIM_TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if s := getEnvInt("SIM_SPEED", -1); s >= 0 && s <= 3 {
		cfg.Speed = s
	}
	if seed := getEnvInt("SIM_SEED", 0); seed != 0 {
		cfg.Seed = int64(seed)
	}

	return cfg
}

// =============================================================================
// SPATIAL CONFIGURATION
// =============================================================================

// SpatialConfig holds spatial indexing settings.
type SpatialConfig struct {
	CellSize float64 // Target index cell size in world units
}

// DefaultSpatial returns the default spatial configuration.
func DefaultSpatial() SpatialConfig {
	return SpatialConfig{
		CellSize: 50,
	}
}

// SpatialFromEnv returns spatial configuration with environment variable overrides.
func SpatialFromEnv() SpatialConfig {
	cfg := DefaultSpatial()

	if cs := getEnvFloat("SPATIAL_CELL_SIZE", 0); cs > 0 {
		cfg.CellSize = cs
	}

	return cfg
}

// =============================================================================
// COMBAT TUNING
// =============================================================================

// CombatConfig holds the tunable constants of the combat pipeline.
type CombatConfig struct {
	TurnEvasionFactor  float64 // Divisor for the turn-rate half of the evasion bonus
	SpeedEvasionFactor float64 // Divisor for the linear-speed half of the evasion bonus
	InstantDeathChance float64 // Chance that death throes are skipped
	DeathThroesMin     float64 // Seconds
	DeathThroesMax     float64 // Seconds (exclusive)
	PreferenceFactor   float64 // Score divisor for preferred, multiplier for discouraged
	ProximityRadius    float64 // Pursuers peel off inside this distance
	EngagementRadius   float64 // Peeling agents re-engage beyond this distance
	HitEffectJitter    float64 // Max offset of hit explosions from the hit point
}

// DefaultCombat returns the default combat tuning.
func DefaultCombat() CombatConfig {
	return CombatConfig{
		TurnEvasionFactor:  2.0,
		SpeedEvasionFactor: 200.0,
		InstantDeathChance: 0.3,
		DeathThroesMin:     1.0,
		DeathThroesMax:     4.0,
		PreferenceFactor:   5.0,
		ProximityRadius:    64,
		EngagementRadius:   128,
		HitEffectJitter:    6,
	}
}

// CombatFromEnv returns combat tuning with environment variable overrides.
func CombatFromEnv() CombatConfig {
	cfg := DefaultCombat()

	if v := getEnvFloat("COMBAT_INSTANT_DEATH_CHANCE", -1); v >= 0 && v <= 1 {
		cfg.InstantDeathChance = v
	}
	if v := getEnvFloat("COMBAT_PREFERENCE_FACTOR", 0); v > 0 {
		cfg.PreferenceFactor = v
	}
	if v := getEnvFloat("COMBAT_SPEED_EVASION_FACTOR", 0); v > 0 {
		cfg.SpeedEvasionFactor = v
	}

	return cfg
}

// =============================================================================
// SIMULATION RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxEntities    int // Hard cap on live entities (spawn requests beyond it are rejected)
	MaxSpawnBatch  int // Maximum ships per spawn request
	MaxFX          int // FX requests retained per tick (ring capacity)
	MaxSnapshotFX  int // FX requests copied into a snapshot
	MaxAttacks     int // Attack results copied into a snapshot
	MaxProjectiles int // Projectiles copied into a snapshot
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxEntities:    5000,
		MaxSpawnBatch:  50,
		MaxFX:          1024,
		MaxSnapshotFX:  256,
		MaxAttacks:     256,
		MaxProjectiles: 512,
	}
}

// LimitsFromEnv returns resource limits with environment variable overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if v := getEnvInt("MAX_ENTITIES", 0); v > 0 {
		cfg.MaxEntities = v
	}
	if v := getEnvInt("MAX_SPAWN_BATCH", 0); v > 0 {
		cfg.MaxSpawnBatch = v
	}

	return cfg
}

// =============================================================================
// COMBAT JOURNAL
// =============================================================================

// JournalConfig holds combat journal settings.
type JournalConfig struct {
	Enabled            bool
	Path               string
	BufferSize         int
	MaxEventsPerSecond int // Global rate limit
	MaxPerInstigator   int // Per root instigator rate limit (events/sec)
}

// DefaultJournal returns the default journal configuration.
func DefaultJournal() JournalConfig {
	return JournalConfig{
		Enabled:            false,
		Path:               "combat_journal.ndjson",
		BufferSize:         10000,
		MaxEventsPerSecond: 5000,
		MaxPerInstigator:   50,
	}
}

// JournalFromEnv returns journal configuration with environment variable overrides.
func JournalFromEnv() JournalConfig {
	cfg := DefaultJournal()

	cfg.Enabled = getEnvBool("JOURNAL_ENABLED", cfg.Enabled)
	cfg.Path = getEnvString("JOURNAL_PATH", cfg.Path)
	if v := getEnvInt("JOURNAL_MAX_EVENTS_PER_SEC", 0); v > 0 {
		cfg.MaxEventsPerSecond = v
	}
	if v := getEnvInt("JOURNAL_MAX_PER_INSTIGATOR", 0); v > 0 {
		cfg.MaxPerInstigator = v
	}

	return cfg
}

// =============================================================================
// SCENARIO
// =============================================================================

// ScenarioConfig describes the opening battle spawned at startup.
type ScenarioConfig struct {
	Enabled       bool
	Fighters      int    // Team 1 fighters
	Frigates      int    // Team 1 rocket frigates
	Drones        int    // Team 2 fighter drones
	RepairDrones  int    // Team 2 repair drones
	TemplatesPath string // Optional YAML catalog overriding the embedded one
}

// DefaultScenario returns the default opening battle.
func DefaultScenario() ScenarioConfig {
	return ScenarioConfig{
		Enabled:      true,
		Fighters:     20,
		Frigates:     2,
		Drones:       60,
		RepairDrones: 4,
	}
}

// ScenarioFromEnv returns scenario configuration with environment variable overrides.
func ScenarioFromEnv() ScenarioConfig {
	cfg := DefaultScenario()

	cfg.Enabled = getEnvBool("SCENARIO_ENABLED", cfg.Enabled)
	if v := getEnvInt("SCENARIO_FIGHTERS", -1); v >= 0 {
		cfg.Fighters = v
	}
	if v := getEnvInt("SCENARIO_FRIGATES", -1); v >= 0 {
		cfg.Frigates = v
	}
	if v := getEnvInt("SCENARIO_DRONES", -1); v >= 0 {
		cfg.Drones = v
	}
	if v := getEnvInt("SCENARIO_REPAIR_DRONES", -1); v >= 0 {
		cfg.RepairDrones = v
	}
	cfg.TemplatesPath = getEnvString("FLEET_TEMPLATES", "")

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
	MaxWSPerIP     int
	BroadcastHz    int // Websocket snapshot broadcast rate

	// Per-IP request budgets per route class. Orders take the engine lock
	// and get the strictest budget.
	ReadRatePerSec   float64
	ReadBurst        int
	RenderRatePerSec float64
	RenderBurst      int
	OrderRatePerSec  float64
	OrderBurst       int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		MaxWSPerIP:     5,
		BroadcastHz:    10,

		ReadRatePerSec:   10,
		ReadBurst:        20,
		RenderRatePerSec: 2,
		RenderBurst:      4,
		OrderRatePerSec:  1,
		OrderBurst:       5,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := getEnvString("ALLOWED_ORIGINS", ""); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}
	if v := getEnvFloat("READ_RATE_PER_SEC", 0); v > 0 {
		cfg.ReadRatePerSec = v
	}
	if v := getEnvInt("READ_BURST", 0); v > 0 {
		cfg.ReadBurst = v
	}
	if v := getEnvFloat("RENDER_RATE_PER_SEC", 0); v > 0 {
		cfg.RenderRatePerSec = v
	}
	if v := getEnvInt("RENDER_BURST", 0); v > 0 {
		cfg.RenderBurst = v
	}
	if v := getEnvFloat("ORDER_RATE_PER_SEC", 0); v > 0 {
		cfg.OrderRatePerSec = v
	}
	if v := getEnvInt("ORDER_BURST", 0); v > 0 {
		cfg.OrderBurst = v
	}
	if v := getEnvInt("MAX_WS_PER_IP", 0); v > 0 {
		cfg.MaxWSPerIP = v
	}
	if v := getEnvInt("BROADCAST_HZ", 0); v > 0 {
		cfg.BroadcastHz = v
	}

	return cfg
}

// =============================================================================
// OBSERVABILITY
// =============================================================================

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST be "127.0.0.1:6060" in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservability returns safe defaults.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - NEVER expose externally
	}
}

// ObservabilityFromEnv returns observability configuration with environment variable overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	cfg.Enabled = getEnvBool("DEBUG_SERVER_ENABLED", cfg.Enabled)
	cfg.ListenAddr = getEnvString("DEBUG_SERVER_ADDR", cfg.ListenAddr)
	cfg.BasicAuthUser = getEnvString("DEBUG_USER", "")
	cfg.BasicAuthPass = getEnvString("DEBUG_PASS", "")

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim           SimConfig
	Spatial       SpatialConfig
	Combat        CombatConfig
	Limits        ResourceLimits
	Journal       JournalConfig
	Scenario      ScenarioConfig
	Server        ServerConfig
	Observability ObservabilityConfig
}

// Default returns the complete configuration without environment overrides.
func Default() AppConfig {
	return AppConfig{
		Sim:           DefaultSim(),
		Spatial:       DefaultSpatial(),
		Combat:        DefaultCombat(),
		Limits:        DefaultLimits(),
		Journal:       DefaultJournal(),
		Scenario:      DefaultScenario(),
		Server:        DefaultServer(),
		Observability: DefaultObservability(),
	}
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:           SimFromEnv(),
		Spatial:       SpatialFromEnv(),
		Combat:        CombatFromEnv(),
		Limits:        LimitsFromEnv(),
		Journal:       JournalFromEnv(),
		Scenario:      ScenarioFromEnv(),
		Server:        ServerFromEnv(),
		Observability: ObservabilityFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
