package game

import (
	"encoding/json"
	"time"
)

// EventType enum for combat journal classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // Tick boundary with RNG seed
	EventTypeSpawn
	EventTypeDamage
	EventTypeShieldAbsorb
	EventTypeDieing
	EventTypeDeath
	EventTypeDispose
	EventTypeProjectileLaunch
	EventTypeProjectileImpact
	EventTypeProjectileExpired
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core record of the combat journal
type Event struct {
	Version   uint8           `json:"version"`   // Schema version
	Type      EventType       `json:"type"`      // Event type
	Name      string          `json:"name"`      // Human-readable type
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Monotonic sequence
	TickNum   uint64          `json:"tickNum"`   // Simulation tick this occurred in
	Source    uint64          `json:"source"`    // Root instigator (0 = none), used for rate limiting
	Payload   json.RawMessage `json:"payload"`   // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeSpawn:
		return "spawn"
	case EventTypeDamage:
		return "damage"
	case EventTypeShieldAbsorb:
		return "shield_absorb"
	case EventTypeDieing:
		return "dieing"
	case EventTypeDeath:
		return "death"
	case EventTypeDispose:
		return "dispose"
	case EventTypeProjectileLaunch:
		return "projectile_launch"
	case EventTypeProjectileImpact:
		return "projectile_impact"
	case EventTypeProjectileExpired:
		return "projectile_expired"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// TickPayload contains tick boundary information for replay
type TickPayload struct {
	RNGSeed     int64   `json:"rngSeed"`
	EntityCount int     `json:"entityCount"`
	Delta       float64 `json:"delta"`
}

// SpawnPayload records a hull entering the battle
type SpawnPayload struct {
	Entity   uint64  `json:"entity"`
	Template string  `json:"template"`
	Team     int     `json:"team"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// DamagePayload contains damage event details
type DamagePayload struct {
	Target uint64  `json:"target"`
	Result string  `json:"result"`
	Damage float64 `json:"damage"`
	Health float64 `json:"health"`
}

// ShieldPayload records damage soaked by a shield
type ShieldPayload struct {
	Target   uint64  `json:"target"`
	Absorbed float64 `json:"absorbed"`
	Shield   float64 `json:"shield"`
}

// DeathPayload is shared by the dieing, death and dispose events
type DeathPayload struct {
	Entity uint64  `json:"entity"`
	Kind   string  `json:"kind,omitempty"`
	Team   int     `json:"team,omitempty"`
	Delay  float64 `json:"delay,omitempty"`
}

// ProjectilePayload covers launch, impact and expiry
type ProjectilePayload struct {
	Projectile uint64  `json:"projectile"`
	Template   string  `json:"template"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, source uint64, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Name:      eventType.String(),
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		Source:    source,
		Payload:   EncodePayload(payload),
	}
}
