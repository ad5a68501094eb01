package game

import (
	"sync/atomic"

	"github.com/yohamta/donburi"
)

// FXKind tags a presentation request. The combat core never reads back
// what the presentation layer does with it.
type FXKind uint8

const (
	FXNone FXKind = iota
	FXBlueBeam
	FXGreenBeam
	FXRepairBeam
	FXTinyExplosion
	FXSmallExplosion
	FXFlashExplosion
	FXMediumExplosion
	FXShieldImpact
	FXRocketTrail
)

var fxNames = [...]string{
	FXNone:            "none",
	FXBlueBeam:        "blue_beam",
	FXGreenBeam:       "green_beam",
	FXRepairBeam:      "repair_beam",
	FXTinyExplosion:   "tiny_explosion",
	FXSmallExplosion:  "small_explosion",
	FXFlashExplosion:  "flash_explosion",
	FXMediumExplosion: "medium_explosion",
	FXShieldImpact:    "shield_impact",
	FXRocketTrail:     "rocket_trail",
}

func (k FXKind) String() string {
	if int(k) < len(fxNames) {
		return fxNames[k]
	}
	return "unknown"
}

// ParseFXKind maps a catalog name to its FX kind. Unknown names return FXNone.
func ParseFXKind(name string) FXKind {
	for i, n := range fxNames {
		if n == name {
			return FXKind(i)
		}
	}
	return FXNone
}

// FXRequest is a fire-and-forget presentation request.
// Beams carry their end point in To.
type FXRequest struct {
	Kind      FXKind
	Position  Vec2
	To        Vec2
	Rotation  float64
	Parent    donburi.Entity
	HasParent bool
	Tick      uint64
}

// FXQueue buffers requests between the tick that emits them and the
// snapshot that publishes them. Overflow drops the request.
type FXQueue struct {
	ring    *Ring[FXRequest]
	dropped uint64 // atomic
}

// NewFXQueue creates a queue holding up to capacity requests.
func NewFXQueue(capacity int) *FXQueue {
	return &FXQueue{ring: NewRing[FXRequest](capacity)}
}

// Emit enqueues a request; it never blocks.
func (q *FXQueue) Emit(req FXRequest) {
	if q == nil || req.Kind == FXNone {
		return
	}
	if !q.ring.TryPush(req) {
		atomic.AddUint64(&q.dropped, 1)
	}
}

// Drain moves queued requests into buf and returns them.
func (q *FXQueue) Drain(buf []FXRequest) []FXRequest {
	n := q.ring.DrainTo(buf[:cap(buf)])
	return buf[:n]
}

// Dropped returns how many requests overflowed the queue.
func (q *FXQueue) Dropped() uint64 {
	return atomic.LoadUint64(&q.dropped)
}

// Len returns the number of pending requests.
func (q *FXQueue) Len() int {
	return q.ring.Len()
}
