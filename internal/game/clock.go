package game

// FixedTimeStep is the wall-clock length of one simulation tick at speed 2.
const FixedTimeStep = 1.0 / 60.0

// MaxGameSpeed is the highest speed step (1.5x real time).
const MaxGameSpeed = 3

// SimClock is the process-wide simulation time. The engine advances it once
// per tick before any stage runs; stages only read it.
type SimClock struct {
	Tick    uint64
	Speed   int     // 0 = paused, 2 = real time
	Delta   float64 // seconds of game time this tick
	Elapsed float64 // game seconds since start
}

// NewSimClock creates a clock at the given speed step.
func NewSimClock(speed int) SimClock {
	c := SimClock{}
	c.SetSpeed(speed)
	return c
}

// SetSpeed clamps speed to [0, MaxGameSpeed] and recomputes the delta.
func (c *SimClock) SetSpeed(speed int) {
	if speed < 0 {
		speed = 0
	}
	if speed > MaxGameSpeed {
		speed = MaxGameSpeed
	}
	c.Speed = speed
	c.Delta = FixedTimeStep * float64(speed) / 2
}

// Advance moves the clock forward by one tick.
func (c *SimClock) Advance() {
	c.Tick++
	c.Elapsed += c.Delta
}
