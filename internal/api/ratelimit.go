package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fleet-combat/internal/config"

	"golang.org/x/time/rate"
)

// RouteClass groups API routes that share one per-client request budget.
type RouteClass string

const (
	// ClassRead covers cheap JSON reads of the published snapshot.
	ClassRead RouteClass = "read"
	// ClassRender covers the tactical map, which rasterizes a full frame.
	ClassRender RouteClass = "render"
	// ClassOrder covers requests that take the engine lock (spawn, speed).
	ClassOrder RouteClass = "order"
)

var routeClasses = []RouteClass{ClassRead, ClassRender, ClassOrder}

// RateLimitConfig is one class's token bucket per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// RateLimits holds the budget of every route class.
type RateLimits struct {
	Read   RateLimitConfig
	Render RateLimitConfig
	Order  RateLimitConfig

	// Buckets unused for IdleTimeout are dropped by the sweeper.
	IdleTimeout time.Duration
}

// DefaultRateLimits lets a dashboard poll freely while keeping the
// lock-taking routes far below the tick rate.
var DefaultRateLimits = RateLimits{
	Read:        RateLimitConfig{RequestsPerSecond: 10, Burst: 20},
	Render:      RateLimitConfig{RequestsPerSecond: 2, Burst: 4},
	Order:       RateLimitConfig{RequestsPerSecond: 1, Burst: 5},
	IdleTimeout: 10 * time.Minute,
}

// RateLimitsFromConfig maps server settings onto the class budgets. Unset
// values keep their defaults.
func RateLimitsFromConfig(cfg config.ServerConfig) RateLimits {
	limits := DefaultRateLimits
	override := func(dst *RateLimitConfig, perSec float64, burst int) {
		if perSec > 0 {
			dst.RequestsPerSecond = perSec
		}
		if burst > 0 {
			dst.Burst = burst
		}
	}
	override(&limits.Read, cfg.ReadRatePerSec, cfg.ReadBurst)
	override(&limits.Render, cfg.RenderRatePerSec, cfg.RenderBurst)
	override(&limits.Order, cfg.OrderRatePerSec, cfg.OrderBurst)
	return limits
}

func (l RateLimits) class(c RouteClass) RateLimitConfig {
	switch c {
	case ClassRender:
		return l.Render
	case ClassOrder:
		return l.Order
	default:
		return l.Read
	}
}

type bucketKey struct {
	class RouteClass
	ip    string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nano
}

type classCounters struct {
	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// ClientLimiter keeps a token bucket per (route class, client IP), so a
// client polling the state never eats into its spawn budget and vice versa.
type ClientLimiter struct {
	limits   RateLimits
	buckets  sync.Map // bucketKey -> *bucket
	counters map[RouteClass]*classCounters

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewClientLimiter creates the limiter and starts its idle-bucket sweeper.
func NewClientLimiter(limits RateLimits) *ClientLimiter {
	if limits.IdleTimeout <= 0 {
		limits.IdleTimeout = DefaultRateLimits.IdleTimeout
	}
	cl := &ClientLimiter{
		limits:   limits,
		counters: make(map[RouteClass]*classCounters, len(routeClasses)),
		stopChan: make(chan struct{}),
	}
	for _, c := range routeClasses {
		cl.counters[c] = &classCounters{}
	}
	go cl.sweepLoop()
	return cl
}

// Stop ends the sweeper.
func (cl *ClientLimiter) Stop() {
	cl.stopOnce.Do(func() { close(cl.stopChan) })
}

// Allow spends one token from the client's bucket for class.
func (cl *ClientLimiter) Allow(class RouteClass, ip string) bool {
	key := bucketKey{class: class, ip: ip}
	v, ok := cl.buckets.Load(key)
	if !ok {
		budget := cl.limits.class(class)
		v, _ = cl.buckets.LoadOrStore(key, &bucket{
			limiter: rate.NewLimiter(rate.Limit(budget.RequestsPerSecond), budget.Burst),
		})
	}
	b := v.(*bucket)
	b.lastSeen.Store(time.Now().UnixNano())

	counters := cl.counters[class]
	if counters == nil {
		counters = cl.counters[ClassRead]
	}
	if b.limiter.Allow() {
		counters.allowed.Add(1)
		return true
	}
	counters.rejected.Add(1)
	return false
}

// Limit returns chi middleware charging every request to class.
func (cl *ClientLimiter) Limit(class RouteClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.Allow(class, GetClientIP(r)) {
				RecordConnectionRejected("rate_limit_" + string(class))
				w.Header().Set("Retry-After", "1")
				writeError(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Stats returns allowed/rejected counts keyed "<class>_allowed" and
// "<class>_rejected".
func (cl *ClientLimiter) Stats() map[string]uint64 {
	out := make(map[string]uint64, 2*len(cl.counters))
	for c, n := range cl.counters {
		out[string(c)+"_allowed"] = n.allowed.Load()
		out[string(c)+"_rejected"] = n.rejected.Load()
	}
	return out
}

// Buckets returns the number of live client buckets.
func (cl *ClientLimiter) Buckets() int {
	n := 0
	cl.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (cl *ClientLimiter) sweepLoop() {
	ticker := time.NewTicker(cl.limits.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-cl.stopChan:
			return
		case now := <-ticker.C:
			cl.sweep(now.Add(-cl.limits.IdleTimeout))
		}
	}
}

// sweep drops buckets last used before cutoff. A dropped client starts
// again with a full burst, which is what an idle client would have anyway.
func (cl *ClientLimiter) sweep(cutoff time.Time) {
	limit := cutoff.UnixNano()
	cl.buckets.Range(func(key, value any) bool {
		if value.(*bucket).lastSeen.Load() < limit {
			cl.buckets.Delete(key)
		}
		return true
	})
}

// GetClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's remote host. Proxy headers are trusted as-is, so the
// service belongs behind a proxy that overwrites them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ConnectionCap bounds concurrent websocket viewers per client IP.
type ConnectionCap struct {
	mu       sync.Mutex
	open     map[string]int
	perIP    int
	rejected atomic.Uint64
}

// NewConnectionCap creates a cap of perIP connections per address.
func NewConnectionCap(perIP int) *ConnectionCap {
	return &ConnectionCap{open: make(map[string]int), perIP: perIP}
}

// Acquire reserves a slot for ip, reporting false when it is full.
func (c *ConnectionCap) Acquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open[ip] >= c.perIP {
		c.rejected.Add(1)
		return false
	}
	c.open[ip]++
	return true
}

// Release frees a slot reserved by Acquire.
func (c *ConnectionCap) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open[ip] <= 1 {
		delete(c.open, ip)
		return
	}
	c.open[ip]--
}

// Open returns the connections currently held by ip.
func (c *ConnectionCap) Open(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open[ip]
}

// Rejected returns how many connections the cap has turned away.
func (c *ConnectionCap) Rejected() uint64 {
	return c.rejected.Load()
}

var (
	originsMu      sync.RWMutex
	allowedOrigins = config.DefaultServer().AllowedOrigins
)

// SetAllowedOrigins replaces the origin allow-list checked by the
// websocket upgrader.
func SetAllowedOrigins(origins []string) {
	originsMu.Lock()
	defer originsMu.Unlock()
	allowedOrigins = append([]string(nil), origins...)
}

// IsAllowedOrigin accepts local development hosts on any port and the
// configured origins verbatim.
func IsAllowedOrigin(origin string) bool {
	switch {
	case origin == "":
		return false
	case strings.HasPrefix(origin, "http://localhost"), strings.HasPrefix(origin, "http://127.0.0.1"):
		return true
	}

	originsMu.RLock()
	defer originsMu.RUnlock()
	for _, allowed := range allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
