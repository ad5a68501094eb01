package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"fleet-combat/internal/config"
	"fleet-combat/internal/game"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-ship labels to prevent DoS)
var (
	// Combat engine metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "combat_tick_duration_seconds",
		Help:    "Time spent in one combat tick",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033},
	})

	entityCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "combat_entities",
		Help: "Live entities in the combat world",
	})

	indexedAgents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "combat_indexed_agents",
		Help: "Agents in the target index this tick",
	})

	attacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "combat_attacks_total",
		Help: "Resolved attacks by result",
	}, []string{"result"}) // Bounded: "hit", "miss", "blocked"

	damageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "combat_damage_total",
		Help: "Hit points removed, absorbed or repaired",
	}, []string{"kind"}) // Bounded: "dealt", "absorbed", "repaired"

	deathsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "combat_deaths_total",
		Help: "Entities that entered death throes",
	})

	projectilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "combat_projectiles_total",
		Help: "Projectile lifecycle events",
	}, []string{"event"}) // Bounded: "launched", "impact", "expired"

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is path pattern, not full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// StartDebugServer starts the internal observability server
// CRITICAL: This MUST bind to localhost only to prevent pprof-based DoS
func StartDebugServer(cfg config.ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	// SECURITY: Validate address is localhost
	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		// Only allow external binding if explicitly enabled via env
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	handler := DebugHandler(cfg)

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// DebugHandler builds the pprof, metrics and health mux.
func DebugHandler(cfg config.ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Optional basic auth wrapper
	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick folds one tick report into the metrics. Install it with
// engine.SetOnTick.
func RecordTick(report game.TickReport) {
	tickDuration.Observe(report.Duration.Seconds())
	entityCount.Set(float64(report.Entities))

	st := report.Stats
	indexedAgents.Set(float64(st.IndexedAgents))
	addCount(attacksTotal.WithLabelValues("hit"), st.Hits)
	addCount(attacksTotal.WithLabelValues("miss"), st.Misses)
	addCount(attacksTotal.WithLabelValues("blocked"), st.Blocked)
	addCount(projectilesTotal.WithLabelValues("launched"), st.Launched)
	addCount(projectilesTotal.WithLabelValues("impact"), st.Impacts)
	addCount(projectilesTotal.WithLabelValues("expired"), st.Expired)
	addCount(deathsTotal, st.Deaths)
	damageTotal.WithLabelValues("dealt").Add(st.DamageDealt)
	damageTotal.WithLabelValues("absorbed").Add(st.Absorbed)
	damageTotal.WithLabelValues("repaired").Add(st.Repaired)
}

func addCount(c prometheus.Counter, n int) {
	if n > 0 {
		c.Add(float64(n))
	}
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
