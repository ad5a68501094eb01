package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"fleet-combat/internal/game"
	"fleet-combat/internal/render"
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetSnapshot())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snapshot := h.engine.GetSnapshot()
	writeJSON(w, map[string]interface{}{
		"tick":        snapshot.Tick,
		"aliveByTeam": snapshot.AliveByTeam,
		"combatants":  len(snapshot.Combatants),
		"projectiles": len(snapshot.Projectiles),
		"engine":      h.engine.Stats(),
	})
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	writeJSON(w, h.engine.Leaderboard(limit))
}

func (h *routerHandlers) handleGetTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Catalog())
}

func (h *routerHandlers) handleTacticalMap(w http.ResponseWriter, r *http.Request) {
	size := render.DefaultSize
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && v > 0 {
		size = v
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.WritePNG(w, h.engine.GetSnapshot(), size); err != nil {
		log.Printf("❌ Tactical map render failed: %v", err)
	}
}

// spawnRequest places Count copies of one template, or the ships listed in
// Ships when present.
type spawnRequest struct {
	Template string           `json:"template"`
	Team     int              `json:"team"`
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
	Heading  float64          `json:"heading"`
	Count    int              `json:"count"`
	Ships    []game.ShipOrder `json:"ships"`
}

func (req spawnRequest) orders() []game.ShipOrder {
	if len(req.Ships) > 0 {
		return req.Ships
	}
	count := max(req.Count, 1)
	orders := make([]game.ShipOrder, count)
	for i := range orders {
		orders[i] = game.ShipOrder{
			Template: req.Template,
			Team:     req.Team,
			X:        req.X,
			Y:        req.Y + float64(i)*30, // column so hulls don't overlap
			Heading:  req.Heading,
		}
	}
	return orders
}

func (h *routerHandlers) handleSpawn(w http.ResponseWriter, r *http.Request) {
	var req spawnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Count > h.maxSpawnBatch || len(req.Ships) > h.maxSpawnBatch {
		writeError(w, "Batch too large", http.StatusBadRequest)
		return
	}
	orders := req.orders()
	for _, o := range orders {
		if o.Template == "" {
			writeError(w, "Template is required", http.StatusBadRequest)
			return
		}
		if err := o.Validate(); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ids, err := h.engine.SpawnBatch(orders)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrUnknownTemplate):
			writeError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, game.ErrEntityLimit):
			writeError(w, "Entity limit reached", http.StatusServiceUnavailable)
		case errors.Is(err, game.ErrBatchTooBig), errors.Is(err, game.ErrInvalidOrder):
			writeError(w, err.Error(), http.StatusBadRequest)
		default:
			writeError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"count":   len(ids),
		"ids":     ids,
	})
}

func (h *routerHandlers) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed *int `json:"speed"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || req.Speed == nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.engine.SetSpeed(*req.Speed); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "speed": *req.Speed})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
