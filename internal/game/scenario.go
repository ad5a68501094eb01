package game

import (
	"log"
	"math"

	"fleet-combat/internal/config"
)

// Opening battle layout.
const (
	scenarioSeparation = 900.0 // distance between the two fleets
	scenarioSpacing    = 40.0  // distance between ships in a formation row
	scenarioRowLength  = 10
)

// ScenarioOrders lays out the opening battle: team 1 (fighters and
// frigates) on the left facing east, team 2 (drones) on the right facing
// west. Frigates sit behind their fighter screen.
func ScenarioOrders(cfg config.ScenarioConfig) []ShipOrder {
	var orders []ShipOrder
	left := -scenarioSeparation / 2
	right := scenarioSeparation / 2

	orders = append(orders, formation("fighter", 1, cfg.Fighters, left, 0)...)
	orders = append(orders, formation("rocket_frigate", 1, cfg.Frigates, left-150, 0)...)
	orders = append(orders, formation("fighter_drone", 2, cfg.Drones, right, math.Pi)...)
	orders = append(orders, formation("repair_drone", 2, cfg.RepairDrones, right+150, math.Pi)...)
	return orders
}

// formation places n ships in rows centred on (x, 0). Rows grow away from
// the enemy.
func formation(template string, team, n int, x, heading float64) []ShipOrder {
	orders := make([]ShipOrder, 0, n)
	back := -1.0
	if heading != 0 {
		back = 1.0
	}
	for i := 0; i < n; i++ {
		row, col := i/scenarioRowLength, i%scenarioRowLength
		width := min(n-row*scenarioRowLength, scenarioRowLength)
		orders = append(orders, ShipOrder{
			Template: template,
			Team:     team,
			X:        x + back*float64(row)*scenarioSpacing,
			Y:        (float64(col) - float64(width-1)/2) * scenarioSpacing,
			Heading:  heading,
		})
	}
	return orders
}

// SeedScenario spawns the opening battle. Templates missing from the
// catalog are skipped with a warning so a trimmed catalog still starts.
func SeedScenario(e *Engine, cfg config.ScenarioConfig) int {
	spawned := 0
	for _, o := range ScenarioOrders(cfg) {
		if _, err := e.SpawnShip(o); err != nil {
			log.Printf("⚠️ Scenario spawn %s failed: %v", o.Template, err)
			continue
		}
		spawned++
	}
	log.Printf("⚔️ Opening battle seeded with %d ships", spawned)
	return spawned
}
