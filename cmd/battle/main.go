// Command battle runs the opening battle headless, as fast as the CPU
// allows, and prints the result.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"fleet-combat/internal/config"
	"fleet-combat/internal/game"
	"fleet-combat/internal/render"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional for headless runs
	_ = godotenv.Load(".env")
	cfg := config.Load()

	var (
		seconds   = flag.Float64("seconds", 120, "game seconds to simulate")
		seed      = flag.Int64("seed", 1, "RNG seed (0 = wall clock)")
		templates = flag.String("templates", cfg.Scenario.TemplatesPath, "YAML template catalog (empty = embedded)")
		journal   = flag.String("journal", "", "write the combat journal to this NDJSON file")
		mapPath   = flag.String("map", "", "write the final tactical map to this PNG file")
		asJSON    = flag.Bool("json", false, "print the result as JSON")
	)
	flag.IntVar(&cfg.Scenario.Fighters, "fighters", cfg.Scenario.Fighters, "team 1 fighters")
	flag.IntVar(&cfg.Scenario.Frigates, "frigates", cfg.Scenario.Frigates, "team 1 rocket frigates")
	flag.IntVar(&cfg.Scenario.Drones, "drones", cfg.Scenario.Drones, "team 2 fighter drones")
	flag.IntVar(&cfg.Scenario.RepairDrones, "repair-drones", cfg.Scenario.RepairDrones, "team 2 repair drones")
	flag.Parse()

	cfg.Sim.Seed = *seed
	cfg.Journal.MaxEventsPerSecond = 1 << 20 // headless runs far faster than real time
	cfg.Journal.MaxPerInstigator = 1 << 16

	catalog, err := game.LoadCatalog(*templates)
	if err != nil {
		log.Fatalf("❌ Failed to load templates: %v", err)
	}

	engine := game.NewEngine(cfg, catalog)
	if *journal != "" {
		if err := engine.StartJournal(*journal); err != nil {
			log.Fatalf("❌ Journal: %v", err)
		}
		defer engine.StopJournal()
	}

	game.SeedScenario(engine, cfg.Scenario)

	start := time.Now()
	ticks := int(*seconds / game.FixedTimeStep)
	snap := engine.GetSnapshot()
	for i := 0; i < ticks; i++ {
		snap = engine.Step()
		if decided(snap) {
			break
		}
	}
	wall := time.Since(start)

	if *mapPath != "" {
		if err := writeMap(*mapPath, snap); err != nil {
			log.Printf("⚠️ Tactical map: %v", err)
		}
	}

	result := struct {
		Ticks       uint64             `json:"ticks"`
		GameSeconds float64            `json:"gameSeconds"`
		WallMs      int64              `json:"wallMs"`
		AliveByTeam map[int]int        `json:"aliveByTeam"`
		Totals      game.TickStats     `json:"totals"`
		Top         []game.LedgerEntry `json:"top"`
	}{
		Ticks:       snap.Tick,
		GameSeconds: snap.Elapsed,
		WallMs:      wall.Milliseconds(),
		AliveByTeam: snap.AliveByTeam,
		Totals:      engine.Stats().Totals,
		Top:         engine.Leaderboard(5),
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
		return
	}

	fmt.Printf("Battle ran %d ticks (%.1f game s) in %s\n", result.Ticks, result.GameSeconds, wall.Round(time.Millisecond))
	teams := make([]int, 0, len(result.AliveByTeam))
	for t := range result.AliveByTeam {
		teams = append(teams, t)
	}
	sort.Ints(teams)
	for _, t := range teams {
		fmt.Printf("  team %d: %d alive\n", t, result.AliveByTeam[t])
	}
	fmt.Printf("  hits %d, misses %d, blocked %d, deaths %d, rockets %d\n",
		result.Totals.Hits, result.Totals.Misses, result.Totals.Blocked, result.Totals.Deaths, result.Totals.Launched)
	for _, e := range result.Top {
		fmt.Printf("  #%d %s (team %d): %d kills, %.0f damage\n", e.Rank, e.Template, e.Team, e.Kills, e.Damage)
	}
}

// decided reports whether at most one team has ships left.
func decided(snap *game.CombatSnapshot) bool {
	teams := 0
	for _, n := range snap.AliveByTeam {
		if n > 0 {
			teams++
		}
	}
	return snap.Tick > 1 && teams <= 1
}

func writeMap(path string, snap *game.CombatSnapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return render.WritePNG(f, snap, render.DefaultSize)
}
