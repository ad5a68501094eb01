package game

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yohamta/donburi"
)

// TestDefaultCatalog verifies the embedded catalog loads and cross-links.
func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	want := []string{"fighter", "fighter_drone", "repair_drone", "rocket_frigate"}
	got := c.ShipNames()
	if len(got) != len(want) {
		t.Fatalf("ShipNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ShipNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	for k := EffectPulseLaser; k <= EffectRepairBeam; k++ {
		if _, ok := c.Effect(k); !ok {
			t.Errorf("effect %v missing from the embedded catalog", k)
		}
	}

	if _, err := c.Ship("battlestar"); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("Ship(battlestar) error = %v, want ErrUnknownTemplate", err)
	}
}

// TestParseCatalogErrors verifies validation rejects broken references.
func TestParseCatalogErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		invalid bool
	}{
		{
			name: "malformed yaml",
			yaml: "ships: [",
		},
		{
			name:    "unknown effect kind",
			yaml:    "effects:\n  death_ray:\n    damage: 1\n",
			invalid: true,
		},
		{
			name:    "unknown projectile",
			yaml:    "effects:\n  rocket_launch:\n    projectile: torpedo\n",
			invalid: true,
		},
		{
			name:    "unknown beam",
			yaml:    "effects:\n  pulse_laser:\n    beam: purple_beam\n",
			invalid: true,
		},
		{
			name: "projectile without lifetime",
			yaml: `effects:
  small_rocket: {damage: 1}
projectiles:
  rocket: {category: missile, payload: small_rocket, mass: 1}
`,
			invalid: true,
		},
		{
			name:    "rocket launch without projectile",
			yaml:    "effects:\n  rocket_launch: {}\n",
			invalid: true,
		},
		{
			name: "projectile with unknown category",
			yaml: `effects:
  small_rocket: {damage: 1}
projectiles:
  rocket: {category: torpedo, payload: small_rocket, lifetime: 1, mass: 1}
`,
			invalid: true,
		},
		{
			name: "projectile without category",
			yaml: `effects:
  small_rocket: {damage: 1}
projectiles:
  rocket: {payload: small_rocket, lifetime: 1, mass: 1}
`,
			invalid: true,
		},
		{
			name: "ship with unknown category",
			yaml: `ships:
  saucer: {category: saucer, health: 1, mass: 1}
`,
			invalid: true,
		},
		{
			name: "ship carrying unknown effect",
			yaml: `ships:
  fighter:
    category: fighter
    health: 1
    mass: 1
    tools:
      - effect: pulse_laser
`,
			invalid: true,
		},
		{
			name: "mount carrying unknown effect",
			yaml: `effects:
  pulse_laser: {damage: 1}
ships:
  frigate:
    category: frigate
    health: 1
    mass: 1
    mounts:
      - effect: rocket_launch
        offset: [1, 0]
`,
			invalid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.invalid && !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("error = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}

// TestLoadCatalog verifies loading from disk and the embedded fallback.
func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil || len(c.Ships) == 0 {
		t.Fatalf("LoadCatalog(\"\") = %v, %v", c, err)
	}

	path := filepath.Join(t.TempDir(), "templates.yaml")
	doc := `effects:
  pulse_laser: {accuracy: 1, damage: 3}
ships:
  picket:
    category: fighter
    health: 10
    mass: 1
    tools:
      - {effect: pulse_laser, cooldown: 1, range: 50, cone: 0.5}
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog(%s): %v", path, err)
	}
	if spec, err := c.Ship("picket"); err != nil || spec.Tools[0].Range != 50 {
		t.Errorf("picket = %+v, %v", spec, err)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

// TestSpawnShip verifies a frigate spawns with its mounts and a team.
func TestSpawnShip(t *testing.T) {
	s := newTestSim()
	hull, err := SpawnShip(s, ShipOrder{Template: "rocket_frigate", Team: 3, X: 10, Y: 20})
	if err != nil {
		t.Fatalf("SpawnShip: %v", err)
	}

	if got := s.World.Len(); got != 3 {
		t.Errorf("entities = %d, want hull + 2 mounts", got)
	}
	entry := s.World.Entry(hull)
	if TeamC.Get(entry).ID != 3 {
		t.Error("hull spawned without its team")
	}
	if !entry.HasComponent(ShieldC) || ShieldC.Get(entry).Health != 200 {
		t.Error("frigate spawned without its shield")
	}
	if entry.HasComponent(ToolC) {
		t.Error("frigate hull carries a tool; its weapons are mounts")
	}

	mounts := 0
	childQuery.Each(s.World, func(e *donburi.Entry) {
		if ParentC.Get(e).Entity == hull && InstigatorC.Get(e).Root == hull {
			mounts++
		}
	})
	if mounts != 2 {
		t.Errorf("mounts crediting the hull = %d, want 2", mounts)
	}

	if _, err := SpawnShip(s, ShipOrder{Template: "battlestar"}); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("unknown template error = %v", err)
	}
}
