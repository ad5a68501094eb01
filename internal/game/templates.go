package game

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultCatalogYAML []byte

var (
	ErrUnknownTemplate = errors.New("unknown template")
	ErrInvalidCatalog  = errors.New("invalid catalog")
)

// EffectSpec is the tunable payload of one effect kind.
type EffectSpec struct {
	Accuracy   float64 `yaml:"accuracy" json:"accuracy,omitempty"`
	Damage     float64 `yaml:"damage" json:"damage,omitempty"`
	Repair     float64 `yaml:"repair" json:"repair,omitempty"`
	Beam       string  `yaml:"beam" json:"beam,omitempty"`
	Impact     string  `yaml:"impact" json:"impact,omitempty"`
	Projectile string  `yaml:"projectile" json:"projectile,omitempty"`
}

// ProjectileSpec describes a launched projectile.
type ProjectileSpec struct {
	Category    string  `yaml:"category" json:"category"`
	Health      float64 `yaml:"health" json:"health"`
	Lifetime    float64 `yaml:"lifetime" json:"lifetime"`
	Evasion     float64 `yaml:"evasion" json:"evasion"`
	Homing      bool    `yaml:"homing" json:"homing"`
	MaxTurnRate float64 `yaml:"max_turn_rate" json:"maxTurnRate"`
	Mass        float64 `yaml:"mass" json:"mass"`
	Thrust      float64 `yaml:"thrust" json:"thrust"`
	Payload     string  `yaml:"payload" json:"payload"`
	Trail       string  `yaml:"trail" json:"trail,omitempty"`
}

// ToolSpec is a weapon or utility carried by a hull or mount.
type ToolSpec struct {
	Effect   string  `yaml:"effect" json:"effect"`
	Cooldown float64 `yaml:"cooldown" json:"cooldown"`
	Range    float64 `yaml:"range" json:"range"`
	Cone     float64 `yaml:"cone" json:"cone"`
}

// MountSpec is a child entity carrying a tool that inherits the hull's target.
type MountSpec struct {
	ToolSpec `yaml:",inline"`
	Offset   [2]float64 `yaml:"offset" json:"offset"`
	Rotation float64    `yaml:"rotation" json:"rotation"`
}

// ShipSpec describes a spawnable hull.
type ShipSpec struct {
	Category         string      `yaml:"category" json:"category"`
	Health           float64     `yaml:"health" json:"health"`
	Evasion          float64     `yaml:"evasion" json:"evasion"`
	HitBox           float64     `yaml:"hitbox" json:"hitbox"`
	Shield           float64     `yaml:"shield" json:"shield,omitempty"`
	ShieldRadius     float64     `yaml:"shield_radius" json:"shieldRadius,omitempty"`
	MaxTurnRate      float64     `yaml:"max_turn_rate" json:"maxTurnRate"`
	Mass             float64     `yaml:"mass" json:"mass"`
	Thrust           float64     `yaml:"thrust" json:"thrust"`
	AggroRadius      float64     `yaml:"aggro_radius" json:"aggroRadius"`
	RetargetInterval float64     `yaml:"retarget_interval" json:"retargetInterval"`
	Preferred        []string    `yaml:"preferred" json:"preferred,omitempty"`
	Discouraged      []string    `yaml:"discouraged" json:"discouraged,omitempty"`
	TargetSameTeam   bool        `yaml:"target_same_team" json:"targetSameTeam"`
	RoamRadius       float64     `yaml:"roam_radius" json:"roamRadius"`
	DyingExplosion   string      `yaml:"dying_explosion" json:"dyingExplosion,omitempty"`
	DeathExplosion   string      `yaml:"death_explosion" json:"deathExplosion,omitempty"`
	Tools            []ToolSpec  `yaml:"tools" json:"tools,omitempty"`
	Mounts           []MountSpec `yaml:"mounts" json:"mounts,omitempty"`
}

// Catalog is the parsed template set. It is immutable once loaded.
type Catalog struct {
	Effects     map[string]EffectSpec     `yaml:"effects" json:"effects"`
	Projectiles map[string]ProjectileSpec `yaml:"projectiles" json:"projectiles"`
	Ships       map[string]ShipSpec       `yaml:"ships" json:"ships"`

	effects map[EffectKind]EffectSpec
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalog reads a catalog from path, or returns the embedded one when
// path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalogYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the embedded catalog. It panics if the embedded
// file is invalid, which only a broken build can cause.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) validate() error {
	c.effects = make(map[EffectKind]EffectSpec, len(c.Effects))
	for name, spec := range c.Effects {
		kind := ParseEffectKind(name)
		if kind == EffectNone {
			return fmt.Errorf("%w: effect %q is not a known effect kind", ErrInvalidCatalog, name)
		}
		if kind == EffectRocketLaunch && spec.Projectile == "" {
			return fmt.Errorf("%w: effect %q launches no projectile", ErrInvalidCatalog, name)
		}
		if spec.Projectile != "" {
			if _, ok := c.Projectiles[spec.Projectile]; !ok {
				return fmt.Errorf("%w: effect %q launches unknown projectile %q", ErrInvalidCatalog, name, spec.Projectile)
			}
		}
		if spec.Beam != "" && ParseFXKind(spec.Beam) == FXNone {
			return fmt.Errorf("%w: effect %q uses unknown beam %q", ErrInvalidCatalog, name, spec.Beam)
		}
		if spec.Impact != "" && ParseFXKind(spec.Impact) == FXNone {
			return fmt.Errorf("%w: effect %q uses unknown impact %q", ErrInvalidCatalog, name, spec.Impact)
		}
		c.effects[kind] = spec
	}

	for name, p := range c.Projectiles {
		if ParseCategory(p.Category) == 0 {
			return fmt.Errorf("%w: projectile %q has unknown category %q", ErrInvalidCatalog, name, p.Category)
		}
		if _, ok := c.Effects[p.Payload]; !ok {
			return fmt.Errorf("%w: projectile %q carries unknown payload %q", ErrInvalidCatalog, name, p.Payload)
		}
		if p.Lifetime <= 0 {
			return fmt.Errorf("%w: projectile %q needs a positive lifetime", ErrInvalidCatalog, name)
		}
		if p.Mass <= 0 {
			return fmt.Errorf("%w: projectile %q needs a positive mass", ErrInvalidCatalog, name)
		}
	}

	for name, s := range c.Ships {
		if ParseCategory(s.Category) == 0 {
			return fmt.Errorf("%w: ship %q has unknown category %q", ErrInvalidCatalog, name, s.Category)
		}
		if s.Health <= 0 {
			return fmt.Errorf("%w: ship %q needs positive health", ErrInvalidCatalog, name)
		}
		if s.Mass <= 0 {
			return fmt.Errorf("%w: ship %q needs a positive mass", ErrInvalidCatalog, name)
		}
		tools := make([]ToolSpec, 0, len(s.Tools)+len(s.Mounts))
		tools = append(tools, s.Tools...)
		for _, m := range s.Mounts {
			tools = append(tools, m.ToolSpec)
		}
		for _, t := range tools {
			if _, ok := c.Effects[t.Effect]; !ok {
				return fmt.Errorf("%w: ship %q carries unknown effect %q", ErrInvalidCatalog, name, t.Effect)
			}
		}
	}
	return nil
}

// Effect returns the spec of an effect kind.
func (c *Catalog) Effect(kind EffectKind) (EffectSpec, bool) {
	spec, ok := c.effects[kind]
	return spec, ok
}

// Ship returns the spec of a ship template.
func (c *Catalog) Ship(name string) (ShipSpec, error) {
	spec, ok := c.Ships[name]
	if !ok {
		return ShipSpec{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	return spec, nil
}

// ShipNames returns the ship template names in sorted order.
func (c *Catalog) ShipNames() []string {
	names := make([]string, 0, len(c.Ships))
	for n := range c.Ships {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func categoryMask(names []string) AgentCategory {
	var mask AgentCategory
	for _, n := range names {
		mask |= ParseCategory(n)
	}
	return mask
}
