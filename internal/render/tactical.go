// Package render draws combat snapshots into images for operators.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sort"

	"github.com/fogleman/gg"

	"fleet-combat/internal/game"
)

const (
	DefaultSize = 768
	MaxSize     = 2048
	margin      = 40.0
)

// Team palette, cycled by team id.
var teamColors = []string{"#4aa3ff", "#ff5a4a", "#53ff45", "#ffd23e", "#c86bff"}

// viewport maps world coordinates onto the image.
type viewport struct {
	minX, minY float64
	scale      float64
}

func (v viewport) point(x, y float64) (float64, float64) {
	return (x-v.minX)*v.scale + margin, (y-v.minY)*v.scale + margin
}

// fit frames every combatant and projectile in a size x size image.
func fit(snap *game.CombatSnapshot, size int) viewport {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(x, y float64) {
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	for _, c := range snap.Combatants {
		grow(c.X, c.Y)
	}
	for _, p := range snap.Projectiles {
		grow(p.X, p.Y)
	}
	if math.IsInf(minX, 1) {
		return viewport{minX: -500, minY: -500, scale: (float64(size) - 2*margin) / 1000}
	}

	span := math.Max(math.Max(maxX-minX, maxY-minY), 200)
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	return viewport{
		minX:  cx - span/2,
		minY:  cy - span/2,
		scale: (float64(size) - 2*margin) / span,
	}
}

// Tactical renders a top-down map of snap into a size x size image.
func Tactical(snap *game.CombatSnapshot, size int) image.Image {
	return draw(snap, size).Image()
}

// WritePNG renders snap and encodes it to w.
func WritePNG(w io.Writer, snap *game.CombatSnapshot, size int) error {
	return draw(snap, size).EncodePNG(w)
}

func draw(snap *game.CombatSnapshot, size int) *gg.Context {
	if size <= 0 {
		size = DefaultSize
	}
	size = min(size, MaxSize)

	dc := gg.NewContext(size, size)
	drawBackground(dc, size)

	v := fit(snap, size)
	drawAttacks(dc, v, snap.Attacks)
	drawCombatants(dc, v, snap.Combatants)
	drawProjectiles(dc, v, snap.Projectiles)
	drawFX(dc, v, snap.FX)
	drawTeamBars(dc, size, snap.AliveByTeam)
	return dc
}

func drawBackground(dc *gg.Context, size int) {
	dc.SetColor(color.RGBA{12, 12, 28, 255})
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	// Deterministic star field
	dc.SetColor(color.RGBA{60, 60, 70, 120})
	for i := 0; i < 60; i++ {
		x := float64((i*67 + i*i*3) % size)
		y := float64((i*47 + i*i*2) % size)
		dc.DrawCircle(x, y, 1)
		dc.Fill()
	}
}

func drawCombatants(dc *gg.Context, v viewport, combatants []game.CombatantSnapshot) {
	for _, c := range combatants {
		x, y := v.point(c.X, c.Y)
		radius := 4.0
		if c.Category == "frigate" || c.Category == "cruiser" {
			radius = 8.0
		}

		col := teamColor(c.Team)
		if c.Dieing {
			col.A = 90
		}

		if c.MaxShield > 0 && c.Shield > 0 {
			sc := col
			sc.A = uint8(40 + 80*c.Shield/c.MaxShield)
			dc.SetColor(sc)
			dc.SetLineWidth(1)
			dc.DrawCircle(x, y, radius+4)
			dc.Stroke()
		}

		// Hull: a triangle pointing along the heading
		dc.Push()
		dc.Translate(x, y)
		dc.Rotate(c.Heading)
		dc.SetColor(col)
		dc.MoveTo(radius*1.5, 0)
		dc.LineTo(-radius, -radius)
		dc.LineTo(-radius, radius)
		dc.ClosePath()
		dc.Fill()
		dc.Pop()

		// Damage flash
		if c.DamageFlash < 0.15 && !c.Dieing {
			dc.SetColor(color.RGBA{255, 255, 255, 160})
			dc.DrawCircle(x, y, radius)
			dc.Fill()
		}

		if c.MaxHealth > 0 && !c.Dieing {
			drawHealthBar(dc, x, y-radius-6, c.Health/c.MaxHealth)
		}
	}
}

func drawHealthBar(dc *gg.Context, x, y, frac float64) {
	const width, height = 16.0, 2.0
	frac = math.Max(0, math.Min(1, frac))

	dc.SetColor(color.RGBA{51, 51, 51, 255})
	dc.DrawRectangle(x-width/2, y, width, height)
	dc.Fill()

	if frac > 0.5 {
		dc.SetColor(color.RGBA{83, 255, 69, 255})
	} else if frac > 0.25 {
		dc.SetColor(color.RGBA{255, 149, 0, 255})
	} else {
		dc.SetColor(color.RGBA{255, 62, 62, 255})
	}
	dc.DrawRectangle(x-width/2, y, width*frac, height)
	dc.Fill()
}

func drawProjectiles(dc *gg.Context, v viewport, projectiles []game.ProjectileSnapshot) {
	for _, p := range projectiles {
		x, y := v.point(p.X, p.Y)
		c := teamColor(p.Team)

		dc.Push()
		dc.Translate(x, y)
		dc.Rotate(p.Heading)
		dc.SetColor(c)
		dc.SetLineWidth(2)
		dc.DrawLine(-5, 0, 3, 0)
		dc.Stroke()

		// Glow for visibility
		c.A = 100
		dc.SetColor(c)
		dc.DrawCircle(0, 0, 3)
		dc.Fill()
		dc.Pop()
	}
}

func drawAttacks(dc *gg.Context, v viewport, attacks []game.AttackSnapshot) {
	dc.SetLineWidth(1)
	for _, a := range attacks {
		sx, sy := v.point(a.SX, a.SY)
		hx, hy := v.point(a.HX, a.HY)
		switch a.Result {
		case "miss":
			dc.SetColor(color.RGBA{160, 160, 160, 80})
		case "blocked":
			dc.SetColor(color.RGBA{120, 200, 255, 200})
		default:
			dc.SetColor(color.RGBA{255, 240, 120, 200})
		}
		dc.DrawLine(sx, sy, hx, hy)
		dc.Stroke()
	}
}

func drawFX(dc *gg.Context, v viewport, fx []game.FXSnapshot) {
	for _, f := range fx {
		x, y := v.point(f.X, f.Y)
		switch f.Kind {
		case "small_explosion", "medium_explosion", "flash_explosion":
			dc.SetColor(color.RGBA{255, 149, 0, 140})
			dc.DrawCircle(x, y, 6)
			dc.Fill()
		case "tiny_explosion":
			dc.SetColor(color.RGBA{255, 200, 80, 140})
			dc.DrawCircle(x, y, 3)
			dc.Fill()
		case "shield_impact":
			dc.SetColor(color.RGBA{120, 200, 255, 160})
			dc.DrawCircle(x, y, 4)
			dc.Fill()
		case "repair_beam":
			tx, ty := v.point(f.TX, f.TY)
			dc.SetColor(color.RGBA{83, 255, 69, 140})
			dc.SetLineWidth(1)
			dc.DrawLine(x, y, tx, ty)
			dc.Stroke()
		}
	}
}

// drawTeamBars shows the surviving share of each team along the bottom edge.
func drawTeamBars(dc *gg.Context, size int, alive map[int]int) {
	total := 0
	for _, n := range alive {
		total += n
	}
	if total == 0 {
		return
	}

	teams := make([]int, 0, len(alive))
	for team := range alive {
		teams = append(teams, team)
	}
	sort.Ints(teams)

	x := margin
	width := float64(size) - 2*margin
	for _, team := range teams {
		w := width * float64(alive[team]) / float64(total)
		dc.SetColor(teamColor(team))
		dc.DrawRectangle(x, float64(size)-margin/2, w, 4)
		dc.Fill()
		x += w
	}
}

func teamColor(team int) color.RGBA {
	if team < 0 {
		team = -team
	}
	return parseHexColor(teamColors[team%len(teamColors)])
}

func parseHexColor(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}

	var r, g, b uint8
	fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b)
	return color.RGBA{r, g, b, 255}
}
