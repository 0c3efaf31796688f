// Package render draws room thumbnails from broadcast states.
package render

import (
	"image/color"
	"io"
	"math"

	"blade-arena/internal/game"
	"blade-arena/internal/geom"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Palette
var (
	backgroundColor = color.RGBA{12, 12, 28, 255}
	gridColor       = color.RGBA{30, 30, 45, 255}
	bonusColor      = color.RGBA{83, 255, 69, 255}
	humanColor      = color.RGBA{66, 135, 245, 255}
	robotColor      = color.RGBA{255, 120, 0, 255}
	deadColor       = color.RGBA{90, 90, 100, 160}
	bladeColor      = color.RGBA{220, 220, 230, 255}
	goldBladeColor  = color.RGBA{255, 215, 0, 255}
)

// Preview renders square thumbnails of an arena of the given side length.
type Preview struct {
	Size      int     // output side length in pixels
	ArenaSize float64 // world side length, centered on the origin
	Labels    bool    // draw player names
}

func NewPreview(size int, arenaSize float64) *Preview {
	return &Preview{Size: size, ArenaSize: arenaSize, Labels: true}
}

// Draw renders state onto a new context.
func (p *Preview) Draw(state game.BroadcastState) *gg.Context {
	dc := gg.NewContext(p.Size, p.Size)
	scale := float64(p.Size) / p.ArenaSize
	half := p.ArenaSize / 2

	// world -> pixels
	dc.Scale(scale, scale)
	dc.Translate(half, half)

	drawBackground(dc, p.ArenaSize)

	for _, b := range state.Bonuses {
		dc.SetColor(bonusColor)
		dc.DrawCircle(b.Position[0], b.Position[1], game.BonusRadius)
		dc.Fill()
	}

	for _, pl := range state.Dead {
		dc.SetColor(deadColor)
		dc.DrawCircle(pl.Position[0], pl.Position[1], pl.Size)
		dc.Fill()
	}
	for _, pl := range state.Players {
		drawPlayer(dc, pl)
	}

	if p.Labels {
		dc.Identity()
		dc.SetFontFace(basicfont.Face7x13)
		dc.SetColor(color.White)
		for _, pl := range state.Players {
			x := (pl.Position[0] + half) * scale
			y := (pl.Position[1] - pl.Size + half) * scale
			dc.DrawStringAnchored(pl.Name, x, y-4, 0.5, 1)
		}
	}
	return dc
}

// EncodePNG renders state and writes it as PNG.
func (p *Preview) EncodePNG(w io.Writer, state game.BroadcastState) error {
	return p.Draw(state).EncodePNG(w)
}

func drawBackground(dc *gg.Context, arenaSize float64) {
	half := arenaSize / 2
	dc.SetColor(backgroundColor)
	dc.DrawRectangle(-half, -half, arenaSize, arenaSize)
	dc.Fill()

	dc.SetColor(gridColor)
	dc.SetLineWidth(2)
	step := arenaSize / 10
	for v := -half; v <= half; v += step {
		dc.DrawLine(v, -half, v, half)
		dc.DrawLine(-half, v, half, v)
	}
	dc.Stroke()
}

func drawPlayer(dc *gg.Context, pl game.PlayerDTO) {
	center := geom.Vec2{X: pl.Position[0], Y: pl.Position[1]}

	if pl.UserID < 0 {
		dc.SetColor(robotColor)
	} else {
		dc.SetColor(humanColor)
	}
	dc.DrawCircle(center.X, center.Y, pl.Size)
	dc.Fill()

	gold := len(pl.Blades) <= 2
	dc.SetLineWidth(math.Max(2, pl.Size/8))
	for _, b := range pl.Blades {
		if gold && b.Damage >= 2 {
			dc.SetColor(goldBladeColor)
		} else {
			dc.SetColor(bladeColor)
		}
		dir := geom.Direction(b.Angle)
		from := center.Add(dir.Scale(pl.Size))
		to := center.Add(dir.Scale(pl.Size + b.Length))
		dc.DrawLine(from.X, from.Y, to.X, to.Y)
		dc.Stroke()
	}
}
