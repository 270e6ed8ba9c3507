// pkg/render/engo/assets.go
package engo

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/goregular"
)

const fontURL = "ballsim/goregular.ttf"

var (
	backgroundColor = color.RGBA{0, 0, 0, 255}
	gridColor       = color.RGBA{60, 60, 60, 255}
	hudColor        = color.RGBA{255, 255, 255, 255}
	smallBodyColor  = color.RGBA{80, 160, 255, 255}
	largeBodyColor  = color.RGBA{255, 110, 60, 255}
)

// Palette colors bodies by radius, from smallBodyColor at the smallest
// radius to largeBodyColor at the largest.
type Palette struct {
	minRadius float64
	maxRadius float64
}

// NewPalette creates a palette for radii in [minRadius, maxRadius].
func NewPalette(minRadius, maxRadius float64) Palette {
	return Palette{minRadius: minRadius, maxRadius: maxRadius}
}

// Color returns the color of a body of radius r.
func (p Palette) Color(r float64) color.RGBA {
	t := 0.0
	if p.maxRadius > p.minRadius {
		t = (r - p.minRadius) / (p.maxRadius - p.minRadius)
	}
	t = max(0, min(1, t))
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
	}
	return color.RGBA{
		R: lerp(smallBodyColor.R, largeBodyColor.R),
		G: lerp(smallBodyColor.G, largeBodyColor.G),
		B: lerp(smallBodyColor.B, largeBodyColor.B),
		A: 255,
	}
}

// loadFont registers the embedded Go font with engo and prepares it for
// the HUD.
func loadFont(size float64) (*common.Font, error) {
	if err := engo.Files.LoadReaderData(fontURL, bytes.NewReader(goregular.TTF)); err != nil {
		return nil, fmt.Errorf("load HUD font: %w", err)
	}
	font := &common.Font{
		URL:  fontURL,
		FG:   hudColor,
		Size: size,
	}
	if err := font.CreatePreloaded(); err != nil {
		return nil, fmt.Errorf("prepare HUD font: %w", err)
	}
	return font, nil
}
