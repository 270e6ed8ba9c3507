// pkg/render/engo/hud.go
package engo

import (
	"fmt"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/render"
)

// hudEntity is the status text in the top left corner.
type hudEntity struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// HUDSystem shows the tick, population, strategy and tick rate.
type HUDSystem struct {
	status render.Status
	paused bool

	font *common.Font
	text *hudEntity
}

// NewHUDSystem creates a HUD without a font. Until attach is called it only
// tracks the status.
func NewHUDSystem() *HUDSystem {
	return &HUDSystem{}
}

// attach creates the text entity in system.
func (hud *HUDSystem) attach(system *common.RenderSystem, font *common.Font) {
	hud.font = font
	hud.text = &hudEntity{BasicEntity: ecs.NewBasic()}
	hud.text.RenderComponent = common.RenderComponent{
		Drawable: common.Text{Font: font, Text: hud.Text()},
		Color:    hudColor,
	}
	hud.text.RenderComponent.SetZIndex(10)
	hud.text.SpaceComponent = common.SpaceComponent{Position: engo.Point{X: 8, Y: 8}}
	system.Add(&hud.text.BasicEntity, &hud.text.RenderComponent, &hud.text.SpaceComponent)
}

// SetStatus records the status of the last presented frame.
func (hud *HUDSystem) SetStatus(status render.Status) {
	hud.status = status
}

// SetPaused marks the display as paused.
func (hud *HUDSystem) SetPaused(paused bool) {
	hud.paused = paused
}

// Text returns the HUD line.
func (hud *HUDSystem) Text() string {
	s := hud.status
	text := fmt.Sprintf("tick %d  bodies %d  %s  %.1f ticks/s", s.Tick, s.Bodies, s.Strategy, s.Rate)
	if hud.paused {
		text += "  [paused]"
	}
	return text
}

// Update redraws the text.
func (hud *HUDSystem) Update(dt float32) {
	if hud.text == nil {
		return
	}
	hud.text.RenderComponent.Drawable = common.Text{Font: hud.font, Text: hud.Text()}
}

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(basic ecs.BasicEntity) {}
