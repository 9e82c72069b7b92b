package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/storybattle/internal/combat"
	"github.com/samdwyer/storybattle/internal/game"
	"github.com/samdwyer/storybattle/internal/gamedata"
)

const barWidth = 20

// Menu is the prompt drawn at the bottom of the screen.
type Menu struct {
	Title   string
	Options []string
	Message string // Last rejection or hint
}

// Renderer handles drawing the battle to the screen.
type Renderer struct {
	screen  *Screen
	catalog *gamedata.Catalog
}

// NewRenderer creates a new renderer for the given screen.
func NewRenderer(screen *Screen, catalog *gamedata.Catalog) *Renderer {
	return &Renderer{screen: screen, catalog: catalog}
}

var (
	styleText   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleDim    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleTitle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleHP     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleLowHP  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleMana   = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleCharge = tcell.StyleDefault.Foreground(tcell.ColorOrange)
	styleDamage = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleHeal   = tcell.StyleDefault.Foreground(tcell.ColorLime).Bold(true)
	styleWarn   = tcell.StyleDefault.Foreground(tcell.ColorFuchsia).Bold(true)
)

// Render draws the whole battle screen.
func (r *Renderer) Render(view *View, snap game.Snapshot, menu Menu) {
	r.screen.Clear()
	if !snap.Active {
		r.screen.DrawText(0, 0, "No battle in progress.", styleDim)
		r.screen.Show()
		return
	}

	header := fmt.Sprintf("Turn %d", snap.Turn)
	if snap.Terrain != "" {
		header += "  " + snap.Terrain
	}
	if snap.Paused {
		header += "  [PAUSED]"
	}
	r.screen.DrawText(0, 0, header, styleDim)

	y := 1
	y = r.drawCombatant(y, snap.Enemy, game.SideEnemy, view)
	if snap.Barrier > 0 {
		r.screen.DrawText(2, y, fmt.Sprintf("Barrier %d", snap.Barrier), styleMana)
		y++
	}
	if snap.Enemy.StaggerThreshold > 0 {
		r.drawBar(2, y, "STG", snap.Enemy.Stagger, snap.Enemy.StaggerThreshold, styleWarn)
		y++
	}
	if it := snap.Intent; it != nil && it.Ability != nil {
		r.screen.DrawText(2, y, fmt.Sprintf("! Preparing %s (%d)", it.Ability.Name, it.TurnsRemaining), styleWarn)
		y++
	}
	if view.Dialogue != "" {
		r.screen.DrawText(2, y, fmt.Sprintf("%s: %q", snap.Enemy.Name, view.Dialogue), styleDim)
		y++
	}

	y++
	y = r.drawCombatant(y, snap.Player, game.SidePlayer, view)
	r.drawBar(2, y, "MP ", snap.Player.Mana, snap.Player.MaxMana, styleMana)
	y++
	chargeLabel := ""
	if combat.ChargeReady(&snap.Player) {
		chargeLabel = " READY"
	}
	x := r.drawBar(2, y, "SP ", snap.Player.Charge, combat.MaxCharge, styleCharge)
	r.screen.DrawText(x, y, chargeLabel, styleTitle)
	y++
	if snap.Player.StaggerThreshold > 0 {
		r.drawBar(2, y, "STG", snap.Player.Stagger, snap.Player.StaggerThreshold, styleWarn)
		y++
	}
	if snap.Summon != nil {
		r.screen.DrawText(2, y, fmt.Sprintf("Ally: %s (%d turns)", snap.Summon.Name(), snap.Summon.TurnsLeft), styleText)
		r.drawFloats(30, y, game.SideSummon, view)
		y++
	}
	if snap.Stance.Active() {
		r.screen.DrawText(2, y, "Stance: "+snap.Stance.Kind, styleDim)
		y++
	}

	_, h := r.screen.Size()
	menuTop := h - len(menu.Options) - 2
	y++
	logLines := max(menuTop-y, 0)
	for i, line := range view.Tail(logLines) {
		r.screen.DrawText(0, y+i, line, styleText)
	}

	r.drawMenu(menuTop, menu, snap)
	r.screen.Show()
}

func (r *Renderer) drawCombatant(y int, c combat.Combatant, side game.Side, view *View) int {
	r.screen.DrawText(0, y, c.Name, styleTitle)
	y++
	hpStyle := styleHP
	if c.MaxHP > 0 && c.HP*4 <= c.MaxHP {
		hpStyle = styleLowHP
	}
	x := r.drawBar(2, y, "HP ", c.HP, c.MaxHP, hpStyle)
	r.drawFloats(x+2, y, side, view)
	y++
	if len(c.Statuses) > 0 {
		r.drawStatuses(2, y, c.Statuses)
		y++
	}
	return y
}

// drawBar draws "label [####----] cur/max" and returns the next column.
func (r *Renderer) drawBar(x, y int, label string, cur, maxV int, style tcell.Style) int {
	filled := 0
	if maxV > 0 {
		filled = min(barWidth, cur*barWidth/maxV)
	}
	x = r.screen.DrawText(x, y, label+"[", styleText)
	x = r.screen.DrawText(x, y, strings.Repeat("#", filled), style)
	x = r.screen.DrawText(x, y, strings.Repeat("-", barWidth-filled), styleDim)
	return r.screen.DrawText(x, y, fmt.Sprintf("] %d/%d", cur, maxV), styleText)
}

func (r *Renderer) drawStatuses(x, y int, statuses []combat.StatusInstance) {
	for _, s := range statuses {
		label := s.ID
		style := styleText
		if def := r.catalog.Statuses.GetByID(s.ID); def != nil {
			label = def.Name
			style = tcell.StyleDefault.Foreground(def.TCellColor())
		}
		if s.Stacks > 1 {
			label += fmt.Sprintf(" x%d", s.Stacks)
		}
		label += fmt.Sprintf("(%d) ", s.Duration)
		x = r.screen.DrawText(x, y, label, style)
	}
}

func (r *Renderer) drawFloats(x, y int, side game.Side, view *View) {
	for _, f := range view.Floats {
		if f.Side != side {
			continue
		}
		style := styleDamage
		if f.Heal {
			style = styleHeal
		}
		x = r.screen.DrawText(x, y, f.Text+" ", style)
	}
}

func (r *Renderer) drawMenu(y int, menu Menu, snap game.Snapshot) {
	if menu.Message != "" {
		r.screen.DrawText(0, y, menu.Message, styleWarn)
	}
	y++
	title := menu.Title
	if snap.Locked {
		title += " ..."
	}
	r.screen.DrawText(0, y, title, styleTitle)
	for i, opt := range menu.Options {
		r.screen.DrawText(2, y+1+i, opt, styleText)
	}
}
