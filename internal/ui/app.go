package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/samdwyer/storybattle/internal/config"
	"github.com/samdwyer/storybattle/internal/game"
	"github.com/samdwyer/storybattle/internal/gamedata"
)

// frameInterval is how often the loop advances the engine clock.
const frameInterval = 50 * time.Millisecond

type mode int

const (
	modeRoot mode = iota
	modeSkill
	modeItem
	modeSummon
)

// App runs one interactive battle in the terminal.
type App struct {
	screen   *Screen
	renderer *Renderer
	engine   *game.Engine
	view     *View
	catalog  *gamedata.Catalog
	log      *zap.Logger

	mode    mode
	message string
	running bool
	quit    bool
}

// NewApp wires a screen to an engine. view must be the engine's presenter.
func NewApp(screen *Screen, engine *game.Engine, view *View, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		screen:   screen,
		renderer: NewRenderer(screen, engine.Catalog()),
		engine:   engine,
		view:     view,
		catalog:  engine.Catalog(),
		log:      log,
		running:  true,
	}
}

// Run plays a battle until it ends or the player quits, and returns the
// story target for the outcome. Quitting counts as fleeing.
func (a *App) Run(ctx context.Context, cfg config.Battle) (string, error) {
	if _, err := a.engine.Start(ctx, cfg, ""); err != nil {
		return "", err
	}

	done := make(chan struct{})
	defer close(done)
	go a.pump(done)

	last := time.Now()
	for a.running {
		a.render()

		switch ev := a.screen.PollEvent().(type) {
		case *tcell.EventInterrupt:
			now := time.Now()
			a.engine.Advance(now.Sub(last))
			last = now
			a.view.Tick()
		case *tcell.EventKey:
			a.press(ev.Key(), ev.Rune())
		case *tcell.EventResize:
			a.screen.Sync()
		case nil:
			a.running = false
		}
		if err := ctx.Err(); err != nil {
			a.running = false
		}
	}

	outcome := game.OutcomeNone
	if a.quit {
		outcome = game.OutcomeFlee
	}
	target, err := a.engine.End(outcome)
	if err != nil {
		return "", fmt.Errorf("end battle: %w", err)
	}
	a.log.Info("battle finished", zap.String("target", target))
	return target, nil
}

// pump posts a frame event until done is closed. The engine itself is only
// touched from the event loop.
func (a *App) pump(done <-chan struct{}) {
	t := time.NewTicker(frameInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			_ = a.screen.PostEvent(tcell.NewEventInterrupt(nil))
		}
	}
}

func (a *App) render() {
	snap := a.engine.State()
	a.renderer.Render(a.view, snap, a.menu(snap))
}

func (a *App) press(key tcell.Key, r rune) {
	switch key {
	case tcell.KeyCtrlC:
		a.quit = true
		a.running = false
		return
	case tcell.KeyEscape:
		if a.mode != modeRoot {
			a.mode = modeRoot
			return
		}
		a.quit = true
		a.running = false
		return
	case tcell.KeyRune:
	default:
		return
	}

	snap := a.engine.State()
	if snap.Outcome != game.OutcomeNone {
		a.running = false
		return
	}

	switch r {
	case 'p', 'P':
		a.engine.TogglePause()
		return
	case 'q', 'Q':
		a.quit = true
		a.running = false
		return
	}
	if r < '1' || r > '9' {
		return
	}
	n := int(r - '1')

	switch a.mode {
	case modeRoot:
		if n >= len(game.ActionKinds) {
			return
		}
		switch kind := game.ActionKinds[n]; kind {
		case game.ActionSkill:
			a.mode = modeSkill
		case game.ActionItem:
			a.mode = modeItem
		case game.ActionSummon:
			a.mode = modeSummon
		default:
			a.submit(kind, game.ActionParams{})
		}
	case modeSkill:
		if n < len(snap.Skills) {
			a.submit(game.ActionSkill, game.ActionParams{SkillID: snap.Skills[n]})
		}
	case modeItem:
		if ids := heldItems(snap); n < len(ids) {
			a.submit(game.ActionItem, game.ActionParams{ItemID: ids[n]})
		}
	case modeSummon:
		if all := a.catalog.Summons.All(); n < len(all) {
			a.submit(game.ActionSummon, game.ActionParams{SummonID: all[n].ID})
		}
	}
}

func (a *App) submit(kind game.ActionKind, params game.ActionParams) {
	a.message = ""
	ok := a.engine.ExecuteAction(kind, params, func(res game.ActionResult) {
		if !res.Success {
			a.message = strings.Join(res.Messages, " ")
		}
	})
	if !ok {
		a.message = "Wait for your turn."
		return
	}
	a.mode = modeRoot
}

func (a *App) menu(snap game.Snapshot) Menu {
	m := Menu{Message: a.message}
	if snap.Outcome != game.OutcomeNone {
		m.Title = "Battle over. Press any key."
		return m
	}

	switch a.mode {
	case modeSkill:
		m.Title = "Skills (Esc to go back)"
		for i, id := range snap.Skills {
			label := id
			if sk := a.catalog.Skills.GetByID(id); sk != nil {
				label = fmt.Sprintf("%s (%d MP)", sk.Name, sk.ManaCost)
			}
			m.Options = append(m.Options, fmt.Sprintf("%d %s", i+1, label))
		}
	case modeItem:
		m.Title = "Items (Esc to go back)"
		for i, id := range heldItems(snap) {
			label := id
			if it := a.catalog.Items.GetByID(id); it != nil {
				label = it.Name
			}
			m.Options = append(m.Options, fmt.Sprintf("%d %s x%d", i+1, label, snap.Items[id]))
		}
	case modeSummon:
		m.Title = "Summons (Esc to go back)"
		for i, s := range a.catalog.Summons.All() {
			m.Options = append(m.Options, fmt.Sprintf("%d %s (%d MP)", i+1, s.Name, s.ManaCost))
		}
	default:
		m.Title = "Your move"
		var row []string
		for i, k := range game.ActionKinds {
			row = append(row, fmt.Sprintf("%d %s", i+1, strings.ToUpper(string(k[:1]))+string(k[1:])))
			if len(row) == 4 {
				m.Options = append(m.Options, strings.Join(row, "  "))
				row = nil
			}
		}
		if len(row) > 0 {
			m.Options = append(m.Options, strings.Join(row, "  "))
		}
		m.Options = append(m.Options, "p Pause  q Quit")
	}
	return m
}

func heldItems(snap game.Snapshot) []string {
	var ids []string
	for _, id := range sortedKeys(snap.Items) {
		if snap.Items[id] > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
