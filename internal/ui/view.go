package ui

import (
	"fmt"

	"github.com/samdwyer/storybattle/internal/game"
)

const maxLogLines = 200

// Float is a transient number drawn next to a combatant.
type Float struct {
	Side  game.Side
	Text  string
	Heal  bool
	Until int // View frame after which it disappears
}

// View accumulates presentation state from engine notifications. It
// implements game.Presenter.
type View struct {
	Log      []string
	Dialogue string
	Floats   []Float
	Ready    bool // Special charge just filled
	Ended    bool
	Outcome  game.Outcome
	Frame    int

	floatFrames int
}

// NewView creates an empty view. Floating numbers last floatFrames frames.
func NewView(floatFrames int) *View {
	return &View{floatFrames: max(floatFrames, 1)}
}

// Notify implements game.Presenter.
func (v *View) Notify(n game.Notification) {
	switch n.Kind {
	case game.NoteLog, game.NoteStatus:
		v.push(n.Text)
	case game.NoteDialogue:
		v.Dialogue = n.Text
		v.push(fmt.Sprintf("%q", n.Text))
	case game.NoteDamage:
		v.float(n.Side, fmt.Sprintf("-%d", n.Amount), false)
	case game.NoteHeal:
		text := fmt.Sprintf("+%d", n.Amount)
		if over := n.Rolled - n.Amount; over > 0 {
			text += fmt.Sprintf(" (%d over)", over)
		}
		v.float(n.Side, text, true)
	case game.NoteChargeReady:
		v.Ready = n.Current >= n.Max && n.Max > 0
	case game.NoteTurn:
		v.Dialogue = ""
	case game.NoteBattleEnded:
		v.Ended = true
		v.Outcome = n.Outcome
		v.push(n.Text)
	}
}

// Tick advances the view's frame counter and drops expired floats.
func (v *View) Tick() {
	v.Frame++
	kept := v.Floats[:0]
	for _, f := range v.Floats {
		if f.Until >= v.Frame {
			kept = append(kept, f)
		}
	}
	v.Floats = kept
}

// Tail returns the last n log lines.
func (v *View) Tail(n int) []string {
	if n >= len(v.Log) {
		return v.Log
	}
	return v.Log[len(v.Log)-n:]
}

func (v *View) push(text string) {
	if text == "" {
		return
	}
	v.Log = append(v.Log, text)
	if len(v.Log) > maxLogLines {
		v.Log = v.Log[len(v.Log)-maxLogLines:]
	}
}

func (v *View) float(side game.Side, text string, heal bool) {
	v.Floats = append(v.Floats, Float{Side: side, Text: text, Heal: heal, Until: v.Frame + v.floatFrames})
}
