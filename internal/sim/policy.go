package sim

import (
	"slices"

	"github.com/samdwyer/storybattle/internal/combat"
	"github.com/samdwyer/storybattle/internal/dice"
	"github.com/samdwyer/storybattle/internal/game"
	"github.com/samdwyer/storybattle/internal/gamedata"
)

// Policy picks the next player action from a battle snapshot.
type Policy interface {
	Choose(snap game.Snapshot) (game.ActionKind, game.ActionParams)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(game.Snapshot) (game.ActionKind, game.ActionParams)

// Choose implements Policy.
func (f PolicyFunc) Choose(snap game.Snapshot) (game.ActionKind, game.ActionParams) {
	return f(snap)
}

// Greedy plays sensibly: special when charged, heal when low, summon when
// affordable, otherwise attack.
type Greedy struct {
	catalog *gamedata.Catalog
}

// NewGreedy creates a Greedy policy reading costs from catalog.
func NewGreedy(catalog *gamedata.Catalog) *Greedy {
	return &Greedy{catalog: catalog}
}

// Choose implements Policy.
func (g *Greedy) Choose(snap game.Snapshot) (game.ActionKind, game.ActionParams) {
	p := snap.Player
	if snap.Special != "" && combat.ChargeReady(&p) {
		return game.ActionSpecial, game.ActionParams{}
	}

	if p.HP*10 < p.MaxHP*4 {
		for _, id := range snap.Skills {
			sk := g.catalog.Skills.GetByID(id)
			if sk != nil && sk.Kind == gamedata.SkillHeal && p.Mana >= sk.ManaCost {
				return game.ActionSkill, game.ActionParams{SkillID: id}
			}
		}
		for _, id := range sortedKeys(snap.Items) {
			item := g.catalog.Items.GetByID(id)
			if item != nil && item.Heal != "" && snap.Items[id] > 0 {
				return game.ActionItem, game.ActionParams{ItemID: id}
			}
		}
	}

	if snap.Summon == nil {
		for _, s := range g.catalog.Summons.All() {
			if p.Mana >= s.ManaCost+5 {
				return game.ActionSummon, game.ActionParams{SummonID: s.ID}
			}
		}
	}

	if snap.Intent != nil && snap.Intent.TurnsRemaining == 0 {
		return game.ActionDefend, game.ActionParams{}
	}

	for _, id := range snap.Skills {
		sk := g.catalog.Skills.GetByID(id)
		if sk != nil && sk.Kind == gamedata.SkillAttack && p.Mana >= sk.ManaCost && sk.ManaCost > 0 {
			return game.ActionSkill, game.ActionParams{SkillID: id}
		}
	}
	return game.ActionAttack, game.ActionParams{}
}

// Random mashes buttons. It deliberately submits actions that may be
// rejected, and random timing results, to shake out state bugs.
type Random struct {
	catalog *gamedata.Catalog
	src     dice.Source
}

// NewRandom creates a Random policy with its own source.
func NewRandom(catalog *gamedata.Catalog, seed int64) *Random {
	return &Random{catalog: catalog, src: dice.NewSource(seed)}
}

// Choose implements Policy.
func (r *Random) Choose(snap game.Snapshot) (game.ActionKind, game.ActionParams) {
	kind := game.ActionKinds[r.src.Intn(len(game.ActionKinds))]
	// Fleeing ends the run early; keep it rare.
	if kind == game.ActionFlee && r.src.Intn(10) > 0 {
		kind = game.ActionAttack
	}

	var params game.ActionParams
	switch kind {
	case game.ActionSkill:
		if len(snap.Skills) > 0 {
			params.SkillID = snap.Skills[r.src.Intn(len(snap.Skills))]
		}
	case game.ActionItem:
		if ids := sortedKeys(snap.Items); len(ids) > 0 {
			params.ItemID = ids[r.src.Intn(len(ids))]
		}
	case game.ActionSummon:
		if all := r.catalog.Summons.All(); len(all) > 0 {
			params.SummonID = all[r.src.Intn(len(all))].ID
		}
	}
	params.Mods = r.timing()
	return kind, params
}

// timing fakes the minigame: mostly neutral, sometimes perfect or botched.
func (r *Random) timing() combat.ActionModifiers {
	switch r.src.Intn(6) {
	case 0:
		return combat.ActionModifiers{HitBonus: 2, DamageMultiplier: 1.5, DamageAdvantage: true, StatusChanceBonus: 10}
	case 1:
		return combat.ActionModifiers{HitBonus: -2, DamageMultiplier: 0.5, DamageDisadvantage: true, NoStatus: true}
	case 2:
		return combat.ActionModifiers{CounterAttack: true, DamageReduction: 0.75}
	default:
		return combat.ActionModifiers{}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
