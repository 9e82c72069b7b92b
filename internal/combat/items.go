package combat

import (
	"fmt"

	"github.com/samdwyer/storybattle/internal/dice"
	"github.com/samdwyer/storybattle/internal/gamedata"
)

// ItemResult is the outcome of using a consumable. Like the resolver, it
// does not mutate the user; Cures lists statuses the caller should remove.
type ItemResult struct {
	Item     *gamedata.ItemDef
	Heal     Amount
	Mana     Amount
	Cures    []string
	Inflicts []StatusApplication
	Messages []string
}

// ResolveItem rolls an item's effects against user's current state.
func ResolveItem(user *Combatant, item *gamedata.ItemDef, src dice.Source) ItemResult {
	out := ItemResult{Item: item}
	out.Messages = append(out.Messages, fmt.Sprintf("%s uses %s.", user.Name, item.Name))

	if item.Heal != "" {
		if roll, err := dice.RollString(src, item.Heal); err == nil {
			out.Heal = Amount{Rolled: roll.Total, Applied: min(roll.Total, user.MaxHP-user.HP)}
			out.Messages = append(out.Messages, fmt.Sprintf("%s recovers %d HP.", user.Name, out.Heal.Applied))
		}
	}
	if item.Mana != "" {
		if roll, err := dice.RollString(src, item.Mana); err == nil {
			out.Mana = Amount{Rolled: roll.Total, Applied: min(roll.Total, user.MaxMana-user.Mana)}
			out.Messages = append(out.Messages, fmt.Sprintf("%s regains %d mana.", user.Name, out.Mana.Applied))
		}
	}
	for _, id := range item.Cures {
		if user.HasStatus(id) {
			out.Cures = append(out.Cures, id)
		}
	}
	if item.Status != "" {
		out.Inflicts = append(out.Inflicts, StatusApplication{Target: user, Status: item.Status, Stacks: 1})
	}
	return out
}
