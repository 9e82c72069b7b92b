package entity

import (
	"github.com/samdwyer/storybattle/internal/combat"
	"github.com/samdwyer/storybattle/internal/config"
	"github.com/samdwyer/storybattle/internal/dice"
	"github.com/samdwyer/storybattle/internal/gamedata"
)

// Enemy is an enemy combatant together with the template it was built from.
type Enemy struct {
	*combat.Combatant
	Def *gamedata.EnemyDef
}

// NewEnemy builds a fresh enemy from a template and config overrides.
func NewEnemy(def *gamedata.EnemyDef, o config.EnemyConfig) *Enemy {
	c := &combat.Combatant{
		Name:             def.Name,
		HP:               def.HP,
		MaxHP:            def.HP,
		Mana:             def.Mana,
		MaxMana:          def.Mana,
		Defense:          def.Defense,
		AttackBonus:      def.AttackBonus,
		Damage:           def.Damage,
		DamageType:       def.DamageType,
		StaggerThreshold: def.StaggerThreshold,
		Passives:         append([]string(nil), def.Passives...),
	}
	if o.Name != "" {
		c.Name = o.Name
	}
	if o.HP > 0 {
		c.HP, c.MaxHP = o.HP, o.HP
	}
	if o.Defense > 0 {
		c.Defense = o.Defense
	}
	if o.AttackBonus != 0 {
		c.AttackBonus = o.AttackBonus
	}
	if o.Damage != "" {
		c.Damage = o.Damage
	}
	return &Enemy{Combatant: c, Def: def}
}

// PickEnemy resolves the configured enemy: by id when set, otherwise a
// weighted random spawn. It returns nil when nothing matches.
func PickEnemy(reg *gamedata.Registry[gamedata.EnemyDef], id string, src dice.Source) *gamedata.EnemyDef {
	if id != "" {
		return reg.GetByID(id)
	}
	return gamedata.SpawnRandom(reg, src)
}

// Line picks a dialogue line, or "" if the enemy has none.
func (e *Enemy) Line(src dice.Source) string {
	if e.Def == nil || len(e.Def.Dialogue) == 0 {
		return ""
	}
	return e.Def.Dialogue[src.Intn(len(e.Def.Dialogue))]
}
