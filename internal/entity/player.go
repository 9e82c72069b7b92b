// Package entity builds battle combatants from catalog definitions and
// battle configuration, and carries player state between battles.
package entity

import (
	"github.com/samdwyer/storybattle/internal/combat"
	"github.com/samdwyer/storybattle/internal/config"
	"github.com/samdwyer/storybattle/internal/gamedata"
)

// Player is the persistent side of the player. HP, mana and special charge
// survive from one battle to the next; everything else is rebuilt from the
// class and battle config.
type Player struct {
	Name    string
	ClassID string

	HP, MaxHP     int
	Mana, MaxMana int
	Charge        int

	Defense     int
	AttackBonus int
	Damage      string
	DamageType  gamedata.DamageType

	Skills   []string
	Passives []string
	Special  string
	Items    Inventory

	StaggerThreshold int
}

// NewPlayer creates a player from a class definition and config overrides.
// A nil class leaves the stats at modest defaults.
func NewPlayer(cfg config.PlayerConfig, class *gamedata.ClassDef) *Player {
	p := &Player{
		Name:       cfg.Name,
		MaxHP:      20,
		MaxMana:    10,
		Defense:    10,
		Damage:     "1d6",
		DamageType: gamedata.DamagePhysical,
		Items:      Inventory{},
	}
	p.InitFromClassDef(class)

	if cfg.HP > 0 {
		p.MaxHP = cfg.HP
	}
	if cfg.Mana > 0 {
		p.MaxMana = cfg.Mana
	}
	if cfg.Defense > 0 {
		p.Defense = cfg.Defense
	}
	if cfg.AttackBonus != 0 {
		p.AttackBonus = cfg.AttackBonus
	}
	if cfg.Damage != "" {
		p.Damage = cfg.Damage
	}
	if cfg.DamageType != "" {
		p.DamageType = gamedata.DamageType(cfg.DamageType)
	}
	if len(cfg.Skills) > 0 {
		p.Skills = append([]string(nil), cfg.Skills...)
	}
	if len(cfg.Passives) > 0 {
		p.Passives = append([]string(nil), cfg.Passives...)
	}
	if cfg.Special != "" {
		p.Special = cfg.Special
	}
	for id, n := range cfg.Items {
		p.Items[id] = n
	}
	p.StaggerThreshold = cfg.StaggerThreshold
	if p.Name == "" {
		p.Name = "Hero"
	}

	p.HP = p.MaxHP
	p.Mana = p.MaxMana
	return p
}

// InitFromClassDef loads stats from a class definition.
func (p *Player) InitFromClassDef(def *gamedata.ClassDef) {
	if def == nil {
		return
	}
	p.ClassID = def.ID
	p.MaxHP = def.HP
	p.MaxMana = def.Mana
	p.Defense = def.Defense
	p.AttackBonus = def.AttackBonus
	p.Damage = def.Damage
	p.DamageType = def.DamageType
	p.Skills = append([]string(nil), def.Skills...)
	p.Passives = append([]string(nil), def.Passives...)
	p.Special = def.Special
	for id, n := range def.Items {
		p.Items[id] = n
	}
}

// Combatant returns a fresh battle record for the player.
func (p *Player) Combatant() *combat.Combatant {
	c := &combat.Combatant{
		Name:        p.Name,
		IsPlayer:    true,
		HP:          p.HP,
		MaxHP:       p.MaxHP,
		Mana:        p.Mana,
		MaxMana:     p.MaxMana,
		Defense:     p.Defense,
		AttackBonus: p.AttackBonus,
		Damage:      p.Damage,
		DamageType:  p.DamageType,
		Passives:    append([]string(nil), p.Passives...),
		Charge:      p.Charge,

		StaggerThreshold: p.StaggerThreshold,
	}
	c.Clamp()
	return c
}

// CarryFrom copies the persistent meters back from a finished battle.
// A defeated player keeps 1 HP so the story can continue.
func (p *Player) CarryFrom(c *combat.Combatant) {
	p.HP = max(c.HP, 1)
	p.Mana = c.Mana
	p.Charge = c.Charge
}

// CarryOver takes the persistent meters from prev, clamped to this
// player's maximums.
func (p *Player) CarryOver(prev *Player) {
	if prev == nil {
		return
	}
	p.HP = min(max(prev.HP, 1), p.MaxHP)
	p.Mana = min(prev.Mana, p.MaxMana)
	p.Charge = min(prev.Charge, combat.MaxCharge)
}

// HasSkill reports whether the player knows the skill.
func (p *Player) HasSkill(id string) bool {
	for _, s := range p.Skills {
		if s == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (p *Player) Clone() *Player {
	out := *p
	out.Skills = append([]string(nil), p.Skills...)
	out.Passives = append([]string(nil), p.Passives...)
	out.Items = p.Items.Clone()
	return &out
}
