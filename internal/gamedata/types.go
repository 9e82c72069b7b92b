package gamedata

// =============================================================================
// BATTLE CATALOG DESIGN
// =============================================================================
//
// Catalogs are static, data-driven tables loaded from embedded JSON at start-up.
// They hold no state: everything mutable lives in combat.Combatant and
// game.Session.
//
// Catalogs:
//   - types.json     type-effectiveness chart (attack type -> defense type)
//   - statuses.json  status effect definitions (DOT/HOT, stuns, buffs)
//   - skills.json    player skills (attack, heal, buff)
//   - terrains.json  session-wide terrain modifiers
//   - items.json     consumables
//   - summons.json   temporary allies
//   - passives.json  always-on combatant traits
//   - specials.json  special-charge attacks and telegraphed enemy abilities
//   - enemies.json   enemy templates, including telegraphable intents
//   - classes.json   player presets referenced by battle configs
//
// Damage Calculation (dice style):
// --------------------------------
// dice + flat bonus, x2 on critical, x external multiplier, x type chart,
// x terrain, x (1 - damage reduction), minimum 1. Every multiplication floors.

// DamageType is an elemental affinity used for attacks and for defenders.
type DamageType string

const (
	DamagePhysical  DamageType = "physical"
	DamageFire      DamageType = "fire"
	DamageIce       DamageType = "ice"
	DamageLightning DamageType = "lightning"
	DamagePoison    DamageType = "poison"
	DamageHoly      DamageType = "holy"
	DamageShadow    DamageType = "shadow"
)

// TypeChart maps attack type to defense type to damage multiplier.
// Pairs that are absent are neutral (1.0). The chart is asymmetric.
type TypeChart map[DamageType]map[DamageType]float64

// Multiplier returns the effectiveness of attack against defense.
func (c TypeChart) Multiplier(attack, defense DamageType) float64 {
	row, ok := c[attack]
	if !ok {
		return 1
	}
	if m, ok := row[defense]; ok {
		return m
	}
	return 1
}

// TypesFile represents the structure of types.json.
type TypesFile struct {
	Chart TypeChart `json:"chart"`
}
