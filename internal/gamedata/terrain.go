package gamedata

// TerrainDef defines a session-wide battlefield modifier.
type TerrainDef struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"name"`
	AccuracyPenalty   int                    `json:"accuracyPenalty,omitempty"` // Subtracted from every attack roll
	DamageMultipliers map[DamageType]float64 `json:"damageMultipliers,omitempty"`
	StatusChanceBonus int                    `json:"statusChanceBonus,omitempty"` // Percent points
	HealPerTick       int                    `json:"healPerTick,omitempty"`
}

// DamageMultiplier returns the terrain multiplier for a damage type.
// A nil terrain is neutral.
func (t *TerrainDef) DamageMultiplier(dt DamageType) float64 {
	if t == nil {
		return 1
	}
	if m, ok := t.DamageMultipliers[dt]; ok {
		return m
	}
	return 1
}

// TerrainsFile represents the structure of terrains.json.
type TerrainsFile struct {
	Terrains []TerrainDef `json:"terrains"`
}
