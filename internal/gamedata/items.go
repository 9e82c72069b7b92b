package gamedata

// ItemDef defines a consumable loaded from JSON.
type ItemDef struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Heal   string   `json:"heal,omitempty"`
	Mana   string   `json:"mana,omitempty"`
	Cures  []string `json:"cures,omitempty"`
	Status string   `json:"status,omitempty"` // Applied to the user
}

// ItemsFile represents the structure of items.json.
type ItemsFile struct {
	Items []ItemDef `json:"items"`
}

// PassiveDef defines an always-on trait referenced by combatants.
type PassiveDef struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	AttackBonus     int      `json:"attackBonus,omitempty"`
	DefenseBonus    int      `json:"defenseBonus,omitempty"`
	DamageBonus     int      `json:"damageBonus,omitempty"`
	Immunities      []string `json:"immunities,omitempty"`
	ChargeGainBonus int      `json:"chargeGainBonus,omitempty"`
}

// PassivesFile represents the structure of passives.json.
type PassivesFile struct {
	Passives []PassiveDef `json:"passives"`
}
