package gamedata

// ClassDef defines a player preset loaded from JSON.
type ClassDef struct {
	ID          string         `json:"id"`          // Unique identifier (e.g., "warrior")
	Name        string         `json:"name"`        // Display name (e.g., "Warrior")
	HP          int            `json:"hp"`          // Base hit points
	Mana        int            `json:"mana"`        // Base mana points
	Defense     int            `json:"defense"`     // Defense rating
	AttackBonus int            `json:"attackBonus"` // Added to every attack roll
	Damage      string         `json:"damage"`      // Weapon dice expression
	DamageType  DamageType     `json:"damageType"`  // Weapon damage type
	Skills      []string       `json:"skills"`      // Skill ids this class can use
	Passives    []string       `json:"passives,omitempty"`
	Special     string         `json:"special,omitempty"` // SpecialDef id unlocked by full charge
	Items       map[string]int `json:"items,omitempty"`   // Starting inventory
}

// ClassesFile represents the structure of classes.json.
type ClassesFile struct {
	Classes []ClassDef `json:"classes"`
}
