package gamedata

// IntentDef describes a telegraphable enemy ability.
type IntentDef struct {
	Ability   string `json:"ability"`   // SpecialDef id
	Chance    int    `json:"chance"`    // Percent per eligible enemy turn
	MinTurn   int    `json:"minTurn"`   // Earliest session turn it may be announced
	Cooldown  int    `json:"cooldown"`  // Turns since last use before it may be announced again
	PrepTurns int    `json:"prepTurns"` // Countdown between announcement and execution
	Flavor    string `json:"flavor,omitempty"`
}

// EnemyDef defines an enemy type loaded from JSON.
type EnemyDef struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	HP               int         `json:"hp"`
	Mana             int         `json:"mana,omitempty"`
	Defense          int         `json:"defense"`
	AttackBonus      int         `json:"attackBonus"`
	Damage           string      `json:"damage"`
	DamageType       DamageType  `json:"damageType"`
	StaggerThreshold int         `json:"staggerThreshold,omitempty"`
	Barrier          int         `json:"barrier,omitempty"` // Points absorbed before hp is touched
	Passives         []string    `json:"passives,omitempty"`
	Dialogue         []string    `json:"dialogue,omitempty"`
	Intents          []IntentDef `json:"intents,omitempty"`
	SpawnWeight      int         `json:"spawnWeight"` // Relative frequency for random encounters
}

// EnemiesFile represents the structure of enemies.json.
type EnemiesFile struct {
	Enemies []EnemyDef `json:"enemies"`
}

// LoadEnemies loads enemy definitions from the embedded enemies.json file.
func LoadEnemies() ([]EnemyDef, error) {
	file, err := Load[EnemiesFile]("enemies.json")
	if err != nil {
		return nil, err
	}
	return file.Enemies, nil
}
