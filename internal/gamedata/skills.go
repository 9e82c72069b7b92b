package gamedata

// SkillKind represents what a skill does.
type SkillKind string

const (
	SkillAttack SkillKind = "attack"
	SkillHeal   SkillKind = "heal"
	SkillBuff   SkillKind = "buff"
)

// SkillDef defines a player skill loaded from JSON.
type SkillDef struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Kind         SkillKind  `json:"kind"`
	ManaCost     int        `json:"manaCost"`
	AttackBonus  int        `json:"attackBonus,omitempty"`
	Damage       string     `json:"damage,omitempty"` // Overrides the attacker's dice when set
	DamageType   DamageType `json:"damageType,omitempty"`
	Heal         string     `json:"heal,omitempty"`
	Status       string     `json:"status,omitempty"`
	StatusChance int        `json:"statusChance,omitempty"` // Percent; 100 for buffs
	StatusStacks int        `json:"statusStacks,omitempty"`
	StaggerBonus int        `json:"staggerBonus,omitempty"`
}

// AppliesStatus reports whether the skill carries a chance-based status.
func (s *SkillDef) AppliesStatus() bool {
	return s.Status != "" && s.StatusChance > 0
}

// Stacks returns the number of stacks the skill applies, at least one.
func (s *SkillDef) Stacks() int {
	if s.StatusStacks < 1 {
		return 1
	}
	return s.StatusStacks
}

// SkillsFile represents the structure of skills.json.
type SkillsFile struct {
	Skills []SkillDef `json:"skills"`
}

// SpecialDef defines a heavy attack: the player's special-charge finisher or an
// enemy's telegraphed ability.
type SpecialDef struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Damage       string     `json:"damage"`
	Multiplier   float64    `json:"multiplier,omitempty"`
	DamageType   DamageType `json:"damageType"`
	AutoHit      bool       `json:"autoHit,omitempty"`
	Status       string     `json:"status,omitempty"`
	StatusStacks int        `json:"statusStacks,omitempty"`
	Flavor       string     `json:"flavor,omitempty"`
}

// DamageMultiplier returns the configured multiplier, defaulting to 1.
func (s *SpecialDef) DamageMultiplier() float64 {
	if s.Multiplier <= 0 {
		return 1
	}
	return s.Multiplier
}

// SpecialsFile represents the structure of specials.json.
type SpecialsFile struct {
	Specials []SpecialDef `json:"specials"`
}

// SummonDef defines a temporary ally that attacks during summon upkeep.
type SummonDef struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	ManaCost    int        `json:"manaCost"`
	Duration    int        `json:"duration"`
	AttackBonus int        `json:"attackBonus"`
	Damage      string     `json:"damage"`
	DamageType  DamageType `json:"damageType"`
}

// SummonsFile represents the structure of summons.json.
type SummonsFile struct {
	Summons []SummonDef `json:"summons"`
}
