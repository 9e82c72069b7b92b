package gamedata

import (
	"math/rand"
	"testing"
	"testing/fstest"

	"github.com/samdwyer/storybattle/internal/dice"
)

func TestLoadEnemies(t *testing.T) {
	enemies, err := LoadEnemies()
	if err != nil {
		t.Fatalf("Failed to load enemies: %v", err)
	}

	expectedIDs := map[string]bool{"goblin": false, "orc": false, "witch": false, "skeleton": false, "fire_drake": false}
	for _, e := range enemies {
		if _, ok := expectedIDs[e.ID]; ok {
			expectedIDs[e.ID] = true
		}
	}

	for id, found := range expectedIDs {
		if !found {
			t.Errorf("Expected enemy %q not found", id)
		}
	}
}

func TestDefaultCatalogLoadsWithoutWarnings(t *testing.T) {
	c, warnings := LoadDefaultCatalog()
	if len(warnings) != 0 {
		t.Fatalf("LoadDefaultCatalog() warnings = %v, want none", warnings)
	}

	counts := map[string]int{
		"statuses": c.Statuses.Count(),
		"skills":   c.Skills.Count(),
		"terrains": c.Terrains.Count(),
		"items":    c.Items.Count(),
		"summons":  c.Summons.Count(),
		"passives": c.Passives.Count(),
		"specials": c.Specials.Count(),
		"enemies":  c.Enemies.Count(),
		"classes":  c.Classes.Count(),
	}
	for name, n := range counts {
		if n == 0 {
			t.Errorf("catalog %s is empty", name)
		}
	}
}

func TestCatalogCrossReferences(t *testing.T) {
	c := MustLoadDefaultCatalog()

	for _, s := range c.Skills.All() {
		if s.Status != "" && c.Statuses.GetByID(s.Status) == nil {
			t.Errorf("skill %s references unknown status %s", s.ID, s.Status)
		}
	}
	for _, sp := range c.Specials.All() {
		if sp.Status != "" && c.Statuses.GetByID(sp.Status) == nil {
			t.Errorf("special %s references unknown status %s", sp.ID, sp.Status)
		}
	}
	for _, e := range c.Enemies.All() {
		for _, in := range e.Intents {
			if c.Specials.GetByID(in.Ability) == nil {
				t.Errorf("enemy %s intent references unknown special %s", e.ID, in.Ability)
			}
		}
		for _, p := range e.Passives {
			if c.Passives.GetByID(p) == nil {
				t.Errorf("enemy %s references unknown passive %s", e.ID, p)
			}
		}
	}
	for _, cl := range c.Classes.All() {
		for _, id := range cl.Skills {
			if c.Skills.GetByID(id) == nil {
				t.Errorf("class %s references unknown skill %s", cl.ID, id)
			}
		}
		if cl.Special != "" && c.Specials.GetByID(cl.Special) == nil {
			t.Errorf("class %s references unknown special %s", cl.ID, cl.Special)
		}
		for id := range cl.Items {
			if c.Items.GetByID(id) == nil {
				t.Errorf("class %s references unknown item %s", cl.ID, id)
			}
		}
	}
}

func TestCatalogDiceExpressionsParse(t *testing.T) {
	c := MustLoadDefaultCatalog()

	exprs := map[string]string{}
	for _, e := range c.Enemies.All() {
		exprs["enemy "+e.ID] = e.Damage
	}
	for _, cl := range c.Classes.All() {
		exprs["class "+cl.ID] = cl.Damage
	}
	for _, sp := range c.Specials.All() {
		exprs["special "+sp.ID] = sp.Damage
	}
	for _, sm := range c.Summons.All() {
		exprs["summon "+sm.ID] = sm.Damage
	}
	for _, sk := range c.Skills.All() {
		if sk.Damage != "" {
			exprs["skill "+sk.ID+" damage"] = sk.Damage
		}
		if sk.Heal != "" {
			exprs["skill "+sk.ID+" heal"] = sk.Heal
		}
	}
	for _, it := range c.Items.All() {
		if it.Heal != "" {
			exprs["item "+it.ID+" heal"] = it.Heal
		}
		if it.Mana != "" {
			exprs["item "+it.ID+" mana"] = it.Mana
		}
	}
	for _, st := range c.Statuses.All() {
		if st.SelfDamageDice != "" {
			exprs["status "+st.ID] = st.SelfDamageDice
		}
	}

	for where, expr := range exprs {
		if _, err := dice.Parse(expr); err != nil {
			t.Errorf("%s: dice.Parse(%q) error = %v", where, expr, err)
		}
	}
}

func TestLoadCatalogDegradesOnMissingFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"statuses.json": &fstest.MapFile{Data: []byte(`{"statuses":[{"id":"stun","name":"Stun","duration":1,"skipsTurn":true}]}`)},
		"skills.json":   &fstest.MapFile{Data: []byte(`{not json`)},
	}

	c, warnings := LoadCatalog(fsys)
	if c == nil {
		t.Fatal("LoadCatalog() returned nil catalog")
	}
	if c.Statuses.Count() != 1 {
		t.Errorf("Statuses.Count() = %d, want 1", c.Statuses.Count())
	}
	if c.Skills.Count() != 0 {
		t.Errorf("Skills.Count() = %d, want 0", c.Skills.Count())
	}
	// Every table except statuses should be reported.
	if len(warnings) != 9 {
		t.Errorf("len(warnings) = %d, want 9", len(warnings))
	}
	if c.Types.Multiplier(DamageFire, DamageIce) != 1 {
		t.Error("missing type chart should be neutral")
	}
}

func TestTypeChartIsAsymmetric(t *testing.T) {
	c := MustLoadDefaultCatalog()

	tests := []struct {
		attack, defense DamageType
		want            float64
	}{
		{DamageFire, DamageIce, 2},
		{DamageIce, DamageFire, 0.5},
		{DamagePoison, DamageShadow, 0},
		{DamagePhysical, DamageFire, 1},
		{DamageType("unknown"), DamageFire, 1},
	}

	for _, tt := range tests {
		if got := c.Types.Multiplier(tt.attack, tt.defense); got != tt.want {
			t.Errorf("Multiplier(%s, %s) = %v, want %v", tt.attack, tt.defense, got, tt.want)
		}
	}
}

func TestSpawnRandomIsDeterministic(t *testing.T) {
	c := MustLoadDefaultCatalog()

	rng1 := rand.New(rand.NewSource(12345))
	rng2 := rand.New(rand.NewSource(12345))

	for i := 0; i < 10; i++ {
		a := SpawnRandom(c.Enemies, rng1)
		b := SpawnRandom(c.Enemies, rng2)
		if a == nil || b == nil {
			t.Fatal("SpawnRandom returned nil")
		}
		if a.ID != b.ID {
			t.Errorf("Spawn %d mismatch: %s != %s", i, a.ID, b.ID)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"#FF0000", true},
		{"FF0000", true},
		{"#00FF00", true},
		{"#FFF", true}, // Shorthand
		{"red", true},
		{"invalid", false},
		{"#FFFF", false},
		{"", false},
	}

	for _, tt := range tests {
		_, err := ParseHexColor(tt.input)
		if tt.valid && err != nil {
			t.Errorf("ParseHexColor(%q) should be valid, got error: %v", tt.input, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("ParseHexColor(%q) should be invalid, got no error", tt.input)
		}
	}
}

func TestStatusDefMethods(t *testing.T) {
	c := MustLoadDefaultCatalog()

	poison := c.Statuses.GetByID("poison")
	if poison == nil {
		t.Fatal("poison not found")
	}
	if !poison.IsPeriodic() {
		t.Error("poison should be periodic")
	}
	if poison.TCellColor() == 0 {
		t.Error("TCellColor returned zero color")
	}

	confusion := c.Statuses.GetByID(StatusConfusion)
	if confusion == nil || !confusion.IsConfusionLike() {
		t.Error("confusion should be confusion-like")
	}
	if confusion != nil && confusion.Duration != 2 {
		t.Errorf("confusion duration = %d, want 2", confusion.Duration)
	}

	stun := c.Statuses.GetByID(StatusStun)
	if stun == nil || !stun.SkipsTurn {
		t.Error("stun should skip turns")
	}
}
